package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/lead-bridge/internal/infra/http/handlers"
	"github.com/xavierca1/lead-bridge/internal/infra/http/middleware"
	"github.com/xavierca1/lead-bridge/internal/infra/observability"
)

type routes struct {
	calSecret string
	sentry    bool
	webhook   *handlers.WebhookHandler
	lead      *handlers.LeadHandler
	health    *handlers.HealthHandler
}

func newRouter(rt routes) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	if rt.sentry {
		r.Use(observability.SentryMiddleware())
	}
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", middleware.SignatureHeader},
	}))

	r.Get("/", handlers.Root)
	r.Get("/health", rt.health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.With(middleware.CalSignature(rt.calSecret)).Post("/webhook", rt.webhook.Handle)
	r.Post("/webhook/lead", rt.lead.CaptureLead)

	return r
}
