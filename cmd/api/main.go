package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/xavierca1/lead-bridge/internal/config"
	"github.com/xavierca1/lead-bridge/internal/infra/cache"
	"github.com/xavierca1/lead-bridge/internal/infra/contact"
	"github.com/xavierca1/lead-bridge/internal/infra/http/handlers"
	"github.com/xavierca1/lead-bridge/internal/infra/http/middleware"
	"github.com/xavierca1/lead-bridge/internal/infra/integration/notion"
	"github.com/xavierca1/lead-bridge/internal/infra/integration/openai"
	"github.com/xavierca1/lead-bridge/internal/infra/integration/zapi"
	"github.com/xavierca1/lead-bridge/internal/infra/mail"
	"github.com/xavierca1/lead-bridge/internal/infra/observability"
	"github.com/xavierca1/lead-bridge/internal/infra/queue"
	"github.com/xavierca1/lead-bridge/internal/infra/scheduler"
	"github.com/xavierca1/lead-bridge/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		slog.Error("configuração inválida", "error", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Server.Env)
	slog.SetDefault(log)

	sentryOn, err := observability.InitSentry(cfg.Sentry.DSN, cfg.Server.Env)
	if err != nil {
		log.Warn("sentry desativado", "error", err)
	}
	defer observability.FlushSentry()
	reporter := observability.NewReporter(nil, log)

	// 1. Integrações
	store := notion.NewClient(cfg.Notion.BaseURL, cfg.Notion.Token, cfg.Notion.Version, cfg.Notion.DatabaseID)

	messenger := zapi.NewClient(cfg.ZAPI.BaseURL, cfg.ZAPI.ClientToken, log)
	if !messenger.Configured() {
		log.Warn("z-api não configurada, mensagens serão ignoradas")
	} else {
		log.Info("z-api configurada", "mode", cfg.ZAPI.Mode)
	}

	var generator usecase.TextGenerator
	if c := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model); c != nil {
		generator = c
	}

	var emails usecase.EmailService
	if s := mail.NewEmailSender(cfg.Mail); s != nil {
		emails = s
	}

	var publisher usecase.EventPublisher
	var rabbitMQ *queue.RabbitMQ
	if cfg.RabbitMQ.URL != "" {
		rabbitMQ, err = queue.NewRabbitMQ(cfg.RabbitMQ.URL)
		if err != nil {
			log.Warn("rabbitmq indisponível, eventos não serão publicados", "error", err)
		} else {
			defer rabbitMQ.Close()
			publisher = queue.NewProducer(rabbitMQ.Ch)
		}
	}

	var deliveries handlers.DeliveryDeduper
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		deliveries = cache.NewDeliveryCache(rdb, cfg.Redis.TTL)
	}

	// 2. Scheduler dos lembretes, iniciado uma única vez
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// 3. Casos de uso
	metrics := middleware.Recorder{}
	phones := contact.NewNormalizer(cfg.Display.PhoneRegion)

	classifier := usecase.NewLeadClassifier(generator, cfg.OpenAI.ClassifyTimeout, log, metrics)
	upserter := usecase.NewRecordUpserter(store, cfg.Notion.IDProperty, cfg.Display.Location, log, metrics)
	notifier := usecase.NewNotifier(messenger, usecase.NewSalesSummarizer(generator, log), emails, usecase.NotifierConfig{
		SalesPhones:      cfg.Sales.TeamPhones,
		AdminPhone:       cfg.Sales.AdminPhone,
		PlacementTestURL: cfg.Cal.PlacementTestURL,
		IntroVideoURL:    cfg.Cal.IntroVideoURL,
		Location:         cfg.Display.Location,
	}, log, metrics)
	reminders := usecase.NewReminderPlanner(sched, notifier, cfg.Reminder.Offset, reporter, log, metrics)

	bookingUC := usecase.NewProcessBookingUseCase(
		upserter,
		store,
		classifier,
		notifier,
		reminders,
		contact.NewResolver(phones),
		publisher,
		cfg.Cal.MeetingLink,
		log,
	)
	captureUC := usecase.NewCaptureLeadUseCase(
		usecase.NewValidator(),
		cfg.LeadForm.RequireEmail,
		phones,
		classifier,
		upserter,
		notifier,
		publisher,
		log,
	)

	// 4. Handlers
	checks := map[string]handlers.Pinger{"rabbitmq": nil, "redis": nil}
	if rabbitMQ != nil {
		checks["rabbitmq"] = handlers.PingFunc(func(context.Context) error {
			if rabbitMQ.Conn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		})
	}
	if rdb != nil {
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	router := newRouter(routes{
		calSecret: cfg.Cal.Secret,
		sentry:    sentryOn,
		webhook:   handlers.NewWebhookHandler(bookingUC, deliveries, reporter, log),
		lead:      handlers.NewLeadHandler(captureUC, cfg.LeadForm.RatePerMinute, reporter, log),
		health: handlers.NewHealthHandler(checks, map[string]bool{
			"notion": cfg.Notion.Token != "",
			"zapi":   messenger.Configured(),
			"openai": cfg.OpenAI.Enabled(),
			"smtp":   cfg.Mail.Enabled(),
		}),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("🔥 lead-bridge rodando", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("servidor parou", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("desligando")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("falha no shutdown", "error", err)
	}
}
