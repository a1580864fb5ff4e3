package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
)

// InitSentry liga o Sentry quando há DSN. Sem DSN devolve false e nada é enviado.
func InitSentry(dsn, env string) (bool, error) {
	if dsn == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		Release:          "lead-bridge",
		TracesSampleRate: 0.2,
	})
	if err != nil {
		return false, fmt.Errorf("falha ao iniciar sentry: %w", err)
	}
	return true, nil
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// SentryMiddleware recupera panics e coloca o hub no contexto da request.
func SentryMiddleware() func(http.Handler) http.Handler {
	h := sentryhttp.New(sentryhttp.Options{Repanic: true})
	return h.Handle
}

// Reporter envia erros ao hub atual e registra no log.
type Reporter struct {
	hub *sentry.Hub
	log *slog.Logger
}

func NewReporter(hub *sentry.Hub, log *slog.Logger) *Reporter {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{hub: hub, log: log}
}

func (r *Reporter) CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	r.log.Error("erro reportado", "error", err, "tags", tags)

	r.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		r.hub.CaptureException(err)
	})
}
