// Package observability reúne log estruturado e o envio de erros ao Sentry.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger usa texto em desenvolvimento e JSON no resto.
func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	switch strings.ToLower(env) {
	case "development", "dev", "local":
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
