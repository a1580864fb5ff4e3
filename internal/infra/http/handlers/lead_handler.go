package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/xavierca1/lead-bridge/internal/usecase"
)

type LeadCapturer interface {
	Execute(ctx context.Context, in usecase.CaptureLeadInput) (usecase.CaptureLeadOutput, error)
}

type LeadHandler struct {
	UseCase     LeadCapturer
	Reporter    usecase.ErrorReporter
	Log         *slog.Logger
	rateLimiter *IPRateLimiter
}

// NewLeadHandler limita cada IP a perMinute requisições por minuto.
func NewLeadHandler(uc LeadCapturer, perMinute int, reporter usecase.ErrorReporter, log *slog.Logger) *LeadHandler {
	if perMinute <= 0 {
		perMinute = 10
	}
	if log == nil {
		log = slog.Default()
	}
	return &LeadHandler{
		UseCase:     uc,
		Reporter:    reporter,
		Log:         log,
		rateLimiter: NewIPRateLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	}
}

func (h *LeadHandler) CaptureLead(w http.ResponseWriter, r *http.Request) {
	if !h.rateLimiter.Allow(getClientIP(r)) {
		writeErrorResponse(w, http.StatusTooManyRequests, "RATE_LIMITED", "Muitas requisições. Tente novamente em instantes.")
		return
	}

	var req usecase.CaptureLeadInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "JSON inválido")
		return
	}

	out, err := h.UseCase.Execute(r.Context(), req)
	if err != nil {
		var ue *usecase.Error
		if errors.As(err, &ue) && ue.Kind == usecase.KindValidation {
			writeErrorResponse(w, http.StatusBadRequest, ue.Code, ue.Message)
			return
		}
		h.Log.Error("falha ao registrar lead do formulário", "error", err)
		if h.Reporter != nil {
			h.Reporter.CaptureError(err, map[string]string{"route": r.URL.Path})
		}
		writeErrorResponse(w, http.StatusInternalServerError, "UPSTREAM_FAILURE", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// getClientIP usa o primeiro IP do X-Forwarded-For quando presente.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// IPRateLimiter mantém um token bucket por IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPRateLimiter(limit rate.Limit, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

func (rl *IPRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.sweep(now)

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep descarta visitantes parados; chamado com o lock.
func (rl *IPRateLimiter) sweep(now time.Time) {
	if len(rl.visitors) < 1024 {
		return
	}
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.visitors, ip)
		}
	}
}
