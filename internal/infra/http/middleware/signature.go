package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const (
	SignatureHeader = "X-Cal-Signature-256"
	maxWebhookBody  = 1 << 20
)

// VerifySignature compara o HMAC-SHA256 (hex) do corpo bruto com o header.
func VerifySignature(rawBody []byte, signatureHeader, secret string) bool {
	if secret == "" || signatureHeader == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signatureHeader))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hmac.Equal(got, mac.Sum(nil))
}

// CalSignature rejeita com 401 qualquer request cuja assinatura não confere e
// com 413 corpos acima de 1 MiB. O corpo é restaurado para o handler.
func CalSignature(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
			_ = r.Body.Close()
			if err == nil && len(body) > maxWebhookBody {
				writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large")
				return
			}
			if err != nil || !VerifySignature(body, r.Header.Get(SignatureHeader), secret) {
				writeError(w, http.StatusUnauthorized, "invalid_signature")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
