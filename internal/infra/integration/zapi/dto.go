package zapi

import (
	"fmt"
	"strings"
)

// Cause classifica a falha de um envio.
type Cause string

const (
	CauseNotConfigured        Cause = "not_configured"
	CauseMethodNotAllowed     Cause = "method_not_allowed"
	CauseUnsupportedMediaType Cause = "unsupported_media_type"
	CauseRejected             Cause = "rejected"
	CauseTransport            Cause = "transport"
	CauseInvalidResponse      Cause = "invalid_response"
)

// SendError é o único erro devolvido pelos métodos de envio.
type SendError struct {
	Cause  Cause
	Status int
	Body   string
	Err    error
}

func (e *SendError) Error() string {
	switch e.Cause {
	case CauseNotConfigured:
		return "z-api não configurada"
	case CauseMethodNotAllowed:
		return "z-api: Método HTTP incorreto"
	case CauseUnsupportedMediaType:
		return "z-api: Content-Type não especificado corretamente"
	case CauseTransport:
		return fmt.Sprintf("z-api: falha de conexão: %v", e.Err)
	case CauseInvalidResponse:
		return fmt.Sprintf("z-api: resposta inválida: %v", e.Err)
	default:
		return fmt.Sprintf("z-api returned %d: %s", e.Status, e.Body)
	}
}

func (e *SendError) Unwrap() error {
	return e.Err
}

type SendTextInput struct {
	Phone   string
	Message string
}

type SendLinkInput struct {
	Phone           string
	Message         string
	LinkURL         string
	Title           string
	LinkDescription string
	Image           string
}

type textPayload struct {
	Phone        string `json:"phone"`
	Message      string `json:"message"`
	DelayMessage int    `json:"delayMessage"`
	DelayTyping  int    `json:"delayTyping"`
}

type linkPayload struct {
	Phone           string `json:"phone"`
	Message         string `json:"message"`
	Image           string `json:"image"`
	LinkURL         string `json:"linkUrl"`
	Title           string `json:"title"`
	LinkDescription string `json:"linkDescription"`
	LinkType        string `json:"linkType"`
	DelayMessage    int    `json:"delayMessage"`
	DelayTyping     int    `json:"delayTyping"`
}

// SendResponse é o corpo de sucesso da Z-API.
type SendResponse struct {
	ZaapID    string `json:"zaapId"`
	MessageID string `json:"messageId"`
	ID        string `json:"id"`
}

// Digits remove tudo que não for dígito ("+55 (11) 9..." -> "5511...").
func Digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
