package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xavierca1/lead-bridge/internal/entity"
	"github.com/xavierca1/lead-bridge/internal/usecase"
)

type BookingProcessor interface {
	Execute(ctx context.Context, in usecase.BookingInput) (usecase.BookingOutput, error)
}

// DeliveryDeduper reconhece reentregas do mesmo corpo.
type DeliveryDeduper interface {
	FirstDelivery(ctx context.Context, body []byte) (bool, error)
	Forget(ctx context.Context, body []byte) error
}

type WebhookHandler struct {
	UseCase    BookingProcessor
	Deliveries DeliveryDeduper
	Reporter   usecase.ErrorReporter
	Log        *slog.Logger
}

func NewWebhookHandler(uc BookingProcessor, deliveries DeliveryDeduper, reporter usecase.ErrorReporter, log *slog.Logger) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{UseCase: uc, Deliveries: deliveries, Reporter: reporter, Log: log}
}

type calWebhook struct {
	TriggerEvent string     `json:"triggerEvent"`
	Payload      calBooking `json:"payload"`
}

type calBooking struct {
	UID       string        `json:"uid"`
	StartTime string        `json:"startTime"`
	Location  string        `json:"location"`
	Attendees []calAttendee `json:"attendees"`
	VideoCall struct {
		URL string `json:"url"`
	} `json:"videoCallData"`
	Responses map[string]json.RawMessage `json:"responses"`
}

type calAttendee struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_BODY", "corpo inválido")
		return
	}

	var event calWebhook
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&event); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "JSON inválido")
		return
	}

	trigger := entity.TriggerEvent(event.TriggerEvent)
	if !trigger.IsKnown() {
		h.Log.Info("evento ignorado", "trigger", event.TriggerEvent)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if !h.firstDelivery(r.Context(), body) {
		h.Log.Info("entrega repetida, ignorando", "uid", event.Payload.UID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
		return
	}

	lead, err := event.Payload.toLead()
	if err != nil {
		h.forget(r.Context(), body)
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_START_TIME", err.Error())
		return
	}

	out, err := h.UseCase.Execute(r.Context(), usecase.BookingInput{Trigger: trigger, Lead: lead})
	if err != nil {
		h.forget(r.Context(), body)
		h.writeUsecaseError(w, r, err)
		return
	}
	if out.Ignored {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// firstDelivery falha aberto: sem Redis, todo corpo é processado.
func (h *WebhookHandler) firstDelivery(ctx context.Context, body []byte) bool {
	if h.Deliveries == nil {
		return true
	}
	first, err := h.Deliveries.FirstDelivery(ctx, body)
	if err != nil {
		h.Log.Warn("falha ao consultar entregas no redis", "error", err)
		return true
	}
	return first
}

func (h *WebhookHandler) forget(ctx context.Context, body []byte) {
	if h.Deliveries == nil {
		return
	}
	if err := h.Deliveries.Forget(ctx, body); err != nil {
		h.Log.Warn("falha ao liberar entrega no redis", "error", err)
	}
}

func (h *WebhookHandler) writeUsecaseError(w http.ResponseWriter, r *http.Request, err error) {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		ue = &usecase.Error{Kind: usecase.KindUpstream, Code: "INTERNAL", Message: "erro interno", Err: err}
	}

	if ue.Kind == usecase.KindUpstream {
		h.Log.Error("falha ao processar webhook", "route", r.URL.Path, "code", ue.Code, "error", err)
		if h.Reporter != nil {
			h.Reporter.CaptureError(err, map[string]string{"route": r.URL.Path, "code": ue.Code})
		}
		writeErrorResponse(w, ue.HTTPStatus(), ue.Code, err.Error())
		return
	}

	h.Log.Warn("webhook rejeitado", "route", r.URL.Path, "code", ue.Code, "error", err)
	writeErrorResponse(w, ue.HTTPStatus(), ue.Code, ue.Message)
}

func (b calBooking) toLead() (entity.Lead, error) {
	lead := entity.Lead{ID: strings.TrimSpace(b.UID)}

	if b.StartTime != "" {
		start, err := time.Parse(time.RFC3339, b.StartTime)
		if err != nil {
			return entity.Lead{}, errors.New("startTime inválido")
		}
		lead.StartTime = start
	}

	if len(b.Attendees) > 0 {
		a := b.Attendees[0]
		lead.Name = strings.TrimSpace(a.Name)
		lead.Email = strings.TrimSpace(a.Email)
		lead.Phone = strings.TrimSpace(a.PhoneNumber)
	}

	lead.MeetingLink = meetingLink(b.VideoCall.URL, b.Location)

	resp := func(name string) string { return responseValue(b.Responses[name]) }
	if lead.Name == "" {
		lead.Name = resp("name")
	}
	if lead.Email == "" {
		lead.Email = resp("email")
	}
	if lead.Phone == "" {
		lead.Phone = firstNonEmpty(resp("whatsapp"), resp("attendeePhoneNumber"))
	}
	lead.Profession = resp("profissao")
	lead.Objective = resp("objetivo")
	lead.History = resp("historico")
	lead.Motivation = resp("motivo")
	lead.Age = resp("idade")
	lead.Referral = resp("indicacao")
	lead.Availability = resp("disponibilidade")

	return lead, nil
}

// meetingLink prefere a sala do vídeo; location só vale quando é uma URL.
func meetingLink(videoURL, location string) string {
	if v := strings.TrimSpace(videoURL); v != "" {
		return v
	}
	loc := strings.TrimSpace(location)
	if u, err := url.Parse(loc); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return loc
	}
	return ""
}

// responseValue aceita "valor", 31 ou {"label": ..., "value": ...}.
func responseValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var field struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &field); err == nil && len(field.Value) > 0 {
		return responseValue(field.Value)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
