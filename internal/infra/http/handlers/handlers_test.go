package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/xavierca1/lead-bridge/internal/entity"
	"github.com/xavierca1/lead-bridge/internal/usecase"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockBooking struct {
	mock.Mock
}

func (m *mockBooking) Execute(ctx context.Context, in usecase.BookingInput) (usecase.BookingOutput, error) {
	args := m.Called(in)
	return args.Get(0).(usecase.BookingOutput), args.Error(1)
}

type mockCapture struct {
	mock.Mock
}

func (m *mockCapture) Execute(ctx context.Context, in usecase.CaptureLeadInput) (usecase.CaptureLeadOutput, error) {
	args := m.Called(in)
	return args.Get(0).(usecase.CaptureLeadOutput), args.Error(1)
}

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) CaptureError(err error, tags map[string]string) {
	m.Called(err, tags)
}

// memoryDeliveries imita o cache de entregas.
type memoryDeliveries struct {
	seen map[string]bool
	err  error
}

func (d *memoryDeliveries) FirstDelivery(ctx context.Context, body []byte) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen[string(body)] {
		return false, nil
	}
	d.seen[string(body)] = true
	return true, nil
}

func (d *memoryDeliveries) Forget(ctx context.Context, body []byte) error {
	delete(d.seen, string(body))
	return nil
}

const createdBody = `{
  "triggerEvent": "BOOKING_CREATED",
  "payload": {
    "uid": "abc123",
    "startTime": "2025-06-07T12:00:00Z",
    "location": "integrations:zoom",
    "videoCallData": {"url": "https://zoom.us/j/999"},
    "attendees": [{"name": "Ana", "email": "ana@example.com", "phoneNumber": "+5511999999999"}],
    "responses": {
      "motivo": {"label": "Motivo", "value": "viagem em dezembro"},
      "profissao": "Engenheira",
      "idade": {"label": "Idade", "value": 31}
    }
  }
}`

func postWebhook(h *WebhookHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestWebhookHandler_Created(t *testing.T) {
	uc := new(mockBooking)
	uc.On("Execute", mock.MatchedBy(func(in usecase.BookingInput) bool {
		l := in.Lead
		return in.Trigger == entity.BookingCreated &&
			l.ID == "abc123" &&
			l.Name == "Ana" &&
			l.Phone == "+5511999999999" &&
			l.MeetingLink == "https://zoom.us/j/999" &&
			l.Motivation == "viagem em dezembro" &&
			l.Profession == "Engenheira" &&
			l.Age == "31" &&
			l.StartTime.Equal(time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC))
	})).Return(usecase.BookingOutput{RecordID: "page-1"}, nil).Once()

	h := NewWebhookHandler(uc, nil, nil, discardLogger())
	rec := postWebhook(h, createdBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())
	uc.AssertExpectations(t)
}

func TestWebhookHandler_UnknownTrigger(t *testing.T) {
	uc := new(mockBooking)
	h := NewWebhookHandler(uc, nil, nil, discardLogger())

	rec := postWebhook(h, `{"triggerEvent":"MEETING_ENDED","payload":{}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ignored"}`, rec.Body.String())
	uc.AssertNotCalled(t, "Execute", mock.Anything)
}

func TestWebhookHandler_BadJSON(t *testing.T) {
	h := NewWebhookHandler(new(mockBooking), nil, nil, discardLogger())
	rec := postWebhook(h, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookHandler_ValidationError(t *testing.T) {
	uc := new(mockBooking)
	uc.On("Execute", mock.Anything).Return(usecase.BookingOutput{}, usecase.ValidationFailure("MISSING_FIELDS", "uid do agendamento ausente"))

	h := NewWebhookHandler(uc, nil, nil, discardLogger())
	rec := postWebhook(h, `{"triggerEvent":"BOOKING_CREATED","payload":{}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"uid do agendamento ausente","code":"MISSING_FIELDS"}`, rec.Body.String())
}

func TestWebhookHandler_UpstreamErrorIsReported(t *testing.T) {
	uc := new(mockBooking)
	uc.On("Execute", mock.Anything).Return(usecase.BookingOutput{}, usecase.UpstreamFailure("RECORD_CREATE", "falha ao criar registro", errors.New("notion 502")))

	reporter := new(mockReporter)
	reporter.On("CaptureError", mock.Anything, mock.MatchedBy(func(tags map[string]string) bool {
		return tags["code"] == "RECORD_CREATE"
	})).Return().Once()

	h := NewWebhookHandler(uc, nil, reporter, discardLogger())
	rec := postWebhook(h, createdBody)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "notion 502")
	reporter.AssertExpectations(t)
}

func TestWebhookHandler_Redelivery(t *testing.T) {
	uc := new(mockBooking)
	uc.On("Execute", mock.Anything).Return(usecase.BookingOutput{}, nil).Once()

	h := NewWebhookHandler(uc, &memoryDeliveries{seen: map[string]bool{}}, nil, discardLogger())

	first := postWebhook(h, createdBody)
	second := postWebhook(h, createdBody)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, `{"status":"success"}`, second.Body.String())
	uc.AssertNumberOfCalls(t, "Execute", 1)
}

func TestWebhookHandler_FailedDeliveryCanBeRetried(t *testing.T) {
	uc := new(mockBooking)
	uc.On("Execute", mock.Anything).Return(usecase.BookingOutput{}, usecase.UpstreamFailure("RECORD_CREATE", "falha", errors.New("x"))).Once()
	uc.On("Execute", mock.Anything).Return(usecase.BookingOutput{}, nil).Once()

	h := NewWebhookHandler(uc, &memoryDeliveries{seen: map[string]bool{}}, nil, discardLogger())

	assert.Equal(t, http.StatusInternalServerError, postWebhook(h, createdBody).Code)
	assert.Equal(t, http.StatusOK, postWebhook(h, createdBody).Code)
	uc.AssertNumberOfCalls(t, "Execute", 2)
}

func TestWebhookHandler_DedupUnavailableStillProcesses(t *testing.T) {
	uc := new(mockBooking)
	uc.On("Execute", mock.Anything).Return(usecase.BookingOutput{}, nil)

	h := NewWebhookHandler(uc, &memoryDeliveries{err: errors.New("redis down")}, nil, discardLogger())

	assert.Equal(t, http.StatusOK, postWebhook(h, createdBody).Code)
	uc.AssertNumberOfCalls(t, "Execute", 1)
}

func TestMeetingLink(t *testing.T) {
	assert.Equal(t, "https://video", meetingLink("https://video", "https://loc"))
	assert.Equal(t, "https://meet.google.com/x", meetingLink("", "https://meet.google.com/x"))
	assert.Equal(t, "", meetingLink("", "integrations:zoom"))
	assert.Equal(t, "", meetingLink("", "Rua A, 10"))
}

func TestLeadHandler_CaptureLead(t *testing.T) {
	uc := new(mockCapture)
	uc.On("Execute", usecase.CaptureLeadInput{Name: "Ana", WhatsApp: "11999999999", Motivation: "viagem"}).
		Return(usecase.CaptureLeadOutput{Message: usecase.MsgLeadCaptured, Tier: entity.TierHigh}, nil).Once()

	h := NewLeadHandler(uc, 10, nil, discardLogger())
	req := httptest.NewRequest(http.MethodPost, "/webhook/lead", strings.NewReader(`{"nome":"Ana","whatsapp":"11999999999","motivo":"viagem"}`))
	rec := httptest.NewRecorder()

	h.CaptureLead(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Dados enviados para o Notion com sucesso."}`, rec.Body.String())
	uc.AssertExpectations(t)
}

func TestLeadHandler_ValidationAndUpstream(t *testing.T) {
	uc := new(mockCapture)
	uc.On("Execute", usecase.CaptureLeadInput{Name: "Ana"}).
		Return(usecase.CaptureLeadOutput{}, usecase.ValidationFailure("MISSING_FIELDS", usecase.MsgMissingFormFields))
	uc.On("Execute", usecase.CaptureLeadInput{Name: "Bia", WhatsApp: "1"}).
		Return(usecase.CaptureLeadOutput{}, usecase.UpstreamFailure("RECORD_CREATE", "falha ao criar registro", errors.New("notion 502")))

	h := NewLeadHandler(uc, 10, nil, discardLogger())

	rec := httptest.NewRecorder()
	h.CaptureLead(rec, httptest.NewRequest(http.MethodPost, "/webhook/lead", strings.NewReader(`{"nome":"Ana"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nome ou WhatsApp faltando.")

	rec = httptest.NewRecorder()
	h.CaptureLead(rec, httptest.NewRequest(http.MethodPost, "/webhook/lead", strings.NewReader(`{"nome":"Bia","whatsapp":"1"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	h.CaptureLead(rec, httptest.NewRequest(http.MethodPost, "/webhook/lead", strings.NewReader(`nope`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeadHandler_RateLimited(t *testing.T) {
	uc := new(mockCapture)
	uc.On("Execute", mock.Anything).Return(usecase.CaptureLeadOutput{Message: usecase.MsgLeadCaptured}, nil)

	h := NewLeadHandler(uc, 2, nil, discardLogger())
	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/webhook/lead", strings.NewReader(`{"nome":"Ana","whatsapp":"1"}`))
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		rec := httptest.NewRecorder()
		h.CaptureLead(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestIPRateLimiter_PerIP(t *testing.T) {
	rl := NewIPRateLimiter(rate.Every(time.Hour), 1)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"redis":    PingFunc(func(context.Context) error { return nil }),
		"rabbitmq": nil,
	}, map[string]bool{"notion": true, "zapi": false})

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"rabbitmq":"not configured"`)
	assert.Contains(t, rec.Body.String(), `"zapi":"not configured"`)

	h.Checks["redis"] = PingFunc(func(context.Context) error { return errors.New("down") })
	rec = httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRoot(t *testing.T) {
	rec := httptest.NewRecorder()
	Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"message":"API is running"}`, rec.Body.String())
}
