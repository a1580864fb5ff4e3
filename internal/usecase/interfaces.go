package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/lead-bridge/internal/entity"
	"github.com/xavierca1/lead-bridge/internal/infra/integration/notion"
	"github.com/xavierca1/lead-bridge/internal/infra/integration/openai"
	"github.com/xavierca1/lead-bridge/internal/infra/integration/zapi"
	"github.com/xavierca1/lead-bridge/internal/infra/queue"
	"github.com/xavierca1/lead-bridge/internal/infra/scheduler"
)

// RecordStore é o database do Notion.
type RecordStore interface {
	DatabaseSchema(ctx context.Context) (map[string]notion.PropertySchema, error)
	Query(ctx context.Context, property, value string) ([]notion.Page, error)
	Create(ctx context.Context, props notion.Properties) (*notion.Page, error)
	Update(ctx context.Context, pageID string, props notion.Properties) (*notion.Page, error)
	Get(ctx context.Context, pageID string) (*notion.Page, error)
}

type Messenger interface {
	SendText(ctx context.Context, phone, message string) error
	SendLink(ctx context.Context, in zapi.SendLinkInput) error
}

type TextGenerator interface {
	Complete(ctx context.Context, in openai.CompletionRequest) (string, error)
}

type ReminderScheduler interface {
	Schedule(key string, at time.Time, job scheduler.Job) bool
	Cancel(key string) bool
}

type EventPublisher interface {
	PublishLeadEvent(ctx context.Context, event queue.LeadEvent) error
}

type EmailService interface {
	SendBookingConfirmation(to, name, when, meetingLink string) error
}

type ContactResolver interface {
	Resolve(lead entity.Lead) string
}

type ErrorReporter interface {
	CaptureError(err error, tags map[string]string)
}

// MetricsRecorder recebe os contadores de domínio. nil vira noop.
type MetricsRecorder interface {
	LeadClassified(tier entity.Tier, source string)
	NotificationSent(audience string, err error)
	ReminderPlanned(outcome string)
	IntegrationError(service string)
}

type noopMetrics struct{}

func (noopMetrics) LeadClassified(entity.Tier, string) {}
func (noopMetrics) NotificationSent(string, error)     {}
func (noopMetrics) ReminderPlanned(string)             {}
func (noopMetrics) IntegrationError(string)            {}

func metricsOrNoop(m MetricsRecorder) MetricsRecorder {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
