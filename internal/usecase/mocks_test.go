package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/lead-bridge/internal/entity"
	"github.com/xavierca1/lead-bridge/internal/infra/integration/notion"
	"github.com/xavierca1/lead-bridge/internal/infra/integration/openai"
	"github.com/xavierca1/lead-bridge/internal/infra/integration/zapi"
	"github.com/xavierca1/lead-bridge/internal/infra/queue"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore guarda as páginas em memória e filtra pelo texto da propriedade.
type fakeStore struct {
	mu         sync.Mutex
	idProperty string
	schema     map[string]notion.PropertySchema
	schemaErr  error
	queryErr   error
	createErr  error
	updateErr  error
	pages      map[string]notion.Properties
	creates    int
	updates    []notion.Properties
}

func newFakeStore(idProperty string, declared map[string]string) *fakeStore {
	schema := map[string]notion.PropertySchema{}
	for name, typ := range declared {
		schema[name] = notion.PropertySchema{Name: name, Type: typ}
	}
	return &fakeStore{
		idProperty: idProperty,
		schema:     schema,
		pages:      map[string]notion.Properties{},
	}
}

func (s *fakeStore) DatabaseSchema(ctx context.Context) (map[string]notion.PropertySchema, error) {
	if s.schemaErr != nil {
		return nil, s.schemaErr
	}
	return s.schema, nil
}

func (s *fakeStore) Query(ctx context.Context, property, value string) ([]notion.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	ids := make([]string, 0, len(s.pages))
	for id := range s.pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []notion.Page
	for _, id := range ids {
		if textOf(s.pages[id][property]) == value {
			out = append(out, notion.Page{ID: id, Properties: copyProps(s.pages[id])})
		}
	}
	return out, nil
}

func (s *fakeStore) Create(ctx context.Context, props notion.Properties) (*notion.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.creates++
	id := fmt.Sprintf("page-%d", s.creates)
	s.pages[id] = copyProps(props)
	return &notion.Page{ID: id}, nil
}

func (s *fakeStore) Update(ctx context.Context, pageID string, props notion.Properties) (*notion.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.updates = append(s.updates, props)
	for k, v := range props {
		s.pages[pageID][k] = v
	}
	return &notion.Page{ID: pageID}, nil
}

func (s *fakeStore) Get(ctx context.Context, pageID string) (*notion.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	props, ok := s.pages[pageID]
	if !ok {
		return nil, fmt.Errorf("page %s not found", pageID)
	}
	return &notion.Page{ID: pageID, Properties: copyProps(props)}, nil
}

func (s *fakeStore) props(pageID string) notion.Properties {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[pageID]
}

func copyProps(in notion.Properties) notion.Properties {
	out := make(notion.Properties, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func textOf(v notion.Property) string {
	return notion.PropertyText(v)
}

type mockMessenger struct {
	mock.Mock
}

func (m *mockMessenger) SendText(ctx context.Context, phone, message string) error {
	return m.Called(phone, message).Error(0)
}

func (m *mockMessenger) SendLink(ctx context.Context, in zapi.SendLinkInput) error {
	return m.Called(in).Error(0)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Complete(ctx context.Context, in openai.CompletionRequest) (string, error) {
	args := m.Called(in)
	return args.String(0), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishLeadEvent(ctx context.Context, event queue.LeadEvent) error {
	return m.Called(event).Error(0)
}

type mockEmail struct {
	mock.Mock
}

func (m *mockEmail) SendBookingConfirmation(to, name, when, meetingLink string) error {
	return m.Called(to, name, when, meetingLink).Error(0)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendReminder(ctx context.Context, lead entity.Lead, schedule ScheduleInfo, phone string) error {
	return m.Called(lead.ID, phone).Error(0)
}

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) CaptureError(err error, tags map[string]string) {
	m.Called(err, tags)
}

// eventPhone é o resolvedor mais simples: usa o telefone do lead.
type eventPhone struct{}

func (eventPhone) Resolve(lead entity.Lead) string { return lead.Phone }

type countingMetrics struct {
	mu         sync.Mutex
	classified map[string]int
	reminders  map[string]int
	sent       map[string]int
	failed     map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		classified: map[string]int{},
		reminders:  map[string]int{},
		sent:       map[string]int{},
		failed:     map[string]int{},
	}
}

func (c *countingMetrics) LeadClassified(tier entity.Tier, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classified[source+":"+tier.String()]++
}

func (c *countingMetrics) NotificationSent(audience string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.failed[audience]++
		return
	}
	c.sent[audience]++
}

func (c *countingMetrics) ReminderPlanned(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reminders[outcome]++
}

func (c *countingMetrics) IntegrationError(string) {}
