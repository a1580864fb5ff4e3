package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/xavierca1/lead-bridge/internal/entity"
	"github.com/xavierca1/lead-bridge/internal/infra/queue"
)

type BookingInput struct {
	Trigger entity.TriggerEvent
	Lead    entity.Lead
}

type BookingOutput struct {
	Ignored  bool            `json:"-"`
	RecordID string          `json:"record_id,omitempty"`
	Created  bool            `json:"created"`
	Tier     entity.Tier     `json:"tier,omitempty"`
	Reminder ReminderOutcome `json:"reminder,omitempty"`
}

type ProcessBookingUseCase struct {
	Upserter   *RecordUpserter
	Store      RecordStore
	Classifier *LeadClassifier
	Notifier   *Notifier
	Reminders  *ReminderPlanner
	Contacts   ContactResolver
	Publisher  EventPublisher
	// MeetingLink é usado quando o agendamento não traz sala.
	MeetingLink string
	Log         *slog.Logger
}

func NewProcessBookingUseCase(
	upserter *RecordUpserter,
	store RecordStore,
	classifier *LeadClassifier,
	notifier *Notifier,
	reminders *ReminderPlanner,
	contacts ContactResolver,
	publisher EventPublisher,
	meetingLink string,
	log *slog.Logger,
) *ProcessBookingUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &ProcessBookingUseCase{
		Upserter:    upserter,
		Store:       store,
		Classifier:  classifier,
		Notifier:    notifier,
		Reminders:   reminders,
		Contacts:    contacts,
		Publisher:   publisher,
		MeetingLink: meetingLink,
		Log:         log,
	}
}

func (uc *ProcessBookingUseCase) Execute(ctx context.Context, in BookingInput) (BookingOutput, error) {
	if !in.Trigger.IsKnown() {
		uc.Log.Info("evento ignorado", "trigger", in.Trigger)
		return BookingOutput{Ignored: true}, nil
	}
	if strings.TrimSpace(in.Lead.ID) == "" {
		return BookingOutput{}, ValidationFailure("MISSING_FIELDS", "uid do agendamento ausente")
	}

	if in.Trigger == entity.BookingCancelled {
		return uc.cancel(ctx, in)
	}
	return uc.schedule(ctx, in)
}

func (uc *ProcessBookingUseCase) schedule(ctx context.Context, in BookingInput) (BookingOutput, error) {
	lead := in.Lead
	if strings.TrimSpace(lead.Name) == "" || lead.StartTime.IsZero() {
		return BookingOutput{}, ValidationFailure("MISSING_FIELDS", "nome ou horário do agendamento ausente")
	}

	uc.Log.Info("processando agendamento", "trigger", in.Trigger, "uid", lead.ID)

	// Sem registro do uid, um lead que já preencheu o formulário é achado pelo telefone.
	ref, err := uc.Upserter.Upsert(ctx, UpsertInput{
		Identifier: lead.ID,
		Phone:      uc.resolve(lead),
		Adopt:      true,
		Name:       lead.Name,
		StartTime:  lead.StartTime,
		Email:      lead.Email,
		Status:     entity.StatusScheduled,
		Extra:      extraFields(lead),
	})
	if err != nil {
		return BookingOutput{}, err
	}

	// Campos vazios no evento vêm do registro, inclusive os do formulário.
	if page, err := uc.Store.Get(ctx, ref.ID); err != nil {
		uc.Log.Warn("não foi possível ler o registro, seguindo com os dados do evento", "page_id", ref.ID, "error", err)
	} else {
		lead = lead.Merge(uc.Upserter.LeadFromPage(page))
	}

	if lead.MeetingLink == "" {
		lead.MeetingLink = uc.MeetingLink
	}
	schedule := ScheduleInfo{StartTime: lead.StartTime, MeetingLink: lead.MeetingLink}

	phone := uc.resolve(lead)

	tier := uc.Classifier.Classify(ctx, lead.Referral, lead.Motivation)

	notifyErr := uc.Notifier.NotifyBooking(ctx, BookingNotice{
		Lead:     lead,
		Schedule: schedule,
		Tier:     tier,
		Phone:    phone,
	})

	plan := uc.Reminders.Plan(in.Trigger, lead, schedule, phone)

	uc.publish(ctx, queue.LeadEvent{
		Source:     "cal.com",
		Trigger:    string(in.Trigger),
		Identifier: lead.ID,
		RecordID:   ref.ID,
		Name:       lead.Name,
		Email:      lead.Email,
		Phone:      phone,
		Tier:       tier.String(),
		StartTime:  lead.StartTime,
	})

	out := BookingOutput{RecordID: ref.ID, Created: ref.Created, Tier: tier, Reminder: plan.Outcome}
	if notifyErr != nil {
		return out, notifyErr
	}
	uc.Log.Info("agendamento processado", "uid", lead.ID, "tier", tier, "reminder", plan.Outcome)
	return out, nil
}

func (uc *ProcessBookingUseCase) cancel(ctx context.Context, in BookingInput) (BookingOutput, error) {
	lead := in.Lead
	uc.Log.Info("processando cancelamento", "uid", lead.ID)

	// O lembrete sai antes de qualquer chamada externa.
	uc.Reminders.Cancel(lead.ID)
	out := BookingOutput{Reminder: ReminderCancelled}

	var errs []error
	found, err := uc.Upserter.MarkCancelled(ctx, lead.ID)
	switch {
	case err != nil:
		uc.Log.Error("falha ao marcar cancelamento no notion", "uid", lead.ID, "error", err)
		errs = append(errs, err)
	case !found:
		uc.Log.Warn("cancelamento sem registro no notion", "uid", lead.ID)
	}

	schedule := ScheduleInfo{StartTime: lead.StartTime, MeetingLink: lead.MeetingLink}
	if err := uc.Notifier.NotifyCancellation(ctx, lead, schedule); err != nil {
		errs = append(errs, err)
	}

	uc.publish(ctx, queue.LeadEvent{
		Source:     "cal.com",
		Trigger:    string(in.Trigger),
		Identifier: lead.ID,
		Name:       lead.Name,
		Email:      lead.Email,
	})

	switch len(errs) {
	case 0:
		return out, nil
	case 1:
		return out, errs[0]
	default:
		return out, UpstreamFailure("CANCELLATION_FAILED", "falha ao processar cancelamento", errors.Join(errs...))
	}
}

func (uc *ProcessBookingUseCase) resolve(lead entity.Lead) string {
	if uc.Contacts == nil {
		return ""
	}
	return uc.Contacts.Resolve(lead)
}

func (uc *ProcessBookingUseCase) publish(ctx context.Context, event queue.LeadEvent) {
	if uc.Publisher == nil {
		return
	}
	if err := uc.Publisher.PublishLeadEvent(ctx, event); err != nil {
		uc.Log.Warn("falha ao publicar evento do lead", "identifier", event.Identifier, "error", err)
	}
}

// extraFields projeta os campos livres do lead nas colunas do Notion.
func extraFields(lead entity.Lead) map[string]string {
	return map[string]string{
		PropPhone:        lead.Phone,
		PropProfession:   lead.Profession,
		PropObjective:    lead.Objective,
		PropHistory:      lead.History,
		PropMotivation:   lead.Motivation,
		PropAge:          lead.Age,
		PropReferral:     lead.Referral,
		PropAvailability: lead.Availability,
	}
}
