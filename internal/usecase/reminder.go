package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/xavierca1/lead-bridge/internal/entity"
)

type ReminderOutcome string

const (
	ReminderScheduled        ReminderOutcome = "scheduled"
	ReminderSkippedPast      ReminderOutcome = "skipped_past"
	ReminderSkippedNoContact ReminderOutcome = "skipped_no_contact"
	ReminderSkippedTrigger   ReminderOutcome = "skipped_trigger"
	ReminderCancelled        ReminderOutcome = "cancelled"
)

type ReminderPlan struct {
	Outcome ReminderOutcome
	FireAt  time.Time
}

type ReminderSender interface {
	SendReminder(ctx context.Context, lead entity.Lead, schedule ScheduleInfo, phone string) error
}

const reminderSendTimeout = 30 * time.Second

type ReminderPlanner struct {
	Scheduler ReminderScheduler
	Sender    ReminderSender
	Offset    time.Duration
	Now       func() time.Time
	Reporter  ErrorReporter
	Log       *slog.Logger
	Metrics   MetricsRecorder
}

func NewReminderPlanner(s ReminderScheduler, sender ReminderSender, offset time.Duration, reporter ErrorReporter, log *slog.Logger, metrics MetricsRecorder) *ReminderPlanner {
	if offset <= 0 {
		offset = time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &ReminderPlanner{
		Scheduler: s,
		Sender:    sender,
		Offset:    offset,
		Now:       time.Now,
		Reporter:  reporter,
		Log:       log,
		Metrics:   metricsOrNoop(metrics),
	}
}

// Plan registra o lembrete de start-Offset. Remarcação substitui o job da mesma
// chave; se o novo horário não permite lembrete, o job pendente é removido.
func (p *ReminderPlanner) Plan(trigger entity.TriggerEvent, lead entity.Lead, schedule ScheduleInfo, phone string) ReminderPlan {
	key := entity.ReminderKey(lead.ID)

	if !trigger.SchedulesReminder() {
		return p.done(ReminderPlan{Outcome: ReminderSkippedTrigger})
	}

	if phone == "" {
		p.Scheduler.Cancel(key)
		p.Log.Info("lembrete não agendado: lead sem telefone", "key", key)
		return p.done(ReminderPlan{Outcome: ReminderSkippedNoContact})
	}

	fireAt := schedule.StartTime.Add(-p.Offset)
	if !fireAt.After(p.Now()) {
		p.Scheduler.Cancel(key)
		skip := &Error{Kind: KindSchedulingSkip, Code: "REMINDER_IN_PAST", Message: "horário do lembrete já passou"}
		p.Log.Info("lembrete não agendado", "key", key, "fire_at", fireAt, "reason", skip.Error())
		return p.done(ReminderPlan{Outcome: ReminderSkippedPast, FireAt: fireAt})
	}

	job := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, reminderSendTimeout)
		defer cancel()

		if err := p.Sender.SendReminder(ctx, lead, schedule, phone); err != nil {
			p.Log.Error("falha ao enviar lembrete", "key", key, "error", err)
			if p.Reporter != nil {
				p.Reporter.CaptureError(err, map[string]string{"component": "reminder", "key": key})
			}
			return
		}
		p.Log.Info("lembrete enviado", "key", key)
	}

	if replaced := p.Scheduler.Schedule(key, fireAt, job); replaced {
		p.Log.Info("lembrete reagendado", "key", key, "fire_at", fireAt)
	} else {
		p.Log.Info("lembrete agendado", "key", key, "fire_at", fireAt)
	}
	return p.done(ReminderPlan{Outcome: ReminderScheduled, FireAt: fireAt})
}

// Cancel remove o lembrete pendente do agendamento.
func (p *ReminderPlanner) Cancel(bookingID string) bool {
	removed := p.Scheduler.Cancel(entity.ReminderKey(bookingID))
	if removed {
		p.Metrics.ReminderPlanned(string(ReminderCancelled))
	}
	return removed
}

func (p *ReminderPlanner) done(plan ReminderPlan) ReminderPlan {
	p.Metrics.ReminderPlanned(string(plan.Outcome))
	return plan
}
