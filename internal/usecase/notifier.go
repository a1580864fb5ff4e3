package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xavierca1/lead-bridge/internal/entity"
	"github.com/xavierca1/lead-bridge/internal/infra/integration/zapi"
)

const meetingLinkTitle = "Reunião Zoom"

// ScheduleInfo é o horário e a sala da reunião.
type ScheduleInfo struct {
	StartTime   time.Time
	MeetingLink string
}

type BookingNotice struct {
	Lead     entity.Lead
	Schedule ScheduleInfo
	Tier     entity.Tier
	Phone    string
}

type Notifier struct {
	Messenger        Messenger
	Summarizer       *SalesSummarizer
	Email            EmailService
	SalesPhones      []string
	AdminPhone       string
	PlacementTestURL string
	IntroVideoURL    string
	Location         *time.Location
	Log              *slog.Logger
	Metrics          MetricsRecorder
}

type NotifierConfig struct {
	SalesPhones      []string
	AdminPhone       string
	PlacementTestURL string
	IntroVideoURL    string
	Location         *time.Location
}

func NewNotifier(m Messenger, summarizer *SalesSummarizer, email EmailService, cfg NotifierConfig, log *slog.Logger, metrics MetricsRecorder) *Notifier {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	if summarizer == nil {
		summarizer = NewSalesSummarizer(nil, log)
	}
	return &Notifier{
		Messenger:        m,
		Summarizer:       summarizer,
		Email:            email,
		SalesPhones:      cfg.SalesPhones,
		AdminPhone:       cfg.AdminPhone,
		PlacementTestURL: cfg.PlacementTestURL,
		IntroVideoURL:    cfg.IntroVideoURL,
		Location:         cfg.Location,
		Log:              log,
		Metrics:          metricsOrNoop(metrics),
	}
}

// NotifyBooking envia a confirmação ao lead e o resumo a cada vendedor, em
// sequência. Uma falha não impede os envios seguintes; os erros voltam juntos.
func (n *Notifier) NotifyBooking(ctx context.Context, notice BookingNotice) error {
	var errs []error
	lead := notice.Lead
	local := notice.Schedule.StartTime.In(n.Location)
	formatted := local.Format(ScheduledDateLayout)

	if notice.Phone != "" {
		err := n.sendLink(ctx, zapi.SendLinkInput{
			Phone:           notice.Phone,
			Message:         n.leadMessage(lead.Name, local, notice.Schedule.MeetingLink),
			LinkURL:         notice.Schedule.MeetingLink,
			Title:           meetingLinkTitle,
			LinkDescription: "Reunião agendada para " + formatted,
		}, false)
		if err = n.record("lead", err); err != nil {
			errs = append(errs, fmt.Errorf("lead %s: %w", notice.Phone, err))
		}
	} else {
		n.Log.Warn("lead sem telefone, confirmação por whatsapp não enviada", "identifier", lead.ID)
	}

	if n.Email != nil && lead.Email != "" {
		err := n.Email.SendBookingConfirmation(lead.Email, lead.Name, formatted, notice.Schedule.MeetingLink)
		if err = n.record("email", err); err != nil {
			errs = append(errs, fmt.Errorf("email %s: %w", lead.Email, err))
		}
	}

	if len(n.SalesPhones) > 0 {
		summary := n.Summarizer.Summarize(ctx, lead)
		msg := fmt.Sprintf("%s\n\n"+
			"🏷️ *Nível de Qualificação*: %s\n\n"+
			"📅 *Dados da Reunião*\n"+
			"Data: %s\n"+
			"Email: %s\n"+
			"Telefone: %s\n\n"+
			"Link da reunião:",
			summary, notice.Tier, formatted, orDefault(lead.Email), orDefault(notice.Phone))

		for _, phone := range n.SalesPhones {
			err := n.sendLink(ctx, zapi.SendLinkInput{
				Phone:           phone,
				Message:         msg,
				LinkURL:         notice.Schedule.MeetingLink,
				Title:           meetingLinkTitle,
				LinkDescription: fmt.Sprintf("Reunião com %s - %s", lead.Name, formatted),
			}, true)
			if err = n.record("sales", err); err != nil {
				errs = append(errs, fmt.Errorf("vendedor %s: %w", phone, err))
			}
		}
	}

	if len(errs) > 0 {
		return UpstreamFailure("NOTIFICATION_FAILED", "falha ao enviar notificações", errors.Join(errs...))
	}
	n.Log.Info("notificações de agendamento enviadas", "identifier", lead.ID, "sales", len(n.SalesPhones))
	return nil
}

// SendReminder avisa o lead pouco antes da reunião. Sem telefone não faz nada.
func (n *Notifier) SendReminder(ctx context.Context, lead entity.Lead, schedule ScheduleInfo, phone string) error {
	if phone == "" {
		n.Log.Warn("telefone não informado para o lembrete", "identifier", lead.ID)
		return nil
	}

	local := schedule.StartTime.In(n.Location)
	msg := fmt.Sprintf("Olá, %s, passando para lembrar da nossa reunião hoje. "+
		"Te vejo daqui a pouco! %s às %s\n\n"+
		"Clique no link abaixo para acessar a reunião:",
		lead.Name, local.Format("02-01"), local.Format("15:04"))

	err := n.sendLink(ctx, zapi.SendLinkInput{
		Phone:           phone,
		Message:         msg,
		LinkURL:         schedule.MeetingLink,
		Title:           meetingLinkTitle,
		LinkDescription: "Reunião agendada para " + local.Format(ScheduledDateLayout),
	}, true)
	if err = n.record("reminder", err); err != nil {
		return UpstreamFailure("REMINDER_FAILED", "falha ao enviar lembrete", err)
	}
	return nil
}

// NotifyHighTier alerta o time de vendas sobre um lead Alto vindo do formulário.
func (n *Notifier) NotifyHighTier(ctx context.Context, lead entity.Lead) error {
	if len(n.SalesPhones) == 0 {
		return nil
	}

	msg := n.Summarizer.HighTierAlert(ctx, lead)
	var errs []error
	for _, phone := range n.SalesPhones {
		err := n.sendText(ctx, phone, msg)
		if err = n.record("sales", err); err != nil {
			errs = append(errs, fmt.Errorf("vendedor %s: %w", phone, err))
		}
	}
	if len(errs) > 0 {
		return UpstreamFailure("NOTIFICATION_FAILED", "falha ao alertar o time de vendas", errors.Join(errs...))
	}
	return nil
}

// NotifyCancellation avisa o administrador. Sem ADMIN_PHONE não faz nada.
func (n *Notifier) NotifyCancellation(ctx context.Context, lead entity.Lead, schedule ScheduleInfo) error {
	if n.AdminPhone == "" {
		return nil
	}

	when := notInformed
	if !schedule.StartTime.IsZero() {
		when = schedule.StartTime.In(n.Location).Format(ScheduledDateLayout)
	}
	msg := fmt.Sprintf("❌ *Agendamento cancelado*\n\n"+
		"👤 Nome: %s\n"+
		"📅 Data: %s\n"+
		"Email: %s\n"+
		"Identificador: %s",
		orDefault(lead.Name), when, orDefault(lead.Email), lead.ID)

	err := n.sendText(ctx, n.AdminPhone, msg)
	if err = n.record("admin", err); err != nil {
		return UpstreamFailure("NOTIFICATION_FAILED", "falha ao avisar o administrador", err)
	}
	return nil
}

func (n *Notifier) leadMessage(name string, local time.Time, link string) string {
	return fmt.Sprintf("Olá, %s! 👋\n\n"+
		"✅ Sua reunião está confirmada para *%s* às *%s*.\n\n"+
		"🖥️ Sala da reunião (Zoom):\n"+
		"👉 %s\n\n"+
		"Antes disso, que tal fazer nosso teste de nivelamento?\n"+
		"👉 %s\n"+
		"Faça o teste sem pressa, no seu tempo, ok? 😉\n\n"+
		"Aproveite e assista a este vídeo para entender por que nosso método é diferenciado!\n"+
		"👉 %s\n",
		name, local.Format("02/01"), local.Format("15:04"), link, n.PlacementTestURL, n.IntroVideoURL)
}

// sendLink usa send-link quando há link; appendLink repete a URL no corpo.
func (n *Notifier) sendLink(ctx context.Context, in zapi.SendLinkInput, appendLink bool) error {
	if n.Messenger == nil {
		return &zapi.SendError{Cause: zapi.CauseNotConfigured}
	}
	if in.LinkURL == "" {
		return n.Messenger.SendText(ctx, in.Phone, in.Message)
	}
	if appendLink {
		in.Message = in.Message + "\n" + in.LinkURL
	}
	return n.Messenger.SendLink(ctx, in)
}

func (n *Notifier) sendText(ctx context.Context, phone, msg string) error {
	if n.Messenger == nil {
		return &zapi.SendError{Cause: zapi.CauseNotConfigured}
	}
	return n.Messenger.SendText(ctx, phone, msg)
}

// record conta o envio e engole "não configurado": sem Z-API o envio é pulado.
func (n *Notifier) record(audience string, err error) error {
	var sendErr *zapi.SendError
	if errors.As(err, &sendErr) && sendErr.Cause == zapi.CauseNotConfigured {
		n.Log.Warn("z-api não configurada, mensagem não enviada", "audience", audience)
		n.Metrics.NotificationSent(audience, err)
		return nil
	}
	n.Metrics.NotificationSent(audience, err)
	if err != nil {
		service := "zapi"
		if audience == "email" {
			service = "smtp"
		}
		n.Metrics.IntegrationError(service)
		n.Log.Error("falha ao enviar notificação", "audience", audience, "error", err)
	}
	return err
}
