package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/lead-bridge/internal/config"
)

//go:embed templates/*.html
var templatesFS embed.FS

var bookingTemplate = template.Must(template.ParseFS(templatesFS, "templates/booking_confirmation.html"))

// NewEmailSender devolve nil quando o SMTP não está configurado.
func NewEmailSender(cfg config.MailConfig) *EmailSender {
	if !cfg.Enabled() {
		return nil
	}
	return &EmailSender{
		From:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

func (s *EmailSender) SendBookingConfirmation(to, name, when, meetingLink string) error {
	body, err := renderBooking(BookingEmailData{Name: name, When: when, MeetingLink: meetingLink})
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("%s, sua reunião está confirmada 📅", name))
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}
	return nil
}

func renderBooking(data BookingEmailData) (string, error) {
	var body bytes.Buffer
	if err := bookingTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("erro ao processar template: %w", err)
	}
	return body.String(), nil
}
