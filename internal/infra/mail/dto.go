package mail

import "gopkg.in/gomail.v2"

type BookingEmailData struct {
	Name        string
	When        string
	MeetingLink string
}

// dialer é o pedaço do gomail.Dialer que o sender usa.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailSender struct {
	From   string
	dialer dialer
}
