package entity

import (
	"strings"
	"time"
)

// Lead é o evento recebido (agendamento do Cal.com ou formulário).
// Não é persistido localmente: vira uma página no Notion.
type Lead struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	StartTime    time.Time `json:"start_time"`
	MeetingLink  string    `json:"meeting_link,omitempty"`
	Profession   string    `json:"profession,omitempty"`
	Objective    string    `json:"objective,omitempty"`
	History      string    `json:"history,omitempty"`
	Motivation   string    `json:"motivation,omitempty"`
	Age          string    `json:"age,omitempty"`
	Referral     string    `json:"referral,omitempty"`
	Availability string    `json:"availability,omitempty"`
}

// Merge devolve uma cópia com os campos vazios preenchidos por other.
// Campos já informados no evento nunca são sobrescritos.
func (l Lead) Merge(other Lead) Lead {
	out := l
	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = src
		}
	}
	fill(&out.ID, other.ID)
	fill(&out.Name, other.Name)
	fill(&out.Email, other.Email)
	fill(&out.Phone, other.Phone)
	fill(&out.MeetingLink, other.MeetingLink)
	fill(&out.Profession, other.Profession)
	fill(&out.Objective, other.Objective)
	fill(&out.History, other.History)
	fill(&out.Motivation, other.Motivation)
	fill(&out.Age, other.Age)
	fill(&out.Referral, other.Referral)
	fill(&out.Availability, other.Availability)
	if out.StartTime.IsZero() {
		out.StartTime = other.StartTime
	}
	return out
}

// Status gravado na página do Notion.
const (
	StatusCaptured  = "Novo lead"
	StatusScheduled = "Agendado reunião"
	StatusCancelled = "Cancelado"
)

// RecordRef aponta para a página no Notion.
type RecordRef struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

// ReminderKey é a chave do lembrete de um agendamento. Remarcações caem na mesma chave.
func ReminderKey(bookingID string) string {
	return "reminder_" + bookingID
}
