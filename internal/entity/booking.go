package entity

// TriggerEvent é o tipo de evento enviado pelo Cal.com.
type TriggerEvent string

const (
	BookingCreated     TriggerEvent = "BOOKING_CREATED"
	BookingRescheduled TriggerEvent = "BOOKING_RESCHEDULED"
	BookingCancelled   TriggerEvent = "BOOKING_CANCELLED"
)

func (e TriggerEvent) IsKnown() bool {
	switch e {
	case BookingCreated, BookingRescheduled, BookingCancelled:
		return true
	}
	return false
}

// SchedulesReminder indica se o evento cria/atualiza a reunião.
func (e TriggerEvent) SchedulesReminder() bool {
	return e == BookingCreated || e == BookingRescheduled
}
