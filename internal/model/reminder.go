package model

import (
	"fmt"
	"time"
)

// ReminderKind identifies one of the two reminders derived from every
// appointment.
type ReminderKind string

const (
	Reminder1Hour ReminderKind = "1hour"
	Reminder30Min ReminderKind = "30min"
)

var AllReminderKinds = []ReminderKind{Reminder1Hour, Reminder30Min}

func ParseReminderKind(s string) (ReminderKind, error) {
	switch ReminderKind(s) {
	case Reminder1Hour:
		return Reminder1Hour, nil
	case Reminder30Min:
		return Reminder30Min, nil
	}
	return "", fmt.Errorf("unknown reminder kind %q", s)
}

// Offset is how long before the appointment start the reminder fires.
func (k ReminderKind) Offset() time.Duration {
	switch k {
	case Reminder1Hour:
		return time.Hour
	case Reminder30Min:
		return 30 * time.Minute
	}
	return 0
}

// SentAt returns the appointment's sent marker for this kind.
func (k ReminderKind) SentAt(a *Appointment) *time.Time {
	switch k {
	case Reminder1Hour:
		return a.Reminder1hSentAt
	case Reminder30Min:
		return a.Reminder30mSentAt
	}
	return nil
}

// TriggerOutcome is the result of evaluating a reminder trigger.
type TriggerOutcome string

const (
	OutcomeFired              TriggerOutcome = "fired"
	OutcomeSkipAlreadySent    TriggerOutcome = "skip_already_sent"
	OutcomeSkipOutOfWindow    TriggerOutcome = "skip_out_of_window"
	OutcomeSkipTerminalStatus TriggerOutcome = "skip_terminal_status"
	OutcomeDispatchFailed     TriggerOutcome = "dispatch_failed"
)

// ReminderSchedule reports the fire instants registered for an appointment.
type ReminderSchedule struct {
	FireAt1Hour  time.Time `json:"fire_at_1hour"`
	FireAt30Min  time.Time `json:"fire_at_30min"`
	Registered1h bool      `json:"registered_1hour"`
	Registered30 bool      `json:"registered_30min"`
}

type TriggerReminderRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	Kind          string `json:"kind" validate:"required,oneof=1hour 30min"`
}
