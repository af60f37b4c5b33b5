package model

import (
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusArrived   AppointmentStatus = "arrived"
	AppointmentStatusDone      AppointmentStatus = "done"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether no reminder should ever fire for this status.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusDone || s == AppointmentStatusCancelled
}

// Valid status transitions. Cancellation is allowed from any non-terminal
// status.
var statusOrder = map[AppointmentStatus]AppointmentStatus{
	AppointmentStatusPending:   AppointmentStatusConfirmed,
	AppointmentStatusConfirmed: AppointmentStatusArrived,
	AppointmentStatusArrived:   AppointmentStatusDone,
}

func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == AppointmentStatusCancelled {
		return true
	}
	return statusOrder[s] == next
}

const DefaultDurationMinutes = 60

// Appointment occupies [StartMinute, StartMinute+DurationMin) on Date for
// its worker. No two appointments for the same worker may overlap on the
// same date.
type Appointment struct {
	Base
	WorkerID    WorkerID          `db:"worker_id" json:"worker_id"`
	ClientName  string            `db:"client_name" json:"client_name"`
	ClientPhone string            `db:"client_phone" json:"client_phone,omitempty"`
	Date        time.Time         `db:"date" json:"date"`
	StartMinute int               `db:"start_minute" json:"start_minute"`
	DurationMin int               `db:"duration_min" json:"duration_min"`
	Status      AppointmentStatus `db:"status" json:"status"`
	Notes       string            `db:"notes" json:"notes,omitempty"`

	Reminder1hSentAt  *time.Time `db:"reminder_1h_sent_at" json:"reminder_1h_sent_at,omitempty"`
	Reminder30mSentAt *time.Time `db:"reminder_30m_sent_at" json:"reminder_30m_sent_at,omitempty"`
}

// StartAt returns the absolute start instant in the business timezone.
func (a *Appointment) StartAt(loc *time.Location) time.Time {
	d := a.Date
	return time.Date(d.Year(), d.Month(), d.Day(), 0, a.StartMinute, 0, 0, loc)
}

// EndMinute returns the exclusive end of the occupied interval.
func (a *Appointment) EndMinute() int {
	return a.StartMinute + a.DurationMin
}

type CreateAppointmentRequest struct {
	WorkerID    string `json:"worker_id" validate:"required"`
	ClientName  string `json:"client_name" validate:"required,max=200"`
	ClientPhone string `json:"client_phone" validate:"max=32"`
	Date        string `json:"date" validate:"required"`
	Time        string `json:"time" validate:"required"`
	DurationMin int    `json:"duration_min" validate:"omitempty,gt=0,max=480"`
	Notes       string `json:"notes" validate:"max=1000"`
}

type RescheduleAppointmentRequest struct {
	Date        string `json:"date" validate:"required"`
	Time        string `json:"time" validate:"required"`
	DurationMin int    `json:"duration_min" validate:"omitempty,gt=0,max=480"`
}

type UpdateAppointmentStatusRequest struct {
	Status AppointmentStatus `json:"status" validate:"required,oneof=pending confirmed arrived done cancelled"`
}

type AppointmentFilters struct {
	WorkerID  WorkerID
	Status    AppointmentStatus
	StartDate time.Time
	EndDate   time.Time
}
