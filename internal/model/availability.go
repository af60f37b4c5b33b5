package model

import (
	"time"
)

// BusinessHours defines a worker's open day. Minutes are offsets from
// midnight; the lunch interval must lie within [OpenMinute, CloseMinute).
type BusinessHours struct {
	Base
	WorkerID         WorkerID `db:"worker_id" json:"worker_id"`
	OpenMinute       int      `db:"open_minute" json:"open_minute"`
	CloseMinute      int      `db:"close_minute" json:"close_minute"`
	LunchStartMinute int      `db:"lunch_start_minute" json:"lunch_start_minute"`
	LunchEndMinute   int      `db:"lunch_end_minute" json:"lunch_end_minute"`
}

// WeeklyDayOff closes one weekday entirely for a worker.
type WeeklyDayOff struct {
	Base
	WorkerID WorkerID     `db:"worker_id" json:"worker_id"`
	Weekday  time.Weekday `db:"weekday" json:"weekday"`
}

// UnavailableDate closes a single calendar day.
type UnavailableDate struct {
	Base
	WorkerID WorkerID  `db:"worker_id" json:"worker_id"`
	Date     time.Time `db:"date" json:"date"`
	Reason   string    `db:"reason" json:"reason,omitempty"`
}

// UnavailableTime closes [StartMinute, EndMinute) on Date within an
// otherwise open day.
type UnavailableTime struct {
	Base
	WorkerID    WorkerID  `db:"worker_id" json:"worker_id"`
	Date        time.Time `db:"date" json:"date"`
	StartMinute int       `db:"start_minute" json:"start_minute"`
	EndMinute   int       `db:"end_minute" json:"end_minute"`
	Reason      string    `db:"reason" json:"reason,omitempty"`
}

// AvailabilityRules is a worker's full calendar-closure state for one date
// lookup: everything the engine needs besides existing appointments.
type AvailabilityRules struct {
	Hours            *BusinessHours
	DaysOff          []WeeklyDayOff
	UnavailableDates []UnavailableDate
	UnavailableTimes []UnavailableTime
}

type UpsertBusinessHoursRequest struct {
	Open       string `json:"open" validate:"required"`
	Close      string `json:"close" validate:"required"`
	LunchStart string `json:"lunch_start" validate:"required"`
	LunchEnd   string `json:"lunch_end" validate:"required"`
}

type CreateDayOffRequest struct {
	Weekday string `json:"weekday" validate:"required,oneof=Sunday Monday Tuesday Wednesday Thursday Friday Saturday"`
}

type CreateUnavailableDateRequest struct {
	Date   string `json:"date" validate:"required"`
	Reason string `json:"reason" validate:"max=200"`
}

type CreateUnavailableTimeRequest struct {
	Date   string `json:"date" validate:"required"`
	Start  string `json:"start" validate:"required"`
	End    string `json:"end" validate:"required"`
	Reason string `json:"reason" validate:"max=200"`
}
