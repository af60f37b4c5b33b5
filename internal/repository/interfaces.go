package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/studio-api/internal/model"
)

// All repository interfaces in one file
type (
	// AppointmentRepository is the row store behind booking and reminders.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)

		// ListForWorkerDate returns non-cancelled appointments for the
		// overlap check, ordered by start minute.
		ListForWorkerDate(ctx context.Context, workerID model.WorkerID, date time.Time) ([]*model.Appointment, error)

		// ListPendingInRange returns non-terminal appointments whose start
		// instant falls inside [from, to); the sweep's horizon query.
		ListPendingInRange(ctx context.Context, from, to time.Time) ([]*model.Appointment, error)

		// MarkReminderSent sets the kind's sent_at only if it is still
		// null. Returns false when another trigger already claimed it.
		MarkReminderSent(ctx context.Context, id uuid.UUID, kind model.ReminderKind, at time.Time) (bool, error)

		// ClearReminderSent releases a claim after a failed dispatch so
		// the sweep can retry.
		ClearReminderSent(ctx context.Context, id uuid.UUID, kind model.ReminderKind) error
	}

	AvailabilityRepository interface {
		UpsertBusinessHours(ctx context.Context, hours *model.BusinessHours) error
		GetBusinessHours(ctx context.Context, workerID model.WorkerID) (*model.BusinessHours, error)

		// Deletes are scoped to the owning worker so one worker's rule
		// cannot be removed through another worker's URL.
		CreateDayOff(ctx context.Context, dayOff *model.WeeklyDayOff) error
		DeleteDayOff(ctx context.Context, workerID model.WorkerID, id uuid.UUID) error
		ListDaysOff(ctx context.Context, workerID model.WorkerID) ([]model.WeeklyDayOff, error)

		CreateUnavailableDate(ctx context.Context, d *model.UnavailableDate) error
		DeleteUnavailableDate(ctx context.Context, workerID model.WorkerID, id uuid.UUID) error
		ListUnavailableDates(ctx context.Context, workerID model.WorkerID) ([]model.UnavailableDate, error)

		CreateUnavailableTime(ctx context.Context, t *model.UnavailableTime) error
		DeleteUnavailableTime(ctx context.Context, workerID model.WorkerID, id uuid.UUID) error
		ListUnavailableTimes(ctx context.Context, workerID model.WorkerID, date time.Time) ([]model.UnavailableTime, error)
	}

	DestinationRepository interface {
		Create(ctx context.Context, destination *model.PushDestination) error
		Delete(ctx context.Context, id uuid.UUID) error
		ListForWorker(ctx context.Context, workerID model.WorkerID) ([]*model.PushDestination, error)
	}

	ExpenseRepository interface {
		Create(ctx context.Context, expense *model.Expense) error
		Get(ctx context.Context, id uuid.UUID) (*model.Expense, error)
		Update(ctx context.Context, expense *model.Expense) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.ExpenseFilters) ([]*model.Expense, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
