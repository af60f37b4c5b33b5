package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/studio-api/internal/model"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
)

func (r *availabilityRepository) UpsertBusinessHours(ctx context.Context, hours *model.BusinessHours) error {
	query := `
		INSERT INTO business_hours (
			id, worker_id, open_minute, close_minute,
			lunch_start_minute, lunch_end_minute, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (worker_id) DO UPDATE
		SET open_minute = EXCLUDED.open_minute,
			close_minute = EXCLUDED.close_minute,
			lunch_start_minute = EXCLUDED.lunch_start_minute,
			lunch_end_minute = EXCLUDED.lunch_end_minute,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		hours.ID,
		hours.WorkerID,
		hours.OpenMinute,
		hours.CloseMinute,
		hours.LunchStartMinute,
		hours.LunchEndMinute,
		hours.CreatedAt,
		hours.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert business hours: %w", err)
	}
	return nil
}

func (r *availabilityRepository) GetBusinessHours(ctx context.Context, workerID model.WorkerID) (*model.BusinessHours, error) {
	query := `
		SELECT id, worker_id, open_minute, close_minute,
			   lunch_start_minute, lunch_end_minute, created_at, updated_at
		FROM business_hours
		WHERE worker_id = $1
	`
	var hours model.BusinessHours
	err := r.db.GetContext(ctx, &hours, query, workerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("business hours", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business hours: %w", err)
	}
	return &hours, nil
}

func (r *availabilityRepository) CreateDayOff(ctx context.Context, dayOff *model.WeeklyDayOff) error {
	query := `
		INSERT INTO weekly_days_off (id, worker_id, weekday, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (worker_id, weekday) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		dayOff.ID, dayOff.WorkerID, dayOff.Weekday, dayOff.CreatedAt, dayOff.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create day off: %w", err)
	}
	return nil
}

func (r *availabilityRepository) DeleteDayOff(ctx context.Context, workerID model.WorkerID, id uuid.UUID) error {
	return r.deleteOwned(ctx, "weekly_days_off", "day off", workerID, id)
}

func (r *availabilityRepository) ListDaysOff(ctx context.Context, workerID model.WorkerID) ([]model.WeeklyDayOff, error) {
	query := `
		SELECT id, worker_id, weekday, created_at, updated_at
		FROM weekly_days_off
		WHERE worker_id = $1
		ORDER BY weekday ASC
	`
	var daysOff []model.WeeklyDayOff
	if err := r.db.SelectContext(ctx, &daysOff, query, workerID); err != nil {
		return nil, fmt.Errorf("failed to list days off: %w", err)
	}
	return daysOff, nil
}

func (r *availabilityRepository) CreateUnavailableDate(ctx context.Context, d *model.UnavailableDate) error {
	query := `
		INSERT INTO unavailable_dates (id, worker_id, date, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (worker_id, date) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.WorkerID, d.Date, d.Reason, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create unavailable date: %w", err)
	}
	return nil
}

func (r *availabilityRepository) DeleteUnavailableDate(ctx context.Context, workerID model.WorkerID, id uuid.UUID) error {
	return r.deleteOwned(ctx, "unavailable_dates", "unavailable date", workerID, id)
}

func (r *availabilityRepository) ListUnavailableDates(ctx context.Context, workerID model.WorkerID) ([]model.UnavailableDate, error) {
	query := `
		SELECT id, worker_id, date, reason, created_at, updated_at
		FROM unavailable_dates
		WHERE worker_id = $1
		ORDER BY date ASC
	`
	var dates []model.UnavailableDate
	if err := r.db.SelectContext(ctx, &dates, query, workerID); err != nil {
		return nil, fmt.Errorf("failed to list unavailable dates: %w", err)
	}
	return dates, nil
}

func (r *availabilityRepository) CreateUnavailableTime(ctx context.Context, t *model.UnavailableTime) error {
	query := `
		INSERT INTO unavailable_times (
			id, worker_id, date, start_minute, end_minute, reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.WorkerID, t.Date, t.StartMinute, t.EndMinute, t.Reason, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create unavailable time: %w", err)
	}
	return nil
}

func (r *availabilityRepository) DeleteUnavailableTime(ctx context.Context, workerID model.WorkerID, id uuid.UUID) error {
	return r.deleteOwned(ctx, "unavailable_times", "unavailable time", workerID, id)
}

func (r *availabilityRepository) ListUnavailableTimes(ctx context.Context, workerID model.WorkerID, date time.Time) ([]model.UnavailableTime, error) {
	query := `
		SELECT id, worker_id, date, start_minute, end_minute, reason, created_at, updated_at
		FROM unavailable_times
		WHERE worker_id = $1 AND date = $2
		ORDER BY start_minute ASC
	`
	var times []model.UnavailableTime
	if err := r.db.SelectContext(ctx, &times, query, workerID, date); err != nil {
		return nil, fmt.Errorf("failed to list unavailable times: %w", err)
	}
	return times, nil
}

// deleteOwned removes a rule row only when it belongs to the worker. A
// mismatched worker reads as not found, same as a missing id.
func (r *availabilityRepository) deleteOwned(ctx context.Context, table, resource string, workerID model.WorkerID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = $1 AND worker_id = $2", table), id, workerID)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", resource, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound(resource, nil)
	}
	return nil
}
