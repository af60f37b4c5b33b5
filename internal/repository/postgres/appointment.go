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

const appointmentColumns = `
	id, worker_id, client_name, client_phone, date, start_minute,
	duration_min, status, notes, reminder_1h_sent_at, reminder_30m_sent_at,
	created_at, updated_at
`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, worker_id, client_name, client_phone, date, start_minute,
			duration_min, status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.WorkerID,
		appointment.ClientName,
		appointment.ClientPhone,
		appointment.Date,
		appointment.StartMinute,
		appointment.DurationMin,
		appointment.Status,
		appointment.Notes,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET worker_id = $1, client_name = $2, client_phone = $3, date = $4,
			start_minute = $5, duration_min = $6, status = $7, notes = $8,
			reminder_1h_sent_at = $9, reminder_30m_sent_at = $10, updated_at = $11
		WHERE id = $12
	`
	result, err := r.db.ExecContext(ctx, query,
		appointment.WorkerID,
		appointment.ClientName,
		appointment.ClientPhone,
		appointment.Date,
		appointment.StartMinute,
		appointment.DurationMin,
		appointment.Status,
		appointment.Notes,
		appointment.Reminder1hSentAt,
		appointment.Reminder30mSentAt,
		appointment.UpdatedAt,
		appointment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("appointment", nil)
	}
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("appointment", nil)
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.WorkerID != "" {
		query += fmt.Sprintf(" AND worker_id = $%d", argCount)
		args = append(args, filters.WorkerID)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}
	if !filters.StartDate.IsZero() {
		query += fmt.Sprintf(" AND date >= $%d", argCount)
		args = append(args, filters.StartDate)
		argCount++
	}
	if !filters.EndDate.IsZero() {
		query += fmt.Sprintf(" AND date <= $%d", argCount)
		args = append(args, filters.EndDate)
		argCount++
	}

	query += " ORDER BY date ASC, start_minute ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListForWorkerDate(ctx context.Context, workerID model.WorkerID, date time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE worker_id = $1
		AND date = $2
		AND status != 'cancelled'
		ORDER BY start_minute ASC
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, workerID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list worker appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListPendingInRange(ctx context.Context, from, to time.Time) ([]*model.Appointment, error) {
	// start_at is derived from date + start_minute in the business
	// timezone by a trigger the migration installs.
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status IN ('pending', 'confirmed')
		AND start_at >= $1
		AND start_at < $2
		ORDER BY start_at ASC
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending appointments: %w", err)
	}
	return appointments, nil
}

func reminderColumn(kind model.ReminderKind) (string, error) {
	switch kind {
	case model.Reminder1Hour:
		return "reminder_1h_sent_at", nil
	case model.Reminder30Min:
		return "reminder_30m_sent_at", nil
	}
	return "", fmt.Errorf("unknown reminder kind %q", kind)
}

// MarkReminderSent is the compare-and-set guard against the trigger/sweep
// race: only the caller that flips the null column wins.
func (r *appointmentRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, kind model.ReminderKind, at time.Time) (bool, error) {
	column, err := reminderColumn(kind)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		UPDATE appointments
		SET %s = $1, updated_at = $1
		WHERE id = $2 AND %s IS NULL
	`, column, column)

	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder sent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *appointmentRepository) ClearReminderSent(ctx context.Context, id uuid.UUID, kind model.ReminderKind) error {
	column, err := reminderColumn(kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE appointments
		SET %s = NULL, updated_at = NOW()
		WHERE id = $1
	`, column)

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to clear reminder sent: %w", err)
	}
	return nil
}
