// Package booking owns the appointment lifecycle: create, reschedule,
// status transitions. Every mutation funnels through the availability
// engine first and emits an outbox event after.
package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/studio-api/internal/model"
	"github.com/jwalitptl/studio-api/internal/repository"
	"github.com/jwalitptl/studio-api/internal/service/availability"
	"github.com/jwalitptl/studio-api/internal/timewindow"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
	"github.com/jwalitptl/studio-api/pkg/logger"
	"github.com/jwalitptl/studio-api/pkg/validator"
)

// ReminderScheduler registers and cancels the one-shot reminder triggers
// for an appointment. Scheduling is best effort; the sweep covers gaps.
type ReminderScheduler interface {
	ScheduleReminders(ctx context.Context, appointment *model.Appointment) (*model.ReminderSchedule, error)
	CancelReminders(ctx context.Context, appointment *model.Appointment) error
}

type Service struct {
	appointments repository.AppointmentRepository
	outbox       repository.OutboxRepository
	availability *availability.Service
	reminders    ReminderScheduler
	registry     *model.WorkerRegistry
	validator    *validator.Validator
	logger       *logger.Logger
}

func NewService(
	appointments repository.AppointmentRepository,
	outbox repository.OutboxRepository,
	avail *availability.Service,
	reminders ReminderScheduler,
	registry *model.WorkerRegistry,
	v *validator.Validator,
	logger *logger.Logger,
) *Service {
	return &Service{
		appointments: appointments,
		outbox:       outbox,
		availability: avail,
		reminders:    reminders,
		registry:     registry,
		validator:    v,
		logger:       logger,
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	workerID := model.WorkerID(req.WorkerID)
	if !s.registry.Contains(workerID) {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown worker %q", req.WorkerID))
	}

	date, err := timewindow.ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.NewValidation("invalid date: " + err.Error())
	}
	start, err := timewindow.ParseClock(req.Time)
	if err != nil {
		return nil, apperrors.NewValidation("invalid time: " + err.Error())
	}
	duration := req.DurationMin
	if duration == 0 {
		duration = model.DefaultDurationMinutes
	}

	ok, err := s.availability.IsSlotAvailable(ctx, workerID, date, int(start), duration)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewConflict("slot is not available")
	}

	appointment := &model.Appointment{
		WorkerID:    workerID,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		Date:        date,
		StartMinute: int(start),
		DurationMin: duration,
		Status:      model.AppointmentStatusPending,
		Notes:       req.Notes,
	}
	if err := s.appointments.Create(ctx, appointment); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.emitEvent(ctx, model.EventAppointmentCreated, appointment)
	s.scheduleReminders(ctx, appointment)

	s.logger.Info("appointment created",
		"id", appointment.ID.String(),
		"worker_id", workerID.String(),
		"date", req.Date,
		"time", req.Time,
	)
	return appointment, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.appointments.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if filters != nil && filters.WorkerID != "" && !s.registry.Contains(filters.WorkerID) {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown worker %q", filters.WorkerID))
	}
	return s.appointments.List(ctx, filters)
}

// Reschedule moves an appointment to a new slot. Reminder sent markers are
// reset because they describe the old time.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleAppointmentRequest) (*model.Appointment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	appointment, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status.Terminal() {
		return nil, apperrors.NewConflict(fmt.Sprintf("cannot reschedule a %s appointment", appointment.Status))
	}

	date, err := timewindow.ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.NewValidation("invalid date: " + err.Error())
	}
	start, err := timewindow.ParseClock(req.Time)
	if err != nil {
		return nil, apperrors.NewValidation("invalid time: " + err.Error())
	}
	duration := req.DurationMin
	if duration == 0 {
		duration = appointment.DurationMin
	}

	ok, err := s.availability.IsSlotAvailableExcluding(ctx, appointment.WorkerID, date, int(start), duration, appointment.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewConflict("slot is not available")
	}

	appointment.Date = date
	appointment.StartMinute = int(start)
	appointment.DurationMin = duration
	appointment.Reminder1hSentAt = nil
	appointment.Reminder30mSentAt = nil
	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, fmt.Errorf("failed to reschedule appointment: %w", err)
	}

	s.emitEvent(ctx, model.EventAppointmentUpdated, appointment)
	s.scheduleReminders(ctx, appointment)

	s.logger.Info("appointment rescheduled",
		"id", appointment.ID.String(),
		"date", req.Date,
		"time", req.Time,
	)
	return appointment, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentStatusRequest) (*model.Appointment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	appointment, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appointment.Status.CanTransitionTo(req.Status) {
		return nil, apperrors.NewConflict(fmt.Sprintf("cannot transition from %s to %s", appointment.Status, req.Status))
	}

	appointment.Status = req.Status
	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}

	if req.Status == model.AppointmentStatusCancelled {
		s.emitEvent(ctx, model.EventAppointmentCancelled, appointment)
		if err := s.reminders.CancelReminders(ctx, appointment); err != nil {
			// Stale triggers are neutralized at fire time, so a failed
			// cancel is only worth a warning.
			s.logger.Warn("failed to cancel reminders", "id", appointment.ID.String(), "error", err.Error())
		}
	} else {
		s.emitEvent(ctx, model.EventAppointmentUpdated, appointment)
	}

	s.logger.Info("appointment status updated", "id", appointment.ID.String(), "status", string(req.Status))
	return appointment, nil
}

// Cancel is sugar for the cancelled status transition.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.UpdateStatus(ctx, id, &model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusCancelled})
}

// Delete hard-deletes a row. Kept for operator cleanup; normal flows
// cancel instead.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	appointment, err := s.appointments.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	if err := s.reminders.CancelReminders(ctx, appointment); err != nil {
		s.logger.Warn("failed to cancel reminders", "id", id.String(), "error", err.Error())
	}
	return nil
}

// scheduleReminders is best effort: a scheduler outage must not block the
// booking, the sweep will pick up anything missed.
func (s *Service) scheduleReminders(ctx context.Context, appointment *model.Appointment) {
	if _, err := s.reminders.ScheduleReminders(ctx, appointment); err != nil {
		s.logger.Warn("failed to schedule reminders",
			"id", appointment.ID.String(),
			"error", err.Error(),
		)
	}
}

func (s *Service) emitEvent(ctx context.Context, eventType string, appointment *model.Appointment) {
	payload, err := json.Marshal(appointment)
	if err != nil {
		s.logger.Error(err, "failed to marshal outbox payload", "id", appointment.ID.String())
		return
	}
	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
		Status:    model.OutboxStatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.outbox.Create(ctx, event); err != nil {
		s.logger.Error(err, "failed to write outbox event", "id", appointment.ID.String(), "event_type", eventType)
	}
}
