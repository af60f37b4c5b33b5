// Package reminder derives the two client reminders from every
// appointment and delivers each at most once. Delivery has two redundant
// drivers, the externally scheduled one-shot trigger and the periodic
// sweep, both funneling into the same idempotent trigger evaluation.
package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/studio-api/internal/model"
	"github.com/jwalitptl/studio-api/internal/repository"
	"github.com/jwalitptl/studio-api/internal/timewindow"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
	"github.com/jwalitptl/studio-api/pkg/logger"
	"github.com/jwalitptl/studio-api/pkg/metrics"
	"github.com/jwalitptl/studio-api/pkg/scheduler"
)

// Trigger sources, used for observability only; evaluation is identical.
const (
	SourceScheduler = "scheduler"
	SourceSweep     = "sweep"
)

// Dispatcher fans a fired reminder out to the worker's destinations.
type Dispatcher interface {
	DispatchReminder(ctx context.Context, appointment *model.Appointment, kind model.ReminderKind) error
}

type Config struct {
	Tolerance       time.Duration
	Horizon         time.Duration
	CallbackBaseURL string
	SigningSecret   string
}

type Service struct {
	appointments repository.AppointmentRepository
	outbox       repository.OutboxRepository
	scheduler    scheduler.Scheduler
	dispatcher   Dispatcher
	cfg          Config
	loc          *time.Location
	metrics      *metrics.Metrics
	logger       *logger.Logger
	now          func() time.Time
}

func NewService(
	appointments repository.AppointmentRepository,
	outbox repository.OutboxRepository,
	sched scheduler.Scheduler,
	dispatcher Dispatcher,
	cfg Config,
	loc *time.Location,
	m *metrics.Metrics,
	logger *logger.Logger,
) *Service {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 7 * time.Minute
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = 2 * time.Hour
	}
	return &Service{
		appointments: appointments,
		outbox:       outbox,
		scheduler:    sched,
		dispatcher:   dispatcher,
		cfg:          cfg,
		loc:          loc,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// FireAt returns the absolute instant a reminder kind should fire for an
// appointment.
func (s *Service) FireAt(appointment *model.Appointment, kind model.ReminderKind) time.Time {
	return appointment.StartAt(s.loc).Add(-kind.Offset())
}

func jobKey(id uuid.UUID, kind model.ReminderKind) string {
	return fmt.Sprintf("reminder-%s-%s", id, kind)
}

// ScheduleReminders registers one-shot triggers for both reminder kinds.
// Registration is keyed per appointment and kind, so calling it again
// after a reschedule replaces the old registrations rather than stacking
// them. Fire times already in the past are left to the sweep.
func (s *Service) ScheduleReminders(ctx context.Context, appointment *model.Appointment) (*model.ReminderSchedule, error) {
	schedule := &model.ReminderSchedule{
		FireAt1Hour: s.FireAt(appointment, model.Reminder1Hour),
		FireAt30Min: s.FireAt(appointment, model.Reminder30Min),
	}

	var firstErr error
	for _, kind := range model.AllReminderKinds {
		fireAt := s.FireAt(appointment, kind)
		if !fireAt.After(s.now()) {
			continue
		}

		handle, err := s.registerTrigger(ctx, appointment, kind, fireAt)
		if err != nil {
			s.countSchedulerCall("register", "error")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.countSchedulerCall("register", "ok")
		s.logger.Debug("registered reminder trigger",
			"appointment_id", appointment.ID.String(),
			"kind", string(kind),
			"job", handle,
		)

		switch kind {
		case model.Reminder1Hour:
			schedule.Registered1h = true
		case model.Reminder30Min:
			schedule.Registered30 = true
		}
	}
	return schedule, firstErr
}

func (s *Service) registerTrigger(ctx context.Context, appointment *model.Appointment, kind model.ReminderKind, fireAt time.Time) (string, error) {
	token, err := scheduler.MintTriggerToken(s.cfg.SigningSecret, appointment.ID.String(), string(kind), fireAt, s.cfg.Tolerance)
	if err != nil {
		return "", fmt.Errorf("failed to mint trigger token: %w", err)
	}

	body, err := json.Marshal(model.TriggerReminderRequest{
		AppointmentID: appointment.ID.String(),
		Kind:          string(kind),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal trigger body: %w", err)
	}

	return s.scheduler.Register(ctx, scheduler.Job{
		Key:         jobKey(appointment.ID, kind),
		RunAt:       fireAt,
		CallbackURL: s.cfg.CallbackBaseURL + "/api/v1/reminders/trigger",
		Headers:     map[string]string{"Authorization": "Bearer " + token},
		Body:        body,
	})
}

// CancelReminders drops both trigger registrations. Failures are
// tolerable; a stale trigger is neutralized at evaluation time.
func (s *Service) CancelReminders(ctx context.Context, appointment *model.Appointment) error {
	var firstErr error
	for _, kind := range model.AllReminderKinds {
		if err := s.scheduler.Cancel(ctx, jobKey(appointment.ID, kind)); err != nil {
			s.countSchedulerCall("cancel", "error")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.countSchedulerCall("cancel", "ok")
	}
	return firstErr
}

// OnReminderTrigger is the single evaluation path for both delivery
// drivers. It re-reads the appointment and decides: skip for terminal
// status, skip when this kind was already sent, skip outside the
// tolerance window, otherwise claim-and-dispatch. The sent marker is
// claimed with a conditional update before dispatching, so concurrent
// triggers for the same reminder resolve to exactly one send; a failed
// dispatch releases the claim for the sweep to retry.
func (s *Service) OnReminderTrigger(ctx context.Context, appointmentID uuid.UUID, kind model.ReminderKind, source string) (model.TriggerOutcome, error) {
	outcome, err := s.evaluateTrigger(ctx, appointmentID, kind)
	if err == nil || apperrors.IsCode(err, apperrors.ErrTransient) {
		s.countTrigger(kind, source, outcome)
	}
	return outcome, err
}

func (s *Service) evaluateTrigger(ctx context.Context, appointmentID uuid.UUID, kind model.ReminderKind) (model.TriggerOutcome, error) {
	appointment, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return "", err
	}

	if appointment.Status.Terminal() {
		return model.OutcomeSkipTerminalStatus, nil
	}
	if kind.SentAt(appointment) != nil {
		return model.OutcomeSkipAlreadySent, nil
	}

	now := s.now()
	fireAt := s.FireAt(appointment, kind)
	if !timewindow.WithinWindow(now, fireAt, s.cfg.Tolerance) {
		return model.OutcomeSkipOutOfWindow, nil
	}

	claimed, err := s.appointments.MarkReminderSent(ctx, appointmentID, kind, now)
	if err != nil {
		return "", fmt.Errorf("failed to claim reminder: %w", err)
	}
	if !claimed {
		return model.OutcomeSkipAlreadySent, nil
	}

	if err := s.dispatcher.DispatchReminder(ctx, appointment, kind); err != nil {
		// Release the claim so the sweep retries within the window.
		if clearErr := s.appointments.ClearReminderSent(ctx, appointmentID, kind); clearErr != nil {
			s.logger.Error(clearErr, "failed to release reminder claim",
				"appointment_id", appointmentID.String(),
				"kind", string(kind),
			)
		}
		return model.OutcomeDispatchFailed, apperrors.NewTransient("reminder dispatch failed", err)
	}

	s.emitFiredEvent(ctx, appointment, kind, now)
	s.logger.Info("reminder fired",
		"appointment_id", appointmentID.String(),
		"kind", string(kind),
	)
	return model.OutcomeFired, nil
}

// SweepStats summarizes one horizon scan.
type SweepStats struct {
	Scanned int `json:"scanned"`
	Fired   int `json:"fired"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Sweep scans appointments starting within the horizon and evaluates
// every reminder whose claim is still open. It is the safety net for
// missed or failed one-shot triggers; windowing inside the evaluation
// keeps it from firing early.
func (s *Service) Sweep(ctx context.Context) (SweepStats, error) {
	started := s.now()
	var stats SweepStats

	from := started.Add(-s.cfg.Tolerance)
	to := started.Add(s.cfg.Horizon)
	appointments, err := s.appointments.ListPendingInRange(ctx, from, to)
	if err != nil {
		return stats, fmt.Errorf("failed to list sweep range: %w", err)
	}
	stats.Scanned = len(appointments)

	for _, appointment := range appointments {
		for _, kind := range model.AllReminderKinds {
			if kind.SentAt(appointment) != nil {
				continue
			}
			outcome, err := s.OnReminderTrigger(ctx, appointment.ID, kind, SourceSweep)
			switch {
			case err != nil:
				stats.Failed++
				s.logger.Error(err, "sweep trigger failed",
					"appointment_id", appointment.ID.String(),
					"kind", string(kind),
				)
			case outcome == model.OutcomeFired:
				stats.Fired++
			default:
				stats.Skipped++
			}
		}
	}

	if s.metrics != nil {
		s.metrics.SweepLatency.Observe(s.now().Sub(started).Seconds())
		s.metrics.SweepAppointments.Set(float64(stats.Scanned))
	}
	s.logger.Debug("sweep finished",
		"scanned", stats.Scanned,
		"fired", stats.Fired,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	return stats, nil
}

func (s *Service) emitFiredEvent(ctx context.Context, appointment *model.Appointment, kind model.ReminderKind, at time.Time) {
	payload, err := json.Marshal(map[string]interface{}{
		"appointment_id": appointment.ID,
		"worker_id":      appointment.WorkerID,
		"kind":           kind,
		"fired_at":       at,
	})
	if err != nil {
		s.logger.Error(err, "failed to marshal reminder event")
		return
	}
	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: model.EventReminderFired,
		Payload:   payload,
		Status:    model.OutboxStatusPending,
		CreatedAt: at,
	}
	if err := s.outbox.Create(ctx, event); err != nil {
		s.logger.Error(err, "failed to write outbox event", "event_type", model.EventReminderFired)
	}
}

func (s *Service) countTrigger(kind model.ReminderKind, source string, outcome model.TriggerOutcome) {
	if s.metrics == nil {
		return
	}
	s.metrics.ReminderTriggers.WithLabelValues(string(kind), source, string(outcome)).Inc()
}

func (s *Service) countSchedulerCall(operation, status string) {
	if s.metrics == nil {
		return
	}
	s.metrics.SchedulerCalls.WithLabelValues(operation, status).Inc()
}
