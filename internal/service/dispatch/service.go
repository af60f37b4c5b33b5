// Package dispatch fans a fired reminder out to the worker's registered
// push destinations and maintains the destination set, dropping endpoints
// the transport reports as gone.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/studio-api/internal/email"
	"github.com/jwalitptl/studio-api/internal/model"
	"github.com/jwalitptl/studio-api/internal/repository"
	"github.com/jwalitptl/studio-api/internal/timewindow"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
	"github.com/jwalitptl/studio-api/pkg/logger"
	"github.com/jwalitptl/studio-api/pkg/messaging"
	"github.com/jwalitptl/studio-api/pkg/metrics"
	"github.com/jwalitptl/studio-api/pkg/push"
	"github.com/jwalitptl/studio-api/pkg/validator"
)

type Service struct {
	destinations repository.DestinationRepository
	transport    push.Transport
	broker       messaging.Broker
	email        email.Service
	registry     *model.WorkerRegistry
	validator    *validator.Validator
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

func NewService(
	destinations repository.DestinationRepository,
	transport push.Transport,
	broker messaging.Broker,
	emailSvc email.Service,
	registry *model.WorkerRegistry,
	v *validator.Validator,
	m *metrics.Metrics,
	logger *logger.Logger,
) *Service {
	return &Service{
		destinations: destinations,
		transport:    transport,
		broker:       broker,
		email:        emailSvc,
		registry:     registry,
		validator:    v,
		metrics:      m,
		logger:       logger,
	}
}

// DispatchReminder delivers one reminder to every destination of the
// appointment's worker. Destinations whose endpoint is gone are removed
// on the spot. The call fails only when destinations existed and none
// accepted the message, so the caller can release the sent claim.
func (s *Service) DispatchReminder(ctx context.Context, appointment *model.Appointment, kind model.ReminderKind) error {
	destinations, err := s.destinations.ListForWorker(ctx, appointment.WorkerID)
	if err != nil {
		return fmt.Errorf("failed to list destinations: %w", err)
	}
	if len(destinations) == 0 {
		s.logger.Warn("no push destinations for worker",
			"worker_id", appointment.WorkerID.String(),
			"appointment_id", appointment.ID.String(),
		)
		return nil
	}

	payload := s.buildPayload(appointment, kind)

	delivered := 0
	for _, destination := range destinations {
		result, err := s.transport.Dispatch(ctx, destination.Endpoint, destination.Credential, payload)
		if err != nil {
			s.countDispatch("error")
			s.logger.Error(err, "push dispatch failed",
				"destination_id", destination.ID.String(),
				"worker_id", appointment.WorkerID.String(),
			)
			continue
		}
		if result.ShouldInvalidateDestination {
			s.countDispatch("invalidated")
			s.invalidateDestination(ctx, destination)
			continue
		}
		if result.Delivered {
			s.countDispatch("delivered")
			delivered++
		}
	}

	if delivered == 0 {
		s.alertOwner(ctx, appointment, kind)
		return fmt.Errorf("no destination accepted reminder for appointment %s", appointment.ID)
	}

	s.publishFired(ctx, appointment, kind)
	return nil
}

func (s *Service) buildPayload(appointment *model.Appointment, kind model.ReminderKind) push.Payload {
	start := timewindow.Clock(appointment.StartMinute)
	title := "Appointment in 1 hour"
	if kind == model.Reminder30Min {
		title = "Appointment in 30 minutes"
	}
	body := fmt.Sprintf("%s at %s", appointment.ClientName, start)
	return push.Payload{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"appointment_id": appointment.ID.String(),
			"kind":           string(kind),
			"date":           appointment.Date.Format(model.DateFormat),
			"time":           start.String(),
		},
	}
}

// invalidateDestination drops a destination whose endpoint is terminally
// gone. Best effort; a failed delete just means another round trip later.
func (s *Service) invalidateDestination(ctx context.Context, destination *model.PushDestination) {
	if err := s.destinations.Delete(ctx, destination.ID); err != nil && !apperrors.IsNotFound(err) {
		s.logger.Error(err, "failed to remove dead destination", "destination_id", destination.ID.String())
		return
	}
	s.logger.Info("removed dead push destination",
		"destination_id", destination.ID.String(),
		"worker_id", destination.WorkerID.String(),
	)
}

func (s *Service) alertOwner(ctx context.Context, appointment *model.Appointment, kind model.ReminderKind) {
	subject := "Reminder delivery failed"
	body := fmt.Sprintf(
		"Could not deliver the %s reminder for %s on %s. Check the push destinations for worker %s.",
		kind, appointment.ClientName, appointment.Date.Format(model.DateFormat), appointment.WorkerID,
	)
	if err := s.email.SendAlert(ctx, subject, body); err != nil {
		s.logger.Warn("failed to send owner alert", "error", err.Error())
	}
}

func (s *Service) publishFired(ctx context.Context, appointment *model.Appointment, kind model.ReminderKind) {
	msg, err := json.Marshal(map[string]interface{}{
		"appointment_id": appointment.ID,
		"worker_id":      appointment.WorkerID,
		"kind":           kind,
		"fired_at":       time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := s.broker.Publish(ctx, messaging.ChannelReminders, json.RawMessage(msg)); err != nil {
		s.logger.Warn("failed to publish reminder event", "error", err.Error())
	}
}

// RegisterDestination stores a delivery target for a worker. Registering
// the same endpoint twice refreshes the credential instead of duplicating
// the row.
func (s *Service) RegisterDestination(ctx context.Context, workerID model.WorkerID, req *model.RegisterDestinationRequest) (*model.PushDestination, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !s.registry.Contains(workerID) {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown worker %q", workerID))
	}

	destination := &model.PushDestination{
		WorkerID:   workerID,
		Endpoint:   req.Endpoint,
		Credential: req.Credential,
		Label:      req.Label,
	}
	if err := s.destinations.Create(ctx, destination); err != nil {
		return nil, fmt.Errorf("failed to register destination: %w", err)
	}
	return destination, nil
}

func (s *Service) RemoveDestination(ctx context.Context, id uuid.UUID) error {
	return s.destinations.Delete(ctx, id)
}

func (s *Service) ListDestinations(ctx context.Context, workerID model.WorkerID) ([]*model.PushDestination, error) {
	if !s.registry.Contains(workerID) {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown worker %q", workerID))
	}
	return s.destinations.ListForWorker(ctx, workerID)
}

func (s *Service) countDispatch(result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ReminderDispatch.WithLabelValues(result).Inc()
}
