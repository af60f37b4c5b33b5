package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/studio-api/internal/model"
	"github.com/jwalitptl/studio-api/internal/repository"
	"github.com/jwalitptl/studio-api/internal/timewindow"
	"github.com/jwalitptl/studio-api/pkg/cache"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
	"github.com/jwalitptl/studio-api/pkg/logger"
)

// SlotStepMinutes is the granularity of the free-slot listing.
const SlotStepMinutes = 30

// workerRules is the cached worker-scoped closure state. Date-scoped
// blocks are always read fresh.
type workerRules struct {
	hours   *model.BusinessHours
	daysOff map[time.Weekday]bool
	dates   map[string]bool
}

type Service struct {
	rules        repository.AvailabilityRepository
	appointments repository.AppointmentRepository
	registry     *model.WorkerRegistry
	cache        cache.Cache
	logger       *logger.Logger
}

func NewService(
	rules repository.AvailabilityRepository,
	appointments repository.AppointmentRepository,
	registry *model.WorkerRegistry,
	c cache.Cache,
	logger *logger.Logger,
) *Service {
	return &Service{
		rules:        rules,
		appointments: appointments,
		registry:     registry,
		cache:        c,
		logger:       logger,
	}
}

// IsSlotAvailable decides whether [startMinute, startMinute+durationMin)
// on date is bookable for the worker. Rules are checked cheapest first:
// full-day closures, then explicit blocks, then business hours and lunch,
// then existing appointments.
func (s *Service) IsSlotAvailable(ctx context.Context, workerID model.WorkerID, date time.Time, startMinute, durationMin int) (bool, error) {
	if err := s.validateSlotInput(workerID, startMinute, durationMin); err != nil {
		return false, err
	}

	endMinute := startMinute + durationMin

	rules, err := s.loadWorkerRules(ctx, workerID)
	if err != nil {
		return false, err
	}

	if rules.daysOff[date.Weekday()] {
		return false, nil
	}
	if rules.dates[date.Format(model.DateFormat)] {
		return false, nil
	}

	blocks, err := s.rules.ListUnavailableTimes(ctx, workerID, date)
	if err != nil {
		return false, fmt.Errorf("failed to load unavailable times: %w", err)
	}
	for _, b := range blocks {
		if timewindow.Overlaps(startMinute, endMinute, b.StartMinute, b.EndMinute) {
			return false, nil
		}
	}

	if rules.hours != nil {
		h := rules.hours
		if !timewindow.Contains(h.OpenMinute, h.CloseMinute, startMinute, endMinute) {
			return false, nil
		}
		if timewindow.Overlaps(startMinute, endMinute, h.LunchStartMinute, h.LunchEndMinute) {
			return false, nil
		}
	}

	existing, err := s.appointments.ListForWorkerDate(ctx, workerID, date)
	if err != nil {
		return false, fmt.Errorf("failed to load appointments: %w", err)
	}
	for _, apt := range existing {
		if timewindow.Overlaps(startMinute, endMinute, apt.StartMinute, apt.EndMinute()) {
			return false, nil
		}
	}

	return true, nil
}

// IsSlotAvailableExcluding is IsSlotAvailable minus one appointment, used
// when rescheduling so the appointment doesn't conflict with itself.
func (s *Service) IsSlotAvailableExcluding(ctx context.Context, workerID model.WorkerID, date time.Time, startMinute, durationMin int, excludeID uuid.UUID) (bool, error) {
	ok, err := s.IsSlotAvailable(ctx, workerID, date, startMinute, durationMin)
	if err != nil || ok {
		return ok, err
	}

	// Re-run only the appointment check without the excluded row; the
	// rule checks above are appointment-independent, so a rules rejection
	// stays a rejection.
	blockedByRules, err := s.blockedByRules(ctx, workerID, date, startMinute, durationMin)
	if err != nil {
		return false, err
	}
	if blockedByRules {
		return false, nil
	}

	endMinute := startMinute + durationMin
	existing, err := s.appointments.ListForWorkerDate(ctx, workerID, date)
	if err != nil {
		return false, fmt.Errorf("failed to load appointments: %w", err)
	}
	for _, apt := range existing {
		if apt.ID == excludeID {
			continue
		}
		if timewindow.Overlaps(startMinute, endMinute, apt.StartMinute, apt.EndMinute()) {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) blockedByRules(ctx context.Context, workerID model.WorkerID, date time.Time, startMinute, durationMin int) (bool, error) {
	endMinute := startMinute + durationMin

	rules, err := s.loadWorkerRules(ctx, workerID)
	if err != nil {
		return false, err
	}
	if rules.daysOff[date.Weekday()] || rules.dates[date.Format(model.DateFormat)] {
		return true, nil
	}

	blocks, err := s.rules.ListUnavailableTimes(ctx, workerID, date)
	if err != nil {
		return false, fmt.Errorf("failed to load unavailable times: %w", err)
	}
	for _, b := range blocks {
		if timewindow.Overlaps(startMinute, endMinute, b.StartMinute, b.EndMinute) {
			return true, nil
		}
	}

	if rules.hours != nil {
		h := rules.hours
		if !timewindow.Contains(h.OpenMinute, h.CloseMinute, startMinute, endMinute) {
			return true, nil
		}
		if timewindow.Overlaps(startMinute, endMinute, h.LunchStartMinute, h.LunchEndMinute) {
			return true, nil
		}
	}
	return false, nil
}

// FreeSlots lists bookable start times for a duration on a date.
func (s *Service) FreeSlots(ctx context.Context, workerID model.WorkerID, date time.Time, durationMin int) ([]timewindow.Clock, error) {
	if err := s.validateSlotInput(workerID, 0, durationMin); err != nil {
		return nil, err
	}

	rules, err := s.loadWorkerRules(ctx, workerID)
	if err != nil {
		return nil, err
	}

	open, close := 0, 24*60
	if rules.hours != nil {
		open, close = rules.hours.OpenMinute, rules.hours.CloseMinute
	}

	var slots []timewindow.Clock
	for start := open; start+durationMin <= close; start += SlotStepMinutes {
		ok, err := s.IsSlotAvailable(ctx, workerID, date, start, durationMin)
		if err != nil {
			return nil, err
		}
		if ok {
			slots = append(slots, timewindow.Clock(start))
		}
	}
	return slots, nil
}

func (s *Service) validateSlotInput(workerID model.WorkerID, startMinute, durationMin int) error {
	if !s.registry.Contains(workerID) {
		return apperrors.NewValidation(fmt.Sprintf("unknown worker %q", workerID))
	}
	if durationMin <= 0 {
		return apperrors.NewValidation("duration must be positive")
	}
	if startMinute < 0 || startMinute >= 24*60 {
		return apperrors.NewValidation("start time out of range")
	}
	return nil
}

func rulesCacheKey(workerID model.WorkerID) string {
	return "rules:" + workerID.String()
}

func (s *Service) loadWorkerRules(ctx context.Context, workerID model.WorkerID) (*workerRules, error) {
	if cached, ok := s.cache.Get(rulesCacheKey(workerID)); ok {
		if rules, ok := cached.(*workerRules); ok {
			return rules, nil
		}
	}

	hours, err := s.rules.GetBusinessHours(ctx, workerID)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load business hours: %w", err)
	}

	daysOff, err := s.rules.ListDaysOff(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load days off: %w", err)
	}

	dates, err := s.rules.ListUnavailableDates(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unavailable dates: %w", err)
	}

	rules := &workerRules{
		hours:   hours,
		daysOff: make(map[time.Weekday]bool, len(daysOff)),
		dates:   make(map[string]bool, len(dates)),
	}
	for _, d := range daysOff {
		rules.daysOff[d.Weekday] = true
	}
	for _, d := range dates {
		rules.dates[d.Date.Format(model.DateFormat)] = true
	}

	s.cache.Set(rulesCacheKey(workerID), rules)
	return rules, nil
}

func (s *Service) invalidate(workerID model.WorkerID) {
	s.cache.Delete(rulesCacheKey(workerID))
}
