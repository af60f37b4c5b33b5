package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/studio-api/internal/model"
	"github.com/jwalitptl/studio-api/internal/timewindow"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
)

var weekdayNames = map[string]time.Weekday{
	"Sunday":    time.Sunday,
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
}

func (s *Service) requireWorker(workerID model.WorkerID) error {
	if !s.registry.Contains(workerID) {
		return apperrors.NewValidation(fmt.Sprintf("unknown worker %q", workerID))
	}
	return nil
}

// Rules returns the worker-scoped closure rules, for the settings screen.
// Date-scoped time blocks are listed per date via UnavailableTimes and not
// included here.
func (s *Service) Rules(ctx context.Context, workerID model.WorkerID) (*model.AvailabilityRules, error) {
	if err := s.requireWorker(workerID); err != nil {
		return nil, err
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

	return &model.AvailabilityRules{
		Hours:            hours,
		DaysOff:          daysOff,
		UnavailableDates: dates,
	}, nil
}

func (s *Service) UpsertBusinessHours(ctx context.Context, workerID model.WorkerID, req *model.UpsertBusinessHoursRequest) (*model.BusinessHours, error) {
	if err := s.requireWorker(workerID); err != nil {
		return nil, err
	}

	open, err := timewindow.ParseClock(req.Open)
	if err != nil {
		return nil, apperrors.NewValidation("invalid open time: " + err.Error())
	}
	close, err := timewindow.ParseClock(req.Close)
	if err != nil {
		return nil, apperrors.NewValidation("invalid close time: " + err.Error())
	}
	lunchStart, err := timewindow.ParseClock(req.LunchStart)
	if err != nil {
		return nil, apperrors.NewValidation("invalid lunch start: " + err.Error())
	}
	lunchEnd, err := timewindow.ParseClock(req.LunchEnd)
	if err != nil {
		return nil, apperrors.NewValidation("invalid lunch end: " + err.Error())
	}
	if close <= open {
		return nil, apperrors.NewValidation("close must be after open")
	}
	if lunchEnd <= lunchStart {
		return nil, apperrors.NewValidation("lunch end must be after lunch start")
	}
	if !timewindow.Contains(int(open), int(close), int(lunchStart), int(lunchEnd)) {
		return nil, apperrors.NewValidation("lunch must fall within business hours")
	}

	hours := &model.BusinessHours{
		WorkerID:         workerID,
		OpenMinute:       int(open),
		CloseMinute:      int(close),
		LunchStartMinute: int(lunchStart),
		LunchEndMinute:   int(lunchEnd),
	}
	if err := s.rules.UpsertBusinessHours(ctx, hours); err != nil {
		return nil, fmt.Errorf("failed to save business hours: %w", err)
	}
	s.invalidate(workerID)
	s.logger.Info("business hours updated", "worker_id", workerID.String(), "open", req.Open, "close", req.Close)
	return hours, nil
}

func (s *Service) CreateDayOff(ctx context.Context, workerID model.WorkerID, req *model.CreateDayOffRequest) (*model.WeeklyDayOff, error) {
	if err := s.requireWorker(workerID); err != nil {
		return nil, err
	}
	weekday, ok := weekdayNames[req.Weekday]
	if !ok {
		return nil, apperrors.NewValidation("invalid weekday " + req.Weekday)
	}

	dayOff := &model.WeeklyDayOff{WorkerID: workerID, Weekday: weekday}
	if err := s.rules.CreateDayOff(ctx, dayOff); err != nil {
		return nil, fmt.Errorf("failed to create day off: %w", err)
	}
	s.invalidate(workerID)
	return dayOff, nil
}

func (s *Service) DeleteDayOff(ctx context.Context, workerID model.WorkerID, id uuid.UUID) error {
	if err := s.rules.DeleteDayOff(ctx, workerID, id); err != nil {
		return err
	}
	s.invalidate(workerID)
	return nil
}

func (s *Service) CreateUnavailableDate(ctx context.Context, workerID model.WorkerID, req *model.CreateUnavailableDateRequest) (*model.UnavailableDate, error) {
	if err := s.requireWorker(workerID); err != nil {
		return nil, err
	}
	date, err := timewindow.ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.NewValidation("invalid date: " + err.Error())
	}

	d := &model.UnavailableDate{WorkerID: workerID, Date: date, Reason: req.Reason}
	if err := s.rules.CreateUnavailableDate(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create unavailable date: %w", err)
	}
	s.invalidate(workerID)
	return d, nil
}

func (s *Service) DeleteUnavailableDate(ctx context.Context, workerID model.WorkerID, id uuid.UUID) error {
	if err := s.rules.DeleteUnavailableDate(ctx, workerID, id); err != nil {
		return err
	}
	s.invalidate(workerID)
	return nil
}

func (s *Service) CreateUnavailableTime(ctx context.Context, workerID model.WorkerID, req *model.CreateUnavailableTimeRequest) (*model.UnavailableTime, error) {
	if err := s.requireWorker(workerID); err != nil {
		return nil, err
	}
	date, err := timewindow.ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.NewValidation("invalid date: " + err.Error())
	}
	start, err := timewindow.ParseClock(req.Start)
	if err != nil {
		return nil, apperrors.NewValidation("invalid start time: " + err.Error())
	}
	end, err := timewindow.ParseClock(req.End)
	if err != nil {
		return nil, apperrors.NewValidation("invalid end time: " + err.Error())
	}
	if end <= start {
		return nil, apperrors.NewValidation("end must be after start")
	}

	block := &model.UnavailableTime{
		WorkerID:    workerID,
		Date:        date,
		StartMinute: int(start),
		EndMinute:   int(end),
		Reason:      req.Reason,
	}
	if err := s.rules.CreateUnavailableTime(ctx, block); err != nil {
		return nil, fmt.Errorf("failed to create unavailable time: %w", err)
	}
	return block, nil
}

func (s *Service) DeleteUnavailableTime(ctx context.Context, workerID model.WorkerID, id uuid.UUID) error {
	return s.rules.DeleteUnavailableTime(ctx, workerID, id)
}

// UnavailableTimes lists a worker's time blocks for one date.
func (s *Service) UnavailableTimes(ctx context.Context, workerID model.WorkerID, date time.Time) ([]model.UnavailableTime, error) {
	if err := s.requireWorker(workerID); err != nil {
		return nil, err
	}
	blocks, err := s.rules.ListUnavailableTimes(ctx, workerID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list unavailable times: %w", err)
	}
	return blocks, nil
}
