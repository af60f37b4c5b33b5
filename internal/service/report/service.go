// Package report serves the read-only bookkeeping surface: expense rows
// and the per-worker range report.
package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/jwalitptl/studio-api/internal/model"
	"github.com/jwalitptl/studio-api/internal/repository"
	"github.com/jwalitptl/studio-api/internal/timewindow"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
	"github.com/jwalitptl/studio-api/pkg/logger"
	"github.com/jwalitptl/studio-api/pkg/validator"
)

type Service struct {
	appointments repository.AppointmentRepository
	expenses     repository.ExpenseRepository
	registry     *model.WorkerRegistry
	validator    *validator.Validator
	logger       *logger.Logger
}

func NewService(
	appointments repository.AppointmentRepository,
	expenses repository.ExpenseRepository,
	registry *model.WorkerRegistry,
	v *validator.Validator,
	logger *logger.Logger,
) *Service {
	return &Service{
		appointments: appointments,
		expenses:     expenses,
		registry:     registry,
		validator:    v,
		logger:       logger,
	}
}

func (s *Service) CreateExpense(ctx context.Context, req *model.CreateExpenseRequest) (*model.Expense, error) {
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

	expense := &model.Expense{
		WorkerID:    workerID,
		Date:        date,
		AmountCents: req.AmountCents,
		Category:    req.Category,
		Note:        req.Note,
	}
	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}
	return expense, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	return s.expenses.Delete(ctx, id)
}

func (s *Service) ListExpenses(ctx context.Context, filters *model.ExpenseFilters) ([]*model.Expense, error) {
	if filters != nil && filters.WorkerID != "" && !s.registry.Contains(filters.WorkerID) {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown worker %q", filters.WorkerID))
	}
	return s.expenses.List(ctx, filters)
}

// RangeReport aggregates a worker's completed appointments and expenses
// over [from, to] inclusive of both dates.
func (s *Service) RangeReport(ctx context.Context, workerID model.WorkerID, from, to string) (*model.RangeReport, error) {
	if !s.registry.Contains(workerID) {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown worker %q", workerID))
	}
	fromDate, err := timewindow.ParseDate(from)
	if err != nil {
		return nil, apperrors.NewValidation("invalid from date: " + err.Error())
	}
	toDate, err := timewindow.ParseDate(to)
	if err != nil {
		return nil, apperrors.NewValidation("invalid to date: " + err.Error())
	}
	if toDate.Before(fromDate) {
		return nil, apperrors.NewValidation("to date precedes from date")
	}

	appointments, err := s.appointments.List(ctx, &model.AppointmentFilters{
		WorkerID:  workerID,
		StartDate: fromDate,
		EndDate:   toDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	expenses, err := s.expenses.List(ctx, &model.ExpenseFilters{
		WorkerID:  workerID,
		StartDate: fromDate,
		EndDate:   toDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	sort.Slice(appointments, func(i, j int) bool {
		if !appointments[i].Date.Equal(appointments[j].Date) {
			return appointments[i].Date.Before(appointments[j].Date)
		}
		return appointments[i].StartMinute < appointments[j].StartMinute
	})
	sort.Slice(expenses, func(i, j int) bool {
		return expenses[i].Date.Before(expenses[j].Date)
	})

	report := &model.RangeReport{
		WorkerID:     workerID,
		From:         fromDate,
		To:           toDate,
		Appointments: appointments,
		Expenses:     expenses,
	}
	for _, a := range appointments {
		if a.Status == model.AppointmentStatusDone {
			report.CompletedCount++
		}
	}
	for _, e := range expenses {
		report.TotalExpenseCents += e.AmountCents
	}
	return report, nil
}
