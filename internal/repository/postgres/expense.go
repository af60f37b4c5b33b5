package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/studio-api/internal/model"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
)

func (r *expenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	query := `
		INSERT INTO expenses (
			id, worker_id, date, amount_cents, category, note, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		expense.ID,
		expense.WorkerID,
		expense.Date,
		expense.AmountCents,
		expense.Category,
		expense.Note,
		expense.CreatedAt,
		expense.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

func (r *expenseRepository) Get(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	query := `
		SELECT id, worker_id, date, amount_cents, category, note, created_at, updated_at
		FROM expenses
		WHERE id = $1
	`
	var expense model.Expense
	err := r.db.GetContext(ctx, &expense, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("expense", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return &expense, nil
}

func (r *expenseRepository) Update(ctx context.Context, expense *model.Expense) error {
	query := `
		UPDATE expenses
		SET worker_id = $1, date = $2, amount_cents = $3, category = $4,
			note = $5, updated_at = $6
		WHERE id = $7
	`
	result, err := r.db.ExecContext(ctx, query,
		expense.WorkerID,
		expense.Date,
		expense.AmountCents,
		expense.Category,
		expense.Note,
		expense.UpdatedAt,
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("expense", nil)
	}
	return nil
}

func (r *expenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("expense", nil)
	}
	return nil
}

func (r *expenseRepository) List(ctx context.Context, filters *model.ExpenseFilters) ([]*model.Expense, error) {
	query := `
		SELECT id, worker_id, date, amount_cents, category, note, created_at, updated_at
		FROM expenses
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters.WorkerID != "" {
		query += fmt.Sprintf(" AND worker_id = $%d", argCount)
		args = append(args, filters.WorkerID)
		argCount++
	}
	if filters.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argCount)
		args = append(args, filters.Category)
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

	query += " ORDER BY date DESC, created_at DESC"

	var expenses []*model.Expense
	if err := r.db.SelectContext(ctx, &expenses, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return expenses, nil
}
