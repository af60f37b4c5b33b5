package model

import "time"

// Expense is a single spend row. Amounts are stored in minor units.
type Expense struct {
	Base
	WorkerID    WorkerID  `db:"worker_id" json:"worker_id"`
	Date        time.Time `db:"date" json:"date"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
	Category    string    `db:"category" json:"category"`
	Note        string    `db:"note" json:"note,omitempty"`
}

type CreateExpenseRequest struct {
	WorkerID    string `json:"worker_id" validate:"required"`
	Date        string `json:"date" validate:"required"`
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Category    string `json:"category" validate:"required,max=100"`
	Note        string `json:"note" validate:"max=500"`
}

type ExpenseFilters struct {
	WorkerID  WorkerID
	Category  string
	StartDate time.Time
	EndDate   time.Time
}

// RangeReport is the read surface consumed by export and UI clients:
// completed appointments and expenses in a date range, by worker.
type RangeReport struct {
	WorkerID          WorkerID       `json:"worker_id"`
	From              time.Time      `json:"from"`
	To                time.Time      `json:"to"`
	Appointments      []*Appointment `json:"appointments"`
	Expenses          []*Expense     `json:"expenses"`
	CompletedCount    int            `json:"completed_count"`
	TotalExpenseCents int64          `json:"total_expense_cents"`
}
