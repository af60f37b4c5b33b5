package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/studio-api/internal/repository"
)

type appointmentRepository struct {
	db *sqlx.DB
}

type availabilityRepository struct {
	db *sqlx.DB
}

type destinationRepository struct {
	db *sqlx.DB
}

type expenseRepository struct {
	db *sqlx.DB
}

type outboxRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewAvailabilityRepository(db *sqlx.DB) repository.AvailabilityRepository {
	return &availabilityRepository{db: db}
}

func NewDestinationRepository(db *sqlx.DB) repository.DestinationRepository {
	return &destinationRepository{db: db}
}

func NewExpenseRepository(db *sqlx.DB) repository.ExpenseRepository {
	return &expenseRepository{db: db}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}
