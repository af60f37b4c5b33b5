package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/studio-api/internal/model"
	"github.com/jwalitptl/studio-api/internal/service/servicetest"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
	"github.com/jwalitptl/studio-api/pkg/logger"
	"github.com/jwalitptl/studio-api/pkg/validator"
)

const (
	workerA = model.WorkerID("worker-a")
	workerB = model.WorkerID("worker-b")
)

func newService(t *testing.T) (*Service, *servicetest.AppointmentRepo) {
	t.Helper()
	appointments := servicetest.NewAppointmentRepo()
	registry := model.NewWorkerRegistry([]model.Worker{
		{ID: workerA, Name: "A"},
		{ID: workerB, Name: "B"},
	})
	svc := NewService(appointments, servicetest.NewExpenseRepo(), registry, validator.New(), logger.NewLogger(nil))
	return svc, appointments
}

func addAppointment(t *testing.T, repo *servicetest.AppointmentRepo, workerID model.WorkerID, date string, status model.AppointmentStatus) {
	t.Helper()
	d, err := time.Parse(model.DateFormat, date)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &model.Appointment{
		WorkerID:    workerID,
		ClientName:  "client",
		Date:        d,
		StartMinute: 10 * 60,
		DurationMin: 60,
		Status:      status,
	}))
}

func TestRangeReport(t *testing.T) {
	svc, appointments := newService(t)
	ctx := context.Background()

	addAppointment(t, appointments, workerA, "2026-03-02", model.AppointmentStatusDone)
	addAppointment(t, appointments, workerA, "2026-03-03", model.AppointmentStatusCancelled)
	addAppointment(t, appointments, workerA, "2026-03-10", model.AppointmentStatusDone) // out of range
	addAppointment(t, appointments, workerB, "2026-03-02", model.AppointmentStatusDone) // other worker

	for _, e := range []struct {
		date  string
		cents int64
	}{
		{"2026-03-02", 1500},
		{"2026-03-04", 2500},
		{"2026-03-20", 9900}, // out of range
	} {
		_, err := svc.CreateExpense(ctx, &model.CreateExpenseRequest{
			WorkerID:    workerA.String(),
			Date:        e.date,
			AmountCents: e.cents,
			Category:    "supplies",
		})
		require.NoError(t, err)
	}

	report, err := svc.RangeReport(ctx, workerA, "2026-03-01", "2026-03-07")
	require.NoError(t, err)
	assert.Len(t, report.Appointments, 2)
	assert.Equal(t, 1, report.CompletedCount, "cancelled rows do not count as completed")
	assert.Len(t, report.Expenses, 2)
	assert.Equal(t, int64(4000), report.TotalExpenseCents)
}

func TestRangeReport_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.RangeReport(ctx, "ghost", "2026-03-01", "2026-03-07")
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.RangeReport(ctx, workerA, "2026-03-07", "2026-03-01")
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.RangeReport(ctx, workerA, "bad", "2026-03-01")
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreateExpense_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateExpense(ctx, &model.CreateExpenseRequest{
		WorkerID:    workerA.String(),
		Date:        "2026-03-02",
		AmountCents: -5,
		Category:    "supplies",
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.CreateExpense(ctx, &model.CreateExpenseRequest{
		WorkerID:    "ghost",
		Date:        "2026-03-02",
		AmountCents: 100,
		Category:    "supplies",
	})
	assert.True(t, apperrors.IsValidation(err))
}
