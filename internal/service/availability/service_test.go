package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/studio-api/internal/model"
	"github.com/jwalitptl/studio-api/internal/service/servicetest"
	"github.com/jwalitptl/studio-api/pkg/cache"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
	"github.com/jwalitptl/studio-api/pkg/logger"
)

const (
	workerA = model.WorkerID("worker-a")
	workerB = model.WorkerID("worker-b")
)

func newTestService(t *testing.T) (*Service, *servicetest.AvailabilityRepo, *servicetest.AppointmentRepo) {
	t.Helper()
	rules := servicetest.NewAvailabilityRepo()
	appointments := servicetest.NewAppointmentRepo()
	registry := model.NewWorkerRegistry([]model.Worker{
		{ID: workerA, Name: "A"},
		{ID: workerB, Name: "B"},
	})
	svc := NewService(rules, appointments, registry, cache.NewMemory(time.Minute), logger.NewLogger(nil))
	return svc, rules, appointments
}

func setHours(t *testing.T, svc *Service, workerID model.WorkerID, open, close, lunchStart, lunchEnd string) {
	t.Helper()
	_, err := svc.UpsertBusinessHours(context.Background(), workerID, &model.UpsertBusinessHoursRequest{
		Open:       open,
		Close:      close,
		LunchStart: lunchStart,
		LunchEnd:   lunchEnd,
	})
	require.NoError(t, err)
}

func TestIsSlotAvailable_BusinessHoursAndLunch(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	// 09:00-17:00, lunch 12:00-13:00.
	setHours(t, svc, workerA, "09:00", "17:00", "12:00", "13:00")

	ok, err := svc.IsSlotAvailable(ctx, workerA, date, 12*60+30, 60)
	require.NoError(t, err)
	assert.False(t, ok, "slot inside lunch must be rejected")

	ok, err = svc.IsSlotAvailable(ctx, workerA, date, 11*60, 60)
	require.NoError(t, err)
	assert.True(t, ok, "slot ending exactly at lunch start must be accepted")

	ok, err = svc.IsSlotAvailable(ctx, workerA, date, 13*60, 60)
	require.NoError(t, err)
	assert.True(t, ok, "slot starting exactly at lunch end must be accepted")

	ok, err = svc.IsSlotAvailable(ctx, workerA, date, 8*60, 60)
	require.NoError(t, err)
	assert.False(t, ok, "slot before opening must be rejected")

	ok, err = svc.IsSlotAvailable(ctx, workerA, date, 16*60+30, 60)
	require.NoError(t, err)
	assert.False(t, ok, "slot running past closing must be rejected")
}

func TestIsSlotAvailable_AppointmentOverlapPerWorker(t *testing.T) {
	svc, _, appointments := newTestService(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	require.NoError(t, appointments.Create(ctx, &model.Appointment{
		WorkerID:    workerA,
		ClientName:  "client",
		Date:        date,
		StartMinute: 10 * 60,
		DurationMin: 60,
		Status:      model.AppointmentStatusConfirmed,
	}))

	ok, err := svc.IsSlotAvailable(ctx, workerA, date, 10*60+30, 30)
	require.NoError(t, err)
	assert.False(t, ok, "overlapping slot for the same worker must be rejected")

	ok, err = svc.IsSlotAvailable(ctx, workerB, date, 10*60+30, 30)
	require.NoError(t, err)
	assert.True(t, ok, "same slot for a different worker must be accepted")

	// Half-open boundary: a slot beginning exactly at the existing end.
	ok, err = svc.IsSlotAvailable(ctx, workerA, date, 11*60, 30)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsSlotAvailable_CancelledAppointmentsFreeTheSlot(t *testing.T) {
	svc, _, appointments := newTestService(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	require.NoError(t, appointments.Create(ctx, &model.Appointment{
		WorkerID:    workerA,
		ClientName:  "client",
		Date:        date,
		StartMinute: 10 * 60,
		DurationMin: 60,
		Status:      model.AppointmentStatusCancelled,
	}))

	ok, err := svc.IsSlotAvailable(ctx, workerA, date, 10*60, 60)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsSlotAvailable_DayOffAndUnavailableDate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// 2026-03-04 is a Wednesday.
	wednesday := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	thursday := wednesday.AddDate(0, 0, 1)

	_, err := svc.CreateDayOff(ctx, workerA, &model.CreateDayOffRequest{Weekday: "Wednesday"})
	require.NoError(t, err)

	ok, err := svc.IsSlotAvailable(ctx, workerA, wednesday, 10*60, 60)
	require.NoError(t, err)
	assert.False(t, ok, "weekly day off closes the whole day")

	ok, err = svc.IsSlotAvailable(ctx, workerA, thursday, 10*60, 60)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.CreateUnavailableDate(ctx, workerA, &model.CreateUnavailableDateRequest{Date: "2026-03-05"})
	require.NoError(t, err)

	ok, err = svc.IsSlotAvailable(ctx, workerA, thursday, 10*60, 60)
	require.NoError(t, err)
	assert.False(t, ok, "unavailable date closes the whole day")
}

func TestIsSlotAvailable_UnavailableTimeBlock(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	_, err := svc.CreateUnavailableTime(ctx, workerA, &model.CreateUnavailableTimeRequest{
		Date:  "2026-03-04",
		Start: "15:00",
		End:   "16:00",
	})
	require.NoError(t, err)

	ok, err := svc.IsSlotAvailable(ctx, workerA, date, 15*60+30, 30)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsSlotAvailable(ctx, workerA, date, 16*60, 30)
	require.NoError(t, err)
	assert.True(t, ok, "block end is exclusive")
}

func TestIsSlotAvailable_InputValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	_, err := svc.IsSlotAvailable(ctx, workerA, date, 10*60, 0)
	assert.True(t, apperrors.IsValidation(err), "zero duration must be a validation error")

	_, err = svc.IsSlotAvailable(ctx, workerA, date, 10*60, -30)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.IsSlotAvailable(ctx, "ghost", date, 10*60, 30)
	assert.True(t, apperrors.IsValidation(err), "unknown worker must be a validation error")
}

func TestIsSlotAvailable_NoRulesMeansOpen(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	ok, err := svc.IsSlotAvailable(ctx, workerA, date, 3*60, 60)
	require.NoError(t, err)
	assert.True(t, ok, "a worker with no configured rules is fully open")
}

func TestRuleMutationInvalidatesCache(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	ok, err := svc.IsSlotAvailable(ctx, workerA, date, 10*60, 60)
	require.NoError(t, err)
	require.True(t, ok)

	// Mutating rules must be visible immediately despite the cache.
	_, err = svc.CreateDayOff(ctx, workerA, &model.CreateDayOffRequest{Weekday: "Wednesday"})
	require.NoError(t, err)

	ok, err = svc.IsSlotAvailable(ctx, workerA, date, 10*60, 60)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpsertBusinessHours_RejectsLunchOutsideHours(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertBusinessHours(ctx, workerA, &model.UpsertBusinessHoursRequest{
		Open:       "09:00",
		Close:      "17:00",
		LunchStart: "17:30",
		LunchEnd:   "18:00",
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.UpsertBusinessHours(ctx, workerA, &model.UpsertBusinessHoursRequest{
		Open:       "17:00",
		Close:      "09:00",
		LunchStart: "12:00",
		LunchEnd:   "13:00",
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestFreeSlots(t *testing.T) {
	svc, _, appointments := newTestService(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	setHours(t, svc, workerA, "09:00", "12:00", "10:00", "10:30")
	require.NoError(t, appointments.Create(ctx, &model.Appointment{
		WorkerID:    workerA,
		ClientName:  "client",
		Date:        date,
		StartMinute: 11 * 60,
		DurationMin: 30,
		Status:      model.AppointmentStatusConfirmed,
	}))

	slots, err := svc.FreeSlots(ctx, workerA, date, 30)
	require.NoError(t, err)

	var got []string
	for _, s := range slots {
		got = append(got, s.String())
	}
	assert.Equal(t, []string{"09:00", "09:30", "10:30", "11:30"}, got)
}

func TestIsSlotAvailableExcluding(t *testing.T) {
	svc, _, appointments := newTestService(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	apt := &model.Appointment{
		WorkerID:    workerA,
		ClientName:  "client",
		Date:        date,
		StartMinute: 10 * 60,
		DurationMin: 60,
		Status:      model.AppointmentStatusConfirmed,
	}
	require.NoError(t, appointments.Create(ctx, apt))

	// Shifting the same appointment by 30 minutes only conflicts with
	// itself and must be allowed.
	ok, err := svc.IsSlotAvailableExcluding(ctx, workerA, date, 10*60+30, 60, apt.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	other := &model.Appointment{
		WorkerID:    workerA,
		ClientName:  "other",
		Date:        date,
		StartMinute: 11 * 60,
		DurationMin: 60,
		Status:      model.AppointmentStatusConfirmed,
	}
	require.NoError(t, appointments.Create(ctx, other))

	ok, err = svc.IsSlotAvailableExcluding(ctx, workerA, date, 10*60+30, 60, apt.ID)
	require.NoError(t, err)
	assert.False(t, ok, "a different appointment still blocks the move")
}

func TestDeleteRuleScopedToOwner(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	dayOff, err := svc.CreateDayOff(ctx, workerA, &model.CreateDayOffRequest{Weekday: "Monday"})
	require.NoError(t, err)

	// Another worker's URL must not reach this rule.
	err = svc.DeleteDayOff(ctx, workerB, dayOff.ID)
	assert.True(t, apperrors.IsNotFound(err))

	rules, err := svc.Rules(ctx, workerA)
	require.NoError(t, err)
	assert.Len(t, rules.DaysOff, 1, "rule must survive a delete through the wrong worker")

	require.NoError(t, svc.DeleteDayOff(ctx, workerA, dayOff.ID))
	rules, err = svc.Rules(ctx, workerA)
	require.NoError(t, err)
	assert.Empty(t, rules.DaysOff)
}

func TestDeleteUnavailableTimeScopedToOwner(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	block, err := svc.CreateUnavailableTime(ctx, workerA, &model.CreateUnavailableTimeRequest{
		Date:  "2026-03-04",
		Start: "10:00",
		End:   "11:00",
	})
	require.NoError(t, err)

	err = svc.DeleteUnavailableTime(ctx, workerB, block.ID)
	assert.True(t, apperrors.IsNotFound(err))

	blocks, err := svc.UnavailableTimes(ctx, workerA, date)
	require.NoError(t, err)
	assert.Len(t, blocks, 1)

	require.NoError(t, svc.DeleteUnavailableTime(ctx, workerA, block.ID))
	blocks, err = svc.UnavailableTimes(ctx, workerA, date)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestCreateUnavailableDateIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUnavailableDate(ctx, workerA, &model.CreateUnavailableDateRequest{Date: "2026-03-05"})
	require.NoError(t, err)
	_, err = svc.CreateUnavailableDate(ctx, workerA, &model.CreateUnavailableDateRequest{Date: "2026-03-05"})
	require.NoError(t, err)

	rules, err := svc.Rules(ctx, workerA)
	require.NoError(t, err)
	assert.Len(t, rules.UnavailableDates, 1, "re-marking the same date must not duplicate the rule")
}

func TestUnavailableTimesListedPerDate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUnavailableTime(ctx, workerA, &model.CreateUnavailableTimeRequest{
		Date:  "2026-03-04",
		Start: "10:00",
		End:   "11:00",
	})
	require.NoError(t, err)
	_, err = svc.CreateUnavailableTime(ctx, workerA, &model.CreateUnavailableTimeRequest{
		Date:  "2026-03-05",
		Start: "14:00",
		End:   "15:00",
	})
	require.NoError(t, err)

	blocks, err := svc.UnavailableTimes(ctx, workerA, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, 10*60, blocks[0].StartMinute)

	_, err = svc.UnavailableTimes(ctx, model.WorkerID("ghost"), time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))
	assert.True(t, apperrors.IsValidation(err))
}
