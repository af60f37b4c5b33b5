package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/studio-api/internal/model"
	"github.com/jwalitptl/studio-api/internal/service/servicetest"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
	"github.com/jwalitptl/studio-api/pkg/logger"
	"github.com/jwalitptl/studio-api/pkg/scheduler"
)

const workerA = model.WorkerID("worker-a")

type fakeScheduler struct {
	mu        sync.Mutex
	jobs      map[string]scheduler.Job
	cancelled []string
	fail      bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: make(map[string]scheduler.Job)}
}

func (f *fakeScheduler) Register(_ context.Context, job scheduler.Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("scheduler unreachable")
	}
	f.jobs[job.Key] = job
	return job.Key, nil
}

func (f *fakeScheduler) Cancel(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("scheduler unreachable")
	}
	delete(f.jobs, key)
	f.cancelled = append(f.cancelled, key)
	return nil
}

type fakeDispatcher struct {
	mu        sync.Mutex
	delivered []string
	fail      bool
}

func (f *fakeDispatcher) DispatchReminder(_ context.Context, a *model.Appointment, kind model.ReminderKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("push gateway down")
	}
	f.delivered = append(f.delivered, a.ID.String()+":"+string(kind))
	return nil
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.delivered)
}

type fixture struct {
	svc          *Service
	appointments *servicetest.AppointmentRepo
	outbox       *servicetest.OutboxRepo
	scheduler    *fakeScheduler
	dispatcher   *fakeDispatcher
	now          time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		appointments: servicetest.NewAppointmentRepo(),
		outbox:       servicetest.NewOutboxRepo(),
		scheduler:    newFakeScheduler(),
		dispatcher:   &fakeDispatcher{},
		now:          time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(
		f.appointments,
		f.outbox,
		f.scheduler,
		f.dispatcher,
		Config{
			Tolerance:       7 * time.Minute,
			Horizon:         2 * time.Hour,
			CallbackBaseURL: "https://studio.example.com",
			SigningSecret:   "test-secret",
		},
		time.UTC,
		nil,
		logger.NewLogger(nil),
	).WithClock(func() time.Time { return f.now })
	return f
}

// appointmentAt books a confirmed appointment starting at the given
// minute of the fixture date.
func (f *fixture) appointmentAt(t *testing.T, startMinute int) *model.Appointment {
	t.Helper()
	a := &model.Appointment{
		WorkerID:    workerA,
		ClientName:  "client",
		Date:        time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		StartMinute: startMinute,
		DurationMin: 60,
		Status:      model.AppointmentStatusConfirmed,
	}
	require.NoError(t, f.appointments.Create(context.Background(), a))
	return a
}

func TestScheduleReminders(t *testing.T) {
	f := newFixture(t)
	apt := f.appointmentAt(t, 14*60)

	schedule, err := f.svc.ScheduleReminders(context.Background(), apt)
	require.NoError(t, err)
	assert.True(t, schedule.Registered1h)
	assert.True(t, schedule.Registered30)
	assert.Equal(t, time.Date(2026, 3, 4, 13, 0, 0, 0, time.UTC), schedule.FireAt1Hour)
	assert.Equal(t, time.Date(2026, 3, 4, 13, 30, 0, 0, time.UTC), schedule.FireAt30Min)
	assert.Len(t, f.scheduler.jobs, 2)

	job := f.scheduler.jobs[jobKey(apt.ID, model.Reminder1Hour)]
	assert.Equal(t, schedule.FireAt1Hour, job.RunAt)
	assert.Contains(t, job.Headers["Authorization"], "Bearer ")

	// The callback token must verify and carry the appointment identity.
	claims, err := scheduler.ParseTriggerToken("test-secret", job.Headers["Authorization"][len("Bearer "):])
	require.NoError(t, err)
	assert.Equal(t, apt.ID.String(), claims.AppointmentID)
	assert.Equal(t, string(model.Reminder1Hour), claims.Kind)
}

func TestScheduleReminders_Idempotent(t *testing.T) {
	f := newFixture(t)
	apt := f.appointmentAt(t, 14*60)

	_, err := f.svc.ScheduleReminders(context.Background(), apt)
	require.NoError(t, err)
	_, err = f.svc.ScheduleReminders(context.Background(), apt)
	require.NoError(t, err)

	// Keyed registration replaces, never stacks.
	assert.Len(t, f.scheduler.jobs, 2)
}

func TestScheduleReminders_PastFireTimesSkipped(t *testing.T) {
	f := newFixture(t)
	// Starts 12:40; the 1hour fire time (11:40) is already past, the
	// 30min one (12:10) is ahead.
	apt := f.appointmentAt(t, 12*60+40)

	schedule, err := f.svc.ScheduleReminders(context.Background(), apt)
	require.NoError(t, err)
	assert.False(t, schedule.Registered1h)
	assert.True(t, schedule.Registered30)
	assert.Len(t, f.scheduler.jobs, 1)
}

func TestCancelReminders(t *testing.T) {
	f := newFixture(t)
	apt := f.appointmentAt(t, 14*60)

	_, err := f.svc.ScheduleReminders(context.Background(), apt)
	require.NoError(t, err)
	require.NoError(t, f.svc.CancelReminders(context.Background(), apt))
	assert.Empty(t, f.scheduler.jobs)
}

func TestOnReminderTrigger_FiresInWindow(t *testing.T) {
	f := newFixture(t)
	apt := f.appointmentAt(t, 13*60) // 1hour reminder fires at 12:00
	ctx := context.Background()

	outcome, err := f.svc.OnReminderTrigger(ctx, apt.ID, model.Reminder1Hour, SourceScheduler)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFired, outcome)
	assert.Equal(t, 1, f.dispatcher.count())
	assert.Equal(t, []string{model.EventReminderFired}, f.outbox.EventTypes())

	stored, err := f.appointments.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.Reminder1hSentAt)
	assert.Nil(t, stored.Reminder30mSentAt)
}

func TestOnReminderTrigger_SecondTriggerSkips(t *testing.T) {
	f := newFixture(t)
	apt := f.appointmentAt(t, 13*60)
	ctx := context.Background()

	outcome, err := f.svc.OnReminderTrigger(ctx, apt.ID, model.Reminder1Hour, SourceScheduler)
	require.NoError(t, err)
	require.Equal(t, model.OutcomeFired, outcome)

	outcome, err = f.svc.OnReminderTrigger(ctx, apt.ID, model.Reminder1Hour, SourceSweep)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSkipAlreadySent, outcome)
	assert.Equal(t, 1, f.dispatcher.count(), "second trigger must not redeliver")
}

func TestOnReminderTrigger_OutOfWindow(t *testing.T) {
	f := newFixture(t)
	// Starts 15:00; the 1hour fire time is 14:00, two hours ahead of now.
	apt := f.appointmentAt(t, 15*60)

	outcome, err := f.svc.OnReminderTrigger(context.Background(), apt.ID, model.Reminder1Hour, SourceSweep)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSkipOutOfWindow, outcome)
	assert.Equal(t, 0, f.dispatcher.count())
}

func TestOnReminderTrigger_CancelledAppointmentSkipsSilently(t *testing.T) {
	f := newFixture(t)
	apt := f.appointmentAt(t, 13*60)
	ctx := context.Background()

	apt.Status = model.AppointmentStatusCancelled
	require.NoError(t, f.appointments.Update(ctx, apt))

	// Stale trigger after cancellation: re-read finds the terminal
	// status and nothing is sent.
	outcome, err := f.svc.OnReminderTrigger(ctx, apt.ID, model.Reminder1Hour, SourceScheduler)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSkipTerminalStatus, outcome)
	assert.Equal(t, 0, f.dispatcher.count())
	assert.Empty(t, f.outbox.EventTypes())
}

func TestOnReminderTrigger_DoneAppointmentSkips(t *testing.T) {
	f := newFixture(t)
	apt := f.appointmentAt(t, 13*60)
	ctx := context.Background()

	apt.Status = model.AppointmentStatusDone
	require.NoError(t, f.appointments.Update(ctx, apt))

	outcome, err := f.svc.OnReminderTrigger(ctx, apt.ID, model.Reminder1Hour, SourceScheduler)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSkipTerminalStatus, outcome)
}

func TestOnReminderTrigger_DispatchFailureReleasesClaim(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.fail = true
	apt := f.appointmentAt(t, 13*60)
	ctx := context.Background()

	outcome, err := f.svc.OnReminderTrigger(ctx, apt.ID, model.Reminder1Hour, SourceScheduler)
	assert.Equal(t, model.OutcomeDispatchFailed, outcome)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrTransient))

	// The claim is released so a later trigger can retry.
	stored, err := f.appointments.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Reminder1hSentAt)

	f.dispatcher.fail = false
	outcome, err = f.svc.OnReminderTrigger(ctx, apt.ID, model.Reminder1Hour, SourceSweep)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFired, outcome)
}

func TestOnReminderTrigger_ConcurrentTriggersFireOnce(t *testing.T) {
	f := newFixture(t)
	apt := f.appointmentAt(t, 13*60)

	var wg sync.WaitGroup
	outcomes := make(chan model.TriggerOutcome, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := f.svc.OnReminderTrigger(context.Background(), apt.ID, model.Reminder1Hour, SourceScheduler)
			if err == nil {
				outcomes <- outcome
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	fired := 0
	for outcome := range outcomes {
		if outcome == model.OutcomeFired {
			fired++
		}
	}
	assert.Equal(t, 1, fired, "exactly one concurrent trigger may win the claim")
	assert.Equal(t, 1, f.dispatcher.count())
}

func TestOnReminderTrigger_KindsAreIndependent(t *testing.T) {
	f := newFixture(t)
	apt := f.appointmentAt(t, 12*60+30) // 1hour fires 11:30, 30min fires 12:00
	ctx := context.Background()

	outcome, err := f.svc.OnReminderTrigger(ctx, apt.ID, model.Reminder30Min, SourceScheduler)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFired, outcome)

	// The 1hour reminder window (11:23..11:37) is long gone; its sent
	// marker stays untouched by the 30min fire.
	outcome, err = f.svc.OnReminderTrigger(ctx, apt.ID, model.Reminder1Hour, SourceSweep)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSkipOutOfWindow, outcome)

	stored, err := f.appointments.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Reminder1hSentAt)
	assert.NotNil(t, stored.Reminder30mSentAt)
}

func TestSweep_FiresDueReminder(t *testing.T) {
	f := newFixture(t)
	// Now is 12:00. Appointment at 12:55: the 1hour fire time 11:55 is
	// five minutes ago, inside tolerance.
	apt := f.appointmentAt(t, 12*60+55)
	ctx := context.Background()

	stats, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scanned)
	assert.Equal(t, 1, stats.Fired)
	assert.Equal(t, 1, f.dispatcher.count())

	// A second sweep right after skips the sent reminder.
	stats, err = f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Fired)
	assert.Equal(t, 1, f.dispatcher.count())

	stored, err := f.appointments.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.Reminder1hSentAt)
}

func TestSweep_IgnoresFarFutureAndTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Far future: outside the 2h horizon entirely.
	f.appointmentAt(t, 17*60)

	// Inside the horizon but not yet due: both fire times too far ahead.
	f.appointmentAt(t, 13*60+30)

	// Due but cancelled.
	cancelled := f.appointmentAt(t, 12*60+55)
	cancelled.Status = model.AppointmentStatusCancelled
	require.NoError(t, f.appointments.Update(ctx, cancelled))

	stats, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scanned, "terminal and out-of-horizon rows are not scanned")
	assert.Equal(t, 0, stats.Fired)
	assert.Equal(t, 0, f.dispatcher.count())
}

func TestSweep_PicksUpMissedTrigger(t *testing.T) {
	f := newFixture(t)
	// The scheduler never fired; the sweep at 12:00 catches the 30min
	// reminder for a 12:25 appointment (fire time 11:55).
	f.appointmentAt(t, 12*60+25)

	stats, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Fired)
}

func TestOnReminderTrigger_UnknownAppointment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.OnReminderTrigger(context.Background(), uuid.New(), model.Reminder1Hour, SourceScheduler)
	assert.True(t, apperrors.IsNotFound(err))
}
