// Package servicetest provides in-memory repository implementations for
// service unit tests.
package servicetest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/studio-api/internal/model"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
)

// AppointmentRepo keeps appointments in a map guarded by a mutex so tests
// can exercise the reminder claim race from multiple goroutines.
type AppointmentRepo struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*model.Appointment
	clock func() time.Time
}

func NewAppointmentRepo() *AppointmentRepo {
	return &AppointmentRepo{
		rows:  make(map[uuid.UUID]*model.Appointment),
		clock: time.Now,
	}
}

func (r *AppointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = r.clock()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	r.rows[a.ID] = &cp
	return nil
}

func (r *AppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return nil, apperrors.NewNotFound("appointment", nil)
	}
	cp := *a
	return &cp, nil
}

func (r *AppointmentRepo) Update(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[a.ID]; !ok {
		return apperrors.NewNotFound("appointment", nil)
	}
	a.UpdatedAt = r.clock()
	cp := *a
	r.rows[a.ID] = &cp
	return nil
}

func (r *AppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return apperrors.NewNotFound("appointment", nil)
	}
	delete(r.rows, id)
	return nil
}

func (r *AppointmentRepo) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, a := range r.rows {
		if filters != nil {
			if filters.WorkerID != "" && a.WorkerID != filters.WorkerID {
				continue
			}
			if filters.Status != "" && a.Status != filters.Status {
				continue
			}
			if !filters.StartDate.IsZero() && a.Date.Before(filters.StartDate) {
				continue
			}
			if !filters.EndDate.IsZero() && a.Date.After(filters.EndDate) {
				continue
			}
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *AppointmentRepo) ListForWorkerDate(_ context.Context, workerID model.WorkerID, date time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, a := range r.rows {
		if a.WorkerID != workerID || a.Status == model.AppointmentStatusCancelled {
			continue
		}
		ay, am, ad := a.Date.Date()
		dy, dm, dd := date.Date()
		if ay != dy || am != dm || ad != dd {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *AppointmentRepo) ListPendingInRange(_ context.Context, from, to time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc := from.Location()
	var out []*model.Appointment
	for _, a := range r.rows {
		if a.Status.Terminal() {
			continue
		}
		start := a.StartAt(loc)
		if start.Before(from) || !start.Before(to) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *AppointmentRepo) MarkReminderSent(_ context.Context, id uuid.UUID, kind model.ReminderKind, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return false, apperrors.NewNotFound("appointment", nil)
	}
	switch kind {
	case model.Reminder1Hour:
		if a.Reminder1hSentAt != nil {
			return false, nil
		}
		a.Reminder1hSentAt = &at
	case model.Reminder30Min:
		if a.Reminder30mSentAt != nil {
			return false, nil
		}
		a.Reminder30mSentAt = &at
	}
	return true, nil
}

func (r *AppointmentRepo) ClearReminderSent(_ context.Context, id uuid.UUID, kind model.ReminderKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return apperrors.NewNotFound("appointment", nil)
	}
	switch kind {
	case model.Reminder1Hour:
		a.Reminder1hSentAt = nil
	case model.Reminder30Min:
		a.Reminder30mSentAt = nil
	}
	return nil
}

// AvailabilityRepo is a fixture-style rule store.
type AvailabilityRepo struct {
	Hours   map[model.WorkerID]*model.BusinessHours
	DaysOff map[model.WorkerID][]model.WeeklyDayOff
	Dates   map[model.WorkerID][]model.UnavailableDate
	Times   map[model.WorkerID][]model.UnavailableTime
}

func NewAvailabilityRepo() *AvailabilityRepo {
	return &AvailabilityRepo{
		Hours:   make(map[model.WorkerID]*model.BusinessHours),
		DaysOff: make(map[model.WorkerID][]model.WeeklyDayOff),
		Dates:   make(map[model.WorkerID][]model.UnavailableDate),
		Times:   make(map[model.WorkerID][]model.UnavailableTime),
	}
}

func (r *AvailabilityRepo) UpsertBusinessHours(_ context.Context, hours *model.BusinessHours) error {
	if hours.ID == uuid.Nil {
		hours.ID = uuid.New()
	}
	cp := *hours
	r.Hours[hours.WorkerID] = &cp
	return nil
}

func (r *AvailabilityRepo) GetBusinessHours(_ context.Context, workerID model.WorkerID) (*model.BusinessHours, error) {
	h, ok := r.Hours[workerID]
	if !ok {
		return nil, apperrors.NewNotFound("business hours", nil)
	}
	cp := *h
	return &cp, nil
}

func (r *AvailabilityRepo) CreateDayOff(_ context.Context, dayOff *model.WeeklyDayOff) error {
	// Mirrors the insert's ON CONFLICT (worker_id, weekday) DO NOTHING.
	for _, d := range r.DaysOff[dayOff.WorkerID] {
		if d.Weekday == dayOff.Weekday {
			return nil
		}
	}
	if dayOff.ID == uuid.Nil {
		dayOff.ID = uuid.New()
	}
	r.DaysOff[dayOff.WorkerID] = append(r.DaysOff[dayOff.WorkerID], *dayOff)
	return nil
}

func (r *AvailabilityRepo) DeleteDayOff(_ context.Context, workerID model.WorkerID, id uuid.UUID) error {
	list := r.DaysOff[workerID]
	for i, d := range list {
		if d.ID == id {
			r.DaysOff[workerID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return apperrors.NewNotFound("day off", nil)
}

func (r *AvailabilityRepo) ListDaysOff(_ context.Context, workerID model.WorkerID) ([]model.WeeklyDayOff, error) {
	return append([]model.WeeklyDayOff(nil), r.DaysOff[workerID]...), nil
}

func (r *AvailabilityRepo) CreateUnavailableDate(_ context.Context, d *model.UnavailableDate) error {
	// Mirrors the insert's ON CONFLICT (worker_id, date) DO NOTHING.
	for _, existing := range r.Dates[d.WorkerID] {
		if sameDay(existing.Date, d.Date) {
			return nil
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.Dates[d.WorkerID] = append(r.Dates[d.WorkerID], *d)
	return nil
}

func (r *AvailabilityRepo) DeleteUnavailableDate(_ context.Context, workerID model.WorkerID, id uuid.UUID) error {
	list := r.Dates[workerID]
	for i, d := range list {
		if d.ID == id {
			r.Dates[workerID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return apperrors.NewNotFound("unavailable date", nil)
}

func (r *AvailabilityRepo) ListUnavailableDates(_ context.Context, workerID model.WorkerID) ([]model.UnavailableDate, error) {
	return append([]model.UnavailableDate(nil), r.Dates[workerID]...), nil
}

func (r *AvailabilityRepo) CreateUnavailableTime(_ context.Context, t *model.UnavailableTime) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.Times[t.WorkerID] = append(r.Times[t.WorkerID], *t)
	return nil
}

func (r *AvailabilityRepo) DeleteUnavailableTime(_ context.Context, workerID model.WorkerID, id uuid.UUID) error {
	list := r.Times[workerID]
	for i, t := range list {
		if t.ID == id {
			r.Times[workerID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return apperrors.NewNotFound("unavailable time", nil)
}

func (r *AvailabilityRepo) ListUnavailableTimes(_ context.Context, workerID model.WorkerID, date time.Time) ([]model.UnavailableTime, error) {
	var out []model.UnavailableTime
	for _, t := range r.Times[workerID] {
		if sameDay(t.Date, date) {
			out = append(out, t)
		}
	}
	return out, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DestinationRepo is an in-memory push destination store.
type DestinationRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*model.PushDestination
}

func NewDestinationRepo() *DestinationRepo {
	return &DestinationRepo{rows: make(map[uuid.UUID]*model.PushDestination)}
}

func (r *DestinationRepo) Create(_ context.Context, d *model.PushDestination) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	cp := *d
	r.rows[d.ID] = &cp
	return nil
}

func (r *DestinationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return apperrors.NewNotFound("destination", nil)
	}
	delete(r.rows, id)
	return nil
}

func (r *DestinationRepo) ListForWorker(_ context.Context, workerID model.WorkerID) ([]*model.PushDestination, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PushDestination
	for _, d := range r.rows {
		if d.WorkerID == workerID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// OutboxRepo records events for assertions.
type OutboxRepo struct {
	mu     sync.Mutex
	Events []*model.OutboxEvent
}

func NewOutboxRepo() *OutboxRepo { return &OutboxRepo{} }

func (r *OutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	cp := *event
	r.Events = append(r.Events, &cp)
	return nil
}

func (r *OutboxRepo) GetPendingEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.OutboxEvent
	for _, e := range r.Events {
		if e.Status == model.OutboxStatusPending || e.Status == model.OutboxStatusRetry {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *OutboxRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, _ *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.Events {
		if e.ID == id {
			e.Status = status
			e.ErrorMessage = errorMessage
			return nil
		}
	}
	return apperrors.NewNotFound("event", nil)
}

func (r *OutboxRepo) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	return 0, nil
}

// EventTypes returns the recorded event types in creation order.
func (r *OutboxRepo) EventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.EventType)
	}
	return out
}

// ExpenseRepo is an in-memory expense store.
type ExpenseRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*model.Expense
}

func NewExpenseRepo() *ExpenseRepo {
	return &ExpenseRepo{rows: make(map[uuid.UUID]*model.Expense)}
}

func (r *ExpenseRepo) Create(_ context.Context, e *model.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	r.rows[e.ID] = &cp
	return nil
}

func (r *ExpenseRepo) Get(_ context.Context, id uuid.UUID) (*model.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok {
		return nil, apperrors.NewNotFound("expense", nil)
	}
	cp := *e
	return &cp, nil
}

func (r *ExpenseRepo) Update(_ context.Context, e *model.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[e.ID]; !ok {
		return apperrors.NewNotFound("expense", nil)
	}
	cp := *e
	r.rows[e.ID] = &cp
	return nil
}

func (r *ExpenseRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return apperrors.NewNotFound("expense", nil)
	}
	delete(r.rows, id)
	return nil
}

func (r *ExpenseRepo) List(_ context.Context, filters *model.ExpenseFilters) ([]*model.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Expense
	for _, e := range r.rows {
		if filters != nil {
			if filters.WorkerID != "" && e.WorkerID != filters.WorkerID {
				continue
			}
			if filters.Category != "" && e.Category != filters.Category {
				continue
			}
			if !filters.StartDate.IsZero() && e.Date.Before(filters.StartDate) {
				continue
			}
			if !filters.EndDate.IsZero() && e.Date.After(filters.EndDate) {
				continue
			}
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}
