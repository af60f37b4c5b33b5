package model

import "fmt"

// WorkerID identifies a staff member. The set is closed and comes from
// configuration; core logic never mentions concrete names.
type WorkerID string

func (w WorkerID) String() string { return string(w) }

// Worker is a registry entry.
type Worker struct {
	ID   WorkerID `json:"id"`
	Name string   `json:"name"`
}

// WorkerRegistry is the closed set of bookable workers.
type WorkerRegistry struct {
	workers map[WorkerID]Worker
	order   []Worker
}

func NewWorkerRegistry(workers []Worker) *WorkerRegistry {
	r := &WorkerRegistry{workers: make(map[WorkerID]Worker, len(workers))}
	for _, w := range workers {
		if _, ok := r.workers[w.ID]; ok {
			continue
		}
		r.workers[w.ID] = w
		r.order = append(r.order, w)
	}
	return r
}

func (r *WorkerRegistry) Contains(id WorkerID) bool {
	_, ok := r.workers[id]
	return ok
}

func (r *WorkerRegistry) Get(id WorkerID) (Worker, error) {
	w, ok := r.workers[id]
	if !ok {
		return Worker{}, fmt.Errorf("unknown worker %q", id)
	}
	return w, nil
}

func (r *WorkerRegistry) List() []Worker {
	out := make([]Worker, len(r.order))
	copy(out, r.order)
	return out
}
