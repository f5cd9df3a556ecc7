package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dandantas/scout/internal/model"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a research ID does not exist
	ErrNotFound = errors.New("research not found")

	// ErrInvalidTransition is returned when a mutation violates the forward-only
	// status order; it indicates a bug in the caller, not a client error
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Registry is the in-memory store of job records and the single source of truth
// for status queries. All mutation goes through Update; callers never hold a
// live record pointer.
//
// Records are kept for the process lifetime. An eviction policy (TTL sweep over
// Overdue-style enumeration) is the extension point if memory pressure ever
// becomes a concern.
type Registry struct {
	mu    sync.RWMutex
	jobs  map[string]*model.Job
	order []string // Creation order, for listing
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		jobs: make(map[string]*model.Job),
	}
}

// Create allocates a new job record with a fresh unique ID and pending status,
// and returns a snapshot of it
func (r *Registry) Create(topic string, params model.Parameters) model.Job {
	job := &model.Job{
		ID:          uuid.New().String(),
		Topic:       topic,
		Parameters:  params,
		Status:      model.StatusPending,
		CurrentStep: "Research queued",
		CreatedAt:   time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	r.order = append(r.order, job.ID)

	return job.Clone()
}

// Get returns a snapshot of the job, reflecting the most recently committed
// mutation
func (r *Registry) Get(id string) (model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, exists := r.jobs[id]
	if !exists {
		return model.Job{}, fmt.Errorf("research %q: %w", id, ErrNotFound)
	}
	return job.Clone(), nil
}

// Update applies fn to the job atomically. The mutation is applied to a copy
// and committed only if fn succeeds and any status change respects the
// forward-only transition order; otherwise the record is left untouched.
// Identity fields (ID, topic, parameters, creation time) cannot be changed.
func (r *Registry) Update(id string, fn func(*model.Job) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, exists := r.jobs[id]
	if !exists {
		return fmt.Errorf("research %q: %w", id, ErrNotFound)
	}

	updated := job.Clone()
	if err := fn(&updated); err != nil {
		return err
	}

	if updated.Status != job.Status && !job.Status.CanTransition(updated.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, updated.Status)
	}

	// Immutable fields
	updated.ID = job.ID
	updated.Topic = job.Topic
	updated.Parameters = job.Parameters
	updated.CreatedAt = job.CreatedAt

	*job = updated
	return nil
}

// List returns summaries of all jobs, newest first
func (r *Registry) List() []model.JobSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]model.JobSummary, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		summaries = append(summaries, r.jobs[r.order[i]].Summary())
	}
	return summaries
}

// Len returns the number of records in the registry
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Running returns the number of jobs not yet in a terminal state
func (r *Registry) Running() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, job := range r.jobs {
		if !job.Status.Terminal() {
			count++
		}
	}
	return count
}

// Overdue returns summaries of running jobs that have exceeded their time
// budget by more than grace
func (r *Registry) Overdue(grace time.Duration) []model.JobSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now().UTC()
	var overdue []model.JobSummary
	for _, job := range r.jobs {
		if job.Status != model.StatusRunning {
			continue
		}
		deadline := job.CreatedAt.Add(job.Parameters.TimeBudget() + grace)
		if now.After(deadline) {
			overdue = append(overdue, job.Summary())
		}
	}
	return overdue
}
