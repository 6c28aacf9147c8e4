// Package jobstore records the state history and outcome of every job.
package jobstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spherical/slide-converter/internal/domain"
)

// ErrNotFound is returned when no record exists for a job id.
var ErrNotFound = errors.New("job not found")

// Transition is one entry of a job's state history.
type Transition struct {
	State domain.JobState `json:"state"`
	At    time.Time       `json:"at"`
}

// Record is the persisted view of a job.
type Record struct {
	ID           string              `json:"id"`
	SourceURL    string              `json:"source_url"`
	SourceFormat domain.SourceFormat `json:"source_format"`
	State        domain.JobState     `json:"state"`
	Outcome      domain.Outcome      `json:"outcome,omitempty"`
	Message      string              `json:"message,omitempty"`
	PageCount    int                 `json:"page_count"`
	History      []Transition        `json:"history"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// Store defines the job history interface used by the pipeline and the API.
type Store interface {
	Create(ctx context.Context, job *domain.Job) error
	Transition(ctx context.Context, id string, state domain.JobState) error
	SetPageCount(ctx context.Context, id string, n int) error
	Finish(ctx context.Context, id string, outcome domain.Outcome, message string) error
	Get(ctx context.Context, id string) (*Record, error)
	Close() error
}

// Backend persists whole records. Load returns ErrNotFound for unknown ids.
type Backend interface {
	Load(ctx context.Context, id string) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Close() error
}

// Tracker implements Store on top of a Backend.
type Tracker struct {
	backend Backend
	now     func() time.Time
	mu      sync.Mutex
}

// NewTracker creates a store over the given backend.
func NewTracker(backend Backend) *Tracker {
	return &Tracker{backend: backend, now: time.Now}
}

// Create records a new job in the created state.
func (t *Tracker) Create(ctx context.Context, job *domain.Job) error {
	now := t.now().UTC()
	rec := &Record{
		ID:           job.ID,
		SourceURL:    job.SourceURL,
		SourceFormat: job.SourceFormat,
		State:        domain.StateCreated,
		History:      []Transition{{State: domain.StateCreated, At: now}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return t.backend.Save(ctx, rec)
}

// Transition appends state to the job's history.
func (t *Tracker) Transition(ctx context.Context, id string, state domain.JobState) error {
	return t.update(ctx, id, func(rec *Record, now time.Time) {
		rec.State = state
		rec.History = append(rec.History, Transition{State: state, At: now})
	})
}

// SetPageCount stores the counted number of pages.
func (t *Tracker) SetPageCount(ctx context.Context, id string, n int) error {
	return t.update(ctx, id, func(rec *Record, _ time.Time) {
		rec.PageCount = n
	})
}

// Finish stores the terminal outcome and the notified message.
func (t *Tracker) Finish(ctx context.Context, id string, outcome domain.Outcome, message string) error {
	return t.update(ctx, id, func(rec *Record, _ time.Time) {
		rec.Outcome = outcome
		rec.Message = message
	})
}

// Get returns the record for id.
func (t *Tracker) Get(ctx context.Context, id string) (*Record, error) {
	return t.backend.Load(ctx, id)
}

// Close closes the backend.
func (t *Tracker) Close() error {
	return t.backend.Close()
}

func (t *Tracker) update(ctx context.Context, id string, fn func(rec *Record, now time.Time)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, err := t.backend.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load job %s: %w", id, err)
	}

	now := t.now().UTC()
	fn(rec, now)
	rec.UpdatedAt = now

	return t.backend.Save(ctx, rec)
}
