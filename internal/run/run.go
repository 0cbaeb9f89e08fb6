// Package run provides the Run aggregate that records one generation pass,
// with its state machine, counters and persistence.
package run

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/maauso/offervideo/internal/pipeline"
	"github.com/maauso/offervideo/internal/run/id"
)

// Status represents the current state of a Run.
type Status string

const (
	// StatusInQueue indicates the run was accepted but has not started.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the pipeline is executing.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the pipeline finished. Individual offers
	// may still have failed; see the counters.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the pipeline aborted before or during
	// scheduling.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusFailed},
	StatusRunning:   {StatusCompleted, StatusFailed},
	StatusCompleted: {},
	StatusFailed:    {},
}

func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Run is one generation pass over a set of feeds.
type Run struct {
	mu sync.RWMutex

	// ID is the unique identifier for this run.
	ID string
	// Status is the current run state.
	Status Status
	// Feeds lists the feed files requested; empty means every feed.
	Feeds []string
	// Summary holds the counters once the run completes.
	Summary pipeline.Summary
	// Error contains the failure message if the run failed.
	Error string
	// CreatedAt is when the run was accepted.
	CreatedAt time.Time
	// UpdatedAt is when the run was last updated.
	UpdatedAt time.Time
	// StartedAt is when the pipeline started.
	StartedAt time.Time
	// CompletedAt is when the run reached a terminal state.
	CompletedAt time.Time
}

// New creates a new Run with a generated ID and initial IN_QUEUE status.
func New(feeds []string) *Run {
	return NewWithID(id.Generate(), feeds)
}

// NewWithID creates a new Run with the specified ID and initial IN_QUEUE status.
func NewWithID(runID string, feeds []string) *Run {
	now := time.Now()
	return &Run{
		ID:        runID,
		Status:    StatusInQueue,
		Feeds:     slices.Clone(feeds),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the run status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (r *Run) TransitionTo(status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !canTransition(r.Status, status) {
		return ErrInvalidTransition
	}

	r.Status = status
	r.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		r.StartedAt = r.UpdatedAt
	case StatusCompleted, StatusFailed:
		r.CompletedAt = r.UpdatedAt
	}

	return nil
}

// Start transitions the run from IN_QUEUE to RUNNING.
func (r *Run) Start() error {
	return r.TransitionTo(StatusRunning)
}

// Complete records the summary and transitions the run to COMPLETED.
func (r *Run) Complete(sum pipeline.Summary) error {
	if err := r.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	r.mu.Lock()
	r.Summary = sum
	r.mu.Unlock()
	return nil
}

// Fail records errMsg and transitions the run to FAILED.
func (r *Run) Fail(errMsg string) error {
	if err := r.TransitionTo(StatusFailed); err != nil {
		return err
	}
	r.mu.Lock()
	r.Error = errMsg
	r.mu.Unlock()
	return nil
}

// GetStatus returns the current run status (thread-safe).
func (r *Run) GetStatus() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// IsTerminal returns true if the run is in a terminal state.
func (r *Run) IsTerminal() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Clone creates a deep copy of the run for safe reads.
func (r *Run) Clone() *Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &Run{
		ID:          r.ID,
		Status:      r.Status,
		Feeds:       slices.Clone(r.Feeds),
		Summary:     r.Summary,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}
