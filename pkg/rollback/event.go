package rollback

import (
	"fmt"
	"sync"
	"time"

	"github.com/dmitrymomot/releasekit/pkg/feature"
	"github.com/dmitrymomot/releasekit/pkg/health"
)

// Status is the lifecycle state of a rollback event.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// transitions lists the legal forward moves in the event lifecycle.
var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusFailed},
}

// Event records one rollback attempt, automatic or manual. Events are
// append-only audit records; once a terminal status is reached the event
// never changes again.
type Event struct {
	ID           string            `json:"id"`
	Trigger      Trigger           `json:"trigger"`
	Feature      string            `json:"feature"`
	Timestamp    time.Time         `json:"timestamp"`
	Status       Status            `json:"status"`
	Reason       string            `json:"reason"`
	Metrics      *health.Aggregate `json:"metrics,omitempty"`
	PreviousFlag *feature.Flag     `json:"previous_flag,omitempty"`
	Error        string            `json:"error,omitempty"`
	CompletedAt  time.Time         `json:"completed_at,omitzero"`
}

// transition moves the event to the next status, enforcing the lifecycle.
func (e *Event) transition(to Status) error {
	for _, allowed := range transitions[e.Status] {
		if allowed == to {
			e.Status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, to)
}

func (e *Event) clone() *Event {
	if e == nil {
		return nil
	}
	cp := *e
	if e.Metrics != nil {
		m := *e.Metrics
		cp.Metrics = &m
	}
	if e.PreviousFlag != nil {
		cp.PreviousFlag = clonedFlag(e.PreviousFlag)
	}
	return &cp
}

// clonedFlag copies a flag deeply enough that history callers cannot
// mutate controller state.
func clonedFlag(f *feature.Flag) *feature.Flag {
	cp := *f
	if f.TargetGroups != nil {
		cp.TargetGroups = append([]string(nil), f.TargetGroups...)
	}
	if f.Metadata != nil {
		cp.Metadata = make(map[string]any, len(f.Metadata))
		for k, v := range f.Metadata {
			cp.Metadata[k] = v
		}
	}
	if f.RollbackHistory != nil {
		cp.RollbackHistory = append([]feature.RollbackRecord(nil), f.RollbackHistory...)
	}
	return &cp
}

// History is an append-only, concurrency-safe record of rollback events
// in chronological order.
type History struct {
	mu     sync.Mutex
	events []*Event
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Append adds an event to the history.
func (h *History) Append(event *Event) {
	if event == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event.clone())
}

// List returns copies of all recorded events, oldest first.
func (h *History) List() []*Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]*Event, 0, len(h.events))
	for _, e := range h.events {
		result = append(result, e.clone())
	}
	return result
}

// Len returns the number of recorded events.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

// Find returns the recorded event with the given id.
func (h *History) Find(id string) (*Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.events {
		if e.ID == id {
			return e.clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEventNotFound, id)
}
