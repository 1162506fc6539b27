package health

import (
	"sync"
	"time"
)

// DefaultRetention bounds how long samples stay in a window.
const DefaultRetention = time.Hour

// Window is a bounded, time-pruned, ordered buffer of health samples.
// Append and Aggregate are safe for concurrent use; a reader never observes
// a partially pruned window.
type Window struct {
	mu        sync.Mutex
	samples   []Sample
	retention time.Duration
	now       func() time.Time
}

// WindowOption configures a Window.
type WindowOption func(*Window)

// WithRetention overrides the default one-hour retention horizon.
func WithRetention(retention time.Duration) WindowOption {
	return func(w *Window) {
		if retention > 0 {
			w.retention = retention
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) WindowOption {
	return func(w *Window) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWindow creates an empty window with the default retention horizon.
func NewWindow(opts ...WindowOption) *Window {
	w := &Window{
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Append adds a sample and prunes entries older than the retention horizon.
// A zero timestamp is stamped with the current time.
func (w *Window) Append(sample Sample) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if sample.Timestamp.IsZero() {
		sample.Timestamp = w.now()
	}
	w.samples = append(w.samples, sample)
	w.pruneLocked()
}

// Len returns the number of retained samples.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked()
	return len(w.samples)
}

// Aggregate summarizes samples no older than the given span. Counts are
// summed and rates averaged; returns ErrInsufficientData when no sample
// falls within the span.
func (w *Window) Aggregate(span time.Duration) (Aggregate, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked()

	cutoff := w.now().Add(-span)
	agg := Aggregate{Span: span}
	for _, s := range w.samples {
		if s.Timestamp.Before(cutoff) {
			continue
		}
		agg.SampleCount++
		agg.RequestCount += s.RequestCount
		agg.SuccessfulRequests += s.SuccessfulRequests
		agg.FailedRequests += s.FailedRequests
		agg.BlockedRequests += s.BlockedRequests
		agg.FlaggedRequests += s.FlaggedRequests
		agg.AvgErrorRate += s.ErrorRate
		agg.AvgLatencyMS += s.AvgLatencyMS
		agg.AvgFalsePositive += s.FalsePositiveRate
	}

	if agg.SampleCount == 0 {
		return Aggregate{}, ErrInsufficientData
	}

	n := float64(agg.SampleCount)
	agg.AvgErrorRate /= n
	agg.AvgLatencyMS /= n
	agg.AvgFalsePositive /= n

	return agg, nil
}

// pruneLocked drops samples older than the retention horizon.
// Callers must hold the mutex.
func (w *Window) pruneLocked() {
	cutoff := w.now().Add(-w.retention)
	firstKept := len(w.samples)
	for i, s := range w.samples {
		if !s.Timestamp.Before(cutoff) {
			firstKept = i
			break
		}
	}
	if firstKept > 0 {
		w.samples = append(w.samples[:0], w.samples[firstKept:]...)
	}
}
