package feature

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of the Store interface.
// It's useful for testing and single-process deployments.
type MemoryStore struct {
	flags map[string]*Flag
	mu    sync.RWMutex
	now   func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source. Intended for tests that need
// deterministic timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates a new in-memory feature flag store, optionally
// seeded with initial flags.
func NewMemoryStore(initial []*Flag, opts ...MemoryOption) (*MemoryStore, error) {
	s := &MemoryStore{
		flags: make(map[string]*Flag),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, flag := range initial {
		if flag == nil {
			continue
		}
		if err := flag.Validate(); err != nil {
			return nil, err
		}
		cp := flag.clone()
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = s.now()
		}
		if cp.UpdatedAt.IsZero() {
			cp.UpdatedAt = cp.CreatedAt
		}
		s.flags[cp.Name] = cp
	}

	return s, nil
}

// Get retrieves a flag by name.
func (s *MemoryStore) Get(ctx context.Context, name string) (*Flag, error) {
	s.mu.RLock()
	flag, exists := s.flags[name]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrFlagNotFound
	}
	return flag.clone(), nil
}

// List returns all flags.
func (s *MemoryStore) List(ctx context.Context) ([]*Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Flag, 0, len(s.flags))
	for _, flag := range s.flags {
		result = append(result, flag.clone())
	}
	slices.SortFunc(result, func(a, b *Flag) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return result, nil
}

// Exists reports whether a flag with the given name exists.
func (s *MemoryStore) Exists(ctx context.Context, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.flags[name]
	return exists
}

// Enable creates the flag if absent and turns it on with the given rollout
// state. Existing creation time and rollback history are preserved.
func (s *MemoryStore) Enable(ctx context.Context, name string, stage Stage, percentage float64, groups ...string) (*Flag, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: flag name cannot be empty", ErrInvalidFlag)
	}
	if _, err := ParseStage(string(stage)); err != nil {
		return nil, err
	}
	if percentage < 0 || percentage > 100 {
		return nil, fmt.Errorf("%w: rollout percentage must be between 0 and 100, got %v",
			ErrInvalidFlag, percentage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	flag, exists := s.flags[name]
	if !exists {
		flag = &Flag{Name: name, CreatedAt: now}
		s.flags[name] = flag
	}

	flag.Enabled = true
	flag.Stage = stage
	flag.RolloutPercentage = percentage
	flag.TargetGroups = slices.Clone(groups)
	flag.UpdatedAt = now

	return flag.clone(), nil
}

// Disable turns the flag off and resets its stage.
func (s *MemoryStore) Disable(ctx context.Context, name string) (*Flag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flag, err := s.disableLocked(name)
	if err != nil {
		return nil, err
	}
	return flag.clone(), nil
}

// Rollback disables the flag and records the pre-rollback state in the
// flag's rollback history.
func (s *MemoryStore) Rollback(ctx context.Context, name, reason string) (*Flag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flag, exists := s.flags[name]
	if !exists {
		return nil, ErrFlagNotFound
	}

	record := RollbackRecord{
		Timestamp:          s.now(),
		Reason:             reason,
		PreviousStage:      flag.Stage,
		PreviousPercentage: flag.RolloutPercentage,
	}

	if _, err := s.disableLocked(name); err != nil {
		return nil, err
	}
	flag.RollbackHistory = append(flag.RollbackHistory, record)

	return flag.clone(), nil
}

// disableLocked mutates the flag in place; callers must hold the write lock.
func (s *MemoryStore) disableLocked(name string) (*Flag, error) {
	flag, exists := s.flags[name]
	if !exists {
		return nil, ErrFlagNotFound
	}
	flag.Enabled = false
	flag.Stage = StageDisabled
	flag.UpdatedAt = s.now()
	return flag, nil
}

// Close releases any resources. For the memory store, this is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
