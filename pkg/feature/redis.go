package feature

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "releasekit"

// RedisStore is a Redis-backed implementation of the Store interface.
// Flags are stored as JSON blobs under "<prefix>:flag:<name>" with a set
// index at "<prefix>:flags" for listing. Read-modify-write operations are
// serialized through an internal mutex; cross-process writers should route
// mutations through a single controller instance.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	mu     sync.Mutex
	now    func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the default key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRedisClock overrides the time source. Intended for tests.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRedisStore creates a Redis-backed feature flag store.
// The client must already be connected; the store takes ownership and
// closes it on Close.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, errors.Join(ErrStoreUnavailable, errors.New("redis client cannot be nil"))
	}

	s := &RedisStore{
		client: client,
		prefix: defaultKeyPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStore) flagKey(name string) string {
	return s.prefix + ":flag:" + name
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":flags"
}

// Get retrieves a flag by name.
func (s *RedisStore) Get(ctx context.Context, name string) (*Flag, error) {
	data, err := s.client.Get(ctx, s.flagKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrFlagNotFound
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	var flag Flag
	if err := json.Unmarshal(data, &flag); err != nil {
		return nil, errors.Join(ErrInvalidFlag, err)
	}
	return &flag, nil
}

// List returns all flags registered in the index.
func (s *RedisStore) List(ctx context.Context) ([]*Flag, error) {
	names, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	slices.Sort(names)

	result := make([]*Flag, 0, len(names))
	for _, name := range names {
		flag, err := s.Get(ctx, name)
		if err != nil {
			if errors.Is(err, ErrFlagNotFound) {
				continue // Index entry without a value; skip rather than fail the listing
			}
			return nil, err
		}
		result = append(result, flag)
	}
	return result, nil
}

// Exists reports whether a flag with the given name exists.
func (s *RedisStore) Exists(ctx context.Context, name string) bool {
	n, err := s.client.Exists(ctx, s.flagKey(name)).Result()
	return err == nil && n > 0
}

// Enable creates the flag if absent and turns it on with the given rollout
// state.
func (s *RedisStore) Enable(ctx context.Context, name string, stage Stage, percentage float64, groups ...string) (*Flag, error) {
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
	flag, err := s.Get(ctx, name)
	if err != nil {
		if !errors.Is(err, ErrFlagNotFound) {
			return nil, err
		}
		flag = &Flag{Name: name, CreatedAt: now}
	}

	flag.Enabled = true
	flag.Stage = stage
	flag.RolloutPercentage = percentage
	flag.TargetGroups = slices.Clone(groups)
	flag.UpdatedAt = now

	if err := s.save(ctx, flag); err != nil {
		return nil, err
	}
	return flag, nil
}

// Disable turns the flag off and resets its stage.
func (s *RedisStore) Disable(ctx context.Context, name string) (*Flag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flag, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	s.disableFlag(flag)

	if err := s.save(ctx, flag); err != nil {
		return nil, err
	}
	return flag, nil
}

// Rollback disables the flag and records the pre-rollback state.
func (s *RedisStore) Rollback(ctx context.Context, name, reason string) (*Flag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flag, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	record := RollbackRecord{
		Timestamp:          s.now(),
		Reason:             reason,
		PreviousStage:      flag.Stage,
		PreviousPercentage: flag.RolloutPercentage,
	}
	s.disableFlag(flag)
	flag.RollbackHistory = append(flag.RollbackHistory, record)

	if err := s.save(ctx, flag); err != nil {
		return nil, err
	}
	return flag, nil
}

func (s *RedisStore) disableFlag(flag *Flag) {
	flag.Enabled = false
	flag.Stage = StageDisabled
	flag.UpdatedAt = s.now()
}

func (s *RedisStore) save(ctx context.Context, flag *Flag) error {
	data, err := json.Marshal(flag)
	if err != nil {
		return errors.Join(ErrInvalidFlag, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.flagKey(flag.Name), data, 0)
	pipe.SAdd(ctx, s.indexKey(), flag.Name)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
