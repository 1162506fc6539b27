package feature

import (
	"context"
	"hash/fnv"
	"slices"
)

// Extractor function types for retrieving enrollment data from context.
// They keep the rollout engine decoupled from how callers model identity.
type (
	IdentityExtractor func(ctx context.Context) string
	GroupsExtractor   func(ctx context.Context) []string
)

// Evaluate decides whether a flag is enabled for the given identity and
// groups. The decision is deterministic and side-effect free:
//
//  1. A disabled flag is off for everyone.
//  2. StageDisabled is off and StageFull is on regardless of targeting.
//  3. Membership in any target group enables the flag.
//  4. With an identity, a stable FNV-1a bucket of "name:identity" in [0,100)
//     is compared against the rollout percentage (sticky assignment).
//  5. Without an identity, only a 100% rollout enables the flag.
func Evaluate(flag *Flag, identity string, groups []string) bool {
	if flag == nil || !flag.Enabled {
		return false
	}

	switch flag.Stage {
	case StageDisabled:
		return false
	case StageFull:
		return true
	}

	for _, g := range groups {
		if slices.Contains(flag.TargetGroups, g) {
			return true
		}
	}

	if identity != "" {
		return float64(Bucket(flag.Name, identity)) < flag.RolloutPercentage
	}

	return flag.RolloutPercentage >= 100.0
}

// Bucket maps an identity to a stable bucket in [0,100) for the given flag
// name. The same identity always lands in the same bucket for a flag, while
// buckets for different flags are independent.
func Bucket(flagName, identity string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(flagName))
	h.Write([]byte(":"))
	h.Write([]byte(identity))
	return h.Sum32() % 100
}

// Engine evaluates flags held by a Store using context extractors to
// resolve the caller's identity and group membership.
type Engine struct {
	store             Store
	identityExtractor IdentityExtractor
	groupsExtractor   GroupsExtractor
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithIdentityExtractor sets the identity extractor for the engine.
func WithIdentityExtractor(extractor IdentityExtractor) EngineOption {
	return func(e *Engine) {
		e.identityExtractor = extractor
	}
}

// WithGroupsExtractor sets the group membership extractor for the engine.
func WithGroupsExtractor(extractor GroupsExtractor) EngineOption {
	return func(e *Engine) {
		e.groupsExtractor = extractor
	}
}

// NewEngine creates a rollout decision engine over the given store.
func NewEngine(store Store, opts ...EngineOption) *Engine {
	e := &Engine{store: store}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsEnabled checks whether the named flag is enabled for the caller
// described by ctx. Returns ErrFlagNotFound for unknown flags; use
// Store.Exists to probe for existence without an error.
func (e *Engine) IsEnabled(ctx context.Context, name string) (bool, error) {
	flag, err := e.store.Get(ctx, name)
	if err != nil {
		return false, err
	}

	var identity string
	if e.identityExtractor != nil {
		identity = e.identityExtractor(ctx)
	}
	var groups []string
	if e.groupsExtractor != nil {
		groups = e.groupsExtractor(ctx)
	}

	return Evaluate(flag, identity, groups), nil
}
