package feature

import "context"

// Store is the interface that all feature flag stores must implement.
// Flags are never deleted through the store; a rollout is retired by
// disabling its flag so the rollback history survives.
type Store interface {
	// Get returns the full flag configuration.
	// If the flag doesn't exist, it returns nil and ErrFlagNotFound.
	Get(ctx context.Context, name string) (*Flag, error)

	// List returns all flags known to the store.
	List(ctx context.Context) ([]*Flag, error)

	// Exists reports whether a flag with the given name exists.
	Exists(ctx context.Context, name string) bool

	// Enable creates the flag if absent and turns it on with the given
	// stage, rollout percentage, and target groups.
	Enable(ctx context.Context, name string, stage Stage, percentage float64, groups ...string) (*Flag, error)

	// Disable turns the flag off and resets its stage to StageDisabled.
	// If the flag doesn't exist, it returns ErrFlagNotFound.
	Disable(ctx context.Context, name string) (*Flag, error)

	// Rollback disables the flag and appends a RollbackRecord capturing
	// the pre-rollback stage and percentage.
	Rollback(ctx context.Context, name, reason string) (*Flag, error)

	// Close releases any resources used by the store.
	Close() error
}
