package feature

import (
	"fmt"
	"slices"
	"time"
)

// Stage represents a coarse-grained rollout phase bounding how widely
// a flag is enrolled.
type Stage string

const (
	StageDisabled Stage = "disabled"
	StageCanary   Stage = "canary"
	StageBeta     Stage = "beta"
	StageStaged   Stage = "staged"
	StageFull     Stage = "full"
)

// ParseStage converts a string into a Stage.
// Returns ErrInvalidStage for unknown values.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageDisabled, StageCanary, StageBeta, StageStaged, StageFull:
		return Stage(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStage, s)
	}
}

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// RollbackRecord captures the flag state at the moment a rollback
// disabled it. Records are append-only.
type RollbackRecord struct {
	Timestamp          time.Time `json:"timestamp"`
	Reason             string    `json:"reason"`
	PreviousStage      Stage     `json:"previous_stage"`
	PreviousPercentage float64   `json:"previous_percentage"`
}

// Flag represents a feature flag with its rollout configuration.
// Flags are never deleted, only disabled; RollbackHistory grows
// monotonically across rollbacks.
type Flag struct {
	Name              string           `json:"name"`
	Description       string           `json:"description,omitempty"`
	Enabled           bool             `json:"enabled"`
	Stage             Stage            `json:"stage"`
	RolloutPercentage float64          `json:"rollout_percentage"`
	TargetGroups      []string         `json:"target_groups,omitempty"`
	Metadata          map[string]any   `json:"metadata,omitempty"`
	RollbackHistory   []RollbackRecord `json:"rollback_history,omitempty"`
	CreatedAt         time.Time        `json:"created_at,omitzero"`
	UpdatedAt         time.Time        `json:"updated_at,omitzero"`
}

// Validate checks that the flag parameters are internally consistent.
func (f *Flag) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: flag name cannot be empty", ErrInvalidFlag)
	}
	if f.RolloutPercentage < 0 || f.RolloutPercentage > 100 {
		return fmt.Errorf("%w: rollout percentage must be between 0 and 100, got %v",
			ErrInvalidFlag, f.RolloutPercentage)
	}
	if f.Stage != "" {
		if _, err := ParseStage(string(f.Stage)); err != nil {
			return err
		}
	}
	return nil
}

// clone returns a deep copy so store internals cannot be mutated by callers.
func (f *Flag) clone() *Flag {
	cp := *f
	if f.TargetGroups != nil {
		cp.TargetGroups = slices.Clone(f.TargetGroups)
	}
	if f.RollbackHistory != nil {
		cp.RollbackHistory = slices.Clone(f.RollbackHistory)
	}
	if f.Metadata != nil {
		cp.Metadata = make(map[string]any, len(f.Metadata))
		for k, v := range f.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
