package rollback

import (
	"fmt"
	"time"
)

// Trigger identifies the condition kind that caused a rollback.
type Trigger string

const (
	TriggerHighErrorRate         Trigger = "high_error_rate"
	TriggerHighLatency           Trigger = "high_latency"
	TriggerHighFalsePositiveRate Trigger = "high_false_positive_rate"
	TriggerHealthCheckFailure    Trigger = "health_check_failure"
	TriggerManual                Trigger = "manual"
)

// Triggers lists all known trigger kinds.
var Triggers = []Trigger{
	TriggerHighErrorRate,
	TriggerHighLatency,
	TriggerHighFalsePositiveRate,
	TriggerHealthCheckFailure,
	TriggerManual,
}

// ParseTrigger converts a string into a Trigger, returning
// ErrInvalidTrigger for unknown values.
func ParseTrigger(s string) (Trigger, error) {
	for _, t := range Triggers {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTrigger, s)
}

// Rule describes one automatic rollback condition. The threshold is
// interpreted per trigger kind: a ratio in [0,1] for error and false
// positive rates, milliseconds for latency, and a consecutive-failure
// count for health checks.
type Rule struct {
	Trigger     Trigger       `yaml:"trigger" json:"trigger"`
	Threshold   float64       `yaml:"threshold" json:"threshold"`
	Window      time.Duration `yaml:"window" json:"window"`
	MinRequests int           `yaml:"min_requests" json:"min_requests"`
	Enabled     bool          `yaml:"enabled" json:"enabled"`
}

// Validate checks the rule for internal consistency.
func (r Rule) Validate() error {
	if _, err := ParseTrigger(string(r.Trigger)); err != nil {
		return err
	}
	if r.Trigger == TriggerManual {
		return fmt.Errorf("%w: manual trigger cannot be used in a rule", ErrInvalidConfig)
	}
	if r.Threshold <= 0 {
		return fmt.Errorf("%w: rule %s threshold must be positive", ErrInvalidConfig, r.Trigger)
	}
	if r.Trigger != TriggerHealthCheckFailure && r.Window <= 0 {
		return fmt.Errorf("%w: rule %s window must be positive", ErrInvalidConfig, r.Trigger)
	}
	if r.MinRequests < 0 {
		return fmt.Errorf("%w: rule %s min_requests cannot be negative", ErrInvalidConfig, r.Trigger)
	}
	return nil
}
