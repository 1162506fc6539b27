package rollback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/releasekit/pkg/artifact"
	"github.com/dmitrymomot/releasekit/pkg/feature"
	"github.com/dmitrymomot/releasekit/pkg/health"
)

// Default controller tunables, applied when the config leaves them zero.
const (
	DefaultCooldown      = 30 * time.Minute
	DefaultDailyQuota    = 5
	DefaultCheckInterval = time.Minute
	DefaultMetricsWindow = 5 * time.Minute
)

// MetricsSource produces point-in-time health samples, polled once per
// check interval.
type MetricsSource interface {
	Sample(ctx context.Context) (health.Sample, error)
}

// HealthChecker reports consecutive health probe failures for the
// health-check trigger.
type HealthChecker interface {
	ConsecutiveFailures(ctx context.Context) int
}

// Persister durably saves controller-owned state after a rollback
// completes, typically the deployment configuration document.
type Persister interface {
	Persist(ctx context.Context) error
}

// Notifier delivers rollback event notifications. Implementations must
// not block; delivery failures are the notifier's concern.
type Notifier interface {
	Notify(ctx context.Context, event *Event)
}

// logNotifier is the default notifier, writing events to the structured log.
type logNotifier struct {
	log *slog.Logger
}

func (n logNotifier) Notify(ctx context.Context, event *Event) {
	n.log.InfoContext(ctx, "rollback event",
		slog.String("event_id", event.ID),
		slog.String("feature", event.Feature),
		slog.String("trigger", string(event.Trigger)),
		slog.String("status", string(event.Status)),
		slog.String("reason", event.Reason),
	)
}

// Config holds the rollback controller settings.
type Config struct {
	// Enabled gates the automatic evaluation loop. Manual rollbacks work
	// regardless.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Cooldown is the minimum spacing between completed rollbacks.
	Cooldown time.Duration `yaml:"cooldown" json:"cooldown"`

	// DailyQuota caps completed rollbacks per calendar day (UTC).
	DailyQuota int `yaml:"daily_quota" json:"daily_quota"`

	// CheckInterval is the automatic evaluation period.
	CheckInterval time.Duration `yaml:"check_interval" json:"check_interval"`

	// Rules are the automatic trigger conditions.
	Rules []Rule `yaml:"rules" json:"rules"`

	// FeatureByTrigger maps each trigger kind to the feature flag it
	// rolls back. Rules whose trigger has no mapping are skipped.
	FeatureByTrigger map[Trigger]string `yaml:"feature_by_trigger" json:"feature_by_trigger"`
}

func (c *Config) applyDefaults() {
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.DailyQuota <= 0 {
		c.DailyQuota = DefaultDailyQuota
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
}

// Controller watches health metrics and rolls back feature flags when
// trigger rules fire. Guard checks, event creation, and execution happen
// under a single mutex so two concurrent triggers can never both pass the
// cooldown and quota gates.
type Controller struct {
	mu  sync.Mutex
	cfg Config

	flags     feature.Store
	artifacts *artifact.Manager
	window    *health.Window
	metrics   MetricsSource
	checker   HealthChecker
	persister Persister
	notifier  Notifier
	log       *slog.Logger
	now       func() time.Time

	lastRollback   time.Time
	rollbacksToday int
	quotaDay       time.Time
	inFlight       map[string]*Event
	history        *History
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithArtifactManager wires the artifact manager so false-positive
// rollbacks can also revert the active pack version.
func WithArtifactManager(m *artifact.Manager) ControllerOption {
	return func(c *Controller) {
		c.artifacts = m
	}
}

// WithMetricsSource sets the sampler polled each check interval.
func WithMetricsSource(src MetricsSource) ControllerOption {
	return func(c *Controller) {
		c.metrics = src
	}
}

// WithHealthChecker sets the probe-failure source for the
// health-check-failure trigger.
func WithHealthChecker(hc HealthChecker) ControllerOption {
	return func(c *Controller) {
		c.checker = hc
	}
}

// WithPersister sets the durable-save hook invoked after a rollback
// mutates flag state.
func WithPersister(p Persister) ControllerOption {
	return func(c *Controller) {
		c.persister = p
	}
}

// WithNotifier overrides the default log-based notifier.
func WithNotifier(n Notifier) ControllerOption {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithControllerClock overrides the time source. Intended for tests.
func WithControllerClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController creates a rollback controller over the given flag store
// and health window.
func NewController(flags feature.Store, window *health.Window, cfg Config, opts ...ControllerOption) (*Controller, error) {
	if flags == nil {
		return nil, fmt.Errorf("%w: flag store cannot be nil", ErrInvalidConfig)
	}
	if window == nil {
		return nil, fmt.Errorf("%w: health window cannot be nil", ErrInvalidConfig)
	}
	for _, rule := range cfg.Rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}
	}
	cfg.applyDefaults()

	c := &Controller{
		cfg:      cfg,
		flags:    flags,
		window:   window,
		log:      slog.Default(),
		now:      time.Now,
		inFlight: make(map[string]*Event),
		history:  NewHistory(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = logNotifier{log: c.log}
	}
	return c, nil
}

// History returns the controller's audit trail.
func (c *Controller) History() *History {
	return c.history
}

// Run evaluates trigger rules on the configured interval until the
// context is cancelled. Returns ErrDisabled when automatic rollback is
// turned off.
func (c *Controller) Run(ctx context.Context) error {
	if !c.cfg.Enabled {
		return ErrDisabled
	}

	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check performs one evaluation cycle: polls the metrics source into the
// health window, then evaluates every enabled rule. Guard rejections
// (cooldown, quota, in-flight) are logged at debug level and do not stop
// the cycle.
func (c *Controller) Check(ctx context.Context) {
	if c.metrics != nil {
		sample, err := c.metrics.Sample(ctx)
		if err != nil {
			c.log.WarnContext(ctx, "metrics sampling failed", slog.Any("error", err))
		} else {
			c.window.Append(sample)
		}
	}

	for _, rule := range c.cfg.Rules {
		if !rule.Enabled {
			continue
		}
		if err := c.evaluateRule(ctx, rule); err != nil &&
			!errors.Is(err, ErrCooldownActive) &&
			!errors.Is(err, ErrDailyQuotaExceeded) &&
			!errors.Is(err, ErrRollbackInProgress) &&
			!errors.Is(err, ErrNoTargetFeature) {
			c.log.ErrorContext(ctx, "rollback rule evaluation failed",
				slog.String("trigger", string(rule.Trigger)),
				slog.Any("error", err),
			)
		}
	}
}

// evaluateRule checks one rule against current health and rolls back the
// mapped feature when the rule fires.
func (c *Controller) evaluateRule(ctx context.Context, rule Rule) error {
	target, ok := c.cfg.FeatureByTrigger[rule.Trigger]
	if !ok || target == "" {
		return fmt.Errorf("%w: %s", ErrNoTargetFeature, rule.Trigger)
	}

	if rule.Trigger == TriggerHealthCheckFailure {
		if c.checker == nil {
			return nil
		}
		failures := c.checker.ConsecutiveFailures(ctx)
		if float64(failures) < rule.Threshold {
			return nil
		}
		reason := fmt.Sprintf("health check failed %d consecutive times (threshold %.0f)",
			failures, rule.Threshold)
		_, err := c.attempt(ctx, rule.Trigger, target, reason, nil)
		return err
	}

	agg, err := c.window.Aggregate(rule.Window)
	if err != nil {
		if errors.Is(err, health.ErrInsufficientData) {
			return nil
		}
		return err
	}
	if agg.RequestCount < rule.MinRequests {
		return nil
	}

	var observed float64
	switch rule.Trigger {
	case TriggerHighErrorRate:
		observed = agg.ErrorRatio()
	case TriggerHighLatency:
		observed = agg.AvgLatencyMS
	case TriggerHighFalsePositiveRate:
		observed = agg.AvgFalsePositive
	default:
		return fmt.Errorf("%w: %s", ErrInvalidTrigger, rule.Trigger)
	}
	if observed <= rule.Threshold {
		return nil
	}

	reason := fmt.Sprintf("%s observed %.4f over %s, threshold %.4f (%d requests)",
		rule.Trigger, observed, rule.Window, rule.Threshold, agg.RequestCount)
	_, err = c.attempt(ctx, rule.Trigger, target, reason, &agg)
	return err
}

// ManualRollback disables the feature through the same guarded path as
// an automatic rollback: cooldown, daily quota, and the per-feature
// in-flight slot all apply, with the guard rejection returned to the
// caller for retry later.
func (c *Controller) ManualRollback(ctx context.Context, featureName, reason string) (*Event, error) {
	if featureName == "" {
		return nil, fmt.Errorf("%w: feature name cannot be empty", ErrInvalidConfig)
	}
	if reason == "" {
		reason = "manual rollback"
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guardLocked(featureName); err != nil {
		return nil, err
	}
	event, err := c.createEventLocked(ctx, TriggerManual, featureName, reason, nil)
	if err != nil {
		return nil, err
	}
	return c.executeLocked(ctx, event)
}

// RequestRollback creates a pending rollback event without executing it,
// for flows where an operator confirms before the flag is touched. The
// event passes the same guards as an automatic rollback and occupies the
// feature's in-flight slot until executed or cancelled.
func (c *Controller) RequestRollback(ctx context.Context, featureName, reason string) (*Event, error) {
	if featureName == "" {
		return nil, fmt.Errorf("%w: feature name cannot be empty", ErrInvalidConfig)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guardLocked(featureName); err != nil {
		return nil, err
	}
	event, err := c.createEventLocked(ctx, TriggerManual, featureName, reason, nil)
	if err != nil {
		return nil, err
	}
	return event.clone(), nil
}

// ExecutePending runs a previously requested rollback event.
func (c *Controller) ExecutePending(ctx context.Context, eventID string) (*Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	event, err := c.findInFlightLocked(eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != StatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrEventNotPending, eventID, event.Status)
	}
	return c.executeLocked(ctx, event)
}

// CancelRollback cancels a pending event. Events that have started
// executing cannot be cancelled.
func (c *Controller) CancelRollback(ctx context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	event, err := c.findInFlightLocked(eventID)
	if err != nil {
		return err
	}
	if err := event.transition(StatusCancelled); err != nil {
		return fmt.Errorf("%w: %s is %s", ErrEventNotPending, eventID, event.Status)
	}

	delete(c.inFlight, event.Feature)
	c.history.Append(event)
	c.notifier.Notify(ctx, event.clone())

	c.log.InfoContext(ctx, "rollback cancelled",
		slog.String("event_id", event.ID),
		slog.String("feature", event.Feature),
	)
	return nil
}

// attempt runs the full guard-create-execute sequence as one critical
// section, used by the automatic path.
func (c *Controller) attempt(ctx context.Context, trigger Trigger, featureName, reason string, metrics *health.Aggregate) (*Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guardLocked(featureName); err != nil {
		return nil, err
	}
	event, err := c.createEventLocked(ctx, trigger, featureName, reason, metrics)
	if err != nil {
		return nil, err
	}
	return c.executeLocked(ctx, event)
}

// guardLocked enforces the cooldown, the daily quota, and single
// in-flight rollback per feature. Callers must hold the mutex.
func (c *Controller) guardLocked(featureName string) error {
	now := c.now()
	c.resetQuotaLocked(now)

	if _, busy := c.inFlight[featureName]; busy {
		return fmt.Errorf("%w: %s", ErrRollbackInProgress, featureName)
	}
	if !c.lastRollback.IsZero() {
		if elapsed := now.Sub(c.lastRollback); elapsed < c.cfg.Cooldown {
			return fmt.Errorf("%w: %s remaining", ErrCooldownActive,
				(c.cfg.Cooldown - elapsed).Round(time.Second))
		}
	}
	if c.rollbacksToday >= c.cfg.DailyQuota {
		return fmt.Errorf("%w: %d of %d used", ErrDailyQuotaExceeded,
			c.rollbacksToday, c.cfg.DailyQuota)
	}
	return nil
}

// createEventLocked registers a pending event in the feature's in-flight
// slot. Callers must hold the mutex.
func (c *Controller) createEventLocked(ctx context.Context, trigger Trigger, featureName, reason string, metrics *health.Aggregate) (*Event, error) {
	if _, busy := c.inFlight[featureName]; busy {
		return nil, fmt.Errorf("%w: %s", ErrRollbackInProgress, featureName)
	}

	event := &Event{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		Feature:   featureName,
		Timestamp: c.now(),
		Status:    StatusPending,
		Reason:    reason,
	}
	if metrics != nil {
		m := *metrics
		event.Metrics = &m
	}
	c.inFlight[featureName] = event

	c.log.InfoContext(ctx, "rollback initiated",
		slog.String("event_id", event.ID),
		slog.String("feature", featureName),
		slog.String("trigger", string(trigger)),
		slog.String("reason", reason),
	)
	return event, nil
}

// executeLocked disables the flag, optionally reverts the active pack,
// persists, and records the terminal event. Callers must hold the mutex.
func (c *Controller) executeLocked(ctx context.Context, event *Event) (*Event, error) {
	if err := event.transition(StatusInProgress); err != nil {
		return nil, err
	}

	err := c.performLocked(ctx, event)
	now := c.now()
	event.CompletedAt = now

	if err != nil {
		event.Error = err.Error()
		if terr := event.transition(StatusFailed); terr != nil {
			return nil, terr
		}
		c.log.ErrorContext(ctx, "rollback failed",
			slog.String("event_id", event.ID),
			slog.String("feature", event.Feature),
			slog.Any("error", err),
		)
	} else {
		if terr := event.transition(StatusCompleted); terr != nil {
			return nil, terr
		}
		c.lastRollback = now
		c.rollbacksToday++
		c.log.InfoContext(ctx, "rollback completed",
			slog.String("event_id", event.ID),
			slog.String("feature", event.Feature),
		)
	}

	delete(c.inFlight, event.Feature)
	c.history.Append(event)
	c.notifier.Notify(ctx, event.clone())

	if err != nil {
		return event.clone(), err
	}
	return event.clone(), nil
}

// performLocked carries out the flag and artifact mutations for an event.
func (c *Controller) performLocked(ctx context.Context, event *Event) error {
	previous, err := c.flags.Get(ctx, event.Feature)
	if err != nil {
		return err
	}
	event.PreviousFlag = previous

	if _, err := c.flags.Rollback(ctx, event.Feature, event.Reason); err != nil {
		return err
	}

	// A false-positive spike usually means the active pack is bad, so the
	// previous pack version is restored best-effort alongside the flag.
	if event.Trigger == TriggerHighFalsePositiveRate && c.artifacts != nil {
		if version, err := c.artifacts.Rollback(ctx); err != nil {
			c.log.WarnContext(ctx, "artifact rollback skipped",
				slog.String("event_id", event.ID),
				slog.Any("error", err),
			)
		} else {
			c.log.InfoContext(ctx, "artifact version reverted",
				slog.String("event_id", event.ID),
				slog.String("version", version),
			)
		}
	}

	if c.persister != nil {
		if err := c.persister.Persist(ctx); err != nil {
			return err
		}
	}
	return nil
}

// resetQuotaLocked zeroes the daily counter when the calendar day (UTC)
// changes. Callers must hold the mutex.
func (c *Controller) resetQuotaLocked(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	if !day.Equal(c.quotaDay) {
		c.quotaDay = day
		c.rollbacksToday = 0
	}
}

func (c *Controller) findInFlightLocked(eventID string) (*Event, error) {
	for _, event := range c.inFlight {
		if event.ID == eventID {
			return event, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
}
