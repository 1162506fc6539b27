package rollback

import "errors"

// Predefined errors for the rollback package.
var (
	// ErrDisabled indicates automatic rollback is turned off in the
	// configuration.
	ErrDisabled = errors.New("automatic rollback is disabled")

	// ErrCooldownActive indicates not enough time has passed since the last
	// completed rollback. Callers may retry later.
	ErrCooldownActive = errors.New("rollback cooldown is active")

	// ErrDailyQuotaExceeded indicates the maximum number of rollbacks for
	// the current day has been reached.
	ErrDailyQuotaExceeded = errors.New("daily rollback quota exceeded")

	// ErrRollbackInProgress indicates another rollback for the same feature
	// is already in flight.
	ErrRollbackInProgress = errors.New("rollback already in progress for feature")

	// ErrEventNotFound indicates no in-flight rollback event with the given
	// id exists.
	ErrEventNotFound = errors.New("rollback event not found")

	// ErrEventNotPending indicates the event has already started or
	// finished and can no longer be cancelled or executed.
	ErrEventNotPending = errors.New("rollback event is not pending")

	// ErrInvalidTransition indicates an illegal event status transition.
	ErrInvalidTransition = errors.New("invalid rollback event status transition")

	// ErrInvalidTrigger indicates an unknown trigger kind.
	ErrInvalidTrigger = errors.New("invalid rollback trigger")

	// ErrNoTargetFeature indicates no feature is mapped to the firing
	// trigger.
	ErrNoTargetFeature = errors.New("no feature mapped to rollback trigger")

	// ErrInvalidConfig indicates invalid controller configuration.
	ErrInvalidConfig = errors.New("invalid rollback controller configuration")
)
