// Package rollback provides an automatic rollback controller that watches
// sliding-window health metrics and disables feature flags when trigger
// rules fire, with an append-only audit trail of every attempt.
//
// # Architecture
//
// The Controller sits on top of a feature.Store and a health.Window. Each
// check interval it polls a MetricsSource into the window, then evaluates
// every enabled Rule against the window's aggregate for the rule's span.
// When a rule fires, the mapped feature flag is disabled through the
// store's Rollback operation, which records the pre-rollback stage in the
// flag's own history.
//
// Three guards bound the blast radius of automation:
//
//   - Cooldown: a minimum spacing between completed rollbacks.
//   - Daily quota: a cap on completed rollbacks per UTC calendar day.
//   - In-flight dedup: at most one rollback per feature at a time,
//     keyed by feature name so distinct triggers cannot stack rollbacks
//     on the same flag.
//
// Guard checks, event creation, and execution run under one mutex, so two
// rules firing in the same cycle can never both pass the cooldown gate.
//
// Every attempt produces an Event that lands in the History once it
// reaches a terminal status (Completed, Failed, or Cancelled). Events are
// never deleted.
//
// # Usage
//
//	store := feature.NewMemoryStore()
//	window := health.NewWindow()
//
//	controller, err := rollback.NewController(store, window, rollback.Config{
//		Enabled:  true,
//		Cooldown: 30 * time.Minute,
//		Rules: []rollback.Rule{{
//			Trigger:     rollback.TriggerHighErrorRate,
//			Threshold:   0.05,
//			Window:      5 * time.Minute,
//			MinRequests: 10,
//			Enabled:     true,
//		}},
//		FeatureByTrigger: map[rollback.Trigger]string{
//			rollback.TriggerHighErrorRate: "advanced-detection",
//		},
//	}, rollback.WithMetricsSource(collector))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	go controller.Run(ctx)
//
// Manual rollbacks pass through the same guards as automatic ones; a
// guard rejection comes back as an error the caller can retry after:
//
//	event, err := controller.ManualRollback(ctx, "advanced-detection", "bad deploy")
//	if errors.Is(err, rollback.ErrCooldownActive) {
//		// too soon after the last rollback
//	}
//
// For operator-confirmed flows, RequestRollback creates a pending event
// that ExecutePending runs or CancelRollback discards.
//
// # Error Handling
//
// Guard rejections surface as ErrCooldownActive, ErrDailyQuotaExceeded,
// and ErrRollbackInProgress. These are expected outcomes, not faults: the
// automatic loop logs them and keeps running. A rollback whose execution
// fails (missing flag, persistence error) lands in the history as a
// Failed event with the error recorded.
package rollback
