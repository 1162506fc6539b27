// Package feature provides stage-based feature flag management with
// deterministic percentage rollouts for progressive delivery.
//
// Flags move through coarse-grained stages (disabled, canary, beta, staged,
// full) bounding how widely they are enrolled. Within a stage, enrollment is
// decided per identity by sticky bucketing: an FNV-1a hash of the flag name
// and identity maps to a stable bucket in [0,100), compared against the
// flag's rollout percentage. The same identity always receives the same
// decision for a given flag, with no per-call state.
//
// # Architecture
//
// The package separates three concerns:
//
//  1. Flags - rollout configuration plus an append-only rollback history
//  2. Evaluate - the pure decision function over a flag, identity, and groups
//  3. Stores - backends holding flag state (in-memory and Redis provided)
//
// Flags are never deleted through a Store. Retiring a rollout means
// disabling its flag, which preserves the audit trail in RollbackHistory.
//
// # Usage
//
//	store, err := feature.NewMemoryStore(nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	// Stage a capability to 25% of identities plus the internal group.
//	_, err = store.Enable(ctx, "strict-detection", feature.StageBeta, 25, "internal")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	engine := feature.NewEngine(store,
//		feature.WithIdentityExtractor(identityFromContext),
//		feature.WithGroupsExtractor(groupsFromContext),
//	)
//	enabled, err := engine.IsEnabled(ctx, "strict-detection")
//
// The pure form is available when the caller already holds the flag:
//
//	enabled := feature.Evaluate(flag, "client-42", nil)
//
// # Error Handling
//
// Expected absence is signaled with ErrFlagNotFound rather than a fault;
// probe with Store.Exists when absence is routine. All errors support
// errors.Is against the package sentinels.
package feature
