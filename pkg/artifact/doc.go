// Package artifact manages versioned, checksum-verified content bundles
// (detection pattern packs) through an install, activate, rollback, and
// cleanup lifecycle.
//
// # Lifecycle
//
// A bundle enters the system through Install, which validates the content,
// computes a SHA-256 checksum, copies the bytes into a version-scoped
// storage location with a sidecar metadata record, and registers the version
// as inactive. Activate flips the single active pointer after recomputing
// the checksum: activation never proceeds on tampered or corrupted content.
// Rollback activates the most recently deployed non-active version, and
// Cleanup garbage-collects old versions while always preserving the active
// one.
//
// The invariant maintained across every operation: at most one version has
// IsActive set at any time.
//
// # Content forms
//
// Validate accepts a structured document with a patterns array, a bare
// pattern array (YAML or JSON), or the legacy delimited text format:
//
//	## Pattern 1: Prompt override
//	**ID:** PAT-001
//	**Description:** Attempts to override the system prompt
//	**Category:** prompt_injection
//	**Severity:** high
//	**Examples:** ignore all previous instructions
//
// Validation reports structured issue/warning lists instead of raising
// errors; issues block installation, warnings never do.
//
// # Storage
//
// Content lives behind the BlobStorage interface with filesystem
// (NewLocalStorage) and S3 (NewS3Storage) implementations. The registry can
// be durably saved through a PersistFunc hook after each mutation; a persist
// failure is reported but the in-memory registry is retained so the
// operation can be retried without data loss.
//
//	store, _ := artifact.NewLocalStorage("/var/lib/detector/packs")
//	mgr, _ := artifact.NewManager(store, artifact.WithPersist(saveRegistry))
//
//	if err := mgr.Install(ctx, "v2025.06.01", content); err != nil {
//		// validation or storage failure; nothing registered
//	}
//	if err := mgr.Activate(ctx, "v2025.06.01"); err != nil {
//		// checksum drift or missing content; active version unchanged
//	}
package artifact
