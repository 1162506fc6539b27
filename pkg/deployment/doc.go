// Package deployment owns the persisted configuration document and the
// environment-derived runtime settings.
//
// The Document mirrors config.yaml: a deployment section carrying the
// feature flag definitions, the rollback policy, the installed pack
// registry with its active pointer, and a few runtime scalars. Field
// names in the yaml tags are the external wire format.
//
// The document is the single durable boundary of the system. The other
// packages hold state in memory and push snapshots through it: a
// feature store seeds from Flags(), the artifact manager persists via
// SetPackRegistry (shaped to plug into artifact.WithPersist), and the
// rollback controller's policy comes from ControllerConfig().
//
// FileStore decodes strictly, rejecting unknown fields so hand-edited
// documents fail loudly, and saves through a temp-file rename so a crash
// mid-write never leaves a truncated document behind. Save failures
// surface as ErrPersistFailed while callers keep their in-memory state
// for retry.
//
// Settings covers what must come from the environment instead of the
// document: file paths, the check interval, and optional Redis and S3
// endpoints. LoadSettings reads an optional .env file and parses
// env-tagged fields.
package deployment
