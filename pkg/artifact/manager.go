package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	versionsRoot    = "versions"
	contentFilename = "pack.yaml"
	sidecarFilename = "metadata.yaml"
)

// PersistFunc durably saves the version registry and active pointer.
// Called with the manager lock held; implementations should be quick and
// must not call back into the manager.
type PersistFunc func(ctx context.Context, versions []*Version, active string) error

// installRecord is the sidecar metadata written next to installed content.
type installRecord struct {
	Version      string    `yaml:"version"`
	InstalledAt  time.Time `yaml:"installed_at"`
	Source       string    `yaml:"source,omitempty"`
	Checksum     string    `yaml:"checksum"`
	PatternCount int       `yaml:"pattern_count"`
	Issues       []string  `yaml:"issues,omitempty"`
	Warnings     []string  `yaml:"warnings,omitempty"`
}

// Manager validates, installs, activates, rolls back, and garbage-collects
// versioned content bundles. At most one version is active at any time.
type Manager struct {
	mu          sync.Mutex
	storage     BlobStorage
	versions    map[string]*Version
	active      string
	persist     PersistFunc
	log         *slog.Logger
	now         func() time.Time
	minPatterns int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithPersist sets the durable-save hook invoked after registry mutations.
func WithPersist(persist PersistFunc) ManagerOption {
	return func(m *Manager) {
		m.persist = persist
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithManagerClock overrides the time source. Intended for tests.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithMinPatterns overrides the small-pack warning threshold.
func WithMinPatterns(minPatterns int) ManagerOption {
	return func(m *Manager) {
		m.minPatterns = minPatterns
	}
}

// WithRestoredVersions seeds the registry from a persisted snapshot, e.g.
// when reconstructing state after a restart.
func WithRestoredVersions(versions []*Version, active string) ManagerOption {
	return func(m *Manager) {
		for _, v := range versions {
			if v == nil || v.Version == "" {
				continue
			}
			cp := v.clone()
			cp.IsActive = cp.Version == active
			m.versions[cp.Version] = cp
		}
		if _, ok := m.versions[active]; ok {
			m.active = active
		}
	}
}

// NewManager creates a version manager over the given blob storage.
func NewManager(storage BlobStorage, opts ...ManagerOption) (*Manager, error) {
	if storage == nil {
		return nil, errors.Join(ErrInvalidConfig, errors.New("storage cannot be nil"))
	}

	m := &Manager{
		storage:     storage,
		versions:    make(map[string]*Version),
		log:         slog.Default(),
		now:         time.Now,
		minPatterns: DefaultMinPatterns,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Validate checks pack content without installing it.
func (m *Manager) Validate(content []byte) ValidationResult {
	return ValidateWithMinimum(content, m.minPatterns)
}

// InstallOption configures a single install.
type InstallOption func(*installRecord)

// WithSource records where the content came from in the sidecar metadata.
func WithSource(source string) InstallOption {
	return func(r *installRecord) {
		r.Source = source
	}
}

// Install validates the content, stores it under a version-scoped path with
// a sidecar metadata record, and registers the version as inactive.
// Fails closed with ErrValidationFailed when validation reports issues.
func (m *Manager) Install(ctx context.Context, version string, content []byte, opts ...InstallOption) error {
	if version == "" || strings.ContainsAny(version, "/\\") {
		return fmt.Errorf("%w: invalid version id %q", ErrInvalidConfig, version)
	}

	result := m.Validate(content)
	if !result.IsValid {
		return fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(result.Issues, "; "))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.versions[version]; exists {
		return fmt.Errorf("%w: %s", ErrVersionExists, version)
	}

	sum := sha256.Sum256(content)
	checksum := hex.EncodeToString(sum[:])
	contentPath := m.contentPath(version)

	if err := m.storage.Put(ctx, contentPath, content); err != nil {
		return err
	}

	record := installRecord{
		Version:      version,
		InstalledAt:  m.now(),
		Checksum:     checksum,
		PatternCount: result.PatternCount,
		Warnings:     result.Warnings,
	}
	for _, opt := range opts {
		opt(&record)
	}
	sidecar, err := yaml.Marshal(record)
	if err != nil {
		m.removeVersionDirLocked(ctx, version)
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if err := m.storage.Put(ctx, m.sidecarPath(version), sidecar); err != nil {
		// Already-written content must not outlive a failed install.
		m.removeVersionDirLocked(ctx, version)
		return err
	}

	m.versions[version] = &Version{
		Version:          version,
		Path:             contentPath,
		Checksum:         checksum,
		DeployedAt:       record.InstalledAt,
		IsActive:         false,
		ValidationStatus: ValidationValidated,
		PatternCount:     result.PatternCount,
	}

	m.log.InfoContext(ctx, "artifact version installed",
		slog.String("version", version),
		slog.Int("pattern_count", result.PatternCount),
		slog.Int("warnings", len(result.Warnings)),
	)

	return m.persistLocked(ctx)
}

// Activate makes the given version the single active one. Activation is
// refused when the version is unknown, its content is missing, or the
// recomputed checksum differs from the recorded one.
func (m *Manager) Activate(ctx context.Context, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activateLocked(ctx, version)
}

func (m *Manager) activateLocked(ctx context.Context, version string) error {
	target, exists := m.versions[version]
	if !exists {
		return fmt.Errorf("%w: %s", ErrVersionNotFound, version)
	}

	content, err := m.storage.Get(ctx, target.Path)
	if err != nil {
		if errors.Is(err, ErrContentNotFound) {
			return fmt.Errorf("%w: %s", ErrContentMissing, version)
		}
		return err
	}

	sum := sha256.Sum256(content)
	if recomputed := hex.EncodeToString(sum[:]); recomputed != target.Checksum {
		return fmt.Errorf("%w: version %s recorded %s, recomputed %s",
			ErrChecksumMismatch, version, target.Checksum, recomputed)
	}

	for _, v := range m.versions {
		v.IsActive = false
	}
	target.IsActive = true
	m.active = version

	m.log.InfoContext(ctx, "artifact version activated", slog.String("version", version))

	return m.persistLocked(ctx)
}

// Rollback activates the most-recently-deployed version that is not
// currently active, or the explicit target when given. Returns the version
// that was activated.
func (m *Manager) Rollback(ctx context.Context, target ...string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	version := ""
	if len(target) > 0 && target[0] != "" {
		version = target[0]
	} else {
		candidates := m.sortedInactiveLocked()
		if len(candidates) == 0 {
			return "", ErrNoRollbackTarget
		}
		version = candidates[0].Version
	}

	if err := m.activateLocked(ctx, version); err != nil {
		return "", err
	}
	return version, nil
}

// Cleanup retains the keepCount most recently deployed versions, removing
// everything else from storage and the registry. The active version is
// always retained regardless of its age or keepCount. Returns the removed
// count and version ids.
func (m *Manager) Cleanup(ctx context.Context, keepCount int) (int, []string, error) {
	if keepCount < 0 {
		keepCount = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]*Version, 0, len(m.versions))
	for _, v := range m.versions {
		all = append(all, v)
	}
	slices.SortFunc(all, func(a, b *Version) int {
		return b.DeployedAt.Compare(a.DeployedAt)
	})

	var candidates []*Version
	for i, v := range all {
		if i < keepCount || v.IsActive {
			continue
		}
		candidates = append(candidates, v)
	}
	if len(candidates) == 0 {
		return 0, nil, nil
	}

	var removed []string
	for _, v := range candidates {
		if err := m.storage.DeleteDir(ctx, path.Join(versionsRoot, v.Version)); err != nil &&
			!errors.Is(err, ErrContentNotFound) {
			return len(removed), removed, err
		}
		delete(m.versions, v.Version)
		removed = append(removed, v.Version)
	}

	m.log.InfoContext(ctx, "artifact versions cleaned up",
		slog.Int("removed", len(removed)),
		slog.Int("kept", keepCount),
	)

	if err := m.persistLocked(ctx); err != nil {
		return len(removed), removed, err
	}
	return len(removed), removed, nil
}

// List returns all registered versions, newest deployment first.
func (m *Manager) List() []*Version {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*Version, 0, len(m.versions))
	for _, v := range m.versions {
		result = append(result, v.clone())
	}
	slices.SortFunc(result, func(a, b *Version) int {
		return b.DeployedAt.Compare(a.DeployedAt)
	})
	return result
}

// GetInfo returns the registration record for a version.
func (m *Manager) GetInfo(version string) (*Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, exists := m.versions[version]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, version)
	}
	return v.clone(), nil
}

// ActiveVersion returns the currently active version, if any.
func (m *Manager) ActiveVersion() (*Version, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == "" {
		return nil, false
	}
	v, exists := m.versions[m.active]
	if !exists {
		return nil, false
	}
	return v.clone(), true
}

// Export copies a version's stored content to the given destination.
func (m *Manager) Export(ctx context.Context, version string, dst io.Writer) error {
	m.mu.Lock()
	v, exists := m.versions[version]
	var contentPath string
	if exists {
		contentPath = v.Path
	}
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrVersionNotFound, version)
	}

	content, err := m.storage.Get(ctx, contentPath)
	if err != nil {
		return err
	}
	if _, err := dst.Write(content); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return nil
}

// sortedInactiveLocked returns non-active versions newest first.
// Callers must hold the mutex.
func (m *Manager) sortedInactiveLocked() []*Version {
	candidates := make([]*Version, 0, len(m.versions))
	for _, v := range m.versions {
		if !v.IsActive {
			candidates = append(candidates, v)
		}
	}
	slices.SortFunc(candidates, func(a, b *Version) int {
		return b.DeployedAt.Compare(a.DeployedAt)
	})
	return candidates
}

// persistLocked saves the registry through the persist hook. A failure is
// logged and reported while the in-memory state is retained for retry.
func (m *Manager) persistLocked(ctx context.Context) error {
	if m.persist == nil {
		return nil
	}

	versions := make([]*Version, 0, len(m.versions))
	for _, v := range m.versions {
		versions = append(versions, v.clone())
	}

	if err := m.persist(ctx, versions, m.active); err != nil {
		m.log.ErrorContext(ctx, "failed to persist artifact registry", slog.Any("error", err))
		return errors.Join(ErrPersistFailed, err)
	}
	return nil
}

// removeVersionDirLocked best-effort deletes a version directory after a
// failed install so storage stays consistent with the registry.
func (m *Manager) removeVersionDirLocked(ctx context.Context, version string) {
	if err := m.storage.DeleteDir(ctx, path.Join(versionsRoot, version)); err != nil &&
		!errors.Is(err, ErrContentNotFound) {
		m.log.WarnContext(ctx, "failed to clean up partial install",
			slog.String("version", version),
			slog.Any("error", err),
		)
	}
}

func (m *Manager) contentPath(version string) string {
	return path.Join(versionsRoot, version, contentFilename)
}

func (m *Manager) sidecarPath(version string) string {
	return path.Join(versionsRoot, version, sidecarFilename)
}
