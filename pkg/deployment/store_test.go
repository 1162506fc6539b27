package deployment_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/releasekit/pkg/deployment"
)

const sampleDocument = `deployment:
  environment: production
  feature_flags:
    advanced-detection:
      enabled: true
      stage: staged
      rollout_percentage: 50
      target_groups:
        - beta-testers
  rollback_config:
    enabled: true
    cooldown_minutes: 30
    max_rollbacks_per_day: 5
    notification_channels:
      - ops-alerts
    triggers:
      high_error_rate:
        enabled: true
        threshold: 0.05
        window_minutes: 5
        min_requests: 10
        feature: advanced-detection
  attack_pack_versions:
    v1:
      file_path: versions/v1/pack.yaml
      checksum: abc123
      deployed_at: 2025-06-01T12:00:00Z
      is_active: true
      validation_status: validated
      pattern_count: 12
  active_attack_pack_version: v1
`

func writeDocument(t *testing.T, content string) *deployment.FileStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	store, err := deployment.NewFileStore(path)
	require.NoError(t, err)
	return store
}

func TestFileStoreLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("DecodesFullDocument", func(t *testing.T) {
		t.Parallel()
		store := writeDocument(t, sampleDocument)

		doc, err := store.Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, "production", doc.Deployment.Environment)

		flag, ok := doc.Deployment.FeatureFlags["advanced-detection"]
		require.True(t, ok)
		assert.True(t, flag.Enabled)
		assert.Equal(t, "staged", flag.Stage)
		assert.InDelta(t, 50, flag.RolloutPercentage, 0.001)
		assert.Equal(t, []string{"beta-testers"}, flag.TargetGroups)

		rc := doc.Deployment.RollbackConfig
		assert.True(t, rc.Enabled)
		assert.Equal(t, 30, rc.CooldownMinutes)
		assert.Equal(t, 5, rc.MaxRollbacksPerDay)
		assert.Equal(t, []string{"ops-alerts"}, rc.NotificationChannels)

		trigger, ok := rc.Triggers["high_error_rate"]
		require.True(t, ok)
		assert.InDelta(t, 0.05, trigger.Threshold, 0.0001)
		assert.Equal(t, "advanced-detection", trigger.Feature)

		pack, ok := doc.Deployment.AttackPackVersions["v1"]
		require.True(t, ok)
		assert.True(t, pack.IsActive)
		assert.Equal(t, 12, pack.PatternCount)
		assert.Equal(t, "v1", doc.Deployment.ActiveAttackPackVersion)
	})

	t.Run("RejectsUnknownFields", func(t *testing.T) {
		t.Parallel()
		store := writeDocument(t, "deployment:\n  environment: dev\n  surprise_field: true\n")

		_, err := store.Load(ctx)
		require.ErrorIs(t, err, deployment.ErrMalformedDocument)
	})

	t.Run("RejectsMalformedYAML", func(t *testing.T) {
		t.Parallel()
		store := writeDocument(t, "deployment: [unclosed")

		_, err := store.Load(ctx)
		require.ErrorIs(t, err, deployment.ErrMalformedDocument)
	})

	t.Run("MissingFile", func(t *testing.T) {
		t.Parallel()
		store, err := deployment.NewFileStore(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)

		_, err = store.Load(ctx)
		require.ErrorIs(t, err, deployment.ErrDocumentNotFound)
	})

	t.Run("EmptyFileYieldsEmptyDocument", func(t *testing.T) {
		t.Parallel()
		store := writeDocument(t, "")

		doc, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, doc.Deployment.FeatureFlags)
	})

	t.Run("EmptyPath", func(t *testing.T) {
		t.Parallel()
		_, err := deployment.NewFileStore("")
		require.ErrorIs(t, err, deployment.ErrInvalidConfig)
	})
}

func TestFileStoreSave(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Roundtrip", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.yaml")
		store, err := deployment.NewFileStore(path)
		require.NoError(t, err)

		doc := &deployment.Document{}
		doc.Deployment.Environment = "staging"
		doc.Deployment.FeatureFlags = map[string]deployment.FlagConfig{
			"new-parser": {Enabled: true, Stage: "canary", RolloutPercentage: 5},
		}
		doc.Deployment.AttackPackVersions = map[string]deployment.PackVersion{
			"v3": {
				FilePath:         "versions/v3/pack.yaml",
				Checksum:         "def456",
				DeployedAt:       time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
				ValidationStatus: "validated",
			},
		}

		require.NoError(t, store.Save(ctx, doc))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "staging", loaded.Deployment.Environment)
		assert.Equal(t, doc.Deployment.FeatureFlags, loaded.Deployment.FeatureFlags)

		pack, ok := loaded.Deployment.AttackPackVersions["v3"]
		require.True(t, ok)
		assert.Equal(t, "def456", pack.Checksum)
		assert.True(t, pack.DeployedAt.Equal(doc.Deployment.AttackPackVersions["v3"].DeployedAt))

		// No temp files left behind.
		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})

	t.Run("OverwritesExisting", func(t *testing.T) {
		t.Parallel()
		store := writeDocument(t, sampleDocument)

		doc := &deployment.Document{}
		doc.Deployment.Environment = "replaced"
		require.NoError(t, store.Save(ctx, doc))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "replaced", loaded.Deployment.Environment)
		assert.Empty(t, loaded.Deployment.FeatureFlags)
	})

	t.Run("CreatesParentDirectory", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")
		store, err := deployment.NewFileStore(path)
		require.NoError(t, err)

		require.NoError(t, store.Save(ctx, &deployment.Document{}))
		assert.FileExists(t, path)
	})

	t.Run("NilDocument", func(t *testing.T) {
		t.Parallel()
		store := writeDocument(t, "")
		require.ErrorIs(t, store.Save(ctx, nil), deployment.ErrInvalidConfig)
	})
}
