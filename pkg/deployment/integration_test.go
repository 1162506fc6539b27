package deployment_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/releasekit/pkg/artifact"
	"github.com/dmitrymomot/releasekit/pkg/deployment"
	"github.com/dmitrymomot/releasekit/pkg/feature"
)

// The document is the durable boundary: the artifact manager persists its
// registry through it, and a restarted process reconstructs the manager
// and the flag store from the reloaded file.
func TestDocumentRoundtripAcrossRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	store, err := deployment.NewFileStore(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	doc := &deployment.Document{}
	doc.SetFlags([]*feature.Flag{{
		Name:              "advanced-detection",
		Enabled:           true,
		Stage:             feature.StageStaged,
		RolloutPercentage: 50,
	}})

	blobs, err := artifact.NewLocalStorage(filepath.Join(dir, "artifacts"))
	require.NoError(t, err)

	persist := func(ctx context.Context, versions []*artifact.Version, active string) error {
		doc.SetPackRegistry(versions, active)
		return store.Save(ctx, doc)
	}

	manager, err := artifact.NewManager(blobs,
		artifact.WithPersist(persist), artifact.WithMinPatterns(0))
	require.NoError(t, err)

	require.NoError(t, manager.Install(ctx, "v1", integrationPack(6)))
	require.NoError(t, manager.Activate(ctx, "v1"))

	// Restart: everything comes back from the file.
	reloaded, err := store.Load(ctx)
	require.NoError(t, err)

	flags, err := reloaded.Flags()
	require.NoError(t, err)
	flagStore, err := feature.NewMemoryStore(flags)
	require.NoError(t, err)
	flag, err := flagStore.Get(ctx, "advanced-detection")
	require.NoError(t, err)
	assert.Equal(t, feature.StageStaged, flag.Stage)

	versions, active := reloaded.PackRegistry()
	restored, err := artifact.NewManager(blobs, artifact.WithRestoredVersions(versions, active))
	require.NoError(t, err)

	got, ok := restored.ActiveVersion()
	require.True(t, ok)
	assert.Equal(t, "v1", got.Version)
	assert.NotEmpty(t, got.Checksum)
}

func integrationPack(n int) []byte {
	var b []byte
	b = append(b, "patterns:\n"...)
	for i := 1; i <= n; i++ {
		b = append(b, fmt.Sprintf(
			"  - id: PAT-%03d\n    name: pattern %d\n    description: test pattern %d\n    category: jailbreak\n    severity: medium\n    examples:\n      - example input %d\n",
			i, i, i, i)...)
	}
	return b
}
