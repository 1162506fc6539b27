package feature_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/releasekit/pkg/feature"
)

func TestMemoryStoreEnable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("CreatesFlagIfAbsent", func(t *testing.T) {
		t.Parallel()
		store, err := feature.NewMemoryStore(nil)
		require.NoError(t, err)

		flag, err := store.Enable(ctx, "new-detector", feature.StageCanary, 5, "internal")
		require.NoError(t, err)
		assert.True(t, flag.Enabled)
		assert.Equal(t, feature.StageCanary, flag.Stage)
		assert.InDelta(t, 5.0, flag.RolloutPercentage, 0.0001)
		assert.Equal(t, []string{"internal"}, flag.TargetGroups)
		assert.False(t, flag.CreatedAt.IsZero())
		assert.True(t, store.Exists(ctx, "new-detector"))
	})

	t.Run("UpdatesExistingFlag", func(t *testing.T) {
		t.Parallel()
		store, err := feature.NewMemoryStore(nil)
		require.NoError(t, err)

		first, err := store.Enable(ctx, "detector", feature.StageCanary, 5)
		require.NoError(t, err)

		second, err := store.Enable(ctx, "detector", feature.StageStaged, 50)
		require.NoError(t, err)
		assert.Equal(t, first.CreatedAt, second.CreatedAt)
		assert.Equal(t, feature.StageStaged, second.Stage)
		assert.InDelta(t, 50.0, second.RolloutPercentage, 0.0001)
	})

	t.Run("RejectsInvalidInput", func(t *testing.T) {
		t.Parallel()
		store, err := feature.NewMemoryStore(nil)
		require.NoError(t, err)

		_, err = store.Enable(ctx, "", feature.StageCanary, 5)
		require.ErrorIs(t, err, feature.ErrInvalidFlag)

		_, err = store.Enable(ctx, "x", feature.Stage("half"), 5)
		require.ErrorIs(t, err, feature.ErrInvalidStage)

		_, err = store.Enable(ctx, "x", feature.StageCanary, 150)
		require.ErrorIs(t, err, feature.ErrInvalidFlag)
	})
}

func TestMemoryStoreDisable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := feature.NewMemoryStore(nil)
	require.NoError(t, err)

	_, err = store.Enable(ctx, "detector", feature.StageFull, 100)
	require.NoError(t, err)

	flag, err := store.Disable(ctx, "detector")
	require.NoError(t, err)
	assert.False(t, flag.Enabled)
	assert.Equal(t, feature.StageDisabled, flag.Stage)

	// Disabling twice is harmless.
	flag, err = store.Disable(ctx, "detector")
	require.NoError(t, err)
	assert.False(t, flag.Enabled)

	_, err = store.Disable(ctx, "missing")
	require.ErrorIs(t, err, feature.ErrFlagNotFound)
}

func TestMemoryStoreRollback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store, err := feature.NewMemoryStore(nil, feature.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	_, err = store.Enable(ctx, "detector", feature.StageStaged, 75)
	require.NoError(t, err)

	flag, err := store.Rollback(ctx, "detector", "error rate exceeded threshold")
	require.NoError(t, err)
	assert.False(t, flag.Enabled)
	assert.Equal(t, feature.StageDisabled, flag.Stage)
	require.Len(t, flag.RollbackHistory, 1)

	record := flag.RollbackHistory[0]
	assert.Equal(t, "error rate exceeded threshold", record.Reason)
	assert.Equal(t, feature.StageStaged, record.PreviousStage)
	assert.InDelta(t, 75.0, record.PreviousPercentage, 0.0001)
	assert.Equal(t, now, record.Timestamp)

	// A second rollback appends, never truncates.
	_, err = store.Enable(ctx, "detector", feature.StageCanary, 10)
	require.NoError(t, err)
	flag, err = store.Rollback(ctx, "detector", "manual")
	require.NoError(t, err)
	assert.Len(t, flag.RollbackHistory, 2)

	_, err = store.Rollback(ctx, "missing", "whatever")
	require.ErrorIs(t, err, feature.ErrFlagNotFound)
}

func TestMemoryStoreList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := feature.NewMemoryStore([]*feature.Flag{
		{Name: "b-flag", Enabled: true, Stage: feature.StageFull},
		{Name: "a-flag", Enabled: false, Stage: feature.StageDisabled},
	})
	require.NoError(t, err)

	flags, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.Equal(t, "a-flag", flags[0].Name)
	assert.Equal(t, "b-flag", flags[1].Name)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := feature.NewMemoryStore(nil)
	require.NoError(t, err)

	_, err = store.Enable(ctx, "detector", feature.StageCanary, 5, "internal")
	require.NoError(t, err)

	flag, err := store.Get(ctx, "detector")
	require.NoError(t, err)
	flag.TargetGroups[0] = "mutated"
	flag.Enabled = false

	fresh, err := store.Get(ctx, "detector")
	require.NoError(t, err)
	assert.Equal(t, []string{"internal"}, fresh.TargetGroups)
	assert.True(t, fresh.Enabled)

	// Disable hands out a copy too.
	disabled, err := store.Disable(ctx, "detector")
	require.NoError(t, err)
	disabled.RolloutPercentage = 99.9
	disabled.Enabled = true

	fresh, err = store.Get(ctx, "detector")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, fresh.RolloutPercentage, 0.0001)
	assert.False(t, fresh.Enabled)
}
