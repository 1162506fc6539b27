package feature_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/releasekit/pkg/feature"
)

func newRedisStore(t *testing.T) *feature.RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store, err := feature.NewRedisStore(client, feature.WithKeyPrefix("releasekit-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestRedisStoreLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newRedisStore(t)

	_, err := store.Get(ctx, "detector")
	require.ErrorIs(t, err, feature.ErrFlagNotFound)
	assert.False(t, store.Exists(ctx, "detector"))

	flag, err := store.Enable(ctx, "detector", feature.StageBeta, 20, "internal")
	require.NoError(t, err)
	assert.True(t, flag.Enabled)
	assert.Equal(t, feature.StageBeta, flag.Stage)
	assert.True(t, store.Exists(ctx, "detector"))

	loaded, err := store.Get(ctx, "detector")
	require.NoError(t, err)
	assert.Equal(t, flag.Name, loaded.Name)
	assert.InDelta(t, 20.0, loaded.RolloutPercentage, 0.0001)
	assert.Equal(t, []string{"internal"}, loaded.TargetGroups)

	flag, err = store.Rollback(ctx, "detector", "latency regression")
	require.NoError(t, err)
	assert.False(t, flag.Enabled)
	assert.Equal(t, feature.StageDisabled, flag.Stage)
	require.Len(t, flag.RollbackHistory, 1)
	assert.Equal(t, feature.StageBeta, flag.RollbackHistory[0].PreviousStage)

	// History survives the round trip through Redis.
	loaded, err = store.Get(ctx, "detector")
	require.NoError(t, err)
	require.Len(t, loaded.RollbackHistory, 1)
	assert.Equal(t, "latency regression", loaded.RollbackHistory[0].Reason)
}

func TestRedisStoreList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newRedisStore(t)

	_, err := store.Enable(ctx, "b-flag", feature.StageFull, 100)
	require.NoError(t, err)
	_, err = store.Enable(ctx, "a-flag", feature.StageCanary, 5)
	require.NoError(t, err)

	flags, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.Equal(t, "a-flag", flags[0].Name)
	assert.Equal(t, "b-flag", flags[1].Name)
}

func TestRedisStoreDisableUnknown(t *testing.T) {
	t.Parallel()
	store := newRedisStore(t)

	_, err := store.Disable(context.Background(), "missing")
	require.ErrorIs(t, err, feature.ErrFlagNotFound)
}
