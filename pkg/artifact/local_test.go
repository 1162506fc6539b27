package artifact_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/releasekit/pkg/artifact"
)

func TestLocalStorage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("PutGetRoundtrip", func(t *testing.T) {
		t.Parallel()
		storage, err := artifact.NewLocalStorage(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, storage.Put(ctx, "versions/v1/pack.yaml", []byte("content")))
		assert.True(t, storage.Exists(ctx, "versions/v1/pack.yaml"))

		data, err := storage.Get(ctx, "versions/v1/pack.yaml")
		require.NoError(t, err)
		assert.Equal(t, []byte("content"), data)
	})

	t.Run("GetMissing", func(t *testing.T) {
		t.Parallel()
		storage, err := artifact.NewLocalStorage(t.TempDir())
		require.NoError(t, err)

		_, err = storage.Get(ctx, "nope")
		require.ErrorIs(t, err, artifact.ErrContentNotFound)
	})

	t.Run("RejectsTraversal", func(t *testing.T) {
		t.Parallel()
		storage, err := artifact.NewLocalStorage(t.TempDir())
		require.NoError(t, err)

		err = storage.Put(ctx, "../outside", []byte("x"))
		require.ErrorIs(t, err, artifact.ErrInvalidPath)

		_, err = storage.Get(ctx, "../../etc/passwd")
		require.ErrorIs(t, err, artifact.ErrInvalidPath)
	})

	t.Run("DeleteAndDeleteDir", func(t *testing.T) {
		t.Parallel()
		storage, err := artifact.NewLocalStorage(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, storage.Put(ctx, "versions/v1/pack.yaml", []byte("a")))
		require.NoError(t, storage.Put(ctx, "versions/v1/metadata.yaml", []byte("b")))

		// Delete refuses directories.
		err = storage.Delete(ctx, "versions/v1")
		require.ErrorIs(t, err, artifact.ErrInvalidPath)

		require.NoError(t, storage.Delete(ctx, "versions/v1/metadata.yaml"))
		require.NoError(t, storage.DeleteDir(ctx, "versions/v1"))
		assert.False(t, storage.Exists(ctx, "versions/v1/pack.yaml"))

		require.ErrorIs(t, storage.DeleteDir(ctx, "versions/v1"), artifact.ErrContentNotFound)
	})

	t.Run("List", func(t *testing.T) {
		t.Parallel()
		storage, err := artifact.NewLocalStorage(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, storage.Put(ctx, "versions/v1/pack.yaml", []byte("a")))
		require.NoError(t, storage.Put(ctx, "versions/v2/pack.yaml", []byte("bb")))

		entries, err := storage.List(ctx, "versions")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.True(t, entries[0].IsDir)
		assert.True(t, entries[1].IsDir)

		files, err := storage.List(ctx, "versions/v2")
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "pack.yaml", files[0].Name)
		assert.Equal(t, int64(2), files[0].Size)
	})

	t.Run("EmptyBaseDir", func(t *testing.T) {
		t.Parallel()
		_, err := artifact.NewLocalStorage("")
		require.ErrorIs(t, err, artifact.ErrInvalidConfig)
	})
}
