package fs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/internal/infrastructure/storage/minio"
	"github.com/turtacn/MolScore/pkg/errors"
)

func newStore(t *testing.T) minio.ModelStore {
	t.Helper()
	store, err := NewModelStore(t.TempDir(), logging.NewNopLogger())
	require.NoError(t, err)
	return store
}

func TestModelStore_SaveLoadDigest(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	doc := []byte(`{"format_version":1,"model_kind":"AtomLL"}`)

	digest, err := store.Save(ctx, "AtomLL", 1, doc)
	require.NoError(t, err)
	assert.Equal(t, minio.ContentDigest(doc), digest)

	loaded, err := store.Load(ctx, "AtomLL", 1)
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)

	got, err := store.Digest(ctx, "AtomLL", 1)
	require.NoError(t, err)
	assert.Equal(t, digest, got)
}

func TestModelStore_LoadMissing(t *testing.T) {
	store := newStore(t)

	_, err := store.Load(context.Background(), "MolLL", 2)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelNotFound))
}

func TestModelStore_OverwriteReplacesDocument(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "AtomLL", 1, []byte(`{"v":1}`))
	require.NoError(t, err)
	second, err := store.Save(ctx, "AtomLL", 1, []byte(`{"v":2}`))
	require.NoError(t, err)

	loaded, err := store.Load(ctx, "AtomLL", 1)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), loaded)
	assert.Equal(t, minio.ContentDigest(loaded), second)
}

func TestModelStore_DeleteIsIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "AtomLL", 1, []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "AtomLL", 1))
	require.NoError(t, store.Delete(ctx, "AtomLL", 1))

	_, err = store.Load(ctx, "AtomLL", 1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelNotFound))
}
