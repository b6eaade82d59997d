// AngelaMos | 2026
// disk_test.go

package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedrive-app/filedrive/internal/core"
)

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()

	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestPutOpenRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	written, err := store.Put(ctx, "abcd1234", strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), written)

	rc, err := store.Open(ctx, "abcd1234")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestPutShardsByKeyPrefix(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStore(root)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "abcd1234", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "ab", "cd", "abcd1234"))
	assert.NoError(t, err)
}

func TestPutOverwritesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "abcd1234", strings.NewReader("old"))
	require.NoError(t, err)
	_, err = store.Put(ctx, "abcd1234", strings.NewReader("new"))
	require.NoError(t, err)

	rc, err := store.Open(ctx, "abcd1234")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "abcd1234")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Put(ctx, "abcd1234", strings.NewReader("x"))
	require.NoError(t, err)

	ok, err = store.Exists(ctx, "abcd1234")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "abcd1234", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "abcd1234"))

	ok, err := store.Exists(ctx, "abcd1234")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteMissingObject(t *testing.T) {
	store := newTestStore(t)

	err := store.Delete(context.Background(), "abcd1234")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestOpenMissingObject(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Open(context.Background(), "abcd1234")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestInvalidKeysRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	keys := []string{
		"",
		"short",
		"UPPERCASE1",
		"has/slash1",
		"../../../../etc/passwd",
		"dots..inside",
		strings.Repeat("a", 129),
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			// A malformed key is the caller's fault, so every entry
			// point surfaces it as invalid input, never as a 500.
			_, err := store.Put(ctx, key, strings.NewReader("x"))
			assert.ErrorIs(t, err, core.ErrInvalidInput)

			_, err = store.Open(ctx, key)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
			assert.NotErrorIs(t, err, ErrObjectNotFound)

			_, err = store.Exists(ctx, key)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}
}

func TestPing(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
