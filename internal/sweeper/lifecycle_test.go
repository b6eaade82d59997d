// AngelaMos | 2026
// lifecycle_test.go

package sweeper

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedrive-app/filedrive/internal/core"
	"github.com/filedrive-app/filedrive/internal/file"
	"github.com/filedrive-app/filedrive/internal/storage"
)

type memFileRepo struct {
	files map[string]*file.File
}

func newMemFileRepo() *memFileRepo {
	return &memFileRepo{files: map[string]*file.File{}}
}

func (r *memFileRepo) Create(ctx context.Context, f *file.File) error {
	cp := *f
	r.files[f.ID] = &cp
	return nil
}

func (r *memFileRepo) GetByID(ctx context.Context, id string) (*file.File, error) {
	f, ok := r.files[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *memFileRepo) List(
	ctx context.Context,
	filter file.ListFilter,
) ([]file.FileWithFavorite, error) {
	var out []file.FileWithFavorite
	for _, f := range r.files {
		if f.OrgID != filter.OrgID {
			continue
		}
		if filter.Type != "" && f.Type != filter.Type {
			continue
		}
		if f.ShouldDelete != filter.OnlyDeleted {
			continue
		}
		out = append(out, file.FileWithFavorite{File: *f})
	}
	return out, nil
}

func (r *memFileRepo) SetShouldDelete(
	ctx context.Context,
	id string,
	marked bool,
) error {
	f, ok := r.files[id]
	if !ok {
		return core.ErrNotFound
	}
	f.ShouldDelete = marked
	return nil
}

func (r *memFileRepo) ListMarked(
	ctx context.Context,
	limit int,
) ([]file.File, error) {
	var out []file.File
	for _, f := range r.files {
		if f.ShouldDelete && len(out) < limit {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *memFileRepo) Purge(ctx context.Context, id string) error {
	if _, ok := r.files[id]; !ok {
		return core.ErrNotFound
	}
	delete(r.files, id)
	return nil
}

func (r *memFileRepo) CountByOrg(ctx context.Context, orgID string) (int, error) {
	n := 0
	for _, f := range r.files {
		if f.OrgID == orgID {
			n++
		}
	}
	return n, nil
}

type memBlobStore struct {
	objects map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: map[string][]byte{}}
}

func (s *memBlobStore) Put(
	ctx context.Context,
	key string,
	r io.Reader,
) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.objects[key] = data
	return int64(len(data)), nil
}

func (s *memBlobStore) Open(
	ctx context.Context,
	key string,
) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memBlobStore) Delete(ctx context.Context, key string) error {
	if _, ok := s.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *memBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

type openGuard struct{}

func (openGuard) HasAccess(ctx context.Context, userID, orgID string) (bool, error) {
	return userID != "" && orgID != "", nil
}

func (openGuard) IsOrgAdmin(ctx context.Context, userID, orgID string) (bool, error) {
	return userID != "" && orgID != "", nil
}

// The full lifecycle: upload a blob, register it, see it listed, flag it,
// sweep, and confirm both the row and the blob are gone.
func TestFileLifecycle(t *testing.T) {
	ctx := context.Background()

	repo := newMemFileRepo()
	store := newMemBlobStore()

	svc := file.NewService(repo, openGuard{}, store, func(key string) string {
		return "http://localhost/v1/objects/" + key
	})

	_, err := store.Put(ctx, "aaaa1111", bytes.NewReader([]byte("csv data")))
	require.NoError(t, err)

	created, err := svc.Create(ctx, "u-1", file.CreateFileRequest{
		Name:      "report.csv",
		Type:      file.TypeCSV,
		OrgID:     "org-1",
		ObjectKey: "aaaa1111",
	})
	require.NoError(t, err)

	listed, err := svc.List(ctx, "u-1", file.ListFilesQuery{OrgID: "org-1"})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, svc.MarkForDeletion(ctx, "u-1", created.ID))

	// Flagged files drop out of the default view but show under the
	// deleted-only toggle until the sweeper runs.
	listed, err = svc.List(ctx, "u-1", file.ListFilesQuery{OrgID: "org-1"})
	require.NoError(t, err)
	assert.Empty(t, listed)

	trashed, err := svc.List(ctx, "u-1", file.ListFilesQuery{
		OrgID:       "org-1",
		DeletedOnly: true,
	})
	require.NoError(t, err)
	assert.Len(t, trashed, 1)

	s := New(repo, store, time.Minute, testLogger())

	result, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Purged)

	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	exists, err := store.Exists(ctx, "aaaa1111")
	require.NoError(t, err)
	assert.False(t, exists)

	// A second sweep over the now-empty set is a no-op.
	result, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Purged)
}

func TestRestoreBeforeSweepKeepsFile(t *testing.T) {
	ctx := context.Background()

	repo := newMemFileRepo()
	store := newMemBlobStore()

	svc := file.NewService(repo, openGuard{}, store, func(key string) string {
		return "http://localhost/v1/objects/" + key
	})

	_, err := store.Put(ctx, "bbbb2222", bytes.NewReader([]byte("img")))
	require.NoError(t, err)

	created, err := svc.Create(ctx, "u-1", file.CreateFileRequest{
		Name:      "photo.png",
		Type:      file.TypeImage,
		OrgID:     "org-1",
		ObjectKey: "bbbb2222",
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkForDeletion(ctx, "u-1", created.ID))
	require.NoError(t, svc.Restore(ctx, "u-1", created.ID))

	s := New(repo, store, time.Minute, testLogger())

	result, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Purged)

	listed, err := svc.List(ctx, "u-1", file.ListFilesQuery{OrgID: "org-1"})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}
