// AngelaMos | 2026
// sweeper_test.go

package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedrive-app/filedrive/internal/file"
	"github.com/filedrive-app/filedrive/internal/storage"
)

type fakeFileRepo struct {
	marked  []file.File
	purged  []string
	purgeFn func(ctx context.Context, id string) error
}

func (r *fakeFileRepo) Create(ctx context.Context, f *file.File) error {
	return nil
}

func (r *fakeFileRepo) GetByID(ctx context.Context, id string) (*file.File, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeFileRepo) List(
	ctx context.Context,
	filter file.ListFilter,
) ([]file.FileWithFavorite, error) {
	return nil, nil
}

func (r *fakeFileRepo) SetShouldDelete(
	ctx context.Context,
	id string,
	marked bool,
) error {
	return nil
}

func (r *fakeFileRepo) ListMarked(
	ctx context.Context,
	limit int,
) ([]file.File, error) {
	if len(r.marked) > limit {
		return r.marked[:limit], nil
	}
	return r.marked, nil
}

func (r *fakeFileRepo) Purge(ctx context.Context, id string) error {
	if r.purgeFn != nil {
		if err := r.purgeFn(ctx, id); err != nil {
			return err
		}
	}
	r.purged = append(r.purged, id)
	return nil
}

func (r *fakeFileRepo) CountByOrg(ctx context.Context, orgID string) (int, error) {
	return 0, nil
}

type fakeBlobStore struct {
	deleted  []string
	deleteFn func(ctx context.Context, key string) error
}

func (s *fakeBlobStore) Put(
	ctx context.Context,
	key string,
	r io.Reader,
) (int64, error) {
	return 0, nil
}

func (s *fakeBlobStore) Open(
	ctx context.Context,
	key string,
) (io.ReadCloser, error) {
	return nil, storage.ErrObjectNotFound
}

func (s *fakeBlobStore) Delete(ctx context.Context, key string) error {
	if s.deleteFn != nil {
		if err := s.deleteFn(ctx, key); err != nil {
			return err
		}
	}
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOncePurgesMarkedFiles(t *testing.T) {
	repo := &fakeFileRepo{
		marked: []file.File{
			{ID: "f-1", ObjectKey: "aaaa1111"},
			{ID: "f-2", ObjectKey: "bbbb2222"},
		},
	}
	store := &fakeBlobStore{}

	s := New(repo, store, time.Minute, testLogger())

	result, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Purged)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, []string{"aaaa1111", "bbbb2222"}, store.deleted)
	assert.Equal(t, []string{"f-1", "f-2"}, repo.purged)
}

func TestRunOnceNothingMarked(t *testing.T) {
	s := New(&fakeFileRepo{}, &fakeBlobStore{}, time.Minute, testLogger())

	result, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Purged)
	assert.Equal(t, 0, result.Failed)
}

func TestRunOnceMissingBlobStillPurgesRow(t *testing.T) {
	// A crash after the blob was deleted leaves a flagged row with no
	// object behind it. The next pass must still remove the row.
	repo := &fakeFileRepo{
		marked: []file.File{{ID: "f-1", ObjectKey: "aaaa1111"}},
	}
	store := &fakeBlobStore{
		deleteFn: func(_ context.Context, _ string) error {
			return storage.ErrObjectNotFound
		},
	}

	s := New(repo, store, time.Minute, testLogger())

	result, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Purged)
	assert.Equal(t, []string{"f-1"}, repo.purged)
}

func TestRunOnceBlobErrorKeepsRow(t *testing.T) {
	repo := &fakeFileRepo{
		marked: []file.File{
			{ID: "f-1", ObjectKey: "aaaa1111"},
			{ID: "f-2", ObjectKey: "bbbb2222"},
		},
	}
	store := &fakeBlobStore{
		deleteFn: func(_ context.Context, key string) error {
			if key == "aaaa1111" {
				return errors.New("disk on fire")
			}
			return nil
		},
	}

	s := New(repo, store, time.Minute, testLogger())

	result, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	// The failing file is skipped and stays flagged; the other one still
	// gets purged in the same pass.
	assert.Equal(t, 1, result.Purged)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"f-2"}, repo.purged)
}

func TestRunOnceRespectsBatchLimit(t *testing.T) {
	marked := make([]file.File, batchSize+10)
	for i := range marked {
		marked[i] = file.File{ID: "f", ObjectKey: "aaaa1111"}
	}

	repo := &fakeFileRepo{marked: marked}
	store := &fakeBlobStore{}

	s := New(repo, store, time.Minute, testLogger())

	result, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, batchSize, result.Purged)
}

func TestRunOncePassesAreMutuallyExclusive(t *testing.T) {
	var inflight, peak atomic.Int32

	repo := &fakeFileRepo{
		marked: []file.File{{ID: "f-1", ObjectKey: "aaaa1111"}},
	}
	store := &fakeBlobStore{
		deleteFn: func(_ context.Context, _ string) error {
			n := inflight.Add(1)
			defer inflight.Add(-1)

			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}

			time.Sleep(20 * time.Millisecond)
			return nil
		},
	}

	s := New(repo, store, time.Minute, testLogger())

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RunOnce(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Both passes ran, one after the other.
	assert.Equal(t, int32(1), peak.Load())
	assert.Len(t, store.deleted, 2)
}

func TestStartStopIdempotent(t *testing.T) {
	s := New(&fakeFileRepo{}, &fakeBlobStore{}, time.Hour, testLogger())

	ctx := context.Background()
	s.Start(ctx)
	s.Start(ctx) // second call is a no-op

	s.Stop()
	s.Stop() // stopping again must not block or panic
}
