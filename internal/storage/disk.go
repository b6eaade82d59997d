// AngelaMos | 2026
// disk.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/filedrive-app/filedrive/internal/core"
)

var ErrObjectNotFound = errors.New("object not found")

// DiskStore keeps objects on local disk, sharded two levels deep by key
// prefix so a single directory never accumulates millions of entries.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) Put(
	ctx context.Context,
	key string,
	r io.Reader,
) (int64, error) {
	path, err := s.objectPath(key)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return 0, fmt.Errorf("create shard dir: %w", err)
	}

	// Write to a temp file in the same directory, then rename. A reader
	// never observes a half-written object.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()           //nolint:errcheck // cleanup path
		_ = os.Remove(tmpName)    //nolint:errcheck // cleanup path
		return 0, fmt.Errorf("write object: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // cleanup path
		return 0, fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // cleanup path
		return 0, fmt.Errorf("finalize object: %w", err)
	}

	return written, nil
}

func (s *DiskStore) Open(
	ctx context.Context,
	key string,
) (io.ReadCloser, error) {
	path, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open object %s: %w", key, ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}

	return f, nil
}

func (s *DiskStore) Delete(ctx context.Context, key string) error {
	path, err := s.objectPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete object %s: %w", key, ErrObjectNotFound)
		}
		return fmt.Errorf("delete object %s: %w", key, err)
	}

	return nil
}

func (s *DiskStore) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.objectPath(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat object %s: %w", key, err)
	}

	return true, nil
}

// Ping satisfies the health checker by confirming the root is still a
// writable directory.
func (s *DiskStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("storage root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage root %s is not a directory", s.root)
	}
	return nil
}

func (s *DiskStore) objectPath(key string) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("invalid object key %q: %w", key, core.ErrInvalidInput)
	}
	return filepath.Join(s.root, key[:2], key[2:4], key), nil
}

// validKey accepts lowercase hex/uuid-shaped keys long enough to shard.
// Anything else is rejected before it can touch the filesystem.
func validKey(key string) bool {
	if len(key) < 8 || len(key) > 128 {
		return false
	}
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return false
		}
	}
	return !strings.Contains(key, "..")
}

var _ BlobStore = (*DiskStore)(nil)
