// AngelaMos | 2026
// service.go

package file

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/filedrive-app/filedrive/internal/core"
)

// AccessChecker is the slice of the org service the registry needs.
type AccessChecker interface {
	HasAccess(ctx context.Context, userID, orgID string) (bool, error)
	IsOrgAdmin(ctx context.Context, userID, orgID string) (bool, error)
}

// ObjectStore verifies uploaded blobs exist before a row references them.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
}

type Service struct {
	repo      Repository
	guard     AccessChecker
	objects   ObjectStore
	objectURL func(key string) string
}

func NewService(
	repo Repository,
	guard AccessChecker,
	objects ObjectStore,
	objectURL func(key string) string,
) *Service {
	return &Service{
		repo:      repo,
		guard:     guard,
		objects:   objects,
		objectURL: objectURL,
	}
}

// Create registers an uploaded blob as a file in the tenant. The serving
// URL is resolved here, once, and stored with the row.
func (s *Service) Create(
	ctx context.Context,
	userID string,
	req CreateFileRequest,
) (*File, error) {
	if userID == "" {
		return nil, fmt.Errorf("create file: %w", core.ErrUnauthorized)
	}

	ok, err := s.guard.HasAccess(ctx, userID, req.OrgID)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("create file: %w", core.ErrForbidden)
	}

	exists, err := s.objects.Exists(ctx, req.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf(
			"create file: object %s not uploaded: %w",
			req.ObjectKey,
			core.ErrInvalidInput,
		)
	}

	url := s.objectURL(req.ObjectKey)

	f := &File{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Type:      req.Type,
		ObjectKey: req.ObjectKey,
		OrgID:     req.OrgID,
		UserID:    userID,
		URL:       &url,
	}

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}

	return f, nil
}

// List returns the tenant's files under the view toggles. Denied or
// anonymous readers get an empty slice, never an error: listing reveals
// nothing about tenants the caller cannot see.
//
// Toggle layering, in order: the type filter always applies; deleted-only
// shows flagged rows and overrides favorites-only; otherwise flagged rows
// are hidden, and favorites-only additionally restricts to the viewer's
// favorites.
func (s *Service) List(
	ctx context.Context,
	userID string,
	q ListFilesQuery,
) ([]FileWithFavorite, error) {
	if userID == "" {
		return []FileWithFavorite{}, nil
	}

	ok, err := s.guard.HasAccess(ctx, userID, q.OrgID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if !ok {
		return []FileWithFavorite{}, nil
	}

	filter := resolveFilter(userID, q)

	files, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	if files == nil {
		files = []FileWithFavorite{}
	}

	return files, nil
}

// resolveFilter collapses the two view toggles into a concrete filter.
func resolveFilter(userID string, q ListFilesQuery) ListFilter {
	filter := ListFilter{
		OrgID:    q.OrgID,
		Type:     q.Type,
		ViewerID: userID,
	}

	switch {
	case q.DeletedOnly:
		filter.OnlyDeleted = true
	case q.FavoritesOnly:
		filter.FavoritesFor = userID
	}

	return filter
}

// MarkForDeletion flags a file for the background sweeper. Org admin only.
func (s *Service) MarkForDeletion(
	ctx context.Context,
	userID, fileID string,
) error {
	f, err := s.fileForWrite(ctx, userID, fileID)
	if err != nil {
		return err
	}

	if err := s.requireOrgAdmin(ctx, userID, f.OrgID); err != nil {
		return err
	}

	return s.repo.SetShouldDelete(ctx, fileID, true)
}

// Restore clears the deletion flag before the sweeper gets to it. Org
// admin only.
func (s *Service) Restore(ctx context.Context, userID, fileID string) error {
	f, err := s.fileForWrite(ctx, userID, fileID)
	if err != nil {
		return err
	}

	if err := s.requireOrgAdmin(ctx, userID, f.OrgID); err != nil {
		return err
	}

	return s.repo.SetShouldDelete(ctx, fileID, false)
}

// Get returns a single file the caller can see.
func (s *Service) Get(
	ctx context.Context,
	userID, fileID string,
) (*File, error) {
	return s.fileForWrite(ctx, userID, fileID)
}

// fileForWrite loads a file for a mutating caller. A missing file and a
// file in a foreign tenant produce the same ErrForbidden, so probing IDs
// leaks nothing.
func (s *Service) fileForWrite(
	ctx context.Context,
	userID, fileID string,
) (*File, error) {
	if userID == "" {
		return nil, fmt.Errorf("access file: %w", core.ErrUnauthorized)
	}

	f, err := s.repo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("access file: %w", core.ErrForbidden)
		}
		return nil, err
	}

	ok, err := s.guard.HasAccess(ctx, userID, f.OrgID)
	if err != nil {
		return nil, fmt.Errorf("access file: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("access file: %w", core.ErrForbidden)
	}

	return f, nil
}

func (s *Service) requireOrgAdmin(
	ctx context.Context,
	userID, orgID string,
) error {
	admin, err := s.guard.IsOrgAdmin(ctx, userID, orgID)
	if err != nil {
		return fmt.Errorf("access file: %w", err)
	}
	if !admin {
		return fmt.Errorf("access file: %w", core.ErrForbidden)
	}
	return nil
}
