// AngelaMos | 2026
// service.go

package favorite

import (
	"context"
	"errors"
	"fmt"

	"github.com/filedrive-app/filedrive/internal/core"
	"github.com/filedrive-app/filedrive/internal/file"
)

type AccessChecker interface {
	HasAccess(ctx context.Context, userID, orgID string) (bool, error)
}

// FileProvider locates the file being toggled so the favorite inherits
// its tenant.
type FileProvider interface {
	GetByID(ctx context.Context, id string) (*file.File, error)
}

type Service struct {
	repo  Repository
	guard AccessChecker
	files FileProvider
}

func NewService(
	repo Repository,
	guard AccessChecker,
	files FileProvider,
) *Service {
	return &Service{
		repo:  repo,
		guard: guard,
		files: files,
	}
}

// Toggle flips the caller's favorite on a file. A missing file and an
// inaccessible one both come back as ErrForbidden.
func (s *Service) Toggle(
	ctx context.Context,
	userID, fileID string,
) (*ToggleResponse, error) {
	if userID == "" {
		return nil, fmt.Errorf("toggle favorite: %w", core.ErrUnauthorized)
	}

	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("toggle favorite: %w", core.ErrForbidden)
		}
		return nil, err
	}

	ok, err := s.guard.HasAccess(ctx, userID, f.OrgID)
	if err != nil {
		return nil, fmt.Errorf("toggle favorite: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("toggle favorite: %w", core.ErrForbidden)
	}

	favorited, err := s.repo.Toggle(ctx, userID, f.OrgID, fileID)
	if err != nil {
		return nil, err
	}

	return &ToggleResponse{
		FileID:    fileID,
		Favorited: favorited,
	}, nil
}

// List returns the caller's favorites inside one tenant. Anonymous or
// denied callers get an empty slice.
func (s *Service) List(
	ctx context.Context,
	userID, orgID string,
) ([]Favorite, error) {
	if userID == "" {
		return []Favorite{}, nil
	}

	ok, err := s.guard.HasAccess(ctx, userID, orgID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	if !ok {
		return []Favorite{}, nil
	}

	favorites, err := s.repo.ListForUser(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}

	if favorites == nil {
		favorites = []Favorite{}
	}

	return favorites, nil
}
