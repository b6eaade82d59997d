// AngelaMos | 2026
// repository.go

package file

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/filedrive-app/filedrive/internal/core"
)

// ListFilter is the already-resolved shape of a listing: the service
// collapses the view toggles into these fields before they reach SQL.
type ListFilter struct {
	OrgID string
	Type  string

	// OnlyDeleted selects flagged rows; otherwise flagged rows are
	// excluded.
	OnlyDeleted bool

	// FavoritesFor restricts to files favorited by this user. Empty means
	// no restriction.
	FavoritesFor string

	// ViewerID drives the is_favorited projection. Empty yields false for
	// every row.
	ViewerID string
}

type FileWithFavorite struct {
	File
	IsFavorited bool `db:"is_favorited"`
}

type Repository interface {
	Create(ctx context.Context, f *File) error
	GetByID(ctx context.Context, id string) (*File, error)
	List(ctx context.Context, filter ListFilter) ([]FileWithFavorite, error)
	SetShouldDelete(ctx context.Context, id string, marked bool) error
	ListMarked(ctx context.Context, limit int) ([]File, error)
	Purge(ctx context.Context, id string) error
	CountByOrg(ctx context.Context, orgID string) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, f *File) error {
	query := `
		INSERT INTO files (id, name, type, object_key, org_id, user_id, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, f, query,
		f.ID,
		f.Name,
		f.Type,
		f.ObjectKey,
		f.OrgID,
		f.UserID,
		f.URL,
	)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*File, error) {
	query := `
		SELECT id, name, type, object_key, org_id, user_id, url,
		       should_delete, created_at, updated_at
		FROM files
		WHERE id = $1`

	var f File
	err := r.db.GetContext(ctx, &f, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get file: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	return &f, nil
}

func (r *repository) List(
	ctx context.Context,
	filter ListFilter,
) ([]FileWithFavorite, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("f.org_id = $%d", argIdx))
	args = append(args, filter.OrgID)
	argIdx++

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("f.type = $%d", argIdx))
		args = append(args, filter.Type)
		argIdx++
	}

	if filter.OnlyDeleted {
		conditions = append(conditions, "f.should_delete")
	} else {
		conditions = append(conditions, "NOT f.should_delete")
	}

	if filter.FavoritesFor != "" {
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM favorites fav
			WHERE fav.file_id = f.id
				AND fav.org_id = f.org_id
				AND fav.user_id = $%d
		)`, argIdx))
		args = append(args, filter.FavoritesFor)
		argIdx++
	}

	favProjection := "FALSE AS is_favorited"
	if filter.ViewerID != "" {
		favProjection = fmt.Sprintf(`EXISTS (
			SELECT 1 FROM favorites fav
			WHERE fav.file_id = f.id
				AND fav.org_id = f.org_id
				AND fav.user_id = $%d
		) AS is_favorited`, argIdx)
		args = append(args, filter.ViewerID)
		argIdx++
	}

	query := fmt.Sprintf(`
		SELECT f.id, f.name, f.type, f.object_key, f.org_id, f.user_id,
		       f.url, f.should_delete, f.created_at, f.updated_at,
		       %s
		FROM files f
		WHERE %s
		ORDER BY f.created_at DESC`,
		favProjection,
		strings.Join(conditions, " AND "),
	)

	var files []FileWithFavorite
	if err := r.db.SelectContext(ctx, &files, query, args...); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	return files, nil
}

func (r *repository) SetShouldDelete(
	ctx context.Context,
	id string,
	marked bool,
) error {
	query := `
		UPDATE files
		SET should_delete = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, marked)
	if err != nil {
		return fmt.Errorf("flag file: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("flag file: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("flag file: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) ListMarked(
	ctx context.Context,
	limit int,
) ([]File, error) {
	query := `
		SELECT id, name, type, object_key, org_id, user_id, url,
		       should_delete, created_at, updated_at
		FROM files
		WHERE should_delete
		ORDER BY updated_at ASC
		LIMIT $1`

	var files []File
	if err := r.db.SelectContext(ctx, &files, query, limit); err != nil {
		return nil, fmt.Errorf("list marked files: %w", err)
	}

	return files, nil
}

func (r *repository) Purge(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("purge file: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("purge file: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("purge file: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) CountByOrg(
	ctx context.Context,
	orgID string,
) (int, error) {
	query := `SELECT COUNT(*) FROM files WHERE org_id = $1`

	var count int
	if err := r.db.GetContext(ctx, &count, query, orgID); err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}

	return count, nil
}
