// AngelaMos | 2026
// repository.go

package favorite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/filedrive-app/filedrive/internal/core"
)

type Repository interface {
	// Toggle flips the favorite state atomically and reports the state
	// after the call: true means the favorite now exists.
	Toggle(ctx context.Context, userID, orgID, fileID string) (bool, error)
	ListForUser(
		ctx context.Context,
		userID, orgID string,
	) ([]Favorite, error)
	Exists(ctx context.Context, userID, orgID, fileID string) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Toggle runs delete-else-insert inside one transaction. Two concurrent
// toggles serialize on the unique (user_id, org_id, file_id) index: the
// state after both is exactly as if they ran one after the other, never a
// duplicate row.
func (r *repository) Toggle(
	ctx context.Context,
	userID, orgID, fileID string,
) (bool, error) {
	var favorited bool

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		deleteQuery := `
			DELETE FROM favorites
			WHERE user_id = $1 AND org_id = $2 AND file_id = $3`

		result, err := tx.ExecContext(ctx, deleteQuery, userID, orgID, fileID)
		if err != nil {
			return fmt.Errorf("remove favorite: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("remove favorite: %w", err)
		}

		if rows > 0 {
			favorited = false
			return nil
		}

		insertQuery := `
			INSERT INTO favorites (id, user_id, org_id, file_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, org_id, file_id) DO NOTHING`

		_, err = tx.ExecContext(
			ctx,
			insertQuery,
			uuid.New().String(),
			userID,
			orgID,
			fileID,
		)
		if err != nil {
			return fmt.Errorf("add favorite: %w", err)
		}

		favorited = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return favorited, nil
}

func (r *repository) ListForUser(
	ctx context.Context,
	userID, orgID string,
) ([]Favorite, error) {
	query := `
		SELECT id, user_id, org_id, file_id, created_at
		FROM favorites
		WHERE user_id = $1 AND org_id = $2
		ORDER BY created_at DESC`

	var favorites []Favorite
	err := r.db.SelectContext(ctx, &favorites, query, userID, orgID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	return favorites, nil
}

func (r *repository) Exists(
	ctx context.Context,
	userID, orgID, fileID string,
) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM favorites
			WHERE user_id = $1 AND org_id = $2 AND file_id = $3
		)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, userID, orgID, fileID)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}

	return exists, nil
}
