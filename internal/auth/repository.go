// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/filedrive-app/filedrive/internal/core"
)

const sessionColumns = `
	id, user_id, token_hash, family_id, expires_at, created_at,
	is_used, used_at, revoked_at, replaced_by_id, user_agent, ip_address`

type Repository interface {
	Insert(ctx context.Context, s *Session) error
	ByHash(ctx context.Context, tokenHash string) (*Session, error)
	ByID(ctx context.Context, id string) (*Session, error)
	MarkRotated(ctx context.Context, id, successorID string) error
	Revoke(ctx context.Context, id string) error
	RevokeFamily(ctx context.Context, familyID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	ActiveForUser(ctx context.Context, userID string) ([]Session, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, family_id, expires_at,
			user_agent, ip_address
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &s.CreatedAt, query,
		s.ID,
		s.UserID,
		s.TokenHash,
		s.FamilyID,
		s.ExpiresAt,
		s.UserAgent,
		s.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

func (r *repository) ByHash(
	ctx context.Context,
	tokenHash string,
) (*Session, error) {
	return r.one(ctx, "token_hash", tokenHash)
}

func (r *repository) ByID(ctx context.Context, id string) (*Session, error) {
	return r.one(ctx, "id", id)
}

func (r *repository) one(
	ctx context.Context,
	column, value string,
) (*Session, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM refresh_tokens WHERE %s = $1`,
		sessionColumns,
		column,
	)

	var s Session
	err := r.db.GetContext(ctx, &s, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find session: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}

	return &s, nil
}

func (r *repository) MarkRotated(
	ctx context.Context,
	id, successorID string,
) error {
	query := `
		UPDATE refresh_tokens
		SET is_used = true, used_at = NOW(), replaced_by_id = $2
		WHERE id = $1 AND is_used = false`

	return r.exec(ctx, "rotate session", true, query, id, successorID)
}

func (r *repository) Revoke(ctx context.Context, id string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL`

	return r.exec(ctx, "revoke session", true, query, id)
}

func (r *repository) RevokeFamily(ctx context.Context, familyID string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE family_id = $1 AND revoked_at IS NULL`

	return r.exec(ctx, "revoke session family", false, query, familyID)
}

func (r *repository) RevokeAllForUser(
	ctx context.Context,
	userID string,
) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`

	return r.exec(ctx, "revoke user sessions", false, query, userID)
}

// exec runs a mutation; with mustMatch set, zero affected rows comes back
// as ErrNotFound.
func (r *repository) exec(
	ctx context.Context,
	op string,
	mustMatch bool,
	query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if mustMatch {
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if rows == 0 {
			return fmt.Errorf("%s: %w", op, core.ErrNotFound)
		}
	}

	return nil
}

func (r *repository) ActiveForUser(
	ctx context.Context,
	userID string,
) ([]Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM refresh_tokens
		WHERE user_id = $1
			AND revoked_at IS NULL
			AND is_used = false
			AND expires_at > NOW()
		ORDER BY created_at DESC`, sessionColumns)

	var sessions []Session
	if err := r.db.SelectContext(ctx, &sessions, query, userID); err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}

	return sessions, nil
}

// PurgeExpired deletes sessions a day past expiry. The grace window keeps
// recently expired rows around for reuse detection.
func (r *repository) PurgeExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at < $1`

	result, err := r.db.ExecContext(
		ctx,
		query,
		time.Now().Add(-24*time.Hour),
	)
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}

	return rows, nil
}
