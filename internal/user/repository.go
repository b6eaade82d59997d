// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/filedrive-app/filedrive/internal/core"
)

const userColumns = `
	id, email, password_hash, name, avatar_url, role, token_version,
	created_at, updated_at, deleted_at`

const pgUniqueViolation = "23505"

type Repository interface {
	Insert(ctx context.Context, u *User) error
	ByID(ctx context.Context, id string) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	SaveProfile(ctx context.Context, u *User) error
	SetPassword(ctx context.Context, id, passwordHash string) error
	BumpTokenVersion(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	Search(ctx context.Context, params ListUsersParams) ([]User, int, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, email, password_hash, name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at, token_version`

	err := r.db.GetContext(ctx, u, query,
		u.ID,
		u.Email,
		u.PasswordHash,
		u.Name,
		u.Role,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("insert user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (r *repository) ByID(ctx context.Context, id string) (*User, error) {
	return r.one(ctx, "id", id)
}

func (r *repository) ByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	return r.one(ctx, "email", email)
}

func (r *repository) one(
	ctx context.Context,
	column, value string,
) (*User, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM users WHERE %s = $1 AND deleted_at IS NULL`,
		userColumns,
		column,
	)

	var u User
	err := r.db.GetContext(ctx, &u, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

func (r *repository) SaveProfile(ctx context.Context, u *User) error {
	query := `
		UPDATE users
		SET name = $2, avatar_url = $3, role = $4, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &u.UpdatedAt, query,
		u.ID,
		u.Name,
		u.AvatarURL,
		u.Role,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("save profile: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	return nil
}

func (r *repository) SetPassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.mutate(ctx, "set password", query, id, passwordHash)
}

func (r *repository) BumpTokenVersion(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.mutate(ctx, "bump token version", query, id)
}

func (r *repository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.mutate(ctx, "delete user", query, id)
}

// mutate runs an update that must hit exactly one live row.
func (r *repository) mutate(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func (r *repository) Search(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	where, args := searchPredicate(params)

	countQuery := "SELECT COUNT(*) FROM users WHERE " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)+1, len(args)+2)

	args = append(args, params.PageSize, params.Offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("search users: %w", err)
	}

	return users, total, nil
}

func searchPredicate(params ListUsersParams) (string, []any) {
	conditions := []string{"deleted_at IS NULL"}
	var args []any

	if params.Search != "" {
		args = append(args, "%"+escapeLike(params.Search)+"%")
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR name ILIKE $%d)", len(args), len(args)))
	}

	if params.Role != "" {
		args = append(args, params.Role)
		conditions = append(
			conditions,
			fmt.Sprintf("role = $%d", len(args)),
		)
	}

	return strings.Join(conditions, " AND "), args
}

func (r *repository) EmailTaken(
	ctx context.Context,
	email string,
) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL
		)`

	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, email); err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}

	return taken, nil
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`%`, `\%`,
		`_`, `\_`,
	)
	return replacer.Replace(s)
}
