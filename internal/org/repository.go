// AngelaMos | 2026
// repository.go

package org

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/filedrive-app/filedrive/internal/core"
)

type Repository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	ListForUser(ctx context.Context, userID string) ([]OrgWithRole, error)
	AddMember(ctx context.Context, m *Membership) error
	GetMembership(
		ctx context.Context,
		orgID, userID string,
	) (*Membership, error)
	ListMembers(ctx context.Context, orgID string) ([]Membership, error)
	UpdateMemberRole(ctx context.Context, orgID, userID, role string) error
	RemoveMember(ctx context.Context, orgID, userID string) error
}

type OrgWithRole struct {
	Organization
	Role string `db:"role"`
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, org *Organization) error {
	query := `
		INSERT INTO organizations (id, name, created_by)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &org.CreatedAt, query,
		org.ID,
		org.Name,
		org.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
) (*Organization, error) {
	query := `
		SELECT id, name, created_by, created_at
		FROM organizations
		WHERE id = $1`

	var org Organization
	err := r.db.GetContext(ctx, &org, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get organization: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}

	return &org, nil
}

func (r *repository) ListForUser(
	ctx context.Context,
	userID string,
) ([]OrgWithRole, error) {
	query := `
		SELECT o.id, o.name, o.created_by, o.created_at, m.role
		FROM organizations o
		JOIN org_members m ON m.org_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.created_at DESC`

	var orgs []OrgWithRole
	if err := r.db.SelectContext(ctx, &orgs, query, userID); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}

	return orgs, nil
}

func (r *repository) AddMember(ctx context.Context, m *Membership) error {
	query := `
		INSERT INTO org_members (id, org_id, user_id, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &m.CreatedAt, query,
		m.ID,
		m.OrgID,
		m.UserID,
		m.Role,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("add member: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("add member: %w", err)
	}

	return nil
}

func (r *repository) GetMembership(
	ctx context.Context,
	orgID, userID string,
) (*Membership, error) {
	query := `
		SELECT id, org_id, user_id, role, created_at
		FROM org_members
		WHERE org_id = $1 AND user_id = $2`

	var m Membership
	err := r.db.GetContext(ctx, &m, query, orgID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get membership: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}

	return &m, nil
}

func (r *repository) ListMembers(
	ctx context.Context,
	orgID string,
) ([]Membership, error) {
	query := `
		SELECT id, org_id, user_id, role, created_at
		FROM org_members
		WHERE org_id = $1
		ORDER BY created_at ASC`

	var members []Membership
	if err := r.db.SelectContext(ctx, &members, query, orgID); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	return members, nil
}

func (r *repository) UpdateMemberRole(
	ctx context.Context,
	orgID, userID, role string,
) error {
	query := `
		UPDATE org_members
		SET role = $3
		WHERE org_id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, orgID, userID, role)
	if err != nil {
		return fmt.Errorf("update member role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update member role: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update member role: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) RemoveMember(
	ctx context.Context,
	orgID, userID string,
) error {
	query := `
		DELETE FROM org_members
		WHERE org_id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, orgID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("remove member: %w", core.ErrNotFound)
	}

	return nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
