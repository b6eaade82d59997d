// AngelaMos | 2026
// service.go

package org

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/filedrive-app/filedrive/internal/core"
)

// Service owns tenant membership and the access rules every file and
// favorite operation funnels through. A tenant is either a real
// organization row or a user's personal namespace, where the tenant ID
// equals the user ID.
type Service struct {
	db   *sqlx.DB
	repo Repository
}

func NewService(db *sqlx.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

// HasAccess reports whether userID may operate inside orgID. Anonymous
// callers never have access. A user always has access to their personal
// namespace; otherwise a membership row must exist.
func (s *Service) HasAccess(
	ctx context.Context,
	userID, orgID string,
) (bool, error) {
	if userID == "" || orgID == "" {
		return false, nil
	}

	if orgID == userID {
		return true, nil
	}

	_, err := s.repo.GetMembership(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// RequireAccess is the write-path variant of HasAccess: denial comes back
// as ErrForbidden so handlers surface it as an access error.
func (s *Service) RequireAccess(
	ctx context.Context,
	userID, orgID string,
) error {
	ok, err := s.HasAccess(ctx, userID, orgID)
	if err != nil {
		return fmt.Errorf("check access: %w", err)
	}
	if !ok {
		return fmt.Errorf("check access: %w", core.ErrForbidden)
	}
	return nil
}

// IsOrgAdmin reports whether userID holds the admin role inside orgID.
// The sole occupant of a personal namespace is its admin.
func (s *Service) IsOrgAdmin(
	ctx context.Context,
	userID, orgID string,
) (bool, error) {
	if userID == "" || orgID == "" {
		return false, nil
	}

	if orgID == userID {
		return true, nil
	}

	m, err := s.repo.GetMembership(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return m.IsAdmin(), nil
}

// RequireAdmin rejects with ErrForbidden unless userID is an org admin.
func (s *Service) RequireAdmin(
	ctx context.Context,
	userID, orgID string,
) error {
	ok, err := s.IsOrgAdmin(ctx, userID, orgID)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if !ok {
		return fmt.Errorf("check admin: %w", core.ErrForbidden)
	}
	return nil
}

// CreateOrganization makes a new org with the creator as its first admin.
// Both rows commit or neither does.
func (s *Service) CreateOrganization(
	ctx context.Context,
	userID, name string,
) (*Organization, error) {
	if userID == "" {
		return nil, fmt.Errorf("create organization: %w", core.ErrUnauthorized)
	}

	org := &Organization{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedBy: userID,
	}

	err := core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)

		if err := repo.Create(ctx, org); err != nil {
			return err
		}

		return repo.AddMember(ctx, &Membership{
			ID:     uuid.New().String(),
			OrgID:  org.ID,
			UserID: userID,
			Role:   RoleAdmin,
		})
	})
	if err != nil {
		return nil, err
	}

	return org, nil
}

func (s *Service) GetOrganization(
	ctx context.Context,
	userID, orgID string,
) (*Organization, error) {
	if err := s.RequireAccess(ctx, userID, orgID); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, orgID)
}

func (s *Service) ListMyOrganizations(
	ctx context.Context,
	userID string,
) ([]OrgWithRole, error) {
	if userID == "" {
		return nil, fmt.Errorf("list organizations: %w", core.ErrUnauthorized)
	}

	return s.repo.ListForUser(ctx, userID)
}

func (s *Service) AddMember(
	ctx context.Context,
	requesterID, orgID string,
	req AddMemberRequest,
) (*Membership, error) {
	if err := s.RequireAdmin(ctx, requesterID, orgID); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByID(ctx, orgID); err != nil {
		return nil, err
	}

	m := &Membership{
		ID:     uuid.New().String(),
		OrgID:  orgID,
		UserID: req.UserID,
		Role:   req.Role,
	}

	if err := s.repo.AddMember(ctx, m); err != nil {
		return nil, err
	}

	return m, nil
}

func (s *Service) ListMembers(
	ctx context.Context,
	requesterID, orgID string,
) ([]Membership, error) {
	if err := s.RequireAccess(ctx, requesterID, orgID); err != nil {
		return nil, err
	}

	return s.repo.ListMembers(ctx, orgID)
}

func (s *Service) UpdateMemberRole(
	ctx context.Context,
	requesterID, orgID, userID, role string,
) error {
	if err := s.RequireAdmin(ctx, requesterID, orgID); err != nil {
		return err
	}

	return s.repo.UpdateMemberRole(ctx, orgID, userID, role)
}

// RemoveMember lets admins remove anyone and members remove themselves.
func (s *Service) RemoveMember(
	ctx context.Context,
	requesterID, orgID, userID string,
) error {
	if requesterID != userID {
		if err := s.RequireAdmin(ctx, requesterID, orgID); err != nil {
			return err
		}
	}

	return s.repo.RemoveMember(ctx, orgID, userID)
}
