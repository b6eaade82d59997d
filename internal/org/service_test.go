// AngelaMos | 2026
// service_test.go

package org

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedrive-app/filedrive/internal/core"
)

type fakeRepo struct {
	getMembershipFn func(ctx context.Context, orgID, userID string) (*Membership, error)
	listMembersFn   func(ctx context.Context, orgID string) ([]Membership, error)
	removeMemberFn  func(ctx context.Context, orgID, userID string) error
}

func (r *fakeRepo) Create(ctx context.Context, org *Organization) error {
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (*Organization, error) {
	return nil, core.ErrNotFound
}

func (r *fakeRepo) ListForUser(
	ctx context.Context,
	userID string,
) ([]OrgWithRole, error) {
	return nil, nil
}

func (r *fakeRepo) AddMember(ctx context.Context, m *Membership) error {
	return nil
}

func (r *fakeRepo) GetMembership(
	ctx context.Context,
	orgID, userID string,
) (*Membership, error) {
	if r.getMembershipFn != nil {
		return r.getMembershipFn(ctx, orgID, userID)
	}
	return nil, core.ErrNotFound
}

func (r *fakeRepo) ListMembers(
	ctx context.Context,
	orgID string,
) ([]Membership, error) {
	if r.listMembersFn != nil {
		return r.listMembersFn(ctx, orgID)
	}
	return nil, nil
}

func (r *fakeRepo) UpdateMemberRole(
	ctx context.Context,
	orgID, userID, role string,
) error {
	return nil
}

func (r *fakeRepo) RemoveMember(ctx context.Context, orgID, userID string) error {
	if r.removeMemberFn != nil {
		return r.removeMemberFn(ctx, orgID, userID)
	}
	return nil
}

func membershipRepo(role string) *fakeRepo {
	return &fakeRepo{
		getMembershipFn: func(_ context.Context, orgID, userID string) (*Membership, error) {
			return &Membership{
				ID:     "m-1",
				OrgID:  orgID,
				UserID: userID,
				Role:   role,
			}, nil
		},
	}
}

func TestHasAccessAnonymousDenied(t *testing.T) {
	svc := NewService(nil, membershipRepo(RoleAdmin))

	ok, err := svc.HasAccess(context.Background(), "", "org-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasAccessEmptyOrgDenied(t *testing.T) {
	svc := NewService(nil, membershipRepo(RoleAdmin))

	ok, err := svc.HasAccess(context.Background(), "u-1", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasAccessPersonalNamespace(t *testing.T) {
	// No membership row exists, yet the owner may use the namespace whose
	// ID equals their own.
	svc := NewService(nil, &fakeRepo{})

	ok, err := svc.HasAccess(context.Background(), "u-1", "u-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasAccessViaMembership(t *testing.T) {
	svc := NewService(nil, membershipRepo(RoleMember))

	ok, err := svc.HasAccess(context.Background(), "u-1", "org-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasAccessNoMembershipDenied(t *testing.T) {
	svc := NewService(nil, &fakeRepo{})

	ok, err := svc.HasAccess(context.Background(), "u-1", "org-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsOrgAdminPersonalNamespace(t *testing.T) {
	svc := NewService(nil, &fakeRepo{})

	ok, err := svc.IsOrgAdmin(context.Background(), "u-1", "u-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsOrgAdminMemberIsNotAdmin(t *testing.T) {
	svc := NewService(nil, membershipRepo(RoleMember))

	ok, err := svc.IsOrgAdmin(context.Background(), "u-1", "org-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsOrgAdminAdminRole(t *testing.T) {
	svc := NewService(nil, membershipRepo(RoleAdmin))

	ok, err := svc.IsOrgAdmin(context.Background(), "u-1", "org-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRequireAccessDeniedIsForbidden(t *testing.T) {
	svc := NewService(nil, &fakeRepo{})

	err := svc.RequireAccess(context.Background(), "u-1", "org-1")
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestRequireAdminMemberIsForbidden(t *testing.T) {
	svc := NewService(nil, membershipRepo(RoleMember))

	err := svc.RequireAdmin(context.Background(), "u-1", "org-1")
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestRemoveMemberSelfAllowed(t *testing.T) {
	removed := false
	repo := &fakeRepo{
		removeMemberFn: func(_ context.Context, orgID, userID string) error {
			removed = true
			return nil
		},
	}
	svc := NewService(nil, repo)

	// A plain member leaving on their own does not need admin rights.
	err := svc.RemoveMember(context.Background(), "u-1", "org-1", "u-1")
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestRemoveMemberOtherNeedsAdmin(t *testing.T) {
	svc := NewService(nil, membershipRepo(RoleMember))

	err := svc.RemoveMember(context.Background(), "u-1", "org-1", "u-2")
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestListMyOrganizationsRequiresIdentity(t *testing.T) {
	svc := NewService(nil, &fakeRepo{})

	_, err := svc.ListMyOrganizations(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}
