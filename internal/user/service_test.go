// AngelaMos | 2026
// service_test.go

package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedrive-app/filedrive/internal/core"
)

type fakeRepo struct {
	byIDFn        func(ctx context.Context, id string) (*User, error)
	byEmailFn     func(ctx context.Context, email string) (*User, error)
	insertFn      func(ctx context.Context, u *User) error
	saveProfileFn func(ctx context.Context, u *User) error
}

func (f *fakeRepo) Insert(ctx context.Context, u *User) error {
	if f.insertFn != nil {
		return f.insertFn(ctx, u)
	}
	return nil
}

func (f *fakeRepo) ByID(ctx context.Context, id string) (*User, error) {
	if f.byIDFn != nil {
		return f.byIDFn(ctx, id)
	}
	return nil, core.ErrNotFound
}

func (f *fakeRepo) ByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	if f.byEmailFn != nil {
		return f.byEmailFn(ctx, email)
	}
	return nil, core.ErrNotFound
}

func (f *fakeRepo) SaveProfile(ctx context.Context, u *User) error {
	if f.saveProfileFn != nil {
		return f.saveProfileFn(ctx, u)
	}
	return nil
}

func (f *fakeRepo) SetPassword(context.Context, string, string) error {
	return nil
}

func (f *fakeRepo) BumpTokenVersion(context.Context, string) error {
	return nil
}

func (f *fakeRepo) SoftDelete(context.Context, string) error {
	return nil
}

func (f *fakeRepo) Search(
	context.Context,
	ListUsersParams,
) ([]User, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) EmailTaken(context.Context, string) (bool, error) {
	return false, nil
}

func usersByID(users ...*User) *fakeRepo {
	index := map[string]*User{}
	for _, u := range users {
		index[u.ID] = u
	}
	return &fakeRepo{
		byIDFn: func(_ context.Context, id string) (*User, error) {
			u, ok := index[id]
			if !ok {
				return nil, core.ErrNotFound
			}
			return u, nil
		},
	}
}

func TestCreateNormalizesEmail(t *testing.T) {
	var inserted *User
	repo := &fakeRepo{
		insertFn: func(_ context.Context, u *User) error {
			inserted = u
			return nil
		},
	}
	svc := NewService(repo)

	info, err := svc.Create(
		context.Background(),
		"  Dana@Example.COM ",
		"hash",
		"Dana",
	)
	require.NoError(t, err)

	assert.Equal(t, "dana@example.com", inserted.Email)
	assert.Equal(t, RoleUser, inserted.Role)
	assert.Equal(t, inserted.ID, info.ID)
}

func TestGetByEmailNormalizes(t *testing.T) {
	var asked string
	repo := &fakeRepo{
		byEmailFn: func(_ context.Context, email string) (*User, error) {
			asked = email
			return &User{ID: "u-1", Email: email}, nil
		},
	}
	svc := NewService(repo)

	_, err := svc.GetByEmail(context.Background(), "Dana@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", asked)
}

func TestUpdateUserRoleRejectsUnknownRole(t *testing.T) {
	svc := NewService(&fakeRepo{})

	_, err := svc.UpdateUserRole(context.Background(), "u-1", "superuser")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestUpdateUserPatchesOnlyProvidedFields(t *testing.T) {
	avatar := "https://cdn.example.com/a.png"
	existing := &User{
		ID:        "u-1",
		Name:      "Dana",
		AvatarURL: &avatar,
	}
	repo := usersByID(existing)

	newName := "Dana Q"
	u, err := NewService(repo).UpdateUser(
		context.Background(),
		"u-1",
		UpdateUserRequest{Name: &newName},
	)
	require.NoError(t, err)

	assert.Equal(t, "Dana Q", u.Name)
	require.NotNil(t, u.AvatarURL)
	assert.Equal(t, avatar, *u.AvatarURL)
}

func TestCanDeleteUserSelf(t *testing.T) {
	svc := NewService(&fakeRepo{})

	assert.NoError(
		t,
		svc.CanDeleteUser(context.Background(), "u-1", "u-1"),
	)
}

func TestCanDeleteUserNonAdminForbidden(t *testing.T) {
	repo := usersByID(
		&User{ID: "u-1", Role: RoleUser},
		&User{ID: "u-2", Role: RoleUser},
	)

	err := NewService(repo).CanDeleteUser(context.Background(), "u-1", "u-2")
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestCanDeleteUserAdminTargetProtected(t *testing.T) {
	repo := usersByID(
		&User{ID: "u-1", Role: RoleAdmin},
		&User{ID: "u-2", Role: RoleAdmin},
	)

	err := NewService(repo).CanDeleteUser(context.Background(), "u-1", "u-2")
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestCanDeleteUserAdminMayDeleteUser(t *testing.T) {
	repo := usersByID(
		&User{ID: "u-1", Role: RoleAdmin},
		&User{ID: "u-2", Role: RoleUser},
	)

	assert.NoError(
		t,
		NewService(repo).CanDeleteUser(context.Background(), "u-1", "u-2"),
	)
}

func TestMeOperationsRequireIdentity(t *testing.T) {
	svc := NewService(&fakeRepo{})
	ctx := context.Background()

	_, err := svc.GetMe(ctx, "")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, err = svc.UpdateMe(ctx, "", UpdateUserRequest{})
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	assert.ErrorIs(t, svc.DeleteMe(ctx, ""), core.ErrUnauthorized)
}
