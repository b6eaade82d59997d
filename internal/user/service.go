// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/filedrive-app/filedrive/internal/auth"
	"github.com/filedrive-app/filedrive/internal/core"
)

// Service wraps account storage. It doubles as the auth package's
// UserProvider, which is why the credential-facing methods speak in
// auth.UserInfo rather than the full entity.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var _ auth.UserProvider = (*Service)(nil)

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	u, err := s.repo.ByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return toUserInfo(u), nil
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	u, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserInfo(u), nil
}

func (s *Service) Create(
	ctx context.Context,
	email, passwordHash, name string,
) (*auth.UserInfo, error) {
	u := &User{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		Name:         name,
		Role:         RoleUser,
	}

	if err := s.repo.Insert(ctx, u); err != nil {
		return nil, err
	}

	return toUserInfo(u), nil
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	userID string,
) error {
	return s.repo.BumpTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.SetPassword(ctx, userID, passwordHash)
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.ByID(ctx, id)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}
	return s.repo.ByID(ctx, userID)
}

func (s *Service) UpdateUser(
	ctx context.Context,
	id string,
	req UpdateUserRequest,
) (*User, error) {
	u, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	req.applyTo(u)

	if err := s.repo.SaveProfile(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateUserRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}
	return s.UpdateUser(ctx, userID, req)
}

func (s *Service) UpdateUserRole(
	ctx context.Context,
	id, role string,
) (*User, error) {
	if role != RoleUser && role != RoleAdmin {
		return nil, fmt.Errorf(
			"update role: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	u, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	u.Role = role

	if err := s.repo.SaveProfile(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.repo.SoftDelete(ctx, id)
}

func (s *Service) DeleteMe(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("delete me: %w", core.ErrUnauthorized)
	}
	return s.repo.SoftDelete(ctx, userID)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.Search(ctx, params)
}

func (s *Service) EmailExists(
	ctx context.Context,
	email string,
) (bool, error) {
	return s.repo.EmailTaken(ctx, normalizeEmail(email))
}

// CanDeleteUser enforces the deletion policy: anyone may delete their
// own account, admins may delete non-admin accounts, nobody deletes an
// admin through the API.
func (s *Service) CanDeleteUser(
	ctx context.Context,
	requesterID, targetID string,
) error {
	if requesterID == targetID {
		return nil
	}

	requester, err := s.repo.ByID(ctx, requesterID)
	if err != nil {
		return err
	}
	if !requester.IsAdmin() {
		return fmt.Errorf("delete user: %w", core.ErrForbidden)
	}

	target, err := s.repo.ByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target.IsAdmin() {
		return fmt.Errorf("cannot delete admin users: %w", core.ErrForbidden)
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserInfo(u *User) *auth.UserInfo {
	info := &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		TokenVersion: u.TokenVersion,
	}
	if u.AvatarURL != nil {
		info.AvatarURL = *u.AvatarURL
	}
	return info
}
