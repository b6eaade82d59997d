// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedrive-app/filedrive/internal/config"
	"github.com/filedrive-app/filedrive/internal/core"
)

type memSessionRepo struct {
	sessions map[string]*Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[string]*Session{}}
}

func (r *memSessionRepo) Insert(_ context.Context, s *Session) error {
	cp := *s
	cp.CreatedAt = time.Now()
	r.sessions[s.ID] = &cp
	s.CreatedAt = cp.CreatedAt
	return nil
}

func (r *memSessionRepo) ByHash(
	_ context.Context,
	tokenHash string,
) (*Session, error) {
	for _, s := range r.sessions {
		if s.TokenHash == tokenHash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *memSessionRepo) ByID(_ context.Context, id string) (*Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) MarkRotated(
	_ context.Context,
	id, successorID string,
) error {
	s, ok := r.sessions[id]
	if !ok || s.Rotated {
		return core.ErrNotFound
	}
	now := time.Now()
	s.Rotated = true
	s.RotatedAt = &now
	s.ReplacedByID = &successorID
	return nil
}

func (r *memSessionRepo) Revoke(_ context.Context, id string) error {
	s, ok := r.sessions[id]
	if !ok || s.RevokedAt != nil {
		return core.ErrNotFound
	}
	now := time.Now()
	s.RevokedAt = &now
	return nil
}

func (r *memSessionRepo) RevokeFamily(
	_ context.Context,
	familyID string,
) error {
	now := time.Now()
	for _, s := range r.sessions {
		if s.FamilyID == familyID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (r *memSessionRepo) RevokeAllForUser(
	_ context.Context,
	userID string,
) error {
	now := time.Now()
	for _, s := range r.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (r *memSessionRepo) ActiveForUser(
	_ context.Context,
	userID string,
) ([]Session, error) {
	var out []Session
	for _, s := range r.sessions {
		if s.UserID == userID && s.Active() {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memSessionRepo) PurgeExpired(_ context.Context) (int64, error) {
	cutoff := time.Now().Add(-24 * time.Hour)
	var n int64
	for id, s := range r.sessions {
		if s.ExpiresAt.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

type memUsers struct {
	byEmail map[string]*UserInfo
}

func newMemUsers(users ...*UserInfo) *memUsers {
	m := &memUsers{byEmail: map[string]*UserInfo{}}
	for _, u := range users {
		m.byEmail[u.Email] = u
	}
	return m
}

func (m *memUsers) GetByEmail(
	_ context.Context,
	email string,
) (*UserInfo, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, core.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memUsers) Create(
	_ context.Context,
	email, passwordHash, name string,
) (*UserInfo, error) {
	if _, ok := m.byEmail[email]; ok {
		return nil, core.ErrDuplicateKey
	}
	u := &UserInfo{
		ID:           "u-" + name,
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         "user",
	}
	m.byEmail[email] = u
	return u, nil
}

func (m *memUsers) IncrementTokenVersion(
	_ context.Context,
	userID string,
) error {
	for _, u := range m.byEmail {
		if u.ID == userID {
			u.TokenVersion++
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memUsers) UpdatePassword(
	_ context.Context,
	userID, passwordHash string,
) error {
	for _, u := range m.byEmail {
		if u.ID == userID {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	return core.ErrNotFound
}

// newTestService builds a Service on a throwaway key pair, an in-memory
// session store, and a redis client pointed at a closed port. The dead
// redis exercises the fail-open path of the blacklist.
func newTestService(
	t *testing.T,
	users *memUsers,
) (*Service, *memSessionRepo) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.JWTConfig{
		PrivateKeyPath:     filepath.Join(dir, "jwt.pem"),
		PublicKeyPath:      filepath.Join(dir, "jwt.pub.pem"),
		Issuer:             "filedrive-test",
		Audience:           "filedrive-api",
		AccessTokenExpire:  15 * time.Minute,
		RefreshTokenExpire: 720 * time.Hour,
	}

	manager, err := NewJWTManager(cfg)
	require.NoError(t, err)

	repo := newMemSessionRepo()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewService(repo, manager, users, rdb, logger), repo
}

func testUser(t *testing.T, password string) *UserInfo {
	t.Helper()

	hash, err := core.HashPassword(password)
	require.NoError(t, err)

	return &UserInfo{
		ID:           "u-1",
		Email:        "dana@example.com",
		Name:         "Dana",
		PasswordHash: hash,
		Role:         "user",
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newTestService(t, newMemUsers())

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever123",
	}, "ua", "127.0.0.1")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t, newMemUsers(testUser(t, "correct-horse1")))

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "dana@example.com",
		Password: "battery-staple",
	}, "ua", "127.0.0.1")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginIssuesVerifiableTokens(t *testing.T) {
	svc, repo := newTestService(t, newMemUsers(testUser(t, "correct-horse1")))
	ctx := context.Background()

	resp, err := svc.Login(ctx, LoginRequest{
		Email:    "dana@example.com",
		Password: "correct-horse1",
	}, "ua", "127.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer", resp.Tokens.TokenType)
	assert.NotEmpty(t, resp.Tokens.RefreshToken)
	assert.Len(t, repo.sessions, 1)

	claims, err := svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "user", claims.Role)
	assert.NotEmpty(t, claims.TokenID)
	assert.False(t, claims.ExpiresAt.IsZero())
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t, newMemUsers())

	_, err := svc.VerifyAccessToken(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerifyRejectsStaleTokenVersion(t *testing.T) {
	user := testUser(t, "correct-horse1")
	users := newMemUsers(user)
	svc, _ := newTestService(t, users)
	ctx := context.Background()

	resp, err := svc.Login(ctx, LoginRequest{
		Email:    "dana@example.com",
		Password: "correct-horse1",
	}, "ua", "127.0.0.1")
	require.NoError(t, err)

	require.NoError(t, svc.LogoutAll(ctx, user.ID))

	_, err = svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, repo := newTestService(t, newMemUsers(testUser(t, "correct-horse1")))
	ctx := context.Background()

	first, err := svc.Login(ctx, LoginRequest{
		Email:    "dana@example.com",
		Password: "correct-horse1",
	}, "ua", "127.0.0.1")
	require.NoError(t, err)

	second, err := svc.Refresh(
		ctx,
		first.Tokens.RefreshToken,
		"ua",
		"127.0.0.1",
	)
	require.NoError(t, err)
	assert.NotEqual(
		t,
		first.Tokens.RefreshToken,
		second.Tokens.RefreshToken,
	)

	require.Len(t, repo.sessions, 2)

	var rotated int
	for _, s := range repo.sessions {
		if s.Rotated {
			rotated++
			require.NotNil(t, s.ReplacedByID)
		}
	}
	assert.Equal(t, 1, rotated)
}

func TestRefreshReplayRevokesFamily(t *testing.T) {
	svc, repo := newTestService(t, newMemUsers(testUser(t, "correct-horse1")))
	ctx := context.Background()

	first, err := svc.Login(ctx, LoginRequest{
		Email:    "dana@example.com",
		Password: "correct-horse1",
	}, "ua", "127.0.0.1")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, first.Tokens.RefreshToken, "ua", "127.0.0.1")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, first.Tokens.RefreshToken, "ua", "127.0.0.1")
	assert.ErrorIs(t, err, ErrTokenReuse)

	for _, s := range repo.sessions {
		assert.True(t, s.Revoked() || s.Rotated)
	}
}

func TestRefreshUnknownTokenIsInvalid(t *testing.T) {
	svc, _ := newTestService(t, newMemUsers())

	_, err := svc.Refresh(
		context.Background(),
		"never-issued",
		"ua",
		"127.0.0.1",
	)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, repo := newTestService(t, newMemUsers(testUser(t, "correct-horse1")))
	ctx := context.Background()

	resp, err := svc.Login(ctx, LoginRequest{
		Email:    "dana@example.com",
		Password: "correct-horse1",
	}, "ua", "127.0.0.1")
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, resp.Tokens.RefreshToken, claims))

	for _, s := range repo.sessions {
		assert.True(t, s.Revoked())
	}

	_, err = svc.Refresh(ctx, resp.Tokens.RefreshToken, "ua", "127.0.0.1")
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestRevokeSessionOtherUserForbidden(t *testing.T) {
	svc, repo := newTestService(t, newMemUsers(testUser(t, "correct-horse1")))
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginRequest{
		Email:    "dana@example.com",
		Password: "correct-horse1",
	}, "ua", "127.0.0.1")
	require.NoError(t, err)

	var sessionID string
	for id := range repo.sessions {
		sessionID = id
	}

	err = svc.RevokeSession(ctx, "someone-else", sessionID)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	user := testUser(t, "correct-horse1")
	svc, _ := newTestService(t, newMemUsers(user))

	err := svc.ChangePassword(
		context.Background(),
		user.ID,
		"wrong-current",
		"new-password-99",
	)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
