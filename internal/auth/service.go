// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/filedrive-app/filedrive/internal/core"
	"github.com/filedrive-app/filedrive/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
)

const blacklistPrefix = "blacklist:"

type UserInfo struct {
	ID           string
	Email        string
	Name         string
	AvatarURL    string
	PasswordHash string
	Role         string
	TokenVersion int
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(
		ctx context.Context,
		email, passwordHash, name string,
	) (*UserInfo, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// Service owns login, registration, and the refresh-token session
// lifecycle. It also implements middleware.TokenVerifier, layering the
// redis blacklist and the per-user token version on top of signature
// verification.
type Service struct {
	sessions Repository
	jwt      *JWTManager
	users    UserProvider
	redis    *redis.Client
	logger   *slog.Logger
}

func NewService(
	sessions Repository,
	jwt *JWTManager,
	users UserProvider,
	redisClient *redis.Client,
	logger *slog.Logger,
) *Service {
	return &Service{
		sessions: sessions,
		jwt:      jwt,
		users:    users,
		redis:    redisClient,
		logger:   logger,
	}
}

// VerifyAccessToken checks signature, blacklist, and token version, in
// that order. A redis outage fails open: a signed, unexpired token keeps
// working rather than taking every request down with the cache.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.ParseAccessToken(token)
	if err != nil {
		return nil, err
	}

	blacklisted, err := s.isBlacklisted(ctx, claims.TokenID)
	if err != nil {
		s.logger.Warn("token blacklist unavailable",
			"error", err,
			"user_id", claims.UserID,
		)
	} else if blacklisted {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("verify token: %w", err)
	}

	if claims.TokenVersion < user.TokenVersion {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	return claims, nil
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.users.UpdatePassword(ctx, user.ID, newHash)
	}

	return s.issueTokens(ctx, user, sessionMeta{
		userAgent: userAgent,
		ipAddress: ipAddress,
	})
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, req.Email, passwordHash, req.Name)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issueTokens(ctx, user, sessionMeta{
		userAgent: userAgent,
		ipAddress: ipAddress,
	})
}

// Refresh rotates the presented refresh token. Presenting an
// already-rotated token is treated as theft: the whole family is revoked
// and the caller gets ErrTokenReuse.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (*AuthResponse, error) {
	session, err := s.sessions.ByHash(ctx, core.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	if session.Rotated {
		//nolint:errcheck // security revocation continues regardless
		_ = s.sessions.RevokeFamily(ctx, session.FamilyID)
		s.logger.Warn("refresh token replay, family revoked",
			"user_id", session.UserID,
			"family_id", session.FamilyID,
		)
		return nil, ErrTokenReuse
	}

	if !session.Active() {
		if session.Revoked() {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return s.issueTokens(ctx, user, sessionMeta{
		userAgent:   userAgent,
		ipAddress:   ipAddress,
		familyID:    session.FamilyID,
		predecessor: session.ID,
	})
}

// Logout revokes the presented refresh token and blacklists the access
// token that authenticated the call, so neither half of the pair
// outlives the logout.
func (s *Service) Logout(
	ctx context.Context,
	refreshToken string,
	claims *middleware.AccessTokenClaims,
) error {
	session, err := s.sessions.ByHash(ctx, core.HashToken(refreshToken))
	switch {
	case errors.Is(err, core.ErrNotFound):
		// Already gone; still blacklist the access token below.
	case err != nil:
		return fmt.Errorf("find session: %w", err)
	case session.UserID != claims.UserID:
		return fmt.Errorf("logout: %w", core.ErrForbidden)
	default:
		if err := s.sessions.Revoke(ctx, session.ID); err != nil &&
			!errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("revoke session: %w", err)
		}
	}

	s.blacklist(ctx, claims)
	return nil
}

// LogoutAll revokes every session and bumps the token version, which
// invalidates all outstanding access tokens on their next use.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke all sessions: %w", err)
	}

	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	return nil
}

func (s *Service) blacklist(
	ctx context.Context,
	claims *middleware.AccessTokenClaims,
) {
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return
	}

	key := blacklistPrefix + claims.TokenID
	if err := s.redis.Set(ctx, key, "1", ttl).Err(); err != nil {
		s.logger.Warn("failed to blacklist access token",
			"error", err,
			"user_id", claims.UserID,
		)
	}
}

func (s *Service) isBlacklisted(
	ctx context.Context,
	tokenID string,
) (bool, error) {
	n, err := s.redis.Exists(ctx, blacklistPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return n > 0, nil
}

func (s *Service) GetActiveSessions(
	ctx context.Context,
	userID string,
) ([]SessionInfo, error) {
	sessions, err := s.sessions.ActiveForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, SessionInfo{
			ID:        sess.ID,
			UserAgent: sess.UserAgent,
			IPAddress: sess.IPAddress,
			CreatedAt: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
		})
	}

	return infos, nil
}

func (s *Service) RevokeSession(
	ctx context.Context,
	userID, sessionID string,
) error {
	session, err := s.sessions.ByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}

	if session.UserID != userID {
		return fmt.Errorf("revoke session: %w", core.ErrForbidden)
	}

	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword string,
) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, _, err := core.VerifyPasswordWithRehash(
		currentPassword,
		user.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return ErrInvalidCredentials
	}

	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return s.LogoutAll(ctx, userID)
}

// PurgeExpiredSessions is called by the janitor goroutine in main.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.PurgeExpired(ctx)
}

func (s *Service) GetCurrentUser(
	ctx context.Context,
	userID string,
) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := userResponse(user)
	return &resp, nil
}

type sessionMeta struct {
	userAgent   string
	ipAddress   string
	familyID    string
	predecessor string
}

func (s *Service) issueTokens(
	ctx context.Context,
	user *UserInfo,
	meta sessionMeta,
) (*AuthResponse, error) {
	accessToken, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       user.ID,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	cred, err := s.jwt.MintRefreshCredential(meta.familyID)
	if err != nil {
		return nil, fmt.Errorf("mint refresh credential: %w", err)
	}

	session := &Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: cred.Hash,
		FamilyID:  cred.FamilyID,
		ExpiresAt: cred.ExpiresAt,
		UserAgent: meta.userAgent,
		IPAddress: meta.ipAddress,
	}

	if err := s.sessions.Insert(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	if meta.predecessor != "" {
		//nolint:errcheck // best-effort lineage link
		_ = s.sessions.MarkRotated(ctx, meta.predecessor, session.ID)
	}

	ttl := s.jwt.AccessTokenTTL()

	return &AuthResponse{
		User: userResponse(user),
		Tokens: TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: cred.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(ttl / time.Second),
			ExpiresAt:    time.Now().Add(ttl),
		},
	}, nil
}

func userResponse(user *UserInfo) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Role:      user.Role,
	}
}
