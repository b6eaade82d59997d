// AngelaMos | 2026
// uploads.go

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/filedrive-app/filedrive/internal/core"
)

const uploadTokenPrefix = "upload:"

// UploadTicket is what a client gets back from requesting an upload slot:
// a single-use token and the object key the blob will land under.
type UploadTicket struct {
	Token     string    `json:"token"`
	ObjectKey string    `json:"object_key"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type uploadClaim struct {
	ObjectKey string `json:"object_key"`
	UserID    string `json:"user_id"`
}

// UploadTokenManager hands out short-lived single-use upload tokens backed
// by redis. Claiming is a GETDEL so two concurrent PUTs with the same token
// cannot both succeed.
type UploadTokenManager struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewUploadTokenManager(
	redisClient *redis.Client,
	ttl time.Duration,
) *UploadTokenManager {
	return &UploadTokenManager{
		redis: redisClient,
		ttl:   ttl,
	}
}

func (m *UploadTokenManager) Issue(
	ctx context.Context,
	userID string,
) (*UploadTicket, error) {
	token := strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", "")
	objectKey := uuid.New().String()

	claim, err := json.Marshal(uploadClaim{
		ObjectKey: objectKey,
		UserID:    userID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal upload claim: %w", err)
	}

	key := uploadTokenPrefix + token
	if err := m.redis.Set(ctx, key, claim, m.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store upload token: %w", err)
	}

	return &UploadTicket{
		Token:     token,
		ObjectKey: objectKey,
		ExpiresAt: time.Now().Add(m.ttl),
	}, nil
}

func (m *UploadTokenManager) Claim(
	ctx context.Context,
	token string,
) (objectKey, userID string, err error) {
	key := uploadTokenPrefix + token

	raw, err := m.redis.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", "", fmt.Errorf("claim upload token: %w", core.ErrNotFound)
	}
	if err != nil {
		return "", "", fmt.Errorf("claim upload token: %w", err)
	}

	var claim uploadClaim
	if err := json.Unmarshal([]byte(raw), &claim); err != nil {
		return "", "", fmt.Errorf("decode upload claim: %w", err)
	}

	return claim.ObjectKey, claim.UserID, nil
}
