// AngelaMos | 2026
// jwt.go

package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/filedrive-app/filedrive/internal/config"
	"github.com/filedrive-app/filedrive/internal/core"
	"github.com/filedrive-app/filedrive/internal/middleware"
)

const accessTokenType = "access"

// JWTManager signs and verifies ES256 access tokens and publishes the
// verification key as a JWKS.
type JWTManager struct {
	privateKey jwk.Key
	publicKey  jwk.Key
	publicJWKS jwk.Set
	config     config.JWTConfig
}

// NewJWTManager loads the signing key from cfg.PrivateKeyPath. When the
// file does not exist yet, a fresh P-256 pair is generated and written to
// the configured paths so a dev instance boots without a provisioning step.
func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	pem, err := os.ReadFile(cfg.PrivateKeyPath)
	if errors.Is(err, fs.ErrNotExist) {
		if genErr := GenerateKeyPair(
			cfg.PrivateKeyPath,
			cfg.PublicKeyPath,
		); genErr != nil {
			return nil, fmt.Errorf("bootstrap key pair: %w", genErr)
		}
		pem, err = os.ReadFile(cfg.PrivateKeyPath)
	}
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	privateKey, err := jwk.ParseKey(pem, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	if err := tagSigningKey(privateKey); err != nil {
		return nil, err
	}

	publicKey, err := privateKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}

	if err := publicKey.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, fmt.Errorf("set key usage: %w", err)
	}

	jwks := jwk.NewSet()
	if err := jwks.AddKey(publicKey); err != nil {
		return nil, fmt.Errorf("add key to set: %w", err)
	}

	return &JWTManager{
		privateKey: privateKey,
		publicKey:  publicKey,
		publicJWKS: jwks,
		config:     cfg,
	}, nil
}

func tagSigningKey(key jwk.Key) error {
	if err := key.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return fmt.Errorf("set algorithm: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, uuid.New().String()[:8]); err != nil {
		return fmt.Errorf("set key id: %w", err)
	}
	return nil
}

// GenerateKeyPair writes a new P-256 signing key pair in PEM form.
func GenerateKeyPair(privateKeyPath, publicKeyPath string) error {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	private, err := jwk.Import(ecKey)
	if err != nil {
		return fmt.Errorf("import private key: %w", err)
	}

	if err := tagSigningKey(private); err != nil {
		return err
	}

	privatePEM, err := jwk.Pem(private)
	if err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}
	if err := os.WriteFile(privateKeyPath, privatePEM, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}

	public, err := private.PublicKey()
	if err != nil {
		return fmt.Errorf("derive public key: %w", err)
	}

	publicPEM, err := jwk.Pem(public)
	if err != nil {
		return fmt.Errorf("encode public key: %w", err)
	}

	//nolint:gosec // G306: public key is intentionally world-readable
	if err := os.WriteFile(publicKeyPath, publicPEM, 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}

	return nil
}

type AccessTokenClaims struct {
	UserID       string `json:"sub"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
}

func (m *JWTManager) CreateAccessToken(
	claims AccessTokenClaims,
) (string, error) {
	now := time.Now()

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(m.config.Issuer).
		Audience([]string{m.config.Audience}).
		Subject(claims.UserID).
		IssuedAt(now).
		Expiration(now.Add(m.config.AccessTokenExpire)).
		NotBefore(now).
		Claim("role", claims.Role).
		Claim("token_version", claims.TokenVersion).
		Claim("type", accessTokenType).
		Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), m.privateKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return string(signed), nil
}

// ParseAccessToken verifies the signature and registered claims, then
// lifts the custom claims into the shape the middleware carries. The
// blacklist and token-version checks live in the Service, not here.
func (m *JWTManager) ParseAccessToken(
	tokenString string,
) (*middleware.AccessTokenClaims, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.ES256(), m.publicKey),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
	)
	if err != nil {
		if isExpiryError(err) {
			return nil, fmt.Errorf("parse token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("parse token: %w", core.ErrTokenInvalid)
	}

	return extractClaims(token)
}

func extractClaims(token jwt.Token) (*middleware.AccessTokenClaims, error) {
	var tokenType string
	if err := token.Get("type", &tokenType); err != nil ||
		tokenType != accessTokenType {
		return nil, invalidClaim("type")
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, invalidClaim("sub")
	}

	tokenID, ok := token.JwtID()
	if !ok || tokenID == "" {
		return nil, invalidClaim("jti")
	}

	expiresAt, ok := token.Expiration()
	if !ok {
		return nil, invalidClaim("exp")
	}

	var role string
	if err := token.Get("role", &role); err != nil {
		return nil, invalidClaim("role")
	}

	var version float64
	if err := token.Get("token_version", &version); err != nil {
		return nil, invalidClaim("token_version")
	}

	return &middleware.AccessTokenClaims{
		UserID:       subject,
		Role:         role,
		TokenID:      tokenID,
		TokenVersion: int(version),
		ExpiresAt:    expiresAt,
	}, nil
}

func invalidClaim(name string) error {
	return fmt.Errorf("parse token: bad %s claim: %w", name, core.ErrTokenInvalid)
}

// jwx reports expiry as a generic validation error, so the check is on
// the message.
func isExpiryError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "exp") && strings.Contains(msg, "not satisfied")
}

func (m *JWTManager) GetJWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")

		if err := json.NewEncoder(w).Encode(m.publicJWKS); err != nil {
			http.Error(
				w,
				"Internal Server Error",
				http.StatusInternalServerError,
			)
		}
	}
}

func (m *JWTManager) GetKeyID() string {
	var kid string
	//nolint:errcheck // key ID always set during NewJWTManager init
	_ = m.privateKey.Get(jwk.KeyIDKey, &kid)
	return kid
}

// RefreshCredential is a freshly minted opaque refresh token plus the
// hash and lineage metadata that get persisted. Only the Token field is
// ever sent to the client.
type RefreshCredential struct {
	Token     string
	Hash      string
	ExpiresAt time.Time
	FamilyID  string
}

func (m *JWTManager) MintRefreshCredential(
	familyID string,
) (*RefreshCredential, error) {
	token, err := core.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if familyID == "" {
		familyID = uuid.New().String()
	}

	return &RefreshCredential{
		Token:     token,
		Hash:      core.HashToken(token),
		ExpiresAt: time.Now().Add(m.config.RefreshTokenExpire),
		FamilyID:  familyID,
	}, nil
}

func (m *JWTManager) AccessTokenTTL() time.Duration {
	return m.config.AccessTokenExpire
}
