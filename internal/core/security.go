// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Stored hashes carry their own parameters, so these
// can be raised later; older hashes get rehashed on the next successful
// login.
const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16

	refreshTokenBytes = 32
)

type hashParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

func (p hashParams) current() bool {
	return p.memory == argonMemory &&
		p.time == argonTime &&
		p.threads == argonThreads &&
		p.keyLen == argonKeyLen
}

func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		argonTime,
		argonMemory,
		argonThreads,
		argonKeyLen,
	)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonTime,
		argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func VerifyPassword(password, encodedHash string) (bool, error) {
	params, salt, hash, err := parseHash(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey(
		[]byte(password),
		salt,
		params.time,
		params.memory,
		params.threads,
		params.keyLen,
	)

	return subtle.ConstantTimeCompare(hash, candidate) == 1, nil
}

// VerifyPasswordWithRehash verifies and, when the stored hash predates the
// current parameters, returns a fresh hash to persist. An empty newHash
// means the stored one is still current.
func VerifyPasswordWithRehash(
	password, encodedHash string,
) (valid bool, newHash string, err error) {
	valid, err = VerifyPassword(password, encodedHash)
	if err != nil || !valid {
		return valid, "", err
	}

	if params, _, _, perr := parseHash(encodedHash); perr == nil && params.current() {
		return true, "", nil
	}

	rehash, herr := HashPassword(password)
	if herr != nil {
		//nolint:nilerr // password already verified; a failed rehash is not fatal
		return true, "", nil
	}
	return true, rehash, nil
}

// decoyHash is verified against when no account exists, so a login probe
// costs the same whether or not the email is registered.
var decoyHash = sync.OnceValue(func() string {
	h, err := HashPassword("decoy-password-for-constant-time-login")
	if err != nil {
		panic(fmt.Sprintf("security: decoy hash: %v", err))
	}
	return h
})

func VerifyPasswordTimingSafe(
	password string,
	encodedHash *string,
) (bool, string, error) {
	stored := decoyHash()
	if encodedHash != nil && *encodedHash != "" {
		stored = *encodedHash
	}

	valid, newHash, err := VerifyPasswordWithRehash(password, stored)

	if encodedHash == nil || *encodedHash == "" {
		return false, "", nil
	}
	return valid, newHash, err
}

func parseHash(encodedHash string) (hashParams, []byte, []byte, error) {
	var p hashParams

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return p, nil, nil, fmt.Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("invalid version: %w", err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("incompatible version: %d", version)
	}

	_, err := fmt.Sscanf(
		parts[3],
		"m=%d,t=%d,p=%d",
		&p.memory,
		&p.time,
		&p.threads,
	)
	if err != nil {
		return p, nil, nil, fmt.Errorf("invalid params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("decode salt: %w", err)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("decode hash: %w", err)
	}

	//nolint:gosec // G115: argon2id digests are 32 bytes
	p.keyLen = uint32(len(hash))

	return p, salt, hash, nil
}

// GenerateRefreshToken mints an opaque session token. Only its SHA-256
// digest is stored.
func GenerateRefreshToken() (string, error) {
	raw := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func CompareTokenHash(token, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(hash)) == 1
}
