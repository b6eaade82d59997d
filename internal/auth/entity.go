// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

// Session is one refresh-token lineage entry. Rotation marks the old row
// and links it to its successor, so a replayed token identifies the whole
// compromised family.
type Session struct {
	ID           string     `db:"id"`
	UserID       string     `db:"user_id"`
	TokenHash    string     `db:"token_hash"`
	FamilyID     string     `db:"family_id"`
	ExpiresAt    time.Time  `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
	Rotated      bool       `db:"is_used"`
	RotatedAt    *time.Time `db:"used_at"`
	RevokedAt    *time.Time `db:"revoked_at"`
	ReplacedByID *string    `db:"replaced_by_id"`
	UserAgent    string     `db:"user_agent"`
	IPAddress    string     `db:"ip_address"`
}

func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

func (s *Session) Revoked() bool {
	return s.RevokedAt != nil
}

// Active reports whether the session can still mint new tokens.
func (s *Session) Active() bool {
	return !s.Rotated && !s.Revoked() && !s.Expired()
}
