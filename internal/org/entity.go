// AngelaMos | 2026
// entity.go

package org

import (
	"time"
)

type Organization struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
}

// Membership links a user to an organization. The creator gets RoleAdmin;
// everyone else joins as RoleMember until promoted.
type Membership struct {
	ID        string    `db:"id"`
	OrgID     string    `db:"org_id"`
	UserID    string    `db:"user_id"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

func (m *Membership) IsAdmin() bool {
	return m.Role == RoleAdmin
}

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)
