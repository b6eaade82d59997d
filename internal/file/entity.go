// AngelaMos | 2026
// entity.go

package file

import (
	"time"
)

// File is a registered document inside a tenant. ObjectKey points at the
// blob store; URL is resolved once at registration and served verbatim
// afterwards, even if the public base moves.
type File struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Type         string    `db:"type"`
	ObjectKey    string    `db:"object_key"`
	OrgID        string    `db:"org_id"`
	UserID       string    `db:"user_id"`
	URL          *string   `db:"url"`
	ShouldDelete bool      `db:"should_delete"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

const (
	TypeImage = "image"
	TypeCSV   = "csv"
	TypePDF   = "pdf"
)

func ValidType(t string) bool {
	switch t {
	case TypeImage, TypeCSV, TypePDF:
		return true
	}
	return false
}
