// AngelaMos | 2026
// entity.go

package favorite

import (
	"time"
)

// Favorite is a per-user bookmark on a file within one tenant. The same
// file favorited by the same user in the same tenant exists at most once.
type Favorite struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	OrgID     string    `db:"org_id"`
	FileID    string    `db:"file_id"`
	CreatedAt time.Time `db:"created_at"`
}

type FavoriteResponse struct {
	ID        string    `json:"id"`
	FileID    string    `json:"file_id"`
	OrgID     string    `json:"org_id"`
	CreatedAt time.Time `json:"created_at"`
}

type FavoriteListResponse struct {
	Favorites []FavoriteResponse `json:"favorites"`
}

type ToggleResponse struct {
	FileID    string `json:"file_id"`
	Favorited bool   `json:"favorited"`
}

func ToFavoriteResponse(f *Favorite) FavoriteResponse {
	return FavoriteResponse{
		ID:        f.ID,
		FileID:    f.FileID,
		OrgID:     f.OrgID,
		CreatedAt: f.CreatedAt,
	}
}
