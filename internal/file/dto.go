// AngelaMos | 2026
// dto.go

package file

import (
	"time"
)

type CreateFileRequest struct {
	Name      string `json:"name"       validate:"required,min=1,max=255"`
	Type      string `json:"type"       validate:"required,oneof=image csv pdf"`
	OrgID     string `json:"org_id"     validate:"required,max=64"`
	ObjectKey string `json:"object_key" validate:"required,min=8,max=128"`
}

// ListFilesQuery mirrors the browse surface: one tenant at a time, with
// optional type narrowing and the two mutually-layered view toggles.
type ListFilesQuery struct {
	OrgID         string
	Type          string
	FavoritesOnly bool
	DeletedOnly   bool
}

type FileResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	ObjectKey    string    `json:"object_key"`
	OrgID        string    `json:"org_id"`
	UserID       string    `json:"user_id"`
	URL          string    `json:"url,omitempty"`
	ShouldDelete bool      `json:"should_delete"`
	IsFavorited  bool      `json:"is_favorited"`
	CreatedAt    time.Time `json:"created_at"`
}

type FileListResponse struct {
	Files []FileResponse `json:"files"`
}

func ToFileResponse(f *FileWithFavorite) FileResponse {
	resp := FileResponse{
		ID:           f.ID,
		Name:         f.Name,
		Type:         f.Type,
		ObjectKey:    f.ObjectKey,
		OrgID:        f.OrgID,
		UserID:       f.UserID,
		ShouldDelete: f.ShouldDelete,
		IsFavorited:  f.IsFavorited,
		CreatedAt:    f.CreatedAt,
	}
	if f.URL != nil {
		resp.URL = *f.URL
	}
	return resp
}

func ToFileResponseList(files []FileWithFavorite) []FileResponse {
	responses := make([]FileResponse, 0, len(files))
	for i := range files {
		responses = append(responses, ToFileResponse(&files[i]))
	}
	return responses
}
