// AngelaMos | 2026
// handler.go

package favorite

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/filedrive-app/filedrive/internal/core"
	"github.com/filedrive-app/filedrive/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, optionalAuth func(http.Handler) http.Handler,
) {
	r.With(authenticator).
		Post("/files/{fileID}/favorite", h.Toggle)
	r.With(optionalAuth).
		Get("/favorites", h.ListFavorites)
}

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	fileID := chi.URLParam(r, "fileID")

	resp, err := h.service.Toggle(r.Context(), userID, fileID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUnauthorized):
			core.Unauthorized(w, "")
		case errors.Is(err, core.ErrForbidden):
			core.JSONError(w, core.ForbiddenError("no access to file"))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, resp)
}

func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	orgID := r.URL.Query().Get("org_id")

	if orgID == "" {
		core.BadRequest(w, "org_id is required")
		return
	}

	favorites, err := h.service.List(r.Context(), userID, orgID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	responses := make([]FavoriteResponse, 0, len(favorites))
	for i := range favorites {
		responses = append(responses, ToFavoriteResponse(&favorites[i]))
	}

	core.OK(w, FavoriteListResponse{Favorites: responses})
}
