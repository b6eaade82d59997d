// AngelaMos | 2026
// handler.go

package file

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/filedrive-app/filedrive/internal/core"
	"github.com/filedrive-app/filedrive/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes wires the registry. Listing sits behind OptionalAuth so
// anonymous callers get an empty result set instead of a 401; mutations
// require a verified identity.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, optionalAuth func(http.Handler) http.Handler,
) {
	r.Route("/files", func(r chi.Router) {
		r.With(optionalAuth).Get("/", h.ListFiles)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Post("/", h.CreateFile)
			r.Get("/{fileID}", h.GetFile)
			r.Delete("/{fileID}", h.MarkForDeletion)
			r.Post("/{fileID}/restore", h.Restore)
		})
	})
}

func (h *Handler) CreateFile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	f, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUnauthorized):
			core.Unauthorized(w, "")
		case errors.Is(err, core.ErrForbidden):
			core.JSONError(w, core.ForbiddenError("no access to organization"))
		case errors.Is(err, core.ErrInvalidInput):
			core.JSONError(w, core.BadRequestError("object key invalid or not uploaded"))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.Created(w, ToFileResponse(&FileWithFavorite{File: *f}))
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	q := ListFilesQuery{
		OrgID:         r.URL.Query().Get("org_id"),
		Type:          r.URL.Query().Get("type"),
		FavoritesOnly: parseBoolQuery(r, "favorites_only"),
		DeletedOnly:   parseBoolQuery(r, "deleted_only"),
	}

	if q.OrgID == "" {
		core.BadRequest(w, "org_id is required")
		return
	}

	if q.Type != "" && !ValidType(q.Type) {
		core.BadRequest(w, "type must be one of: image, csv, pdf")
		return
	}

	files, err := h.service.List(r.Context(), userID, q)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, FileListResponse{Files: ToFileResponseList(files)})
}

func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	fileID := chi.URLParam(r, "fileID")

	f, err := h.service.Get(r.Context(), userID, fileID)
	if err != nil {
		h.writeAccessError(w, err)
		return
	}

	core.OK(w, ToFileResponse(&FileWithFavorite{File: *f}))
}

func (h *Handler) MarkForDeletion(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	fileID := chi.URLParam(r, "fileID")

	if err := h.service.MarkForDeletion(r.Context(), userID, fileID); err != nil {
		h.writeAccessError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	fileID := chi.URLParam(r, "fileID")

	if err := h.service.Restore(r.Context(), userID, fileID); err != nil {
		h.writeAccessError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) writeAccessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		core.Unauthorized(w, "")
	case errors.Is(err, core.ErrForbidden):
		core.JSONError(w, core.ForbiddenError("no access to file"))
	case errors.Is(err, core.ErrNotFound):
		core.JSONError(w, core.ForbiddenError("no access to file"))
	default:
		core.InternalServerError(w, err)
	}
}

func parseBoolQuery(r *http.Request, key string) bool {
	val, err := strconv.ParseBool(r.URL.Query().Get(key))
	if err != nil {
		return false
	}
	return val
}
