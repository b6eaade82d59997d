// AngelaMos | 2026
// handler.go

package storage

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/filedrive-app/filedrive/internal/core"
	"github.com/filedrive-app/filedrive/internal/middleware"
)

type Handler struct {
	store          BlobStore
	tokens         *UploadTokenManager
	publicBaseURL  string
	maxUploadBytes int64
}

type HandlerConfig struct {
	Store          BlobStore
	Tokens         *UploadTokenManager
	PublicBaseURL  string
	MaxUploadBytes int64
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		store:          cfg.Store,
		tokens:         cfg.Tokens,
		publicBaseURL:  cfg.PublicBaseURL,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Post("/uploads", h.CreateUpload)
		r.Put("/uploads/{token}", h.Upload)
	})

	r.Get("/objects/{key}", h.ServeObject)
}

// CreateUpload issues a single-use upload slot. The client PUTs the bytes
// to the returned URL before the ticket expires, then registers the file
// with the object key.
func (h *Handler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	ticket, err := h.tokens.Issue(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	ticket.UploadURL = fmt.Sprintf(
		"%s/v1/uploads/%s",
		h.publicBaseURL,
		ticket.Token,
	)

	core.Created(w, ticket)
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	token := chi.URLParam(r, "token")

	objectKey, ownerID, err := h.tokens.Claim(r.Context(), token)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.JSONError(
				w,
				core.BadRequestError("upload token expired or already used"),
			)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	if ownerID != userID {
		core.JSONError(w, core.ForbiddenError("upload token owner mismatch"))
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	defer body.Close() //nolint:errcheck // read-side close

	size, err := h.store.Put(r.Context(), objectKey, body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			core.JSONError(w, core.BadRequestError("upload exceeds size limit"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, map[string]any{
		"object_key": objectKey,
		"size":       size,
	})
}

func (h *Handler) ServeObject(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	obj, err := h.store.Open(r.Context(), key)
	if err != nil {
		// A malformed key can never name a stored object.
		if errors.Is(err, ErrObjectNotFound) ||
			errors.Is(err, core.ErrInvalidInput) {
			core.NotFound(w, "object")
			return
		}
		core.InternalServerError(w, err)
		return
	}
	defer obj.Close() //nolint:errcheck // read-side close

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Cache-Control", "private, max-age=3600")

	//nolint:errcheck // client disconnects surface as copy errors
	_, _ = io.Copy(w, obj)
}

// ObjectURL is the public address a stored object is served from. File
// rows capture this once at registration and never re-resolve it.
func (h *Handler) ObjectURL(key string) string {
	return fmt.Sprintf("%s/v1/objects/%s", h.publicBaseURL, key)
}
