// AngelaMos | 2026
// handler.go

package org

import (
	"encoding/json"
	"errors"
	"net/http"

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

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/orgs", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/", h.CreateOrg)
		r.Get("/", h.ListMyOrgs)
		r.Get("/{orgID}", h.GetOrg)
		r.Post("/{orgID}/members", h.AddMember)
		r.Get("/{orgID}/members", h.ListMembers)
		r.Put("/{orgID}/members/{userID}", h.UpdateMemberRole)
		r.Delete("/{orgID}/members/{userID}", h.RemoveMember)
	})
}

func (h *Handler) CreateOrg(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	org, err := h.service.CreateOrganization(r.Context(), userID, req.Name)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToOrgResponse(org, RoleAdmin))
}

func (h *Handler) ListMyOrgs(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	orgs, err := h.service.ListMyOrganizations(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	responses := make([]OrgResponse, 0, len(orgs))
	for i := range orgs {
		responses = append(
			responses,
			ToOrgResponse(&orgs[i].Organization, orgs[i].Role),
		)
	}

	core.OK(w, OrgListResponse{Organizations: responses})
}

func (h *Handler) GetOrg(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	orgID := chi.URLParam(r, "orgID")

	org, err := h.service.GetOrganization(r.Context(), userID, orgID)
	if err != nil {
		if errors.Is(err, core.ErrForbidden) {
			core.JSONError(w, core.ForbiddenError("no access to organization"))
			return
		}
		if errors.Is(err, core.ErrNotFound) {
			core.JSONError(w, core.ForbiddenError("no access to organization"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToOrgResponse(org, ""))
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	orgID := chi.URLParam(r, "orgID")

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	m, err := h.service.AddMember(r.Context(), userID, orgID, req)
	if err != nil {
		if errors.Is(err, core.ErrForbidden) {
			core.JSONError(w, core.ForbiddenError("admin role required"))
			return
		}
		if errors.Is(err, core.ErrNotFound) {
			core.JSONError(w, core.ForbiddenError("no access to organization"))
			return
		}
		if errors.Is(err, core.ErrDuplicateKey) {
			core.JSONError(w, core.DuplicateError("membership"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToMemberResponse(m))
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	orgID := chi.URLParam(r, "orgID")

	members, err := h.service.ListMembers(r.Context(), userID, orgID)
	if err != nil {
		if errors.Is(err, core.ErrForbidden) {
			core.JSONError(w, core.ForbiddenError("no access to organization"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	responses := make([]MemberResponse, 0, len(members))
	for i := range members {
		responses = append(responses, ToMemberResponse(&members[i]))
	}

	core.OK(w, MemberListResponse{Members: responses})
}

func (h *Handler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	requesterID := middleware.GetUserID(r.Context())
	orgID := chi.URLParam(r, "orgID")
	userID := chi.URLParam(r, "userID")

	var req UpdateMemberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	err := h.service.UpdateMemberRole(
		r.Context(),
		requesterID,
		orgID,
		userID,
		req.Role,
	)
	if err != nil {
		if errors.Is(err, core.ErrForbidden) {
			core.JSONError(w, core.ForbiddenError("admin role required"))
			return
		}
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "membership")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	requesterID := middleware.GetUserID(r.Context())
	orgID := chi.URLParam(r, "orgID")
	userID := chi.URLParam(r, "userID")

	err := h.service.RemoveMember(r.Context(), requesterID, orgID, userID)
	if err != nil {
		if errors.Is(err, core.ErrForbidden) {
			core.JSONError(w, core.ForbiddenError("admin role required"))
			return
		}
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "membership")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}
