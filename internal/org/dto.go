// AngelaMos | 2026
// dto.go

package org

import (
	"time"
)

type CreateOrgRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Role   string `json:"role"    validate:"required,oneof=member admin"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=member admin"`
}

type OrgResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	Role      string    `json:"role,omitempty"`
}

type OrgListResponse struct {
	Organizations []OrgResponse `json:"organizations"`
}

type MemberResponse struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberListResponse struct {
	Members []MemberResponse `json:"members"`
}

func ToOrgResponse(o *Organization, role string) OrgResponse {
	return OrgResponse{
		ID:        o.ID,
		Name:      o.Name,
		CreatedBy: o.CreatedBy,
		CreatedAt: o.CreatedAt,
		Role:      role,
	}
}

func ToMemberResponse(m *Membership) MemberResponse {
	return MemberResponse{
		UserID:    m.UserID,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
	}
}
