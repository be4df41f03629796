// AngelaMos | 2026
// dto.go

package rbac

import (
	"time"
)

type CreatePermissionRequest struct {
	Name        string  `json:"name"        validate:"required,min=1,max=50"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

// UpdatePermissionRequest replaces both fields; a nil description clears it.
type UpdatePermissionRequest struct {
	Name        string  `json:"name"        validate:"required,min=1,max=50"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

type CreateRoleRequest struct {
	Name        string  `json:"name"        validate:"required,min=1,max=50"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

type UpdateRoleRequest struct {
	Name        string  `json:"name"        validate:"required,min=1,max=50"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

type PermissionResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RoleResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ToPermissionResponse(p *Permission) PermissionResponse {
	return PermissionResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ToPermissionResponseList(perms []Permission) []PermissionResponse {
	out := make([]PermissionResponse, 0, len(perms))
	for i := range perms {
		out = append(out, ToPermissionResponse(&perms[i]))
	}
	return out
}

func ToRoleResponse(r *Role) RoleResponse {
	return RoleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func ToRoleResponseList(roles []Role) []RoleResponse {
	out := make([]RoleResponse, 0, len(roles))
	for i := range roles {
		out = append(out, ToRoleResponse(&roles[i]))
	}
	return out
}
