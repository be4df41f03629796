// AngelaMos | 2026
// handler.go

package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/rbac-backend/internal/core"
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

// RegisterRoutes mounts the admin surface on r. The caller applies any
// authentication middleware to r beforehand.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/permission", func(r chi.Router) {
		r.Post("/", h.CreatePermission)
		r.Get("/", h.ListPermissions)
		r.Get("/{permission_id}", h.GetPermission)
		r.Put("/{permission_id}", h.UpdatePermission)
		r.Delete("/{permission_id}", h.DeletePermission)
	})

	r.Route("/role", func(r chi.Router) {
		r.Post("/", h.CreateRole)
		r.Get("/", h.ListRoles)
		r.Get("/{role_id}", h.GetRole)
		r.Put("/{role_id}", h.UpdateRole)
		r.Delete("/{role_id}", h.DeleteRole)

		r.Get("/{role_id}/permissions", h.ListRolePermissions)
		r.Post("/{role_id}/permissions/{permission_id}", h.AssignPermission)
		r.Delete("/{role_id}/permissions/{permission_id}", h.UnassignPermission)
	})

	r.Get("/users/{user_id}/roles", h.ListUserRoles)
	r.Post("/users/{user_id}/roles/{role_id}", h.AssignRole)
	r.Delete("/users/{user_id}/roles/{role_id}", h.UnassignRole)
}

func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var req CreatePermissionRequest
	if !core.DecodeJSON(w, r, h.validator, &req) {
		return
	}

	resp, err := h.service.CreatePermission(r.Context(), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, resp)
}

func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ListPermissions(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) GetPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathID(w, r, "permission_id")
	if !ok {
		return
	}

	resp, err := h.service.GetPermission(r.Context(), id)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathID(w, r, "permission_id")
	if !ok {
		return
	}

	var req UpdatePermissionRequest
	if !core.DecodeJSON(w, r, h.validator, &req) {
		return
	}

	resp, err := h.service.UpdatePermission(r.Context(), id, req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathID(w, r, "permission_id")
	if !ok {
		return
	}

	if err := h.service.DeletePermission(r.Context(), id); err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, true)
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if !core.DecodeJSON(w, r, h.validator, &req) {
		return
	}

	resp, err := h.service.CreateRole(r.Context(), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, resp)
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ListRoles(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathID(w, r, "role_id")
	if !ok {
		return
	}

	resp, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathID(w, r, "role_id")
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if !core.DecodeJSON(w, r, h.validator, &req) {
		return
	}

	resp, err := h.service.UpdateRole(r.Context(), id, req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathID(w, r, "role_id")
	if !ok {
		return
	}

	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, true)
}

func (h *Handler) ListRolePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, ok := core.PathID(w, r, "role_id")
	if !ok {
		return
	}

	resp, err := h.service.ListRolePermissions(r.Context(), roleID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) AssignPermission(w http.ResponseWriter, r *http.Request) {
	roleID, permissionID, ok := rolePermissionIDs(w, r)
	if !ok {
		return
	}

	resp, err := h.service.AssignPermission(r.Context(), roleID, permissionID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) UnassignPermission(w http.ResponseWriter, r *http.Request) {
	roleID, permissionID, ok := rolePermissionIDs(w, r)
	if !ok {
		return
	}

	resp, err := h.service.UnassignPermission(r.Context(), roleID, permissionID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) ListUserRoles(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.PathID(w, r, "user_id")
	if !ok {
		return
	}

	resp, err := h.service.ListUserRoles(r.Context(), userID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	userID, roleID, ok := userRoleIDs(w, r)
	if !ok {
		return
	}

	resp, err := h.service.AssignRole(r.Context(), userID, roleID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) UnassignRole(w http.ResponseWriter, r *http.Request) {
	userID, roleID, ok := userRoleIDs(w, r)
	if !ok {
		return
	}

	resp, err := h.service.UnassignRole(r.Context(), userID, roleID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func rolePermissionIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	roleID, ok := core.PathID(w, r, "role_id")
	if !ok {
		return 0, 0, false
	}
	permissionID, ok := core.PathID(w, r, "permission_id")
	if !ok {
		return 0, 0, false
	}
	return roleID, permissionID, true
}

func userRoleIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, ok := core.PathID(w, r, "user_id")
	if !ok {
		return 0, 0, false
	}
	roleID, ok := core.PathID(w, r, "role_id")
	if !ok {
		return 0, 0, false
	}
	return userID, roleID, true
}
