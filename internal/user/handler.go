// AngelaMos | 2026
// handler.go

package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/rbac-backend/internal/core"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the account routes on r. The caller applies any
// authentication middleware to r beforehand.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{user_id}", h.GetUser)
	r.Delete("/users/{user_id}", h.DeleteUser)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathID(w, r, "user_id")
	if !ok {
		return
	}

	resp, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := core.PathID(w, r, "user_id")
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, true)
}
