package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/luminosmc/luminos-community/internal/auth"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/service"
)

// RoleHandler serves roles and the permission vocabulary.
type RoleHandler struct {
	*api
	roles *service.RoleService
}

type createRoleRequest struct {
	Name        string   `json:"name" validate:"required,max=50"`
	Color       string   `json:"color" validate:"max=32"`
	Permissions []string `json:"permissions"`
}

type updateRoleRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=50"`
	Color       *string  `json:"color" validate:"omitempty,max=32"`
	Permissions []string `json:"permissions"`
}

// RegisterRoutes registers the /roles routes.
func (h *RoleHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

func (h *RoleHandler) handleList(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (h *RoleHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	role, err := h.roles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (h *RoleHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	role, err := h.roles.Create(r.Context(), auth.PrincipalFrom(r.Context()), service.CreateRoleInput{
		Name:        req.Name,
		Color:       req.Color,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (h *RoleHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	role, err := h.roles.Update(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), service.UpdateRoleInput{
		Name:        req.Name,
		Color:       req.Color,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (h *RoleHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.roles.Delete(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePermissions lists the permission vocabulary with display labels.
func handlePermissions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.Permissions())
}
