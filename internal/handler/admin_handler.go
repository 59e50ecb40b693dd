package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/luminosmc/luminos-community/internal/auth"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/service"
)

// AdminHandler serves the back office: staff accounts, forum users and stats.
type AdminHandler struct {
	*api
	staff *service.StaffService
	users *service.UserService
	stats *service.StatsService
}

type createStaffRequest struct {
	Username string   `json:"username" validate:"required,max=32"`
	Password string   `json:"password" validate:"required,max=128"`
	Roles    []string `json:"roles"`
}

type updateStaffRequest struct {
	Username *string  `json:"username" validate:"omitempty,max=32"`
	Password string   `json:"password" validate:"max=128"`
	Roles    []string `json:"roles"`
}

// RegisterRoutes registers the /admin routes.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.handleStats)

	r.Route("/staff", func(r chi.Router) {
		r.Get("/", h.handleListStaff)
		r.Post("/", h.handleCreateStaff)
		r.Get("/{id}", h.handleGetStaff)
		r.Put("/{id}", h.handleUpdateStaff)
		r.Delete("/{id}", h.handleDeleteStaff)
	})

	r.Route("/users/forum", func(r chi.Router) {
		r.Get("/", h.handleListUsers)
		r.Delete("/{id}", h.handleDeleteUser)
	})
}

func (h *AdminHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// =============================================================================
// Staff
// =============================================================================

func (h *AdminHandler) handleListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.staff.List(r.Context(), auth.PrincipalFrom(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publicList(staff))
}

func (h *AdminHandler) handleGetStaff(w http.ResponseWriter, r *http.Request) {
	p, err := h.staff.Get(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Public())
}

func (h *AdminHandler) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	var req createStaffRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.staff.Create(r.Context(), auth.PrincipalFrom(r.Context()), service.CreateStaffInput{
		Username: req.Username,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p.Public())
}

func (h *AdminHandler) handleUpdateStaff(w http.ResponseWriter, r *http.Request) {
	var req updateStaffRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.staff.Update(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), service.UpdateStaffInput{
		Username: req.Username,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Public())
}

func (h *AdminHandler) handleDeleteStaff(w http.ResponseWriter, r *http.Request) {
	if err := h.staff.Delete(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Forum users
// =============================================================================

func (h *AdminHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), auth.PrincipalFrom(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publicList(users))
}

func (h *AdminHandler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func publicList(ps []*domain.Principal) []domain.PublicPrincipal {
	out := make([]domain.PublicPrincipal, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Public())
	}
	return out
}
