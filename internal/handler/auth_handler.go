package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/luminosmc/luminos-community/internal/auth"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/service"
)

// AuthHandler serves registration, login and the current session.
type AuthHandler struct {
	*api
	sessions *service.SessionService
	users    *service.UserService
	cookie   CookieConfig

	// credentials wraps the endpoints that take a password from an anonymous caller.
	credentials func(http.Handler) http.Handler
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=32"`
	Password string `json:"password" validate:"required,max=128"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,max=128"`
}

// LoginResponse is returned by both login endpoints.
type LoginResponse struct {
	AccessToken string                 `json:"access_token"`
	TokenType   string                 `json:"token_type"`
	ExpiresAt   time.Time              `json:"expires_at"`
	User        domain.PublicPrincipal `json:"user"`
	Permissions []domain.Permission    `json:"permissions"`
}

// MeResponse describes the caller.
type MeResponse struct {
	User        domain.PublicPrincipal `json:"user"`
	Permissions []domain.Permission    `json:"permissions"`
}

// RegisterRoutes registers the /auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.credentials != nil {
			r.Use(h.credentials)
		}
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin(domain.KindUser))
		r.Post("/admin/login", h.handleLogin(domain.KindStaff))
	})
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
	r.Post("/change-password", h.handleChangePassword)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user.Public())
}

func (h *AuthHandler) handleLogin(kind domain.PrincipalKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := h.decode(w, r, &req); err != nil {
			h.fail(w, r, err)
			return
		}

		out, err := h.sessions.Login(r.Context(), service.LoginInput{
			Kind:     kind,
			Username: req.Username,
			Password: req.Password,
		})
		if err != nil {
			h.fail(w, r, err)
			return
		}

		me, err := h.sessions.Me(r.Context(), out.Principal)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     h.cookie.Name,
			Value:    out.Token,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.cookie.Secure || r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
			Expires:  out.Session.ExpiresAt,
			MaxAge:   int(time.Until(out.Session.ExpiresAt) / time.Second),
		})

		writeJSON(w, http.StatusOK, LoginResponse{
			AccessToken: out.Token,
			TokenType:   "bearer",
			ExpiresAt:   out.Session.ExpiresAt,
			User:        out.Principal.Public(),
			Permissions: me.Permissions,
		})
	}
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	// The middleware drops tokens it cannot restore, so read the raw one.
	token := auth.ExtractToken(r, h.cookie.Name)
	if token == "" {
		h.fail(w, r, domain.ErrNotAuthenticated)
		return
	}

	if err := h.sessions.Logout(r.Context(), token); err != nil {
		h.fail(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	me, err := h.sessions.Me(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{User: me.Principal.Public(), Permissions: me.Permissions})
}

func (h *AuthHandler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	actor := auth.PrincipalFrom(r.Context())
	if actor == nil {
		h.fail(w, r, domain.ErrNotAuthenticated)
		return
	}

	var req changePasswordRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	err := h.sessions.ChangePassword(r.Context(), actor, service.ChangePasswordInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
