package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/luminosmc/luminos-community/internal/domain"
)

// Authenticator resolves a session token to its principal.
type Authenticator interface {
	Restore(ctx context.Context, token string) (*domain.Principal, error)
}

// Middleware resolves the session token of each request. The token is taken
// from "Authorization: Bearer ..." or, failing that, from the named cookie.
// Requests without a usable token continue anonymously; handlers decide
// whether a principal is required.
func Middleware(authn Authenticator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := authn.Restore(r.Context(), token)
			if err != nil {
				lvl := log.Debug()
				if !errors.Is(err, domain.ErrNotAuthenticated) && !errors.Is(err, domain.ErrSessionExpired) {
					lvl = log.Warn()
				}
				lvl.Err(err).Str("path", r.URL.Path).Msg("session token rejected")
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithIdentity(r.Context(), &Identity{Principal: principal, Token: token})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken returns the bearer token or session cookie value of r.
func ExtractToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if cookieName == "" {
		return ""
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
