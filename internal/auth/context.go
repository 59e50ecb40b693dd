package auth

import (
	"context"

	"github.com/luminosmc/luminos-community/internal/domain"
)

type contextKey struct{}

// Identity is what the middleware attaches to an authenticated request.
type Identity struct {
	Principal *domain.Principal
	Token     string
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFrom retrieves the identity attached by the middleware, or nil.
func IdentityFrom(ctx context.Context) *Identity {
	if id, ok := ctx.Value(contextKey{}).(*Identity); ok {
		return id
	}
	return nil
}

// PrincipalFrom returns the authenticated principal, or nil for anonymous requests.
func PrincipalFrom(ctx context.Context) *domain.Principal {
	if id := IdentityFrom(ctx); id != nil {
		return id.Principal
	}
	return nil
}

// TokenFrom returns the session token of the request, or "".
func TokenFrom(ctx context.Context) string {
	if id := IdentityFrom(ctx); id != nil {
		return id.Token
	}
	return ""
}
