package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminosmc/luminos-community/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(testSecret, "luminos-test")
	require.NoError(t, err)
	return issuer
}

func TestNewTokenIssuer_ShortSecret(t *testing.T) {
	_, err := NewTokenIssuer("short", "x")
	assert.Error(t, err)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	token, err := issuer.Issue("sess-1", "user-1", domain.KindStaff, time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID())
	assert.Equal(t, "user-1", claims.PrincipalID())
	assert.Equal(t, domain.KindStaff, claims.Kind)
	assert.Equal(t, "luminos-test", claims.Issuer)
}

func TestTokenIssuer_Parse(t *testing.T) {
	issuer := newTestIssuer(t)
	other, err := NewTokenIssuer(strings.Repeat("z", 32), "luminos-test")
	require.NoError(t, err)
	otherIssuer, err := NewTokenIssuer(testSecret, "someone-else")
	require.NoError(t, err)

	valid := func(i *TokenIssuer) string {
		tok, err := i.Issue("s", "p", domain.KindUser, time.Now().Add(time.Hour))
		require.NoError(t, err)
		return tok
	}
	expired, err := issuer.Issue("s", "p", domain.KindUser, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Kind:             domain.KindUser,
		RegisteredClaims: jwt.RegisteredClaims{ID: "s", Subject: "p", Issuer: "luminos-test"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "valid", token: valid(issuer), wantErr: nil},
		{name: "expired", token: expired, wantErr: domain.ErrSessionExpired},
		{name: "other key", token: valid(other), wantErr: ErrInvalidToken},
		{name: "other issuer", token: valid(otherIssuer), wantErr: ErrInvalidToken},
		{name: "alg none", token: noneAlg, wantErr: ErrInvalidToken},
		{name: "garbage", token: "not-a-token", wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Parse(tt.token)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
		})
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{name: "none", want: ""},
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "bearer lowercase", header: "bearer abc", want: "abc"},
		{name: "other scheme", header: "Basic abc", cookie: "c", want: ""},
		{name: "cookie", cookie: "from-cookie", want: "from-cookie"},
		{name: "header wins", header: "Bearer h", cookie: "c", want: "h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: "session", Value: tt.cookie})
			}
			assert.Equal(t, tt.want, ExtractToken(r, "session"))
		})
	}
}

type mockAuthenticator struct {
	principals map[string]*domain.Principal
}

func (m *mockAuthenticator) Restore(ctx context.Context, token string) (*domain.Principal, error) {
	if p, ok := m.principals[token]; ok {
		return p, nil
	}
	return nil, domain.ErrNotAuthenticated
}

func TestMiddleware(t *testing.T) {
	mario := domain.NewPrincipal(domain.KindUser, "Mario", "", nil)
	authn := &mockAuthenticator{principals: map[string]*domain.Principal{"good": mario}}

	var gotPrincipal *domain.Principal
	var gotToken string
	h := Middleware(authn, "session")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrincipal = PrincipalFrom(r.Context())
		gotToken = TokenFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name      string
		header    string
		want      *domain.Principal
		wantToken string
	}{
		{name: "anonymous", want: nil},
		{name: "valid token", header: "Bearer good", want: mario, wantToken: "good"},
		{name: "unknown token continues anonymously", header: "Bearer bad", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotPrincipal, gotToken = nil, ""
			r := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, http.StatusNoContent, w.Code)
			assert.Same(t, tt.want, gotPrincipal)
			assert.Equal(t, tt.wantToken, gotToken)
		})
	}
}

func TestPrincipalFrom_Empty(t *testing.T) {
	assert.Nil(t, PrincipalFrom(context.Background()))
	assert.Empty(t, TokenFrom(context.Background()))
}
