package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminosmc/luminos-community/internal/domain"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/posts/"+id, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/posts/{id}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestObservers(t *testing.T) {
	m := New()
	m.LoginAttempt(domain.KindUser, true)
	m.LoginAttempt(domain.KindUser, false)
	m.LoginAttempt(domain.KindUser, false)
	m.PermissionDenied(domain.PermManageRoles)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginAttempts.WithLabelValues("user", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginAttempts.WithLabelValues("user", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.permissionDenials.WithLabelValues("manage_roles")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.GaugeFunc("websocket_clients", "Connected websocket clients.", func() float64 { return 7 })
	m.PermissionDenied(domain.PermViewAdmin)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, "luminos_websocket_clients 7"))
	assert.True(t, strings.Contains(body, `luminos_permission_denials_total{permission="view_admin"} 1`))
}
