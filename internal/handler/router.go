package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/luminosmc/luminos-community/internal/auth"
	"github.com/luminosmc/luminos-community/internal/metrics"
	"github.com/luminosmc/luminos-community/internal/service"
)

// Router handles HTTP routing for the community API.
type Router struct {
	auth     *AuthHandler
	posts    *PostHandler
	products *ProductHandler
	roles    *RoleHandler
	admin    *AdminHandler

	api          *api
	sessions     *service.SessionService
	events       http.Handler
	metrics      *metrics.Metrics
	metricsPath  string
	health       func(ctx context.Context) error
	cookieName   string
	development  bool
	allowedHosts []string
	corsOrigins  []string
	logger       zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	Sessions *service.SessionService
	Users    *service.UserService
	Staff    *service.StaffService
	Roles    *service.RoleService
	Posts    *service.PostService
	Products *service.ProductService
	Stats    *service.StatsService

	// Events serves the live update websocket at /ws. Optional.
	Events http.Handler

	// Metrics instruments every route and serves MetricsPath. Optional.
	Metrics     *metrics.Metrics
	MetricsPath string

	// Health reports backend readiness for /health. Optional.
	Health func(ctx context.Context) error

	Cookie      CookieConfig
	MaxBodySize int64

	// LoginRequests per LoginWindow and client IP are allowed on the
	// register and login endpoints. Zero disables the limit.
	LoginRequests int
	LoginWindow   time.Duration

	Development  bool
	AllowedHosts []string

	// CORSOrigins lists browser origins allowed to call the API. Empty
	// disables CORS handling.
	CORSOrigins []string

	Logger zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	logger := config.Logger.With().Str("component", "router").Logger()
	a := newAPI(config.MaxBodySize, logger)

	rt := &Router{
		api:          a,
		sessions:     config.Sessions,
		events:       config.Events,
		metrics:      config.Metrics,
		metricsPath:  config.MetricsPath,
		health:       config.Health,
		cookieName:   config.Cookie.Name,
		development:  config.Development,
		allowedHosts: config.AllowedHosts,
		corsOrigins:  config.CORSOrigins,
		logger:       logger,

		posts:    &PostHandler{api: a, posts: config.Posts},
		products: &ProductHandler{api: a, products: config.Products},
		roles:    &RoleHandler{api: a, roles: config.Roles},
		admin:    &AdminHandler{api: a, staff: config.Staff, users: config.Users, stats: config.Stats},
	}

	rt.auth = &AuthHandler{api: a, sessions: config.Sessions, users: config.Users, cookie: config.Cookie}
	if config.LoginRequests > 0 && config.LoginWindow > 0 {
		rt.auth.credentials = credentialLimit(a, config.LoginRequests, config.LoginWindow)
	}
	if rt.metricsPath == "" {
		rt.metricsPath = "/metrics"
	}

	return rt
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(rt.logger))
	r.Use(middleware.Recoverer)
	if len(rt.corsOrigins) > 0 {
		r.Use(crossOrigin(rt.corsOrigins))
	}
	r.Use(secureHeaders(rt.development, rt.allowedHosts, rt.logger))
	if rt.metrics != nil {
		r.Use(rt.metrics.Middleware)
	}
	r.Use(auth.Middleware(rt.sessions, rt.cookieName))

	r.NotFound(rt.api.notFound)
	r.MethodNotAllowed(methodNotAllowed)

	// Health check (no auth)
	r.Get("/health", rt.handleHealth)
	if rt.metrics != nil {
		r.Method(http.MethodGet, rt.metricsPath, rt.metrics.Handler())
	}
	if rt.events != nil {
		r.Method(http.MethodGet, "/ws", rt.events)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", rt.auth.RegisterRoutes)
		r.Route("/posts", rt.posts.RegisterRoutes)
		r.Route("/products", rt.products.RegisterRoutes)
		r.Route("/roles", rt.roles.RegisterRoutes)
		r.Get("/permissions", handlePermissions)
		r.Route("/admin", rt.admin.RegisterRoutes)
	})

	return r
}

// handleHealth handles health check requests.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if rt.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.health(ctx); err != nil {
			rt.logger.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
