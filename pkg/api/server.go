package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	"github.com/kestrelhealth/radpoint/pkg/apperr"
	"github.com/kestrelhealth/radpoint/pkg/auth"
	"github.com/kestrelhealth/radpoint/pkg/httputil"
	"github.com/kestrelhealth/radpoint/pkg/middleware"
	"github.com/kestrelhealth/radpoint/pkg/observability"
	"github.com/kestrelhealth/radpoint/pkg/orgs"
	"github.com/kestrelhealth/radpoint/pkg/pagination"
	"github.com/kestrelhealth/radpoint/pkg/radiology"
	"github.com/kestrelhealth/radpoint/pkg/rbac"
	"github.com/kestrelhealth/radpoint/pkg/storage"
)

// Options wires the server's collaborators. Metrics and Redis may be nil;
// without Redis rate limits apply per process instead of fleet-wide.
type Options struct {
	DB        *sql.DB
	Users     *auth.Store
	Auth      *auth.Service
	Tokens    *auth.TokenManager
	Orgs      *orgs.PostgresService
	Radiology *radiology.PostgresService
	Blobs     storage.BlobStore
	Evaluator rbac.Evaluator
	Metrics   *observability.Metrics
	Logger    *observability.Logger
	Redis     *redis.Client

	RequestTimeout time.Duration
}

// Server is the HTTP API surface.
type Server struct {
	router    *mux.Router
	db        *sql.DB
	users     *auth.Store
	auth      *auth.Service
	orgs      *orgs.PostgresService
	radiology *radiology.PostgresService
	blobs     storage.BlobStore
	evaluator rbac.Evaluator
	gate      *middleware.Gate
	metrics   *observability.Metrics
	logger    *observability.Logger
}

// NewServer builds the router with the full middleware stack and all routes
// registered.
func NewServer(opts Options) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		db:        opts.DB,
		users:     opts.Users,
		auth:      opts.Auth,
		orgs:      opts.Orgs,
		radiology: opts.Radiology,
		blobs:     opts.Blobs,
		evaluator: opts.Evaluator,
		gate:      middleware.NewGate(opts.Evaluator, opts.Metrics, opts.Logger),
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = middleware.DefaultRequestTimeout
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Timeout(timeout))
	if opts.Metrics != nil {
		s.router.Use(opts.Metrics.HTTPMiddleware(routeTemplate))
	}
	s.router.Use(mux.MiddlewareFunc(middleware.NewAuthMiddleware(opts.Tokens, opts.Users, opts.Logger).Handler))
	s.router.Use(mux.MiddlewareFunc(middleware.NewRateLimitMiddleware(opts.Redis, opts.Logger).Handler))

	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routeTemplate labels metrics with the registered route pattern rather than
// the raw URL.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// handle registers a route with the gate chain applied outermost-first.
func (s *Server) handle(method, path string, h http.HandlerFunc, gates ...mux.MiddlewareFunc) {
	var handler http.Handler = h
	for i := len(gates) - 1; i >= 0; i-- {
		handler = gates[i](handler)
	}
	s.router.Handle(path, handler).Methods(method)
}

func (s *Server) registerRoutes() {
	authed := s.gate.Authenticated()
	orgScope := middleware.OrgScopeFromPath("org_id")
	ownerScoped := s.gate.RequireRole(rbac.RoleOwner, orgScope)
	ownerAnywhere := s.gate.RequireRole(rbac.RoleOwner, middleware.NoOrgScope)

	s.handle(http.MethodPost, "/auth/login", s.login)
	s.handle(http.MethodPost, "/auth/change-password", s.changePassword, s.gate.AuthenticatedAllowPasswordChange())

	s.handle(http.MethodGet, "/users", s.listUsers, authed)
	s.handle(http.MethodPost, "/users", s.createUser, authed)
	s.handle(http.MethodGet, "/users/{id}", s.getUser, authed)
	s.handle(http.MethodPut, "/users/{id}", s.updateUser, authed)
	s.handle(http.MethodDelete, "/users/{id}", s.deleteUser, authed)
	s.handle(http.MethodGet, "/users/{id}/temp-password", s.getTempPassword, authed, ownerAnywhere)
	s.handle(http.MethodPost, "/users/{id}/force-password-reset", s.forcePasswordReset, authed, ownerAnywhere)

	s.handle(http.MethodGet, "/orgs", s.listOrganizations, authed)
	s.handle(http.MethodPost, "/orgs", s.createOrganization, authed)
	s.handle(http.MethodGet, "/orgs/{org_id}", s.getOrganization, authed)
	s.handle(http.MethodPut, "/orgs/{org_id}", s.updateOrganization, authed)
	s.handle(http.MethodDelete, "/orgs/{org_id}", s.deleteOrganization, authed, ownerScoped)
	s.handle(http.MethodGet, "/orgs/{org_id}/members", s.listMembers, authed, s.gate.RequireOrgAccess(orgScope))
	s.handle(http.MethodPost, "/orgs/{org_id}/radiologists", s.inviteRadiologist, authed, ownerScoped)
	s.handle(http.MethodDelete, "/orgs/{org_id}/radiologists/{user_id}", s.removeRadiologist, authed, ownerScoped)
	s.handle(http.MethodPut, "/orgs/{org_id}/logo", s.uploadLogo, authed, ownerScoped)
	s.handle(http.MethodGet, "/orgs/{org_id}/logo", s.getLogo, authed)

	s.handle(http.MethodGet, "/studies", s.listStudies, authed)
	s.handle(http.MethodPost, "/studies", s.createStudy, authed)
	s.handle(http.MethodGet, "/studies/{id}", s.getStudy, authed)
	s.handle(http.MethodPut, "/studies/{id}", s.updateStudy, authed)
	s.handle(http.MethodDelete, "/studies/{id}", s.deleteStudy, authed)
	s.handle(http.MethodGet, "/studies/{study_id}/templates", s.listTemplates, authed)
	s.handle(http.MethodPost, "/studies/{study_id}/templates", s.createTemplate, authed)
	s.handle(http.MethodGet, "/templates/{id}", s.getTemplate, authed)

	s.handle(http.MethodGet, "/reports", s.listReports, authed)
	s.handle(http.MethodPost, "/reports", s.createReport, authed)
	s.handle(http.MethodGet, "/reports/{id}", s.getReport, authed)
	s.handle(http.MethodPut, "/reports/{id}", s.updateReport, authed)
	s.handle(http.MethodDelete, "/reports/{id}", s.deleteReport, authed)
	s.handle(http.MethodGet, "/reports/{id}/history", s.listReportHistory, authed)
	s.handle(http.MethodGet, "/reports/{id}/events", s.listReportEvents, authed)
}

// writePage runs one paginated list query and writes the connection,
// recording pagination metrics along the way.
func writePage[T any](s *Server, w http.ResponseWriter, r *http.Request, entity string, q pagination.Query[T]) {
	req, ok := httputil.ParsePageRequestOrError(w, r)
	if !ok {
		return
	}

	direction := "forward"
	if req.Last != nil {
		direction = "backward"
	}

	start := time.Now()
	conn, err := pagination.Paginate(r.Context(), s.db, q, req)
	if err != nil {
		if s.metrics != nil && apperr.IsKind(err, apperr.KindInvalidCursor) {
			s.metrics.InvalidCursorTotal.Inc()
		}
		httputil.WriteAppError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.PageQueriesTotal.WithLabelValues(entity, direction).Inc()
		s.metrics.PageQueryDuration.WithLabelValues(entity).Observe(time.Since(start).Seconds())
	}
	httputil.WriteSuccess(w, conn)
}
