// Package httpapi exposes the rental operations over a JSON HTTP API. Every
// request is authenticated with the caller's Supabase access token, which is
// forwarded to PostgREST so row-level security decides what the caller sees.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/rentals/internal/catalog"
	"github.com/R3E-Network/rentals/internal/database"
	"github.com/R3E-Network/rentals/internal/events"
	"github.com/R3E-Network/rentals/internal/landlord"
	"github.com/R3E-Network/rentals/internal/logging"
	"github.com/R3E-Network/rentals/internal/messaging"
	"github.com/R3E-Network/rentals/internal/metrics"
	"github.com/R3E-Network/rentals/internal/middleware"
	"github.com/R3E-Network/rentals/internal/session"
	"github.com/R3E-Network/rentals/internal/stats"
)

// Options carries the HTTP-facing settings.
type Options struct {
	ServiceName        string
	SignInURL          string
	JWTSecret          string
	Verifier           middleware.UserVerifier
	Authorizer         *middleware.Authorizer // required
	CORSAllowedOrigins []string
	RateLimitRPS       int
	RateLimitBurst     int
}

// Server wires the domain services to HTTP routes.
type Server struct {
	opts     Options
	logger   *logging.Logger
	metrics  *metrics.Metrics
	managers *landlord.Managers
	catalog  *catalog.Reader
	stats    *stats.Aggregator
	composer *messaging.Composer
	inbox    *messaging.Inbox
	resolver *session.RoleResolver
	limiter  *middleware.RateLimiter
	router   *mux.Router
}

// New builds the server and registers its routes.
func New(repo database.RepositoryInterface, bus *events.Bus, m *metrics.Metrics, logger *logging.Logger, opts Options) *Server {
	if opts.ServiceName == "" {
		opts.ServiceName = "rentd"
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 20
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = opts.RateLimitRPS * 2
	}

	s := &Server{
		opts:     opts,
		logger:   logger,
		metrics:  m,
		managers: landlord.New(repo, bus, logger),
		catalog:  catalog.NewReader(repo),
		stats:    stats.NewAggregator(repo, logger, m),
		composer: messaging.NewComposer(repo, bus, logger),
		inbox:    messaging.NewInbox(repo),
		resolver: session.NewRoleResolver(repo),
		limiter:  middleware.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, logger),
		router:   mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Limiter exposes the rate limiter so the caller can schedule its cleanup.
func (s *Server) Limiter() *middleware.RateLimiter {
	return s.limiter
}

// Handler returns the root handler including logging and CORS.
func (s *Server) Handler() http.Handler {
	cors := middleware.NewCORSMiddleware(s.opts.CORSAllowedOrigins)
	return middleware.LoggingMiddleware(s.logger)(cors.Handler(s.router))
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.MetricsMiddleware(s.opts.ServiceName, s.metrics))

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	auth := middleware.NewSupabaseAuth(s.opts.JWTSecret, s.opts.Verifier, s.logger, s.opts.SignInURL)
	api.Use(auth.Handler, s.limiter.Handler, middleware.RoleGate(s.resolver, s.logger), s.opts.Authorizer.Handler)

	api.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/catalog", s.handleCatalog).Methods(http.MethodGet)

	ll := api.PathPrefix("/landlord").Subrouter()
	ll.HandleFunc("/properties", s.handleListProperties).Methods(http.MethodGet)
	ll.HandleFunc("/properties", s.handleCreateProperty).Methods(http.MethodPost)
	ll.HandleFunc("/properties/{id}", s.handleUpdateProperty).Methods(http.MethodPut)
	ll.HandleFunc("/properties/{id}", s.handleDeleteProperty).Methods(http.MethodDelete)
	ll.HandleFunc("/leases", s.handleListLeases).Methods(http.MethodGet)
	ll.HandleFunc("/leases", s.handleCreateLease).Methods(http.MethodPost)
	ll.HandleFunc("/leases/{id}", s.handleDeleteLease).Methods(http.MethodDelete)
	ll.HandleFunc("/payments", s.handleListPayments).Methods(http.MethodGet)
	ll.HandleFunc("/payments", s.handleCreatePayment).Methods(http.MethodPost)
	ll.HandleFunc("/payments/export", s.handleExportPayments).Methods(http.MethodGet)
	ll.HandleFunc("/payments/{id}", s.handleDeletePayment).Methods(http.MethodDelete)
	ll.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	ll.HandleFunc("/messages", s.handleInbox).Methods(http.MethodGet)

	api.HandleFunc("/tenant/leases", s.handleTenantLeases).Methods(http.MethodGet)
	api.HandleFunc("/messages", s.handleSendMessage).Methods(http.MethodPost)
}
