package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/craftpanel/pluginhub/pkg/daemon"
	"github.com/craftpanel/pluginhub/pkg/httputil"
	"github.com/craftpanel/pluginhub/pkg/linkstore"
	"github.com/craftpanel/pluginhub/pkg/middleware"
	"github.com/craftpanel/pluginhub/pkg/observability"
	"github.com/craftpanel/pluginhub/pkg/providers"
)

// ServerOptions carries the collaborators the API server dispatches to.
type ServerOptions struct {
	Registry *providers.Registry
	Links    *linkstore.Store
	Daemon   *daemon.Client
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	// PanelBaseURL is where the callback redirects the browser after the
	// Polymart handshake completes.
	PanelBaseURL string
	// PublicBaseURL is this service's externally reachable base URL, used
	// to build the Polymart callback return address.
	PublicBaseURL string
	// AllowedOrigins configures CORS for the panel frontend.
	AllowedOrigins []string
	RateLimit      *middleware.RateLimitConfig
	// SearchCacheSize and SearchCacheTTL size the search response cache.
	// Either being zero disables it.
	SearchCacheSize int
	SearchCacheTTL  time.Duration
}

// Server is the plugin marketplace API.
type Server struct {
	router        *mux.Router
	registry      *providers.Registry
	links         *linkstore.Store
	daemon        *daemon.Client
	logger        *observability.Logger
	metrics       *observability.Metrics
	panelBaseURL  string
	publicBaseURL string
	cache         *searchCache
}

// NewServer creates the API server and wires its routes and middleware.
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Server{
		router:        mux.NewRouter(),
		registry:      opts.Registry,
		links:         opts.Links,
		daemon:        opts.Daemon,
		logger:        logger,
		metrics:       opts.Metrics,
		panelBaseURL:  opts.PanelBaseURL,
		publicBaseURL: opts.PublicBaseURL,
		cache:         newSearchCache(opts.SearchCacheSize, opts.SearchCacheTTL, opts.Metrics),
	}

	s.setupRoutes(opts)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(opts ServerOptions) {
	limiter := middleware.NewRateLimiter(opts.RateLimit)

	// The callback is hit by the user's browser coming back from Polymart,
	// not by the panel backend, so it cannot require the identity header.
	// The state nonce is the authentication. Registered before the client
	// subrouter so the prefix match does not shadow it.
	callback := s.router.Path("/api/client/plugins/polymart/callback").Subrouter()
	callback.Use(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
	)
	callback.HandleFunc("", s.polymartCallback).Methods("GET")

	client := s.router.PathPrefix("/api/client/plugins").Subrouter()
	client.Use(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
		httputil.CORSMiddleware(opts.AllowedOrigins),
		middleware.RequireUser,
		limiter.Handler,
	)
	if s.metrics != nil {
		client.Use(s.metrics.HTTPMiddleware)
	}

	client.HandleFunc("", s.listPlugins).Methods("GET")
	client.HandleFunc("/versions", s.listVersions).Methods("GET")
	client.HandleFunc("/install", s.installPlugin).Methods("POST")

	client.HandleFunc("/polymart/link", s.polymartLink).Methods("POST")
	client.HandleFunc("/polymart/disconnect", s.polymartDisconnect).Methods("POST")
	client.HandleFunc("/polymart/is-linked", s.polymartIsLinked).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
