package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"pagecraft/app/internal/domain/publishing"
)

// PageResolver looks up the page served at a host and slug.
type PageResolver interface {
	Resolve(ctx context.Context, req publishing.ResolveRequest) (*publishing.ResolvedPage, error)
}

// PagePublisher manages a user's published pages.
type PagePublisher interface {
	Publish(ctx context.Context, input publishing.PublishInput) (*publishing.PublishResult, error)
	Unpublish(ctx context.Context, userID, pageID string) error
	ListPages(ctx context.Context, userID string) ([]publishing.Page, error)
	URLFor(ctx context.Context, page publishing.Page) string
}

// VisitAnalytics reads and records page visits.
type VisitAnalytics interface {
	PageStats(ctx context.Context, userID, pageID string) (publishing.VisitCounts, error)
	Overview(ctx context.Context) (publishing.Overview, error)
	RecordVisit(ctx context.Context, visit publishing.Visit) error
}

// DomainAdmin manages the custom domain registry.
type DomainAdmin interface {
	List(ctx context.Context) ([]publishing.Domain, error)
	Register(ctx context.Context, name, userID string) (*publishing.Domain, error)
	Verify(ctx context.Context, name string) (*publishing.Domain, error)
	Remove(ctx context.Context, name string) error
}

// Options configures the HTTP server wiring.
type Options struct {
	Resolver    PageResolver
	Publisher   PagePublisher
	Analytics   VisitAnalytics
	Domains     DomainAdmin
	Hosts       *publishing.HostPolicy
	HealthCheck func(ctx context.Context) error
	Logger      *logrus.Logger
	SentryHub   *sentry.Hub
	RateLimiter RateLimiterSettings
	APIToken    string
	AdminToken  string
}

// RateLimiterSettings configures the per-client limiter on the public serving routes.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// Server wires the HTTP transport layer via Huma and templ components.
type Server struct {
	api         huma.API
	mux         *stdhttp.ServeMux
	handler     stdhttp.Handler
	resolver    PageResolver
	publisher   PagePublisher
	analytics   VisitAnalytics
	domains     DomainAdmin
	hosts       *publishing.HostPolicy
	healthCheck func(ctx context.Context) error
	logger      *logrus.Logger
	sentry      *sentry.Hub
	rateLimiter *RateLimiter
	apiToken    string
	adminToken  string
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.Resolver == nil {
		return nil, eris.New("page resolver is required")
	}
	if opts.Publisher == nil {
		return nil, eris.New("page publisher is required")
	}
	if opts.Analytics == nil {
		return nil, eris.New("visit analytics is required")
	}
	if opts.Hosts == nil {
		return nil, eris.New("host policy is required")
	}

	settings := opts.RateLimiter
	if settings.Burst <= 0 {
		return nil, eris.New("rate limiter burst must be greater than zero")
	}
	if settings.RequestsPerSecond <= 0 {
		return nil, eris.New("rate limiter requests per second must be greater than zero")
	}
	if settings.ClientTTL <= 0 {
		return nil, eris.New("rate limiter client TTL must be greater than zero")
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("Pagecraft Publishing", "1.0.0")
	config.Info.Description = "Publishes builder projects under slugs and serves them on the default host or custom domains."

	api := humago.New(mux, config)

	srv := &Server{
		api:         api,
		mux:         mux,
		resolver:    opts.Resolver,
		publisher:   opts.Publisher,
		analytics:   opts.Analytics,
		domains:     opts.Domains,
		hosts:       opts.Hosts,
		healthCheck: opts.HealthCheck,
		logger:      opts.Logger,
		sentry:      opts.SentryHub,
		rateLimiter: NewRateLimiter(settings.Burst, settings.RequestsPerSecond, settings.ClientTTL),
		apiToken:    opts.APIToken,
		adminToken:  opts.AdminToken,
	}
	srv.handler = withCORS(mux)

	srv.registerMiddlewares()
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.handler
}

// API exposes the underlying Huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.rateLimitMiddleware(),
		s.loggingMiddleware(),
		s.authMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	s.registerHealthRoute()

	s.registerPageRoutes()
	s.registerVisitRoute()

	if s.adminToken != "" {
		s.registerAdminRoutes()
	}

	s.registerServeRoutes()
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.handler.ServeHTTP(w, r)
}
