package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/recovery"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	"expenses/internal/services"
)

const (
	readTimeout    = 10 * time.Second
	writeTimeout   = 10 * time.Second
	idleTimeout    = 60 * time.Second
	maxHeaderBytes = 64 << 10
)

// Suggester ranks categories for a transaction description.
type Suggester interface {
	Suggest(ctx context.Context, description string) ([]core.Suggestion, error)
}

// Pinger checks that the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SizeReporter reports the number of cached suggestion snapshots.
type SizeReporter interface {
	Size(ctx context.Context) int
}

// Deps are the collaborators of the API server. Cache and Logger are
// optional.
type Deps struct {
	Services  *services.Services
	Suggester Suggester
	Store     Pinger
	Cache     SizeReporter
	Logger    *applog.Logger

	RateLimitPerMinute int
	CORSAllowedOrigin  string
}

type Server struct {
	http.Server

	deps     Deps
	logger   *applog.StructuredLogger
	tracer   *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter

	started      time.Time
	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer configures the middleware chain and routes, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}

	detector := security.NewDetector()
	s := &Server{
		Server: http.Server{
			Addr:           addr,
			ReadTimeout:    readTimeout,
			WriteTimeout:   writeTimeout,
			IdleTimeout:    idleTimeout,
			MaxHeaderBytes: maxHeaderBytes,
		},
		deps:     deps,
		logger:   applog.NewStructuredLogger(),
		tracer:   trace.NewMiddleware(detector.ExtractClientIP),
		detector: detector,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
		}),
		started: time.Now(),
		now:     time.Now,
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	cors := security.DefaultCORSConfig()
	if s.deps.CORSAllowedOrigin != "" {
		cors.AllowedOrigin = s.deps.CORSAllowedOrigin
	}

	r := chi.NewRouter()
	r.Use(recovery.Recoverer)
	r.Use(s.tracer.Handler)
	r.Use(applog.Middleware(s.deps.Logger, trace.GetRequestID))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(security.CORS(cors))
	r.Use(s.detector.Middleware)
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		slog.WarnContext(r.Context(), "Rate limit exceeded", "path", r.URL.Path)
		TooManyRequestsError().Write(w)
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed").Write(w)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCategory)
				r.Put("/", s.handleUpdateCategory)
				r.Delete("/", s.handleDeleteCategory)
				r.Post("/subcategories", s.handleAddSubcategory)
				r.Delete("/subcategories/{subId}", s.handleDeleteSubcategory)
				r.Get("/examples", s.handleListExamples)
				r.Post("/examples", s.handleCreateExample)
				r.Delete("/examples/{exampleId}", s.handleDeleteExample)
			})
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Post("/suggest-category", s.handleSuggestCategory)
			r.Get("/{id}", s.handleGetTransaction)
			r.Put("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/monthly", s.handleMonthlyReport)
			r.Get("/categories", s.handleCategoryReport)
			r.Get("/trends", s.handleTrends)
			r.Get("/dashboard", s.handleDashboard)
		})
	})

	return r
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
