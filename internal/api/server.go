package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/pagewright/internal/config"
	"github.com/dgallion1/pagewright/internal/oracle"
	"github.com/dgallion1/pagewright/internal/pipeline"
)

// Server is the HTTP API server for pagewright.
type Server struct {
	router  chi.Router
	svc     *pipeline.Service
	oracles *oracle.Router
	stats   *oracle.LLMStats
	limiter RateLimiter
	log     *slog.Logger
	cfg     config.Config
}

// NewServer creates and configures the HTTP server. A nil limiter disables
// throttling.
func NewServer(svc *pipeline.Service, oracles *oracle.Router, stats *oracle.LLMStats, limiter RateLimiter, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		svc:     svc,
		oracles: oracles,
		stats:   stats,
		limiter: limiter,
		log:     log,
		cfg:     cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/api/models", s.handleModels)

	r.Group(func(r chi.Router) {
		if s.cfg.PagewrightAPIKey != "" {
			r.Use(AuthMiddleware(s.cfg.PagewrightAPIKey, s.log))
		}

		r.Post("/api/reconcile", s.handleReconcile)
		r.Get("/api/stats/llm", s.handleLLMStats)

		// Endpoints that call the oracle.
		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(RateLimit(s.limiter, s.log))
			}
			r.Post("/api/build", s.handleBuild)
			r.Put("/api/patch", s.handlePatch)
			r.Put("/api/rewrite-element", s.handleRewriteElement)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
