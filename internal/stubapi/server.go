package stubapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/terra-clan/drills/internal/config"
)

// Server is a stand-in for the drills API backed by fixtures
type Server struct {
	config   config.ServerConfig
	router   *chi.Mux
	catalog  *Catalog
	stats    *Stats
	runner   Runner
	validate *validator.Validate
	registry *prometheus.Registry
	metrics  *metrics
}

// NewServer creates a new stub API server
func NewServer(cfg config.ServerConfig, catalog *Catalog, stats *Stats, runner Runner) *Server {
	if runner == nil {
		runner = ScriptedRunner{}
	}

	registry := prometheus.NewRegistry()
	s := &Server{
		config:   cfg,
		catalog:  catalog,
		stats:    stats,
		runner:   runner,
		validate: newValidator(),
		registry: registry,
		metrics:  newMetrics(registry),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/categories", s.handleListCategories)
		r.Get("/exercises", s.handleListExercises)
		r.Get("/stats", s.handleGetStats)

		r.Route("/exercises/{topic}/{name}", func(r chi.Router) {
			r.Get("/", s.handleGetExercise)
			r.Post("/run", s.handleRunExercise)
			r.Delete("/stats", s.handleResetStats)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog and records metrics
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)

			s.metrics.requests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
			s.metrics.latency.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", elapsed.Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
