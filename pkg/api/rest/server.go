package rest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/api/rest/middleware"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/config"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/observability"
)

// Config holds the REST server configuration
type Config struct {
	Host        string
	Port        int
	Codec       config.CodecConfig
	CORSEnabled bool
	CORSOrigins []string
	Auth        middleware.AuthConfig
	RateLimit   middleware.RateLimitConfig
}

// Server represents the REST API server
type Server struct {
	config     Config
	handler    *Handler
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewServer creates a new REST API server
func NewServer(cfg Config, logger *observability.Logger, metrics *observability.Metrics) *Server {
	if logger == nil {
		logger = observability.GetGlobalLogger()
	}

	server := &Server{
		config:  cfg,
		handler: NewHandler(cfg.Codec, logger, metrics),
		mux:     http.NewServeMux(),
		logger:  logger,
		metrics: metrics,
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      server.withMiddleware(server.mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/v1/health", s.handler.HealthCheck)
	s.mux.HandleFunc("/v1/kinds", s.handler.ListKinds)

	s.mux.HandleFunc("/v1/encode/linear", s.handler.EncodeLinear)
	s.mux.HandleFunc("/v1/encode/log", s.handler.EncodeLog)
	s.mux.HandleFunc("/v1/encode/slices", s.handler.EncodeSlices)

	s.mux.HandleFunc("/v1/decode/linear", s.handler.DecodeLinear)
	s.mux.HandleFunc("/v1/decode/log", s.handler.DecodeLog)
	s.mux.HandleFunc("/v1/decode/slices", s.handler.DecodeSlices)

	s.mux.Handle("/metrics", promhttp.Handler())
}

// withMiddleware wraps the handler with all middleware
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last one wraps first)

	// 1. Authentication (innermost, runs last)
	handler = middleware.AuthMiddleware(s.config.Auth)(handler)

	// 2. Rate limiting
	rateLimiter := middleware.NewRateLimiter(s.config.RateLimit)
	handler = middleware.RateLimitMiddleware(rateLimiter)(handler)

	// 3. CORS
	if s.config.CORSEnabled {
		handler = corsMiddleware(s.config.CORSOrigins)(handler)
	}

	// 4. Logging and request metrics (outermost)
	handler = loggingMiddleware(s.logger, s.metrics)(handler)

	return handler
}

// Handler returns the fully wrapped HTTP handler, for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the REST API server
func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", map[string]interface{}{
		"address": s.httpServer.Addr,
	})

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.httpServer.Shutdown(ctx)
}

// loggingMiddleware logs all HTTP requests and records request metrics
func loggingMiddleware(logger *observability.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	access := observability.NewAccessLogger(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)
			elapsed := time.Since(start)

			access.LogAccess(r.Method, r.URL.Path, wrapped.statusCode, elapsed, nil)

			if metrics != nil {
				metrics.RecordRequest(r.Method, strconv.Itoa(wrapped.statusCode), elapsed)
				switch {
				case wrapped.statusCode >= 500:
					metrics.RecordError(r.Method, "server_error")
				case wrapped.statusCode >= 400:
					metrics.RecordError(r.Method, "client_error")
				}
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware adds CORS headers
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				allowed = true
				origin = "*"
			} else {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
