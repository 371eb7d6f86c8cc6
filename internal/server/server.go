// Package server exposes report sessions over HTTP and WebSocket.
package server

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/jnst/lifetime-analyzer/internal/session"
)

const corsMaxAge = 300

// ConfigurationMessage is shown instead of the form when no API key is set.
const ConfigurationMessage = "The AI LifeTime Analyzer requires an API key to function, " +
	"but it has not been configured. Set the API_KEY environment variable and restart the service."

// Config controls the HTTP surface.
type Config struct {
	Model          string
	AllowedOrigins []string
	// ConfigErr, when set, puts every session endpoint behind a 503.
	ConfigErr error
	// PingInterval overrides the WebSocket keepalive period.
	PingInterval time.Duration
}

// Server routes API requests to the session registry.
type Server struct {
	sessions *session.Manager
	cfg      Config
	router   *chi.Mux
	upgrader websocket.Upgrader
}

// New builds the router. sessions may be nil when cfg.ConfigErr is set.
func New(sessions *session.Manager, cfg Config) *Server {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}

	s := &Server{
		sessions: sessions,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           corsMaxAge,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/sections", s.handleSections)

		r.Route("/sessions", func(r chi.Router) {
			r.Use(s.requireConfigured)

			r.Post("/", s.handleCreateSession)

			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Post("/submit", s.handleSubmit)
				r.Post("/retry", s.handleRetry)
				r.Post("/reset", s.handleReset)
				r.Get("/events", s.handleEvents)
			})
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requireConfigured blocks session traffic until the credential is present.
func (s *Server) requireConfigured(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.ConfigErr != nil || s.sessions == nil {
			respondError(w, http.StatusServiceUnavailable, ConfigurationMessage, s.cfg.ConfigErr)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		return origin == "" || slices.Contains(allowed, origin)
	}
}
