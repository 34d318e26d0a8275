// internal/httpserver/server.go
//
// HTTP wiring for the arena server.
// Responsibilities:
//   - Router + middleware (request IDs, panic recovery, CORS, JSON defaults).
//   - Public endpoints: "/", "/health".
//   - Replay read path: POST /api/load_game (see routes_replay.go).
//   - WebSocket mount: GET /ws → per-connection protocol loop (see ws.go).
//
// Notes:
//   - The handler timeout middleware is applied to the API group only; the
//     /ws route hosts long-lived connections bounded by their own
//     inactivity deadline.
//   - CORS is origin-aware and permissive toward the configured replay UI
//     origin so the browser read path works cross-site.

package httpserver

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pashneal/stourney-platform/internal/arena"
	"github.com/pashneal/stourney-platform/internal/queue"
	"github.com/pashneal/stourney-platform/internal/registry"
	"github.com/pashneal/stourney-platform/internal/storage"
)

// Server bundles the router with the live-session collaborators.
type Server struct {
	r           *chi.Mux
	machine     *arena.Machine
	reg         *registry.Registry
	queue       *queue.Queue
	store       storage.Store
	idleTimeout time.Duration
}

// DefaultIdleTimeout is the inactivity deadline for arena connections.
const DefaultIdleTimeout = 5 * time.Minute

// New constructs a Server, installs middleware, and registers routes.
// idleTimeout <= 0 selects DefaultIdleTimeout.
func New(m *arena.Machine, reg *registry.Registry, q *queue.Queue, st storage.Store, idleTimeout time.Duration) *Server {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	s := &Server{
		r:           chi.NewRouter(),
		machine:     m,
		reg:         reg,
		queue:       q,
		store:       st,
		idleTimeout: idleTimeout,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(corsFromEnv)

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"stourney-arena","endpoints":["/health","/ws","POST /api/load_game"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Replay read path: bounded handlers, JSON in/out.
	s.r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)
		r.Post("/load_game", s.handleLoadGame)
	})

	// Arena connections. No timeout middleware here: the connection loop
	// owns its deadline.
	s.r.Get("/ws", s.handleWS)

	// JSON 404 for easier debugging.
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables CORS for the replay UI origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
