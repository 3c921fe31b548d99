// internal/httpapi/server.go
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/gateway"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// Aborter ends a session at a turn boundary and runs its end-of-session
// reporting. The runtime implements it.
type Aborter interface {
	Abort(ctx context.Context, id types.SessionID) (*types.Session, error)
}

// Stores bundles the read-side store interfaces the API serves from.
type Stores struct {
	Sessions  types.SessionStore
	Evolution types.EvolutionStore
	Artifacts types.ArtifactStore
	Tactics   types.TacticStore
	Evals     types.EvaluationStore
}

// Server is the inbound HTTP surface: the platform posts scammer
// messages here and reads session state back. Writes flow through the
// gateway so per-session turn ordering holds no matter how many
// requests arrive at once.
type Server struct {
	gateway *gateway.Gateway
	aborter Aborter
	stores  Stores
	logger  *slog.Logger
	router  chi.Router
}

func NewServer(gw *gateway.Gateway, aborter Aborter, stores Stores, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		gateway: gw,
		aborter: aborter,
		stores:  stores,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/messages", s.handleMessage)
			r.Post("/abort", s.handleAbort)
			r.Get("/", s.handleGetSession)
			r.Get("/evolution", s.handleEvolution)
			r.Get("/artifacts", s.handleArtifacts)
			r.Get("/tactics", s.handleTactics)
			r.Get("/evaluation", s.handleEvaluation)
		})
	})

	s.router = r
	return s
}

// ServeHTTP delegates to the chi router, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// lookupSession resolves a path reference, trying the platform's
// session key first and falling back to the internal session ID.
func (s *Server) lookupSession(ctx context.Context, ref string) (*types.Session, error) {
	sess, err := s.stores.Sessions.GetByKey(ctx, types.SessionKey(ref))
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	return s.stores.Sessions.Get(ctx, types.SessionID(ref))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
