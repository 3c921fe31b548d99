// internal/httpapi/sessions.go
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/gateway"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/notify"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// turnTimeout bounds how long a message POST waits for its turn to
// finish. The turn keeps processing if the caller gives up.
const turnTimeout = 2 * time.Minute

// inboundPayload is the platform's message envelope.
type inboundPayload struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

// messageRequest is the body of POST /api/v1/sessions/{id}/messages.
// The session key rides in the path. conversationHistory is accepted
// for compatibility and ignored; the engine trusts its own transcript.
type messageRequest struct {
	Message  inboundPayload  `json:"message"`
	Channel  types.Channel   `json:"channel,omitempty"`
	Persona  types.Persona   `json:"persona,omitempty"`
	Language string          `json:"language,omitempty"`
	Locale   string          `json:"locale,omitempty"`
	Turn     int             `json:"turn,omitempty"`
	History  json.RawMessage `json:"conversationHistory,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// AgentResponse is the per-turn reply contract, camelCase for the
// reporting platform.
type AgentResponse struct {
	Status                string              `json:"status"`
	ScamDetected          bool                `json:"scamDetected"`
	AgentMessage          string              `json:"agentMessage,omitempty"`
	ShouldContinue        bool                `json:"shouldContinue"`
	ExtractedIntelligence map[string][]string `json:"extractedIntelligence,omitempty"`
	AgentNotes            string              `json:"agentNotes,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "id")

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg := &types.InboundMessage{
		SessionKey: types.SessionKey(key),
		Channel:    req.Channel,
		Persona:    req.Persona,
		Language:   req.Language,
		Locale:     req.Locale,
		Sender:     types.Sender(req.Message.Sender),
		Text:       req.Message.Text,
		Turn:       req.Turn,
		Metadata:   req.Metadata,
	}
	if ts, err := time.Parse(time.RFC3339, req.Message.Timestamp); err == nil {
		msg.At = ts
	}

	resCh := make(chan *gateway.TurnResult, 1)
	err := s.gateway.HandleInbound(r.Context(), msg, gateway.WithOnComplete(func(res *gateway.TurnResult) {
		resCh <- res
	}))
	if err != nil {
		if errors.Is(err, gateway.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, "session queue full, retry later")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	select {
	case res := <-resCh:
		if res.Err != nil {
			s.turnError(w, key, res.Err)
			return
		}
		s.respondTurn(w, r, res)
	case <-r.Context().Done():
		writeError(w, http.StatusGatewayTimeout, "turn still processing")
	case <-time.After(turnTimeout):
		writeError(w, http.StatusGatewayTimeout, "turn still processing")
	}
}

func (s *Server) respondTurn(w http.ResponseWriter, r *http.Request, res *gateway.TurnResult) {
	var intel map[string][]string
	artifacts, err := s.stores.Artifacts.List(r.Context(), res.Decision.SessionID)
	if err != nil {
		s.logger.Error("list artifacts for response",
			"session_id", string(res.Decision.SessionID), "error", err)
	} else {
		intel = notify.GroupIntelligence(artifacts)
	}

	writeJSON(w, http.StatusOK, AgentResponse{
		Status:                "success",
		ScamDetected:          res.Decision.ScamDetected,
		AgentMessage:          res.Reply,
		ShouldContinue:        res.Decision.ShouldContinue,
		ExtractedIntelligence: intel,
		AgentNotes:            res.Notes,
	})
}

// turnError maps the engine's sentinel errors onto response codes
// without leaking internals.
func (s *Server) turnError(w http.ResponseWriter, key string, err error) {
	switch {
	case errors.Is(err, types.ErrTurnOrder):
		writeError(w, http.StatusConflict, "turn number out of order")
	case errors.Is(err, types.ErrSessionClosed):
		writeError(w, http.StatusGone, "session closed")
	case errors.Is(err, types.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	default:
		s.logger.Error("turn processing failed", "session_key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := types.SessionFilter{
		Status:  types.SessionStatus(q.Get("status")),
		Persona: types.Persona(q.Get("persona")),
		Channel: types.Channel(q.Get("channel")),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	sessions, err := s.stores.Sessions.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list sessions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if sessions == nil {
		sessions = []*types.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleEvolution(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	history, err := s.stores.Evolution.History(r.Context(), sess.ID)
	if err != nil {
		s.logger.Error("load evolution failed", "session_id", string(sess.ID), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if history == nil {
		history = []*types.StateEvolution{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	artifacts, err := s.stores.Artifacts.List(r.Context(), sess.ID)
	if err != nil {
		s.logger.Error("load artifacts failed", "session_id", string(sess.ID), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if artifacts == nil {
		artifacts = []*types.Artifact{}
	}
	writeJSON(w, http.StatusOK, artifacts)
}

func (s *Server) handleTactics(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	events, err := s.stores.Tactics.List(r.Context(), sess.ID)
	if err != nil {
		s.logger.Error("load tactics failed", "session_id", string(sess.ID), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if events == nil {
		events = []*types.TacticEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleEvaluation(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	eval, err := s.stores.Evals.Get(r.Context(), sess.ID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			writeError(w, http.StatusNotFound, "evaluation not available")
			return
		}
		s.logger.Error("load evaluation failed", "session_id", string(sess.ID), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	aborted, err := s.aborter.Abort(r.Context(), sess.ID)
	if err != nil {
		if errors.Is(err, types.ErrSessionClosed) {
			writeError(w, http.StatusConflict, "session already closed")
			return
		}
		s.logger.Error("abort failed", "session_id", string(sess.ID), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, aborted)
}

// sessionFromPath resolves the {id} path segment or writes the error
// response and reports false.
func (s *Server) sessionFromPath(w http.ResponseWriter, r *http.Request) (*types.Session, bool) {
	ref := chi.URLParam(r, "id")
	sess, err := s.lookupSession(r.Context(), ref)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return nil, false
		}
		s.logger.Error("session lookup failed", "ref", ref, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	return sess, true
}
