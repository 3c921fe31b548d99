// internal/notify/notify.go
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// Kind classifies the session occurrences that leave the process.
type Kind string

const (
	KindScamDetected  Kind = "scam_detected"
	KindSessionEnded  Kind = "session_ended"
	KindSessionBurned Kind = "session_burned"
)

// Event is one outbound session occurrence. Payload is set only for
// final-report events; plain operator alerts carry just the session.
type Event struct {
	Kind    Kind
	Session *types.Session
	Payload *CallbackPayload
}

// Notifier delivers session events to one outbound channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, ev *Event) error
}

// Registry fans an event out to every registered notifier. Delivery is
// best effort: failures are logged and never propagated, because an
// operator alert must not fail a turn.
type Registry struct {
	mu        sync.RWMutex
	notifiers []Notifier
	logger    *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a notifier to the fan-out set.
func (r *Registry) Register(n Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifiers = append(r.notifiers, n)
}

// Dispatch sends the event to every registered notifier.
func (r *Registry) Dispatch(ctx context.Context, ev *Event) {
	r.mu.RLock()
	targets := make([]Notifier, len(r.notifiers))
	copy(targets, r.notifiers)
	r.mu.RUnlock()

	for _, n := range targets {
		if err := n.Notify(ctx, ev); err != nil {
			r.logger.Error("notifier failed",
				"notifier", n.Name(), "kind", string(ev.Kind),
				"session_id", string(ev.Session.ID), "error", err)
		}
	}
}

// CallbackPayload is the final result report, shaped for the reporting
// platform's camelCase API.
type CallbackPayload struct {
	SessionID              string              `json:"sessionId"`
	ScamDetected           bool                `json:"scamDetected"`
	TotalMessagesExchanged int                 `json:"totalMessagesExchanged"`
	ExtractedIntelligence  map[string][]string `json:"extractedIntelligence"`
	AgentNotes             string              `json:"agentNotes"`
}

// BuildCallback assembles the final report for a session. Notes
// summarise the engine's verdict for a human reader.
func BuildCallback(sess *types.Session, artifacts []*types.Artifact, notes string) *CallbackPayload {
	return &CallbackPayload{
		SessionID:              string(sess.ID),
		ScamDetected:           sess.ScamDetected,
		TotalMessagesExchanged: sess.TotalMessages,
		ExtractedIntelligence:  GroupIntelligence(artifacts),
		AgentNotes:             notes,
	}
}

// GroupIntelligence folds artifacts into the type-keyed value lists the
// reporting API expects. Values are the deduplicated normalized forms,
// in first-seen order.
func GroupIntelligence(artifacts []*types.Artifact) map[string][]string {
	out := make(map[string][]string)
	seen := make(map[string]struct{}, len(artifacts))
	for _, a := range artifacts {
		key := string(a.Type) + "|" + a.Normalized
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out[string(a.Type)] = append(out[string(a.Type)], a.Normalized)
	}
	return out
}
