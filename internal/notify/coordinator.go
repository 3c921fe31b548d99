// internal/notify/coordinator.go
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// Coordinator owns final-report delivery. Each session gets at most one
// callback, tracked by its persisted callback_sent flag: the flag is
// written only after the callback endpoint accepted the report, so a
// failed delivery stays eligible for the scheduler's retry sweep.
type Coordinator struct {
	sessions types.SessionStore
	callback Notifier // required delivery; nil disables final reports
	registry *Registry
	logger   *slog.Logger
}

func NewCoordinator(sessions types.SessionStore, callback Notifier, registry *Registry, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = NewRegistry(logger)
	}
	return &Coordinator{
		sessions: sessions,
		callback: callback,
		registry: registry,
		logger:   logger,
	}
}

// FinalReport delivers the session's final callback unless one was
// already sent, then mirrors the event to the operator registry.
func (c *Coordinator) FinalReport(ctx context.Context, sess *types.Session, payload *CallbackPayload) error {
	if sess.CallbackSent {
		return nil
	}

	ev := &Event{Kind: reportKind(sess), Session: sess, Payload: payload}
	if c.callback != nil {
		if err := c.callback.Notify(ctx, ev); err != nil {
			return fmt.Errorf("final callback for %s: %w", sess.ID, err)
		}
	}

	sess.CallbackSent = true
	sess.UpdatedAt = time.Now().UTC()
	if err := c.sessions.Update(ctx, sess); err != nil {
		return fmt.Errorf("mark callback sent: %w", err)
	}

	c.registry.Dispatch(ctx, ev)
	return nil
}

// Alert mirrors a session occurrence to the operator registry without
// touching the callback path.
func (c *Coordinator) Alert(ctx context.Context, kind Kind, sess *types.Session) {
	c.registry.Dispatch(ctx, &Event{Kind: kind, Session: sess})
}

func reportKind(sess *types.Session) Kind {
	switch {
	case sess.Status == types.StatusBurned:
		return KindSessionBurned
	case sess.Status.Terminal():
		return KindSessionEnded
	default:
		return KindScamDetected
	}
}
