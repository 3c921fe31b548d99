package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// Gateway admits inbound scammer messages into the processing pipeline.
// It validates the submission, wraps it in a Turn, and enqueues it on
// the session's lane: turns for one conversation are strictly
// serialized while unrelated sessions proceed in parallel.
type Gateway struct {
	Queue *Queue
	Retry *RetryPolicy

	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Gateway with the given concurrency limit for
// simultaneous turn processing.
func New(maxConcurrent int64, logger *slog.Logger) *Gateway {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		Queue:  NewQueue(maxConcurrent),
		Retry:  DefaultRetryPolicy(),
		logger: logger,
	}
}

// Start initialises the gateway's context and starts the internal queue.
func (g *Gateway) Start(ctx context.Context) {
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.Queue.Start(g.ctx)
}

// Stop cancels the gateway context, stops the queue, and waits for any
// outstanding work to finish.
func (g *Gateway) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.Queue.Stop()
}

// TurnOption configures optional behavior on a Turn.
type TurnOption func(*Turn)

// WithOnComplete sets a callback invoked exactly once when the turn
// finishes, whether it produced a reply or failed.
func WithOnComplete(fn func(*TurnResult)) TurnOption {
	return func(t *Turn) { t.OnComplete = fn }
}

// HandleInbound validates an inbound message and enqueues it on the
// session's lane. A nil error means the turn was accepted, not that it
// was processed; completion is reported through the turn's callback.
func (g *Gateway) HandleInbound(ctx context.Context, msg *types.InboundMessage, opts ...TurnOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.SessionKey == "" {
		return fmt.Errorf("inbound message missing session key")
	}
	if msg.Sender == "" {
		msg.Sender = types.SenderScammer
	}
	if strings.TrimSpace(msg.Text) == "" {
		return fmt.Errorf("inbound message for %s has no text", msg.SessionKey)
	}

	turn := NewTurn(msg)
	for _, opt := range opts {
		opt(turn)
	}
	g.logger.Debug("turn enqueued",
		"turn_id", string(turn.ID), "session_key", string(msg.SessionKey), "turn", msg.Turn)
	return g.Queue.Enqueue(turn)
}
