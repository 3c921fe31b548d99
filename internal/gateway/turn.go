package gateway

import (
	"context"
	"time"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// TurnStatus represents the lifecycle state of a Turn.
type TurnStatus string

const (
	TurnStatusQueued   TurnStatus = "queued"
	TurnStatusRunning  TurnStatus = "running"
	TurnStatusComplete TurnStatus = "complete"
	TurnStatusFailed   TurnStatus = "failed"
)

// TurnResult is handed to the submitter's OnComplete callback exactly
// once per turn. On success Decision and Reply are set; on failure only
// Err is, because no engine state was advanced.
type TurnResult struct {
	Decision *types.Decision
	Reply    string
	Notes    string
	Err      error
}

// Turn tracks a single inbound scammer message through the pipeline.
// Lane is the session key: every turn for one conversation lands on the
// same lane and is processed strictly in arrival order.
type Turn struct {
	ID         types.TurnID
	Lane       types.SessionKey
	Message    *types.InboundMessage
	Status     TurnStatus
	Attempts   int
	CreatedAt  time.Time
	StartedAt  *time.Time
	EndedAt    *time.Time
	Error      error
	Ctx        context.Context
	OnComplete func(*TurnResult)
}

// NewTurn creates a Turn in the Queued state for the given message.
func NewTurn(msg *types.InboundMessage) *Turn {
	return &Turn{
		ID:        types.NewTurnID(),
		Lane:      msg.SessionKey,
		Message:   msg,
		Status:    TurnStatusQueued,
		CreatedAt: time.Now(),
	}
}
