// internal/types/interfaces.go
package types

import (
	"context"
)

// SessionFilter narrows List calls; zero values mean "any".
type SessionFilter struct {
	Status  SessionStatus
	Persona Persona
	Channel Channel
	Limit   int
}

type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id SessionID) (*Session, error)
	GetByKey(ctx context.Context, key SessionKey) (*Session, error)
	List(ctx context.Context, filter SessionFilter) ([]*Session, error)
	Update(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id SessionID) error
}

type MessageStore interface {
	Append(ctx context.Context, msg *Message) error
	Recent(ctx context.Context, sessionID SessionID, limit int) ([]*Message, error)
	RecentBySender(ctx context.Context, sessionID SessionID, sender Sender, limit int) ([]*Message, error)
	Count(ctx context.Context, sessionID SessionID) (int64, error)
}

type EvolutionStore interface {
	Append(ctx context.Context, rec *StateEvolution) error
	History(ctx context.Context, sessionID SessionID) ([]*StateEvolution, error)
	Last(ctx context.Context, sessionID SessionID) (*StateEvolution, error)
}

type ArtifactStore interface {
	// Upsert enforces the (session, type, normalized value) uniqueness
	// invariant: the second sighting updates confirmation metadata and
	// returns the merged row.
	Upsert(ctx context.Context, artifact *Artifact) (*Artifact, error)
	List(ctx context.Context, sessionID SessionID) ([]*Artifact, error)
	CountConfirmed(ctx context.Context, sessionID SessionID) (int, error)
}

type TacticStore interface {
	Append(ctx context.Context, event *TacticEvent) error
	List(ctx context.Context, sessionID SessionID) ([]*TacticEvent, error)
}

type EvaluationStore interface {
	Put(ctx context.Context, eval *Evaluation) error
	Get(ctx context.Context, sessionID SessionID) (*Evaluation, error)
}
