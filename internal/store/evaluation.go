// internal/store/evaluation.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// EvaluationStore persists one quality summary per session. The metric
// set is stored as a JSON payload; recalculation replaces it whole.
type EvaluationStore struct {
	db *sql.DB
}

func NewEvaluationStore(db *sql.DB) *EvaluationStore {
	return &EvaluationStore{db: db}
}

func (e *EvaluationStore) Put(ctx context.Context, eval *types.Evaluation) error {
	payload, err := json.Marshal(eval)
	if err != nil {
		return fmt.Errorf("marshal evaluation: %w", err)
	}

	query := `
	INSERT INTO evaluations (session_id, payload, calculated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		payload = excluded.payload,
		calculated_at = excluded.calculated_at`

	_, err = e.db.ExecContext(ctx, query,
		string(eval.SessionID), string(payload), unix(eval.CalculatedAt))
	if err != nil {
		return fmt.Errorf("upsert evaluation: %w", err)
	}
	return nil
}

func (e *EvaluationStore) Get(ctx context.Context, sessionID types.SessionID) (*types.Evaluation, error) {
	var payload string
	err := e.db.QueryRowContext(ctx,
		`SELECT payload FROM evaluations WHERE session_id = ?`, string(sessionID)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("evaluation for session %s: %w", sessionID, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query evaluation: %w", err)
	}

	var eval types.Evaluation
	if err := json.Unmarshal([]byte(payload), &eval); err != nil {
		return nil, fmt.Errorf("unmarshal evaluation: %w", err)
	}
	return &eval, nil
}
