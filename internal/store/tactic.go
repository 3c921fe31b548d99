// internal/store/tactic.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// TacticStore persists detected manipulation tactics, append-only.
type TacticStore struct {
	db *sql.DB
}

func NewTacticStore(db *sql.DB) *TacticStore {
	return &TacticStore{db: db}
}

func (t *TacticStore) Append(ctx context.Context, event *types.TacticEvent) error {
	keywords, err := json.Marshal(event.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}

	query := `
	INSERT INTO tactic_events (session_id, turn, tactic_type, description, message_text, keywords, threat_level, at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := t.db.ExecContext(ctx, query,
		string(event.SessionID), event.Turn, string(event.Type),
		event.Description, event.MessageText, string(keywords),
		string(event.ThreatLevel), unix(event.At),
	)
	if err != nil {
		return fmt.Errorf("insert tactic event: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

func (t *TacticStore) List(ctx context.Context, sessionID types.SessionID) ([]*types.TacticEvent, error) {
	query := `
	SELECT id, session_id, turn, tactic_type, description, message_text, keywords, threat_level, at
	FROM tactic_events WHERE session_id = ? ORDER BY turn ASC, id ASC`

	rows, err := t.db.QueryContext(ctx, query, string(sessionID))
	if err != nil {
		return nil, fmt.Errorf("query tactic events: %w", err)
	}
	defer rows.Close()

	var events []*types.TacticEvent
	for rows.Next() {
		var event types.TacticEvent
		var keywords string
		var at int64
		if err := rows.Scan(
			&event.ID, &event.SessionID, &event.Turn, &event.Type,
			&event.Description, &event.MessageText, &keywords, &event.ThreatLevel, &at,
		); err != nil {
			return nil, fmt.Errorf("scan tactic event: %w", err)
		}
		if err := json.Unmarshal([]byte(keywords), &event.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshal keywords: %w", err)
		}
		event.At = fromUnix(at)
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tactic events: %w", err)
	}
	return events, nil
}
