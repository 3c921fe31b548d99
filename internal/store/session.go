// internal/store/session.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

const sessionColumns = `id, session_key, channel, language, locale, persona, initial_confidence,
	status, phase, scam_detected, confidence, exposure_risk,
	tone_confusion, tone_anxiety, tone_urgency, tone_compliance, tone_cognitive_load,
	initiative, turns_in_phase, stagnant_turns, last_turn, total_messages,
	intelligence_count, tactic_count, engagement_seconds, callback_sent,
	created_at, updated_at, completed_at`

// SessionStore persists sessions in the sessions table. One row per
// session; the engine counters live on the row and are rewritten whole
// on every Update.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, session *types.Session) error {
	query := `
	INSERT INTO sessions (` + sessionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, sessionArgs(session)...)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id types.SessionID) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, string(id))
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, types.ErrNotFound)
	}
	return session, err
}

func (s *SessionStore) GetByKey(ctx context.Context, key types.SessionKey) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE session_key = ?`, string(key))
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session key %s: %w", key, types.ErrNotFound)
	}
	return session, err
}

// List returns sessions matching the filter, most recently updated
// first. Zero filter fields are not constrained.
func (s *SessionStore) List(ctx context.Context, filter types.SessionFilter) ([]*types.Session, error) {
	q := sq.Select(sessionColumns).From("sessions").OrderBy("updated_at DESC")
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Persona != "" {
		q = q.Where(sq.Eq{"persona": string(filter.Persona)})
	}
	if filter.Channel != "" {
		q = q.Where(sq.Eq{"channel": string(filter.Channel)})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build session query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*types.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func (s *SessionStore) Update(ctx context.Context, session *types.Session) error {
	query := `
	UPDATE sessions SET
		session_key = ?, channel = ?, language = ?, locale = ?, persona = ?,
		initial_confidence = ?, status = ?, phase = ?, scam_detected = ?,
		confidence = ?, exposure_risk = ?,
		tone_confusion = ?, tone_anxiety = ?, tone_urgency = ?, tone_compliance = ?, tone_cognitive_load = ?,
		initiative = ?, turns_in_phase = ?, stagnant_turns = ?, last_turn = ?,
		total_messages = ?, intelligence_count = ?, tactic_count = ?,
		engagement_seconds = ?, callback_sent = ?, created_at = ?, updated_at = ?, completed_at = ?
	WHERE id = ?`

	all := sessionArgs(session)
	args := make([]any, 0, len(all))
	args = append(args, all[1:]...)
	args = append(args, all[0])
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", session.ID, types.ErrNotFound)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id types.SessionID) error {
	// No FK enforcement is assumed; remove dependents explicitly.
	for _, query := range []string{
		`DELETE FROM evaluations WHERE session_id = ?`,
		`DELETE FROM tactic_events WHERE session_id = ?`,
		`DELETE FROM artifacts WHERE session_id = ?`,
		`DELETE FROM evolution WHERE session_id = ?`,
		`DELETE FROM messages WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	} {
		if _, err := s.db.ExecContext(ctx, query, string(id)); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	return nil
}

func sessionArgs(s *types.Session) []any {
	return []any{
		string(s.ID), string(s.Key), string(s.Channel), s.Language, s.Locale,
		string(s.Persona), s.InitialConfidence, string(s.Status), string(s.Phase),
		boolToInt(s.ScamDetected), s.Confidence, s.ExposureRisk,
		s.Tone.Confusion, s.Tone.Anxiety, s.Tone.Urgency, s.Tone.Compliance, s.Tone.CognitiveLoad,
		s.Initiative, s.TurnsInPhase, s.StagnantTurns, s.LastTurn, s.TotalMessages,
		s.IntelligenceCount, s.TacticCount, s.EngagementSeconds, boolToInt(s.CallbackSent),
		unix(s.CreatedAt), unix(s.UpdatedAt), toNullUnix(s.CompletedAt),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*types.Session, error) {
	var s types.Session
	var scamDetected, callbackSent int
	var createdAt, updatedAt int64
	var completedAt sql.NullInt64

	err := row.Scan(
		&s.ID, &s.Key, &s.Channel, &s.Language, &s.Locale, &s.Persona, &s.InitialConfidence,
		&s.Status, &s.Phase, &scamDetected, &s.Confidence, &s.ExposureRisk,
		&s.Tone.Confusion, &s.Tone.Anxiety, &s.Tone.Urgency, &s.Tone.Compliance, &s.Tone.CognitiveLoad,
		&s.Initiative, &s.TurnsInPhase, &s.StagnantTurns, &s.LastTurn, &s.TotalMessages,
		&s.IntelligenceCount, &s.TacticCount, &s.EngagementSeconds, &callbackSent,
		&createdAt, &updatedAt, &completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	s.ScamDetected = scamDetected != 0
	s.CallbackSent = callbackSent != 0
	s.CreatedAt = fromUnix(createdAt)
	s.UpdatedAt = fromUnix(updatedAt)
	s.CompletedAt = fromNullUnix(completedAt)
	return &s, nil
}
