// internal/store/evolution.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

const evolutionColumns = `id, session_id, message_id, turn, previous_phase, phase, transitioned,
	turns_in_phase, prev_confidence, confidence, confidence_delta, trend,
	exposure_risk, exposure_delta,
	tone_confusion, tone_anxiety, tone_urgency, tone_compliance, tone_cognitive_load,
	drift_rate, initiative, signals, at`

// EvolutionStore persists the append-only decision trail. Rows are
// unique per (session, turn); nothing here is ever updated.
type EvolutionStore struct {
	db *sql.DB
}

func NewEvolutionStore(db *sql.DB) *EvolutionStore {
	return &EvolutionStore{db: db}
}

func (e *EvolutionStore) Append(ctx context.Context, rec *types.StateEvolution) error {
	signals, err := json.Marshal(rec.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}

	query := `
	INSERT INTO evolution (session_id, message_id, turn, previous_phase, phase, transitioned,
		turns_in_phase, prev_confidence, confidence, confidence_delta, trend,
		exposure_risk, exposure_delta,
		tone_confusion, tone_anxiety, tone_urgency, tone_compliance, tone_cognitive_load,
		drift_rate, initiative, signals, at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := e.db.ExecContext(ctx, query,
		string(rec.SessionID), string(rec.MessageID), rec.Turn,
		string(rec.PreviousPhase), string(rec.Phase), boolToInt(rec.Transitioned),
		rec.TurnsInPhase, rec.PrevConfidence, rec.Confidence, rec.ConfidenceDelta, string(rec.Trend),
		rec.ExposureRisk, rec.ExposureDelta,
		rec.Tone.Confusion, rec.Tone.Anxiety, rec.Tone.Urgency, rec.Tone.Compliance, rec.Tone.CognitiveLoad,
		rec.DriftRate, rec.Initiative, string(signals), unix(rec.At),
	)
	if err != nil {
		return fmt.Errorf("insert evolution: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// History returns the full trail for a session in turn order.
func (e *EvolutionStore) History(ctx context.Context, sessionID types.SessionID) ([]*types.StateEvolution, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT `+evolutionColumns+` FROM evolution WHERE session_id = ? ORDER BY turn ASC`,
		string(sessionID))
	if err != nil {
		return nil, fmt.Errorf("query evolution: %w", err)
	}
	defer rows.Close()

	var recs []*types.StateEvolution
	for rows.Next() {
		rec, err := scanEvolution(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evolution: %w", err)
	}
	return recs, nil
}

// Last returns the most recent record, the recovery source of truth
// for a session's engine state.
func (e *EvolutionStore) Last(ctx context.Context, sessionID types.SessionID) (*types.StateEvolution, error) {
	row := e.db.QueryRowContext(ctx,
		`SELECT `+evolutionColumns+` FROM evolution WHERE session_id = ? ORDER BY turn DESC LIMIT 1`,
		string(sessionID))
	rec, err := scanEvolution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("evolution for session %s: %w", sessionID, types.ErrNotFound)
	}
	return rec, err
}

func scanEvolution(row rowScanner) (*types.StateEvolution, error) {
	var rec types.StateEvolution
	var transitioned int
	var signals string
	var at int64

	err := row.Scan(
		&rec.ID, &rec.SessionID, &rec.MessageID, &rec.Turn,
		&rec.PreviousPhase, &rec.Phase, &transitioned,
		&rec.TurnsInPhase, &rec.PrevConfidence, &rec.Confidence, &rec.ConfidenceDelta, &rec.Trend,
		&rec.ExposureRisk, &rec.ExposureDelta,
		&rec.Tone.Confusion, &rec.Tone.Anxiety, &rec.Tone.Urgency, &rec.Tone.Compliance, &rec.Tone.CognitiveLoad,
		&rec.DriftRate, &rec.Initiative, &signals, &at,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan evolution: %w", err)
	}

	rec.Transitioned = transitioned != 0
	if err := json.Unmarshal([]byte(signals), &rec.Signals); err != nil {
		return nil, fmt.Errorf("unmarshal signals: %w", err)
	}
	rec.At = fromUnix(at)
	return &rec, nil
}
