// internal/store/artifact.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

const artifactColumns = `id, session_id, artifact_type, value, normalized_value, message_id, turn,
	method, confirmed, confirmation_count, confidence, context, detail, first_seen, last_seen`

// ArtifactStore persists deduplicated intelligence. The
// (session, type, normalized value) unique index carries the dedup
// invariant; Upsert converts a second sighting into a confirmation.
type ArtifactStore struct {
	db *sql.DB
}

func NewArtifactStore(db *sql.DB) *ArtifactStore {
	return &ArtifactStore{db: db}
}

// Upsert inserts a new artifact or, when the (session, type,
// normalized) row already exists, bumps its confirmation count and
// marks it confirmed. The merged row is returned either way.
func (a *ArtifactStore) Upsert(ctx context.Context, artifact *types.Artifact) (*types.Artifact, error) {
	detail, err := types.EncodeDetail(artifact.Detail)
	if err != nil {
		return nil, fmt.Errorf("encode artifact detail: %w", err)
	}
	var detailArg any
	if detail != nil {
		detailArg = string(detail)
	}

	// The insert branch always writes fresh-row values; when the row
	// exists only the confirmation metadata moves.
	query := `
	INSERT INTO artifacts (` + artifactColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 1, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id, artifact_type, normalized_value) DO UPDATE SET
		confirmation_count = artifacts.confirmation_count + 1,
		confirmed = 1,
		last_seen = excluded.last_seen`

	_, err = a.db.ExecContext(ctx, query,
		string(artifact.ID), string(artifact.SessionID), string(artifact.Type),
		artifact.Value, artifact.Normalized, string(artifact.MessageID), artifact.Turn,
		artifact.Method, artifact.Confidence, artifact.Context, detailArg,
		unix(artifact.FirstSeen), unix(artifact.LastSeen),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert artifact: %w", err)
	}

	row := a.db.QueryRowContext(ctx,
		`SELECT `+artifactColumns+` FROM artifacts
		 WHERE session_id = ? AND artifact_type = ? AND normalized_value = ?`,
		string(artifact.SessionID), string(artifact.Type), artifact.Normalized)
	merged, err := scanArtifact(row)
	if err != nil {
		return nil, fmt.Errorf("read back artifact: %w", err)
	}
	return merged, nil
}

func (a *ArtifactStore) List(ctx context.Context, sessionID types.SessionID) ([]*types.Artifact, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE session_id = ? ORDER BY first_seen ASC, id ASC`,
		string(sessionID))
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*types.Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}

func (a *ArtifactStore) CountConfirmed(ctx context.Context, sessionID types.SessionID) (int, error) {
	var n int
	err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM artifacts WHERE session_id = ? AND confirmed = 1`,
		string(sessionID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count confirmed artifacts: %w", err)
	}
	return n, nil
}

func scanArtifact(row rowScanner) (*types.Artifact, error) {
	var artifact types.Artifact
	var confirmed int
	var detail sql.NullString
	var firstSeen, lastSeen int64

	err := row.Scan(
		&artifact.ID, &artifact.SessionID, &artifact.Type, &artifact.Value, &artifact.Normalized,
		&artifact.MessageID, &artifact.Turn, &artifact.Method, &confirmed, &artifact.Confirmations,
		&artifact.Confidence, &artifact.Context, &detail, &firstSeen, &lastSeen,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan artifact: %w", err)
	}

	artifact.Confirmed = confirmed != 0
	if detail.Valid && detail.String != "" {
		d, err := types.DecodeDetail(artifact.Type, []byte(detail.String))
		if err != nil {
			return nil, fmt.Errorf("decode artifact detail: %w", err)
		}
		artifact.Detail = d
	}
	artifact.FirstSeen = fromUnix(firstSeen)
	artifact.LastSeen = fromUnix(lastSeen)
	return &artifact, nil
}
