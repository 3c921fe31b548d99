// internal/store/message.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

const messageColumns = `id, session_id, turn, sender, text, raw_text,
	delay_seconds, typo_count, truncated, phase, confidence, exposure_risk, at`

// MessageStore persists the transcript. (session, turn, sender) is
// unique, so replays of an already-recorded exchange fail at the
// database rather than duplicating rows.
type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (m *MessageStore) Append(ctx context.Context, msg *types.Message) error {
	query := `
	INSERT INTO messages (` + messageColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var delay, typos, truncated any
	if msg.Humanization != nil {
		delay = msg.Humanization.DelaySeconds
		typos = msg.Humanization.TypoCount
		truncated = boolToInt(msg.Humanization.Truncated)
	}

	_, err := m.db.ExecContext(ctx, query,
		string(msg.ID), string(msg.SessionID), msg.Turn, string(msg.Sender),
		msg.Text, msg.RawText, delay, typos, truncated,
		string(msg.Phase), msg.Confidence, msg.ExposureRisk, unix(msg.At),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Recent returns the session's latest messages, most recent first.
// Within a turn the agent reply sorts before the scammer message that
// prompted it, matching reverse exchange order.
func (m *MessageStore) Recent(ctx context.Context, sessionID types.SessionID, limit int) ([]*types.Message, error) {
	return m.query(ctx, sessionID, "", limit)
}

func (m *MessageStore) RecentBySender(ctx context.Context, sessionID types.SessionID, sender types.Sender, limit int) ([]*types.Message, error) {
	return m.query(ctx, sessionID, sender, limit)
}

func (m *MessageStore) Count(ctx context.Context, sessionID types.SessionID) (int64, error) {
	var n int64
	err := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ?`, string(sessionID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (m *MessageStore) query(ctx context.Context, sessionID types.SessionID, sender types.Sender, limit int) ([]*types.Message, error) {
	q := sq.Select(messageColumns).From("messages").
		Where(sq.Eq{"session_id": string(sessionID)}).
		OrderBy("turn DESC", "sender ASC")
	if sender != "" {
		q = q.Where(sq.Eq{"sender": string(sender)})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build message query: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []*types.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

func scanMessage(row rowScanner) (*types.Message, error) {
	var msg types.Message
	var delay sql.NullFloat64
	var typos, truncated sql.NullInt64
	var at int64

	err := row.Scan(
		&msg.ID, &msg.SessionID, &msg.Turn, &msg.Sender, &msg.Text, &msg.RawText,
		&delay, &typos, &truncated, &msg.Phase, &msg.Confidence, &msg.ExposureRisk, &at,
	)
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}

	if delay.Valid || typos.Valid || truncated.Valid {
		msg.Humanization = &types.Humanization{
			DelaySeconds: delay.Float64,
			TypoCount:    int(typos.Int64),
			Truncated:    truncated.Int64 != 0,
		}
	}
	msg.At = fromUnix(at)
	return &msg, nil
}
