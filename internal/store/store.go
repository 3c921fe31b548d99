// internal/store/store.go
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Open opens (creating if needed) the SQLite database at path and
// applies the schema. WAL mode keeps readers unblocked while the
// gateway's per-session writers commit turns.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return db, nil
}

func initSchema(db *sql.DB) error {
	query := `
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		session_key TEXT NOT NULL UNIQUE,
		channel TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT '',
		locale TEXT NOT NULL DEFAULT '',
		persona TEXT NOT NULL,
		initial_confidence REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		phase TEXT NOT NULL,
		scam_detected INTEGER NOT NULL DEFAULT 0,
		confidence REAL NOT NULL DEFAULT 0,
		exposure_risk REAL NOT NULL DEFAULT 0,
		tone_confusion REAL NOT NULL DEFAULT 0,
		tone_anxiety REAL NOT NULL DEFAULT 0,
		tone_urgency REAL NOT NULL DEFAULT 0,
		tone_compliance REAL NOT NULL DEFAULT 0,
		tone_cognitive_load REAL NOT NULL DEFAULT 0,
		initiative REAL NOT NULL DEFAULT 0,
		turns_in_phase INTEGER NOT NULL DEFAULT 0,
		stagnant_turns INTEGER NOT NULL DEFAULT 0,
		last_turn INTEGER NOT NULL DEFAULT 0,
		total_messages INTEGER NOT NULL DEFAULT 0,
		intelligence_count INTEGER NOT NULL DEFAULT 0,
		tactic_count INTEGER NOT NULL DEFAULT 0,
		engagement_seconds INTEGER NOT NULL DEFAULT 0,
		callback_sent INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		completed_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status, updated_at);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		turn INTEGER NOT NULL,
		sender TEXT NOT NULL,
		text TEXT NOT NULL,
		raw_text TEXT NOT NULL DEFAULT '',
		delay_seconds REAL,
		typo_count INTEGER,
		truncated INTEGER,
		phase TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0,
		exposure_risk REAL NOT NULL DEFAULT 0,
		at INTEGER NOT NULL,
		UNIQUE(session_id, turn, sender)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, turn);

	CREATE TABLE IF NOT EXISTS evolution (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		message_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		previous_phase TEXT NOT NULL,
		phase TEXT NOT NULL,
		transitioned INTEGER NOT NULL DEFAULT 0,
		turns_in_phase INTEGER NOT NULL DEFAULT 0,
		prev_confidence REAL NOT NULL DEFAULT 0,
		confidence REAL NOT NULL DEFAULT 0,
		confidence_delta REAL NOT NULL DEFAULT 0,
		trend TEXT NOT NULL,
		exposure_risk REAL NOT NULL DEFAULT 0,
		exposure_delta REAL NOT NULL DEFAULT 0,
		tone_confusion REAL NOT NULL DEFAULT 0,
		tone_anxiety REAL NOT NULL DEFAULT 0,
		tone_urgency REAL NOT NULL DEFAULT 0,
		tone_compliance REAL NOT NULL DEFAULT 0,
		tone_cognitive_load REAL NOT NULL DEFAULT 0,
		drift_rate REAL NOT NULL DEFAULT 0,
		initiative REAL NOT NULL DEFAULT 0,
		signals TEXT NOT NULL DEFAULT '[]',
		at INTEGER NOT NULL,
		UNIQUE(session_id, turn)
	);

	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		artifact_type TEXT NOT NULL,
		value TEXT NOT NULL,
		normalized_value TEXT NOT NULL,
		message_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		method TEXT NOT NULL,
		confirmed INTEGER NOT NULL DEFAULT 0,
		confirmation_count INTEGER NOT NULL DEFAULT 1,
		confidence REAL NOT NULL DEFAULT 0,
		context TEXT NOT NULL DEFAULT '',
		detail TEXT,
		first_seen INTEGER NOT NULL,
		last_seen INTEGER NOT NULL,
		UNIQUE(session_id, artifact_type, normalized_value)
	);

	CREATE TABLE IF NOT EXISTS tactic_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		turn INTEGER NOT NULL,
		tactic_type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		message_text TEXT NOT NULL DEFAULT '',
		keywords TEXT NOT NULL DEFAULT '[]',
		threat_level TEXT NOT NULL,
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tactics_session ON tactic_events(session_id, turn);

	CREATE TABLE IF NOT EXISTS evaluations (
		session_id TEXT PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
		payload TEXT NOT NULL,
		calculated_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// unix and fromUnix convert between time.Time and the stored
// second-precision integer timestamps.
func unix(t time.Time) int64 { return t.Unix() }

func fromUnix(v int64) time.Time { return time.Unix(v, 0).UTC() }

func fromNullUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromUnix(v.Int64)
	return &t
}

func toNullUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
