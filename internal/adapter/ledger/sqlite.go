package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

// Ledger is the append-only record of transcript fetch attempts.
type Ledger struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite ledger at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("ledger: mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: init schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS attempts (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id       TEXT NOT NULL DEFAULT '',
		video_id     TEXT NOT NULL,
		provider     TEXT NOT NULL DEFAULT '',
		language     TEXT NOT NULL DEFAULT '',
		outcome      TEXT NOT NULL,
		reason       TEXT NOT NULL DEFAULT '',
		attempted_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_video ON attempts(video_id, id);`)
	return err
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) Record(ctx context.Context, a domain.Attempt) error {
	at := a.Attempted
	if at.IsZero() {
		at = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO attempts (run_id, video_id, provider, language, outcome, reason, attempted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.VideoID, a.Provider, a.Language, string(a.Outcome), a.Reason, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("ledger: record %s: %w", a.VideoID, err)
	}
	return nil
}

// Exhausted returns videos whose most recent terminal outcome is exhaustion.
// A later success clears the failure.
func (l *Ledger) Exhausted(ctx context.Context) (map[string]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT a.video_id, a.reason FROM attempts a
		WHERE a.id = (
			SELECT MAX(b.id) FROM attempts b
			WHERE b.video_id = a.video_id AND b.outcome IN ('ok', 'exhausted')
		) AND a.outcome = 'exhausted'`)
	if err != nil {
		return nil, fmt.Errorf("ledger: query exhausted: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, reason string
		if err := rows.Scan(&id, &reason); err != nil {
			return nil, err
		}
		out[id] = reason
	}
	return out, rows.Err()
}

// LastOutcome returns the most recent outcome recorded for a video, and
// false when it has never been attempted.
func (l *Ledger) LastOutcome(ctx context.Context, videoID string) (domain.AttemptOutcome, bool, error) {
	var outcome string
	err := l.db.QueryRowContext(ctx,
		`SELECT outcome FROM attempts WHERE video_id = ? ORDER BY id DESC LIMIT 1`, videoID).Scan(&outcome)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ledger: last outcome %s: %w", videoID, err)
	}
	return domain.AttemptOutcome(outcome), true, nil
}

// History returns every attempt for a video, oldest first.
func (l *Ledger) History(ctx context.Context, videoID string) ([]domain.Attempt, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, video_id, provider, language, outcome, reason, attempted_at
		FROM attempts WHERE video_id = ? ORDER BY id`, videoID)
	if err != nil {
		return nil, fmt.Errorf("ledger: query history: %w", err)
	}
	defer rows.Close()

	var out []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		var outcome, at string
		if err := rows.Scan(&a.RunID, &a.VideoID, &a.Provider, &a.Language, &outcome, &a.Reason, &at); err != nil {
			return nil, err
		}
		a.Outcome = domain.AttemptOutcome(outcome)
		a.Attempted, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, a)
	}
	return out, rows.Err()
}

// RunCounts summarizes terminal outcomes recorded under a run ID.
func (l *Ledger) RunCounts(ctx context.Context, runID string) (map[domain.AttemptOutcome]int, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT outcome, COUNT(DISTINCT video_id) FROM attempts
		WHERE run_id = ? AND outcome IN ('ok', 'exhausted')
		GROUP BY outcome`, runID)
	if err != nil {
		return nil, fmt.Errorf("ledger: query run: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.AttemptOutcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		out[domain.AttemptOutcome(outcome)] = n
	}
	return out, rows.Err()
}
