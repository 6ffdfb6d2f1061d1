package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"whisperscribe/internal/transcript"
)

// Run statuses recorded in the index.
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    audio_path TEXT NOT NULL,
    audio_hash TEXT NOT NULL,
    model TEXT NOT NULL,
    language TEXT NOT NULL,
    speakers_detected INTEGER NOT NULL,
    segment_count INTEGER NOT NULL,
    status TEXT NOT NULL,
    error TEXT,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_hash ON runs (audio_hash);
`

// Store is the sqlite-backed run index. It lets batch re-runs skip files
// whose content was already transcribed successfully.
type Store struct {
	db *sql.DB
}

// OpenStore initializes or connects to the run index database.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run index: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(storeSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create run index schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// HasSucceeded reports whether a successful run is recorded for the given
// content hash and model.
func (s *Store) HasSucceeded(ctx context.Context, audioHash, model string) (bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM runs WHERE audio_hash = ? AND model = ? AND status = ? LIMIT 1",
		audioHash, model, RunStatusSuccess,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query run index: %w", err)
	}
	return true, nil
}

// RecordSuccess stores a successful run for the file.
func (s *Store) RecordSuccess(ctx context.Context, audioPath, audioHash string, result *transcript.TranscriptionResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
            id, audio_path, audio_hash, model, language,
            speakers_detected, segment_count, status, error, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
		uuid.NewString(),
		audioPath,
		audioHash,
		result.Metadata.Model,
		result.Metadata.Language,
		result.Metadata.SpeakersDetected,
		len(result.Segments),
		RunStatusSuccess,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RecordFailure stores a failed run with its error message.
func (s *Store) RecordFailure(ctx context.Context, audioPath, audioHash, model, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
            id, audio_path, audio_hash, model, language,
            speakers_detected, segment_count, status, error, created_at
        ) VALUES (?, ?, ?, ?, '', 0, 0, ?, ?, ?)`,
		uuid.NewString(),
		audioPath,
		audioHash,
		model,
		RunStatusFailed,
		reason,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record failed run: %w", err)
	}
	return nil
}
