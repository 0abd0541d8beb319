// Package blobstore persists finished interview recordings keyed by session id.
package blobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/GriffinCanCode/interview-coach/internal/capture"
	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
)

// Store saves one recording per session.
type Store interface {
	Save(ctx context.Context, sessionID string, rec *capture.Recording) error
	// Get returns nil, nil when no recording exists for sessionID.
	Get(ctx context.Context, sessionID string) (*capture.Recording, error)
	Delete(ctx context.Context, sessionID string) error
}

// Entry describes a stored recording without its data.
type Entry struct {
	SessionID string        `json:"session_id"`
	MIMEType  string        `json:"mime_type"`
	Duration  time.Duration `json:"duration"`
	Size      int           `json:"size"`
	CreatedAt time.Time     `json:"created_at"`
}

// SQLiteStore keeps recordings in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens the database at path and creates the schema if needed.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Storage, "open recordings database")
	}
	// One writer at a time avoids SQLITE_BUSY on concurrent saves.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, apperrors.Wrap(err, apperrors.Storage, "create recordings table")
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS recordings (
		session_id TEXT PRIMARY KEY,
		mime_type TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		chunks INTEGER NOT NULL DEFAULT 0,
		data BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Save stores rec under sessionID, replacing any earlier recording.
func (s *SQLiteStore) Save(ctx context.Context, sessionID string, rec *capture.Recording) error {
	if sessionID == "" {
		return apperrors.New(apperrors.InvalidArgument, "session id is required")
	}
	if rec == nil {
		return apperrors.New(apperrors.InvalidArgument, "recording is required")
	}
	data := rec.Data
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings (session_id, mime_type, duration_ms, chunks, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			mime_type = excluded.mime_type,
			duration_ms = excluded.duration_ms,
			chunks = excluded.chunks,
			data = excluded.data,
			created_at = excluded.created_at`,
		sessionID, rec.MIMEType, rec.Duration.Milliseconds(), rec.Chunks, data, time.Now().UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.Storage, "save recording").WithMetadata("session_id", sessionID)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*capture.Recording, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT mime_type, duration_ms, chunks, data FROM recordings WHERE session_id = ?`,
		sessionID,
	)
	var (
		rec capture.Recording
		ms  int64
	)
	err := row.Scan(&rec.MIMEType, &ms, &rec.Chunks, &rec.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Storage, "load recording").WithMetadata("session_id", sessionID)
	}
	rec.Duration = time.Duration(ms) * time.Millisecond
	return &rec, nil
}

// Delete implements Store. Deleting a missing recording is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM recordings WHERE session_id = ?`, sessionID); err != nil {
		return apperrors.Wrap(err, apperrors.Storage, "delete recording").WithMetadata("session_id", sessionID)
	}
	return nil
}

// List returns stored recordings, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, mime_type, duration_ms, length(data), created_at
		 FROM recordings ORDER BY created_at DESC`)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Storage, "list recordings")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			ms int64
		)
		if err := rows.Scan(&e.SessionID, &e.MIMEType, &ms, &e.Size, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
