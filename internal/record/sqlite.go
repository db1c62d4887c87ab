package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/voicepulse/voicepulse-api/internal/emotion"

	_ "modernc.org/sqlite"
)

// Compile-time check that SQLiteRepository implements Repository.
var _ Repository = (*SQLiteRepository)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_records (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	status TEXT NOT NULL,
	duration REAL NOT NULL,
	primary_emotion TEXT NOT NULL,
	report_path TEXT NOT NULL,
	report_url TEXT NOT NULL,
	error TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	completed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_records_created_at ON analysis_records(created_at);
`

// SQLiteRepository is a durable implementation of Repository backed by an
// embedded SQLite database. The schema is created on open.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at path and ensures
// the schema exists. The parent directory is created if needed.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Save inserts a new record. A primary-key collision maps to
// ErrAlreadyExists.
func (r *SQLiteRepository) Save(ctx context.Context, rec *Record) error {
	const query = `INSERT INTO analysis_records
		(id, filename, status, duration, primary_emotion, report_path, report_url, error, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Filename, string(rec.Status), rec.Duration,
		string(rec.PrimaryEmotion), rec.ReportPath, rec.ReportURL, rec.Error,
		rec.CreatedAt.UnixNano(), rec.CompletedAt.UnixNano())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// FindByID retrieves a record by its ID.
func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*Record, error) {
	const query = `SELECT id, filename, status, duration, primary_emotion, report_path, report_url, error, created_at, completed_at
		FROM analysis_records WHERE id = ?`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}
	return rec, nil
}

// List returns all records newest first, ties broken by ID.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Record, error) {
	const query = `SELECT id, filename, status, duration, primary_emotion, report_path, report_url, error, created_at, completed_at
		FROM analysis_records ORDER BY created_at DESC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	result := make([]*Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return result, nil
}

// Delete removes a record.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analysis_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec                    Record
		status, primaryEmotion string
		createdAt, completedAt int64
	)
	err := row.Scan(&rec.ID, &rec.Filename, &status, &rec.Duration,
		&primaryEmotion, &rec.ReportPath, &rec.ReportURL, &rec.Error,
		&createdAt, &completedAt)
	if err != nil {
		return nil, err
	}

	rec.Status = Status(status)
	rec.PrimaryEmotion = emotion.Label(primaryEmotion)
	rec.CreatedAt = time.Unix(0, createdAt)
	rec.CompletedAt = time.Unix(0, completedAt)
	return &rec, nil
}
