package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/autoblock/internal/logger"
	"github.com/julianstephens/autoblock/internal/migration"
	"github.com/julianstephens/autoblock/internal/models"
	"github.com/julianstephens/autoblock/migrations"
)

// SQLiteHistoryStore keeps run records in a local SQLite database.
type SQLiteHistoryStore struct {
	path string
	db   *sql.DB
	log  *log.Logger
}

func NewSQLiteHistoryStore(path string, l *log.Logger) *SQLiteHistoryStore {
	return &SQLiteHistoryStore{
		path: path,
		log:  logger.OrDiscard(l),
	}
}

// Open creates the database if needed and applies pending migrations.
func (s *SQLiteHistoryStore) Open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	s.db = db

	if err := s.runMigrations(ctx); err != nil {
		_ = s.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteHistoryStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteHistoryStore) migrator() (*migration.Runner, error) {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS, s.log), nil
}

func (s *SQLiteHistoryStore) runMigrations(ctx context.Context) error {
	runner, err := s.migrator()
	if err != nil {
		return err
	}
	_, err = runner.ApplyMigrations(ctx)
	return err
}

// SchemaVersion reports the applied and the latest known schema versions.
func (s *SQLiteHistoryStore) SchemaVersion() (current, latest int, err error) {
	if s.db == nil {
		return 0, 0, fmt.Errorf("history store not opened")
	}
	runner, err := s.migrator()
	if err != nil {
		return 0, 0, err
	}
	if current, err = runner.GetCurrentVersion(); err != nil {
		return 0, 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	if latest, err = runner.GetLatestVersion(); err != nil {
		return 0, 0, fmt.Errorf("failed to get latest schema version: %w", err)
	}
	return current, latest, nil
}

// Append stores rec, assigning an ID when it has none.
func (s *SQLiteHistoryStore) Append(ctx context.Context, rec models.RunRecord) (models.RunRecord, error) {
	if s.db == nil {
		return rec, fmt.Errorf("history store not opened")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	var windowIndex sql.NullInt64
	if rec.WindowIndex != nil {
		windowIndex = sql.NullInt64{Int64: int64(*rec.WindowIndex), Valid: true}
	}
	var blockEnd sql.NullString
	if rec.BlockEnd != nil {
		blockEnd = sql.NullString{String: *rec.BlockEnd, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, mode, started_at, finished_at, outcome, window_index, block_end, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Mode, rec.StartedAt, rec.FinishedAt, string(rec.Outcome), windowIndex, blockEnd, rec.Error)
	if err != nil {
		return rec, fmt.Errorf("failed to record run: %w", err)
	}
	return rec, nil
}

// List returns the most recent records first. A limit <= 0 returns all.
func (s *SQLiteHistoryStore) List(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("history store not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, started_at, finished_at, outcome, window_index, block_end, error
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []models.RunRecord
	for rows.Next() {
		var rec models.RunRecord
		var outcome string
		var windowIndex sql.NullInt64
		var blockEnd sql.NullString

		if err := rows.Scan(&rec.ID, &rec.Mode, &rec.StartedAt, &rec.FinishedAt, &outcome, &windowIndex, &blockEnd, &rec.Error); err != nil {
			return nil, err
		}
		rec.Outcome = models.RunOutcome(outcome)
		if windowIndex.Valid {
			idx := int(windowIndex.Int64)
			rec.WindowIndex = &idx
		}
		if blockEnd.Valid {
			rec.BlockEnd = &blockEnd.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteHistoryStore) Path() string {
	return s.path
}
