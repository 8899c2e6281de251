package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImportRun is one invocation of the importer
type ImportRun struct {
	ID         string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Imported   int
	Conflicted int
}

// BeginRun records the start of an import and assigns its id
func (s *Store) BeginRun(ctx context.Context, source string) (*ImportRun, error) {
	run := &ImportRun{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO import_run (id, source, started_at) VALUES (?, ?, ?)",
		run.ID, run.Source, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record import run: %w", err)
	}
	return run, nil
}

// FinishRun stores the final counters of run
func (s *Store) FinishRun(ctx context.Context, run *ImportRun) error {
	run.FinishedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE import_run
		SET finished_at = ?, prints_total = ?, prints_imported = ?, prints_conflicted = ?
		WHERE id = ?
	`, run.FinishedAt, run.Total, run.Imported, run.Conflicted, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish import run: %w", err)
	}
	return nil
}

// GetRun retrieves an import run by id, or nil if there is none
func (s *Store) GetRun(ctx context.Context, id string) (*ImportRun, error) {
	var (
		run      ImportRun
		finished sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, started_at, finished_at, prints_total, prints_imported, prints_conflicted
		FROM import_run WHERE id = ?
	`, id).Scan(&run.ID, &run.Source, &run.StartedAt, &finished, &run.Total, &run.Imported, &run.Conflicted)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import run: %w", err)
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return &run, nil
}

// LatestRun returns the most recently started import run, or nil if there is none
func (s *Store) LatestRun(ctx context.Context) (*ImportRun, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM import_run ORDER BY started_at DESC, rowid DESC LIMIT 1",
	).Scan(&id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest import run: %w", err)
	}
	return s.GetRun(ctx, id)
}
