package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/musicvault/internal/models"
	"github.com/desertthunder/musicvault/internal/shared"
)

// SyncRunRepository persists [models.SyncRun] history.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Record inserts a run with a generated ID.
func (r *SyncRunRepository) Record(ctx context.Context, run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	run.ID = shared.GenerateID()

	query := `
		INSERT INTO sync_runs (
			id, folder, updated_count, failed_count, skipped_count, started_at, finished_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.Folder,
		run.Updated,
		run.Failed,
		run.Skipped,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (r *SyncRunRepository) Get(ctx context.Context, id string) (*models.SyncRun, error) {
	query := `
		SELECT id, folder, updated_count, failed_count, skipped_count, started_at, finished_at
		FROM sync_runs
		WHERE id = ?
	`
	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sync run %s", shared.ErrNotFound, id)
	}
	return run, err
}

// ListRecent returns up to limit runs, newest first.
func (r *SyncRunRepository) ListRecent(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, folder, updated_count, failed_count, skipped_count, started_at, finished_at
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (r *SyncRunRepository) Prune(ctx context.Context, keep int) (int64, error) {
	var removed int64
	err := withTx(r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			DELETE FROM sync_runs
			WHERE id NOT IN (SELECT id FROM sync_runs ORDER BY started_at DESC LIMIT ?)
		`, keep)
		if err != nil {
			return fmt.Errorf("failed to prune sync runs: %w", err)
		}
		removed, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		return nil
	})
	return removed, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.SyncRun, error) {
	var run models.SyncRun
	err := s.Scan(
		&run.ID,
		&run.Folder,
		&run.Updated,
		&run.Failed,
		&run.Skipped,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}
	return &run, nil
}
