package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/KevinKickass/pointc/internal/compiler"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SaveBuild stores a build result and its task index in one transaction.
// Saving the same build twice replaces the earlier row.
func (p *PostgresClient) SaveBuild(ctx context.Context, res *compiler.Result) error {
	rec, err := newBuildRecord(res)
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	s := rec.Summary
	_, err = tx.Exec(ctx, `
		INSERT INTO builds (id, compiled_at, max_modules, sheet_count, task_count, warning_count, settings, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			compiled_at = EXCLUDED.compiled_at,
			max_modules = EXCLUDED.max_modules,
			sheet_count = EXCLUDED.sheet_count,
			task_count = EXCLUDED.task_count,
			warning_count = EXCLUDED.warning_count,
			settings = EXCLUDED.settings,
			result = EXCLUDED.result
	`, s.ID, s.CompiledAt, s.MaxModules, s.SheetCount, s.TaskCount, s.WarningCount, rec.Settings, rec.Result)
	if err != nil {
		return fmt.Errorf("failed to save build: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM build_tasks WHERE build_id = $1`, s.ID); err != nil {
		return fmt.Errorf("failed to clear build tasks: %w", err)
	}

	batch := &pgx.Batch{}
	for _, t := range rec.Tasks {
		batch.Queue(`
			INSERT INTO build_tasks (build_id, name, kind, sheet, module, timing_ms)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, s.ID, t.Name, t.Kind, t.Sheet, t.Module, t.TimingMs)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save build tasks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListBuilds returns the most recent builds first.
func (p *PostgresClient) ListBuilds(ctx context.Context, limit int) ([]BuildSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, compiled_at, max_modules, sheet_count, task_count, warning_count, created_at
		FROM builds
		ORDER BY compiled_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query builds: %w", err)
	}
	defer rows.Close()

	builds := make([]BuildSummary, 0)
	for rows.Next() {
		var b BuildSummary
		if err := rows.Scan(&b.ID, &b.CompiledAt, &b.MaxModules, &b.SheetCount, &b.TaskCount, &b.WarningCount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		builds = append(builds, b)
	}

	return builds, rows.Err()
}

// LoadBuild returns the stored result of a build or ErrNotFound.
func (p *PostgresClient) LoadBuild(ctx context.Context, id uuid.UUID) (*compiler.Result, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT result FROM builds WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load build: %w", err)
	}

	return decodeResult(data)
}
