package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/roadmap/internal/calendar"
	"github.com/rpggio/roadmap/internal/domain/run"
	"github.com/rpggio/roadmap/internal/repository"
)

// RunRepository implements run.Repository for SQLite
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new RunRepository
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `
	id, tenant_id, kind, status, reference_date, started_at, finished_at,
	projects, updates, active_count, over_capacity, error`

// Create inserts a new run
func (r *RunRepository) Create(ctx context.Context, rn *run.Run) error {
	if rn == nil || rn.ID == "" {
		return repository.ErrInvalidInput
	}
	query := `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		rn.ID,
		rn.TenantID,
		rn.Kind,
		rn.Status,
		rn.ReferenceDate.String(),
		rn.StartedAt,
		nullTime(rn.FinishedAt),
		rn.Projects,
		rn.Updates,
		rn.ActiveCount,
		rn.OverCapacity,
		rn.Error,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(ctx context.Context, id string) (*run.Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	rn, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return rn, nil
}

// Update overwrites the mutable fields of a run
func (r *RunRepository) Update(ctx context.Context, rn *run.Run) error {
	query := `
		UPDATE runs
		SET tenant_id = ?, status = ?, finished_at = ?, projects = ?, updates = ?,
		    active_count = ?, over_capacity = ?, error = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		rn.TenantID,
		rn.Status,
		nullTime(rn.FinishedAt),
		rn.Projects,
		rn.Updates,
		rn.ActiveCount,
		rn.OverCapacity,
		rn.Error,
		rn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List returns runs newest first
func (r *RunRepository) List(ctx context.Context, opts run.ListOptions) ([]run.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var (
		conditions []string
		args       []interface{}
	)
	if opts.TenantID != "" {
		conditions = append(conditions, "tenant_id = ?")
		args = append(args, opts.TenantID)
	}
	if opts.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, opts.Kind)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY started_at DESC, rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []run.Run
	for rows.Next() {
		rn, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *rn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*run.Run, error) {
	var (
		rn       run.Run
		refDate  string
		finished sql.NullTime
	)
	if err := s.Scan(
		&rn.ID,
		&rn.TenantID,
		&rn.Kind,
		&rn.Status,
		&refDate,
		&rn.StartedAt,
		&finished,
		&rn.Projects,
		&rn.Updates,
		&rn.ActiveCount,
		&rn.OverCapacity,
		&rn.Error,
	); err != nil {
		return nil, err
	}
	ref, err := calendar.Parse(refDate)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", rn.ID, err)
	}
	rn.ReferenceDate = ref
	if finished.Valid {
		t := finished.Time
		rn.FinishedAt = &t
	}
	return &rn, nil
}
