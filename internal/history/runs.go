package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the terminal state of a recorded run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusDryRun    Status = "dry_run"
)

// Run is one normalization attempt.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      Status
	Category    string
	Error       string
	CountsPath  string
	FactorPath  string
	TotalCPUs   int
	CPUsPerTask int
	DryRun      bool
	Samples     []Sample
}

// Sample is the per-sample portion of a run.
type Sample struct {
	Index    int
	Input    string
	Output   string
	Count    float64
	HasCount bool
	Factor   float64
	Status   string
	Duration time.Duration
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Fixed-width so lexical order in SQLite matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record stores run and its samples atomically. Recording the same id twice
// replaces the earlier entry.
func (s *Store) Record(ctx context.Context, run Run) error {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id required")
	}
	return retryOnBusy(ctx, func() error {
		return s.record(ctx, run)
	})
}

func (s *Store) record(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", run.ID); err != nil {
		return fmt.Errorf("replace run: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO runs
        (id, started_at, finished_at, status, category, error_message, counts_path, factor_path, total_cpus, cpus_per_task, dry_run)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		string(run.Status),
		run.Category,
		nullableString(run.Error),
		nullableString(run.CountsPath),
		run.FactorPath,
		run.TotalCPUs,
		run.CPUsPerTask,
		boolToInt(run.DryRun),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_samples
        (run_id, sample_index, input_path, output_path, spike_count, scale_factor, status, duration_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare sample insert: %w", err)
	}
	defer stmt.Close()
	for _, sample := range run.Samples {
		var count sql.NullFloat64
		if sample.HasCount {
			count = sql.NullFloat64{Float64: sample.Count, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID,
			sample.Index,
			sample.Input,
			sample.Output,
			count,
			sample.Factor,
			sample.Status,
			sample.Duration.Milliseconds(),
		); err != nil {
			return fmt.Errorf("insert sample %d: %w", sample.Index+1, err)
		}
	}
	return tx.Commit()
}

// List returns the most recent runs first. A limit <= 0 returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := `SELECT id, started_at, finished_at, status, category, error_message, counts_path, factor_path, total_cpus, cpus_per_task, dry_run
        FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	for i := range runs {
		samples, err := s.samples(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Samples = samples
	}
	return runs, nil
}

// Get returns one run with its samples.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT id, started_at, finished_at, status, category, error_message, counts_path, factor_path, total_cpus, cpus_per_task, dry_run
        FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	run.Samples, err = s.samples(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *Store) samples(ctx context.Context, runID string) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sample_index, input_path, output_path, spike_count, scale_factor, status, duration_ms
        FROM run_samples WHERE run_id = ? ORDER BY sample_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var (
			sample     Sample
			count      sql.NullFloat64
			durationMS int64
		)
		if err := rows.Scan(&sample.Index, &sample.Input, &sample.Output, &count, &sample.Factor, &sample.Status, &durationMS); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		sample.Count = count.Float64
		sample.HasCount = count.Valid
		sample.Duration = time.Duration(durationMS) * time.Millisecond
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run                Run
		started, finished  string
		status             string
		errMsg, countsPath sql.NullString
		dryRun             int
	)
	if err := row.Scan(&run.ID, &started, &finished, &status, &run.Category, &errMsg, &countsPath,
		&run.FactorPath, &run.TotalCPUs, &run.CPUsPerTask, &dryRun); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = Status(status)
	run.Error = errMsg.String
	run.CountsPath = countsPath.String
	run.DryRun = dryRun != 0
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	return run, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
