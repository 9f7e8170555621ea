package coverage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"spikenorm/internal/logging"
	"spikenorm/internal/services"
)

// Task is one conversion in a batch. Index is zero-based.
type Task struct {
	Index       int
	Input       string
	Output      string
	ScaleFactor float64
	CPUs        int
}

// Status describes how far a task got.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusSkipped   Status = "skipped"
)

// Result records the outcome of one task.
type Result struct {
	Task     Task
	Status   Status
	Duration time.Duration
	Err      error
}

// Dispatcher runs conversion tasks with bounded parallelism.
type Dispatcher struct {
	converter Converter
	limit     int
	logger    *slog.Logger
}

// NewDispatcher builds a dispatcher. limit caps the number of conversions in
// flight; values below 1 mean one per task.
func NewDispatcher(converter Converter, limit int, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		converter: converter,
		limit:     limit,
		logger:    logging.NewComponentLogger(logger, "dispatcher"),
	}
}

// Dispatch converts every task and returns per-task results in task order.
// The first failure cancels the batch: tasks not yet started are skipped and
// running conversions are interrupted through their context. The returned
// error identifies the first failing sample.
func (d *Dispatcher) Dispatch(ctx context.Context, tasks []Task) ([]Result, error) {
	if d.converter == nil {
		return nil, services.Wrap(services.ErrConfiguration, "coverage", "dispatch", "converter required", nil)
	}
	results := make([]Result, len(tasks))
	for i, task := range tasks {
		results[i] = Result{Task: task, Status: StatusPending}
	}
	if len(tasks) == 0 {
		return results, nil
	}

	limit := d.limit
	if limit < 1 || limit > len(tasks) {
		limit = len(tasks)
	}
	d.logger.Info("dispatching conversions",
		logging.Int("tasks", len(tasks)),
		logging.Int("parallel", limit),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range tasks {
		g.Go(func() error {
			results[i] = d.runTask(gctx, tasks[i])
			return results[i].Err
		})
	}
	err := g.Wait()

	for i := range results {
		if results[i].Status == StatusPending {
			results[i].Status = StatusSkipped
		}
	}
	if err == nil && ctx.Err() != nil {
		err = services.Wrap(services.ErrExternalTool, "coverage", "dispatch", "conversion interrupted", context.Cause(ctx))
	}
	return results, err
}

// Failed returns the results that ended in failure.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Status == StatusFailed {
			failed = append(failed, r)
		}
	}
	return failed
}

func (d *Dispatcher) runTask(ctx context.Context, task Task) Result {
	result := Result{Task: task}
	if ctx.Err() != nil {
		// Batch already failed or was cancelled; never start.
		result.Status = StatusSkipped
		return result
	}

	taskCtx := services.WithSample(ctx, task.Index+1)
	logger := logging.WithContext(taskCtx, d.logger)
	logger.Info("converting",
		logging.String("input", task.Input),
		logging.String("output", task.Output),
		logging.Float64("scale_factor", task.ScaleFactor),
		logging.Int("cpus", task.CPUs),
	)

	start := time.Now()
	err := d.converter.Convert(taskCtx, task.Input, task.ScaleFactor, task.CPUs, task.Output)
	result.Duration = time.Since(start)
	if err == nil {
		result.Status = StatusSucceeded
		logger.Info("conversion finished", logging.Duration("elapsed", result.Duration))
		return result
	}

	if ctx.Err() != nil {
		// Interrupted because a sibling failed or the run was cancelled.
		result.Status = StatusCancelled
		logger.Debug("conversion interrupted", logging.Error(err))
		return result
	}

	result.Status = StatusFailed
	result.Err = taskError(task, err)
	logging.Failure(logger, "conversion failed", "conversion_failed",
		"inspect the bamCoverage output above and the input alignment",
		logging.String("input", task.Input),
		logging.String("output", task.Output),
		logging.Error(err),
	)
	return result
}

func taskError(task Task, err error) error {
	detail := fmt.Sprintf("sample %d (%s -> %s)", task.Index+1, task.Input, task.Output)
	if errors.Is(err, services.ErrExternalTool) {
		return fmt.Errorf("%s: %w", detail, err)
	}
	return services.Wrap(services.ErrExternalTool, "coverage", "convert", detail, err)
}
