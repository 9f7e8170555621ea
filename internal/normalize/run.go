package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"spikenorm/internal/coverage"
	"spikenorm/internal/history"
	"spikenorm/internal/logging"
	"spikenorm/internal/scaling"
	"spikenorm/internal/services"
	"spikenorm/internal/spikein"
)

// Report summarizes a batch.
type Report struct {
	RunID       string
	Counts      spikein.Counts
	Factors     []float64
	TotalCPUs   int
	CPUsPerTask int
	Results     []coverage.Result
	// Planned holds the command lines a dry run would have executed.
	Planned    []string
	FactorPath string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// commandRenderer is implemented by converters that can describe an
// invocation without running it.
type commandRenderer interface {
	CommandLine(input string, scaleFactor float64, cpus int, output string) string
}

// Run executes the batch described by opts.
func Run(ctx context.Context, opts Options) (Report, error) {
	report := Report{
		RunID:      opts.RunID,
		FactorPath: opts.FactorPath,
		DryRun:     opts.DryRun,
		StartedAt:  time.Now(),
	}
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "normalize"))

	if err := opts.validate(); err != nil {
		return report, err
	}

	lock := flock.New(opts.FactorPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return report, services.Wrap(services.ErrOutput, "normalize", "lock", opts.FactorPath, err)
	}
	if !locked {
		return report, services.Wrap(services.ErrLocked, "normalize", "lock",
			fmt.Sprintf("another run is writing %s", opts.FactorPath), nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release factor lock", logging.Error(err))
		}
	}()

	err = execute(ctx, opts, &report, logger)
	report.FinishedAt = time.Now()
	record(ctx, opts, report, err, logger)
	return report, err
}

func execute(ctx context.Context, opts Options, report *Report, logger *slog.Logger) error {
	source := opts.Counts
	if source == nil {
		source = spikein.None{}
	}
	counts, err := source.Load()
	if err != nil {
		return err
	}
	report.Counts = counts
	switch {
	case counts.Present():
		logger.Info("spike-in counts loaded, scaling tracks",
			logging.String("counts", counts.Path),
			logging.Int("samples", counts.Len()),
		)
	case counts.Missing:
		logger.Warn("spike-in counts file not found, tracks left unscaled",
			logging.String("counts", counts.Path),
			logging.String(logging.FieldErrorHint, "check the --counts path"),
		)
	default:
		logger.Info("no spike-in counts, tracks left unscaled")
	}

	factors, err := scaling.Factors(counts, len(opts.Samples))
	if err != nil {
		return err
	}
	report.Factors = factors
	logger.Info("scaling factors computed", logging.String("factors", formatFactors(factors)))

	report.TotalCPUs = scaling.ResolveCPUs(opts.TotalCPUs)
	report.CPUsPerTask = scaling.CPUBudget(report.TotalCPUs, len(opts.Samples))
	logger.Info("cpu budget",
		logging.Int("total_cpus", report.TotalCPUs),
		logging.Int("cpus_per_task", report.CPUsPerTask),
	)

	tasks := make([]coverage.Task, len(opts.Samples))
	for i, sample := range opts.Samples {
		tasks[i] = coverage.Task{
			Index:       i,
			Input:       sample.Input,
			Output:      sample.Output,
			ScaleFactor: factors[i],
			CPUs:        report.CPUsPerTask,
		}
	}

	if opts.DryRun {
		report.Planned = plan(opts.Converter, tasks)
		for _, line := range report.Planned {
			logger.Info("planned conversion", logging.String("command", line))
		}
	} else {
		dispatcher := coverage.NewDispatcher(opts.Converter, report.TotalCPUs, opts.Logger)
		results, err := dispatcher.Dispatch(services.WithStage(ctx, "convert"), tasks)
		report.Results = results
		if err != nil {
			// Leave any previous factor file untouched.
			return err
		}
	}

	if err := scaling.WriteFactors(opts.FactorPath, factors); err != nil {
		return err
	}
	logger.Info("scaling factors written", logging.String("path", opts.FactorPath))
	return nil
}

func plan(converter coverage.Converter, tasks []coverage.Task) []string {
	renderer, ok := converter.(commandRenderer)
	lines := make([]string, len(tasks))
	for i, task := range tasks {
		if ok {
			lines[i] = renderer.CommandLine(task.Input, task.ScaleFactor, task.CPUs, task.Output)
			continue
		}
		lines[i] = fmt.Sprintf("%s -> %s (scale %s, %d cpus)", task.Input, task.Output, scaling.Format(task.ScaleFactor), task.CPUs)
	}
	return lines
}

func record(ctx context.Context, opts Options, report Report, runErr error, logger *slog.Logger) {
	if opts.Ledger == nil {
		return
	}
	run := history.Run{
		ID:          report.RunID,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		Status:      history.StatusSucceeded,
		Category:    services.Category(runErr),
		CountsPath:  report.Counts.Path,
		FactorPath:  opts.FactorPath,
		TotalCPUs:   report.TotalCPUs,
		CPUsPerTask: report.CPUsPerTask,
		DryRun:      opts.DryRun,
	}
	switch {
	case runErr != nil:
		run.Status = history.StatusFailed
		run.Error = runErr.Error()
	case opts.DryRun:
		run.Status = history.StatusDryRun
	}
	for i, sample := range opts.Samples {
		entry := history.Sample{Index: i, Input: sample.Input, Output: sample.Output, Status: string(coverage.StatusPending)}
		if i < len(report.Factors) {
			entry.Factor = report.Factors[i]
		}
		if i < report.Counts.Len() {
			entry.Count = report.Counts.Values[i]
			entry.HasCount = true
		}
		if i < len(report.Results) {
			entry.Status = string(report.Results[i].Status)
			entry.Duration = report.Results[i].Duration
		}
		run.Samples = append(run.Samples, entry)
	}
	// The ledger is advisory; a failure to record never fails the run.
	if err := opts.Ledger.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("failed to record run history", logging.Error(err))
	}
}

func formatFactors(factors []float64) string {
	out := make([]byte, 0, len(factors)*8)
	for i, f := range factors {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, scaling.Format(f)...)
	}
	return string(out)
}
