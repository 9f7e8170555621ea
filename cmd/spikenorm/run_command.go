package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"spikenorm/internal/config"
	"spikenorm/internal/coverage"
	"spikenorm/internal/history"
	"spikenorm/internal/logging"
	"spikenorm/internal/normalize"
	"spikenorm/internal/preflight"
	"spikenorm/internal/scaling"
	"spikenorm/internal/services"
	"spikenorm/internal/spikein"
)

type runFlags struct {
	bams      []string
	bigwigs   []string
	counts    string
	norm      string
	threads   int
	binSize   int
	format    string
	dryRun    bool
	showTable bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Convert BAM files to spike-in normalized coverage tracks",
		Long: `Convert each BAM file to a coverage track with bamCoverage, scaling every
sample by min(counts)/count when a spike-in counts table is given, and write
the applied factors to the --norm file, one per line in input order.`,
		Example: `  spikenorm run --bams a.bam,b.bam --bigwigs a.bw,b.bw --counts spikein.csv --norm factors.txt`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			return runNormalize(cmd.Context(), cmd, cfg, logger, flags)
		},
	}

	cmd.Flags().StringSliceVar(&flags.bams, "bams", nil, "Input BAM files (repeat or comma-separate)")
	cmd.Flags().StringSliceVar(&flags.bigwigs, "bigwigs", nil, "Output track paths, one per BAM in the same order")
	cmd.Flags().StringVar(&flags.counts, "counts", "", "Headerless spike-in counts table, first column one count per BAM")
	cmd.Flags().StringVar(&flags.norm, "norm", "", "File receiving the scaling factors")
	cmd.Flags().IntVarP(&flags.threads, "threads", "t", 0, "Total CPUs shared by the batch (default: conversion.threads or all available)")
	cmd.Flags().IntVar(&flags.binSize, "bin-size", 0, "bamCoverage bin size (default: conversion.bin_size)")
	cmd.Flags().StringVar(&flags.format, "format", "", "Output format, bigwig or bedgraph (default: conversion.output_format)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Compute and write factors, print the bamCoverage commands without running them")
	cmd.Flags().BoolVar(&flags.showTable, "table", false, "Print a per-sample summary table even when stdout is not a terminal")
	return cmd
}

func runNormalize(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, flags runFlags) error {
	var missing []string
	if len(flags.bams) == 0 {
		missing = append(missing, "--bams")
	}
	if len(flags.bigwigs) == 0 {
		missing = append(missing, "--bigwigs")
	}
	if strings.TrimSpace(flags.norm) == "" {
		missing = append(missing, "--norm")
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrConfiguration, "cli", "run", "missing required flags "+strings.Join(missing, ", "), nil)
	}
	if flags.threads < 0 || flags.binSize < 0 {
		return services.Wrap(services.ErrConfiguration, "cli", "run", "--threads and --bin-size must not be negative", nil)
	}

	samples, err := normalize.PairSamples(flags.bams, flags.bigwigs)
	if err != nil {
		return err
	}

	checkOutputs := flags.bigwigs
	if flags.dryRun {
		checkOutputs = nil
	}
	if failed := preflight.Failed(preflight.CheckBatch(flags.bams, checkOutputs, flags.norm)); len(failed) > 0 {
		details := make([]string, 0, len(failed))
		for _, result := range failed {
			details = append(details, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
		return services.Wrap(services.ErrConfiguration, "cli", "preflight", strings.Join(details, "; "), nil)
	}

	binSize := cfg.Conversion.BinSize
	if flags.binSize > 0 {
		binSize = flags.binSize
	}
	format := cfg.Conversion.OutputFormat
	if flags.format != "" {
		format = flags.format
	}
	converter, err := coverage.NewBamCoverage(cfg.Conversion.Binary,
		coverage.WithBinSize(binSize),
		coverage.WithFormat(format),
		coverage.WithExtraArgs(cfg.Conversion.ExtraArgs...),
		coverage.WithTimeout(time.Duration(cfg.Conversion.TimeoutMinutes)*time.Minute),
		coverage.WithLogger(logging.NewComponentLogger(logger, "bamcoverage")),
	)
	if err != nil {
		return err
	}

	threads := cfg.Conversion.Threads
	if flags.threads > 0 {
		threads = flags.threads
	}

	opts := normalize.Options{
		Samples: samples,
		Counts: spikein.FileSource{
			Path:      flags.counts,
			Delimiter: cfg.CountsDelimiter(),
			Column:    cfg.Counts.Column,
		},
		FactorPath: flags.norm,
		TotalCPUs:  scaling.ResolveCPUs(threads),
		Converter:  converter,
		DryRun:     flags.dryRun,
		Logger:     logger,
	}
	if cfg.History.Enabled {
		store, err := history.Open(ctx, cfg.HistoryPath())
		if err != nil {
			logger.Warn("run history unavailable", logging.Error(err),
				logging.String(logging.FieldErrorHint, "set history.enabled = false to silence"))
		} else {
			defer store.Close()
			opts.Ledger = store
		}
	}

	report, runErr := normalize.Run(ctx, opts)

	out := cmd.OutOrStdout()
	if flags.showTable || isTerminal(out) {
		if len(report.Factors) > 0 {
			fmt.Fprintln(out, renderRunTable(samples, report))
		}
	}
	if runErr != nil {
		return runErr
	}
	if report.DryRun {
		writeLines(out, report.Planned)
	}
	fmt.Fprintf(out, "Wrote %d scaling factors to %s\n", len(report.Factors), report.FactorPath)
	return nil
}

func renderRunTable(samples []normalize.Sample, report normalize.Report) string {
	rows := make([][]string, 0, len(samples))
	for i, sample := range samples {
		count := "-"
		if i < report.Counts.Len() {
			count = formatCount(report.Counts.Values[i], true)
		}
		factor := "-"
		if i < len(report.Factors) {
			factor = scaling.Format(report.Factors[i])
		}
		status, elapsed := "planned", "-"
		if i < len(report.Results) {
			status = string(report.Results[i].Status)
			elapsed = formatElapsed(report.Results[i].Duration)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			sample.Input,
			sample.Output,
			count,
			factor,
			status,
			elapsed,
		})
	}
	return renderTable(
		[]string{"#", "Input", "Output", "Spike-in", "Factor", "Status", "Elapsed"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight},
	)
}

func writeLines(w io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
