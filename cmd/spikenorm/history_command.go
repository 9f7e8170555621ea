package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spikenorm/internal/history"
	"spikenorm/internal/scaling"
	"spikenorm/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded normalization runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return services.Wrap(services.ErrConfiguration, "cli", "history", "run history is disabled (history.enabled = false)", nil)
			}
			store, err := history.Open(cmd.Context(), cfg.HistoryPath())
			if err != nil {
				return services.Wrap(services.ErrOutput, "cli", "history", cfg.HistoryPath(), err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if id := strings.TrimSpace(runID); id != "" {
				run, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderRunDetail(run))
				return nil
			}

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintf(out, "No runs recorded in %s\n", store.Path())
				return nil
			}
			fmt.Fprintln(out, renderRunList(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Show the samples of one run")
	return cmd
}

func renderRunList(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			string(run.Status),
			fmt.Sprintf("%d", len(run.Samples)),
			fmt.Sprintf("%d", run.CPUsPerTask),
			formatElapsed(run.Duration()),
			run.FactorPath,
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Status", "Samples", "CPUs/task", "Elapsed", "Factors"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}

func renderRunDetail(run history.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run:      %s\n", run.ID)
	fmt.Fprintf(&b, "Status:   %s (%s)\n", run.Status, run.Category)
	if run.Error != "" {
		fmt.Fprintf(&b, "Error:    %s\n", run.Error)
	}
	counts := run.CountsPath
	if counts == "" {
		counts = "none"
	}
	fmt.Fprintf(&b, "Counts:   %s\n", counts)
	fmt.Fprintf(&b, "Factors:  %s\n", run.FactorPath)
	fmt.Fprintf(&b, "CPUs:     %d total, %d per task\n", run.TotalCPUs, run.CPUsPerTask)

	rows := make([][]string, 0, len(run.Samples))
	for _, sample := range run.Samples {
		rows = append(rows, []string{
			fmt.Sprintf("%d", sample.Index+1),
			sample.Input,
			sample.Output,
			formatCount(sample.Count, sample.HasCount),
			scaling.Format(sample.Factor),
			sample.Status,
			formatElapsed(sample.Duration),
		})
	}
	b.WriteString(renderTable(
		[]string{"#", "Input", "Output", "Spike-in", "Factor", "Status", "Elapsed"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight},
	))
	return b.String()
}
