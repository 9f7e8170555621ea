package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spikenorm/internal/scaling"
	"spikenorm/internal/services"
	"spikenorm/internal/spikein"
)

func newFactorsCommand(ctx *commandContext) *cobra.Command {
	var countsPath string
	var samples int
	var showTable bool

	cmd := &cobra.Command{
		Use:   "factors",
		Short: "Print the scaling factors for a spike-in counts table",
		Long: `Print the factor each sample would be scaled by, one per line, without
running any conversion or writing a factor file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(countsPath) == "" && samples <= 0 {
				return services.Wrap(services.ErrConfiguration, "cli", "factors", "--counts or --samples required", nil)
			}
			source := spikein.FileSource{Path: countsPath, Delimiter: cfg.CountsDelimiter(), Column: cfg.Counts.Column}
			counts, err := source.Load()
			if err != nil {
				return err
			}
			if counts.Missing {
				fmt.Fprintf(cmd.ErrOrStderr(), "counts file %s not found; factors default to 1\n", counts.Path)
			}
			n := samples
			if n <= 0 {
				n = counts.Len()
			}
			if n == 0 {
				return services.Wrap(services.ErrConfiguration, "cli", "factors",
					fmt.Sprintf("counts file %s absent or empty; pass --samples", counts.Path), nil)
			}
			factors, err := scaling.Factors(counts, n)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !showTable {
				return scaling.EncodeFactors(out, factors)
			}
			rows := make([][]string, len(factors))
			for i, factor := range factors {
				count := "-"
				if counts.Present() {
					count = formatCount(counts.Values[i], true)
				}
				rows[i] = []string{fmt.Sprintf("%d", i+1), count, scaling.Format(factor)}
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Spike-in", "Factor"}, rows,
				[]columnAlignment{alignRight, alignRight, alignRight}))
			return nil
		},
	}

	cmd.Flags().StringVar(&countsPath, "counts", "", "Headerless spike-in counts table")
	cmd.Flags().IntVar(&samples, "samples", 0, "Number of samples (default: rows in the counts table)")
	cmd.Flags().BoolVar(&showTable, "table", false, "Render a table with counts and factors")
	return cmd
}
