package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spikenorm/internal/preflight"
	"spikenorm/internal/services"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify bamCoverage and the working directories are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := isTerminal(out)

			lines := renderSectionHeader("Configuration", colorize)
			configDetail := ctx.configPath
			kind := statusOK
			if !ctx.configSeen {
				configDetail = ctx.configPath + " (not found, defaults in use)"
				kind = statusInfo
			}
			lines = append(lines, renderStatusLine("Config file", kind, configDetail, colorize), "")

			results := preflight.RunAll(cfg)
			lines = append(lines, renderSectionHeader("Environment", colorize)...)
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if failed := preflight.Failed(results); len(failed) > 0 {
				names := make([]string, 0, len(failed))
				for _, r := range failed {
					names = append(names, r.Name)
				}
				return services.Wrap(services.ErrConfiguration, "cli", "check",
					fmt.Sprintf("%d check(s) failed: %s", len(failed), strings.Join(names, ", ")), nil)
			}
			return nil
		},
	}
}
