package cmd

import (
	"context"
	"time"

	"gamestats/cmd/collector/globals"
	"gamestats/lib/telemetry"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--config <path/to/config.json5>]",
	Short: "Collects the daily stats of the top games once, then shuts the machine down if configured to.",
	Run: func(cmd *cobra.Command, args []string) {
		g := globals.Get(cmd.Context())

		err := g.ConfigErr
		if err == nil {
			telemetry.InstrumentPerfStats(cmd.Context())
			_, err = collect(cmd.Context(), g)
		}

		// the machine is stopped no matter how the run went, even if it was
		// interrupted.
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		termErr := newTerminator(ctx, g).Terminate(ctx)
		if termErr != nil {
			g.Tel.ReportBroken("collector.terminate", termErr)
		}

		if err != nil {
			fatal("run failed", err)
		}
		g.Tel.ReportInfo("acquired data successfully")
	},
}
