package cmd

import (
	"fmt"

	"gamestats/cmd/collector/globals"
	"gamestats/internal/components/chrono"
	"gamestats/lib/telemetry"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Runs a collection on the configured cron schedule (UTC) until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		g := globals.Get(cmd.Context())
		cfg := requireConfig(g)
		if cfg.Schedule.Cron == "" {
			fatal("nothing to schedule", fmt.Errorf("schedule.cron is empty"))
		}

		ctx := cmd.Context()
		telemetry.InstrumentPerfStats(ctx)

		cron := chrono.NewStandardCron(g.Tel)
		err := cron.Cron(cfg.Schedule.Cron, func() {
			_, err := collect(ctx, g)
			if err != nil {
				g.Tel.ReportBroken(report_collect, err)
			}
		})
		if err != nil {
			fatal("invalid schedule.cron", err)
		}
		g.Tel.ReportInfo("waiting for the next scheduled run", cfg.Schedule.Cron)

		<-ctx.Done()
		g.Tel.ReportInfo("stopping, waiting for the current run to finish")
		<-cron.Stop().Done()
	},
}
