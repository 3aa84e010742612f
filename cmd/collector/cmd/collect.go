package cmd

import (
	"context"
	"fmt"

	"gamestats/cmd/collector/globals"
	"gamestats/internal/pipeline"
)

const report_collect = "collector.collect"

// collect runs one full batch: rank, drive every game, send the summary.
func collect(ctx context.Context, g *globals.Value) (pipeline.Report, error) {
	cfg := g.Config
	if len(cfg.ChartTitleMap) == 0 {
		g.Tel.ReportWarning(report_collect, fmt.Errorf("chart_title_map is empty, nothing will be stored"))
	}

	s, err := openStore(ctx, g)
	if err != nil {
		return pipeline.Report{}, fmt.Errorf("open store: %w", err)
	}
	defer func() {
		err := s.Close()
		if err != nil {
			g.Tel.ReportWarning(report_collect, fmt.Errorf("close store: %w", err))
		}
	}()

	g.Tel.ReportInfo("starting daily collection", cfg.Source.Limit)
	source := newSource(g)
	top := source.TopGames(ctx)
	if len(top) == 0 {
		g.Tel.ReportWarning(report_collect, fmt.Errorf("no top games found"))
		return pipeline.Report{}, nil
	}

	driver := pipeline.NewDriver(
		source,
		s,
		newAcquirer(g, s),
		g.Time,
		cfg.Source.DelayBetweenGames(),
		g.Tel,
	)
	report := driver.Run(ctx, top)

	err = newNotifier(g).Send(ctx, report)
	if err != nil {
		g.Tel.ReportWarning(report_collect, fmt.Errorf("send summary: %w", err))
	}
	return report, nil
}
