package cmd

import (
	"context"
	"fmt"
	"strconv"

	"gamestats/cmd/collector/globals"
	"gamestats/internal/components/browser"
	"gamestats/internal/components/telemetry"
	"gamestats/internal/config"
	"gamestats/internal/lifecycle"
	"gamestats/internal/notify"
	"gamestats/internal/pipeline"
	"gamestats/internal/scrapers/rolimons"
	"gamestats/internal/scrapers/rolimons/charts"
	"gamestats/internal/store"
	"gamestats/internal/store/firestore"
	"gamestats/internal/store/sqlite"
)

func newSource(g *globals.Value) *rolimons.Client {
	cfg := g.Config.Source
	return rolimons.NewClient(rolimons.Options{
		GamelistUrl:         cfg.RolimonsApiUrl,
		UniverseUrlTemplate: cfg.UniverseApiUrlTemplate,
		Limit:               cfg.Limit,
		RequestsPerSecond:   cfg.RequestsPerSecond,
	}, g.Tel)
}

func newExtractor(g *globals.Value) charts.Extractor {
	cfg := g.Config.Browser
	launcher := browser.NewChromeLauncher(browser.ChromeOptions{
		Headless:     cfg.IsHeadless(),
		RemoteUrl:    cfg.RemoteUrl,
		WindowWidth:  cfg.WindowWidth,
		WindowHeight: cfg.WindowHeight,
	}, g.Tel)
	return charts.NewExtractor(
		launcher,
		g.Time,
		telemetry.NewScopedAPI("charts", g.Tel),
		charts.Options{
			PageBaseUrl:        g.Config.Source.PageBaseUrl,
			InitialLoadTimeout: cfg.InitialLoadTimeout(),
			TabClickDelay:      cfg.TabClickDelay(),
			PollRetries:        cfg.Retries(),
			PollRetryDelay:     cfg.PollRetryDelay(),
			PollTimeout:        cfg.PollTimeout(),
			PageLoadTimeout:    cfg.PageLoadTimeout(),
		},
	)
}

func openStore(ctx context.Context, g *globals.Value) (store.Store, error) {
	cfg := g.Config.Store
	switch cfg.Backend {
	case config.StoreFirestore:
		s, err := firestore.Open(ctx, firestore.Config{
			ProjectId:  cfg.Firestore.ProjectId,
			DatabaseId: cfg.Firestore.DatabaseId,
		}, g.Tel)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreSqlite:
		database, err := sqlite.Config{
			File:      cfg.Sqlite.File,
			Url:       cfg.Sqlite.Url,
			AuthToken: cfg.Sqlite.AuthToken,
		}.OpenDB()
		if err != nil {
			return nil, err
		}
		s, err := sqlite.New(ctx, database, g.Time, g.Tel)
		if err != nil {
			database.Close()
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func newTerminator(ctx context.Context, g *globals.Value) lifecycle.Terminator {
	if !g.Config.Shutdown.Enabled {
		return lifecycle.NewNoop(g.Tel)
	}
	gce, err := lifecycle.NewGCE(ctx, g.Tel)
	if err != nil {
		g.Tel.ReportBroken("collector.terminator", err)
		return lifecycle.NewNoop(g.Tel)
	}
	return gce
}

func newNotifier(g *globals.Value) notify.Notifier {
	cfg := g.Config.Notify
	if !cfg.Enabled() {
		return notify.Disabled{}
	}
	return notify.NewMailer(notify.SmtpConfig{
		Server:   cfg.Server,
		Port:     cfg.Port,
		From:     cfg.From,
		Password: cfg.Password,
		To:       cfg.To,
	}, g.Tel)
}

func newAcquirer(g *globals.Value, s store.Store) pipeline.Acquirer {
	return pipeline.NewAcquirer(newExtractor(g), s, g.Config.ChartTitleMap, g.Tel)
}

func parsePlaceID(arg string) (int64, error) {
	placeID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || placeID <= 0 {
		return 0, fmt.Errorf("invalid place id %q", arg)
	}
	return placeID, nil
}
