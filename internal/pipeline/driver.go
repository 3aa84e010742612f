package pipeline

import (
	"context"
	"fmt"
	"time"

	"gamestats/internal/components/chrono"
	"gamestats/internal/components/telemetry"
	"gamestats/internal/games"
	"gamestats/internal/store"
)

const (
	report_driver_upsert   = "driver.upsert"
	report_driver_run      = "driver.run"
	report_driver_run_game = "driver.run-game"
)

// Enricher fills in the details the ranking does not carry.
//
// note: fault injection point
type Enricher interface {
	Enrich(ctx context.Context, game games.Summary) games.Summary
}

type Result struct {
	Game    games.Summary
	Outcome Outcome
}

// Report summarizes a batch.
type Report struct {
	Started  time.Time
	Finished time.Time
	Results  []Result
	// Total is the amount of games the batch was given, it is greater than
	// len(Results) when the batch was cancelled.
	Total     int
	Cancelled bool
}

func (r Report) Count(outcome Outcome) int {
	count := 0
	for _, result := range r.Results {
		if result.Outcome == outcome {
			count++
		}
	}
	return count
}

func (r Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Driver processes a ranked list of games strictly one after the other.
type Driver struct {
	enricher Enricher
	store    store.Store
	acquirer Acquirer
	time     chrono.TimeAPI
	delay    time.Duration
	tel      telemetry.API
}

func NewDriver(
	enricher Enricher,
	store store.Store,
	acquirer Acquirer,
	timeAPI chrono.TimeAPI,
	delay time.Duration,
	tel telemetry.API,
) Driver {
	return Driver{
		enricher: enricher,
		store:    store,
		acquirer: acquirer,
		time:     timeAPI,
		delay:    delay,
		tel:      telemetry.NewScopedAPI("pipeline", tel),
	}
}

// Run processes every game in order, waiting the configured delay between
// consecutive games. A failing game never stops the batch, only cancelling
// ctx does.
func (d Driver) Run(ctx context.Context, list []games.Summary) Report {
	report := Report{
		Started: d.time.Now(),
		Results: make([]Result, 0, len(list)),
		Total:   len(list),
	}

	for i, game := range list {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		d.tel.ReportInfo(
			"processing game",
			fmt.Sprintf("%d/%d", i+1, len(list)),
			game.Name,
			game.PlaceID,
		)
		result := d.runGame(ctx, game)
		report.Results = append(report.Results, result)
		d.tel.ReportDebug("game finished", game.PlaceID, result.Outcome.String())

		if i == len(list)-1 {
			break
		}
		err := d.time.Sleep(ctx, d.delay)
		if err != nil {
			report.Cancelled = true
			break
		}
	}

	if report.Cancelled {
		d.tel.ReportWarning(
			report_driver_run,
			fmt.Errorf("cancelled after %d/%d games: %w", len(report.Results), len(list), context.Cause(ctx)),
		)
	}

	report.Finished = d.time.Now()
	d.tel.ReportInfo(
		"batch finished",
		fmt.Sprintf("stored=%d", report.Count(OutcomeStored)),
		fmt.Sprintf("no_data=%d", report.Count(OutcomeNoData)),
		fmt.Sprintf("persist_failed=%d", report.Count(OutcomePersistFailed)),
		fmt.Sprintf("upsert_failed=%d", report.Count(OutcomeUpsertFailed)),
	)
	return report
}

func (d Driver) runGame(ctx context.Context, game games.Summary) (result Result) {
	result.Game = game
	defer func() {
		if r := recover(); r != nil {
			// the game was never saved, RunOne recovers its own panics
			d.tel.ReportBroken(report_driver_run_game, game.PlaceID, fmt.Errorf("panic: %v", r))
			result.Outcome = OutcomeUpsertFailed
		}
	}()

	enriched := d.enricher.Enrich(ctx, game)
	result.Game = enriched

	err := d.store.UpsertGame(ctx, enriched)
	if err != nil {
		d.tel.ReportBroken(report_driver_upsert, enriched.PlaceID, err)
		result.Outcome = OutcomeUpsertFailed
		return result
	}

	result.Outcome = d.acquirer.RunOne(ctx, enriched)
	return result
}
