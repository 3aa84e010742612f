// Package pipeline drives the collection of daily stats, one game at a time.
package pipeline

import (
	"context"
	"fmt"

	"gamestats/internal/components/telemetry"
	"gamestats/internal/games"
	"gamestats/internal/stats"
	"gamestats/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_run_one        = "acquirer.run-one"
	report_persist        = "acquirer.persist"
	report_unmapped_title = "acquirer.unmapped-title"
	report_outcomes       = "acquirer.outcomes"
)

var (
	tracer = otel.Tracer("gamestats/internal/pipeline")
	meter  = otel.Meter("gamestats/internal/pipeline")
)

type Outcome int

const (
	OutcomeStored Outcome = iota
	// the page yielded no chart data, nothing was written
	OutcomeNoData
	OutcomePersistFailed
	// the game could not be saved so its stats were never collected
	OutcomeUpsertFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStored:
		return "stored"
	case OutcomeNoData:
		return "no_data"
	case OutcomePersistFailed:
		return "persist_failed"
	case OutcomeUpsertFailed:
		return "upsert_failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Extractor returns the daily charts of a game page, nil when the page could
// not be scraped.
//
// note: fault injection point
type Extractor interface {
	Extract(ctx context.Context, placeID int64) []stats.Chart
}

// Acquirer collects and stores the daily stats of a single game.
type Acquirer struct {
	extractor Extractor
	store     store.Store
	titles    stats.TitleMap
	tel       telemetry.API
	outcomes  metric.Int64Counter
}

func NewAcquirer(extractor Extractor, store store.Store, titles stats.TitleMap, tel telemetry.API) Acquirer {
	tel = telemetry.NewScopedAPI("pipeline", tel)

	outcomes, err := meter.Int64Counter(
		"games.outcomes",
		metric.WithDescription("games processed, by outcome"),
	)
	if err != nil {
		tel.ReportWarning(report_outcomes, err)
	}

	return Acquirer{
		extractor: extractor,
		store:     store,
		titles:    titles,
		tel:       tel,
		outcomes:  outcomes,
	}
}

// RunOne extracts, normalizes and stores the daily stats of a game. It never
// fails, anything that goes wrong is reported and reflected in the outcome.
func (a Acquirer) RunOne(ctx context.Context, game games.Summary) (outcome Outcome) {
	ctx, span := tracer.Start(ctx, "RunOne", trace.WithAttributes(
		attribute.Int64("place_id", game.PlaceID),
		attribute.String("name", game.Name),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			a.tel.ReportBroken(report_run_one, game.PlaceID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			outcome = OutcomePersistFailed
		}
		span.SetAttributes(attribute.String("outcome", outcome.String()))
		if a.outcomes != nil {
			a.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome.String())))
		}
	}()

	charts := a.extractor.Extract(ctx, game.PlaceID)
	span.SetAttributes(attribute.Int("charts", len(charts)))
	if len(charts) == 0 {
		a.tel.ReportInfo("no chart data, skipping daily stats", game.PlaceID)
		return OutcomeNoData
	}

	daily := stats.Normalize(charts, a.titles)
	a.reportUnmapped(game.PlaceID, charts)
	if len(daily) == 0 {
		a.tel.ReportInfo("no daily stats after normalizing, skipping", game.PlaceID)
		return OutcomeNoData
	}

	err := a.store.WriteDailyStats(ctx, game.PlaceID, daily)
	if err != nil {
		a.tel.ReportBroken(report_persist, game.PlaceID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return OutcomePersistFailed
	}

	a.tel.ReportInfo("stored daily stats", game.PlaceID, len(daily))
	return OutcomeStored
}

func (a Acquirer) reportUnmapped(placeID int64, charts []stats.Chart) {
	for _, title := range stats.UnmappedTitles(charts, a.titles) {
		closest, similarity, ok := stats.ClosestTitle(title, a.titles)
		if !ok {
			a.tel.ReportWarning(report_unmapped_title, placeID, title)
			continue
		}
		a.tel.ReportWarning(
			report_unmapped_title,
			placeID,
			title,
			fmt.Sprintf("closest configured title: %q (%.2f)", closest, similarity),
		)
	}
}
