// Package firestore keeps games in the `games` collection of Cloud Firestore,
// with one `daily_stats/<date>` document per day under each game.
package firestore

import (
	"context"
	"fmt"

	"gamestats/internal/components/telemetry"
	"gamestats/internal/games"
	"gamestats/internal/stats"

	"cloud.google.com/go/firestore"
)

const (
	gamesCollection      = "games"
	dailyStatsCollection = "daily_stats"
)

const report_mark_scraped = "store.mark-scraped"

type Config struct {
	ProjectId  string `json:"project_id"`
	DatabaseId string `json:"database_id"`
}

type Store struct {
	client *firestore.Client
	tel    telemetry.API
	// stamp marks a game as scraped once its daily stats are committed.
	stamp func(ctx context.Context, placeID int64) error
}

// Open connects with the application default credentials, or to the emulator
// when FIRESTORE_EMULATOR_HOST is set.
func Open(ctx context.Context, config Config, tel telemetry.API) (Store, error) {
	databaseId := config.DatabaseId
	if databaseId == "" {
		databaseId = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, config.ProjectId, databaseId)
	if err != nil {
		return Store{}, fmt.Errorf("firestore client: %w", err)
	}
	return New(client, tel), nil
}

func New(client *firestore.Client, tel telemetry.API) Store {
	s := Store{
		client: client,
		tel:    telemetry.NewScopedAPI("firestore_store", tel),
	}
	s.stamp = s.markScraped
	return s
}

func (s Store) game(placeID int64) *firestore.DocumentRef {
	return s.client.Collection(gamesCollection).Doc(games.Summary{PlaceID: placeID}.Key())
}

func (s Store) UpsertGame(ctx context.Context, game games.Summary) error {
	var universeID any
	if game.UniverseID != nil {
		universeID = *game.UniverseID
	}
	_, err := s.game(game.PlaceID).Set(ctx, map[string]any{
		"name":                          game.Name,
		"place_id":                      game.PlaceID,
		"universe_id":                   universeID,
		"current_rolimons_player_count": game.PlayerCount,
		"last_fetched_rolimons_list_data_timestamp": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("upsert game %d: %w", game.PlaceID, err)
	}
	return nil
}

// WriteDailyStats merges every day in one transaction, then marks the game as
// scraped. Failing to mark the game is only reported.
func (s Store) WriteDailyStats(ctx context.Context, placeID int64, daily stats.DailyStats) error {
	if len(daily) == 0 {
		return nil
	}

	gameRef := s.game(placeID)
	dailyRef := gameRef.Collection(dailyStatsCollection)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for date, fields := range daily {
			err := tx.Set(dailyRef.Doc(date), fieldValues(fields), firestore.MergeAll)
			if err != nil {
				return fmt.Errorf("%s: %w", date, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write daily stats of %d: %w", placeID, err)
	}

	// the stats are already committed, a missing stamp does not undo them
	err = s.stamp(ctx, placeID)
	if err != nil {
		s.tel.ReportWarning(report_mark_scraped, placeID, err)
	}
	return nil
}

func (s Store) markScraped(ctx context.Context, placeID int64) error {
	_, err := s.game(placeID).Set(ctx, map[string]any{
		"last_scraped_daily_stats_timestamp": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	return err
}

// fieldValues converts missing values to firestore nulls.
func fieldValues(fields stats.Fields) map[string]any {
	out := make(map[string]any, len(fields))
	for field, value := range fields {
		if value == nil {
			out[field] = nil
			continue
		}
		out[field] = *value
	}
	return out
}

// DailyStats reads back every stored day of a game.
func (s Store) DailyStats(ctx context.Context, placeID int64) (stats.DailyStats, error) {
	docs, err := s.game(placeID).Collection(dailyStatsCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := stats.DailyStats{}
	for _, doc := range docs {
		fields := stats.Fields{}
		for field, value := range doc.Data() {
			switch v := value.(type) {
			case float64:
				fields[field] = &v
			case int64:
				f := float64(v)
				fields[field] = &f
			default:
				fields[field] = nil
			}
		}
		out[doc.Ref.ID] = fields
	}
	return out, nil
}

// Game reads back the stored fields of a game.
func (s Store) Game(ctx context.Context, placeID int64) (map[string]any, error) {
	doc, err := s.game(placeID).Get(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Data(), nil
}

func (s Store) Close() error {
	return s.client.Close()
}
