// Package sqlite keeps games and their daily stats in a local sqlite file or a
// remote libsql database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"gamestats/internal/components/chrono"
	"gamestats/internal/components/telemetry"
	"gamestats/internal/games"
	"gamestats/internal/stats"
	"gamestats/internal/store/sqlite/db"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const report_decode_fields = "store.decode-fields"

type Config struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// OpenDB opens the remote libsql database when a url is set, otherwise the
// local sqlite file (created along with its directory if needed).
func (config Config) OpenDB() (*sql.DB, error) {
	if config.Url != "" {
		values := url.Values{}
		if config.AuthToken != "" {
			values.Add("authToken", config.AuthToken)
		}
		dsn := config.Url
		if len(values) > 0 {
			dsn += "?" + values.Encode()
		}
		return sql.Open("libsql", dsn)
	}

	if config.File == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	err := os.MkdirAll(filepath.Dir(config.File), 0755)
	if err != nil {
		return nil, err
	}
	database, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	database.SetMaxOpenConns(1)
	_, err = database.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

type Store struct {
	db     *sql.DB
	qry    *db.Queries
	makeTx db.MakeTx
	time   chrono.TimeAPI
	tel    telemetry.API
}

// New creates the tables if they are missing, the store takes ownership of
// the database.
func New(ctx context.Context, database *sql.DB, time chrono.TimeAPI, tel telemetry.API) (Store, error) {
	_, err := database.ExecContext(ctx, db.Schema)
	if err != nil {
		return Store{}, fmt.Errorf("apply schema: %w", err)
	}
	return Store{
		db:     database,
		qry:    db.New(database),
		makeTx: db.NewMakeTx(database),
		time:   time,
		tel:    telemetry.NewScopedAPI("sqlite_store", tel),
	}, nil
}

func (s Store) UpsertGame(ctx context.Context, game games.Summary) error {
	universeID := sql.NullInt64{}
	if game.UniverseID != nil {
		universeID = sql.NullInt64{Int64: *game.UniverseID, Valid: true}
	}
	err := s.qry.UpsertGame(ctx, db.UpsertGameParams{
		PlaceID:     game.PlaceID,
		Name:        game.Name,
		UniverseID:  universeID,
		PlayerCount: game.PlayerCount,
		FetchedAt:   s.time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("upsert game %d: %w", game.PlaceID, err)
	}
	return nil
}

// WriteDailyStats merges every day into the stored fields of that day in a
// single transaction, fields that are not part of daily are kept.
func (s Store) WriteDailyStats(ctx context.Context, placeID int64, daily stats.DailyStats) error {
	if len(daily) == 0 {
		return nil
	}

	txqry, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return err
	}
	defer discard()

	now := s.time.Now().UnixMilli()

	dates := make([]string, 0, len(daily))
	for date := range daily {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		stored, err := txqry.GetDailyStats(ctx, db.GetDailyStatsParams{
			PlaceID: placeID,
			Date:    date,
		})
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read %d/%s: %w", placeID, date, err)
		}

		merged := stats.Fields{}
		if stored != "" {
			err = json.Unmarshal([]byte(stored), &merged)
			if err != nil {
				s.tel.ReportWarning(report_decode_fields, placeID, date, err)
				merged = stats.Fields{}
			}
		}
		for field, value := range daily[date] {
			merged[field] = value
		}

		encoded, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encode %d/%s: %w", placeID, date, err)
		}
		err = txqry.PutDailyStats(ctx, db.PutDailyStatsParams{
			PlaceID:   placeID,
			Date:      date,
			Fields:    string(encoded),
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("write %d/%s: %w", placeID, date, err)
		}
	}

	err = txqry.SetStatsScrapedAt(ctx, db.SetStatsScrapedAtParams{
		ScrapedAt: now,
		PlaceID:   placeID,
	})
	if err != nil {
		return fmt.Errorf("mark %d scraped: %w", placeID, err)
	}

	return commit()
}

// DailyStats reads back every stored day of a game.
func (s Store) DailyStats(ctx context.Context, placeID int64) (stats.DailyStats, error) {
	rows, err := s.qry.ListDailyStats(ctx, placeID)
	if err != nil {
		return nil, err
	}
	out := stats.DailyStats{}
	for _, row := range rows {
		fields := stats.Fields{}
		err = json.Unmarshal([]byte(row.Fields), &fields)
		if err != nil {
			return nil, fmt.Errorf("decode %d/%s: %w", placeID, row.Date, err)
		}
		out[row.Date] = fields
	}
	return out, nil
}

// Game reads back a stored game.
func (s Store) Game(ctx context.Context, placeID int64) (db.Game, error) {
	return s.qry.GetGame(ctx, placeID)
}

func (s Store) Close() error {
	return s.db.Close()
}
