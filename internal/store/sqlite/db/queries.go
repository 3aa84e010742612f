package db

import (
	"context"
	"database/sql"
)

const upsertGame = `insert into games (
    place_id, name, universe_id, current_rolimons_player_count, last_fetched_rolimons_list_data_timestamp
) values (?, ?, ?, ?, ?)
on conflict (place_id) do update set
    name = excluded.name,
    universe_id = excluded.universe_id,
    current_rolimons_player_count = excluded.current_rolimons_player_count,
    last_fetched_rolimons_list_data_timestamp = excluded.last_fetched_rolimons_list_data_timestamp`

type UpsertGameParams struct {
	PlaceID     int64
	Name        string
	UniverseID  sql.NullInt64
	PlayerCount int64
	FetchedAt   int64
}

func (q *Queries) UpsertGame(ctx context.Context, arg UpsertGameParams) error {
	_, err := q.db.ExecContext(ctx, upsertGame,
		arg.PlaceID,
		arg.Name,
		arg.UniverseID,
		arg.PlayerCount,
		arg.FetchedAt,
	)
	return err
}

const getGame = `select place_id, name, universe_id, current_rolimons_player_count,
    last_fetched_rolimons_list_data_timestamp, last_scraped_daily_stats_timestamp
from games where place_id = ?`

type Game struct {
	PlaceID        int64
	Name           string
	UniverseID     sql.NullInt64
	PlayerCount    int64
	FetchedAt      int64
	StatsScrapedAt sql.NullInt64
}

func (q *Queries) GetGame(ctx context.Context, placeID int64) (Game, error) {
	row := q.db.QueryRowContext(ctx, getGame, placeID)
	var i Game
	err := row.Scan(
		&i.PlaceID,
		&i.Name,
		&i.UniverseID,
		&i.PlayerCount,
		&i.FetchedAt,
		&i.StatsScrapedAt,
	)
	return i, err
}

const getDailyStats = `select fields from daily_stats where place_id = ? and date = ?`

type GetDailyStatsParams struct {
	PlaceID int64
	Date    string
}

func (q *Queries) GetDailyStats(ctx context.Context, arg GetDailyStatsParams) (string, error) {
	row := q.db.QueryRowContext(ctx, getDailyStats, arg.PlaceID, arg.Date)
	var fields string
	err := row.Scan(&fields)
	return fields, err
}

const listDailyStats = `select date, fields from daily_stats where place_id = ? order by date`

type ListDailyStatsRow struct {
	Date   string
	Fields string
}

func (q *Queries) ListDailyStats(ctx context.Context, placeID int64) ([]ListDailyStatsRow, error) {
	rows, err := q.db.QueryContext(ctx, listDailyStats, placeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListDailyStatsRow
	for rows.Next() {
		var i ListDailyStatsRow
		if err := rows.Scan(&i.Date, &i.Fields); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const putDailyStats = `insert into daily_stats (place_id, date, fields, updated_at)
values (?, ?, ?, ?)
on conflict (place_id, date) do update set
    fields = excluded.fields,
    updated_at = excluded.updated_at`

type PutDailyStatsParams struct {
	PlaceID   int64
	Date      string
	Fields    string
	UpdatedAt int64
}

func (q *Queries) PutDailyStats(ctx context.Context, arg PutDailyStatsParams) error {
	_, err := q.db.ExecContext(ctx, putDailyStats,
		arg.PlaceID,
		arg.Date,
		arg.Fields,
		arg.UpdatedAt,
	)
	return err
}

const setStatsScrapedAt = `update games set last_scraped_daily_stats_timestamp = ? where place_id = ?`

type SetStatsScrapedAtParams struct {
	ScrapedAt int64
	PlaceID   int64
}

func (q *Queries) SetStatsScrapedAt(ctx context.Context, arg SetStatsScrapedAtParams) error {
	_, err := q.db.ExecContext(ctx, setStatsScrapedAt, arg.ScrapedAt, arg.PlaceID)
	return err
}
