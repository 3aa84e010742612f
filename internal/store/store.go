// Package store defines where games and their daily stats are persisted.
package store

import (
	"context"

	"gamestats/internal/games"
	"gamestats/internal/stats"
)

// Store persists games and their daily stats, documents are keyed by place id
// and daily stats by UTC date.
//
// note: fault injection point
type Store interface {
	// UpsertGame creates the game or merges its ranking fields into the
	// stored one, stamping when the ranking was fetched.
	UpsertGame(ctx context.Context, game games.Summary) error
	// WriteDailyStats merges every day atomically then stamps when the game
	// was last scraped. Writing nothing is a no-op.
	WriteDailyStats(ctx context.Context, placeID int64, daily stats.DailyStats) error
	Close() error
}
