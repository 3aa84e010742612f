package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gamestats/internal/components/chrono"
	"gamestats/internal/components/telemetry"
	"gamestats/internal/games"
	"gamestats/internal/stats"
	"gamestats/internal/store"
	"gamestats/internal/store/sqlite/db"
	"gamestats/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var _ store.Store = Store{}

func num(v float64) *float64 {
	return &v
}

func setup(t *testing.T) (Store, *chrono.FakeTime) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "store/sqlite",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	clock := chrono.NewFakeTime(time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC))
	store, err := New(context.Background(), res.DB, clock, telemetry.NewRecorder())
	require.NoError(t, err)
	return store, clock
}

func TestUpsertGame(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()

	universeID := int64(1686885941)
	err := store.UpsertGame(ctx, games.Summary{
		PlaceID:     4924922222,
		Name:        "Brookhaven",
		PlayerCount: 400000,
		UniverseID:  &universeID,
	})
	require.NoError(t, err)

	game, err := store.Game(ctx, 4924922222)
	require.NoError(t, err)
	require.Equal(t, "Brookhaven", game.Name)
	require.Equal(t, int64(400000), game.PlayerCount)
	require.Equal(t, universeID, game.UniverseID.Int64)
	require.Equal(t, clock.Now().UnixMilli(), game.FetchedAt)
	require.False(t, game.StatsScrapedAt.Valid)

	require.NoError(t, clock.Sleep(ctx, time.Hour))
	err = store.UpsertGame(ctx, games.Summary{
		PlaceID:     4924922222,
		Name:        "Brookhaven RP",
		PlayerCount: 410000,
	})
	require.NoError(t, err)

	game, err = store.Game(ctx, 4924922222)
	require.NoError(t, err)
	require.Equal(t, "Brookhaven RP", game.Name)
	require.Equal(t, int64(410000), game.PlayerCount)
	require.False(t, game.UniverseID.Valid)
	require.Equal(t, clock.Now().UnixMilli(), game.FetchedAt)
}

func TestWriteDailyStatsMerges(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertGame(ctx, games.Summary{PlaceID: 1, Name: "a", PlayerCount: 1}))

	err := store.WriteDailyStats(ctx, 1, stats.DailyStats{
		"2024-03-01": {"active_players": num(120), "visits": num(900)},
		"2024-03-02": {"active_players": num(130)},
	})
	require.NoError(t, err)

	err = store.WriteDailyStats(ctx, 1, stats.DailyStats{
		"2024-03-01": {"visits": num(950), "favorites": nil},
	})
	require.NoError(t, err)

	out, err := store.DailyStats(ctx, 1)
	require.NoError(t, err)
	expect := stats.DailyStats{
		"2024-03-01": {"active_players": num(120), "visits": num(950), "favorites": nil},
		"2024-03-02": {"active_players": num(130)},
	}
	if diff := cmp.Diff(expect, out); diff != "" {
		t.Fatalf("unexpected daily stats (-want +got):\n%s", diff)
	}

	game, err := store.Game(ctx, 1)
	require.NoError(t, err)
	require.True(t, game.StatsScrapedAt.Valid)
	require.Equal(t, clock.Now().UnixMilli(), game.StatsScrapedAt.Int64)
}

func TestWriteEmptyDailyStatsIsNoop(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertGame(ctx, games.Summary{PlaceID: 1, Name: "a", PlayerCount: 1}))
	require.NoError(t, store.WriteDailyStats(ctx, 1, stats.DailyStats{}))
	require.NoError(t, store.WriteDailyStats(ctx, 1, nil))

	out, err := store.DailyStats(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, out)

	game, err := store.Game(ctx, 1)
	require.NoError(t, err)
	require.False(t, game.StatsScrapedAt.Valid)
}

func TestWriteDailyStatsCancelled(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.WriteDailyStats(ctx, 1, stats.DailyStats{"2024-03-01": {"visits": num(1)}})
	require.Error(t, err)

	out, err := store.DailyStats(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stats.db")
	database, err := Config{File: path}.OpenDB()
	require.NoError(t, err)

	store, err := New(context.Background(), database, chrono.NewFakeTime(time.Now()), telemetry.NewRecorder())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.UpsertGame(context.Background(), games.Summary{PlaceID: 7, Name: "b", PlayerCount: 2}))
	require.FileExists(t, path)
}

func TestOpenWithoutPath(t *testing.T) {
	_, err := Config{}.OpenDB()
	require.Error(t, err)
}
