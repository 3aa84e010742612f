package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gamestats/lib/configutil"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestReadWithDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	writeFile(t, path, `{
		// only what has no default
		source: { limit: 50, delay_between_games_seconds: 1.5 },
		chart_title_map: { "Daily Visits": "visits" },
		store: { backend: "firestore", firestore: { project_id: "gamestats" } },
	}`)

	cfg, err := configutil.ReadConfig[Config](path)
	require.NoError(t, err)

	require.Equal(t, 50, cfg.Source.Limit)
	require.Equal(t, 1500*time.Millisecond, cfg.Source.DelayBetweenGames())
	require.Equal(t, "https://www.rolimons.com/game", cfg.Source.PageBaseUrl)
	require.True(t, cfg.Browser.IsHeadless())
	require.Equal(t, 30*time.Second, cfg.Browser.InitialLoadTimeout())
	require.Equal(t, 2*time.Second, cfg.Browser.TabClickDelay())
	require.Equal(t, 10, cfg.Browser.Retries())
	require.Equal(t, time.Second, cfg.Browser.PollRetryDelay())
	require.Equal(t, 20*time.Second, cfg.Browser.PollTimeout())
	require.Equal(t, time.Minute, cfg.Browser.PageLoadTimeout())
	require.Equal(t, "(default)", cfg.Store.Firestore.DatabaseId)
	require.Equal(t, "info", cfg.Logging.Level)
	require.False(t, cfg.Notify.Enabled())
	require.Equal(t, "visits", cfg.ChartTitleMap["Daily Visits"])
}

func TestLocalOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	writeFile(t, path, `{
		source: { limit: 50 },
		browser: { headless: true, poll_retries: 10 },
		store: { backend: "firestore", firestore: { project_id: "gamestats" } },
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{
		source: { limit: 3, page_base_url: "http://localhost:8080/game/" },
		browser: { headless: false, poll_retries: 0 },
		store: { backend: "sqlite", sqlite: { file: "stats.db" } },
	}`)

	cfg, err := configutil.ReadConfig[Config](path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Source.Limit)
	require.Equal(t, "http://localhost:8080/game", cfg.Source.PageBaseUrl)
	require.False(t, cfg.Browser.IsHeadless())
	require.Equal(t, 0, cfg.Browser.Retries())
	require.Equal(t, StoreSqlite, cfg.Store.Backend)
	require.Equal(t, "stats.db", cfg.Store.Sqlite.File)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name     string
		config   string
		problems int
	}{
		{
			name:     "nothing set",
			config:   `{}`,
			problems: 2,
		},
		{
			name:     "sqlite without location",
			config:   `{ source: { limit: 1 }, store: { backend: "sqlite" } }`,
			problems: 1,
		},
		{
			name:     "unknown backend and bad template",
			config:   `{ source: { limit: 1, universe_api_url_template: "https://x/places" }, store: { backend: "mongo" } }`,
			problems: 2,
		},
		{
			name:     "negative values",
			config:   `{ source: { limit: 1, delay_between_games_seconds: -1 }, browser: { poll_retries: -2 }, store: { backend: "sqlite", sqlite: { url: "libsql://db.turso.io" } }, logging: { level: "loud" } }`,
			problems: 3,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json5")
			writeFile(t, path, test.config)

			_, err := configutil.ReadConfig[Config](path)
			var fatal *FatalConfigError
			require.True(t, errors.As(err, &fatal), "expected a FatalConfigError, got %v", err)
			require.Len(t, fatal.Problems, test.problems, "%v", fatal.Problems)
		})
	}
}
