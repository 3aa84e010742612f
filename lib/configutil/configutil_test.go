package configutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string            `json:"name"`
	Limit   int               `json:"limit"`
	Mapping map[string]string `json:"mapping"`
	Enabled *bool             `json:"enabled"`
}

func (c *testConfig) SetDefaults() {
	if c.Limit == 0 {
		c.Limit = 50
	}
}

func (c *testConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeFile(t testing.TB, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, filepath.Join("dir", "config.local.json5"), LocalPath(filepath.Join("dir", "config.json5")))
	require.Equal(t, filepath.Join("dir", "config.local"), LocalPath(filepath.Join("dir", "config")))
}

func TestReadConfigMergesLocalOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{
		// comments are allowed
		name: "base",
		enabled: true,
		mapping: { "Daily Visits": "visits" },
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{
		name: "override",
		enabled: false,
		mapping: { "Daily Active Players": "active_players" },
	}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, "override", cfg.Name)
	require.Equal(t, 50, cfg.Limit)
	require.NotNil(t, cfg.Enabled)
	require.False(t, *cfg.Enabled)
	require.Equal(t, map[string]string{
		"Daily Visits":         "visits",
		"Daily Active Players": "active_players",
	}, cfg.Mapping)
}

func TestReadConfigValidates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{ limit: 3 }`)

	_, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.EqualError(t, err, "name is required")
}

func TestReadConfigNotFound(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.True(t, os.IsNotExist(err))
}
