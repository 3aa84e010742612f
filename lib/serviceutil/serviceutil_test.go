package serviceutil

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFatalRunsCleanupsBeforeExit(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	var events []string
	exit = func(code int) {
		events = append(events, "exit")
		require.Equal(t, 1, code)
	}
	t.Cleanup(func() { exit = osExit })

	Fatal(
		"scrape failed",
		errors.New("no chart data"),
		func() {
			require.Contains(t, buf.String(), "no chart data")
			events = append(events, "flush telemetry")
		},
		func() { events = append(events, "close log file") },
	)

	require.Equal(t, []string{"flush telemetry", "close log file", "exit"}, events)
}
