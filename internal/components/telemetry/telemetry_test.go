package telemetry

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	recorder := NewRecorder()
	scoped := NewScopedAPI("rolimons", NewScopedAPI("collector", recorder))

	scoped.ReportBroken("client.top-games", errors.New("boom"))
	scoped.ReportWarning("client.enrich", int64(1))
	scoped.ReportInfo("done")
	scoped.ReportDebug("request")
	scoped.ReportCount("games", 5)

	reports := recorder.Reports()
	require.Len(t, reports, 5)
	require.Equal(t, "collector: rolimons: client.top-games", reports[0].ID)
	require.Equal(t, LevelBroken, reports[0].Level)
	require.Equal(t, int64(5), reports[4].Count)

	require.Len(t, recorder.Find(LevelWarning, "client.enrich"), 1)
	require.Empty(t, recorder.Find(LevelBroken, "client.enrich"))
}

func TestSlogAPI(t *testing.T) {
	var buf bytes.Buffer
	api := SlogAPI{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}

	api.ReportBroken("extractor.navigate", int64(42), errors.New("net::ERR_NAME_NOT_RESOLVED"))
	out := buf.String()
	require.Contains(t, out, "level=ERROR")
	require.Contains(t, out, "id=extractor.navigate")
	require.Contains(t, out, "params.0=42")
	require.Contains(t, out, "params.1=net::ERR_NAME_NOT_RESOLVED")
}
