package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnmappedTitles(t *testing.T) {
	titles := TitleMap{"Daily Visits": "visits", "Ignored": ""}
	charts := []Chart{
		{Title: "Daily Visits"},
		{Title: "Daily Vists"},
		{Title: "Ignored"},
		{Title: "Daily Vists"},
	}
	require.Equal(t, []string{"Daily Vists", "Ignored"}, UnmappedTitles(charts, titles))
	require.Empty(t, UnmappedTitles(charts[:1], titles))
}

func TestClosestTitle(t *testing.T) {
	titles := TitleMap{
		"Daily Active Players": "active_players",
		"Daily Visits":         "visits",
		"Daily Favorites":      "favorites",
	}

	closest, similarity, ok := ClosestTitle("Daily Vists", titles)
	require.True(t, ok)
	require.Equal(t, "Daily Visits", closest)
	require.Greater(t, similarity, 0.9)

	_, _, ok = ClosestTitle("Daily Visits", nil)
	require.False(t, ok)
}
