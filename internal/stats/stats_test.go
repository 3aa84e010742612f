package stats

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const (
	march1 = 1709251200000.0
	march2 = 1709337600000.0
)

func num(v float64) *float64 {
	return &v
}

func pt(x, y float64) Point {
	return Point{X: num(x), Y: num(y)}
}

func TestDateKeyIgnoresLocalTimezone(t *testing.T) {
	previous := time.Local
	time.Local = time.FixedZone("UTC+14", 14*60*60)
	defer func() { time.Local = previous }()

	require.Equal(t, "2023-11-14", DateKey(1700000000000))
	require.Equal(t, "2024-03-01", DateKey(march1))
	require.Equal(t, "2024-03-01", DateKey(march2-1))
	require.Equal(t, "2024-03-02", DateKey(march2))
}

func TestNormalize(t *testing.T) {
	titles := TitleMap{
		"Daily Active Players": "active_players",
		"Daily Visits":         "visits",
		"Daily Favorites":      "favorites",
	}

	cases := []struct {
		name   string
		charts []Chart
		expect DailyStats
	}{
		{
			name:   "no charts",
			charts: nil,
			expect: DailyStats{},
		},
		{
			name: "two charts on the same day",
			charts: []Chart{
				{Title: "Daily Active Players", Points: []Point{pt(march1, 120)}},
				{Title: "Daily Visits", Points: []Point{pt(march1, 900)}},
			},
			expect: DailyStats{
				"2024-03-01": {"active_players": num(120), "visits": num(900)},
			},
		},
		{
			name: "unmapped title",
			charts: []Chart{
				{Title: "Unknown Metric", Points: []Point{pt(march1, 5)}},
			},
			expect: DailyStats{},
		},
		{
			name: "later point on the same day wins",
			charts: []Chart{
				{Title: "Daily Visits", Points: []Point{
					pt(march1+1000, 900),
					pt(march1, 950),
				}},
			},
			expect: DailyStats{
				"2024-03-01": {"visits": num(950)},
			},
		},
		{
			name: "later chart mapping to the same field wins",
			charts: []Chart{
				{Title: "Daily Visits", Points: []Point{pt(march1, 1)}},
				{Title: "Daily Favorites", Points: []Point{pt(march1, 2)}},
				{Title: "Daily Visits", Points: []Point{pt(march1, 3)}},
			},
			expect: DailyStats{
				"2024-03-01": {"visits": num(3), "favorites": num(2)},
			},
		},
		{
			name: "points without x are skipped individually",
			charts: []Chart{
				{Title: "Daily Visits", Points: []Point{
					{X: nil, Y: num(1)},
					pt(march2, 7),
				}},
			},
			expect: DailyStats{
				"2024-03-02": {"visits": num(7)},
			},
		},
		{
			name: "gaps and out of range values pass through",
			charts: []Chart{
				{Title: "Daily Visits", Points: []Point{{X: num(march1), Y: nil}}},
				{Title: "Daily Active Players", Points: []Point{pt(march1, -42)}},
			},
			expect: DailyStats{
				"2024-03-01": {"visits": nil, "active_players": num(-42)},
			},
		},
		{
			name: "empty chart contributes nothing",
			charts: []Chart{
				{Title: "Daily Active Players", Points: nil},
				{Title: "Daily Visits", Points: []Point{pt(march1, 900)}},
			},
			expect: DailyStats{
				"2024-03-01": {"visits": num(900)},
			},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			got := Normalize(test.charts, titles)
			if diff := cmp.Diff(test.expect, got); diff != "" {
				t.Fatalf("normalize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeWithoutTitleMap(t *testing.T) {
	got := Normalize([]Chart{
		{Title: "Daily Visits", Points: []Point{pt(march1, 900)}},
	}, nil)
	require.NotNil(t, got)
	require.Len(t, got, 0)
}

func TestNormalizeDoesNotAliasInput(t *testing.T) {
	charts := []Chart{{Title: "Daily Visits", Points: []Point{pt(march1, 900)}}}
	got := Normalize(charts, TitleMap{"Daily Visits": "visits"})

	*charts[0].Points[0].Y = 1
	require.Equal(t, 900.0, *got["2024-03-01"]["visits"])
}
