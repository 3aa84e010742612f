package stats

import (
	"math"
	"time"
)

// Point is a single sample from a chart series, X is a unix timestamp in
// milliseconds. X is nil when the point had no usable x coordinate, Y is nil
// when the chart has a gap at X.
type Point struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// Chart is the first series of a rendered chart widget and the title displayed above it.
type Chart struct {
	Title  string  `json:"title"`
	Points []Point `json:"points"`
}

// TitleMap maps a chart's display title to the field name it is stored under.
type TitleMap map[string]string

// Fields maps field names to values for a single day.
type Fields map[string]*float64

// DailyStats maps a UTC date key (YYYY-MM-DD) to the fields collected for that day.
type DailyStats map[string]Fields

const dateKeyLayout = "2006-01-02"

// DateKey truncates a unix millisecond timestamp to its UTC calendar date.
func DateKey(ms float64) string {
	return time.UnixMilli(int64(math.Floor(ms))).UTC().Format(dateKeyLayout)
}

// Normalize groups chart points by UTC day under the field each chart's title
// maps to. Charts with unmapped titles and points without an x are skipped. When
// the same (day, field) is written more than once the last point in input order
// wins, across points of a chart as well as across charts. y values are not
// validated.
func Normalize(charts []Chart, titles TitleMap) DailyStats {
	out := DailyStats{}
	for _, chart := range charts {
		field, ok := titles[chart.Title]
		if !ok || field == "" {
			continue
		}
		for _, p := range chart.Points {
			if p.X == nil || math.IsNaN(*p.X) || math.IsInf(*p.X, 0) {
				continue
			}
			key := DateKey(*p.X)
			day, ok := out[key]
			if !ok {
				day = Fields{}
				out[key] = day
			}
			day[field] = copyValue(p.Y)
		}
	}
	return out
}

func copyValue(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
