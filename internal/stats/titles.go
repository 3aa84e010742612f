package stats

import (
	"slices"

	"github.com/antzucaro/matchr"
)

// UnmappedTitles returns the distinct titles of charts that Normalize would
// drop, in the order they first appear.
func UnmappedTitles(charts []Chart, titles TitleMap) []string {
	var out []string
	for _, chart := range charts {
		if field, ok := titles[chart.Title]; ok && field != "" {
			continue
		}
		if slices.Contains(out, chart.Title) {
			continue
		}
		out = append(out, chart.Title)
	}
	return out
}

// ClosestTitle returns the configured title most similar to the given one by
// Jaro-Winkler similarity, it is only used to point at likely typos in the
// title map. ok is false when the map is empty.
func ClosestTitle(title string, titles TitleMap) (closest string, similarity float64, ok bool) {
	keys := make([]string, 0, len(titles))
	for k := range titles {
		keys = append(keys, k)
	}
	// map iteration order is random, sorting keeps ties deterministic
	slices.Sort(keys)

	for _, candidate := range keys {
		sim := matchr.JaroWinkler(title, candidate, false)
		if !ok || sim > similarity {
			closest = candidate
			similarity = sim
			ok = true
		}
	}
	return closest, similarity, ok
}
