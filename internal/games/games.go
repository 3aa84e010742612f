package games

import "strconv"

// Summary is a game as listed by the ranking source.
type Summary struct {
	PlaceID int64  `json:"place_id"`
	Name    string `json:"name"`
	// PlayerCount is the metric the ranking is sorted by.
	PlayerCount int64 `json:"player_count"`
	// UniverseID is nil when the enrichment lookup failed or has not run.
	UniverseID *int64 `json:"universe_id"`
}

// Key is the place id as used for document ids.
func (s Summary) Key() string {
	return strconv.FormatInt(s.PlaceID, 10)
}

// WithUniverseID returns a copy of the summary with the universe id set,
// passing nil marks it absent.
func (s Summary) WithUniverseID(universeID *int64) Summary {
	if universeID != nil {
		id := *universeID
		universeID = &id
	}
	s.UniverseID = universeID
	return s
}
