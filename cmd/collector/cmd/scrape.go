package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"gamestats/cmd/collector/globals"
	"gamestats/internal/stats"

	"github.com/spf13/cobra"
)

var scrapeRaw bool

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeRaw, "raw", false, "Also print the extracted charts before they are normalized.")
	rootCmd.AddCommand(scrapeCmd)
}

type scrapeOutput struct {
	PlaceID    int64            `json:"place_id"`
	Charts     []stats.Chart    `json:"charts,omitempty"`
	Unmapped   []string         `json:"unmapped_titles,omitempty"`
	DailyStats stats.DailyStats `json:"daily_stats"`
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <place_id> [--raw]",
	Short: "Scrapes the daily stats of a single game and prints them without storing anything.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		g := globals.Get(cmd.Context())
		cfg := requireConfig(g)

		placeID, err := parsePlaceID(args[0])
		if err != nil {
			fatal("bad argument", err)
		}

		extracted := newExtractor(g).Extract(cmd.Context(), placeID)
		if len(extracted) == 0 {
			fatal("scrape failed", fmt.Errorf("no chart data for place id %d", placeID))
		}

		out := scrapeOutput{
			PlaceID:    placeID,
			Unmapped:   stats.UnmappedTitles(extracted, cfg.ChartTitleMap),
			DailyStats: stats.Normalize(extracted, cfg.ChartTitleMap),
		}
		if scrapeRaw {
			out.Charts = extracted
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(out)
		if err != nil {
			fatal("failed to write output", err)
		}
	},
}
