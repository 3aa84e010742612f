package cmd

import (
	"gamestats/cmd/collector/globals"
	"gamestats/internal/games"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var topEnrich bool

func init() {
	topCmd.Flags().BoolVar(&topEnrich, "enrich", false, "Also resolve the universe id of each game.")
	rootCmd.AddCommand(topCmd)
}

var topCmd = &cobra.Command{
	Use:   "top [--enrich]",
	Short: "Prints the games a run would process, most played first.",
	Run: func(cmd *cobra.Command, args []string) {
		g := globals.Get(cmd.Context())
		requireConfig(g)

		source := newSource(g)
		top := source.TopGames(cmd.Context())

		t := newTable()
		t.AppendHeader(table.Row{"#", "Place ID", "Name", "Players", "Universe ID"})
		for i, game := range top {
			if topEnrich {
				game = source.Enrich(cmd.Context(), game)
			}
			t.AppendRow(table.Row{i + 1, game.PlaceID, game.Name, game.PlayerCount, universeID(game)})
		}
		t.Render()
	},
}

func universeID(game games.Summary) any {
	if game.UniverseID == nil {
		return "-"
	}
	return *game.UniverseID
}
