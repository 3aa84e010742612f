// Package rolimons reads the game ranking from the Rolimons game list and
// resolves universe ids through the Roblox places API.
package rolimons

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gamestats/internal/components/telemetry"
	"gamestats/internal/games"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_top_games  = "client.top-games"
	report_client_game_entry = "client.game-entry"
	report_client_enrich     = "client.enrich"
)

const (
	gamelistTimeout = 10 * time.Second
	universeTimeout = 5 * time.Second
)

type Options struct {
	GamelistUrl string
	// must contain `{place_id}`
	UniverseUrlTemplate string
	Limit               int
	RequestsPerSecond   float64
}

type Client struct {
	http *resty.Client
	tel  telemetry.API
	opts Options
}

func NewClient(opts Options, tel telemetry.API) *Client {
	tel = telemetry.NewScopedAPI("rolimons", tel)

	httpClient := resty.New()
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetHeader("accept", "application/json")
	httpClient.SetTimeout(gamelistTimeout)

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	// burst >= 1 just means that no requests will be dropped
	burst := int(math.Ceil(opts.RequestsPerSecond))
	if burst < 1 {
		burst = 1
	}
	rateLimiter := rate.NewLimiter(limit, burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)

	return &Client{http: httpClient, tel: tel, opts: opts}
}

type gamelist struct {
	Games map[string][]json.RawMessage `json:"games"`
}

// TopGames returns the Limit games with the most players, most played first.
// Failures are reported and yield an empty list.
func (c *Client) TopGames(ctx context.Context) []games.Summary {
	res, err := c.http.R().
		SetContext(ctx).
		Get(c.opts.GamelistUrl)
	if err != nil {
		c.tel.ReportBroken(report_client_top_games, err)
		return nil
	}
	if res.IsError() {
		c.tel.ReportBroken(report_client_top_games, fmt.Errorf("unexpected status %s", res.Status()))
		return nil
	}

	var list gamelist
	err = json.Unmarshal(res.Body(), &list)
	if err != nil {
		c.tel.ReportBroken(report_client_top_games, fmt.Errorf("json unmarshal: %w", err))
		return nil
	}

	out := make([]games.Summary, 0, len(list.Games))
	for pid, fields := range list.Games {
		summary, err := parseEntry(pid, fields)
		if err != nil {
			c.tel.ReportWarning(report_client_game_entry, pid, err)
			continue
		}
		out = append(out, summary)
	}

	return rank(out, c.opts.Limit)
}

// rank sorts by player count (descending, ties by place id) and keeps the
// first limit entries.
func rank(list []games.Summary, limit int) []games.Summary {
	sort.Slice(list, func(i, j int) bool {
		if list[i].PlayerCount != list[j].PlayerCount {
			return list[i].PlayerCount > list[j].PlayerCount
		}
		return list[i].PlaceID < list[j].PlaceID
	})
	if limit >= 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

// parseEntry reads a `"<place_id>": [name, player_count, ...]` game list entry.
func parseEntry(pid string, fields []json.RawMessage) (games.Summary, error) {
	placeID, err := strconv.ParseInt(pid, 10, 64)
	if err != nil {
		return games.Summary{}, fmt.Errorf("place id: %w", err)
	}
	if len(fields) < 2 {
		return games.Summary{}, fmt.Errorf("expected at least 2 fields, got %d", len(fields))
	}

	var name string
	err = json.Unmarshal(fields[0], &name)
	if err != nil {
		return games.Summary{}, fmt.Errorf("name: %w", err)
	}
	var count *float64
	err = json.Unmarshal(fields[1], &count)
	if err != nil {
		return games.Summary{}, fmt.Errorf("player count: %w", err)
	}
	if count == nil || math.IsNaN(*count) || math.IsInf(*count, 0) {
		return games.Summary{}, fmt.Errorf("player count is not a number")
	}

	return games.Summary{
		PlaceID:     placeID,
		Name:        name,
		PlayerCount: int64(*count),
	}, nil
}

type universeResponse struct {
	UniverseID *float64 `json:"universeId"`
}

// Enrich returns a copy of the game with its universe id resolved, a failed
// lookup leaves it absent.
func (c *Client) Enrich(ctx context.Context, game games.Summary) games.Summary {
	universeID, err := c.universeID(ctx, game.PlaceID)
	if err != nil {
		c.tel.ReportWarning(report_client_enrich, game.PlaceID, err)
		return game.WithUniverseID(nil)
	}
	return game.WithUniverseID(&universeID)
}

func (c *Client) universeID(ctx context.Context, placeID int64) (int64, error) {
	url := strings.ReplaceAll(
		c.opts.UniverseUrlTemplate,
		"{place_id}",
		strconv.FormatInt(placeID, 10),
	)

	ctx, cancel := context.WithTimeout(ctx, universeTimeout)
	defer cancel()
	res, err := c.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return 0, err
	}
	if res.IsError() {
		return 0, fmt.Errorf("unexpected status %s", res.Status())
	}

	var body universeResponse
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		return 0, fmt.Errorf("json unmarshal: %w", err)
	}
	if body.UniverseID == nil {
		return 0, fmt.Errorf("response has no universeId")
	}
	return int64(*body.UniverseID), nil
}
