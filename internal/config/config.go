package config

import (
	"fmt"
	"strings"
	"time"

	"gamestats/internal/stats"
	"gamestats/lib/telemetry"
)

const (
	StoreFirestore = "firestore"
	StoreSqlite    = "sqlite"
)

type Source struct {
	// returns `{"games": {"<place_id>": [name, player_count, ...]}}`
	RolimonsApiUrl string `json:"rolimons_api_url"`
	// must contain `{place_id}`
	UniverseApiUrlTemplate string `json:"universe_api_url_template"`
	// the game page is `<page_base_url>/<place_id>`
	PageBaseUrl              string  `json:"page_base_url"`
	Limit                    int     `json:"limit"`
	DelayBetweenGamesSeconds float64 `json:"delay_between_games_seconds"`
	RequestsPerSecond        float64 `json:"requests_per_second"`
}

func (s Source) DelayBetweenGames() time.Duration {
	return seconds(s.DelayBetweenGamesSeconds)
}

type Browser struct {
	Headless *bool `json:"headless"`
	// connect to an already running chrome over its devtools websocket
	// instead of launching one
	RemoteUrl                 string  `json:"remote_url"`
	WindowWidth               int     `json:"window_width"`
	WindowHeight              int     `json:"window_height"`
	InitialLoadTimeoutSeconds float64 `json:"initial_load_timeout_seconds"`
	TabClickDelaySeconds      float64 `json:"tab_click_delay_seconds"`
	PollRetries               *int    `json:"poll_retries"`
	PollRetryDelayMs          int     `json:"poll_retry_delay_ms"`
	PollTimeoutSeconds        float64 `json:"poll_timeout_seconds"`
	PageLoadTimeoutSeconds    float64 `json:"page_load_timeout_seconds"`
}

func (b Browser) IsHeadless() bool {
	return b.Headless == nil || *b.Headless
}

func (b Browser) InitialLoadTimeout() time.Duration {
	return seconds(b.InitialLoadTimeoutSeconds)
}

func (b Browser) TabClickDelay() time.Duration {
	return seconds(b.TabClickDelaySeconds)
}

func (b Browser) Retries() int {
	if b.PollRetries == nil {
		return 0
	}
	return *b.PollRetries
}

func (b Browser) PollRetryDelay() time.Duration {
	return time.Duration(b.PollRetryDelayMs) * time.Millisecond
}

func (b Browser) PollTimeout() time.Duration {
	return seconds(b.PollTimeoutSeconds)
}

func (b Browser) PageLoadTimeout() time.Duration {
	return seconds(b.PageLoadTimeoutSeconds)
}

type Firestore struct {
	ProjectId  string `json:"project_id"`
	DatabaseId string `json:"database_id"`
}

type Sqlite struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

type Store struct {
	Backend   string    `json:"backend"`
	Firestore Firestore `json:"firestore"`
	Sqlite    Sqlite    `json:"sqlite"`
}

type Logging struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

type Shutdown struct {
	Enabled bool `json:"enabled"`
}

type Notify struct {
	Server   string   `json:"server"`
	Port     int      `json:"port"`
	From     string   `json:"from"`
	Password string   `json:"password"`
	To       []string `json:"to"`
}

func (n Notify) Enabled() bool {
	return n.Server != "" && len(n.To) > 0
}

type Schedule struct {
	Cron string `json:"cron"`
}

type Config struct {
	Source        Source           `json:"source"`
	Browser       Browser          `json:"browser"`
	ChartTitleMap stats.TitleMap   `json:"chart_title_map"`
	Store         Store            `json:"store"`
	Logging       Logging          `json:"logging"`
	Shutdown      Shutdown         `json:"shutdown"`
	Notify        Notify           `json:"notify"`
	Telemetry     telemetry.Config `json:"telemetry"`
	Schedule      Schedule         `json:"schedule"`
}

const (
	defaultRolimonsApiUrl    = "https://www.rolimons.com/gameapi/gamelist"
	defaultUniverseApiUrl    = "https://apis.roblox.com/universes/v1/places/{place_id}/universe"
	defaultPageBaseUrl       = "https://www.rolimons.com/game"
	defaultRequestsPerSecond = 2
	defaultLoadTimeout       = 30
	defaultPageLoadTimeout   = 60
	defaultTabClickDelay     = 2
	defaultPollRetries       = 10
	defaultPollRetryDelayMs  = 1000
	defaultWindowWidth       = 1920
	defaultWindowHeight      = 1080
	defaultLogLevel          = "info"
	defaultFirestoreDatabase = "(default)"
)

// SetDefaults fills the values that have a sensible default, everything else
// is checked by Validate.
func (c *Config) SetDefaults() {
	if c.Source.RolimonsApiUrl == "" {
		c.Source.RolimonsApiUrl = defaultRolimonsApiUrl
	}
	if c.Source.UniverseApiUrlTemplate == "" {
		c.Source.UniverseApiUrlTemplate = defaultUniverseApiUrl
	}
	if c.Source.PageBaseUrl == "" {
		c.Source.PageBaseUrl = defaultPageBaseUrl
	}
	c.Source.PageBaseUrl = strings.TrimRight(c.Source.PageBaseUrl, "/")
	if c.Source.RequestsPerSecond <= 0 {
		c.Source.RequestsPerSecond = defaultRequestsPerSecond
	}

	if c.Browser.WindowWidth <= 0 {
		c.Browser.WindowWidth = defaultWindowWidth
	}
	if c.Browser.WindowHeight <= 0 {
		c.Browser.WindowHeight = defaultWindowHeight
	}
	if c.Browser.InitialLoadTimeoutSeconds <= 0 {
		c.Browser.InitialLoadTimeoutSeconds = defaultLoadTimeout
	}
	if c.Browser.PageLoadTimeoutSeconds <= 0 {
		c.Browser.PageLoadTimeoutSeconds = defaultPageLoadTimeout
	}
	if c.Browser.TabClickDelaySeconds < 0 {
		c.Browser.TabClickDelaySeconds = 0
	}
	if c.Browser.PollRetries == nil {
		retries := defaultPollRetries
		c.Browser.PollRetries = &retries
	}
	if c.Browser.PollRetryDelayMs <= 0 {
		c.Browser.PollRetryDelayMs = defaultPollRetryDelayMs
	}
	if c.Browser.PollTimeoutSeconds <= 0 {
		budget := time.Duration(c.Browser.Retries())*c.Browser.PollRetryDelay() + 10*time.Second
		c.Browser.PollTimeoutSeconds = budget.Seconds()
	}

	if c.Store.Backend == StoreFirestore && c.Store.Firestore.DatabaseId == "" {
		c.Store.Firestore.DatabaseId = defaultFirestoreDatabase
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Notify.Port == 0 {
		c.Notify.Port = 587
	}
}

// FatalConfigError is returned when the configuration is missing values the
// collector cannot run without, nothing should be scraped when it occurs.
type FatalConfigError struct {
	Problems []string
}

func (e *FatalConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Problems, "; "))
}

func (c *Config) Validate() error {
	var problems []string

	if c.Source.Limit <= 0 {
		problems = append(problems, "source.limit must be greater than 0")
	}
	if !strings.Contains(c.Source.UniverseApiUrlTemplate, "{place_id}") {
		problems = append(problems, "source.universe_api_url_template must contain {place_id}")
	}
	if c.Source.DelayBetweenGamesSeconds < 0 {
		problems = append(problems, "source.delay_between_games_seconds must not be negative")
	}
	if c.Browser.Retries() < 0 {
		problems = append(problems, "browser.poll_retries must not be negative")
	}

	switch c.Store.Backend {
	case StoreFirestore:
		if c.Store.Firestore.ProjectId == "" {
			problems = append(problems, "store.firestore.project_id is required")
		}
	case StoreSqlite:
		if c.Store.Sqlite.File == "" && c.Store.Sqlite.Url == "" {
			problems = append(problems, "store.sqlite.file or store.sqlite.url is required")
		}
	case "":
		problems = append(problems, "store.backend is required")
	default:
		problems = append(problems, fmt.Sprintf("unknown store.backend %q", c.Store.Backend))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("unknown logging.level %q", c.Logging.Level))
	}

	if len(problems) > 0 {
		return &FatalConfigError{Problems: problems}
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
