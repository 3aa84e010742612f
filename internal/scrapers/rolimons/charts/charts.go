// Package charts extracts the rendered "daily" Highcharts series from a
// Rolimons game page.
package charts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gamestats/internal/components/browser"
	"gamestats/internal/components/chrono"
	"gamestats/internal/components/telemetry"
	"gamestats/internal/stats"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_extract      = "extractor.extract"
	report_launch       = "extractor.launch"
	report_navigate     = "extractor.navigate"
	report_await_tab    = "extractor.await-tab"
	report_activate_tab = "extractor.activate-tab"
	report_poll         = "extractor.poll"
	report_titles       = "extractor.titles"
	report_release      = "extractor.release"
)

const (
	DailyTabSelector = "#daily_view_button a"
	DailyChartMarker = "daily"
	TitleSelector    = ".highcharts-title"
	UntitledChart    = "Untitled Chart"
)

type Options struct {
	// the game page is `<PageBaseUrl>/<place_id>`
	PageBaseUrl        string
	InitialLoadTimeout time.Duration
	TabClickDelay      time.Duration
	PollRetries        int
	PollRetryDelay     time.Duration
	// PollTimeout bounds the whole poll regardless of retries.
	PollTimeout time.Duration
	// PageLoadTimeout bounds navigation, which waits for the load event.
	PageLoadTimeout time.Duration
	// ActionTimeout bounds the tab click and reading the page html.
	ActionTimeout time.Duration
}

const (
	defaultPageLoadTimeout = time.Minute
	defaultActionTimeout   = 10 * time.Second
)

type Extractor struct {
	launcher browser.Launcher
	time     chrono.TimeAPI
	tel      telemetry.API
	opts     Options
}

func NewExtractor(launcher browser.Launcher, time chrono.TimeAPI, tel telemetry.API, opts Options) Extractor {
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = defaultPageLoadTimeout
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = defaultActionTimeout
	}
	return Extractor{
		launcher: launcher,
		time:     time,
		tel:      tel,
		opts:     opts,
	}
}

// Extract returns the daily charts of a game page, or nil if the page could
// not be scraped. Failures are reported, never returned.
func (e Extractor) Extract(ctx context.Context, placeID int64) (charts []stats.Chart) {
	defer func() {
		if r := recover(); r != nil {
			e.tel.ReportBroken(report_extract, placeID, fmt.Errorf("panic: %v", r))
			charts = nil
		}
	}()

	session, err := e.launcher.Launch(ctx)
	if err != nil {
		e.tel.ReportBroken(report_launch, placeID, err)
		return nil
	}
	defer func() {
		err := session.Close()
		if err != nil {
			e.tel.ReportWarning(report_release, placeID, err)
		}
	}()

	return e.extract(ctx, session, placeID)
}

func (e Extractor) extract(ctx context.Context, session browser.Session, placeID int64) []stats.Chart {
	url := fmt.Sprintf("%s/%d", e.opts.PageBaseUrl, placeID)
	e.tel.ReportDebug("navigating", placeID, url)
	navCtx, cancel := context.WithTimeout(ctx, e.opts.PageLoadTimeout)
	err := session.Navigate(navCtx, url)
	cancel()
	if err != nil {
		e.tel.ReportBroken(report_navigate, placeID, err)
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, e.opts.InitialLoadTimeout)
	err = session.WaitClickable(waitCtx, DailyTabSelector)
	cancel()
	if err != nil {
		e.tel.ReportBroken(report_await_tab, placeID, err)
		return nil
	}

	clickCtx, cancel := context.WithTimeout(ctx, e.opts.ActionTimeout)
	err = session.Click(clickCtx, DailyTabSelector)
	cancel()
	if err != nil {
		e.tel.ReportBroken(report_activate_tab, placeID, err)
		return nil
	}
	err = e.time.Sleep(ctx, e.opts.TabClickDelay)
	if err != nil {
		e.tel.ReportBroken(report_activate_tab, placeID, err)
		return nil
	}

	snapshot, complete, err := e.poll(ctx, session)
	if err != nil {
		e.tel.ReportBroken(report_poll, placeID, err)
		return nil
	}

	ready := 0
	for _, c := range snapshot {
		if c.ready() {
			ready++
		}
	}
	if !complete {
		if ready == 0 {
			e.tel.ReportWarning(
				report_poll,
				placeID,
				fmt.Errorf("no daily chart had data after %d retries", e.opts.PollRetries),
			)
			return nil
		}
		e.tel.ReportInfo(
			"partial chart data, continuing with what rendered",
			placeID,
			fmt.Sprintf("%d/%d ready", ready, len(snapshot)),
		)
	}

	htmlCtx, cancel := context.WithTimeout(ctx, e.opts.ActionTimeout)
	html, err := session.HTML(htmlCtx)
	cancel()
	if err != nil {
		e.tel.ReportBroken(report_titles, placeID, err)
		return nil
	}
	titles, err := ParseTitles(html)
	if err != nil {
		e.tel.ReportBroken(report_titles, placeID, err)
		return nil
	}

	charts := pair(titles, snapshot)
	e.tel.ReportInfo("extracted charts", placeID, len(charts))
	return charts
}

// poll snapshots the daily charts until every one of them has data or the
// retries run out. complete is false when retries ran out.
func (e Extractor) poll(ctx context.Context, session browser.Session) (snapshot []chartState, complete bool, err error) {
	pollCtx, cancel := context.WithTimeout(ctx, e.opts.PollTimeout)
	defer cancel()

	script := snapshotScript(DailyChartMarker)
	for attempt := 0; ; attempt++ {
		snapshot = nil
		err = session.Evaluate(pollCtx, script, &snapshot)
		if err != nil {
			return nil, false, fmt.Errorf("snapshot attempt %d: %w", attempt, err)
		}
		if allReady(snapshot) {
			return snapshot, true, nil
		}
		if attempt >= e.opts.PollRetries {
			return snapshot, false, nil
		}
		e.tel.ReportDebug("charts not ready, retrying", attempt+1, e.opts.PollRetries)
		err = e.time.Sleep(pollCtx, e.opts.PollRetryDelay)
		if err != nil {
			return nil, false, fmt.Errorf("wait between snapshots: %w", err)
		}
	}
}

type chartState struct {
	ID     string        `json:"id"`
	Series int           `json:"series"`
	Points []stats.Point `json:"points"`
}

func (c chartState) ready() bool {
	return c.Series > 0 && len(c.Points) > 0
}

func allReady(charts []chartState) bool {
	for _, c := range charts {
		if !c.ready() {
			return false
		}
	}
	return true
}

// snapshotScript reads every Highcharts instance rendered into an element
// whose id contains marker. Only the first series of each chart is read,
// non numeric coordinates become null.
func snapshotScript(marker string) string {
	return fmt.Sprintf(`(() => {
	const num = (v) => (typeof v === "number" && isFinite(v)) ? v : null;
	const charts = (window.Highcharts && Highcharts.charts) || [];
	return charts
		.filter((c) => c && c.renderTo && c.renderTo.id && c.renderTo.id.includes(%q))
		.map((c) => {
			const first = c.series && c.series.length > 0 ? c.series[0] : null;
			const points = first && first.data ? first.data : [];
			return {
				id: c.renderTo.id,
				series: c.series ? c.series.length : 0,
				points: points.map((p) => ({ x: num(p.x), y: num(p.y) })),
			};
		});
})()`, marker)
}

// ParseTitles returns the trimmed text of every chart title of the page, in
// document order.
func ParseTitles(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	var titles []string
	doc.Find(TitleSelector).Each(func(_ int, s *goquery.Selection) {
		titles = append(titles, strings.TrimSpace(s.Text()))
	})
	return titles, nil
}

// pair matches titles to charts by position, both are in document order.
func pair(titles []string, snapshot []chartState) []stats.Chart {
	charts := make([]stats.Chart, len(snapshot))
	for i, state := range snapshot {
		title := UntitledChart
		if i < len(titles) && titles[i] != "" {
			title = titles[i]
		}
		points := make([]stats.Point, len(state.Points))
		copy(points, state.Points)
		charts[i] = stats.Chart{Title: title, Points: points}
	}
	return charts
}
