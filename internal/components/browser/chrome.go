package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gamestats/internal/components/telemetry"

	"github.com/chromedp/chromedp"
)

const (
	report_chrome_launch = "chrome.launch"
	report_chrome_close  = "chrome.close"
)

type ChromeOptions struct {
	Headless bool
	// RemoteUrl is the devtools websocket url of an already running chrome,
	// when set no browser process is started.
	RemoteUrl    string
	WindowWidth  int
	WindowHeight int
}

// ChromeLauncher starts sessions through chromedp.
type ChromeLauncher struct {
	opts ChromeOptions
	tel  telemetry.API
}

func NewChromeLauncher(opts ChromeOptions, tel telemetry.API) ChromeLauncher {
	return ChromeLauncher{
		opts: opts,
		tel:  telemetry.NewScopedAPI("browser", tel),
	}
}

func (l ChromeLauncher) allocator() (context.Context, context.CancelFunc) {
	// the allocator must outlive any single call's context, only Close
	// should be able to tear the browser down.
	if l.opts.RemoteUrl != "" {
		return chromedp.NewRemoteAllocator(context.Background(), l.opts.RemoteUrl)
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.WindowSize(l.opts.WindowWidth, l.opts.WindowHeight),
	)
	if !l.opts.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	return chromedp.NewExecAllocator(context.Background(), opts...)
}

func (l ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	allocCtx, allocCancel := l.allocator()
	tabCtx, tabCancel := chromedp.NewContext(
		allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			l.tel.ReportDebug("chromedp", fmt.Sprintf(format, args...))
		}),
	)

	s := &chromeSession{
		ctx:         tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		tel:         l.tel,
	}

	// the first Run allocates the browser and ties its lifetime to the
	// context it is given, so it has to be the tab context itself and not
	// a bound child. A caller giving up mid launch tears the tab down instead.
	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx)
	if !stop() && err == nil {
		err = context.Cause(ctx)
	}
	if err != nil {
		l.tel.ReportBroken(report_chrome_launch, err)
		s.Close()
		return nil, err
	}
	return s, nil
}

type chromeSession struct {
	ctx         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	tel         telemetry.API
	closeOnce   sync.Once
}

// bind derives a context from the tab that also ends when ctx does.
func (s *chromeSession) bind(ctx context.Context) (context.Context, func()) {
	runCtx, cancel := context.WithCancel(s.ctx)
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		cancelParent := cancel
		cancel = func() {
			cancelDeadline()
			cancelParent()
		}
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	runCtx, done := s.bind(ctx)
	defer done()
	return chromedp.Run(runCtx, chromedp.Navigate(url))
}

func (s *chromeSession) WaitClickable(ctx context.Context, selector string) error {
	runCtx, done := s.bind(ctx)
	defer done()
	return chromedp.Run(
		runCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.WaitEnabled(selector, chromedp.ByQuery),
	)
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.click();
	return true;
})()`, quoted)

	var clicked bool
	err = s.Evaluate(ctx, script, &clicked)
	if err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("click %s: %w", selector, ErrNotFound)
	}
	return nil
}

func (s *chromeSession) Evaluate(ctx context.Context, script string, out any) error {
	runCtx, done := s.bind(ctx)
	defer done()
	return chromedp.Run(runCtx, chromedp.Evaluate(script, out))
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	runCtx, done := s.bind(ctx)
	defer done()
	var html string
	err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *chromeSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		// Cancel closes the browser gracefully (or just the tab for a
		// remote allocator), cancelling the allocator then kills whatever is left.
		err = chromedp.Cancel(s.ctx)
		s.tabCancel()
		s.allocCancel()
		if err != nil {
			s.tel.ReportWarning(report_chrome_close, err)
		}
	})
	return err
}
