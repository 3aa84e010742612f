// Package browsertest provides in-memory browser sessions for tests.
package browsertest

import (
	"context"
	"encoding/json"
	"sync"

	"gamestats/internal/components/browser"
)

// Session is a scripted browser.Session. Each Evaluate call returns the next
// entry of Results (the last entry repeats once they run out), encoded and
// decoded through JSON the way a real page result would be.
type Session struct {
	NavigateErr error
	WaitErr     error
	ClickErr    error
	Results     []any
	// EvaluateErrs maps the index of an Evaluate call to the error it fails with.
	EvaluateErrs map[int]error
	// PanicAt makes the Evaluate call with this index panic, -1 disables it.
	PanicAt int
	Page    string
	HTMLErr error
	// the Block fields make the call hang until its context is done, like a
	// page that never finishes loading.
	NavigateBlocks bool
	ClickBlocks    bool
	HTMLBlocks     bool

	mutex       sync.Mutex
	deadlines   map[string]bool
	navigated   []string
	clicked     []string
	evaluations int
	closes      int
}

func NewSession(page string, results ...any) *Session {
	return &Session{Page: page, Results: results, PanicAt: -1}
}

func (s *Session) observe(ctx context.Context, method string) {
	_, ok := ctx.Deadline()
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.deadlines == nil {
		s.deadlines = map[string]bool{}
	}
	s.deadlines[method] = ok
}

func block(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.observe(ctx, "Navigate")
	s.mutex.Lock()
	s.navigated = append(s.navigated, url)
	s.mutex.Unlock()
	if s.NavigateBlocks {
		return block(ctx)
	}
	return s.NavigateErr
}

func (s *Session) WaitClickable(ctx context.Context, selector string) error {
	s.observe(ctx, "WaitClickable")
	if s.WaitErr != nil {
		return s.WaitErr
	}
	return ctx.Err()
}

func (s *Session) Click(ctx context.Context, selector string) error {
	s.observe(ctx, "Click")
	s.mutex.Lock()
	s.clicked = append(s.clicked, selector)
	s.mutex.Unlock()
	if s.ClickBlocks {
		return block(ctx)
	}
	return s.ClickErr
}

func (s *Session) Evaluate(ctx context.Context, script string, out any) error {
	s.observe(ctx, "Evaluate")
	s.mutex.Lock()
	idx := s.evaluations
	s.evaluations++
	s.mutex.Unlock()

	if idx == s.PanicAt {
		panic("page crashed")
	}
	if err := s.EvaluateErrs[idx]; err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.Results) == 0 {
		return nil
	}

	result := s.Results[len(s.Results)-1]
	if idx < len(s.Results) {
		result = s.Results[idx]
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, out)
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	s.observe(ctx, "HTML")
	if s.HTMLBlocks {
		return "", block(ctx)
	}
	return s.Page, s.HTMLErr
}

func (s *Session) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.closes++
	return nil
}

func (s *Session) Navigated() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.navigated...)
}

func (s *Session) Clicked() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.clicked...)
}

func (s *Session) Evaluations() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.evaluations
}

// HadDeadline reports whether the last call of the named method (ex.
// "Navigate") was given a context with a deadline.
func (s *Session) HadDeadline(method string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.deadlines[method]
}

func (s *Session) Closes() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.closes
}

// Launcher hands out a new Session per launch.
type Launcher struct {
	// NewSession builds the session for the n-th launch (starting at 0).
	NewSession func(n int) *Session
	Err        error

	mutex    sync.Mutex
	sessions []*Session
}

func (l *Launcher) Launch(ctx context.Context) (browser.Session, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	s := l.NewSession(len(l.sessions))
	l.sessions = append(l.sessions, s)
	return s, nil
}

func (l *Launcher) Sessions() []*Session {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return append([]*Session(nil), l.sessions...)
}

// Single returns a Launcher that always launches the same session.
func Single(s *Session) *Launcher {
	return &Launcher{NewSession: func(int) *Session { return s }}
}
