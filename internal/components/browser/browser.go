package browser

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a selector matches no element.
var ErrNotFound = errors.New("element not found")

// Session is a single browser tab. Deadlines and cancellation of the context
// passed to each method bound that call only, Close releases the tab (and the
// browser process when the session owns one).
//
// note: fault injection point
type Session interface {
	Navigate(ctx context.Context, url string) error
	// WaitClickable blocks until the first element matching the css selector
	// is visible and enabled.
	WaitClickable(ctx context.Context, selector string) error
	// Click calls the element's click() in the page instead of dispatching
	// pointer events, so overlays and layout shifts cannot swallow it.
	Click(ctx context.Context, selector string) error
	// Evaluate runs a javascript expression in the page and decodes its JSON
	// result into out.
	Evaluate(ctx context.Context, script string, out any) error
	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Launcher starts a fresh Session, nothing is shared between sessions.
//
// note: fault injection point
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}
