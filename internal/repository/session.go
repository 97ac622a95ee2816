package repository

import (
	"context"
	"time"

	"github.com/user/spidermap/internal/entity"
)

// Locator describes how to find elements on the surface.
type Locator struct {
	// Query is a CSS selector.
	Query string
	// HasText keeps only matches whose visible text contains this string.
	HasText string
	// Frame, when set, is the CSS selector of the iframes to search inside
	// instead of the top-level document.
	Frame string
}

// CSS is shorthand for a plain selector locator.
func CSS(query string) Locator {
	return Locator{Query: query}
}

// Element addresses the Index-th match of a Locator. When Child is set the
// element is the first descendant of that match matching Child, falling back
// to the match itself.
type Element struct {
	Locator Locator
	Index   int
	Child   string
}

// First addresses the first match of l.
func (l Locator) First() Element {
	return Element{Locator: l}
}

// Nth addresses the i-th match of l.
func (l Locator) Nth(i int) Element {
	return Element{Locator: l, Index: i}
}

type Key string

const (
	KeyEnter  Key = "Enter"
	KeyEscape Key = "Escape"
)

// Session is the interactive surface the scraper drives. Implementations
// return ErrElementNotFound when an Element does not resolve, and the
// context's error when a deadline or cancellation interrupts a call.
type Session interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// Back performs a browser-level history back navigation.
	Back(ctx context.Context) error
	// CurrentURL returns the address of the current page.
	CurrentURL(ctx context.Context) (string, error)
	// Count returns how many elements currently match loc.
	Count(ctx context.Context, loc Locator) (int, error)
	// WaitVisible blocks until el is rendered and visible.
	WaitVisible(ctx context.Context, el Element) error
	Click(ctx context.Context, el Element) error
	Clear(ctx context.Context, el Element) error
	// SendKeys types keys into el.
	SendKeys(ctx context.Context, el Element, keys string) error
	// Press dispatches a single key to the focused element.
	Press(ctx context.Context, key Key) error
	// Text returns the visible text of el.
	Text(ctx context.Context, el Element) (string, error)
	// Attribute returns the value of attribute name on el and whether it is set.
	Attribute(ctx context.Context, el Element, name string) (string, bool, error)
	// HTML returns the outer HTML of el.
	HTML(ctx context.Context, el Element) (string, error)
	ScrollIntoView(ctx context.Context, el Element) error
	// ScrollElement scrolls a scrollable container by its own scroll height.
	ScrollElement(ctx context.Context, el Element) error
	// ScrollPosition returns the scrollTop of a scrollable container.
	ScrollPosition(ctx context.Context, el Element) (float64, error)
	// Wheel dispatches a viewport-level mouse wheel scroll.
	Wheel(ctx context.Context, deltaY float64) error
}

// BrowserRepository starts interactive sessions.
type BrowserRepository interface {
	// Open starts a browser configured by opts. The returned cancel func
	// releases the session and must always be called.
	Open(ctx context.Context, opts entity.BrowserOptions) (Session, context.CancelFunc, error)
}

// PollInterval is how often implementations re-check a condition while waiting.
const PollInterval = 150 * time.Millisecond
