package scraper

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/spidermap/internal/repository"
)

// node is one element of a scripted page.
type node struct {
	text  string
	attrs map[string]string
	html  string
}

// view maps a CSS query to the elements it matches.
type view map[string][]node

type fakeCard struct {
	text     string
	url      string
	detail   view
	clickErr error
}

// fakeSession renders a result list built from cards and, once a card is
// clicked, that card's detail view until escape or back is pressed.
type fakeSession struct {
	cards     []fakeCard
	consent   bool
	noInput   bool
	noResults bool
	navErr    error
	hang      map[string]bool // queries whose WaitVisible never returns
	escapeErr error           // returned by Press(KeyEscape) without closing the detail view
	step      float64         // scroll offset added by each ScrollElement

	searched bool
	typed    string
	query    string
	open     int
	calls    int
	clicks   map[string]int
	pressed  []repository.Key
	wheels   int
	scrolls  int
	pos      float64
	events   []string // card clicks, back control clicks, key presses and history backs, in order
}

func newFakeSession(cards ...fakeCard) *fakeSession {
	return &fakeSession{
		cards:  cards,
		open:   -1,
		clicks: make(map[string]int),
		hang:   make(map[string]bool),
	}
}

func (f *fakeSession) current() view {
	if f.open >= 0 {
		return f.cards[f.open].detail
	}
	v := view{}
	if !f.noInput {
		v[searchInputs[0].Query] = []node{{}}
	}
	if f.consent {
		v["button"] = []node{{text: "Accept all"}}
	}
	if f.searched && !f.noResults {
		v[scrollContainers[0].Query] = []node{{}}
		for _, c := range f.cards {
			for _, loc := range cardLocators {
				v[loc.Query] = append(v[loc.Query], node{text: c.text})
			}
		}
	}
	return v
}

func (f *fakeSession) nodes(loc repository.Locator) []node {
	if loc.Frame != "" {
		return nil
	}
	ns := f.current()[loc.Query]
	if loc.HasText == "" {
		return ns
	}
	var out []node
	for _, n := range ns {
		if strings.Contains(n.text, loc.HasText) {
			out = append(out, n)
		}
	}
	return out
}

func (f *fakeSession) node(el repository.Element) (node, error) {
	ns := f.nodes(el.Locator)
	if el.Index >= len(ns) {
		return node{}, repository.ErrElementNotFound
	}
	return ns[el.Index], nil
}

func isCardQuery(q string) bool {
	for _, loc := range cardLocators {
		if loc.Query == q {
			return true
		}
	}
	return false
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	f.calls++
	if f.navErr != nil {
		return f.navErr
	}
	return ctx.Err()
}

func (f *fakeSession) Back(ctx context.Context) error {
	f.calls++
	f.events = append(f.events, "back")
	f.open = -1
	return ctx.Err()
}

func (f *fakeSession) CurrentURL(ctx context.Context) (string, error) {
	f.calls++
	if f.open >= 0 {
		return f.cards[f.open].url, nil
	}
	return "https://www.google.com/maps/search/" + f.query, nil
}

func (f *fakeSession) Count(ctx context.Context, loc repository.Locator) (int, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(f.nodes(loc)), nil
}

func (f *fakeSession) WaitVisible(ctx context.Context, el repository.Element) error {
	f.calls++
	if f.hang[el.Locator.Query] {
		<-ctx.Done()
		return ctx.Err()
	}
	_, err := f.node(el)
	return err
}

func (f *fakeSession) Click(ctx context.Context, el repository.Element) error {
	f.calls++
	n, err := f.node(el)
	if err != nil {
		return err
	}
	switch {
	case isCardQuery(el.Locator.Query):
		f.clicks[n.text]++
		f.events = append(f.events, "click:card")
		c := f.cards[el.Index]
		if c.clickErr != nil {
			return c.clickErr
		}
		f.open = el.Index
	case el.Locator.Query == "button":
		f.consent = false
	case el.Locator.Query == backButtons[0].Query:
		f.events = append(f.events, "click:back")
		f.open = -1
	}
	return nil
}

func (f *fakeSession) Clear(ctx context.Context, el repository.Element) error {
	f.calls++
	f.typed = ""
	return nil
}

func (f *fakeSession) SendKeys(ctx context.Context, el repository.Element, keys string) error {
	f.calls++
	f.typed += keys
	return nil
}

func (f *fakeSession) Press(ctx context.Context, key repository.Key) error {
	f.calls++
	f.pressed = append(f.pressed, key)
	f.events = append(f.events, "press:"+string(key))
	switch key {
	case repository.KeyEnter:
		f.searched = true
		f.query = f.typed
	case repository.KeyEscape:
		if f.escapeErr != nil {
			return f.escapeErr
		}
		f.open = -1
	}
	return nil
}

func (f *fakeSession) Text(ctx context.Context, el repository.Element) (string, error) {
	f.calls++
	n, err := f.node(el)
	return n.text, err
}

func (f *fakeSession) Attribute(ctx context.Context, el repository.Element, name string) (string, bool, error) {
	f.calls++
	n, err := f.node(el)
	if err != nil {
		return "", false, err
	}
	v, ok := n.attrs[name]
	return v, ok, nil
}

func (f *fakeSession) HTML(ctx context.Context, el repository.Element) (string, error) {
	f.calls++
	n, err := f.node(el)
	return n.html, err
}

func (f *fakeSession) ScrollIntoView(ctx context.Context, el repository.Element) error {
	f.calls++
	_, err := f.node(el)
	return err
}

func (f *fakeSession) ScrollElement(ctx context.Context, el repository.Element) error {
	f.calls++
	f.scrolls++
	f.pos += f.step
	return nil
}

func (f *fakeSession) ScrollPosition(ctx context.Context, el repository.Element) (float64, error) {
	f.calls++
	return f.pos, nil
}

func (f *fakeSession) Wheel(ctx context.Context, deltaY float64) error {
	f.calls++
	f.wheels++
	return nil
}

var (
	errClickIntercepted = errors.New("click intercepted")
	errKeyDropped       = errors.New("key event dropped")
)

// listing builds the detail view of a business, with an in-page back
// control. tel may be empty.
func listing(name, tel string) view {
	v := view{
		backButtons[0].Query:  {{attrs: map[string]string{"aria-label": "Back"}}},
		nameLocators[0].Query: {{text: name}},
		detailRegions[0].Query: {{html: `<div role="main"><h1>` + name + `</h1></div>`}},
	}
	if tel != "" {
		v[telLinks.Query] = []node{{attrs: map[string]string{"href": "tel:" + tel}}}
	}
	return v
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.PageLoadTimeout = time.Second
	opts.ConsentTimeout = 50 * time.Millisecond
	opts.SearchInputTimeout = 50 * time.Millisecond
	opts.SearchTimeout = 300 * time.Millisecond
	opts.MaxAttempts = 3
	opts.ScrollSteps = 4
	opts.StableSteps = 2
	opts.ProbeTimeout = 50 * time.Millisecond
	opts.RevealTimeout = 50 * time.Millisecond
	opts.ClickTimeout = 50 * time.Millisecond
	opts.DetailTimeout = 300 * time.Millisecond
	opts.FieldTimeout = 50 * time.Millisecond
	opts.RecoverTimeout = 50 * time.Millisecond
	opts.BackTimeout = 50 * time.Millisecond
	return opts
}

func testLogger() *zap.Logger { return zap.NewNop() }
