package chromedp_browser

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/user/spidermap/internal/repository"
)

const (
	innerTextJS = `function() { return this.innerText || this.textContent || ""; }`
	visibleJS   = `function() {
		const r = this.getBoundingClientRect();
		const s = this.ownerDocument.defaultView.getComputedStyle(this);
		return r.width > 0 && r.height > 0 && s.visibility !== "hidden" && s.display !== "none";
	}`
	clearJS = `function() {
		this.focus();
		this.value = "";
		this.dispatchEvent(new Event("input", { bubbles: true }));
	}`
	clickJS        = `function() { this.click(); }`
	scrollByJS     = `function() { this.scrollBy(0, this.scrollHeight); }`
	scrollTopJS    = `function() { return this.scrollTop; }`
	wheelX, wheelY = 690, 450
)

// Session implements repository.Session on a single chromedp tab.
type Session struct {
	tabCtx context.Context
}

func newSession(tabCtx context.Context) *Session {
	return &Session{tabCtx: tabCtx}
}

// bind returns a context that runs actions on the tab while honoring the
// deadline and cancellation of ctx. Deriving from the tab keeps the browser
// alive when ctx ends.
func (s *Session) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	if dl, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, dl)
		parent := cancel
		cancel = func() { cancelDeadline(); parent() }
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() { stop(); cancel() }
}

// run executes fn on the tab and maps interruptions to the caller's error.
func (s *Session) run(ctx context.Context, fn func(runCtx context.Context) error) error {
	runCtx, cancel := s.bind(ctx)
	defer cancel()
	err := fn(runCtx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return context.DeadlineExceeded
	}
	return err
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, func(runCtx context.Context) error {
		return chromedp.Run(runCtx, chromedp.Navigate(url))
	})
}

func (s *Session) Back(ctx context.Context) error {
	return s.run(ctx, func(runCtx context.Context) error {
		return chromedp.Run(runCtx, chromedp.NavigateBack())
	})
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := s.run(ctx, func(runCtx context.Context) error {
		return chromedp.Run(runCtx, chromedp.Location(&url))
	})
	return url, err
}

func (s *Session) Count(ctx context.Context, loc repository.Locator) (int, error) {
	var n int
	err := s.run(ctx, func(runCtx context.Context) error {
		nodes, err := s.nodes(runCtx, loc)
		n = len(nodes)
		return err
	})
	return n, err
}

// nodes lists the current matches of loc without waiting for any to appear.
func (s *Session) nodes(ctx context.Context, loc repository.Locator) ([]*cdp.Node, error) {
	roots := []*cdp.Node{nil}
	if loc.Frame != "" {
		var frames []*cdp.Node
		if err := chromedp.Run(ctx, chromedp.Nodes(loc.Frame, &frames, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
			return nil, err
		}
		roots = frames
	}

	var out []*cdp.Node
	for _, root := range roots {
		opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
		if root != nil {
			opts = append(opts, chromedp.FromNode(root))
		}
		var found []*cdp.Node
		if err := chromedp.Run(ctx, chromedp.Nodes(loc.Query, &found, opts...)); err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	if loc.HasText == "" {
		return out, nil
	}

	filtered := out[:0]
	for _, n := range out {
		var text string
		if err := callOn(ctx, n, innerTextJS, &text); err != nil {
			continue
		}
		if strings.Contains(text, loc.HasText) {
			filtered = append(filtered, n)
		}
	}
	return filtered, nil
}

// callOn evaluates a function with this bound to n. res may be nil when the
// function returns nothing.
func callOn(ctx context.Context, n *cdp.Node, function string, res any) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(n.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()
		return chromedp.CallFunctionOn(function, sink(res), onObject(obj.ObjectID)).Do(ctx)
	}))
}

// onObject binds a function call to a remote object.
func onObject(id runtime.RemoteObjectID) chromedp.CallOption {
	return func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
		return p.WithObjectID(id)
	}
}

// sink gives void calls somewhere to put their undefined result.
func sink(res any) any {
	if res != nil {
		return res
	}
	var discard *runtime.RemoteObject
	return &discard
}

// node resolves el to a single node, descending into Child when set.
func (s *Session) node(ctx context.Context, el repository.Element) (*cdp.Node, error) {
	nodes, err := s.nodes(ctx, el.Locator)
	if err != nil {
		return nil, err
	}
	if el.Index >= len(nodes) {
		return nil, repository.ErrElementNotFound
	}
	n := nodes[el.Index]
	if el.Child == "" {
		return n, nil
	}
	var children []*cdp.Node
	if err := chromedp.Run(ctx, chromedp.Nodes(el.Child, &children, chromedp.ByQueryAll, chromedp.AtLeast(0), chromedp.FromNode(n))); err != nil {
		return nil, err
	}
	if len(children) > 0 {
		return children[0], nil
	}
	return n, nil
}

// onNode resolves el and hands the node to fn.
func (s *Session) onNode(ctx context.Context, el repository.Element, fn func(runCtx context.Context, n *cdp.Node) error) error {
	return s.run(ctx, func(runCtx context.Context) error {
		n, err := s.node(runCtx, el)
		if err != nil {
			return err
		}
		return fn(runCtx, n)
	})
}

func (s *Session) WaitVisible(ctx context.Context, el repository.Element) error {
	return s.run(ctx, func(runCtx context.Context) error {
		ticker := time.NewTicker(repository.PollInterval)
		defer ticker.Stop()
		for {
			if n, err := s.node(runCtx, el); err == nil {
				var visible bool
				if err := callOn(runCtx, n, visibleJS, &visible); err == nil && visible {
					return nil
				}
			}
			select {
			case <-runCtx.Done():
				return runCtx.Err()
			case <-ticker.C:
			}
		}
	})
}

func (s *Session) Click(ctx context.Context, el repository.Element) error {
	return s.onNode(ctx, el, func(runCtx context.Context, n *cdp.Node) error {
		// Frame nodes report frame-relative boxes; click them from script.
		if el.Locator.Frame != "" {
			return callOn(runCtx, n, clickJS, nil)
		}
		if err := chromedp.Run(runCtx, chromedp.MouseClickNode(n)); err != nil {
			return callOn(runCtx, n, clickJS, nil)
		}
		return nil
	})
}

func (s *Session) Clear(ctx context.Context, el repository.Element) error {
	return s.onNode(ctx, el, func(runCtx context.Context, n *cdp.Node) error {
		return callOn(runCtx, n, clearJS, nil)
	})
}

func (s *Session) SendKeys(ctx context.Context, el repository.Element, keys string) error {
	return s.onNode(ctx, el, func(runCtx context.Context, n *cdp.Node) error {
		return chromedp.Run(runCtx,
			dom.Focus().WithNodeID(n.NodeID),
			chromedp.KeyEvent(keys),
		)
	})
}

func (s *Session) Press(ctx context.Context, key repository.Key) error {
	var k string
	switch key {
	case repository.KeyEnter:
		k = kb.Enter
	case repository.KeyEscape:
		k = kb.Escape
	default:
		k = string(key)
	}
	return s.run(ctx, func(runCtx context.Context) error {
		return chromedp.Run(runCtx, chromedp.KeyEvent(k))
	})
}

func (s *Session) Text(ctx context.Context, el repository.Element) (string, error) {
	var text string
	err := s.onNode(ctx, el, func(runCtx context.Context, n *cdp.Node) error {
		return callOn(runCtx, n, innerTextJS, &text)
	})
	return text, err
}

// Attribute reads from the node snapshot taken when el was resolved.
func (s *Session) Attribute(ctx context.Context, el repository.Element, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := s.onNode(ctx, el, func(_ context.Context, n *cdp.Node) error {
		value, ok = n.Attribute(name)
		return nil
	})
	return value, ok, err
}

func (s *Session) HTML(ctx context.Context, el repository.Element) (string, error) {
	var html string
	err := s.onNode(ctx, el, func(runCtx context.Context, n *cdp.Node) error {
		return chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			html, err = dom.GetOuterHTML().WithNodeID(n.NodeID).Do(ctx)
			return err
		}))
	})
	return html, err
}

func (s *Session) ScrollIntoView(ctx context.Context, el repository.Element) error {
	return s.onNode(ctx, el, func(runCtx context.Context, n *cdp.Node) error {
		return chromedp.Run(runCtx, dom.ScrollIntoViewIfNeeded().WithNodeID(n.NodeID))
	})
}

func (s *Session) ScrollElement(ctx context.Context, el repository.Element) error {
	return s.onNode(ctx, el, func(runCtx context.Context, n *cdp.Node) error {
		return callOn(runCtx, n, scrollByJS, nil)
	})
}

func (s *Session) ScrollPosition(ctx context.Context, el repository.Element) (float64, error) {
	var pos float64
	err := s.onNode(ctx, el, func(runCtx context.Context, n *cdp.Node) error {
		return callOn(runCtx, n, scrollTopJS, &pos)
	})
	return pos, err
}

func (s *Session) Wheel(ctx context.Context, deltaY float64) error {
	return s.run(ctx, func(runCtx context.Context) error {
		return chromedp.Run(runCtx, input.DispatchMouseEvent(input.MouseWheel, wheelX, wheelY).
			WithDeltaX(0).
			WithDeltaY(deltaY))
	})
}
