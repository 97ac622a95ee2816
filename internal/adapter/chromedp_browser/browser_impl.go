package chromedp_browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/spidermap/internal/entity"
	"github.com/user/spidermap/internal/repository"
)

const (
	defaultUserAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36`
	defaultLanguage  = "en-US,en;q=0.9"
	windowWidth      = 1380
	windowHeight     = 900
)

const hideWebdriverJS = `Object.defineProperty(navigator, "webdriver", { get: () => undefined });`

type BrowserRepoImpl struct {
	logger *zap.Logger
}

// NewBrowserRepo creates a browser repository that launches a local Chrome per session.
func NewBrowserRepo(logger *zap.Logger) repository.BrowserRepository {
	return &BrowserRepoImpl{logger: logger}
}

// Open launches Chrome, applies language and identity overrides and returns
// a session on its first tab.
func (b *BrowserRepoImpl) Open(ctx context.Context, opts entity.BrowserOptions) (repository.Session, context.CancelFunc, error) {
	proxy, err := parseProxy(opts.Proxy)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", repository.ErrSessionUnavailable, err)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	lang := opts.AcceptLanguage
	if lang == "" {
		lang = defaultLanguage
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-site-isolation-trials", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("lang", primaryLanguage(lang)),
		chromedp.UserAgent(ua),
		chromedp.WindowSize(windowWidth, windowHeight),
	)
	if proxy.server != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(proxy.server))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(b.logger.Sugar().Debugf))
	release := func() {
		cancelTab()
		cancelAlloc()
	}

	if proxy.username != "" {
		listenProxyAuth(tabCtx, proxy)
	}

	// The first Run starts the browser and must use the tab context itself;
	// ctx only aborts the start.
	stop := context.AfterFunc(ctx, release)
	err = chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": lang}),
		emulation.SetUserAgentOverride(ua).WithAcceptLanguage(lang),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriverJS).Do(ctx)
			return err
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if proxy.username == "" {
				return nil
			}
			return fetch.Enable().WithHandleAuthRequests(true).Do(ctx)
		}),
	)
	stop()
	if err != nil {
		release()
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, fmt.Errorf("%w: %v", repository.ErrSessionUnavailable, err)
	}

	b.logger.Info("browser session started",
		zap.Bool("headless", opts.Headless),
		zap.String("proxy", proxy.server),
		zap.String("accept_language", lang),
	)
	return newSession(tabCtx), release, nil
}

// listenProxyAuth answers proxy credential challenges and resumes the
// requests paused while fetch interception is on.
func listenProxyAuth(tabCtx context.Context, proxy proxyConfig) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *fetch.EventRequestPaused:
			go func() {
				execCtx := cdp.WithExecutor(tabCtx, chromedp.FromContext(tabCtx).Target)
				_ = fetch.ContinueRequest(e.RequestID).Do(execCtx)
			}()
		case *fetch.EventAuthRequired:
			go func() {
				execCtx := cdp.WithExecutor(tabCtx, chromedp.FromContext(tabCtx).Target)
				_ = fetch.ContinueWithAuth(e.RequestID, &fetch.AuthChallengeResponse{
					Response: fetch.AuthChallengeResponseResponseProvideCredentials,
					Username: proxy.username,
					Password: proxy.password,
				}).Do(execCtx)
			}()
		}
	})
}

type proxyConfig struct {
	server   string // scheme://host:port, as Chrome expects it
	username string
	password string
}

// parseProxy splits credentials off a proxy URL. Chrome takes them through
// an auth challenge, never on the command line.
func parseProxy(raw string) (proxyConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return proxyConfig{}, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return proxyConfig{}, fmt.Errorf("invalid proxy %q: %w", raw, err)
	}
	if u.Host == "" {
		return proxyConfig{}, fmt.Errorf("invalid proxy %q: missing host", raw)
	}
	cfg := proxyConfig{server: u.Scheme + "://" + u.Host}
	if u.User != nil {
		cfg.username = u.User.Username()
		cfg.password, _ = u.User.Password()
	}
	return cfg, nil
}

// primaryLanguage returns the first tag of an Accept-Language value.
func primaryLanguage(acceptLanguage string) string {
	tag, _, _ := strings.Cut(acceptLanguage, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.TrimSpace(tag)
}
