package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/user/spidermap/internal/entity"
	"github.com/user/spidermap/internal/proxy"
	"github.com/user/spidermap/internal/repository"
	"github.com/user/spidermap/internal/scraper"
	"github.com/user/spidermap/pkg/config"
)

func validRequest() entity.ScrapeRequest {
	return entity.ScrapeRequest{Region: "Los Angeles", Category: "coffee", MaxResults: 5}
}

func newTestScraper(b *stubBrowser, proxies *proxy.Manager) Scraper {
	return NewScraper(b, proxies, scraper.DefaultOptions(), zap.NewNop())
}

func TestScrapeRejectsInvalidRequest(t *testing.T) {
	b := &stubBrowser{}
	req := validRequest()
	req.Region = " "

	_, err := newTestScraper(b, nil).Scrape(context.Background(), req)
	if !errors.Is(err, entity.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
	if b.opened != 0 {
		t.Error("browser opened for an invalid request")
	}
}

func TestScrapeZeroTargetSkipsBrowser(t *testing.T) {
	b := &stubBrowser{}
	req := validRequest()
	req.MaxResults = 0

	res, err := newTestScraper(b, nil).Scrape(context.Background(), req)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if res == nil || len(res.Records) != 0 {
		t.Fatalf("result = %+v, want empty", res)
	}
	if b.opened != 0 {
		t.Error("browser opened for a zero target")
	}
}

func TestScrapeFatalErrors(t *testing.T) {
	tests := []struct {
		name    string
		browser *stubBrowser
		want    error
		label   string
	}{
		{
			name:    "session",
			browser: &stubBrowser{openErr: fmt.Errorf("%w: chrome not found", repository.ErrSessionUnavailable)},
			want:    repository.ErrSessionUnavailable,
			label:   "session",
		},
		{
			name:    "surface",
			browser: &stubBrowser{navErr: errors.New("net::ERR_CONNECTION_RESET")},
			want:    scraper.ErrSurfaceUnreachable,
			label:   "navigation",
		},
		{
			name:    "search input",
			browser: &stubBrowser{},
			want:    scraper.ErrSearchInputNotFound,
			label:   "search_input",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestScraper(tt.browser, nil).Scrape(context.Background(), validRequest())
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if got := Classify(err); got != tt.label {
				t.Errorf("Classify = %q, want %q", got, tt.label)
			}
			if tt.browser.released != tt.browser.opened {
				t.Errorf("opened %d sessions, released %d", tt.browser.opened, tt.browser.released)
			}
		})
	}
}

func TestScrapeAppliesProxyPool(t *testing.T) {
	b := &stubBrowser{}
	_, _ = newTestScraper(b, proxy.NewManager([]string{"http://pool:3128"})).Scrape(context.Background(), validRequest())
	if b.lastOpts.Proxy != "http://pool:3128" {
		t.Errorf("proxy = %q, want pool entry", b.lastOpts.Proxy)
	}
	if b.lastOpts.UserAgent == "" {
		t.Error("user agent not rotated in")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{context.Canceled, "canceled"},
		{fmt.Errorf("wrap: %w", scraper.ErrSearchTimeout), "search_timeout"},
		{entity.ErrInvalidRequest, "invalid"},
		{errors.New("boom"), "unknown"},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{MaxAttempts: 12, SearchTimeout: 0}
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if opts.MaxAttempts != 12 {
		t.Errorf("max attempts = %d", opts.MaxAttempts)
	}
	if opts.SearchTimeout != scraper.DefaultOptions().SearchTimeout {
		t.Errorf("zero search timeout replaced default: %v", opts.SearchTimeout)
	}

	if _, err := OptionsFromConfig(&config.Config{ScrollSteps: -1}); err == nil {
		t.Error("negative scroll steps accepted")
	}
}
