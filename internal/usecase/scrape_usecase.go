package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/spidermap/internal/entity"
	"github.com/user/spidermap/internal/proxy"
	"github.com/user/spidermap/internal/repository"
	"github.com/user/spidermap/internal/scraper"
	"github.com/user/spidermap/pkg/config"
	"github.com/user/spidermap/pkg/metrics"
)

// Scraper runs one scrape end to end.
type Scraper interface {
	// Scrape returns the finalized records of req. When ctx is canceled
	// mid-harvest it returns the records gathered so far with ctx's error.
	Scrape(ctx context.Context, req entity.ScrapeRequest) (*entity.ScrapeResult, error)
}

type scraperUseCase struct {
	browserRepo repository.BrowserRepository
	proxies     *proxy.Manager
	opts        scraper.Options
	logger      *zap.Logger
}

// NewScraper creates the scrape use case. proxies may be nil.
func NewScraper(
	browserRepo repository.BrowserRepository,
	proxies *proxy.Manager,
	opts scraper.Options,
	logger *zap.Logger,
) Scraper {
	return &scraperUseCase{
		browserRepo: browserRepo,
		proxies:     proxies,
		opts:        opts,
		logger:      logger,
	}
}

func (uc *scraperUseCase) Scrape(ctx context.Context, req entity.ScrapeRequest) (*entity.ScrapeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	log := uc.logger.With(zap.String("query", req.Query()), zap.Int("target", req.MaxResults))

	if req.MaxResults == 0 {
		log.Info("nothing to scrape")
		return &entity.ScrapeResult{Records: []entity.Record{}}, nil
	}

	result, err := uc.run(ctx, req, log)
	duration := time.Since(start)
	if result != nil {
		result.Duration = duration
	}

	if err != nil {
		errorType := Classify(err)
		metrics.ScrapesTotal.WithLabelValues("failure", errorType).Inc()
		metrics.ScrapeDuration.WithLabelValues("failure").Observe(duration.Seconds())
		log.Error("scrape failed", zap.String("error_type", errorType), zap.Error(err))
		return result, err
	}

	metrics.ScrapesTotal.WithLabelValues("success", "").Inc()
	metrics.ScrapeDuration.WithLabelValues("success").Observe(duration.Seconds())
	log.Info("scrape finished",
		zap.Int("records", len(result.Records)),
		zap.Int("attempts", result.Attempts),
		zap.Bool("budget_exhausted", result.BudgetExhausted),
		zap.Duration("duration", duration),
	)
	return result, nil
}

func (uc *scraperUseCase) run(ctx context.Context, req entity.ScrapeRequest, log *zap.Logger) (*entity.ScrapeResult, error) {
	browserOpts := req.Browser
	if uc.proxies != nil {
		browserOpts = uc.proxies.Apply(browserOpts)
	}

	session, release, err := uc.browserRepo.Open(ctx, browserOpts)
	if err != nil {
		return nil, err
	}
	defer release()

	pacer := scraper.NewRandomPacer(req.Pacing)
	nav := scraper.NewNavigator(session, pacer, log, uc.opts)
	if err := nav.Open(ctx); err != nil {
		return nil, err
	}
	if _, err := nav.DismissConsent(ctx); err != nil {
		return nil, err
	}
	if err := nav.Search(ctx, req.Query()); err != nil {
		return nil, err
	}

	harvested, err := scraper.NewHarvester(session, pacer, log, uc.opts).
		Harvest(ctx, req.MaxResults, req.IncludeWithoutPhone)
	if harvested == nil {
		return nil, err
	}
	return &entity.ScrapeResult{
		Records:         scraper.Finalize(harvested.Records),
		Attempts:        harvested.Attempts,
		CardsOpened:     harvested.CardsOpened,
		CardsSkipped:    harvested.CardsSkipped,
		BudgetExhausted: harvested.BudgetExhausted,
	}, err
}

// Classify maps a scrape error to a metric label.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, entity.ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, repository.ErrSessionUnavailable):
		return "session"
	case errors.Is(err, scraper.ErrSurfaceUnreachable):
		return "navigation"
	case errors.Is(err, scraper.ErrSearchInputNotFound):
		return "search_input"
	case errors.Is(err, scraper.ErrSearchTimeout):
		return "search_timeout"
	default:
		return "unknown"
	}
}

// RunDefaults carries the browser and pacing settings of this process.
// Requests arriving over HTTP or the queue never choose them.
type RunDefaults struct {
	Browser entity.BrowserOptions
	Pacing  entity.PacingOptions
}

func (d RunDefaults) Apply(req entity.ScrapeRequest) entity.ScrapeRequest {
	req.Browser = d.Browser
	req.Pacing = d.Pacing
	return req
}

// DefaultsFromConfig builds RunDefaults from the loaded configuration.
func DefaultsFromConfig(cfg *config.Config) RunDefaults {
	return RunDefaults{
		Browser: entity.BrowserOptions{
			Headless:       cfg.Headless,
			Proxy:          cfg.ProxyURL,
			AcceptLanguage: cfg.AcceptLanguage,
			UserAgent:      cfg.UserAgent,
		},
		Pacing: entity.PacingOptions{
			Scale:  cfg.PacingScale,
			SlowMo: cfg.SlowMo,
		},
	}
}

// OptionsFromConfig applies the configured timeouts and budgets over
// scraper.DefaultOptions. Zero values keep the defaults.
func OptionsFromConfig(cfg *config.Config) (scraper.Options, error) {
	opts := scraper.DefaultOptions()
	if cfg.PageLoadTimeout > 0 {
		opts.PageLoadTimeout = cfg.PageLoadTimeout
	}
	if cfg.SearchTimeout > 0 {
		opts.SearchTimeout = cfg.SearchTimeout
	}
	if cfg.DetailTimeout > 0 {
		opts.DetailTimeout = cfg.DetailTimeout
	}
	if cfg.MaxAttempts < 0 || cfg.ScrollSteps < 0 {
		return opts, fmt.Errorf("max attempts and scroll steps must not be negative")
	}
	if cfg.MaxAttempts > 0 {
		opts.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.ScrollSteps > 0 {
		opts.ScrollSteps = cfg.ScrollSteps
	}
	return opts, nil
}
