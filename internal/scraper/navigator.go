package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/spidermap/internal/repository"
)

// Navigator brings a session to the point where a result list is visible.
type Navigator struct {
	session  repository.Session
	resolver Resolver
	pacer    Pacer
	logger   *zap.Logger
	opts     Options
}

func NewNavigator(session repository.Session, pacer Pacer, logger *zap.Logger, opts Options) *Navigator {
	return &Navigator{
		session:  session,
		resolver: NewResolver(session),
		pacer:    pacer,
		logger:   logger,
		opts:     opts,
	}
}

// Open loads the surface. A failure here ends the run.
func (n *Navigator) Open(ctx context.Context) error {
	loadCtx, cancel := context.WithTimeout(ctx, n.opts.PageLoadTimeout)
	defer cancel()

	n.logger.Info("opening surface", zap.String("url", n.opts.SurfaceURL))
	if err := n.session.Navigate(loadCtx, n.opts.SurfaceURL); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrSurfaceUnreachable, err)
	}
	return nil
}

// DismissConsent clicks the first consent approval it can find, in the page
// or in an embedded frame. Absence of a prompt is not an error; only
// cancellation of ctx is returned.
func (n *Navigator) DismissConsent(ctx context.Context) (bool, error) {
	res := n.resolver.Resolve(ctx, consentCandidates(n.opts.ConsentTimeout))
	if !res.Found() {
		n.logger.Debug("no consent prompt", zap.Stringer("outcome", res.Outcome))
		return false, ctx.Err()
	}
	clickCtx, cancel := context.WithTimeout(ctx, n.opts.ConsentTimeout)
	defer cancel()
	if err := n.session.Click(clickCtx, res.Element); err != nil {
		n.logger.Debug("consent click failed", zap.Error(err))
		return false, ctx.Err()
	}
	n.logger.Info("consent prompt dismissed", zap.String("label", res.Element.Locator.HasText))
	if err := n.pacer.Pause(ctx, 500*time.Millisecond, time.Second); err != nil {
		return true, err
	}
	return true, nil
}

// Search types query into the first usable search input, submits it and
// waits for the result list.
func (n *Navigator) Search(ctx context.Context, query string) error {
	for _, loc := range searchInputs {
		cnt, err := n.session.Count(ctx, loc)
		if err != nil || cnt == 0 {
			continue
		}
		box := loc.First()
		waitCtx, cancel := context.WithTimeout(ctx, n.opts.SearchInputTimeout)
		err = n.session.WaitVisible(waitCtx, box)
		cancel()
		if err != nil {
			continue
		}

		n.logger.Info("searching", zap.String("query", query), zap.String("input", loc.Query))
		if err := n.submit(ctx, box, query); err != nil {
			return err
		}
		return n.waitResults(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrSearchInputNotFound
}

func (n *Navigator) submit(ctx context.Context, box repository.Element, query string) error {
	if err := n.session.Clear(ctx, box); err != nil {
		return fmt.Errorf("clear search input: %w", err)
	}
	if err := n.pacer.Pause(ctx, 200*time.Millisecond, 500*time.Millisecond); err != nil {
		return err
	}
	for _, r := range query {
		if err := n.session.SendKeys(ctx, box, string(r)); err != nil {
			return fmt.Errorf("type search query: %w", err)
		}
		if err := n.pacer.Pause(ctx, 50*time.Millisecond, 120*time.Millisecond); err != nil {
			return err
		}
	}
	if err := n.pacer.Pause(ctx, 200*time.Millisecond, 500*time.Millisecond); err != nil {
		return err
	}
	if err := n.session.Press(ctx, repository.KeyEnter); err != nil {
		return fmt.Errorf("submit search: %w", err)
	}
	return nil
}

func (n *Navigator) waitResults(ctx context.Context) error {
	res := waitAny(ctx, n.resolver, candidates(resultIndicators, 5*time.Second), n.opts.SearchTimeout)
	if res.Found() {
		n.logger.Info("results rendered", zap.String("indicator", res.Element.Locator.Query))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrSearchTimeout
}
