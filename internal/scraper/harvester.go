package scraper

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/user/spidermap/internal/entity"
	"github.com/user/spidermap/internal/repository"
	"github.com/user/spidermap/pkg/metrics"
)

// wheelDelta is the viewport scroll used when no results container resolves.
const wheelDelta = 1200

// HarvestResult is what a harvest hands to the aggregator.
type HarvestResult struct {
	Records         []entity.Record
	Attempts        int
	CardsOpened     int
	CardsSkipped    int
	BudgetExhausted bool
}

// Harvester drives the result list: scroll, enumerate unseen cards, open
// each one, extract it and return to the list, until enough records were
// accepted or the attempt budget runs out.
type Harvester struct {
	session   repository.Session
	resolver  Resolver
	extractor *DetailExtractor
	pacer     Pacer
	logger    *zap.Logger
	opts      Options
}

func NewHarvester(session repository.Session, pacer Pacer, logger *zap.Logger, opts Options) *Harvester {
	return &Harvester{
		session:   session,
		resolver:  NewResolver(session),
		extractor: NewDetailExtractor(session, logger, opts),
		pacer:     pacer,
		logger:    logger,
		opts:      opts,
	}
}

// harvestState is owned by a single Harvest call.
type harvestState struct {
	target           int
	includePhoneless bool

	visited  map[entity.CardKey]struct{}
	records  []entity.Record
	attempts int
	opened   int
	skipped  int
}

func (s *harvestState) done() bool { return len(s.records) >= s.target }

func (s *harvestState) result(exhausted bool) *HarvestResult {
	return &HarvestResult{
		Records:         s.records,
		Attempts:        s.attempts,
		CardsOpened:     s.opened,
		CardsSkipped:    s.skipped,
		BudgetExhausted: exhausted,
	}
}

type card struct {
	el  repository.Element
	key entity.CardKey
}

// Harvest collects up to target accepted records. Records without a phone
// are accepted only when includePhoneless is set. On cancellation it returns
// what was accepted so far together with ctx's error.
func (h *Harvester) Harvest(ctx context.Context, target int, includePhoneless bool) (*HarvestResult, error) {
	st := &harvestState{
		target:           target,
		includePhoneless: includePhoneless,
		visited:          make(map[entity.CardKey]struct{}),
	}
	if target <= 0 {
		return st.result(false), nil
	}

	for !st.done() {
		if st.attempts >= h.opts.MaxAttempts {
			h.logger.Info("attempt budget exhausted",
				zap.Int("attempts", st.attempts),
				zap.Int("accepted", len(st.records)),
				zap.Int("target", target),
			)
			return st.result(true), nil
		}
		st.attempts++

		if err := h.scroll(ctx); err != nil {
			return st.result(false), err
		}
		cards, err := h.enumerate(ctx, st)
		if err != nil {
			return st.result(false), err
		}
		h.logger.Debug("enumerated cards", zap.Int("attempt", st.attempts), zap.Int("unseen", len(cards)))

		for _, c := range cards {
			if st.done() {
				break
			}
			if err := h.visit(ctx, st, c); err != nil {
				return st.result(false), err
			}
		}
	}
	return st.result(false), nil
}

// scroll runs one burst against the results container, or the viewport when
// no container resolves. Only cancellation is reported.
func (h *Harvester) scroll(ctx context.Context) error {
	res := h.resolver.Resolve(ctx, candidates(scrollContainers, h.opts.ProbeTimeout))
	if err := ctx.Err(); err != nil {
		return err
	}

	last := math.NaN()
	if res.Found() {
		if pos, err := h.session.ScrollPosition(ctx, res.Element); err == nil {
			last = pos
		}
	}

	stable := 0
	for step := 0; step < h.opts.ScrollSteps; step++ {
		if !res.Found() {
			if err := h.session.Wheel(ctx, wheelDelta); err != nil && ctx.Err() == nil {
				h.logger.Debug("viewport scroll failed", zap.Error(err))
			}
		} else if err := h.session.ScrollElement(ctx, res.Element); err != nil && ctx.Err() == nil {
			h.logger.Debug("container scroll failed", zap.Error(err))
		}
		if err := h.pacer.Pause(ctx, 600*time.Millisecond, 1200*time.Millisecond); err != nil {
			return err
		}
		if !res.Found() {
			continue
		}

		pos, err := h.session.ScrollPosition(ctx, res.Element)
		if err != nil {
			continue
		}
		if !math.IsNaN(last) && math.Abs(pos-last) < h.opts.StableDelta {
			stable++
			if stable >= h.opts.StableSteps {
				h.logger.Debug("scroll position settled", zap.Float64("position", pos))
				break
			}
		} else {
			stable = 0
		}
		last = pos
	}
	return ctx.Err()
}

// enumerate lists the rendered cards whose key has not been visited yet, in
// document order, each key at most once.
func (h *Harvester) enumerate(ctx context.Context, st *harvestState) ([]card, error) {
	var (
		out  []card
		seen = make(map[entity.CardKey]struct{})
	)
	for _, loc := range cardLocators {
		n, err := h.session.Count(ctx, loc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		for i := 0; i < n; i++ {
			el := loc.Nth(i)
			key, ok := h.cardKey(ctx, el)
			if !ok {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if _, done := st.visited[key]; done {
				continue
			}
			out = append(out, card{el: el, key: key})
		}
	}
	return out, ctx.Err()
}

func (h *Harvester) cardKey(ctx context.Context, el repository.Element) (entity.CardKey, bool) {
	readCtx, cancel := context.WithTimeout(ctx, h.opts.ProbeTimeout)
	defer cancel()
	text, err := h.session.Text(readCtx, el)
	if err != nil {
		return "", false
	}
	key := entity.NewCardKey(text)
	return key, key != ""
}

// visit opens one card and extracts it. Card level failures are logged and
// skipped; only cancellation is returned.
func (h *Harvester) visit(ctx context.Context, st *harvestState, c card) error {
	// The list may have re-rendered since enumeration; the element must
	// still carry the same card.
	if key, ok := h.cardKey(ctx, c.el); !ok || key != c.key {
		metrics.CardsTotal.WithLabelValues("stale").Inc()
		h.logger.Debug("card moved since enumeration", zap.String("card", string(c.key)))
		return ctx.Err()
	}
	st.visited[c.key] = struct{}{}

	revealCtx, cancel := context.WithTimeout(ctx, h.opts.RevealTimeout)
	if err := h.session.ScrollIntoView(revealCtx, c.el); err != nil && ctx.Err() == nil {
		h.logger.Debug("card not scrolled into view", zap.Error(err))
	}
	cancel()
	if err := h.pacer.Pause(ctx, 300*time.Millisecond, 700*time.Millisecond); err != nil {
		return err
	}

	target := c.el
	target.Child = cardClickTarget
	clickCtx, cancel := context.WithTimeout(ctx, h.opts.ClickTimeout)
	err := h.session.Click(clickCtx, target)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		st.skipped++
		metrics.CardsTotal.WithLabelValues("click_failed").Inc()
		h.logger.Warn("card click failed",
			zap.String("card", string(c.key)),
			zap.Stringer("outcome", outcomeOf(err)),
			zap.Error(err),
		)
		return nil
	}
	st.opened++

	if res := waitAny(ctx, h.resolver, candidates(detailIndicators, h.opts.ProbeTimeout), h.opts.DetailTimeout); !res.Found() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		st.skipped++
		metrics.CardsTotal.WithLabelValues("detail_timeout").Inc()
		h.logger.Warn("card skipped", zap.String("card", string(c.key)), zap.Error(ErrDetailTimeout))
		return h.recover(ctx)
	}
	if err := h.pacer.Pause(ctx, 400*time.Millisecond, 900*time.Millisecond); err != nil {
		return err
	}

	rec, err := h.extractor.Extract(ctx)
	if err != nil {
		return err
	}
	h.accept(st, rec)
	return h.recover(ctx)
}

func (h *Harvester) accept(st *harvestState, rec entity.Record) {
	switch {
	case rec.Name == "":
		metrics.CardsTotal.WithLabelValues("filtered").Inc()
		h.logger.Debug("record without name dropped", zap.String("url", rec.SourceURL))
	case !rec.HasPhone() && !st.includePhoneless:
		metrics.CardsTotal.WithLabelValues("filtered").Inc()
		h.logger.Debug("record without phone dropped", zap.String("name", rec.Name))
	default:
		st.records = append(st.records, rec)
		metrics.CardsTotal.WithLabelValues("captured").Inc()
		metrics.RecordsAccepted.Inc()
		h.logger.Info("record captured",
			zap.String("name", rec.Name),
			zap.String("phone", rec.Phone),
			zap.Int("accepted", len(st.records)),
			zap.Int("target", st.target),
		)
	}
}

// recover tries escape, then an in-page back control, then browser history,
// stopping as soon as the result list is visible again. Failing every step is
// tolerated; the next pass re-enumerates from wherever the page is.
func (h *Harvester) recover(ctx context.Context) error {
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"escape", func(ctx context.Context) error {
			return h.session.Press(ctx, repository.KeyEscape)
		}},
		{"back_control", func(ctx context.Context) error {
			res := h.resolver.Resolve(ctx, candidates(backButtons, h.opts.RecoverTimeout))
			if !res.Found() {
				return repository.ErrElementNotFound
			}
			return h.session.Click(ctx, res.Element)
		}},
		{"history_back", func(ctx context.Context) error {
			backCtx, cancel := context.WithTimeout(ctx, h.opts.BackTimeout)
			defer cancel()
			return h.session.Back(backCtx)
		}},
	}

	for _, step := range steps {
		stepCtx, cancel := context.WithTimeout(ctx, h.opts.BackTimeout)
		err := step.run(stepCtx)
		cancel()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			h.logger.Debug("recovery step failed", zap.String("step", step.name), zap.Error(err))
			continue
		}
		if err := h.pacer.Pause(ctx, 300*time.Millisecond, 600*time.Millisecond); err != nil {
			return err
		}
		if h.resolver.Resolve(ctx, candidates(scrollContainers, h.opts.RecoverTimeout)).Found() {
			return nil
		}
	}
	h.logger.Debug("result list not visible after recovery")
	return ctx.Err()
}
