package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/user/spidermap/internal/repository"
)

var (
	ErrSurfaceUnreachable  = errors.New("target surface could not be loaded")
	ErrSearchInputNotFound = errors.New("search input not found")
	ErrSearchTimeout       = errors.New("search results did not appear in time")
	ErrDetailTimeout       = errors.New("detail view did not load in time")
)

// Outcome is the result of a single interaction with the surface.
type Outcome int

const (
	NotFound Outcome = iota
	Found
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case TimedOut:
		return "timed_out"
	default:
		return "not_found"
	}
}

// outcomeOf maps a session error onto an Outcome.
func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return Found
	case errors.Is(err, context.DeadlineExceeded):
		return TimedOut
	default:
		return NotFound
	}
}

// Candidate is one entry of a fallback chain: a locator and how long to wait
// for its first match to become visible.
type Candidate struct {
	Locator repository.Locator
	Timeout time.Duration
}

// Resolution is the answer of a Resolver. Element is only meaningful when
// Outcome is Found.
type Resolution struct {
	Outcome Outcome
	Element repository.Element
}

func (r Resolution) Found() bool { return r.Outcome == Found }

// Resolver walks a fallback chain and returns the first candidate that
// resolves to a visible element.
type Resolver interface {
	Resolve(ctx context.Context, candidates []Candidate) Resolution
}

type firstMatchResolver struct {
	session repository.Session
}

func NewResolver(session repository.Session) Resolver {
	return &firstMatchResolver{session: session}
}

// Resolve skips candidates with no current match without waiting, and waits
// up to the candidate timeout for the first match of the others. It reports
// TimedOut when nothing resolved and at least one wait ran out of time.
func (r *firstMatchResolver) Resolve(ctx context.Context, candidates []Candidate) Resolution {
	timedOut := false
	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		n, err := r.session.Count(ctx, c.Locator)
		if err != nil || n == 0 {
			continue
		}
		el := c.Locator.First()
		waitCtx, cancel := context.WithTimeout(ctx, c.Timeout)
		err = r.session.WaitVisible(waitCtx, el)
		cancel()
		switch outcomeOf(err) {
		case Found:
			return Resolution{Outcome: Found, Element: el}
		case TimedOut:
			timedOut = true
		}
	}
	if timedOut || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Resolution{Outcome: TimedOut}
	}
	return Resolution{Outcome: NotFound}
}

// waitAny polls the chain until one candidate resolves or total elapses.
func waitAny(ctx context.Context, r Resolver, candidates []Candidate, total time.Duration) Resolution {
	waitCtx, cancel := context.WithTimeout(ctx, total)
	defer cancel()
	for {
		if res := r.Resolve(waitCtx, candidates); res.Found() {
			return res
		}
		if err := sleep(waitCtx, repository.PollInterval); err != nil {
			return Resolution{Outcome: outcomeOf(err)}
		}
	}
}
