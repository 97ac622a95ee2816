package scraper

import "time"

// Options holds the timeouts and budgets of one run.
type Options struct {
	SurfaceURL string

	PageLoadTimeout    time.Duration
	ConsentTimeout     time.Duration
	SearchInputTimeout time.Duration
	SearchTimeout      time.Duration

	// MaxAttempts bounds the scroll/enumerate/open passes of a run.
	MaxAttempts int
	// ScrollSteps is the step budget of one scroll burst.
	ScrollSteps int
	// StableSteps ends a burst early once the scroll position moved less than
	// StableDelta pixels this many steps in a row.
	StableSteps int
	StableDelta float64

	ProbeTimeout   time.Duration // container lookup, card text reads
	RevealTimeout  time.Duration // scrolling a card into view
	ClickTimeout   time.Duration
	DetailTimeout  time.Duration
	FieldTimeout   time.Duration
	RecoverTimeout time.Duration
	BackTimeout    time.Duration
}

func DefaultOptions() Options {
	return Options{
		SurfaceURL:         defaultSurfaceURL,
		PageLoadTimeout:    60 * time.Second,
		ConsentTimeout:     time.Second,
		SearchInputTimeout: 3 * time.Second,
		SearchTimeout:      20 * time.Second,
		MaxAttempts:        80,
		ScrollSteps:        6,
		StableSteps:        5,
		StableDelta:        50,
		ProbeTimeout:       time.Second,
		RevealTimeout:      3 * time.Second,
		ClickTimeout:       5 * time.Second,
		DetailTimeout:      15 * time.Second,
		FieldTimeout:       1500 * time.Millisecond,
		RecoverTimeout:     1500 * time.Millisecond,
		BackTimeout:        5 * time.Second,
	}
}
