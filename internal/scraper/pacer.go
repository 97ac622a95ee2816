package scraper

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/user/spidermap/internal/entity"
)

// Pacer inserts human-like delays between interactions.
type Pacer interface {
	// Pause sleeps for a duration in [min, max) or until ctx is done.
	Pause(ctx context.Context, min, max time.Duration) error
}

// RandomPacer draws delays uniformly from the requested band, scaled by Scale,
// and adds SlowMo to every pause.
type RandomPacer struct {
	scale  float64
	slowMo time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomPacer(opts entity.PacingOptions) *RandomPacer {
	return &RandomPacer{
		scale:  opts.Scale,
		slowMo: opts.SlowMo,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *RandomPacer) Pause(ctx context.Context, min, max time.Duration) error {
	return sleep(ctx, p.delay(min, max))
}

func (p *RandomPacer) delay(min, max time.Duration) time.Duration {
	d := min
	if max > min {
		p.mu.Lock()
		d += time.Duration(p.rnd.Int63n(int64(max - min)))
		p.mu.Unlock()
	}
	return time.Duration(float64(d)*p.scale) + p.slowMo
}

// NoPacer never sleeps; it only reports cancellation.
type NoPacer struct{}

func (NoPacer) Pause(ctx context.Context, _, _ time.Duration) error {
	return ctx.Err()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
