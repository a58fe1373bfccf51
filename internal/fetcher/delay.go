package fetcher

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/config"
)

// GaussianDelay draws pauses from a normal distribution clamped to
// [Min, Max].
type GaussianDelay struct {
	mean, stddev time.Duration
	min, max     time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGaussianDelay creates a delay source from cfg. A disabled config yields
// a delay that never waits.
func NewGaussianDelay(cfg config.DelayConfig) *GaussianDelay {
	d := &GaussianDelay{
		mean:   cfg.Mean,
		stddev: cfg.StdDev,
		min:    cfg.Min,
		max:    cfg.Max,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if !cfg.Enabled {
		d.mean, d.stddev, d.min, d.max = 0, 0, 0, 0
	}
	return d
}

// Next returns the next pause.
func (d *GaussianDelay) Next() time.Duration {
	d.mu.Lock()
	z := d.rng.NormFloat64()
	d.mu.Unlock()

	v := time.Duration(float64(d.mean) + z*float64(d.stddev))
	if v < d.min {
		v = d.min
	}
	if v > d.max {
		v = d.max
	}
	return v
}

// Sleep waits for the next pause or until ctx is done.
func (d *GaussianDelay) Sleep(ctx context.Context) error {
	wait := d.Next()
	if wait <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
