package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"postharvest/pkg/retry"
)

// Pacer spaces out timeline fetches. Wait enforces a hard minimum interval
// between requests; Pause adds the randomized gap that follows a successful
// page so the request rhythm does not look scripted.
type Pacer struct {
	limiter   *rate.Limiter
	jitterMin time.Duration
	jitterMax time.Duration
	sleep     retry.Sleeper

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPacer creates a pacer allowing one fetch per minInterval (0 disables the
// limit) and pausing uniformly within [jitterMin, jitterMax] after successes.
func NewPacer(minInterval, jitterMin, jitterMax time.Duration) *Pacer {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Pacer{
		limiter:   rate.NewLimiter(limit, 1),
		jitterMin: jitterMin,
		jitterMax: jitterMax,
		sleep:     retry.Wait,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithSleeper replaces the sleeper used by Pause
func (p *Pacer) WithSleeper(s retry.Sleeper) *Pacer {
	p.sleep = s
	return p
}

// WithSeed makes the jitter sequence deterministic
func (p *Pacer) WithSeed(seed int64) *Pacer {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rnd = rand.New(rand.NewSource(seed))
	return p
}

// Wait blocks until the limiter admits the next fetch
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Jitter draws a delay uniformly from [jitterMin, jitterMax]
func (p *Pacer) Jitter() time.Duration {
	span := p.jitterMax - p.jitterMin
	if span <= 0 {
		return p.jitterMin
	}
	p.mu.Lock()
	f := p.rnd.Float64()
	p.mu.Unlock()
	return p.jitterMin + time.Duration(f*float64(span))
}

// Pause sleeps for a fresh jitter delay and returns it
func (p *Pacer) Pause(ctx context.Context) (time.Duration, error) {
	d := p.Jitter()
	return d, p.sleep(ctx, d)
}
