package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether an identity may issue another request.
type Limiter interface {
	Allow(ctx context.Context, id *Identity) error
}

// idleAfter is how long an unused bucket is kept before it is dropped.
const idleAfter = 10 * time.Minute

// TierLimiter gives every subject a token bucket sized by its tier: the
// tier's requests per minute refill continuously and the full minute's
// worth may be spent as a burst. A tier without an entry uses the default
// rate; a rate of zero or less is unlimited.
type TierLimiter struct {
	tiers      map[string]int
	defaultRPM int

	mu      sync.Mutex
	buckets map[string]*bucket
	swept   time.Time
	now     func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewTierLimiter creates a TierLimiter. tiers maps tier names to requests
// per minute.
func NewTierLimiter(tiers map[string]int, defaultRPM int) *TierLimiter {
	return &TierLimiter{
		tiers:      tiers,
		defaultRPM: defaultRPM,
		buckets:    make(map[string]*bucket),
		now:        time.Now,
	}
}

func (l *TierLimiter) rpm(tier string) int {
	if rpm, ok := l.tiers[tier]; ok {
		return rpm
	}
	return l.defaultRPM
}

// Allow takes one token from the bucket of id and returns
// ErrTooManyRequests when it is empty.
func (l *TierLimiter) Allow(_ context.Context, id *Identity) error {
	tier := id.TierName()
	rpm := l.rpm(tier)
	if rpm <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	key := tier + "/" + id.Subject
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(float64(rpm)/60), rpm)}
		l.buckets[key] = b
	}
	b.seen = now
	if !b.lim.AllowN(now, 1) {
		return ErrTooManyRequests
	}
	return nil
}

// sweep drops idle buckets at most once per idle period. A dropped bucket
// was full again anyway. Callers hold mu.
func (l *TierLimiter) sweep(now time.Time) {
	if now.Sub(l.swept) < idleAfter {
		return
	}
	for k, b := range l.buckets {
		if now.Sub(b.seen) >= idleAfter {
			delete(l.buckets, k)
		}
	}
	l.swept = now
}
