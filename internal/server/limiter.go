package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterMaxEntries = 1024
)

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// limiterPool keeps one token bucket per sender for the message-send path.
// Buckets idle past the TTL are evicted whenever the pool is about to outgrow
// its cap, so the map does not accumulate one entry per sender forever.
type limiterPool struct {
	mu         sync.Mutex
	m          map[string]*limiterEntry
	rps        float64
	burst      int
	idleTTL    time.Duration
	maxEntries int
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 5
	}
	return &limiterPool{
		m:          make(map[string]*limiterEntry),
		rps:        rps,
		burst:      burst,
		idleTTL:    limiterIdleTTL,
		maxEntries: limiterMaxEntries,
	}
}

func (p *limiterPool) Allow(key string) bool {
	now := time.Now()

	p.mu.Lock()
	e, ok := p.m[key]
	if !ok {
		if len(p.m) >= p.maxEntries {
			p.evict(now)
		}
		e = &limiterEntry{lim: rate.NewLimiter(rate.Limit(p.rps), p.burst)}
		p.m[key] = e
	}
	e.lastSeen = now
	lim := e.lim
	p.mu.Unlock()

	return lim.Allow()
}

// evict drops idle buckets. Caller holds the lock. Senders seen within the
// TTL keep their bucket so their spent tokens cannot be reset by eviction.
func (p *limiterPool) evict(now time.Time) {
	for key, e := range p.m {
		if now.Sub(e.lastSeen) > p.idleTTL {
			delete(p.m, key)
		}
	}
}
