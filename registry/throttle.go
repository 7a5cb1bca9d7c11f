package registry

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/oraclenet/registry/domain/oracle"
)

// ThrottleConfig controls the per-sender-chain ingestion limiter
// (requests-per-second plus burst), applied per oracle.ChainID so one noisy
// chain cannot starve others out of the host's one-message-at-a-time
// serialization.
type ThrottleConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultThrottleConfig returns a permissive default suitable for a single
// trusted chain set.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{RequestsPerSecond: 20, Burst: 40}
}

// Throttle rate-limits inbound operation/message processing per sending
// chain. It does not gate anything by itself; callers (e.g.
// cmd/registryd/httpapi) check Allow before invoking a Service method.
type Throttle struct {
	mu       sync.Mutex
	cfg      ThrottleConfig
	limiters map[oracle.ChainID]*rate.Limiter
}

// NewThrottle constructs a Throttle using cfg for every chain seen.
func NewThrottle(cfg ThrottleConfig) *Throttle {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond * 2)
	}
	return &Throttle{
		cfg:      cfg,
		limiters: make(map[oracle.ChainID]*rate.Limiter),
	}
}

// Allow reports whether sender may proceed right now, lazily creating a
// per-chain limiter on first sight.
func (t *Throttle) Allow(sender oracle.ChainID) bool {
	return t.limiterFor(sender).AllowN(time.Now(), 1)
}

func (t *Throttle) limiterFor(sender oracle.ChainID) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[sender]
	if !ok {
		l = rate.NewLimiter(rate.Limit(t.cfg.RequestsPerSecond), t.cfg.Burst)
		t.limiters[sender] = l
	}
	return l
}
