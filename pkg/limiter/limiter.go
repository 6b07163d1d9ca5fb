// Package limiter implements a fixed-window in-memory rate limiter keyed by
// identifier. Counters reset at hard window boundaries and live only for the
// process lifetime - a restart silently clears all of them.
package limiter

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/allstar/stockwatch/pkg/config"
)

// Well-known tier names, each an independent keyspace
const (
	TierAPI      = "api"
	TierStrict   = "strict"
	TierGenerous = "generous"
	TierAuth     = "auth"
	TierQuote    = "quote"
)

// Result of a rate limit check
type Result struct {
	Allowed    bool
	Remaining  int
	ResetTime  time.Time
	RetryAfter int // seconds until the window resets, set only when denied
}

type entry struct {
	count     int
	resetTime time.Time
}

// Service is an instance-scoped rate limiter with named tiers. Construct with
// New, optionally start the sweep with Run; tests create isolated instances.
type Service struct {
	tiers         map[string]config.RateLimitWindow
	sweepInterval time.Duration
	nowFn         func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// Option customizes a Service
type Option func(*Service)

// WithSweepInterval overrides the periodic cleanup interval
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) { s.sweepInterval = d }
}

// WithNowFunc overrides the clock, used by tests
func WithNowFunc(fn func() time.Time) Option {
	return func(s *Service) { s.nowFn = fn }
}

// New creates a rate limiter service with the given named tiers
func New(cfg config.RateLimitsConfig, opts ...Option) *Service {
	s := &Service{
		tiers: map[string]config.RateLimitWindow{
			TierAPI:      cfg.API,
			TierStrict:   cfg.Strict,
			TierGenerous: cfg.Generous,
			TierAuth:     cfg.Auth,
			TierQuote:    cfg.Quote,
		},
		sweepInterval: 5 * time.Minute,
		nowFn:         time.Now,
		entries:       make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check applies the window to the identifier and reports whether the request
// is allowed. First request, or first after expiry, resets the counter.
func (s *Service) Check(identifier string, w config.RateLimitWindow) Result {
	now := s.nowFn()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[identifier]

	// entry doesn't exist or has expired
	if !ok || e.resetTime.Before(now) {
		reset := now.Add(w.Window)
		s.entries[identifier] = &entry{count: 1, resetTime: reset}
		return Result{Allowed: true, Remaining: w.MaxRequests - 1, ResetTime: reset}
	}

	if e.count < w.MaxRequests {
		e.count++
		return Result{Allowed: true, Remaining: w.MaxRequests - e.count, ResetTime: e.resetTime}
	}

	// limit exceeded
	retryAfter := int(math.Ceil(e.resetTime.Sub(now).Seconds()))
	return Result{Allowed: false, Remaining: 0, ResetTime: e.resetTime, RetryAfter: retryAfter}
}

// CheckTier applies a named tier to the identifier; the tier name prefixes the
// key so tiers never share counters. Unknown tiers allow everything.
func (s *Service) CheckTier(tier, identifier string) Result {
	w, ok := s.tiers[tier]
	if !ok {
		return Result{Allowed: true, Remaining: math.MaxInt32}
	}
	return s.Check(tier+":"+identifier, w)
}

// Run sweeps expired entries periodically until the context is canceled.
// Expiry is otherwise lazy, the sweep only bounds memory.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.sweep()
			if removed > 0 {
				lgr.Printf("[DEBUG] rate limiter swept %d expired entries", removed)
			}
		}
	}
}

// sweep removes expired entries, returns the number removed
func (s *Service) sweep() int {
	now := s.nowFn()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if e.resetTime.Before(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}
