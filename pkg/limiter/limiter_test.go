package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allstar/stockwatch/pkg/config"
)

func testConfig() config.RateLimitsConfig {
	return config.RateLimitsConfig{
		API:      config.RateLimitWindow{MaxRequests: 100, Window: time.Hour},
		Strict:   config.RateLimitWindow{MaxRequests: 10, Window: time.Hour},
		Generous: config.RateLimitWindow{MaxRequests: 1000, Window: time.Hour},
		Auth:     config.RateLimitWindow{MaxRequests: 5, Window: 15 * time.Minute},
		Quote:    config.RateLimitWindow{MaxRequests: 200, Window: time.Hour},
	}
}

func TestService_Check(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := New(testConfig(), WithNowFunc(func() time.Time { return now }))
	w := config.RateLimitWindow{MaxRequests: 3, Window: time.Minute}

	t.Run("allows up to the limit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			res := s.Check("user-1", w)
			require.True(t, res.Allowed, "request %d should be allowed", i+1)
			assert.Equal(t, 2-i, res.Remaining)
		}
	})

	t.Run("denies over the limit", func(t *testing.T) {
		res := s.Check("user-1", w)
		require.False(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)
		assert.Equal(t, 60, res.RetryAfter)
	})

	t.Run("retry after shrinks as the window ages", func(t *testing.T) {
		now = now.Add(45 * time.Second)
		res := s.Check("user-1", w)
		require.False(t, res.Allowed)
		assert.Equal(t, 15, res.RetryAfter)
	})

	t.Run("fresh window after expiry", func(t *testing.T) {
		now = now.Add(16 * time.Second) // past the reset boundary
		res := s.Check("user-1", w)
		require.True(t, res.Allowed)
		assert.Equal(t, 2, res.Remaining)
		assert.Equal(t, now.Add(time.Minute), res.ResetTime)
	})

	t.Run("identifiers are independent", func(t *testing.T) {
		res := s.Check("user-2", w)
		require.True(t, res.Allowed)
		assert.Equal(t, 2, res.Remaining)
	})
}

func TestService_CheckTier(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := New(testConfig(), WithNowFunc(func() time.Time { return now }))

	t.Run("tiers keep separate counters for one identifier", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			res := s.CheckTier(TierAuth, "u1")
			require.True(t, res.Allowed)
		}
		denied := s.CheckTier(TierAuth, "u1")
		require.False(t, denied.Allowed)

		// same identifier still has full api budget
		res := s.CheckTier(TierAPI, "u1")
		require.True(t, res.Allowed)
		assert.Equal(t, 99, res.Remaining)
	})

	t.Run("unknown tier allows everything", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			require.True(t, s.CheckTier("nonexistent", "u1").Allowed)
		}
	})
}

func TestService_Sweep(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := New(testConfig(), WithNowFunc(func() time.Time { return now }))
	w := config.RateLimitWindow{MaxRequests: 5, Window: time.Minute}

	s.Check("a", w)
	s.Check("b", w)
	now = now.Add(30 * time.Second)
	s.Check("c", w)

	now = now.Add(45 * time.Second) // a and b expired, c still live
	removed := s.sweep()
	assert.Equal(t, 2, removed)

	s.mu.Lock()
	_, hasC := s.entries["c"]
	s.mu.Unlock()
	assert.True(t, hasC)
}
