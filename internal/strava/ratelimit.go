package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Strava rate limits:
// - 100 requests per 15 minutes
// - 1000 requests per day

const (
	shortWindow     = 15 * time.Minute
	defaultShort    = 100
	defaultDaily    = 1000
	defaultInterval = 150 * time.Millisecond
)

// RateLimiter tracks Strava's windowed quotas and spaces out requests
type RateLimiter struct {
	mu sync.Mutex

	// 15-minute window
	shortLimit    int
	shortUsage    int
	shortResetsAt time.Time

	// Daily window
	dailyLimit    int
	dailyUsage    int
	dailyResetsAt time.Time

	spacing *rate.Limiter
	now     func() time.Time
}

// NewRateLimiter creates a limiter with Strava's default quotas
func NewRateLimiter() *RateLimiter {
	return newRateLimiter(defaultInterval, time.Now)
}

func newRateLimiter(interval time.Duration, now func() time.Time) *RateLimiter {
	t := now()
	return &RateLimiter{
		shortLimit:    defaultShort,
		shortResetsAt: t.Add(shortWindow),
		dailyLimit:    defaultDaily,
		dailyResetsAt: nextUTCMidnight(t),
		spacing:       rate.NewLimiter(rate.Every(interval), 1),
		now:           now,
	}
}

// Wait blocks until a request can be made without exceeding rate limits
func (r *RateLimiter) Wait(ctx context.Context) error {
	if wait := r.reserve(); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		r.resetExpired()
	}
	return r.spacing.Wait(ctx)
}

// reserve counts the request and returns how long to wait for an exhausted window
func (r *RateLimiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.resetLocked(now)

	var wait time.Duration
	if r.shortUsage >= r.shortLimit {
		wait = r.shortResetsAt.Sub(now)
	}
	if r.dailyUsage >= r.dailyLimit {
		if d := r.dailyResetsAt.Sub(now); d > wait {
			wait = d
		}
	}

	r.shortUsage++
	r.dailyUsage++
	return wait
}

func (r *RateLimiter) resetExpired() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked(r.now())
}

func (r *RateLimiter) resetLocked(now time.Time) {
	if !now.Before(r.shortResetsAt) {
		r.shortUsage = 0
		r.shortResetsAt = now.Add(shortWindow)
	}
	if !now.Before(r.dailyResetsAt) {
		r.dailyUsage = 0
		r.dailyResetsAt = nextUTCMidnight(now)
	}
}

func nextUTCMidnight(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
}

// UpdateFromHeaders updates rate limit state from Strava response headers
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strava returns: X-RateLimit-Limit: "100,1000" and X-RateLimit-Usage: "34,512"
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.shortUsage, r.dailyUsage = short, daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.shortLimit, r.dailyLimit = short, daily
	}
}

func parsePair(v string) (int, int, bool) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Status returns current rate limit status
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortLimit - r.shortUsage, r.dailyLimit - r.dailyUsage
}
