package worker

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/dhatu/internal/model"
	"golang.org/x/time/rate"
)

// Limiter implements per-host rate limiting
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// NewLimiterFromConfig creates a limiter from the rate limiting section
func NewLimiterFromConfig(cfg model.RateLimitingConfig) *Limiter {
	return NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
}

// Wait waits for rate limit clearance for the given URL
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := hostKey(rawURL)
	if err != nil {
		return err
	}

	return l.getLimiter(host).Wait(ctx)
}

func (l *Limiter) getLimiter(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[host]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[host] = limiter

	return limiter
}

// SetHostRate lowers the rate for one host, e.g. to honour a robots.txt
// crawl delay. A rate faster than the current one is ignored, so repeated
// calls keep the host's accumulated tokens.
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	if requestsPerSecond <= 0 {
		return
	}
	if burst <= 0 {
		burst = l.defaultBurst
	}

	limiter := l.getLimiter(strings.ToLower(host))
	if rate.Limit(requestsPerSecond) >= limiter.Limit() {
		return
	}
	limiter.SetLimit(rate.Limit(requestsPerSecond))
	limiter.SetBurst(burst)
}

// SetCrawlDelay limits the host of rawURL to one request per delay
func (l *Limiter) SetCrawlDelay(rawURL string, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	host, err := hostKey(rawURL)
	if err != nil {
		return err
	}

	l.SetHostRate(host, 1/delay.Seconds(), 1)
	return nil
}

// hostKey returns the lower-cased host of a URL
func hostKey(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return strings.ToLower(parsed.Host), nil
}
