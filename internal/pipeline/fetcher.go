package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/dhatu/internal/cache"
	"github.com/ppiankov/dhatu/internal/logging"
	"github.com/ppiankov/dhatu/internal/model"
	"github.com/ppiankov/dhatu/internal/util"
	"github.com/ppiankov/dhatu/internal/worker"
	"go.uber.org/zap"
)

// ErrDisallowed is returned when robots.txt forbids fetching a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// fetchBackoff is swapped out in tests to skip backoff
var fetchBackoff = time.After

const (
	maxRedirects   = 3
	initialBackoff = 500 * time.Millisecond
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, http.StatusText(e.Code))
}

// transportError marks a failed round trip (connection refused, reset, timeout)
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "fetch: " + e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }

// Fetcher fetches documents from URLs
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	maxRetries int
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	cache      cache.Cache
	logger     *zap.Logger
}

// FetcherOption customises a Fetcher
type FetcherOption func(*Fetcher)

// WithLimiter rate-limits requests per host
func WithLimiter(l *worker.Limiter) FetcherOption {
	return func(f *Fetcher) { f.limiter = l }
}

// WithCache serves repeated URLs from c
func WithCache(c cache.Cache) FetcherOption {
	return func(f *Fetcher) { f.cache = c }
}

// WithFetchLogger sets the fetcher logger
func WithFetchLogger(l *zap.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = logging.OrNop(l) }
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(cfg model.HTTPConfig, opts ...FetcherOption) (*Fetcher, error) {
	proxy, err := util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy)
	if err != nil {
		return nil, &model.ConfigError{Source: "http", Field: "proxy", Err: err}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxy

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
		maxRetries: cfg.MaxRetries,
		logger:     logging.Nop(),
	}
	if f.maxRetries <= 0 {
		f.maxRetries = 1
	}

	for _, opt := range opts {
		opt(f)
	}

	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(f.httpClient, cfg.UserAgent, f.logger)
	}

	return f, nil
}

// FetchResult contains the fetched body and metadata
type FetchResult struct {
	Body     []byte          `json:"body"`
	Meta     model.FetchMeta `json:"meta"`
	Subject  string          `json:"subject"`
	FinalURL string          `json:"final_url"`
}

// FetchWithRetry fetches a URL, consulting the cache, robots.txt and the
// rate limiter first. Transient failures (429, 5xx, network errors) are
// retried with exponential backoff.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	key := cache.Key(rawURL)
	if cached, ok := f.fromCache(key); ok {
		f.logger.Debug("fetch served from cache", zap.String("url", rawURL))
		return cached, nil
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		if f.limiter != nil {
			if err := f.limiter.SetCrawlDelay(rawURL, delay); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
		}
	}

	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, rawURL); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			f.store(key, result)
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || attempt == f.maxRetries {
			break
		}

		f.logger.Debug("retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-fetchBackoff(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}

	return nil, lastErr
}

// Fetch performs a single GET request
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	meta := model.FetchMeta{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
		Headers:      make(map[string]string),
	}

	for _, key := range []string{"Content-Length", "Content-Language", "Server", "Cache-Control"} {
		if val := resp.Header.Get(key); val != "" {
			meta.Headers[key] = val
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	reader := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := resp.Request.URL.String()

	return &FetchResult{
		Body:     body,
		Meta:     meta,
		Subject:  extractSubject(finalURL),
		FinalURL: finalURL,
	}, nil
}

func (f *Fetcher) fromCache(key string) (*FetchResult, bool) {
	if f.cache == nil {
		return nil, false
	}
	data, ok := f.cache.Get(key)
	if !ok {
		return nil, false
	}

	var result FetchResult
	if err := json.Unmarshal(data, &result); err != nil {
		f.logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		_ = f.cache.Delete(key)
		return nil, false
	}
	result.Meta.FromCache = true
	return &result, true
}

func (f *Fetcher) store(key string, result *FetchResult) {
	if f.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := f.cache.Set(key, data, 0); err != nil {
		f.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// isRetryableFetchError reports whether a fetch error is worth retrying
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	var transportErr *transportError
	return errors.As(err, &transportErr)
}

// extractSubject extracts a human-readable subject from the URL
func extractSubject(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]

	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")

	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}

	return last
}
