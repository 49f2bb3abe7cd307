package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/dhatu/internal/cache"
	"github.com/ppiankov/dhatu/internal/model"
	"github.com/ppiankov/dhatu/internal/worker"
)

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "test-agent",
		MaxBodyBytes: 1 << 20,
		MaxRetries:   3,
	}
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchBackoff
	fetchBackoff = func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
	t.Cleanup(func() { fetchBackoff = orig })
}

func newTestFetcher(t *testing.T, cfg model.HTTPConfig, opts ...FetcherOption) *Fetcher {
	t.Helper()
	f, err := NewFetcher(cfg, opts...)
	if err != nil {
		t.Fatalf("NewFetcher failed: %v", err)
	}
	return f
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("Expected User-Agent test-agent, got %s", got)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("ETag", `"v1"`)
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, testHTTPConfig())
	result, err := fetcher.FetchWithRetry(context.Background(), server.URL+"/wiki/Verbal_root")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(result.Body) != "<html><body>OK</body></html>" {
		t.Errorf("Unexpected body: %s", result.Body)
	}
	if result.Meta.StatusCode != http.StatusOK || result.Meta.ETag != `"v1"` {
		t.Errorf("Unexpected meta: %+v", result.Meta)
	}
	if result.Subject != "Verbal root" {
		t.Errorf("Expected subject 'Verbal root', got %q", result.Subject)
	}
	if result.Meta.FromCache {
		t.Error("Expected a network fetch, got a cache hit")
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()

	noSleep(t)

	fetcher := newTestFetcher(t, testHTTPConfig())
	result, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(result.Body) != "OK" {
		t.Errorf("Unexpected body: %s", result.Body)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	noSleep(t)

	fetcher := newTestFetcher(t, testHTTPConfig())
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("Expected StatusError 404, got %v", err)
	}
	if got := err.Error(); got != "unexpected status: 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt for 404, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	noSleep(t)

	fetcher := newTestFetcher(t, testHTTPConfig())
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_429Retried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()

	noSleep(t)

	fetcher := newTestFetcher(t, testHTTPConfig())
	if _, err := fetcher.FetchWithRetry(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected success after 429 retry, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestFetch_TruncatesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "0123456789")
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.MaxBodyBytes = 4
	result, err := newTestFetcher(t, cfg).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(result.Body) != "0123" {
		t.Errorf("Expected body truncated to 0123, got %s", result.Body)
	}
}

func TestFetchWithRetry_ServesFromCache(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "cached body")
	}))
	defer server.Close()

	c := cache.NewMemoryCache(time.Minute, time.Minute)
	fetcher := newTestFetcher(t, testHTTPConfig(), WithCache(c))

	first, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	second, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Second fetch failed: %v", err)
	}

	if attempts.Load() != 1 {
		t.Errorf("Expected 1 network request, got %d", attempts.Load())
	}
	if first.Meta.FromCache || !second.Meta.FromCache {
		t.Errorf("Expected only the second fetch from cache, got %v/%v", first.Meta.FromCache, second.Meta.FromCache)
	}
	if string(second.Body) != "cached body" || second.Meta.ContentType != "text/plain" {
		t.Errorf("Unexpected cached result: %+v", second)
	}
}

func TestFetchWithRetry_DiscardsCorruptCacheEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "fresh")
	}))
	defer server.Close()

	c := cache.NewMemoryCache(time.Minute, time.Minute)
	if err := c.Set(cache.Key(server.URL), []byte("not json"), 0); err != nil {
		t.Fatal(err)
	}

	result, err := newTestFetcher(t, testHTTPConfig(), WithCache(c)).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.Meta.FromCache || string(result.Body) != "fresh" {
		t.Errorf("Expected fresh fetch, got %+v", result)
	}
}

func TestFetchWithRetry_RespectsRobots(t *testing.T) {
	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
			return
		}
		pageHits.Add(1)
		_, _ = fmt.Fprint(w, "page")
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.RespectRobots = true
	fetcher := newTestFetcher(t, cfg)

	_, err := fetcher.FetchWithRetry(context.Background(), server.URL+"/private/doc")
	if !errors.Is(err, ErrDisallowed) {
		t.Fatalf("Expected ErrDisallowed, got %v", err)
	}
	if _, err := fetcher.FetchWithRetry(context.Background(), server.URL+"/public/doc"); err != nil {
		t.Fatalf("Expected public page allowed, got %v", err)
	}
	if pageHits.Load() != 1 {
		t.Errorf("Expected 1 page request, got %d", pageHits.Load())
	}
}

func TestFetchWithRetry_CancelDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	orig := fetchBackoff
	fetchBackoff = func(time.Duration) <-chan time.Time { return nil }
	t.Cleanup(func() { fetchBackoff = orig })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := newTestFetcher(t, testHTTPConfig()).FetchWithRetry(ctx, server.URL)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected deadline exceeded, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("FetchWithRetry kept waiting after the context ended")
	}
}

func TestFetchWithRetry_CrawlDelayLimitsHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nCrawl-delay: 0.2\n")
			return
		}
		_, _ = fmt.Fprint(w, "page")
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.RespectRobots = true
	fetcher := newTestFetcher(t, cfg, WithLimiter(worker.NewLimiter(100, 5)))

	start := time.Now()
	for _, path := range []string{"/a", "/b", "/c"} {
		if _, err := fetcher.FetchWithRetry(context.Background(), server.URL+path); err != nil {
			t.Fatalf("Fetch %s failed: %v", path, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 350*time.Millisecond {
		t.Errorf("Expected crawl delay to space requests, took %v", elapsed)
	}
}

func TestNewFetcher_InvalidProxy(t *testing.T) {
	cfg := testHTTPConfig()
	cfg.HTTPProxy = "://bad"

	_, err := NewFetcher(cfg)
	var cfgErr *model.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "proxy" {
		t.Fatalf("Expected proxy ConfigError, got %v", err)
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), false},
		{"500", &StatusError{Code: 500}, true},
		{"503", &StatusError{Code: 503}, true},
		{"429", &StatusError{Code: 429}, true},
		{"404", &StatusError{Code: 404}, false},
		{"403", &StatusError{Code: 403}, false},
		{"transport", &transportError{err: errors.New("connection refused")}, true},
		{"wrapped transport", fmt.Errorf("fetch: %w", &transportError{err: errors.New("reset")}), true},
		{"transport timeout", &transportError{err: context.DeadlineExceeded}, false},
		{"other", errors.New("create request: bad url"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableFetchError(tt.err); got != tt.want {
				t.Errorf("isRetryableFetchError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestExtractSubject(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://en.wikipedia.org/wiki/Verbal_root", "Verbal root"},
		{"https://example.com/corpus/sentences.json", "sentences"},
		{"https://example.com/notes/semantic-primes/", "semantic primes"},
		{"https://example.com/", "example.com"},
	}

	for _, tt := range tests {
		if got := extractSubject(tt.url); got != tt.want {
			t.Errorf("extractSubject(%s) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
