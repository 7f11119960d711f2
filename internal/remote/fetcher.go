// Package remote performs the daemon's outbound HTTP requests with response
// caching, per-host rate limiting and deduplication of identical requests.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/kvaesitso/kvs/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// maxBody caps response sizes.
const maxBody = 4 << 20

// ErrOffline is returned when network access is disabled.
var ErrOffline = errors.New("network access disabled")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

// Options configures a Fetcher.
type Options struct {
	Enabled           bool
	UserAgent         string
	Timeout           time.Duration
	TTL               time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Fetcher issues GET requests on behalf of search providers.
type Fetcher struct {
	client *http.Client
	cache  *Cache
	opts   Options
	logger *zap.Logger
	group  singleflight.Group

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	flights  map[string]*flight
	seq      uint64
}

// flight is one shared round trip. It is cancelled once every caller waiting
// on it has gone.
type flight struct {
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewFetcher creates a fetcher. cache may be nil to disable caching.
func NewFetcher(opts Options, cache *Cache, logger *zap.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	return &Fetcher{
		client:   &http.Client{Timeout: opts.Timeout},
		cache:    cache,
		opts:     opts,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
		flights:  make(map[string]*flight),
	}
}

// Enabled reports whether network access is allowed.
func (f *Fetcher) Enabled() bool {
	return f.opts.Enabled
}

// Get returns the body of rawURL. Cached bodies are returned without a
// request; concurrent requests for the same URL share one round trip.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if !f.opts.Enabled {
		return nil, ErrOffline
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	host := u.Hostname()

	if f.cache != nil {
		body, ok, err := f.cache.Get(rawURL)
		if err != nil {
			f.logger.Warn("cache read failed", zap.Error(err))
		} else if ok {
			metrics.RemoteRequests.WithLabelValues(host, "cache_hit").Inc()
			return body, nil
		}
	}

	fl := f.join(ctx, rawURL)
	defer f.leave(rawURL, fl)
	ch := f.group.DoChan(fl.key, func() (any, error) {
		return f.fetch(fl.ctx, host, rawURL)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// join attaches the caller to the running flight for rawURL or starts a new
// one carrying the values of ctx.
func (f *Fetcher) join(ctx context.Context, rawURL string) *flight {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fl, ok := f.flights[rawURL]; ok {
		fl.waiters++
		return fl
	}
	f.seq++
	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	fl := &flight{
		key:     fmt.Sprintf("%s#%d", rawURL, f.seq),
		ctx:     fctx,
		cancel:  cancel,
		waiters: 1,
	}
	f.flights[rawURL] = fl
	return fl
}

// leave detaches a caller and cancels the flight when it was the last one.
func (f *Fetcher) leave(rawURL string, fl *flight) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl.waiters--
	if fl.waiters > 0 {
		return
	}
	fl.cancel()
	if f.flights[rawURL] == fl {
		delete(f.flights, rawURL)
	}
}

// GetJSON fetches rawURL and decodes the body into v.
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := f.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

func (f *Fetcher) fetch(ctx context.Context, host, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	if err := f.limiter(host).Wait(ctx); err != nil {
		metrics.RemoteRequests.WithLabelValues(host, "rate_limited").Inc()
		return nil, fmt.Errorf("rate limit %s: %w", host, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.RemoteRequests.WithLabelValues(host, "error").Inc()
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RemoteRequests.WithLabelValues(host, "status_error").Inc()
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		metrics.RemoteRequests.WithLabelValues(host, "error").Inc()
		return nil, fmt.Errorf("read body: %w", err)
	}
	metrics.RemoteRequests.WithLabelValues(host, "ok").Inc()
	f.logger.Debug("fetched", zap.String("host", host), zap.Int("bytes", len(body)), zap.Duration("took", time.Since(start)))

	if f.cache != nil {
		if err := f.cache.Set(rawURL, body, f.opts.TTL); err != nil {
			f.logger.Warn("cache write failed", zap.Error(err))
		}
	}
	return body, nil
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(f.opts.RequestsPerSecond), f.opts.Burst)
		f.limiters[host] = l
	}
	return l
}
