// Package rates keeps the stored currency exchange rates current.
package rates

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kvaesitso/kvs/internal/bus"
	"github.com/kvaesitso/kvs/internal/metrics"
	"github.com/kvaesitso/kvs/internal/remote"
	"github.com/kvaesitso/kvs/internal/store"
	"go.uber.org/zap"
)

// Store is the persistence the refresher needs. *store.DB satisfies it.
type Store interface {
	SetRates(ctx context.Context, rates map[string]float64, at time.Time) error
	SetState(ctx context.Context, key, value string) error
	State(ctx context.Context, key string) (string, error)
}

// Refresher periodically downloads the euro reference rates.
type Refresher struct {
	db       Store
	fetcher  *remote.Fetcher
	bus      *bus.Bus
	url      string
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewRefresher creates a refresher for the feed at url.
func NewRefresher(db Store, f *remote.Fetcher, b *bus.Bus, url string, interval time.Duration, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Refresher{
		db:       db,
		fetcher:  f,
		bus:      b,
		url:      url,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start refreshes once if the stored rates are older than the interval, then
// on every tick. It does nothing when network access is disabled.
func (r *Refresher) Start(ctx context.Context) {
	if !r.fetcher.Enabled() {
		r.logger.Info("network disabled, currency rates will not refresh")
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.loop(ctx)
}

// Stop stops the refresh loop.
func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

func (r *Refresher) loop(ctx context.Context) {
	defer close(r.done)
	if r.stale(ctx) {
		_ = r.Refresh(ctx)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = r.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Refresher) stale(ctx context.Context) bool {
	v, err := r.db.State(ctx, store.StateRatesFetched)
	if err != nil || v == "" {
		return true
	}
	last, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return true
	}
	return r.now().Sub(last) >= r.interval
}

// Refresh downloads and stores the current rates, then publishes
// store.rates.
func (r *Refresher) Refresh(ctx context.Context) error {
	n, err := r.refresh(ctx)
	if err != nil {
		metrics.RateRefreshes.WithLabelValues("error").Inc()
		if errors.Is(err, context.Canceled) {
			return err
		}
		r.logger.Warn("currency rate refresh failed", zap.String("url", r.url), zap.Error(err))
		return err
	}
	metrics.RateRefreshes.WithLabelValues("ok").Inc()
	r.logger.Info("currency rates refreshed", zap.Int("currencies", n))
	return nil
}

func (r *Refresher) refresh(ctx context.Context) (int, error) {
	body, err := r.fetcher.Get(ctx, r.url)
	if err != nil {
		return 0, fmt.Errorf("fetch rates: %w", err)
	}
	rates, err := Parse(body)
	if err != nil {
		return 0, err
	}
	now := r.now()
	if err := r.db.SetRates(ctx, rates, now); err != nil {
		return 0, fmt.Errorf("store rates: %w", err)
	}
	if err := r.db.SetState(ctx, store.StateRatesFetched, now.UTC().Format(time.RFC3339)); err != nil {
		return 0, fmt.Errorf("store rates: %w", err)
	}
	if r.bus != nil {
		r.bus.Emit(bus.KindStoreRates, nil)
	}
	return len(rates), nil
}

type envelope struct {
	Days []struct {
		Time  string `xml:"time,attr"`
		Rates []struct {
			Currency string  `xml:"currency,attr"`
			Rate     float64 `xml:"rate,attr"`
		} `xml:"Cube"`
	} `xml:"Cube>Cube"`
}

// Parse reads an ECB eurofxref document and returns the most recent day's
// rates per euro.
func Parse(data []byte) (map[string]float64, error) {
	var env envelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if len(env.Days) == 0 {
		return nil, fmt.Errorf("decode rates: no rates in document")
	}
	day := env.Days[0]
	for _, d := range env.Days[1:] {
		if d.Time > day.Time {
			day = d
		}
	}
	out := make(map[string]float64, len(day.Rates))
	for _, rt := range day.Rates {
		if rt.Currency == "" || rt.Rate <= 0 {
			continue
		}
		out[strings.ToUpper(rt.Currency)] = rt.Rate
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("decode rates: no rates in document")
	}
	return out, nil
}
