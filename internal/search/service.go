// Package search fans a query out to one provider per result category and
// merges their result lists into a stream of snapshots.
package search

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kvaesitso/kvs/internal/metrics"
	"go.uber.org/zap"
)

// Config tunes the service.
type Config struct {
	// ArticleDelay postpones the article provider so short-lived
	// intermediate queries never reach the network.
	ArticleDelay time.Duration
	// LocationDelay does the same for the location provider.
	LocationDelay time.Duration
}

// DefaultConfig returns the standard provider delays.
func DefaultConfig() Config {
	return Config{
		ArticleDelay:  750 * time.Millisecond,
		LocationDelay: 250 * time.Millisecond,
	}
}

// Service runs searches across all configured repositories.
type Service struct {
	repos  Repositories
	labels LabelResolver
	cfg    Config
	logger *zap.Logger
}

// NewService creates a search service. labels may be nil.
func NewService(repos Repositories, labels LabelResolver, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		repos:  repos,
		labels: labels,
		cfg:    cfg,
		logger: logger,
	}
}

// SearchOption configures a single search.
type SearchOption func(*searchOptions)

type searchOptions struct {
	initial *Snapshot
}

// WithInitial seeds the search with previously known results, for example
// the results of the preceding query. Categories disabled by the filters are
// cleared from the seed.
func WithInitial(s Snapshot) SearchOption {
	return func(o *searchOptions) { o.initial = &s }
}

type update struct {
	apply func(*Snapshot)
}

// run is the state shared by the goroutines of one search.
type run struct {
	ctx          context.Context
	query        string
	allowNetwork bool
	started      time.Time
	updates      chan update
	wg           sync.WaitGroup
	logger       *zap.Logger
}

// Search starts a search and returns a channel of snapshots. The first value
// is the (possibly seeded) initial snapshot; every later value differs from
// its predecessor in exactly one category. Each enabled category runs in its
// own goroutine, so a slow or failing provider never holds back or breaks
// the others. The channel is closed after ctx is done and all providers have
// returned. Search actions run regardless of filters.
func (s *Service) Search(ctx context.Context, query string, filters Filters, opts ...SearchOption) <-chan Snapshot {
	var o searchOptions
	for _, opt := range opts {
		opt(&o)
	}
	initial := Snapshot{}
	if o.initial != nil {
		initial = o.initial.Masked(filters)
	}

	r := &run{
		ctx:          ctx,
		query:        query,
		allowNetwork: filters.AllowNetwork,
		started:      time.Now(),
		updates:      make(chan update),
		logger:       s.logger.With(zap.String("search_id", uuid.NewString())),
	}
	metrics.SearchesStarted.Inc()
	r.logger.Debug("search started", zap.Int("query_len", len(query)), zap.Bool("network", filters.AllowNetwork))

	if filters.Apps {
		start(r, Apps, s.repos.Apps, 0, withLabels[Application](s.labels, r.logger),
			func(snap *Snapshot, v []Application) { snap.Apps = v })
	}
	if filters.Shortcuts {
		start(r, Shortcuts, s.repos.Shortcuts, 0, withLabels[AppShortcut](s.labels, r.logger),
			func(snap *Snapshot, v []AppShortcut) { snap.Shortcuts = v })
	}
	if filters.Contacts {
		start(r, Contacts, s.repos.Contacts, 0, withLabels[Contact](s.labels, r.logger),
			func(snap *Snapshot, v []Contact) { snap.Contacts = v })
	}
	if filters.Events {
		start(r, Calendar, s.repos.Calendar, 0, withLabels[CalendarEvent](s.labels, r.logger),
			func(snap *Snapshot, v []CalendarEvent) { snap.Calendar = v })
	}
	if filters.Files {
		start(r, Files, s.repos.Files, 0, withLabels[File](s.labels, r.logger),
			func(snap *Snapshot, v []File) { snap.Files = v })
	}
	if filters.Articles {
		start(r, Articles, s.repos.Articles, s.cfg.ArticleDelay, withLabels[Article](s.labels, r.logger),
			func(snap *Snapshot, v []Article) { snap.Articles = v })
	}
	if filters.Places {
		start(r, Locations, s.repos.Locations, s.cfg.LocationDelay, withLabels[Location](s.labels, r.logger),
			func(snap *Snapshot, v []Location) { snap.Locations = v })
	}
	if filters.Websites {
		start(r, Websites, s.repos.Websites, 0, withLabels[Website](s.labels, r.logger),
			func(snap *Snapshot, v []Website) { snap.Websites = v })
	}
	if filters.Tools {
		start(r, Calculators, s.repos.Calculators, 0, nil,
			func(snap *Snapshot, v []Calculator) { snap.Calculators = v })
		start(r, UnitConverters, s.repos.UnitConverters, 0, nil,
			func(snap *Snapshot, v []UnitConverter) { snap.UnitConverters = v })
	}
	if filters.Custom {
		start(r, Custom, s.repos.Custom, 0, withLabels[CustomItem](s.labels, r.logger),
			func(snap *Snapshot, v []CustomItem) { snap.Custom = v })
	}
	start(r, Actions, s.repos.Actions, 0, nil,
		func(snap *Snapshot, v []SearchAction) { snap.Actions = v })

	go func() {
		r.wg.Wait()
		close(r.updates)
	}()

	out := make(chan Snapshot)
	go reduce(ctx, initial, r.updates, out)
	return out
}

// reduce owns the snapshot. It applies updates one at a time and publishes a
// copy after each, skipping publication once ctx is done. It keeps draining
// updates until every provider has returned, then holds the channel open
// until ctx is done.
func reduce(ctx context.Context, snap Snapshot, updates <-chan update, out chan<- Snapshot) {
	defer close(out)

	publish := func() {
		select {
		case out <- snap:
		case <-ctx.Done():
		}
	}

	publish()
	for u := range updates {
		u.apply(&snap)
		if ctx.Err() == nil {
			publish()
		}
	}
	<-ctx.Done()
}

// start launches the provider for one category.
func start[T any](r *run, c Category, repo Repository[T], delay time.Duration,
	post func(context.Context, []T) []T, set func(*Snapshot, []T)) {
	if repo == nil {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				metrics.CategoryFailures.WithLabelValues(string(c), "panic").Inc()
				r.logger.Error("provider panicked", zap.String("category", string(c)), zap.Any("panic", p))
			}
		}()

		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-r.ctx.Done():
				return
			}
		}

		first := true
		emit := func(items []T) {
			if r.ctx.Err() != nil {
				return
			}
			items = slices.Clone(items)
			if items == nil {
				items = []T{}
			}
			if post != nil {
				items = post(r.ctx, items)
			}
			if first {
				first = false
				metrics.FirstResultLatency.WithLabelValues(string(c)).Observe(time.Since(r.started).Seconds())
			}
			metrics.CategoryEmissions.WithLabelValues(string(c)).Inc()

			select {
			case r.updates <- update{apply: func(s *Snapshot) { set(s, items) }}:
			case <-r.ctx.Done():
			}
		}

		if err := repo.Search(r.ctx, r.query, r.allowNetwork, emit); err != nil && r.ctx.Err() == nil {
			metrics.CategoryFailures.WithLabelValues(string(c), "error").Inc()
			r.logger.Warn("provider failed", zap.String("category", string(c)), zap.Error(err))
		}
	}()
}

// withLabels returns a post-processor that applies custom labels, or nil
// when there is no resolver. Lookup failures leave the items unchanged.
func withLabels[T relabeler[T]](labels LabelResolver, logger *zap.Logger) func(context.Context, []T) []T {
	if labels == nil {
		return nil
	}
	return func(ctx context.Context, items []T) []T {
		if len(items) == 0 {
			return items
		}
		keys := make([]string, len(items))
		for i, it := range items {
			keys[i] = it.Key()
		}
		custom, err := labels.ResolveLabels(ctx, keys)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("failed to resolve labels", zap.Error(err))
			}
			return items
		}
		for i, it := range items {
			if label, ok := custom[it.Key()]; ok {
				items[i] = it.Relabel(label)
			}
		}
		return items
	}
}

// AllApps groups every installed application by profile.
type AllApps struct {
	Personal []Application `json:"personal"`
	Work     []Application `json:"work"`
	Private  []Application `json:"private"`
}

// AllApps lists all applications, split by profile and sorted by label. A
// new value is sent whenever the app list changes. The channel is closed when
// the provider returns or ctx is done.
func (s *Service) AllApps(ctx context.Context) (<-chan AllApps, error) {
	if s.repos.Apps == nil {
		return nil, fmt.Errorf("no app repository configured")
	}
	relabel := withLabels[Application](s.labels, s.logger)

	out := make(chan AllApps)
	go func() {
		defer close(out)
		err := s.repos.Apps.Search(ctx, "", false, func(apps []Application) {
			apps = slices.Clone(apps)
			if relabel != nil {
				apps = relabel(ctx, apps)
			}
			select {
			case out <- groupByProfile(apps):
			case <-ctx.Done():
			}
		})
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("listing apps failed", zap.Error(err))
		}
	}()
	return out, nil
}

func groupByProfile(apps []Application) AllApps {
	all := AllApps{Personal: []Application{}, Work: []Application{}, Private: []Application{}}
	for _, a := range apps {
		switch a.Profile {
		case ProfileWork:
			all.Work = append(all.Work, a)
		case ProfilePrivate:
			all.Private = append(all.Private, a)
		default:
			all.Personal = append(all.Personal, a)
		}
	}
	for _, list := range [][]Application{all.Personal, all.Work, all.Private} {
		slices.SortStableFunc(list, compareApps)
	}
	return all
}

func compareApps(a, b Application) int {
	if c := strings.Compare(strings.ToLower(a.Label), strings.ToLower(b.Label)); c != 0 {
		return c
	}
	return strings.Compare(a.Key(), b.Key())
}
