// Package local serves the store-backed search categories. Each repository
// emits once, then re-queries whenever the catalog changes until the search
// is cancelled.
package local

import (
	"context"
	"time"

	"github.com/kvaesitso/kvs/internal/bus"
	"github.com/kvaesitso/kvs/internal/search"
	"github.com/kvaesitso/kvs/internal/store"
	"go.uber.org/zap"
)

// Source builds repositories over the catalog store.
type Source struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Source. b may be nil, in which case results are not live.
func New(db *store.DB, b *bus.Bus, logger *zap.Logger) *Source {
	return &Source{db: db, bus: b, logger: logger, now: time.Now}
}

// Apps matches application labels and custom labels. A blank query lists
// every app.
func (s *Source) Apps() search.Repository[search.Application] {
	return live(s, []string{bus.KindStoreApps}, func(ctx context.Context, q string) ([]search.Application, error) {
		rows, err := s.db.SearchApps(ctx, q)
		if err != nil {
			return nil, err
		}
		out := make([]search.Application, 0, len(rows))
		for _, r := range rows {
			out = append(out, search.Application{Package: r.Package, Activity: r.Activity, Label: r.Label, Profile: r.Profile})
		}
		return rank(out, q, func(a search.Application) string { return a.Label }), nil
	})
}

// Shortcuts matches shortcut labels and the labels of their apps.
func (s *Source) Shortcuts() search.Repository[search.AppShortcut] {
	return live(s, []string{bus.KindStoreShortcuts, bus.KindStoreApps}, func(ctx context.Context, q string) ([]search.AppShortcut, error) {
		rows, err := s.db.SearchShortcuts(ctx, q)
		if err != nil {
			return nil, err
		}
		out := make([]search.AppShortcut, 0, len(rows))
		for _, r := range rows {
			out = append(out, search.AppShortcut{Package: r.Package, ShortcutID: r.ShortcutID, Label: r.Label, AppLabel: r.AppLabel})
		}
		return rank(out, q, func(sc search.AppShortcut) string { return sc.Label }), nil
	})
}

// Contacts matches names, email addresses and phone numbers.
func (s *Source) Contacts() search.Repository[search.Contact] {
	return live(s, []string{bus.KindStoreContacts}, func(ctx context.Context, q string) ([]search.Contact, error) {
		rows, err := s.db.SearchContacts(ctx, q)
		if err != nil {
			return nil, err
		}
		out := make([]search.Contact, 0, len(rows))
		for _, r := range rows {
			out = append(out, search.Contact{ID: r.ID, Label: r.Name, Phones: r.Phones, Emails: r.Emails})
		}
		return rank(out, q, func(c search.Contact) string { return c.Label }), nil
	})
}

// Calendar matches event titles and locations, upcoming events first.
func (s *Source) Calendar() search.Repository[search.CalendarEvent] {
	return live(s, []string{bus.KindStoreEvents}, func(ctx context.Context, q string) ([]search.CalendarEvent, error) {
		rows, err := s.db.SearchEvents(ctx, q, s.now(), 20)
		if err != nil {
			return nil, err
		}
		out := make([]search.CalendarEvent, 0, len(rows))
		for _, r := range rows {
			out = append(out, search.CalendarEvent{
				ID:       r.ID,
				Label:    r.Title,
				Start:    time.UnixMilli(r.StartsAt),
				End:      time.UnixMilli(r.EndsAt),
				AllDay:   r.AllDay,
				Location: r.Location,
				Calendar: r.Calendar,
			})
		}
		return out, nil
	})
}

// Custom matches custom item labels and tags.
func (s *Source) Custom() search.Repository[search.CustomItem] {
	return live(s, []string{bus.KindStoreCustom}, func(ctx context.Context, q string) ([]search.CustomItem, error) {
		rows, err := s.db.SearchCustomItems(ctx, q)
		if err != nil {
			return nil, err
		}
		out := make([]search.CustomItem, 0, len(rows))
		for _, r := range rows {
			out = append(out, search.CustomItem{ID: r.ID, Label: r.Label, Target: r.Target, Tags: r.Tags})
		}
		return rank(out, q, func(c search.CustomItem) string { return c.Label }), nil
	})
}

// live turns a query function into a repository that re-runs it whenever an
// event of one of kinds, or a label change, is published.
func live[T any](s *Source, kinds []string, query func(context.Context, string) ([]T, error)) search.Repository[T] {
	return search.RepositoryFunc[T](func(ctx context.Context, q string, _ bool, emit func([]T)) error {
		var changed <-chan struct{}
		if s.bus != nil {
			sig, stop := s.bus.Watch(append(kinds, bus.KindStoreLabels)...)
			defer stop()
			changed = sig
		}

		items, err := query(ctx, q)
		if err != nil {
			return err
		}
		emit(items)
		if changed == nil {
			return nil
		}

		for {
			select {
			case <-changed:
				items, err := query(ctx, q)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					s.logger.Warn("live requery failed", zap.Error(err))
					continue
				}
				emit(items)
			case <-ctx.Done():
				return nil
			}
		}
	})
}
