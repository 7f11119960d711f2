package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func staticRepo[T any](items ...T) Repository[T] {
	return RepositoryFunc[T](func(ctx context.Context, query string, allowNetwork bool, emit func([]T)) error {
		emit(items)
		return nil
	})
}

func newTestService(repos Repositories, labels LabelResolver) *Service {
	return NewService(repos, labels, Config{}, zap.NewNop())
}

// waitFor reads snapshots until cond holds and returns the matching one.
func waitFor(t *testing.T, ch <-chan Snapshot, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				t.Fatal("channel closed before condition was met")
			}
			if cond(s) {
				return s
			}
		case <-timeout:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

// drain consumes ch until it is closed.
func drain(t *testing.T, ch <-chan Snapshot) []Snapshot {
	t.Helper()
	var all []Snapshot
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return all
			}
			all = append(all, s)
		case <-timeout:
			t.Fatal("timed out waiting for channel close")
		}
	}
}

func TestSearchFirstSnapshotIsEmpty(t *testing.T) {
	svc := newTestService(Repositories{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	ch := svc.Search(ctx, "foo", Filters{})
	first := <-ch
	if first.Count() != 0 {
		t.Errorf("first snapshot has %d results, want 0", first.Count())
	}
	for _, c := range AllCategories {
		if first.Loaded(c) {
			t.Errorf("category %s loaded in first snapshot", c)
		}
	}

	cancel()
	drain(t, ch)
}

func TestSearchMergesCategories(t *testing.T) {
	repos := Repositories{
		Apps:     staticRepo(Application{Package: "org.mozilla.firefox", Activity: "Main", Label: "Firefox"}),
		Contacts: staticRepo(Contact{ID: 7, Label: "Fiona"}),
	}
	svc := newTestService(repos, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := waitFor(t, svc.Search(ctx, "fi", DefaultFilters()), func(s Snapshot) bool {
		return s.Loaded(Apps) && s.Loaded(Contacts)
	})
	if len(got.Apps) != 1 || got.Apps[0].Label != "Firefox" {
		t.Errorf("apps = %+v", got.Apps)
	}
	if len(got.Contacts) != 1 || got.Contacts[0].Label != "Fiona" {
		t.Errorf("contacts = %+v", got.Contacts)
	}
}

func TestSearchEmptyResultIsLoaded(t *testing.T) {
	svc := newTestService(Repositories{Files: staticRepo[File]()}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := waitFor(t, svc.Search(ctx, "x", DefaultFilters()), func(s Snapshot) bool { return s.Loaded(Files) })
	if got.Files == nil || len(got.Files) != 0 {
		t.Errorf("files = %#v, want empty non-nil", got.Files)
	}
}

func TestSearchFailureIsolation(t *testing.T) {
	repos := Repositories{
		Contacts: RepositoryFunc[Contact](func(ctx context.Context, q string, net bool, emit func([]Contact)) error {
			return errors.New("permission denied")
		}),
		Apps: RepositoryFunc[Application](func(ctx context.Context, q string, net bool, emit func([]Application)) error {
			panic("boom")
		}),
		Files: staticRepo(File{Path: "/tmp/notes.txt", Label: "notes.txt"}),
	}
	svc := newTestService(repos, nil)
	ctx, cancel := context.WithCancel(context.Background())

	ch := svc.Search(ctx, "notes", DefaultFilters())
	got := waitFor(t, ch, func(s Snapshot) bool { return s.Loaded(Files) })
	if got.Loaded(Contacts) || got.Loaded(Apps) {
		t.Errorf("failed categories should stay unloaded: %+v", got)
	}

	cancel()
	for _, s := range drain(t, ch) {
		if s.Loaded(Contacts) || s.Loaded(Apps) {
			t.Errorf("failed category became loaded: %+v", s)
		}
	}
}

func TestSearchCancelBeforeDelay(t *testing.T) {
	var superseded, current atomic.Int32
	repos := Repositories{
		Articles: RepositoryFunc[Article](func(ctx context.Context, q string, net bool, emit func([]Article)) error {
			if q == "go" {
				superseded.Add(1)
			} else {
				current.Add(1)
			}
			emit([]Article{{Source: "wikipedia", PageID: 1, Label: q}})
			return nil
		}),
	}
	svc := NewService(repos, nil, DefaultConfig(), zap.NewNop())

	// The user keeps typing before the article delay runs out.
	ctx, cancel := context.WithCancel(context.Background())
	first := svc.Search(ctx, "go", DefaultFilters())
	time.Sleep(300 * time.Millisecond)
	cancel()
	for _, s := range drain(t, first) {
		if s.Loaded(Articles) {
			t.Error("articles loaded for the replaced query")
		}
	}

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	got := waitFor(t, svc.Search(ctx2, "golang", DefaultFilters()), func(s Snapshot) bool { return s.Loaded(Articles) })
	if len(got.Articles) != 1 || got.Articles[0].Label != "golang" {
		t.Errorf("articles = %+v", got.Articles)
	}

	// By now the first query's delay has long expired.
	if n := superseded.Load(); n != 0 {
		t.Errorf("article provider ran %d times for the replaced query, want 0", n)
	}
	if n := current.Load(); n != 1 {
		t.Errorf("article provider ran %d times for the current query, want 1", n)
	}
}

func TestSearchDelayedProviderRuns(t *testing.T) {
	svc := NewService(Repositories{
		Locations: staticRepo(Location{Source: "osm", ID: 42, Label: "Bakery"}),
	}, nil, Config{LocationDelay: 10 * time.Millisecond}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := waitFor(t, svc.Search(ctx, "bakery", DefaultFilters()), func(s Snapshot) bool { return s.Loaded(Locations) })
	if len(got.Locations) != 1 {
		t.Errorf("locations = %+v", got.Locations)
	}
}

func TestSearchDisabledCategoryNotInvoked(t *testing.T) {
	var calls atomic.Int32
	repos := Repositories{
		Contacts: RepositoryFunc[Contact](func(ctx context.Context, q string, net bool, emit func([]Contact)) error {
			calls.Add(1)
			emit([]Contact{{ID: 1, Label: "Ann"}})
			return nil
		}),
		Apps: staticRepo(Application{Package: "a", Activity: "b", Label: "Ann's App"}),
	}
	svc := newTestService(repos, nil)
	ctx, cancel := context.WithCancel(context.Background())

	filters := DefaultFilters()
	filters.Contacts = false
	ch := svc.Search(ctx, "ann", filters)
	waitFor(t, ch, func(s Snapshot) bool { return s.Loaded(Apps) })
	cancel()
	for _, s := range drain(t, ch) {
		if s.Contacts != nil {
			t.Errorf("contacts = %+v, want nil", s.Contacts)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("disabled provider was invoked")
	}
}

func TestSearchActionsIgnoreFilters(t *testing.T) {
	svc := newTestService(Repositories{
		Actions: staticRepo(SearchAction{Kind: ActionWebSearch, Label: "Search the web", Target: "hello"}),
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := waitFor(t, svc.Search(ctx, "hello", Filters{}), func(s Snapshot) bool { return s.Loaded(Actions) })
	if len(got.Actions) != 1 {
		t.Errorf("actions = %+v", got.Actions)
	}
}

func TestSearchWithInitialMasked(t *testing.T) {
	svc := newTestService(Repositories{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seed := Snapshot{
		Apps:     []Application{{Package: "p", Activity: "a", Label: "Old"}},
		Contacts: []Contact{{ID: 1, Label: "Old contact"}},
	}
	filters := DefaultFilters()
	filters.Contacts = false

	first := <-svc.Search(ctx, "o", filters, WithInitial(seed))
	if len(first.Apps) != 1 {
		t.Errorf("seeded apps = %+v, want 1", first.Apps)
	}
	if first.Contacts != nil {
		t.Errorf("masked contacts = %+v, want nil", first.Contacts)
	}
}

type mapLabels map[string]string

func (m mapLabels) ResolveLabels(ctx context.Context, keys []string) (map[string]string, error) {
	out := map[string]string{}
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func TestSearchAppliesCustomLabels(t *testing.T) {
	app := Application{Package: "com.example.mail", Activity: "Inbox", Label: "Mail"}
	svc := newTestService(Repositories{Apps: staticRepo(app)}, mapLabels{app.Key(): "Work mail"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := waitFor(t, svc.Search(ctx, "mail", DefaultFilters()), func(s Snapshot) bool { return s.Loaded(Apps) })
	if got.Apps[0].Label != "Work mail" {
		t.Errorf("label = %q, want %q", got.Apps[0].Label, "Work mail")
	}
}

func TestSearchLoadedCategoriesNeverRegress(t *testing.T) {
	live := RepositoryFunc[File](func(ctx context.Context, q string, net bool, emit func([]File)) error {
		for i := range 5 {
			emit(make([]File, i))
		}
		<-ctx.Done()
		return ctx.Err()
	})
	svc := newTestService(Repositories{
		Files:    live,
		Contacts: staticRepo(Contact{ID: 2, Label: "Bo"}),
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	ch := svc.Search(ctx, "b", DefaultFilters())
	waitFor(t, ch, func(s Snapshot) bool { return len(s.Files) == 4 && s.Loaded(Contacts) })
	cancel()
	drain(t, ch)

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	ch = svc.Search(ctx2, "b", DefaultFilters())
	loaded := map[Category]bool{}
	timeout := time.After(2 * time.Second)
	for len(loaded) < 2 {
		select {
		case s := <-ch:
			for c := range loaded {
				if !s.Loaded(c) {
					t.Fatalf("category %s regressed to unloaded", c)
				}
			}
			for _, c := range AllCategories {
				if s.Loaded(c) {
					loaded[c] = true
				}
			}
		case <-timeout:
			t.Fatal("timed out")
		}
	}
}

func TestAllAppsGroupsByProfile(t *testing.T) {
	repo := staticRepo(
		Application{Package: "z", Activity: "a", Label: "zebra", Profile: ProfilePersonal},
		Application{Package: "b", Activity: "a", Label: "Bank", Profile: ProfileWork},
		Application{Package: "a", Activity: "a", Label: "Atlas"},
		Application{Package: "v", Activity: "a", Label: "Vault", Profile: ProfilePrivate},
	)
	svc := newTestService(Repositories{Apps: repo}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := svc.AllApps(ctx)
	if err != nil {
		t.Fatalf("AllApps: %v", err)
	}
	got := <-ch

	labels := func(apps []Application) []string {
		out := []string{}
		for _, a := range apps {
			out = append(out, a.Label)
		}
		return out
	}
	want := map[string][]string{
		"personal": {"Atlas", "zebra"},
		"work":     {"Bank"},
		"private":  {"Vault"},
	}
	gotLabels := map[string][]string{
		"personal": labels(got.Personal),
		"work":     labels(got.Work),
		"private":  labels(got.Private),
	}
	if diff := cmp.Diff(want, gotLabels); diff != "" {
		t.Errorf("AllApps mismatch (-want +got):\n%s", diff)
	}

	if _, ok := <-ch; ok {
		t.Error("channel should close after the provider returns")
	}
}

func TestAllAppsWithoutRepository(t *testing.T) {
	svc := newTestService(Repositories{}, nil)
	if _, err := svc.AllApps(context.Background()); err == nil {
		t.Fatal("expected error without an app repository")
	}
}
