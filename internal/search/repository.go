package search

import "context"

// Repository searches one category. Search delivers complete result lists
// through emit, any number of times, each replacing the previous one. It
// returns when the search is finished or ctx is done; providers that track a
// live source keep emitting until ctx is done. emit must not be called
// concurrently or after Search returns.
type Repository[T any] interface {
	Search(ctx context.Context, query string, allowNetwork bool, emit func([]T)) error
}

// RepositoryFunc adapts a function to Repository.
type RepositoryFunc[T any] func(ctx context.Context, query string, allowNetwork bool, emit func([]T)) error

// Search implements Repository.
func (f RepositoryFunc[T]) Search(ctx context.Context, query string, allowNetwork bool, emit func([]T)) error {
	return f(ctx, query, allowNetwork, emit)
}

// LabelResolver returns user-defined labels for the given result keys. Keys
// without a custom label are absent from the returned map.
type LabelResolver interface {
	ResolveLabels(ctx context.Context, keys []string) (map[string]string, error)
}

// relabeler is a result that can carry a custom label.
type relabeler[T any] interface {
	Key() string
	Relabel(label string) T
}

// Repositories is the set of providers the service searches. A nil field
// disables its category.
type Repositories struct {
	Apps           Repository[Application]
	Shortcuts      Repository[AppShortcut]
	Contacts       Repository[Contact]
	Calendar       Repository[CalendarEvent]
	Files          Repository[File]
	Articles       Repository[Article]
	Locations      Repository[Location]
	Websites       Repository[Website]
	Actions        Repository[SearchAction]
	Calculators    Repository[Calculator]
	UnitConverters Repository[UnitConverter]
	Custom         Repository[CustomItem]
}
