// Package model holds the TUI state that lives outside tview widgets.
package model

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/kvaesitso/kvs/internal/api"
	"github.com/kvaesitso/kvs/internal/search"
)

// Stream yields the updates of one search.
type Stream interface {
	Recv() (*api.SearchUpdate, error)
}

// OpenFunc starts a search stream on the daemon.
type OpenFunc func(ctx context.Context, req api.SearchRequest) (Stream, error)

// Session runs one live search at a time. Starting a new query cancels the
// previous stream, and updates from a replaced stream are never delivered.
type Session struct {
	open     OpenFunc
	onUpdate func(query string, u *api.SearchUpdate)
	onError  func(error)

	mu      sync.Mutex
	filters search.Filters
	query   string
	gen     uint64
	cancel  context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

// NewSession creates a session. Callbacks run on the session's goroutines.
func NewSession(open OpenFunc, filters search.Filters, onUpdate func(string, *api.SearchUpdate), onError func(error)) *Session {
	if onError == nil {
		onError = func(error) {}
	}
	return &Session{open: open, filters: filters, onUpdate: onUpdate, onError: onError}
}

// Query replaces the running search with one for query.
func (s *Session) Query(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.query = query
	s.restartLocked()
}

// Filters returns the active filters.
func (s *Session) Filters() search.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// SetFilters changes the filters and reruns the current query.
func (s *Session) SetFilters(f search.Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.filters = f
	s.restartLocked()
}

// Refresh reruns the current query.
func (s *Session) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.restartLocked()
}

// Close cancels the running search and waits for it to finish.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.gen++
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Session) restartLocked() {
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	query := s.query
	filters := s.filters
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx, gen, api.SearchRequest{Query: query, Filters: &filters})
	}()
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

func (s *Session) run(ctx context.Context, gen uint64, req api.SearchRequest) {
	stream, err := s.open(ctx, req)
	if err != nil {
		if s.current(gen) {
			s.onError(err)
		}
		return
	}
	for {
		u, err := stream.Recv()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) && s.current(gen) {
				s.onError(err)
			}
			return
		}
		if !s.current(gen) {
			return
		}
		s.onUpdate(req.Query, u)
	}
}
