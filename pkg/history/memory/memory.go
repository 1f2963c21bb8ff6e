// Package memory provides an in-memory transport.RunStore. Runs are lost
// when the process restarts. An optional size limit evicts the least
// recently used run.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/rhuss/judgeide/pkg/api"
	"github.com/rhuss/judgeide/pkg/history"
	"github.com/rhuss/judgeide/pkg/transport"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type entry struct {
	run      *api.Run
	tenantID string
	lruElem  *list.Element
}

// Store is an in-memory RunStore with optional LRU eviction.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	lruList *list.List // front = most recently used
	maxSize int        // 0 = unlimited
}

var _ transport.RunStore = (*Store)(nil)

// New creates a store. With maxSize > 0 the least recently used run is
// evicted once the limit is reached.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// SaveRun stores a run under the context's tenant.
func (s *Store) SaveRun(ctx context.Context, run *api.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[run.ID]; exists {
		return history.ErrConflict
	}

	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	tenantID := history.TenantFrom(ctx)
	run.Tenant = tenantID
	s.entries[run.ID] = &entry{
		run:      run,
		tenantID: tenantID,
		lruElem:  s.lruList.PushFront(run.ID),
	}
	return nil
}

// GetRun returns a run and marks it as recently used.
func (s *Store) GetRun(ctx context.Context, id string) (*api.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	s.lruList.MoveToFront(e.lruElem)
	return e.run, nil
}

// DeleteRun removes a run.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	s.lruList.Remove(e.lruElem)
	delete(s.entries, id)
	return nil
}

// ListRuns returns one page of the tenant's runs, newest first unless
// opts.Order is "asc".
func (s *Store) ListRuns(ctx context.Context, opts transport.ListOptions) (*api.RunList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenantID := history.TenantFrom(ctx)

	var matches []*api.Run
	for _, e := range s.entries {
		if tenantID != "" && e.tenantID != tenantID {
			continue
		}
		if opts.LanguageID != 0 && e.run.LanguageID != opts.LanguageID {
			continue
		}
		if opts.Flavor != "" && e.run.Flavor.String() != opts.Flavor {
			continue
		}
		matches = append(matches, e.run)
	}

	asc := opts.Order == "asc"
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.CreatedAt != b.CreatedAt {
			return (a.CreatedAt < b.CreatedAt) == asc
		}
		return (a.ID < b.ID) == asc
	})

	switch {
	case opts.After != "":
		matches = after(matches, opts.After)
	case opts.Before != "":
		matches = before(matches, opts.Before)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	hasMore := len(matches) > limit
	if hasMore {
		matches = matches[:limit]
	}

	result := &api.RunList{
		Object:  "list",
		Data:    matches,
		HasMore: hasMore,
	}
	if len(matches) > 0 {
		result.FirstID = matches[0].ID
		result.LastID = matches[len(matches)-1].ID
	}
	if result.Data == nil {
		result.Data = []*api.Run{}
	}
	return result, nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored runs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// lookup must be called with s.mu held.
func (s *Store) lookup(ctx context.Context, id string) (*entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, history.ErrNotFound
	}
	if tenantID := history.TenantFrom(ctx); tenantID != "" && e.tenantID != tenantID {
		return nil, history.ErrNotFound
	}
	return e, nil
}

// evictOldest must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}
	id := back.Value.(string)
	s.lruList.Remove(back)
	delete(s.entries, id)
}

func after(runs []*api.Run, id string) []*api.Run {
	for i, r := range runs {
		if r.ID == id {
			return runs[i+1:]
		}
	}
	return nil
}

func before(runs []*api.Run, id string) []*api.Run {
	for i, r := range runs {
		if r.ID == id {
			return runs[:i]
		}
	}
	return nil
}
