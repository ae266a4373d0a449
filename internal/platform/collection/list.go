package collection

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// ErrStale is returned by Load when a newer load or a local mutation
// superseded it. The list keeps the newer state.
var ErrStale = errors.New("collection: stale load discarded")

// List is the in-memory working list of one entity. Loads are
// generation-stamped so a response that arrives after a newer load started
// (or after the caller gave up) is dropped instead of overwriting newer data.
type List[T any] struct {
	mu     sync.RWMutex
	items  []T
	gen    uint64
	loaded bool
	id     func(T) int64
}

// NewList creates an empty list keyed by id.
func NewList[T any](id func(T) int64) *List[T] {
	return &List[T]{id: id}
}

// Load fetches a fresh copy and replaces the list with it. On error the list
// is left unchanged.
func (l *List[T]) Load(ctx context.Context, fetch func(context.Context) ([]T, error)) error {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	items, err := fetch(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return ErrStale
	}
	if items == nil {
		items = []T{}
	}
	l.items = items
	l.loaded = true
	return nil
}

// Loaded reports whether a load has completed.
func (l *List[T]) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Snapshot returns a copy of the current items.
func (l *List[T]) Snapshot() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := slices.Clone(l.items)
	if out == nil {
		out = []T{}
	}
	return out
}

// Get looks an item up by id.
func (l *List[T]) Get(id int64) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, it := range l.items {
		if l.id(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Upsert replaces the item with the same id or appends it. Any load in
// flight is invalidated since its response predates this write.
func (l *List[T]) Upsert(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	id := l.id(item)
	for i, it := range l.items {
		if l.id(it) == id {
			l.items[i] = item
			return
		}
	}
	l.items = append(l.items, item)
}

// Remove drops the item with the given id and reports whether it existed.
func (l *List[T]) Remove(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	for i, it := range l.items {
		if l.id(it) == id {
			l.items = slices.Delete(l.items, i, i+1)
			return true
		}
	}
	return false
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}
