// Package workset keeps the in-memory working list of one entity in step
// with the record store. Every mutation goes to the store first; the list
// and the event stream only change after the store confirmed it.
package workset

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/hms/hms/internal/platform/collection"
	"github.com/hms/hms/internal/platform/events"
	"github.com/hms/hms/internal/platform/recordstore"
)

var (
	// ErrConflict marks an action the record's current state does not allow.
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition is returned for a status change the lifecycle
	// does not permit.
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrConflict)
)

// Options carries the collaborators shared by every entity service.
type Options struct {
	Publisher events.Publisher
	Logger    zerolog.Logger
	Clock     collection.Clock
}

// Now returns the current time from the configured clock.
func (o Options) Now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// Directory resolves record ids to display names.
type Directory interface {
	Names(ctx context.Context) (map[int64]string, error)
}

// Set is the working set of one entity.
type Set[T any] struct {
	entity  string
	repo    recordstore.Repository[T]
	list    *collection.List[T]
	id      func(T) int64
	opts    Options
	resolve func(context.Context, []T) []T
	cold    singleflight.Group
}

// New creates a working set over repo.
func New[T any](entity string, repo recordstore.Repository[T], id func(T) int64, opts Options) *Set[T] {
	return &Set[T]{
		entity: entity,
		repo:   repo,
		list:   collection.NewList(id),
		id:     id,
		opts:   opts,
	}
}

// SetResolver installs a hook that fills display fields on read.
func (s *Set[T]) SetResolver(fn func(context.Context, []T) []T) {
	s.resolve = fn
}

func (s *Set[T]) Entity() string { return s.entity }

func (s *Set[T]) Now() time.Time { return s.opts.Now() }

func (s *Set[T]) Logger() *zerolog.Logger { return &s.opts.Logger }

// Load replaces the working list with a fresh copy from the store.
func (s *Set[T]) Load(ctx context.Context) error {
	err := s.list.Load(ctx, s.repo.List)
	if err != nil && !errors.Is(err, collection.ErrStale) {
		s.opts.Logger.Error().Err(err).Str("entity", s.entity).Msg("load failed")
	}
	return err
}

// All returns the working list, loading it on first use. Concurrent first
// calls share one store fetch. A fetch superseded by a newer load or a local
// write is not installed, but its callers still get the fetched items.
func (s *Set[T]) All(ctx context.Context) ([]T, error) {
	if s.list.Loaded() {
		return s.resolved(ctx, s.list.Snapshot()), nil
	}
	v, err, _ := s.cold.Do(s.entity, func() (any, error) {
		var fetched []T
		err := s.list.Load(context.WithoutCancel(ctx), func(ctx context.Context) ([]T, error) {
			items, err := s.repo.List(ctx)
			fetched = items
			return items, err
		})
		if err != nil && !errors.Is(err, collection.ErrStale) {
			s.opts.Logger.Error().Err(err).Str("entity", s.entity).Msg("load failed")
			return nil, err
		}
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items := slices.Clone(v.([]T))
	if items == nil {
		items = []T{}
	}
	return s.resolved(ctx, items), nil
}

// Get returns one record, from the working list when present.
func (s *Set[T]) Get(ctx context.Context, id int64) (T, error) {
	if item, ok := s.list.Get(id); ok {
		return s.one(ctx, item), nil
	}
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	s.list.Upsert(item)
	return s.one(ctx, item), nil
}

// Create stores item. When writeBack is set it derives follow-up values
// from the stored record (typically a code built from the new id); those
// are written in a second call whose failure is logged, not returned.
func (s *Set[T]) Create(ctx context.Context, item T, writeBack func(T) (T, bool)) (T, error) {
	created, err := s.repo.Create(ctx, item)
	if err != nil {
		var zero T
		return zero, err
	}
	if writeBack != nil {
		if patched, ok := writeBack(created); ok {
			updated, err := s.repo.Update(ctx, patched)
			if err != nil {
				s.opts.Logger.Warn().Err(err).Str("entity", s.entity).Int64("id", s.id(created)).
					Msg("code write-back failed")
				created = patched
			} else {
				created = updated
			}
		}
	}
	s.list.Upsert(created)
	s.Publish(ctx, events.Created, s.id(created), nil)
	return s.one(ctx, created), nil
}

// Update stores item and publishes an updated event.
func (s *Set[T]) Update(ctx context.Context, item T) (T, error) {
	return s.Save(ctx, item, events.Updated, nil)
}

// Save stores item and publishes action with detail.
func (s *Set[T]) Save(ctx context.Context, item T, action events.Action, detail map[string]string) (T, error) {
	updated, err := s.repo.Update(ctx, item)
	if err != nil {
		var zero T
		return zero, err
	}
	s.list.Upsert(updated)
	s.Publish(ctx, action, s.id(updated), detail)
	return s.one(ctx, updated), nil
}

// Delete removes a record from the store and the working list.
func (s *Set[T]) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.list.Remove(id)
	s.Publish(ctx, events.Deleted, id, nil)
	return nil
}

// DeleteMany deletes every id. Records the store confirmed are removed
// locally even when others failed; the returned error lists the failures.
func (s *Set[T]) DeleteMany(ctx context.Context, ids []int64) ([]recordstore.Result, error) {
	results, err := s.repo.DeleteMany(ctx, ids)
	for _, r := range results {
		if r.Success {
			s.list.Remove(r.ID)
			s.Publish(ctx, events.Deleted, r.ID, nil)
		}
	}
	return results, err
}

// Publish logs and emits a record event.
func (s *Set[T]) Publish(ctx context.Context, action events.Action, id int64, detail map[string]string) {
	s.opts.Logger.Info().Str("entity", s.entity).Str("action", string(action)).Int64("id", id).Msg("record changed")
	events.Emit(ctx, s.opts.Publisher, s.opts.Logger, events.New(s.entity, action, id, detail))
}

func (s *Set[T]) one(ctx context.Context, item T) T {
	return s.resolved(ctx, []T{item})[0]
}

func (s *Set[T]) resolved(ctx context.Context, items []T) []T {
	if s.resolve == nil || len(items) == 0 {
		return items
	}
	return s.resolve(ctx, items)
}

// Names loads d's display names. A failing or missing directory yields an
// empty map so callers fall back to what the record carried.
func Names(ctx context.Context, d Directory, logger *zerolog.Logger) map[int64]string {
	if d == nil {
		return map[int64]string{}
	}
	names, err := d.Names(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("display name lookup failed")
		return map[int64]string{}
	}
	return names
}
