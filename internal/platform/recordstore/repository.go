package recordstore

import (
	"context"
	"fmt"

	"github.com/hms/hms/internal/platform/record"
)

// Repository is the persistence capability an entity service needs. Values
// cross it in UI shape; the Codec converts at the boundary.
type Repository[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, item T) (T, error)
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) ([]Result, error)
}

// Codec binds an entity's store name and field list to its transforms.
type Codec[T any] struct {
	Entity  string
	Fields  []string
	OrderBy []OrderBy
	ToUI    func(record.Record) T
	ToAPI   func(T, record.Mode) record.Record
	ID      func(T) int64
}

// StoreRepository implements Repository over a Store.
type StoreRepository[T any] struct {
	store Store
	codec Codec[T]
}

// NewRepository creates a repository for one entity.
func NewRepository[T any](store Store, codec Codec[T]) *StoreRepository[T] {
	return &StoreRepository[T]{store: store, codec: codec}
}

func (r *StoreRepository[T]) List(ctx context.Context) ([]T, error) {
	recs, err := FetchEvery(ctx, r.store, r.codec.Entity, r.codec.Fields, r.codec.OrderBy)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.codec.Entity, err)
	}
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		out = append(out, r.codec.ToUI(rec))
	}
	return out, nil
}

func (r *StoreRepository[T]) Get(ctx context.Context, id int64) (T, error) {
	var zero T
	if id == 0 {
		return zero, ErrMissingID
	}
	rec, err := r.store.FetchByID(ctx, r.codec.Entity, id, r.codec.Fields)
	if err != nil {
		return zero, fmt.Errorf("get %s %d: %w", r.codec.Entity, id, err)
	}
	return r.codec.ToUI(rec), nil
}

func (r *StoreRepository[T]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	results, err := r.store.CreateRecords(ctx, r.codec.Entity, []record.Record{r.codec.ToAPI(item, record.Create)})
	if err != nil {
		return zero, fmt.Errorf("create %s: %w", r.codec.Entity, err)
	}
	res, err := single(results)
	if err != nil {
		return zero, fmt.Errorf("create %s: %w", r.codec.Entity, err)
	}
	return r.resolve(ctx, res)
}

func (r *StoreRepository[T]) Update(ctx context.Context, item T) (T, error) {
	var zero T
	id := r.codec.ID(item)
	if id == 0 {
		return zero, ErrMissingID
	}
	results, err := r.store.UpdateRecords(ctx, r.codec.Entity, []record.Record{r.codec.ToAPI(item, record.Update)})
	if err != nil {
		return zero, fmt.Errorf("update %s %d: %w", r.codec.Entity, id, err)
	}
	res, err := single(results)
	if err != nil {
		return zero, fmt.Errorf("update %s %d: %w", r.codec.Entity, id, err)
	}
	if res.ID == 0 {
		res.ID = id
	}
	return r.resolve(ctx, res)
}

func (r *StoreRepository[T]) Delete(ctx context.Context, id int64) error {
	if id == 0 {
		return ErrMissingID
	}
	results, err := r.store.DeleteRecords(ctx, r.codec.Entity, []int64{id})
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", r.codec.Entity, id, err)
	}
	if _, err := single(results); err != nil {
		return fmt.Errorf("delete %s %d: %w", r.codec.Entity, id, err)
	}
	return nil
}

// DeleteMany deletes every id and returns one result per id. A BatchError
// lists the ids that failed; the rest were deleted.
func (r *StoreRepository[T]) DeleteMany(ctx context.Context, ids []int64) ([]Result, error) {
	for _, id := range ids {
		if id == 0 {
			return nil, ErrMissingID
		}
	}
	results, err := r.store.DeleteRecords(ctx, r.codec.Entity, ids)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", r.codec.Entity, err)
	}
	return results, CheckBatch("delete "+r.codec.Entity, results)
}

// resolve turns a successful result into a UI value, fetching the record
// when the store did not echo it back.
func (r *StoreRepository[T]) resolve(ctx context.Context, res Result) (T, error) {
	rec := res.Record
	if rec == nil {
		fetched, err := r.store.FetchByID(ctx, r.codec.Entity, res.ID, r.codec.Fields)
		if err != nil {
			var zero T
			return zero, fmt.Errorf("reload %s %d: %w", r.codec.Entity, res.ID, err)
		}
		rec = fetched
	}
	if rec.ID() == 0 && res.ID != 0 {
		rec = rec.Clone()
		rec[record.FieldID] = res.ID
	}
	return r.codec.ToUI(rec), nil
}

func single(results []Result) (Result, error) {
	if len(results) == 0 {
		return Result{}, fmt.Errorf("%w: empty result set", ErrUnavailable)
	}
	res := results[0]
	if err := res.Err(); err != nil {
		return res, err
	}
	return res, nil
}
