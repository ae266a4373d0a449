package recordstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/hms/hms/internal/platform/record"
)

// Memory is an in-process Store. Updates merge the sent fields into the
// stored record, matching the remote store.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]*memTable
	fail   error
}

type memTable struct {
	rows   []record.Record
	nextID int64
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string]*memTable)}
}

// SetFailure makes every subsequent call fail with ErrUnavailable wrapping
// err. A nil err restores normal operation.
func (m *Memory) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *Memory) table(entity string) *memTable {
	t, ok := m.tables[entity]
	if !ok {
		t = &memTable{nextID: 1}
		m.tables[entity] = t
	}
	return t
}

func (m *Memory) check(op string) error {
	if m.fail != nil {
		return unavailable(op, m.fail)
	}
	return nil
}

func (m *Memory) FetchAll(_ context.Context, entity string, q Query) ([]record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check("fetch " + entity); err != nil {
		return nil, err
	}

	var rows []record.Record
	if t, ok := m.tables[entity]; ok {
		rows = t.rows
	}
	sorted := make([]record.Record, len(rows))
	copy(sorted, rows)
	if len(q.OrderBy) > 0 {
		slices.SortStableFunc(sorted, func(a, b record.Record) int {
			for _, o := range q.OrderBy {
				c := compareValues(a[o.Field], b[o.Field])
				if o.Desc {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}

	start := min(q.Paging.Offset, len(sorted))
	end := len(sorted)
	if q.Paging.Limit > 0 {
		end = min(start+q.Paging.Limit, len(sorted))
	}

	out := make([]record.Record, 0, end-start)
	for _, r := range sorted[start:end] {
		out = append(out, r.Project(q.Fields))
	}
	return out, nil
}

func (m *Memory) FetchByID(_ context.Context, entity string, id int64, fields []string) (record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check("fetch " + entity); err != nil {
		return nil, err
	}
	t, ok := m.tables[entity]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	idx := t.index(id)
	if idx < 0 {
		return nil, fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return t.rows[idx].Project(fields), nil
}

func (m *Memory) CreateRecords(_ context.Context, entity string, recs []record.Record) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("create " + entity); err != nil {
		return nil, err
	}
	t := m.table(entity)
	results := make([]Result, 0, len(recs))
	for _, in := range recs {
		row := in.Clone()
		if row == nil {
			row = record.Record{}
		}
		id := t.nextID
		t.nextID++
		row[record.FieldID] = id
		t.rows = append(t.rows, row)
		results = append(results, Result{ID: id, Success: true, Record: row.Clone()})
	}
	return results, nil
}

func (m *Memory) UpdateRecords(_ context.Context, entity string, recs []record.Record) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("update " + entity); err != nil {
		return nil, err
	}
	t := m.table(entity)
	results := make([]Result, 0, len(recs))
	for _, in := range recs {
		id := in.ID()
		if id == 0 {
			results = append(results, Result{Success: false, Message: ErrMissingID.Error()})
			continue
		}
		idx := t.index(id)
		if idx < 0 {
			results = append(results, Result{ID: id, Success: false, NotFound: true, Message: ErrNotFound.Error()})
			continue
		}
		row := t.rows[idx].Clone()
		for k, v := range in {
			if k == record.FieldID {
				continue
			}
			row[k] = v
		}
		t.rows[idx] = row
		results = append(results, Result{ID: id, Success: true, Record: row.Clone()})
	}
	return results, nil
}

func (m *Memory) DeleteRecords(_ context.Context, entity string, ids []int64) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("delete " + entity); err != nil {
		return nil, err
	}
	t := m.table(entity)
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		idx := t.index(id)
		if idx < 0 {
			results = append(results, Result{ID: id, Success: false, NotFound: true, Message: ErrNotFound.Error()})
			continue
		}
		t.rows = slices.Delete(t.rows, idx, idx+1)
		results = append(results, Result{ID: id, Success: true})
	}
	return results, nil
}

// Count returns the number of stored records of an entity.
func (m *Memory) Count(entity string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tables[entity]; ok {
		return len(t.rows)
	}
	return 0
}

func (t *memTable) index(id int64) int {
	for i, r := range t.rows {
		if r.ID() == id {
			return i
		}
	}
	return -1
}

func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return 1
		default:
			return -1
		}
	}
	ar, br := record.Record{"v": a}, record.Record{"v": b}
	switch a.(type) {
	case string:
		as, bs := record.Read(ar).String("v"), record.Read(br).String("v")
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
		return 0
	default:
		af, bf := record.Read(ar).Float("v"), record.Read(br).Float("v")
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
}
