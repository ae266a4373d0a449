// Package recordstore defines the contract of the external record store and
// ships the adapters used to reach it: an in-memory store, a remote HTTP
// client and a PostgreSQL table.
package recordstore

import (
	"context"

	"github.com/hms/hms/internal/platform/record"
)

// Store is the external record store. Batch operations report a Result per
// input record; one record failing does not fail the others.
type Store interface {
	FetchAll(ctx context.Context, entity string, q Query) ([]record.Record, error)
	FetchByID(ctx context.Context, entity string, id int64, fields []string) (record.Record, error)
	CreateRecords(ctx context.Context, entity string, recs []record.Record) ([]Result, error)
	UpdateRecords(ctx context.Context, entity string, recs []record.Record) ([]Result, error)
	DeleteRecords(ctx context.Context, entity string, ids []int64) ([]Result, error)
}

// Query selects which fields and rows FetchAll returns.
type Query struct {
	Fields  []string  `json:"fields,omitempty"`
	OrderBy []OrderBy `json:"orderBy,omitempty"`
	Paging  Paging    `json:"paging"`
}

// OrderBy orders a fetch by one field.
type OrderBy struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

// Paging bounds a fetch. A zero limit means no limit.
type Paging struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DefaultPageSize is the page size used when loading a whole entity.
const DefaultPageSize = 100

// FieldError is one field-level validation message.
type FieldError struct {
	Field   string `json:"field"`
	Label   string `json:"label,omitempty"`
	Message string `json:"message"`
}

// Result is the outcome of one record in a batch operation.
type Result struct {
	ID       int64         `json:"id"`
	Success  bool          `json:"success"`
	Message  string        `json:"message,omitempty"`
	NotFound bool          `json:"notFound,omitempty"`
	Errors   []FieldError  `json:"errors,omitempty"`
	Record   record.Record `json:"data,omitempty"`
}

// Err converts a failed result to the matching error. Successful results
// return nil.
func (r Result) Err() error {
	switch {
	case r.Success:
		return nil
	case r.NotFound:
		return ErrNotFound
	case len(r.Errors) > 0:
		return &ValidationError{Message: r.Message, Fields: r.Errors}
	default:
		return &RejectedError{ID: r.ID, Message: r.Message}
	}
}

// FetchEvery pages through an entity until a short page is returned.
func FetchEvery(ctx context.Context, s Store, entity string, fields []string, order []OrderBy) ([]record.Record, error) {
	var out []record.Record
	for offset := 0; ; offset += DefaultPageSize {
		page, err := s.FetchAll(ctx, entity, Query{
			Fields:  fields,
			OrderBy: order,
			Paging:  Paging{Limit: DefaultPageSize, Offset: offset},
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < DefaultPageSize {
			return out, nil
		}
	}
}
