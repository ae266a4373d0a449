package recordstore

import (
	"context"
	"errors"
	"time"

	"github.com/hms/hms/internal/platform/record"
)

// Observer receives one observation per store call.
type Observer interface {
	ObserveStoreCall(entity, op, outcome string, elapsed time.Duration)
}

// Instrumented decorates a Store with call observations.
type Instrumented struct {
	next Store
	obs  Observer
}

// Instrument wraps next. A nil observer returns next unchanged.
func Instrument(next Store, obs Observer) Store {
	if obs == nil {
		return next
	}
	return &Instrumented{next: next, obs: obs}
}

func (s *Instrumented) FetchAll(ctx context.Context, entity string, q Query) ([]record.Record, error) {
	start := time.Now()
	recs, err := s.next.FetchAll(ctx, entity, q)
	s.obs.ObserveStoreCall(entity, "fetch", outcome(err), time.Since(start))
	return recs, err
}

func (s *Instrumented) FetchByID(ctx context.Context, entity string, id int64, fields []string) (record.Record, error) {
	start := time.Now()
	rec, err := s.next.FetchByID(ctx, entity, id, fields)
	s.obs.ObserveStoreCall(entity, "get", outcome(err), time.Since(start))
	return rec, err
}

func (s *Instrumented) CreateRecords(ctx context.Context, entity string, recs []record.Record) ([]Result, error) {
	start := time.Now()
	res, err := s.next.CreateRecords(ctx, entity, recs)
	s.obs.ObserveStoreCall(entity, "create", batchOutcome(res, err), time.Since(start))
	return res, err
}

func (s *Instrumented) UpdateRecords(ctx context.Context, entity string, recs []record.Record) ([]Result, error) {
	start := time.Now()
	res, err := s.next.UpdateRecords(ctx, entity, recs)
	s.obs.ObserveStoreCall(entity, "update", batchOutcome(res, err), time.Since(start))
	return res, err
}

func (s *Instrumented) DeleteRecords(ctx context.Context, entity string, ids []int64) ([]Result, error) {
	start := time.Now()
	res, err := s.next.DeleteRecords(ctx, entity, ids)
	s.obs.ObserveStoreCall(entity, "delete", batchOutcome(res, err), time.Since(start))
	return res, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func batchOutcome(res []Result, err error) string {
	if err != nil {
		return outcome(err)
	}
	if CheckBatch("", res) != nil {
		return "partial"
	}
	return "ok"
}
