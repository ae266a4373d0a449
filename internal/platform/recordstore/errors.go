package recordstore

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable means the store could not be reached or refused the
	// call as a whole. Callers keep their current state.
	ErrUnavailable = errors.New("record store unavailable")
	// ErrNotFound means the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrMissingID means an update or delete was attempted without an id.
	ErrMissingID = errors.New("record id is required")
)

// ValidationError reports field-level problems with a record. The whole
// operation failed.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Message != "" {
			return e.Message
		}
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error.
func (e *ValidationError) Add(field, label, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Label: label, Message: message})
}

// OrNil returns e when it carries field errors and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// RejectedError is a per-record failure the store gave no field detail for.
type RejectedError struct {
	ID      int64
	Message string
}

func (e *RejectedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "record rejected"
	}
	if e.ID != 0 {
		return fmt.Sprintf("record %d: %s", e.ID, msg)
	}
	return msg
}

// BatchError lists every failed record of a batch operation.
type BatchError struct {
	Op       string
	Failures []Result
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msg := f.Message
		if msg == "" {
			msg = f.Err().Error()
		}
		parts = append(parts, fmt.Sprintf("%d: %s", f.ID, msg))
	}
	return fmt.Sprintf("%s failed for %d record(s): %s", e.Op, len(e.Failures), strings.Join(parts, ", "))
}

// CheckBatch returns a BatchError when any result failed.
func CheckBatch(op string, results []Result) error {
	var failed []Result
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &BatchError{Op: op, Failures: failed}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}
