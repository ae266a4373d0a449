package record

import (
	"encoding/json"
	"time"
)

// Writer builds an outgoing record. Empty values are never written so a
// partial UI value cannot blank out fields the store already holds.
type Writer struct {
	rec Record
}

// NewWriter starts a record for the given mode. The identifier is written
// only in Update mode and only when it is set.
func NewWriter(id int64, mode Mode) *Writer {
	w := &Writer{rec: Record{}}
	if mode == Update && id != 0 {
		w.rec[FieldID] = id
	}
	return w
}

// String writes v unless it is "". Whitespace is a value and is sent as is.
func (w *Writer) String(field, v string) *Writer {
	if v != "" {
		w.rec[field] = v
	}
	return w
}

// Time writes t as RFC 3339 in its own zone.
func (w *Writer) Time(field string, t *time.Time) *Writer {
	if t != nil && !t.IsZero() {
		w.rec[field] = t.Format(time.RFC3339)
	}
	return w
}

// Date writes only the calendar date of t.
func (w *Writer) Date(field string, t *time.Time) *Writer {
	if t != nil && !t.IsZero() {
		w.rec[field] = t.Format("2006-01-02")
	}
	return w
}

func (w *Writer) Float(field string, v float64) *Writer {
	w.rec[field] = v
	return w
}

func (w *Writer) Int(field string, v int64) *Writer {
	w.rec[field] = v
	return w
}

// PositiveInt writes v only when it is greater than zero.
func (w *Writer) PositiveInt(field string, v int64) *Writer {
	if v > 0 {
		w.rec[field] = v
	}
	return w
}

func (w *Writer) Bool(field string, v bool) *Writer {
	w.rec[field] = v
	return w
}

// Ref writes a lookup as the bare identifier the store expects on write.
func (w *Writer) Ref(field string, ref Ref) *Writer {
	if !ref.IsZero() {
		w.rec[field] = ref.ID
	}
	return w
}

// JSON serializes v into a string blob. Nil values are skipped.
func (w *Writer) JSON(field string, v any) *Writer {
	if v == nil {
		return w
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return w
	}
	w.rec[field] = string(b)
	return w
}

// Record returns the built record.
func (w *Writer) Record() Record { return w.rec }
