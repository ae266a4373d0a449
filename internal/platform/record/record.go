// Package record holds the flat external record shape used by the record
// store together with lenient readers and an omit-empties writer. Entity
// packages build their ToUI/ToAPI transforms on top of these helpers so that
// every transform degrades the same way on partial data.
package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is one row of the external record store: field name to value.
type Record map[string]any

// Fields every external record carries.
const (
	FieldID   = "Id"
	FieldName = "Name"
)

// Mode selects how a UI value is written back to the store.
type Mode int

const (
	// Create omits the identifier; the store assigns it.
	Create Mode = iota
	// Update includes the identifier so the store can key the write.
	Update
)

// Ref is a normalized foreign key: the referenced identifier plus a display
// name resolved either from the store's reference object or separately.
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// IsZero reports whether the reference points nowhere.
func (r Ref) IsZero() bool { return r.ID == 0 }

// Code renders a derived human-readable code such as P001 or INV-0001.
func Code(prefix string, width int, id int64) string {
	return fmt.Sprintf("%s%0*d", prefix, width, id)
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID returns the record identifier or 0 when absent or malformed.
func (r Record) ID() int64 {
	return Read(r).Int(FieldID)
}

// Project keeps only the listed fields plus the identifier. An empty field
// list keeps everything.
func (r Record) Project(fields []string) Record {
	if len(fields) == 0 {
		return r.Clone()
	}
	out := make(Record, len(fields)+1)
	if v, ok := r[FieldID]; ok {
		out[FieldID] = v
	}
	for _, f := range fields {
		if v, ok := r[f]; ok {
			out[f] = v
		}
	}
	return out
}

// Reader reads fields from a record without ever failing: absent, null or
// mistyped values come back as the zero value of the requested type.
type Reader struct {
	rec Record
}

// Read wraps rec for lenient access. A nil record reads as empty.
func Read(rec Record) Reader { return Reader{rec: rec} }

// Has reports whether the field is present and non-null.
func (r Reader) Has(field string) bool {
	v, ok := r.rec[field]
	return ok && v != nil
}

func (r Reader) String(field string) string {
	switch v := r.rec[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return ""
	}
}

// StringOr returns def when the field is empty.
func (r Reader) StringOr(field, def string) string {
	if s := r.String(field); s != "" {
		return s
	}
	return def
}

// OneOf returns the field value when it belongs to allowed, def otherwise.
func (r Reader) OneOf(field string, allowed []string, def string) string {
	s := r.String(field)
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	return def
}

func (r Reader) Float(field string) float64 {
	var f float64
	switch v := r.rec[field].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case json.Number:
		f, _ = v.Float64()
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func (r Reader) Int(field string) int64 {
	return toInt(r.rec[field])
}

func (r Reader) Bool(field string) bool {
	switch v := r.rec[field].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time parses an ISO-like timestamp. Values without an offset are read in
// the host's local zone, matching how the dashboard has always read them.
func (r Reader) Time(field string) *time.Time {
	switch v := r.rec[field].(type) {
	case time.Time:
		if v.IsZero() {
			return nil
		}
		return &v
	case *time.Time:
		if v == nil || v.IsZero() {
			return nil
		}
		t := *v
		return &t
	case string:
		return ParseTime(v)
	}
	return nil
}

// ParseTime parses s with the layouts the store is known to emit.
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for i, layout := range timeLayouts {
		var (
			t   time.Time
			err error
		)
		if i == 0 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return &t
		}
	}
	return nil
}

// Ref unwraps a foreign key that may arrive as a bare identifier (number or
// numeric string) or as a {Id, Name} reference object.
func (r Reader) Ref(field string) Ref {
	switch v := r.rec[field].(type) {
	case nil:
		return Ref{}
	case Ref:
		return v
	case *Ref:
		if v == nil {
			return Ref{}
		}
		return *v
	case map[string]any:
		return refFromMap(v)
	case Record:
		return refFromMap(v)
	default:
		return Ref{ID: toInt(v)}
	}
}

func refFromMap(m map[string]any) Ref {
	ref := Ref{ID: toInt(m[FieldID])}
	if ref.ID == 0 {
		ref.ID = toInt(m["id"])
	}
	if name, ok := m[FieldName].(string); ok {
		ref.Name = name
	} else if name, ok := m["name"].(string); ok {
		ref.Name = name
	}
	return ref
}

// JSON decodes a blob field into target. The blob may be a JSON string, raw
// bytes, or an already-decoded structure. Missing, null or undecodable blobs
// return false and leave target untouched.
func (r Reader) JSON(field string, target any) bool {
	var raw []byte
	switch v := r.rec[field].(type) {
	case nil:
		return false
	case string:
		if strings.TrimSpace(v) == "" || v == "null" {
			return false
		}
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return false
		}
		raw = b
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return false
	}
	return true
}

func toInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int64(n)
	case float32:
		return int64(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, _ := n.Float64()
			return int64(f)
		}
		return i
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0
		}
		return i
	}
	return 0
}
