// Package collection derives the list-screen projection of an entity: the
// filtered subset, its display order and a summary. One engine is
// instantiated per entity from a declarative Config.
package collection

import (
	"net/url"
	"slices"
	"strings"
	"time"
)

// Criteria is the set of user-chosen constraints for a list screen. Every
// field is optional; an empty value or "All" means no constraint.
type Criteria struct {
	SearchText       string
	StatusEquals     string
	ForeignKeyEquals string
	CategoryEquals   string
	DateWindow       Window
	Facets           map[string]string
}

// IsZero reports whether the criteria constrain nothing.
func (c Criteria) IsZero() bool {
	if active(c.SearchText) || active(c.StatusEquals) || active(c.ForeignKeyEquals) ||
		active(c.CategoryEquals) || c.DateWindow.Active() {
		return false
	}
	for _, v := range c.Facets {
		if active(v) {
			return false
		}
	}
	return true
}

func active(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, "all")
}

// Facet matches an item against a facet value such as an occupancy band.
type Facet[T any] func(item T, value string) bool

// Scope selects which set the summary is computed over.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeFiltered
)

// Clock returns the current time. Tests inject a fixed one.
type Clock func() time.Time

// Config declares how one entity is searched, filtered, ordered and
// summarized. Nil accessors disable the matching criterion.
type Config[T any, S any] struct {
	Search     []func(T) string
	Status     func(T) string
	ForeignKey func(T) string
	Category   func(T) string
	DateAxis   func(T) (time.Time, bool)
	Facets     map[string]Facet[T]
	// Less orders the view. Nil keeps store order.
	Less      func(a, b T) bool
	Summarize func(items []T, now time.Time) S
	Scope     Scope
}

// View is the derived projection handed to a list screen.
type View[T any, S any] struct {
	Items []T
	Count int
	Total int
	Stats S
}

// ApplyFilters returns the records satisfying every active criterion, in
// their original order. The input slice is not modified.
func (c Config[T, S]) ApplyFilters(records []T, cr Criteria, now time.Time) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if c.matches(r, cr, now) {
			out = append(out, r)
		}
	}
	return out
}

func (c Config[T, S]) matches(r T, cr Criteria, now time.Time) bool {
	if q := strings.TrimSpace(cr.SearchText); q != "" && len(c.Search) > 0 {
		q = strings.ToLower(q)
		found := false
		for _, field := range c.Search {
			if strings.Contains(strings.ToLower(field(r)), q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !equalsIfActive(c.Status, r, cr.StatusEquals) {
		return false
	}
	if !equalsIfActive(c.ForeignKey, r, cr.ForeignKeyEquals) {
		return false
	}
	if !equalsIfActive(c.Category, r, cr.CategoryEquals) {
		return false
	}
	if cr.DateWindow.Active() && c.DateAxis != nil {
		t, ok := c.DateAxis(r)
		if !ok || !cr.DateWindow.Contains(t, now) {
			return false
		}
	}
	for name, value := range cr.Facets {
		if !active(value) {
			continue
		}
		facet, ok := c.Facets[name]
		if !ok {
			continue
		}
		if !facet(r, strings.TrimSpace(value)) {
			return false
		}
	}
	return true
}

func equalsIfActive[T any](get func(T) string, r T, want string) bool {
	if get == nil || !active(want) {
		return true
	}
	return get(r) == strings.TrimSpace(want)
}

// SortRecords returns a stably sorted copy. A nil less keeps the input
// order.
func SortRecords[T any](records []T, less func(a, b T) bool) []T {
	out := slices.Clone(records)
	if out == nil {
		out = []T{}
	}
	if less == nil {
		return out
	}
	slices.SortStableFunc(out, func(a, b T) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// Summary computes the configured summary over records.
func (c Config[T, S]) Summary(records []T, now time.Time) S {
	var zero S
	if c.Summarize == nil {
		return zero
	}
	return c.Summarize(records, now)
}

// Build filters, orders and summarizes records in one pass.
func (c Config[T, S]) Build(records []T, cr Criteria, now time.Time) View[T, S] {
	filtered := c.ApplyFilters(records, cr, now)
	items := SortRecords(filtered, c.Less)

	summarized := records
	if c.Scope == ScopeFiltered {
		summarized = filtered
	}
	return View[T, S]{
		Items: items,
		Count: len(items),
		Total: len(records),
		Stats: c.Summary(summarized, now),
	}
}

// CriteriaFromQuery reads criteria from URL query values. fkParams lists the
// accepted names of the foreign key parameter; "fk" is always accepted. Any
// parameter whose name matches a configured facet becomes a facet value.
func (c Config[T, S]) CriteriaFromQuery(q url.Values, fkParams ...string) Criteria {
	cr := Criteria{
		SearchText:     q.Get("search"),
		StatusEquals:   q.Get("status"),
		CategoryEquals: q.Get("category"),
		DateWindow:     ParseWindow(q.Get("window")),
	}
	for _, name := range append([]string{"fk"}, fkParams...) {
		if v := q.Get(name); v != "" {
			cr.ForeignKeyEquals = v
			break
		}
	}
	for name := range c.Facets {
		if v := q.Get(name); v != "" {
			if cr.Facets == nil {
				cr.Facets = make(map[string]string)
			}
			cr.Facets[name] = v
		}
	}
	return cr
}
