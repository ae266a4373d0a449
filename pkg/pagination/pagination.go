// Package pagination windows already filtered lists for list endpoints.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

type Params struct {
	Limit  int
	Offset int
}

// FromContext reads limit and offset from the query string. Missing or
// invalid values fall back to the defaults; limit is capped at MaxLimit.
func FromContext(c echo.Context) Params {
	return Parse(c.QueryParam("limit"), c.QueryParam("offset"))
}

func Parse(rawLimit, rawOffset string) Params {
	limit, err := strconv.Atoi(rawLimit)
	if err != nil || limit <= 0 {
		limit = DefaultLimit
	}
	offset, err := strconv.Atoi(rawOffset)
	if err != nil {
		offset = 0
	}
	return Params{Limit: min(limit, MaxLimit), Offset: max(offset, 0)}
}

// Page returns the window of items selected by p. The result is never nil,
// so an empty page encodes as [].
func Page[T any](items []T, p Params) []T {
	start := min(max(p.Offset, 0), len(items))
	end := len(items)
	if p.Limit > 0 {
		end = min(start+p.Limit, len(items))
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}

// Response is the list envelope. Total counts every match, Count the items
// on this page.
type Response[T any] struct {
	Data    []T  `json:"data"`
	Total   int  `json:"total"`
	Count   int  `json:"count"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Stats   any  `json:"stats,omitempty"`
}

// Of pages the full match list items.
func Of[T any](items []T, p Params) *Response[T] {
	page := Page(items, p)
	return &Response[T]{
		Data:    page,
		Total:   len(items),
		Count:   len(page),
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.Offset+len(page) < len(items),
	}
}

func (r *Response[T]) WithStats(stats any) *Response[T] {
	r.Stats = stats
	return r
}
