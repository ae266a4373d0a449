package department

import (
	"strings"
	"time"

	"github.com/hms/hms/internal/platform/collection"
)

type Stats struct {
	Total         int     `json:"total"`
	TotalBeds     int64   `json:"totalBeds"`
	AvailableBeds int64   `json:"availableBeds"`
	OccupancyRate float64 `json:"occupancyRate"`
}

// ViewConfig summarizes the filtered departments, so the header follows
// the type and occupancy filters.
var ViewConfig = collection.Config[Department, Stats]{
	Search: []func(Department) string{
		func(d Department) string { return d.Name },
		func(d Department) string { return d.Type },
		func(d Department) string { return d.HeadOfDepartment },
	},
	Category: func(d Department) string { return d.Type },
	Facets: map[string]collection.Facet[Department]{
		"occupancy": func(d Department, v string) bool { return strings.EqualFold(d.Band(), v) },
	},
	Summarize: summarize,
	Scope:     collection.ScopeFiltered,
}

func summarize(items []Department, _ time.Time) Stats {
	s := Stats{Total: len(items)}
	var occupied int64
	for _, d := range items {
		s.TotalBeds += d.TotalBeds
		s.AvailableBeds += d.AvailableBeds
		occupied += d.OccupiedBeds()
	}
	if s.TotalBeds > 0 {
		s.OccupancyRate = round1(float64(occupied) / float64(s.TotalBeds) * 100)
	}
	return s
}
