package staff

import (
	"strconv"
	"strings"
	"time"

	"github.com/hms/hms/internal/platform/collection"
)

type Stats struct {
	Total       int            `json:"total"`
	Available   int            `json:"available"`
	Departments int            `json:"departments"`
	Doctors     int            `json:"doctors"`
	ByStatus    map[string]int `json:"byStatus"`
}

var ViewConfig = collection.Config[Member, Stats]{
	Search: []func(Member) string{
		func(m Member) string { return m.Name },
		func(m Member) string { return m.Specialization },
		func(m Member) string { return m.Email },
	},
	Status: func(m Member) string { return m.Status },
	ForeignKey: func(m Member) string {
		if m.DepartmentID == 0 {
			return ""
		}
		return strconv.FormatInt(m.DepartmentID, 10)
	},
	Category: func(m Member) string { return m.Role },
	Facets: map[string]collection.Facet[Member]{
		"department": func(m Member, v string) bool { return strings.EqualFold(m.Department, v) },
	},
	Summarize: summarize,
	Scope:     collection.ScopeAll,
}

var ForeignKeyParams = []string{"departmentId"}

func summarize(items []Member, _ time.Time) Stats {
	s := Stats{Total: len(items), ByStatus: make(map[string]int, len(Statuses))}
	for _, st := range Statuses {
		s.ByStatus[st] = 0
	}
	departments := make(map[string]struct{})
	for _, m := range items {
		s.ByStatus[m.Status]++
		if m.Status == StatusAvailable {
			s.Available++
		}
		if m.Role == RoleDoctor {
			s.Doctors++
		}
		if m.Department != "" {
			departments[m.Department] = struct{}{}
		}
	}
	s.Departments = len(departments)
	return s
}
