package labtest

import (
	"strconv"
	"time"

	"github.com/hms/hms/internal/platform/collection"
)

type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}

var ViewConfig = collection.Config[LabTest, Stats]{
	Search: []func(LabTest) string{
		func(t LabTest) string { return t.TestName },
		func(t LabTest) string { return t.PatientName },
		func(t LabTest) string { return t.TestCode },
		func(t LabTest) string { return t.DoctorName },
	},
	Status:     func(t LabTest) string { return t.Status },
	ForeignKey: func(t LabTest) string { return idString(t.PatientID) },
	Category:   func(t LabTest) string { return t.Category },
	DateAxis: func(t LabTest) (time.Time, bool) {
		if t.OrderDate == nil {
			return time.Time{}, false
		}
		return *t.OrderDate, true
	},
	Facets: map[string]collection.Facet[LabTest]{
		"priority": func(t LabTest, v string) bool { return t.Priority == v },
	},
	Summarize: summarize,
	Scope:     collection.ScopeAll,
}

var ForeignKeyParams = []string{"patientId"}

func idString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func summarize(items []LabTest, _ time.Time) Stats {
	s := Stats{Total: len(items)}
	for _, t := range items {
		switch t.Status {
		case StatusPending:
			s.Pending++
		case StatusInProgress:
			s.InProgress++
		case StatusCompleted:
			s.Completed++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}
