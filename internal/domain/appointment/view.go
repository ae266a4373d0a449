package appointment

import (
	"strconv"
	"time"

	"github.com/hms/hms/internal/platform/collection"
)

type Stats struct {
	Total     int            `json:"total"`
	Today     int            `json:"today"`
	Scheduled int            `json:"scheduled"`
	Completed int            `json:"completed"`
	ByStatus  map[string]int `json:"byStatus"`
}

// ViewConfig orders appointments by time; undated ones sort last.
var ViewConfig = collection.Config[Appointment, Stats]{
	Search: []func(Appointment) string{
		func(a Appointment) string { return a.PatientName },
		func(a Appointment) string { return a.DoctorName },
		func(a Appointment) string { return a.Reason },
	},
	Status:     func(a Appointment) string { return a.Status },
	ForeignKey: func(a Appointment) string { return idString(a.PatientID) },
	Category:   func(a Appointment) string { return a.Type },
	DateAxis:   dateAxis,
	Facets: map[string]collection.Facet[Appointment]{
		"doctorId": func(a Appointment, v string) bool { return idString(a.DoctorID) == v },
	},
	Less:      byDateTime,
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

func dateAxis(a Appointment) (time.Time, bool) {
	if a.DateTime == nil {
		return time.Time{}, false
	}
	return *a.DateTime, true
}

func byDateTime(a, b Appointment) bool {
	switch {
	case a.DateTime == nil:
		return false
	case b.DateTime == nil:
		return true
	}
	return a.DateTime.Before(*b.DateTime)
}

func summarize(items []Appointment, now time.Time) Stats {
	s := Stats{Total: len(items), ByStatus: make(map[string]int, len(Statuses))}
	for _, st := range Statuses {
		s.ByStatus[st] = 0
	}
	for _, a := range items {
		s.ByStatus[a.Status]++
		if a.DateTime != nil && collection.SameDay(*a.DateTime, now) {
			s.Today++
		}
		switch a.Status {
		case StatusScheduled:
			s.Scheduled++
		case StatusCompleted:
			s.Completed++
		}
	}
	return s
}
