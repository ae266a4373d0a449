package patient

import (
	"strconv"
	"strings"
	"time"

	"github.com/hms/hms/internal/platform/collection"
)

// Stats is the header summary of the patient list.
type Stats struct {
	Total    int            `json:"total"`
	Admitted int            `json:"admitted"`
	Critical int            `json:"critical"`
	Active   int            `json:"active"`
	ByStatus map[string]int `json:"byStatus"`
}

// ViewConfig drives the patient list screen.
var ViewConfig = collection.Config[Patient, Stats]{
	Search: []func(Patient) string{
		Patient.FullName,
		func(p Patient) string { return p.Code },
		func(p Patient) string { return p.Phone },
	},
	Status: func(p Patient) string { return p.Status },
	ForeignKey: func(p Patient) string {
		if p.AssignedDoctorID == 0 {
			return ""
		}
		return strconv.FormatInt(p.AssignedDoctorID, 10)
	},
	DateAxis: func(p Patient) (time.Time, bool) {
		if p.AdmissionDate == nil {
			return time.Time{}, false
		}
		return *p.AdmissionDate, true
	},
	Facets: map[string]collection.Facet[Patient]{
		"gender":    func(p Patient, v string) bool { return strings.EqualFold(p.Gender, v) },
		"bloodType": func(p Patient, v string) bool { return strings.EqualFold(p.BloodType, v) },
	},
	Summarize: summarize,
	Scope:     collection.ScopeAll,
}

// ForeignKeyParams are the query names accepted for the doctor filter.
var ForeignKeyParams = []string{"assignedDoctorId", "doctorId"}

func summarize(items []Patient, _ time.Time) Stats {
	s := Stats{Total: len(items), ByStatus: make(map[string]int, len(Statuses))}
	for _, st := range Statuses {
		s.ByStatus[st] = 0
	}
	for _, p := range items {
		s.ByStatus[p.Status]++
		switch p.Status {
		case StatusAdmitted:
			s.Admitted++
		case StatusCritical:
			s.Critical++
		case StatusActive:
			s.Active++
		}
	}
	return s
}
