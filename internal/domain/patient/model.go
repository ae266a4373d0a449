package patient

import (
	"strings"
	"time"
)

const (
	StatusActive     = "Active"
	StatusAdmitted   = "Admitted"
	StatusDischarged = "Discharged"
	StatusCritical   = "Critical"
)

// Statuses is the closed set of patient states, default first.
var Statuses = []string{StatusActive, StatusAdmitted, StatusDischarged, StatusCritical}

// EmergencyContact is never absent: a patient without one carries the
// all-empty shape.
type EmergencyContact struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
}

type Patient struct {
	ID               int64            `json:"id"`
	Code             string           `json:"code"`
	FirstName        string           `json:"firstName"`
	LastName         string           `json:"lastName"`
	DateOfBirth      *time.Time       `json:"dateOfBirth"`
	Gender           string           `json:"gender"`
	BloodType        string           `json:"bloodType"`
	Phone            string           `json:"phone"`
	Email            string           `json:"email"`
	Address          string           `json:"address"`
	EmergencyContact EmergencyContact `json:"emergencyContact"`
	Status           string           `json:"status"`
	AssignedBed      string           `json:"assignedBed"`
	AssignedDoctorID int64            `json:"assignedDoctorId"`
	AssignedDoctor   string           `json:"assignedDoctor"`
	AdmissionDate    *time.Time       `json:"admissionDate"`
}

// FullName joins first and last name.
func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Age in whole years at now, or -1 when the date of birth is unknown.
func (p Patient) Age(now time.Time) int {
	if p.DateOfBirth == nil {
		return -1
	}
	dob := *p.DateOfBirth
	age := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		age--
	}
	return age
}
