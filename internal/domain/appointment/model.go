package appointment

import (
	"fmt"
	"time"

	"github.com/hms/hms/internal/platform/workset"
)

const (
	StatusScheduled  = "Scheduled"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusCancelled  = "Cancelled"
)

// Statuses is the closed set of appointment states, default first.
var Statuses = []string{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled}

// DefaultDuration is the slot length in minutes when none is given.
const DefaultDuration = 30

// ErrAppointmentInPast refuses to start an appointment whose time has gone.
var ErrAppointmentInPast = fmt.Errorf("%w: appointment time has already passed", workset.ErrConflict)

type Appointment struct {
	ID          int64      `json:"id"`
	PatientID   int64      `json:"patientId"`
	PatientName string     `json:"patientName"`
	DoctorID    int64      `json:"doctorId"`
	DoctorName  string     `json:"doctorName"`
	DateTime    *time.Time `json:"dateTime"`
	Duration    int64      `json:"duration"`
	Type        string     `json:"type"`
	Reason      string     `json:"reason"`
	Notes       string     `json:"notes"`
	Status      string     `json:"status"`
}

// End is the scheduled end time, or nil without a start time.
func (a Appointment) End() *time.Time {
	if a.DateTime == nil {
		return nil
	}
	end := a.DateTime.Add(time.Duration(a.Duration) * time.Minute)
	return &end
}

// IsPast reports whether the appointment started before now.
func (a Appointment) IsPast(now time.Time) bool {
	return a.DateTime != nil && a.DateTime.Before(now)
}
