// Package dashboard aggregates the overview shown on the landing page from
// the patient, appointment, department and staff lists.
package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/hms/hms/internal/domain/appointment"
	"github.com/hms/hms/internal/domain/department"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/staff"
	"github.com/hms/hms/internal/platform/collection"
	"github.com/hms/hms/internal/platform/httperr"
)

// ListSize caps the today and recent admission lists.
const ListSize = 5

type Lister[T any] interface {
	All(ctx context.Context) ([]T, error)
}

type Summary struct {
	TotalPatients         int                       `json:"totalPatients"`
	AdmittedPatients      int                       `json:"admittedPatients"`
	ScheduledAppointments int                       `json:"scheduledAppointments"`
	TotalBeds             int64                     `json:"totalBeds"`
	AvailableBeds         int64                     `json:"availableBeds"`
	ActiveStaff           int                       `json:"activeStaff"`
	TodayAppointments     []appointment.Appointment `json:"todayAppointments"`
	RecentAdmissions      []patient.Patient         `json:"recentAdmissions"`
}

type Service struct {
	patients     Lister[patient.Patient]
	appointments Lister[appointment.Appointment]
	departments  Lister[department.Department]
	staff        Lister[staff.Member]
	clock        collection.Clock
}

func NewService(
	patients Lister[patient.Patient],
	appointments Lister[appointment.Appointment],
	departments Lister[department.Department],
	staff Lister[staff.Member],
	clock collection.Clock,
) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{patients: patients, appointments: appointments, departments: departments, staff: staff, clock: clock}
}

// Summary loads the four lists concurrently. Any failed load fails the
// whole summary.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var (
		patients     []patient.Patient
		appointments []appointment.Appointment
		departments  []department.Department
		members      []staff.Member
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		patients, err = s.patients.All(gctx)
		return wrap("patients", err)
	})
	g.Go(func() (err error) {
		appointments, err = s.appointments.All(gctx)
		return wrap("appointments", err)
	})
	g.Go(func() (err error) {
		departments, err = s.departments.All(gctx)
		return wrap("departments", err)
	})
	g.Go(func() (err error) {
		members, err = s.staff.All(gctx)
		return wrap("staff", err)
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return Build(patients, appointments, departments, members, s.clock()), nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

// Build computes the summary from already loaded lists.
func Build(
	patients []patient.Patient,
	appointments []appointment.Appointment,
	departments []department.Department,
	members []staff.Member,
	now time.Time,
) Summary {
	s := Summary{
		TotalPatients:     len(patients),
		TodayAppointments: []appointment.Appointment{},
		RecentAdmissions:  []patient.Patient{},
	}

	for _, p := range patients {
		if p.Status == patient.StatusAdmitted {
			s.AdmittedPatients++
		}
		if p.AdmissionDate != nil {
			s.RecentAdmissions = append(s.RecentAdmissions, p)
		}
	}
	sort.SliceStable(s.RecentAdmissions, func(i, j int) bool {
		return s.RecentAdmissions[i].AdmissionDate.After(*s.RecentAdmissions[j].AdmissionDate)
	})
	s.RecentAdmissions = s.RecentAdmissions[:min(len(s.RecentAdmissions), ListSize)]

	for _, a := range appointments {
		if a.Status == appointment.StatusScheduled {
			s.ScheduledAppointments++
		}
		if a.DateTime != nil && collection.SameDay(*a.DateTime, now) {
			s.TodayAppointments = append(s.TodayAppointments, a)
		}
	}
	sort.SliceStable(s.TodayAppointments, func(i, j int) bool {
		return s.TodayAppointments[i].DateTime.Before(*s.TodayAppointments[j].DateTime)
	})
	s.TodayAppointments = s.TodayAppointments[:min(len(s.TodayAppointments), ListSize)]

	for _, d := range departments {
		s.TotalBeds += d.TotalBeds
		s.AvailableBeds += d.AvailableBeds
	}
	for _, m := range members {
		if m.IsActive() {
			s.ActiveStaff++
		}
	}
	return s
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.Get)
}

func (h *Handler) Get(c echo.Context) error {
	sum, err := h.svc.Summary(c.Request().Context())
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, sum)
}
