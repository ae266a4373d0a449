package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hms/hms/internal/domain/appointment"
	"github.com/hms/hms/internal/domain/department"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/staff"
	"github.com/hms/hms/internal/platform/recordstore"
)

var fixedNow = time.Date(2024, 1, 15, 8, 0, 0, 0, time.Local)

type stubList[T any] struct {
	items []T
	err   error
}

func (s stubList[T]) All(context.Context) ([]T, error) { return s.items, s.err }

func at(h int, dayOffset int) *time.Time {
	t := time.Date(2024, 1, 15+dayOffset, h, 0, 0, 0, time.Local)
	return &t
}

func samplePatients() []patient.Patient {
	var out []patient.Patient
	for i := 1; i <= 7; i++ {
		p := patient.Patient{ID: int64(i), FirstName: "P", LastName: "Test", Status: patient.StatusActive}
		if i%2 == 1 {
			p.Status = patient.StatusAdmitted
			p.AdmissionDate = at(9, -i)
		}
		out = append(out, p)
	}
	out[1].AdmissionDate = at(9, -20)
	return out
}

func sampleAppointments() []appointment.Appointment {
	var out []appointment.Appointment
	hours := []int{16, 9, 11, 14, 10, 15, 13}
	for i, h := range hours {
		out = append(out, appointment.Appointment{ID: int64(i + 1), DateTime: at(h, 0), Status: appointment.StatusScheduled})
	}
	out = append(out,
		appointment.Appointment{ID: 20, DateTime: at(9, 1), Status: appointment.StatusScheduled},
		appointment.Appointment{ID: 21, DateTime: at(9, 0), Status: appointment.StatusCompleted},
		appointment.Appointment{ID: 22, Status: appointment.StatusScheduled},
	)
	return out
}

func TestBuild(t *testing.T) {
	depts := []department.Department{{TotalBeds: 40, AvailableBeds: 5}, {TotalBeds: 10, AvailableBeds: 10}}
	members := []staff.Member{
		{Status: staff.StatusAvailable}, {Status: staff.StatusBusy}, {Status: staff.StatusOffDuty}, {Status: staff.StatusOnCall},
	}

	s := Build(samplePatients(), sampleAppointments(), depts, members, fixedNow)
	assert.Equal(t, 7, s.TotalPatients)
	assert.Equal(t, 4, s.AdmittedPatients)
	assert.Equal(t, 9, s.ScheduledAppointments)
	assert.Equal(t, int64(50), s.TotalBeds)
	assert.Equal(t, int64(15), s.AvailableBeds)
	assert.Equal(t, 2, s.ActiveStaff)

	require.Len(t, s.TodayAppointments, ListSize)
	var ids []int64
	for _, a := range s.TodayAppointments {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []int64{2, 21, 5, 3, 7}, ids)

	require.Len(t, s.RecentAdmissions, ListSize)
	assert.Equal(t, int64(1), s.RecentAdmissions[0].ID)
	assert.Equal(t, int64(2), s.RecentAdmissions[4].ID)
}

func TestBuild_Empty(t *testing.T) {
	s := Build(nil, nil, nil, nil, fixedNow)
	assert.Zero(t, s.TotalPatients)
	assert.NotNil(t, s.TodayAppointments)
	assert.NotNil(t, s.RecentAdmissions)
}

func TestService_SummaryFailsOnAnyLoad(t *testing.T) {
	svc := NewService(
		stubList[patient.Patient]{items: samplePatients()},
		stubList[appointment.Appointment]{err: recordstore.ErrUnavailable},
		stubList[department.Department]{},
		stubList[staff.Member]{},
		func() time.Time { return fixedNow },
	)
	_, err := svc.Summary(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, recordstore.ErrUnavailable))
	assert.Contains(t, err.Error(), "load appointments")
}

func TestHandler_Get(t *testing.T) {
	svc := NewService(
		stubList[patient.Patient]{items: samplePatients()},
		stubList[appointment.Appointment]{items: sampleAppointments()},
		stubList[department.Department]{items: []department.Department{{TotalBeds: 12, AvailableBeds: 3}}},
		stubList[staff.Member]{},
		func() time.Time { return fixedNow },
	)
	e := echo.New()
	NewHandler(svc).RegisterRoutes(e.Group("/api/v1"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalBeds":12`)
	assert.Contains(t, rec.Body.String(), `"admittedPatients":4`)

	failing := NewService(
		stubList[patient.Patient]{err: recordstore.ErrUnavailable},
		stubList[appointment.Appointment]{},
		stubList[department.Department]{},
		stubList[staff.Member]{},
		nil,
	)
	e = echo.New()
	NewHandler(failing).RegisterRoutes(e.Group("/api/v1"))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
