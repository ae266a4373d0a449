package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/appointment"
	"github.com/hms/hms/internal/domain/department"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/staff"
	"github.com/hms/hms/internal/platform/record"
	"github.com/hms/hms/internal/platform/recordstore"
	"github.com/hms/hms/internal/platform/workset"
)

// slowStore delays every list fetch so the dashboard's loads overlap with
// the name lookups the appointment list makes on the same entities.
type slowStore struct {
	recordstore.Store
	delay time.Duration
}

func (s slowStore) FetchAll(ctx context.Context, entity string, q recordstore.Query) ([]record.Record, error) {
	time.Sleep(s.delay)
	return s.Store.FetchAll(ctx, entity, q)
}

type graph struct {
	patients     *patient.Service
	staff        *staff.Service
	departments  *department.Service
	appointments *appointment.Service
	dashboard    *Service
}

func newGraph(store recordstore.Store) *graph {
	opts := workset.Options{Logger: zerolog.Nop(), Clock: func() time.Time { return fixedNow }}
	g := &graph{
		patients:     patient.NewService(patient.NewRepository(store), opts),
		staff:        staff.NewService(staff.NewRepository(store), opts),
		departments:  department.NewService(department.NewRepository(store), opts),
		appointments: appointment.NewService(appointment.NewRepository(store), opts),
	}
	g.staff.SetDepartmentDirectory(g.departments)
	g.patients.SetDoctorDirectory(g.staff)
	g.appointments.SetDirectories(g.patients, g.staff)
	g.dashboard = NewService(g.patients, g.appointments, g.departments, g.staff, opts.Clock)
	return g
}

func TestService_SummaryOnColdServices(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	seed := newGraph(store)

	dept, err := seed.departments.Create(ctx, department.Department{Name: "Cardiology", TotalBeds: 20, AvailableBeds: 4})
	if err != nil {
		t.Fatalf("create department: %v", err)
	}
	doc, err := seed.staff.Create(ctx, staff.Member{Name: "Dr. Grey", Role: staff.RoleDoctor, DepartmentID: dept.ID})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	for i, name := range []string{"Ada", "Ben", "Cleo"} {
		p, err := seed.patients.Create(ctx, patient.Patient{
			FirstName: name, LastName: "Test", DateOfBirth: at(0, -3000), Gender: "Female", Phone: "555-0100",
			AssignedDoctorID: doc.ID,
		})
		if err != nil {
			t.Fatalf("create patient %d: %v", i, err)
		}
		if _, err := seed.appointments.Create(ctx, appointment.Appointment{PatientID: p.ID, DoctorID: doc.ID, DateTime: at(10+i, 0)}); err != nil {
			t.Fatalf("create appointment %d: %v", i, err)
		}
	}

	for round := range 25 {
		g := newGraph(slowStore{Store: store, delay: time.Millisecond})
		s, err := g.dashboard.Summary(ctx)
		if err != nil {
			t.Fatalf("round %d: summary: %v", round, err)
		}
		if s.TotalPatients != 3 {
			t.Fatalf("round %d: TotalPatients = %d, want 3", round, s.TotalPatients)
		}
		if s.ActiveStaff != 1 {
			t.Fatalf("round %d: ActiveStaff = %d, want 1", round, s.ActiveStaff)
		}
		if s.TotalBeds != 20 {
			t.Fatalf("round %d: TotalBeds = %d, want 20", round, s.TotalBeds)
		}
		if len(s.TodayAppointments) != 3 {
			t.Fatalf("round %d: %d appointments today, want 3", round, len(s.TodayAppointments))
		}
		for _, a := range s.TodayAppointments {
			if a.PatientName == "" || a.DoctorName != "Dr. Grey" {
				t.Fatalf("round %d: unresolved names on appointment %d: %q / %q", round, a.ID, a.PatientName, a.DoctorName)
			}
		}
	}
}
