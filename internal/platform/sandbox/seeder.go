package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/appointment"
	"github.com/hms/hms/internal/domain/billing"
	"github.com/hms/hms/internal/domain/department"
	"github.com/hms/hms/internal/domain/labtest"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/staff"
)

type creator[T any] interface {
	Create(ctx context.Context, item T) (T, error)
}

// LabTests is the lab test surface the seeder drives; created tests are
// walked to their fixture status through the normal transitions.
type LabTests interface {
	creator[labtest.LabTest]
	UpdateStatus(ctx context.Context, id int64, status string) (labtest.LabTest, error)
	AddResults(ctx context.Context, id int64, res labtest.Results) (labtest.LabTest, error)
}

// Targets are the services fixtures are written through, so seeded data
// passes the same validation, defaults and events as user input.
type Targets struct {
	Departments  creator[department.Department]
	Staff        creator[staff.Member]
	Patients     creator[patient.Patient]
	Appointments creator[appointment.Appointment]
	Bills        creator[billing.Bill]
	LabTests     LabTests
}

// SeedResult summarizes a seed run.
type SeedResult struct {
	Departments  int           `json:"departments"`
	Staff        int           `json:"staff"`
	Patients     int           `json:"patients"`
	Appointments int           `json:"appointments"`
	Bills        int           `json:"bills"`
	LabTests     int           `json:"labTests"`
	Total        int           `json:"total"`
	Duration     time.Duration `json:"duration"`
}

type Seeder struct {
	targets Targets
	logger  zerolog.Logger
	clock   func() time.Time
}

func NewSeeder(targets Targets, logger zerolog.Logger, clock func() time.Time) *Seeder {
	if clock == nil {
		clock = time.Now
	}
	return &Seeder{targets: targets, logger: logger, clock: clock}
}

// Synthetic generates a fixture set with the seeder's clock.
func (s *Seeder) Synthetic(cfg SeedConfig) *Fixtures {
	return NewDataGenerator(cfg.Seed, s.clock()).Generate(cfg)
}

// Seed writes fx in dependency order and stops at the first failure. The
// result counts what was written before that point.
func (s *Seeder) Seed(ctx context.Context, fx *Fixtures) (*SeedResult, error) {
	start := time.Now()
	fx.Rebase(s.clock())
	res := &SeedResult{}
	defer func() {
		res.Total = res.Departments + res.Staff + res.Patients + res.Appointments + res.Bills + res.LabTests
		res.Duration = time.Since(start)
	}()

	deptIDs := make([]int64, 0, len(fx.Departments))
	for _, d := range fx.Departments {
		created, err := s.targets.Departments.Create(ctx, d)
		if err != nil {
			return res, fmt.Errorf("seed department %q: %w", d.Name, err)
		}
		deptIDs = append(deptIDs, created.ID)
		res.Departments++
	}

	staffIDs := make([]int64, 0, len(fx.Staff))
	for i, m := range fx.Staff {
		var err error
		if m.DepartmentID, err = resolve(deptIDs, m.DepartmentID, "staff", i, "departmentId"); err != nil {
			return res, err
		}
		created, err := s.targets.Staff.Create(ctx, m)
		if err != nil {
			return res, fmt.Errorf("seed staff %q: %w", m.Name, err)
		}
		staffIDs = append(staffIDs, created.ID)
		res.Staff++
	}

	patientIDs := make([]int64, 0, len(fx.Patients))
	for i, p := range fx.Patients {
		var err error
		if p.AssignedDoctorID, err = resolve(staffIDs, p.AssignedDoctorID, "patient", i, "assignedDoctorId"); err != nil {
			return res, err
		}
		created, err := s.targets.Patients.Create(ctx, p)
		if err != nil {
			return res, fmt.Errorf("seed patient %q: %w", p.FullName(), err)
		}
		patientIDs = append(patientIDs, created.ID)
		res.Patients++
	}

	for i, a := range fx.Appointments {
		var err error
		if a.PatientID, err = resolve(patientIDs, a.PatientID, "appointment", i, "patientId"); err != nil {
			return res, err
		}
		if a.DoctorID, err = resolve(staffIDs, a.DoctorID, "appointment", i, "doctorId"); err != nil {
			return res, err
		}
		if _, err := s.targets.Appointments.Create(ctx, a); err != nil {
			return res, fmt.Errorf("seed appointment %d: %w", i+1, err)
		}
		res.Appointments++
	}

	for i, b := range fx.Bills {
		var err error
		if b.PatientID, err = resolve(patientIDs, b.PatientID, "bill", i, "patientId"); err != nil {
			return res, err
		}
		if _, err := s.targets.Bills.Create(ctx, b); err != nil {
			return res, fmt.Errorf("seed bill %d: %w", i+1, err)
		}
		res.Bills++
	}

	for i, t := range fx.LabTests {
		var err error
		if t.PatientID, err = resolve(patientIDs, t.PatientID, "lab test", i, "patientId"); err != nil {
			return res, err
		}
		if err := s.seedLabTest(ctx, t); err != nil {
			return res, fmt.Errorf("seed lab test %q: %w", t.TestName, err)
		}
		res.LabTests++
	}

	s.logger.Info().
		Int("departments", res.Departments).
		Int("staff", res.Staff).
		Int("patients", res.Patients).
		Int("appointments", res.Appointments).
		Int("bills", res.Bills).
		Int("lab_tests", res.LabTests).
		Msg("seed complete")
	return res, nil
}

func (s *Seeder) seedLabTest(ctx context.Context, t labtest.LabTest) error {
	want, results := t.Status, t.Results
	created, err := s.targets.LabTests.Create(ctx, t)
	if err != nil {
		return err
	}

	var steps []string
	switch want {
	case labtest.StatusInProgress:
		steps = []string{labtest.StatusInProgress}
	case labtest.StatusCancelled:
		steps = []string{labtest.StatusCancelled}
	case labtest.StatusCompleted:
		if results != nil {
			_, err := s.targets.LabTests.AddResults(ctx, created.ID, *results)
			return err
		}
		steps = []string{labtest.StatusInProgress, labtest.StatusCompleted}
	}
	for _, st := range steps {
		if _, err := s.targets.LabTests.UpdateStatus(ctx, created.ID, st); err != nil {
			return err
		}
	}
	return nil
}

// resolve maps a 1-based fixture reference to a stored id. Zero stays
// zero.
func resolve(ids []int64, ref int64, kind string, index int, field string) (int64, error) {
	if ref == 0 {
		return 0, nil
	}
	if ref < 0 || int(ref) > len(ids) {
		return 0, fmt.Errorf("%s %d: %s %d does not name a seeded record", kind, index+1, field, ref)
	}
	return ids[ref-1], nil
}
