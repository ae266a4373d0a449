package sandbox

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/hms/hms/internal/domain/appointment"
	"github.com/hms/hms/internal/domain/billing"
	"github.com/hms/hms/internal/domain/department"
	"github.com/hms/hms/internal/domain/labtest"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/staff"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// SeedConfig controls the volume of generated synthetic data.
type SeedConfig struct {
	PatientCount           int   `json:"patientCount"`
	DoctorCount            int   `json:"doctorCount"`
	NurseCount             int   `json:"nurseCount"`
	AppointmentsPerPatient int   `json:"appointmentsPerPatient"`
	BillsPerPatient        int   `json:"billsPerPatient"`
	LabTestsPerPatient     int   `json:"labTestsPerPatient"`
	Seed                   int64 `json:"seed"`
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		PatientCount:           50,
		DoctorCount:            8,
		NurseCount:             12,
		AppointmentsPerPatient: 2,
		BillsPerPatient:        1,
		LabTestsPerPatient:     1,
	}
}

// withDefaults fills zero counts from DefaultSeedConfig. A negative count
// means none.
func (c SeedConfig) withDefaults() SeedConfig {
	d := DefaultSeedConfig()
	pick := func(v, def int) int {
		switch {
		case v == 0:
			return def
		case v < 0:
			return 0
		}
		return v
	}
	c.PatientCount = pick(c.PatientCount, d.PatientCount)
	c.DoctorCount = max(pick(c.DoctorCount, d.DoctorCount), 1)
	c.NurseCount = pick(c.NurseCount, d.NurseCount)
	c.AppointmentsPerPatient = pick(c.AppointmentsPerPatient, d.AppointmentsPerPatient)
	c.BillsPerPatient = pick(c.BillsPerPatient, d.BillsPerPatient)
	c.LabTestsPerPatient = pick(c.LabTestsPerPatient, d.LabTestsPerPatient)
	return c
}

// ---------------------------------------------------------------------------
// Pools
// ---------------------------------------------------------------------------

type departmentDef struct {
	Name, Type, Specialization string
	Beds                       int64
}

var (
	firstNamesMale = []string{
		"James", "Robert", "John", "Michael", "David", "William", "Richard",
		"Joseph", "Thomas", "Christopher", "Daniel", "Matthew", "Anthony",
		"Mark", "Steven", "Paul", "Andrew", "Joshua", "Kevin", "Brian",
	}
	firstNamesFemale = []string{
		"Mary", "Patricia", "Jennifer", "Linda", "Elizabeth", "Susan",
		"Jessica", "Sarah", "Karen", "Lisa", "Nancy", "Margaret", "Emily",
		"Michelle", "Amanda", "Melissa", "Stephanie", "Rebecca", "Laura", "Anna",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
		"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Wilson",
		"Anderson", "Thomas", "Taylor", "Moore", "Jackson", "Martin", "Lee",
		"Nguyen", "Walker", "Young", "King", "Wright", "Scott", "Hill",
	}
	streets = []string{
		"123 Main St", "456 Oak Ave", "789 Elm St", "321 Pine Rd",
		"654 Maple Dr", "987 Cedar Ln", "147 Birch Blvd", "258 Walnut Way",
	}
	cities = []string{
		"Springfield", "Riverside", "Fairview", "Madison", "Georgetown",
		"Clinton", "Salem", "Franklin",
	}
	departmentDefs = []departmentDef{
		{"Cardiology", "Medical", "Cardiology", 40},
		{"Emergency", "Critical Care", "Emergency Medicine", 25},
		{"Pediatrics", "Medical", "Pediatrics", 30},
		{"Orthopedics", "Surgical", "Orthopedic Surgery", 20},
		{"Neurology", "Medical", "Neurology", 15},
		{"Radiology", "Diagnostic", "Radiology", 6},
	}
	bloodTypes       = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
	appointmentTypes = []string{"Consultation", "Follow-up", "Procedure", "Check-up"}
	reasons          = []string{
		"Chest pain", "Routine check-up", "Persistent headache", "Knee pain",
		"Blood pressure review", "Fever and cough", "Medication review",
	}
	billables = []struct {
		Description string
		Price       float64
	}{
		{"Consultation", 150}, {"Room charge", 450}, {"X-Ray", 95},
		{"ECG", 75}, {"Blood panel", 85.5}, {"MRI scan", 850}, {"Physiotherapy session", 110},
	}
	labCatalog = []struct {
		Name, Category string
		Cost           float64
	}{
		{"Complete Blood Count", "Hematology", 45},
		{"Basic Metabolic Panel", "Chemistry", 40},
		{"Lipid Panel", "Chemistry", 38},
		{"Thyroid Panel", "Endocrinology", 65},
		{"HbA1c", "Endocrinology", 30},
		{"Urinalysis", "Urinalysis", 20},
		{"COVID-19 PCR", "Molecular", 90},
	}
)

// ---------------------------------------------------------------------------
// DataGenerator
// ---------------------------------------------------------------------------

// DataGenerator produces reproducible synthetic fixtures.
type DataGenerator struct {
	rng *rand.Rand
	now time.Time
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed
// is 0 a time-based seed is chosen. Generated dates are relative to now.
func NewDataGenerator(seed int64, now time.Time) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{rng: rand.New(rand.NewSource(seed)), now: now}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) chance(p float64) bool {
	return g.rng.Float64() < p
}

func (g *DataGenerator) phone() string {
	return fmt.Sprintf("(%03d) %03d-%04d", 200+g.rng.Intn(800), 200+g.rng.Intn(800), g.rng.Intn(10000))
}

func (g *DataGenerator) day(offset int) *time.Time {
	t := time.Date(g.now.Year(), g.now.Month(), g.now.Day(), 0, 0, 0, 0, g.now.Location()).AddDate(0, 0, offset)
	return &t
}

// slot returns a time on the day offset from today during clinic hours,
// on the half hour.
func (g *DataGenerator) slot(offset int) *time.Time {
	t := g.day(offset).Add(time.Duration(8*60+30*g.rng.Intn(18)) * time.Minute)
	return &t
}

func (g *DataGenerator) person() (first, last, gender string) {
	if g.rng.Intn(2) == 0 {
		return g.pick(firstNamesMale), g.pick(lastNames), "Male"
	}
	return g.pick(firstNamesFemale), g.pick(lastNames), "Female"
}

func email(first, last, domain string) string {
	return strings.ToLower(first+"."+last) + "@" + domain
}

// Generate builds a fixture set according to cfg.
func (g *DataGenerator) Generate(cfg SeedConfig) *Fixtures {
	cfg = cfg.withDefaults()
	fx := &Fixtures{}

	for _, d := range departmentDefs {
		fx.Departments = append(fx.Departments, department.Department{
			Name:             d.Name,
			Type:             d.Type,
			TotalBeds:        d.Beds,
			AvailableBeds:    g.rng.Int63n(d.Beds + 1),
			ContactExtension: fmt.Sprintf("2%d01", len(fx.Departments)+1),
		})
	}

	doctorStatuses := []string{staff.StatusAvailable, staff.StatusAvailable, staff.StatusBusy, staff.StatusOnCall, staff.StatusOffDuty}
	for i := 0; i < cfg.DoctorCount; i++ {
		first, last, _ := g.person()
		dept := i % len(departmentDefs)
		m := staff.Member{
			Name:           "Dr. " + first + " " + last,
			Role:           staff.RoleDoctor,
			Specialization: departmentDefs[dept].Specialization,
			DepartmentID:   int64(dept + 1),
			Phone:          g.phone(),
			Email:          email(first, last, "hospital.example"),
			Status:         g.pick(doctorStatuses),
		}
		if fx.Departments[dept].HeadOfDepartment == "" {
			fx.Departments[dept].HeadOfDepartment = m.Name
		}
		fx.Staff = append(fx.Staff, m)
	}
	for i := 0; i < cfg.NurseCount; i++ {
		first, last, _ := g.person()
		fx.Staff = append(fx.Staff, staff.Member{
			Name:         first + " " + last,
			Role:         "Nurse",
			DepartmentID: int64(g.rng.Intn(len(departmentDefs)) + 1),
			Phone:        g.phone(),
			Email:        email(first, last, "hospital.example"),
			Status:       g.pick(staff.Statuses),
		})
	}

	for i := 0; i < cfg.PatientCount; i++ {
		fx.Patients = append(fx.Patients, g.patient(cfg))
		pid := int64(i + 1)

		for j := 0; j < cfg.AppointmentsPerPatient; j++ {
			fx.Appointments = append(fx.Appointments, g.appointment(cfg, pid))
		}
		for j := 0; j < cfg.BillsPerPatient; j++ {
			fx.Bills = append(fx.Bills, g.bill(pid))
		}
		for j := 0; j < cfg.LabTestsPerPatient; j++ {
			fx.LabTests = append(fx.LabTests, g.labTest(fx, pid))
		}
	}
	return fx
}

func (g *DataGenerator) patient(cfg SeedConfig) patient.Patient {
	first, last, gender := g.person()
	dob := g.day(-365*(1+g.rng.Intn(85)) - g.rng.Intn(365))
	_, contactLast, _ := g.person()
	p := patient.Patient{
		FirstName:   first,
		LastName:    last,
		DateOfBirth: dob,
		Gender:      gender,
		BloodType:   g.pick(bloodTypes),
		Phone:       g.phone(),
		Email:       email(first, last, "mail.example"),
		Address:     g.pick(streets) + ", " + g.pick(cities),
		EmergencyContact: patient.EmergencyContact{
			Name:     g.pick(firstNamesFemale) + " " + contactLast,
			Phone:    g.phone(),
			Relation: g.pick([]string{"Spouse", "Parent", "Sibling", "Child", "Friend"}),
		},
		Status:           patient.StatusActive,
		AssignedDoctorID: int64(g.rng.Intn(cfg.DoctorCount) + 1),
	}
	switch r := g.rng.Float64(); {
	case r < 0.25:
		p.Status = patient.StatusAdmitted
	case r < 0.32:
		p.Status = patient.StatusCritical
	case r < 0.45:
		p.Status = patient.StatusDischarged
	}
	if p.Status != patient.StatusActive {
		admitted := g.slot(-g.rng.Intn(20))
		p.AdmissionDate = admitted
	}
	if p.Status == patient.StatusAdmitted || p.Status == patient.StatusCritical {
		p.AssignedBed = fmt.Sprintf("%c-%03d", 'A'+rune(g.rng.Intn(5)), 100+g.rng.Intn(60))
	}
	return p
}

func (g *DataGenerator) appointment(cfg SeedConfig, patientID int64) appointment.Appointment {
	offset := g.rng.Intn(21) - 7
	a := appointment.Appointment{
		PatientID: patientID,
		DoctorID:  int64(g.rng.Intn(cfg.DoctorCount) + 1),
		DateTime:  g.slot(offset),
		Duration:  int64(15 * (1 + g.rng.Intn(4))),
		Type:      g.pick(appointmentTypes),
		Reason:    g.pick(reasons),
		Status:    appointment.StatusScheduled,
	}
	if a.DateTime.Before(g.now) {
		a.Status = appointment.StatusCompleted
	}
	return a
}

func (g *DataGenerator) bill(patientID int64) billing.Bill {
	issued := g.day(-g.rng.Intn(60))
	due := issued.AddDate(0, 0, 30)
	b := billing.Bill{
		PatientID:   patientID,
		Description: "Hospital services",
		Date:        issued,
		DueDate:     &due,
		Status:      billing.StatusPending,
	}
	for n := 1 + g.rng.Intn(3); n > 0; n-- {
		item := billables[g.rng.Intn(len(billables))]
		b.Items = append(b.Items, billing.LineItem{
			Description: item.Description,
			Quantity:    float64(1 + g.rng.Intn(3)),
			UnitPrice:   item.Price,
		})
	}
	if g.chance(0.4) {
		b.Status = billing.StatusPaid
		paid := issued.AddDate(0, 0, g.rng.Intn(20))
		b.PaidDate = &paid
	}
	return b
}

func (g *DataGenerator) labTest(fx *Fixtures, patientID int64) labtest.LabTest {
	test := labCatalog[g.rng.Intn(len(labCatalog))]
	doctor := fx.Staff[fx.Patients[patientID-1].AssignedDoctorID-1].Name
	lt := labtest.LabTest{
		TestName:     test.Name,
		PatientID:    patientID,
		DoctorName:   doctor,
		Category:     test.Category,
		Priority:     g.pick(labtest.Priorities),
		Cost:         test.Cost,
		ExpectedDate: g.day(1 + g.rng.Intn(5)),
		Status:       g.pick(labtest.Statuses),
	}
	if lt.Status == labtest.StatusCompleted {
		lt.Results = &labtest.Results{Summary: "Within normal limits"}
		if g.chance(0.3) {
			lt.Results.Summary = "Abnormal values reported"
			lt.Results.AbnormalValues = []string{test.Name + " out of range"}
		}
	}
	return lt
}
