// Package sandbox loads demo data into the record store, either from YAML
// fixture files or from a deterministic synthetic generator.
package sandbox

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hms/hms/internal/domain/appointment"
	"github.com/hms/hms/internal/domain/billing"
	"github.com/hms/hms/internal/domain/department"
	"github.com/hms/hms/internal/domain/labtest"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/staff"
)

//go:embed demo.yaml
var demoYAML []byte

// Fixtures is one seedable data set. Foreign keys inside a fixture set are
// 1-based positions in the referenced list (doctorId 2 is the second staff
// entry); the seeder maps them to the ids the store assigns.
type Fixtures struct {
	// Anchor is the day the fixture dates were written against. When set,
	// every date is moved so that Anchor lands on the seeding day.
	Anchor       *time.Time                `json:"anchor"`
	Departments  []department.Department   `json:"departments"`
	Staff        []staff.Member            `json:"staff"`
	Patients     []patient.Patient         `json:"patients"`
	Appointments []appointment.Appointment `json:"appointments"`
	Bills        []billing.Bill            `json:"bills"`
	LabTests     []labtest.LabTest         `json:"labTests"`
}

// Parse decodes YAML fixtures. Field names are the JSON names of the
// domain models; unquoted YAML dates are accepted.
func Parse(data []byte) (*Fixtures, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	b, err := json.Marshal(normalizeDates(raw))
	if err != nil {
		return nil, fmt.Errorf("convert fixtures: %w", err)
	}
	var fx Fixtures
	if err := json.Unmarshal(b, &fx); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return &fx, nil
}

var dateOnly = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// normalizeDates turns bare calendar dates into RFC 3339 midnight UTC, the
// only form the models decode.
func normalizeDates(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeDates(e)
		}
	case []any:
		for i, e := range t {
			t[i] = normalizeDates(e)
		}
	case string:
		if dateOnly.MatchString(t) {
			return t + "T00:00:00Z"
		}
	case time.Time:
		return t.Format(time.RFC3339)
	}
	return v
}

// LoadFile reads fixtures from a YAML file.
func LoadFile(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures %s: %w", path, err)
	}
	return Parse(data)
}

// Demo returns the built-in demo data set.
func Demo() (*Fixtures, error) {
	return Parse(demoYAML)
}

// Count is the number of records in the set.
func (fx *Fixtures) Count() int {
	return len(fx.Departments) + len(fx.Staff) + len(fx.Patients) +
		len(fx.Appointments) + len(fx.Bills) + len(fx.LabTests)
}

// Rebase moves every date by whole days so that Anchor falls on now's
// calendar day. Fixtures without an anchor are left alone.
func (fx *Fixtures) Rebase(now time.Time) {
	if fx.Anchor == nil {
		return
	}
	a := *fx.Anchor
	from := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, now.Location())
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	days := int(to.Sub(from).Hours() / 24)
	if days == 0 {
		return
	}

	shift := func(t *time.Time) *time.Time {
		if t == nil {
			return nil
		}
		moved := t.AddDate(0, 0, days)
		return &moved
	}
	for i := range fx.Patients {
		fx.Patients[i].AdmissionDate = shift(fx.Patients[i].AdmissionDate)
	}
	for i := range fx.Appointments {
		fx.Appointments[i].DateTime = shift(fx.Appointments[i].DateTime)
	}
	for i := range fx.Bills {
		b := &fx.Bills[i]
		b.Date, b.DueDate, b.PaidDate = shift(b.Date), shift(b.DueDate), shift(b.PaidDate)
	}
	for i := range fx.LabTests {
		fx.LabTests[i].ExpectedDate = shift(fx.LabTests[i].ExpectedDate)
	}
	fx.Anchor = &to
}
