package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/hms/hms/internal/platform/collection"
	"github.com/hms/hms/internal/platform/recordstore"
	"github.com/hms/hms/internal/platform/workset"
)

type Service struct {
	set     *workset.Set[Patient]
	doctors workset.Directory
}

func NewService(repo Repository, opts workset.Options) *Service {
	s := &Service{set: workset.New(Entity, repo, func(p Patient) int64 { return p.ID }, opts)}
	s.set.SetResolver(s.resolveDoctors)
	return s
}

// SetDoctorDirectory lets the service fill assignedDoctor from staff names.
func (s *Service) SetDoctorDirectory(d workset.Directory) {
	s.doctors = d
}

// Validate checks the fields the patient form requires.
func Validate(p Patient) error {
	ve := &recordstore.ValidationError{}
	if strings.TrimSpace(p.FirstName) == "" {
		ve.Add("firstName", "First Name", "is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		ve.Add("lastName", "Last Name", "is required")
	}
	if p.DateOfBirth == nil {
		ve.Add("dateOfBirth", "Date of Birth", "is required")
	}
	if strings.TrimSpace(p.Gender) == "" {
		ve.Add("gender", "Gender", "is required")
	}
	if strings.TrimSpace(p.Phone) == "" {
		ve.Add("phone", "Phone", "is required")
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		ve.Add("email", "Email", "is not a valid address")
	}
	if p.Status != "" && !isStatus(p.Status) {
		ve.Add("status", "Status", fmt.Sprintf("must be one of %s", strings.Join(Statuses, ", ")))
	}
	return ve.OrNil()
}

func isStatus(s string) bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s *Service) All(ctx context.Context) ([]Patient, error) {
	return s.set.All(ctx)
}

// View derives the patient list screen for cr.
func (s *Service) View(ctx context.Context, cr collection.Criteria) (collection.View[Patient, Stats], error) {
	items, err := s.set.All(ctx)
	if err != nil {
		return collection.View[Patient, Stats]{}, err
	}
	return ViewConfig.Build(items, cr, s.set.Now()), nil
}

func (s *Service) Reload(ctx context.Context) error {
	return s.set.Load(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Patient, error) {
	return s.set.Get(ctx, id)
}

// Create stores a new patient and writes back its code.
func (s *Service) Create(ctx context.Context, p Patient) (Patient, error) {
	if err := Validate(p); err != nil {
		return Patient{}, err
	}
	p.ID = 0
	p.Code = ""
	if p.Status == "" {
		p.Status = StatusActive
	}
	created, err := s.set.Create(ctx, p, func(c Patient) (Patient, bool) {
		c.Code = CodeFor(c.ID)
		return c, true
	})
	if err != nil {
		return Patient{}, fmt.Errorf("create patient: %w", err)
	}
	return created, nil
}

// Update stores p. The code never changes once assigned.
func (s *Service) Update(ctx context.Context, p Patient) (Patient, error) {
	if p.ID == 0 {
		return Patient{}, recordstore.ErrMissingID
	}
	if err := Validate(p); err != nil {
		return Patient{}, err
	}
	existing, err := s.set.Get(ctx, p.ID)
	if err != nil {
		return Patient{}, fmt.Errorf("update patient %d: %w", p.ID, err)
	}
	p.Code = existing.Code
	updated, err := s.set.Update(ctx, p)
	if err != nil {
		return Patient{}, fmt.Errorf("update patient %d: %w", p.ID, err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.set.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete patient %d: %w", id, err)
	}
	return nil
}

func (s *Service) DeleteMany(ctx context.Context, ids []int64) ([]recordstore.Result, error) {
	return s.set.DeleteMany(ctx, ids)
}

// Names maps patient ids to full names for other entities' displays.
func (s *Service) Names(ctx context.Context) (map[int64]string, error) {
	items, err := s.set.All(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(items))
	for _, p := range items {
		names[p.ID] = p.FullName()
	}
	return names, nil
}

func (s *Service) resolveDoctors(ctx context.Context, items []Patient) []Patient {
	if s.doctors == nil {
		return items
	}
	names := workset.Names(ctx, s.doctors, s.set.Logger())
	out := make([]Patient, len(items))
	for i, p := range items {
		if name, ok := names[p.AssignedDoctorID]; ok && p.AssignedDoctorID != 0 {
			p.AssignedDoctor = name
		}
		out[i] = p
	}
	return out
}
