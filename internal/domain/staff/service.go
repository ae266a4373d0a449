package staff

import (
	"context"
	"fmt"
	"strings"

	"github.com/hms/hms/internal/platform/collection"
	"github.com/hms/hms/internal/platform/recordstore"
	"github.com/hms/hms/internal/platform/workset"
)

type Service struct {
	set         *workset.Set[Member]
	departments workset.Directory
}

func NewService(repo Repository, opts workset.Options) *Service {
	s := &Service{set: workset.New(Entity, repo, func(m Member) int64 { return m.ID }, opts)}
	s.set.SetResolver(s.resolveDepartments)
	return s
}

func (s *Service) SetDepartmentDirectory(d workset.Directory) {
	s.departments = d
}

func Validate(m Member) error {
	ve := &recordstore.ValidationError{}
	if strings.TrimSpace(m.Name) == "" {
		ve.Add("name", "Full Name", "is required")
	}
	if strings.TrimSpace(m.Role) == "" {
		ve.Add("role", "Role", "is required")
	}
	if m.DepartmentID == 0 && strings.TrimSpace(m.Department) == "" {
		ve.Add("department", "Department", "is required")
	}
	if m.Email != "" && !strings.Contains(m.Email, "@") {
		ve.Add("email", "Email", "is not a valid address")
	}
	if m.Status != "" && !isStatus(m.Status) {
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

func (s *Service) All(ctx context.Context) ([]Member, error) {
	return s.set.All(ctx)
}

func (s *Service) View(ctx context.Context, cr collection.Criteria) (collection.View[Member, Stats], error) {
	items, err := s.set.All(ctx)
	if err != nil {
		return collection.View[Member, Stats]{}, err
	}
	return ViewConfig.Build(items, cr, s.set.Now()), nil
}

func (s *Service) Reload(ctx context.Context) error {
	return s.set.Load(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Member, error) {
	return s.set.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, m Member) (Member, error) {
	if err := Validate(m); err != nil {
		return Member{}, err
	}
	m.ID = 0
	if m.Status == "" {
		m.Status = StatusAvailable
	}
	m = s.resolveDepartments(ctx, []Member{m})[0]
	created, err := s.set.Create(ctx, m, nil)
	if err != nil {
		return Member{}, fmt.Errorf("create staff member: %w", err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, m Member) (Member, error) {
	if m.ID == 0 {
		return Member{}, recordstore.ErrMissingID
	}
	if err := Validate(m); err != nil {
		return Member{}, err
	}
	m = s.resolveDepartments(ctx, []Member{m})[0]
	updated, err := s.set.Update(ctx, m)
	if err != nil {
		return Member{}, fmt.Errorf("update staff member %d: %w", m.ID, err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.set.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete staff member %d: %w", id, err)
	}
	return nil
}

func (s *Service) DeleteMany(ctx context.Context, ids []int64) ([]recordstore.Result, error) {
	return s.set.DeleteMany(ctx, ids)
}

// Names maps staff ids to names. Appointments and patients use it to
// display their doctor.
func (s *Service) Names(ctx context.Context) (map[int64]string, error) {
	items, err := s.set.All(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(items))
	for _, m := range items {
		names[m.ID] = m.Name
	}
	return names, nil
}

// Doctors returns the members with the doctor role.
func (s *Service) Doctors(ctx context.Context) ([]Member, error) {
	items, err := s.set.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(items))
	for _, m := range items {
		if m.Role == RoleDoctor {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) resolveDepartments(ctx context.Context, items []Member) []Member {
	if s.departments == nil {
		return items
	}
	names := workset.Names(ctx, s.departments, s.set.Logger())
	out := make([]Member, len(items))
	for i, m := range items {
		if name, ok := names[m.DepartmentID]; ok && m.DepartmentID != 0 {
			m.Department = name
		}
		out[i] = m
	}
	return out
}
