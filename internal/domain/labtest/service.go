package labtest

import (
	"context"
	"fmt"
	"strings"

	"github.com/hms/hms/internal/platform/collection"
	"github.com/hms/hms/internal/platform/events"
	"github.com/hms/hms/internal/platform/recordstore"
	"github.com/hms/hms/internal/platform/workset"
)

var (
	validStatuses   = toSet(Statuses)
	validCategories = toSet(Categories)
	validPriorities = toSet(Priorities)
)

func toSet(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

type Service struct {
	set      *workset.Set[LabTest]
	patients workset.Directory
}

func NewService(repo Repository, opts workset.Options) *Service {
	s := &Service{set: workset.New(Entity, repo, func(t LabTest) int64 { return t.ID }, opts)}
	s.set.SetResolver(s.resolveNames)
	return s
}

func (s *Service) SetPatientDirectory(d workset.Directory) { s.patients = d }

func Validate(t LabTest) error {
	ve := &recordstore.ValidationError{}
	if strings.TrimSpace(t.TestName) == "" {
		ve.Add("testName", "Test Name", "is required")
	}
	if t.PatientID == 0 {
		ve.Add("patientId", "Patient", "is required")
	}
	if t.Category != "" && !validCategories[t.Category] {
		ve.Add("category", "Category", fmt.Sprintf("must be one of %s", strings.Join(Categories, ", ")))
	}
	if t.Priority != "" && !validPriorities[t.Priority] {
		ve.Add("priority", "Priority", fmt.Sprintf("must be one of %s", strings.Join(Priorities, ", ")))
	}
	if t.Status != "" && !validStatuses[t.Status] {
		ve.Add("status", "Status", fmt.Sprintf("must be one of %s", strings.Join(Statuses, ", ")))
	}
	if t.Cost < 0 {
		ve.Add("cost", "Cost", "must not be negative")
	}
	return ve.OrNil()
}

func (s *Service) All(ctx context.Context) ([]LabTest, error) {
	return s.set.All(ctx)
}

func (s *Service) View(ctx context.Context, cr collection.Criteria) (collection.View[LabTest, Stats], error) {
	items, err := s.set.All(ctx)
	if err != nil {
		return collection.View[LabTest, Stats]{}, err
	}
	return ViewConfig.Build(items, cr, s.set.Now()), nil
}

func (s *Service) Reload(ctx context.Context) error {
	return s.set.Load(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (LabTest, error) {
	return s.set.Get(ctx, id)
}

// Create orders a new test. Status, order date and test code are always
// assigned here.
func (s *Service) Create(ctx context.Context, t LabTest) (LabTest, error) {
	if err := Validate(t); err != nil {
		return LabTest{}, err
	}
	now := s.set.Now()
	t.ID = 0
	t.TestCode = ""
	t.Status = StatusPending
	t.OrderDate = &now
	t.CompletedDate = nil
	t.Results = nil
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Category == "" {
		t.Category = DefaultCategory
	}
	t = s.resolveNames(ctx, []LabTest{t})[0]

	created, err := s.set.Create(ctx, t, func(c LabTest) (LabTest, bool) {
		c.TestCode = CodeFor(c.ID)
		return c, true
	})
	if err != nil {
		return LabTest{}, fmt.Errorf("create lab test: %w", err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, t LabTest) (LabTest, error) {
	if t.ID == 0 {
		return LabTest{}, recordstore.ErrMissingID
	}
	if err := Validate(t); err != nil {
		return LabTest{}, err
	}
	existing, err := s.set.Get(ctx, t.ID)
	if err != nil {
		return LabTest{}, fmt.Errorf("update lab test %d: %w", t.ID, err)
	}
	t.TestCode = existing.TestCode
	if t.Status == "" {
		t.Status = existing.Status
	}
	if t.OrderDate == nil {
		t.OrderDate = existing.OrderDate
	}
	if t.CompletedDate == nil {
		t.CompletedDate = existing.CompletedDate
	}
	if t.Results == nil {
		t.Results = existing.Results
	}
	t = s.resolveNames(ctx, []LabTest{t})[0]

	updated, err := s.set.Update(ctx, t)
	if err != nil {
		return LabTest{}, fmt.Errorf("update lab test %d: %w", t.ID, err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.set.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete lab test %d: %w", id, err)
	}
	return nil
}

func (s *Service) DeleteMany(ctx context.Context, ids []int64) ([]recordstore.Result, error) {
	return s.set.DeleteMany(ctx, ids)
}

// UpdateStatus moves a test along Pending, In Progress, Completed.
// Cancelling is allowed until the test completes.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (LabTest, error) {
	if !validStatuses[status] {
		ve := &recordstore.ValidationError{}
		ve.Add("status", "Status", fmt.Sprintf("must be one of %s", strings.Join(Statuses, ", ")))
		return LabTest{}, ve
	}
	t, err := s.set.Get(ctx, id)
	if err != nil {
		return LabTest{}, fmt.Errorf("lab test %d status: %w", id, err)
	}
	if !CanMove(t.Status, status) {
		return LabTest{}, fmt.Errorf("lab test %d from %q to %q: %w", id, t.Status, status, workset.ErrInvalidTransition)
	}
	from := t.Status
	t.Status = status
	if status == StatusCompleted {
		now := s.set.Now()
		t.CompletedDate = &now
	}
	updated, err := s.set.Save(ctx, t, events.StatusChanged, map[string]string{"from": from, "to": status})
	if err != nil {
		return LabTest{}, fmt.Errorf("lab test %d status: %w", id, err)
	}
	return updated, nil
}

// AddResults records results and completes the test.
func (s *Service) AddResults(ctx context.Context, id int64, res Results) (LabTest, error) {
	if strings.TrimSpace(res.Summary) == "" {
		ve := &recordstore.ValidationError{}
		ve.Add("summary", "Summary", "is required")
		return LabTest{}, ve
	}
	t, err := s.set.Get(ctx, id)
	if err != nil {
		return LabTest{}, fmt.Errorf("lab test %d results: %w", id, err)
	}
	if t.Status == StatusCancelled {
		return LabTest{}, fmt.Errorf("lab test %d results for cancelled test: %w", id, workset.ErrInvalidTransition)
	}
	if res.AbnormalValues == nil {
		res.AbnormalValues = []string{}
	}
	if res.ReportURL == "" {
		res.ReportURL = ReportURL(t.TestCode)
	}
	now := s.set.Now()
	from := t.Status
	t.Results = &res
	t.Status = StatusCompleted
	t.CompletedDate = &now
	updated, err := s.set.Save(ctx, t, events.StatusChanged, map[string]string{"from": from, "to": StatusCompleted})
	if err != nil {
		return LabTest{}, fmt.Errorf("lab test %d results: %w", id, err)
	}
	return updated, nil
}

func (s *Service) resolveNames(ctx context.Context, items []LabTest) []LabTest {
	if s.patients == nil {
		return items
	}
	names := workset.Names(ctx, s.patients, s.set.Logger())
	out := make([]LabTest, len(items))
	for i, t := range items {
		if name, ok := names[t.PatientID]; ok && t.PatientID != 0 {
			t.PatientName = name
		}
		out[i] = t
	}
	return out
}
