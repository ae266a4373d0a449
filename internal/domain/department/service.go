package department

import (
	"context"
	"fmt"
	"strings"

	"github.com/hms/hms/internal/platform/collection"
	"github.com/hms/hms/internal/platform/recordstore"
	"github.com/hms/hms/internal/platform/workset"
)

type Service struct {
	set *workset.Set[Department]
}

func NewService(repo Repository, opts workset.Options) *Service {
	return &Service{set: workset.New(Entity, repo, func(d Department) int64 { return d.ID }, opts)}
}

func Validate(d Department) error {
	ve := &recordstore.ValidationError{}
	if strings.TrimSpace(d.Name) == "" {
		ve.Add("name", "Department Name", "is required")
	}
	if d.TotalBeds < 0 {
		ve.Add("totalBeds", "Total Beds", "must not be negative")
	}
	if d.AvailableBeds < 0 {
		ve.Add("availableBeds", "Available Beds", "must not be negative")
	}
	if d.AvailableBeds > d.TotalBeds {
		ve.Add("availableBeds", "Available Beds", "cannot exceed total beds")
	}
	return ve.OrNil()
}

func (s *Service) All(ctx context.Context) ([]Department, error) {
	return s.set.All(ctx)
}

func (s *Service) View(ctx context.Context, cr collection.Criteria) (collection.View[Department, Stats], error) {
	items, err := s.set.All(ctx)
	if err != nil {
		return collection.View[Department, Stats]{}, err
	}
	return ViewConfig.Build(items, cr, s.set.Now()), nil
}

func (s *Service) Reload(ctx context.Context) error {
	return s.set.Load(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Department, error) {
	return s.set.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, d Department) (Department, error) {
	if err := Validate(d); err != nil {
		return Department{}, err
	}
	d.ID = 0
	created, err := s.set.Create(ctx, d, nil)
	if err != nil {
		return Department{}, fmt.Errorf("create department: %w", err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, d Department) (Department, error) {
	if d.ID == 0 {
		return Department{}, recordstore.ErrMissingID
	}
	if err := Validate(d); err != nil {
		return Department{}, err
	}
	updated, err := s.set.Update(ctx, d)
	if err != nil {
		return Department{}, fmt.Errorf("update department %d: %w", d.ID, err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.set.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete department %d: %w", id, err)
	}
	return nil
}

func (s *Service) DeleteMany(ctx context.Context, ids []int64) ([]recordstore.Result, error) {
	return s.set.DeleteMany(ctx, ids)
}

// Names maps department ids to names.
func (s *Service) Names(ctx context.Context) (map[int64]string, error) {
	items, err := s.set.All(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(items))
	for _, d := range items {
		names[d.ID] = d.Name
	}
	return names, nil
}
