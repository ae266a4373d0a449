package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hms/hms/internal/platform/collection"
	"github.com/hms/hms/internal/platform/events"
	"github.com/hms/hms/internal/platform/recordstore"
	"github.com/hms/hms/internal/platform/workset"
)

type Service struct {
	set      *workset.Set[Bill]
	patients workset.Directory
	policy   OverduePolicy
}

func NewService(repo Repository, opts workset.Options, policy OverduePolicy) *Service {
	if policy != PolicyPersist {
		policy = PolicyView
	}
	s := &Service{set: workset.New(Entity, repo, func(b Bill) int64 { return b.ID }, opts), policy: policy}
	s.set.SetResolver(s.resolveNames)
	return s
}

// SetPatientDirectory wires the patient name lookup.
func (s *Service) SetPatientDirectory(d workset.Directory) { s.patients = d }

func (s *Service) Policy() OverduePolicy { return s.policy }

func Validate(b Bill) error {
	ve := &recordstore.ValidationError{}
	if b.PatientID == 0 {
		ve.Add("patientId", "Patient", "is required")
	}
	if strings.TrimSpace(b.Description) == "" {
		ve.Add("description", "Description", "is required")
	}
	if b.Date == nil {
		ve.Add("date", "Bill Date", "is required")
	}
	if b.DueDate == nil {
		ve.Add("dueDate", "Due Date", "is required")
	} else if b.Date != nil && b.DueDate.Before(*b.Date) {
		ve.Add("dueDate", "Due Date", "must not be before the bill date")
	}
	if len(b.Items) == 0 {
		ve.Add("items", "Line Items", "at least one item is required")
	}
	for i, it := range b.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		if strings.TrimSpace(it.Description) == "" {
			ve.Add(prefix+"description", "Item Description", "is required")
		}
		if it.Quantity <= 0 {
			ve.Add(prefix+"quantity", "Quantity", "must be greater than 0")
		}
		if it.UnitPrice <= 0 {
			ve.Add(prefix+"unitPrice", "Unit Price", "must be greater than 0")
		}
	}
	if b.Status != "" && !validStatuses[b.Status] {
		ve.Add("status", "Status", fmt.Sprintf("must be one of %s", strings.Join(Statuses, ", ")))
	}
	return ve.OrNil()
}

// All returns every bill with its effective status.
func (s *Service) All(ctx context.Context) ([]Bill, error) {
	items, err := s.set.All(ctx)
	if err != nil {
		return nil, err
	}
	return s.applyOverdue(ctx, items), nil
}

func (s *Service) View(ctx context.Context, cr collection.Criteria) (collection.View[Bill, Stats], error) {
	items, err := s.All(ctx)
	if err != nil {
		return collection.View[Bill, Stats]{}, err
	}
	return ViewConfig.Build(items, cr, s.set.Now()), nil
}

func (s *Service) Reload(ctx context.Context) error {
	return s.set.Load(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Bill, error) {
	b, err := s.set.Get(ctx, id)
	if err != nil {
		return Bill{}, err
	}
	return s.applyOverdue(ctx, []Bill{b})[0], nil
}

func (s *Service) Create(ctx context.Context, b Bill) (Bill, error) {
	if err := Validate(b); err != nil {
		return Bill{}, err
	}
	now := s.set.Now()
	b.ID = 0
	b.BillNumber = ""
	if b.Status == "" {
		b.Status = StatusPending
	}
	if b.Status == StatusPaid && b.PaidDate == nil {
		b.PaidDate = &now
	}
	b.CreatedAt = &now
	b.UpdatedAt = &now
	b = s.resolveNames(ctx, []Bill{b.WithTotals()})[0]

	created, err := s.set.Create(ctx, b, func(c Bill) (Bill, bool) {
		c.BillNumber = NumberFor(c.ID)
		return c, true
	})
	if err != nil {
		return Bill{}, fmt.Errorf("create bill: %w", err)
	}
	return s.applyOverdue(ctx, []Bill{created})[0], nil
}

// Update replaces a bill. The bill number and creation time are kept from
// the stored bill.
func (s *Service) Update(ctx context.Context, b Bill) (Bill, error) {
	if b.ID == 0 {
		return Bill{}, recordstore.ErrMissingID
	}
	if err := Validate(b); err != nil {
		return Bill{}, err
	}
	existing, err := s.set.Get(ctx, b.ID)
	if err != nil {
		return Bill{}, fmt.Errorf("update bill %d: %w", b.ID, err)
	}
	now := s.set.Now()
	b.BillNumber = existing.BillNumber
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = &now
	if b.Status == "" {
		b.Status = existing.Status
	}
	if b.PaidDate == nil {
		b.PaidDate = existing.PaidDate
	}
	if b.Status == StatusPaid && b.PaidDate == nil {
		b.PaidDate = &now
	}
	b = s.resolveNames(ctx, []Bill{b.WithTotals()})[0]

	updated, err := s.set.Update(ctx, b)
	if err != nil {
		return Bill{}, fmt.Errorf("update bill %d: %w", b.ID, err)
	}
	return s.applyOverdue(ctx, []Bill{updated})[0], nil
}

// SetStatus changes only the status of a bill. Moving to Paid stamps the
// payment date.
func (s *Service) SetStatus(ctx context.Context, id int64, status string) (Bill, error) {
	if !validStatuses[status] {
		ve := &recordstore.ValidationError{}
		ve.Add("status", "Status", fmt.Sprintf("must be one of %s", strings.Join(Statuses, ", ")))
		return Bill{}, ve
	}
	b, err := s.set.Get(ctx, id)
	if err != nil {
		return Bill{}, fmt.Errorf("set bill %d status: %w", id, err)
	}
	now := s.set.Now()
	from := b.EffectiveStatus(now)
	b.Status = status
	b.UpdatedAt = &now
	if status == StatusPaid {
		b.PaidDate = &now
	}
	updated, err := s.set.Save(ctx, b, events.StatusChanged, map[string]string{"from": from, "to": status})
	if err != nil {
		return Bill{}, fmt.Errorf("set bill %d status: %w", id, err)
	}
	return s.applyOverdue(ctx, []Bill{updated})[0], nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.set.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete bill %d: %w", id, err)
	}
	return nil
}

func (s *Service) DeleteMany(ctx context.Context, ids []int64) ([]recordstore.Result, error) {
	return s.set.DeleteMany(ctx, ids)
}

// applyOverdue shows pending bills past their due date as Overdue. Under
// PolicyPersist the new status is also written; a failed write is logged
// and the derived status is still returned.
func (s *Service) applyOverdue(ctx context.Context, items []Bill) []Bill {
	now := s.set.Now()
	out := make([]Bill, len(items))
	for i, b := range items {
		if !b.IsOverdue(now) {
			out[i] = b
			continue
		}
		if s.policy == PolicyPersist {
			out[i] = s.persistOverdue(ctx, b, now)
			continue
		}
		b.Status = StatusOverdue
		out[i] = b
	}
	return out
}

func (s *Service) persistOverdue(ctx context.Context, b Bill, now time.Time) Bill {
	marked := b
	marked.Status = StatusOverdue
	marked.UpdatedAt = &now
	detail := map[string]string{"billNumber": b.BillNumber}
	if b.DueDate != nil {
		detail["dueDate"] = b.DueDate.Format(time.DateOnly)
	}
	saved, err := s.set.Save(ctx, marked, events.Overdue, detail)
	if err != nil {
		s.set.Logger().Warn().Err(err).Int64("bill_id", b.ID).Msg("persisting overdue status failed")
		return marked
	}
	s.set.Logger().Info().Int64("bill_id", b.ID).Str("bill_number", b.BillNumber).Msg("bill marked overdue")
	return saved
}

func (s *Service) resolveNames(ctx context.Context, items []Bill) []Bill {
	if s.patients == nil {
		return items
	}
	names := workset.Names(ctx, s.patients, s.set.Logger())
	out := make([]Bill, len(items))
	for i, b := range items {
		if name, ok := names[b.PatientID]; ok && b.PatientID != 0 {
			b.PatientName = name
		}
		out[i] = b
	}
	return out
}
