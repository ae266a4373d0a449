package appointment

import (
	"context"
	"fmt"
	"strings"

	"github.com/hms/hms/internal/platform/collection"
	"github.com/hms/hms/internal/platform/events"
	"github.com/hms/hms/internal/platform/recordstore"
	"github.com/hms/hms/internal/platform/workset"
)

type Service struct {
	set      *workset.Set[Appointment]
	patients workset.Directory
	doctors  workset.Directory
}

func NewService(repo Repository, opts workset.Options) *Service {
	s := &Service{set: workset.New(Entity, repo, func(a Appointment) int64 { return a.ID }, opts)}
	s.set.SetResolver(s.resolveNames)
	return s
}

// SetDirectories wires the patient and doctor name lookups.
func (s *Service) SetDirectories(patients, doctors workset.Directory) {
	s.patients = patients
	s.doctors = doctors
}

func Validate(a Appointment) error {
	ve := &recordstore.ValidationError{}
	if a.PatientID == 0 {
		ve.Add("patientId", "Patient", "is required")
	}
	if a.DoctorID == 0 {
		ve.Add("doctorId", "Doctor", "is required")
	}
	if a.DateTime == nil {
		ve.Add("dateTime", "Date & Time", "is required")
	}
	if a.Duration < 0 {
		ve.Add("duration", "Duration", "must not be negative")
	}
	if a.Status != "" && !isStatus(a.Status) {
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

func (s *Service) All(ctx context.Context) ([]Appointment, error) {
	return s.set.All(ctx)
}

func (s *Service) View(ctx context.Context, cr collection.Criteria) (collection.View[Appointment, Stats], error) {
	items, err := s.set.All(ctx)
	if err != nil {
		return collection.View[Appointment, Stats]{}, err
	}
	return ViewConfig.Build(items, cr, s.set.Now()), nil
}

func (s *Service) Reload(ctx context.Context) error {
	return s.set.Load(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Appointment, error) {
	return s.set.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, a Appointment) (Appointment, error) {
	if err := Validate(a); err != nil {
		return Appointment{}, err
	}
	a.ID = 0
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.Duration == 0 {
		a.Duration = DefaultDuration
	}
	a = s.resolveNames(ctx, []Appointment{a})[0]
	created, err := s.set.Create(ctx, a, nil)
	if err != nil {
		return Appointment{}, fmt.Errorf("create appointment: %w", err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, a Appointment) (Appointment, error) {
	if a.ID == 0 {
		return Appointment{}, recordstore.ErrMissingID
	}
	if err := Validate(a); err != nil {
		return Appointment{}, err
	}
	a = s.resolveNames(ctx, []Appointment{a})[0]
	updated, err := s.set.Update(ctx, a)
	if err != nil {
		return Appointment{}, fmt.Errorf("update appointment %d: %w", a.ID, err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.set.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete appointment %d: %w", id, err)
	}
	return nil
}

func (s *Service) DeleteMany(ctx context.Context, ids []int64) ([]recordstore.Result, error) {
	return s.set.DeleteMany(ctx, ids)
}

// Start moves a scheduled appointment to In Progress. Appointments whose
// time has already passed cannot be started.
func (s *Service) Start(ctx context.Context, id int64) (Appointment, error) {
	a, err := s.set.Get(ctx, id)
	if err != nil {
		return Appointment{}, fmt.Errorf("start appointment %d: %w", id, err)
	}
	if a.Status != StatusScheduled {
		return Appointment{}, fmt.Errorf("start appointment %d from %q: %w", id, a.Status, workset.ErrInvalidTransition)
	}
	if a.IsPast(s.set.Now()) {
		return Appointment{}, fmt.Errorf("start appointment %d: %w", id, ErrAppointmentInPast)
	}
	return s.transition(ctx, a, StatusInProgress)
}

// Complete finishes an appointment that is in progress.
func (s *Service) Complete(ctx context.Context, id int64) (Appointment, error) {
	a, err := s.set.Get(ctx, id)
	if err != nil {
		return Appointment{}, fmt.Errorf("complete appointment %d: %w", id, err)
	}
	if a.Status != StatusInProgress {
		return Appointment{}, fmt.Errorf("complete appointment %d from %q: %w", id, a.Status, workset.ErrInvalidTransition)
	}
	return s.transition(ctx, a, StatusCompleted)
}

// Cancel removes the appointment from the store. Cancelled appointments
// are not kept.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	if err := s.set.Delete(ctx, id); err != nil {
		return fmt.Errorf("cancel appointment %d: %w", id, err)
	}
	return nil
}

func (s *Service) transition(ctx context.Context, a Appointment, to string) (Appointment, error) {
	from := a.Status
	a.Status = to
	updated, err := s.set.Save(ctx, a, events.StatusChanged, map[string]string{"from": from, "to": to})
	if err != nil {
		return Appointment{}, fmt.Errorf("appointment %d to %q: %w", a.ID, to, err)
	}
	return updated, nil
}

func (s *Service) resolveNames(ctx context.Context, items []Appointment) []Appointment {
	if s.patients == nil && s.doctors == nil {
		return items
	}
	var patients, doctors map[int64]string
	if s.patients != nil {
		patients = workset.Names(ctx, s.patients, s.set.Logger())
	}
	if s.doctors != nil {
		doctors = workset.Names(ctx, s.doctors, s.set.Logger())
	}
	out := make([]Appointment, len(items))
	for i, a := range items {
		if name, ok := patients[a.PatientID]; ok && a.PatientID != 0 {
			a.PatientName = name
		}
		if name, ok := doctors[a.DoctorID]; ok && a.DoctorID != 0 {
			a.DoctorName = name
		}
		out[i] = a
	}
	return out
}
