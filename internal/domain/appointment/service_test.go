package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hms/hms/internal/platform/events"
	"github.com/hms/hms/internal/platform/recordstore"
	"github.com/hms/hms/internal/platform/workset"
)

var fixedNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.Local)

type names map[int64]string

func (n names) Names(context.Context) (map[int64]string, error) { return n, nil }

func newTestService(t *testing.T) (*Service, *recordstore.Memory, *events.Recorder) {
	t.Helper()
	store := recordstore.NewMemory()
	rec := &events.Recorder{}
	svc := NewService(NewRepository(store), workset.Options{
		Publisher: rec,
		Logger:    zerolog.Nop(),
		Clock:     func() time.Time { return fixedNow },
	})
	svc.SetDirectories(names{12: "Sarah Johnson"}, names{3: "Dr. Emily Chen"})
	return svc, store, rec
}

func newAppointment(when time.Time) Appointment {
	return Appointment{PatientID: 12, DoctorID: 3, DateTime: &when, Type: "Consultation"}
}

func TestValidate(t *testing.T) {
	err := Validate(Appointment{Duration: -5})
	var ve *recordstore.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 4)

	assert.NoError(t, Validate(newAppointment(fixedNow)))
}

func TestService_CreateDefaultsAndNames(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, newAppointment(fixedNow.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, a.Status)
	assert.Equal(t, int64(DefaultDuration), a.Duration)
	assert.Equal(t, "Sarah Johnson", a.PatientName)
	assert.Equal(t, "Dr. Emily Chen", a.DoctorName)

	stored, err := store.FetchByID(ctx, Entity, a.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Sarah Johnson", stored[fieldPatientName])
}

func TestService_Lifecycle(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, newAppointment(fixedNow.Add(30*time.Minute)))
	require.NoError(t, err)

	_, err = svc.Complete(ctx, a.ID)
	assert.ErrorIs(t, err, workset.ErrInvalidTransition)

	started, err := svc.Start(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, started.Status)

	_, err = svc.Start(ctx, a.ID)
	assert.ErrorIs(t, err, workset.ErrInvalidTransition)

	done, err := svc.Complete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	assert.Equal(t, []string{
		"appointment.created",
		"appointment.status_changed",
		"appointment.status_changed",
	}, rec.Actions())
	assert.Equal(t, StatusCompleted, rec.Events()[2].Detail["to"])
}

func TestService_StartRefusesPastAppointment(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, newAppointment(fixedNow.Add(-time.Minute)))
	require.NoError(t, err)

	_, err = svc.Start(ctx, a.ID)
	assert.ErrorIs(t, err, ErrAppointmentInPast)
	assert.ErrorIs(t, err, workset.ErrConflict)

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, got.Status)
}

func TestService_CancelDeletes(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, newAppointment(fixedNow.Add(time.Hour)))
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, a.ID))
	assert.Zero(t, store.Count(Entity))
	assert.Contains(t, rec.Actions(), "appointment.deleted")

	err = svc.Cancel(ctx, a.ID)
	assert.ErrorIs(t, err, recordstore.ErrNotFound)
}

func TestService_UpdateRequiresID(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Update(context.Background(), newAppointment(fixedNow))
	assert.ErrorIs(t, err, recordstore.ErrMissingID)
}
