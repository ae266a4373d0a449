package staff

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hms/hms/internal/platform/collection"
	"github.com/hms/hms/internal/platform/events"
	"github.com/hms/hms/internal/platform/record"
	"github.com/hms/hms/internal/platform/recordstore"
	"github.com/hms/hms/internal/platform/workset"
)

type departments map[int64]string

func (d departments) Names(context.Context) (map[int64]string, error) { return d, nil }

func newTestService() (*Service, *events.Recorder) {
	rec := &events.Recorder{}
	svc := NewService(NewRepository(recordstore.NewMemory()), workset.Options{Publisher: rec, Logger: zerolog.Nop()})
	svc.SetDepartmentDirectory(departments{1: "Cardiology", 2: "Emergency"})
	return svc, rec
}

func sampleStaff() []Member {
	return []Member{
		{ID: 1, Name: "Dr. Emily Chen", Role: RoleDoctor, Specialization: "Cardiology", DepartmentID: 1, Department: "Cardiology", Email: "e.chen@hospital.org", Status: StatusAvailable},
		{ID: 2, Name: "James Wilson", Role: "Nurse", DepartmentID: 2, Department: "Emergency", Status: StatusBusy},
		{ID: 3, Name: "Dr. Raj Patel", Role: RoleDoctor, Specialization: "Emergency Medicine", DepartmentID: 2, Department: "Emergency", Status: StatusOffDuty},
	}
}

func TestTransform(t *testing.T) {
	in := record.Record{
		record.FieldID:      int64(1),
		record.FieldName:    "Dr. Emily Chen",
		fieldRole:           RoleDoctor,
		fieldSpecialization: "Cardiology",
		fieldDepartmentID:   int64(1),
		fieldDepartment:     "Cardiology",
		fieldPhone:          "555-0199",
		fieldEmail:          "e.chen@hospital.org",
		fieldStatus:         StatusOnCall,
	}
	assert.Equal(t, in, ToAPI(ToUI(in), record.Update))

	m := ToUI(record.Record{record.FieldID: 9, fieldDepartmentID: map[string]any{"Id": 2, "Name": "Emergency"}})
	assert.Equal(t, StatusAvailable, m.Status)
	assert.Equal(t, int64(2), m.DepartmentID)
	assert.Equal(t, "Emergency", m.Department)
}

func TestView(t *testing.T) {
	now := time.Now()
	items := sampleStaff()

	v := ViewConfig.Build(items, collection.Criteria{CategoryEquals: RoleDoctor}, now)
	assert.Len(t, v.Items, 2)
	assert.Equal(t, Stats{
		Total:       3,
		Available:   1,
		Departments: 2,
		Doctors:     2,
		ByStatus:    map[string]int{StatusAvailable: 1, StatusBusy: 1, StatusOnCall: 0, StatusOffDuty: 1},
	}, v.Stats)

	assert.Len(t, ViewConfig.ApplyFilters(items, collection.Criteria{ForeignKeyEquals: "2"}, now), 2)
	assert.Len(t, ViewConfig.ApplyFilters(items, collection.Criteria{Facets: map[string]string{"department": "cardiology"}}, now), 1)
	assert.Len(t, ViewConfig.ApplyFilters(items, collection.Criteria{SearchText: "hospital.org"}, now), 1)
	assert.Len(t, ViewConfig.ApplyFilters(items, collection.Criteria{StatusEquals: StatusOffDuty, SearchText: "emergency"}, now), 1)
}

func TestSummarize_Empty(t *testing.T) {
	s := summarize(nil, time.Now())
	assert.Zero(t, s.Total)
	assert.Zero(t, s.Departments)
}

func TestService_CreateResolvesDepartment(t *testing.T) {
	svc, rec := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, Member{Name: "No Role"})
	var ve *recordstore.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 2)

	m, err := svc.Create(ctx, Member{Name: "Dr. Emily Chen", Role: RoleDoctor, DepartmentID: 1})
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", m.Department)
	assert.Equal(t, StatusAvailable, m.Status)
	assert.Equal(t, []string{"staff.created"}, rec.Actions())

	doctors, err := svc.Doctors(ctx)
	require.NoError(t, err)
	assert.Len(t, doctors, 1)

	names, err := svc.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Emily Chen", names[m.ID])
}

func TestHandler(t *testing.T) {
	svc, _ := newTestService()
	e := echo.New()
	NewHandler(svc).RegisterRoutes(e.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/staff", strings.NewReader(`{"name":"James Wilson","role":"Nurse","departmentId":2,"status":"Busy"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/staff?departmentId=2&status=Busy", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data  []Member `json:"data"`
		Stats Stats    `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Emergency", resp.Data[0].Department)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/staff/doctors", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}
