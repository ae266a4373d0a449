package labtest

import (
	"strings"

	"github.com/hms/hms/internal/platform/record"
	"github.com/hms/hms/internal/platform/recordstore"
)

const Entity = "lab_test"

const (
	fieldTestCode      = "test_code_c"
	fieldPatientID     = "patient_id_c"
	fieldPatientName   = "patient_name_c"
	fieldDoctorName    = "doctor_name_c"
	fieldCategory      = "category_c"
	fieldPriority      = "priority_c"
	fieldStatus        = "status_c"
	fieldInstructions  = "instructions_c"
	fieldOrderDate     = "order_date_c"
	fieldExpectedDate  = "expected_date_c"
	fieldCompletedDate = "completed_date_c"
	fieldCost          = "cost_c"
	fieldResults       = "results_c"
)

var Fields = []string{
	record.FieldName, fieldTestCode, fieldPatientID, fieldPatientName, fieldDoctorName,
	fieldCategory, fieldPriority, fieldStatus, fieldInstructions, fieldOrderDate,
	fieldExpectedDate, fieldCompletedDate, fieldCost, fieldResults,
}

func CodeFor(id int64) string { return record.Code("LAB", 3, id) }

// ReportURL is the default report location for a test code.
func ReportURL(code string) string {
	return "/reports/" + strings.ToLower(code) + ".pdf"
}

func ToUI(rec record.Record) LabTest {
	r := record.Read(rec)
	patient := r.Ref(fieldPatientID)
	t := LabTest{
		ID:            r.Int(record.FieldID),
		TestCode:      r.String(fieldTestCode),
		TestName:      r.String(record.FieldName),
		PatientID:     patient.ID,
		PatientName:   patient.Name,
		DoctorName:    r.String(fieldDoctorName),
		Category:      r.OneOf(fieldCategory, Categories, DefaultCategory),
		Priority:      r.OneOf(fieldPriority, Priorities, PriorityMedium),
		Status:        r.OneOf(fieldStatus, Statuses, StatusPending),
		Instructions:  r.String(fieldInstructions),
		OrderDate:     r.Time(fieldOrderDate),
		ExpectedDate:  r.Time(fieldExpectedDate),
		CompletedDate: r.Time(fieldCompletedDate),
		Cost:          r.Float(fieldCost),
	}
	if t.PatientName == "" {
		t.PatientName = r.String(fieldPatientName)
	}
	if t.TestCode == "" && t.ID != 0 {
		t.TestCode = CodeFor(t.ID)
	}
	var res Results
	if r.JSON(fieldResults, &res) {
		if res.AbnormalValues == nil {
			res.AbnormalValues = []string{}
		}
		t.Results = &res
	}
	return t
}

func ToAPI(t LabTest, mode record.Mode) record.Record {
	w := record.NewWriter(t.ID, mode).
		String(record.FieldName, t.TestName).
		String(fieldTestCode, t.TestCode).
		Ref(fieldPatientID, record.Ref{ID: t.PatientID}).
		String(fieldPatientName, t.PatientName).
		String(fieldDoctorName, t.DoctorName).
		String(fieldCategory, t.Category).
		String(fieldPriority, t.Priority).
		String(fieldStatus, t.Status).
		String(fieldInstructions, t.Instructions).
		Time(fieldOrderDate, t.OrderDate).
		Date(fieldExpectedDate, t.ExpectedDate).
		Time(fieldCompletedDate, t.CompletedDate).
		Float(fieldCost, t.Cost)
	if t.Results != nil {
		w.JSON(fieldResults, t.Results)
	}
	return w.Record()
}

var Codec = recordstore.Codec[LabTest]{
	Entity:  Entity,
	Fields:  Fields,
	OrderBy: []recordstore.OrderBy{{Field: record.FieldID}},
	ToUI:    ToUI,
	ToAPI:   ToAPI,
	ID:      func(t LabTest) int64 { return t.ID },
}
