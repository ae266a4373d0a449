package appointment

import (
	"github.com/hms/hms/internal/platform/record"
	"github.com/hms/hms/internal/platform/recordstore"
)

const Entity = "appointment"

const (
	fieldPatientID   = "patient_id_c"
	fieldPatientName = "patient_name_c"
	fieldDoctorID    = "doctor_id_c"
	fieldDoctorName  = "doctor_name_c"
	fieldDateTime    = "date_time_c"
	fieldDuration    = "duration_c"
	fieldType        = "type_c"
	fieldReason      = "reason_c"
	fieldNotes       = "notes_c"
	fieldStatus      = "status_c"
)

var Fields = []string{
	record.FieldName, fieldPatientID, fieldPatientName, fieldDoctorID, fieldDoctorName,
	fieldDateTime, fieldDuration, fieldType, fieldReason, fieldNotes, fieldStatus,
}

func ToUI(rec record.Record) Appointment {
	r := record.Read(rec)
	patient := r.Ref(fieldPatientID)
	doctor := r.Ref(fieldDoctorID)
	a := Appointment{
		ID:          r.Int(record.FieldID),
		PatientID:   patient.ID,
		PatientName: firstNonEmpty(patient.Name, r.String(fieldPatientName)),
		DoctorID:    doctor.ID,
		DoctorName:  firstNonEmpty(doctor.Name, r.String(fieldDoctorName)),
		DateTime:    r.Time(fieldDateTime),
		Duration:    r.Int(fieldDuration),
		Type:        r.String(fieldType),
		Reason:      r.String(fieldReason),
		Notes:       r.String(fieldNotes),
		Status:      r.OneOf(fieldStatus, Statuses, StatusScheduled),
	}
	if a.Duration <= 0 {
		a.Duration = DefaultDuration
	}
	return a
}

func ToAPI(a Appointment, mode record.Mode) record.Record {
	return record.NewWriter(a.ID, mode).
		String(record.FieldName, a.PatientName).
		Ref(fieldPatientID, record.Ref{ID: a.PatientID}).
		String(fieldPatientName, a.PatientName).
		Ref(fieldDoctorID, record.Ref{ID: a.DoctorID}).
		String(fieldDoctorName, a.DoctorName).
		Time(fieldDateTime, a.DateTime).
		PositiveInt(fieldDuration, a.Duration).
		String(fieldType, a.Type).
		String(fieldReason, a.Reason).
		String(fieldNotes, a.Notes).
		String(fieldStatus, a.Status).
		Record()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

var Codec = recordstore.Codec[Appointment]{
	Entity:  Entity,
	Fields:  Fields,
	OrderBy: []recordstore.OrderBy{{Field: fieldDateTime}},
	ToUI:    ToUI,
	ToAPI:   ToAPI,
	ID:      func(a Appointment) int64 { return a.ID },
}
