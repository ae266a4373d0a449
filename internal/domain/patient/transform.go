package patient

import (
	"strings"

	"github.com/hms/hms/internal/platform/record"
	"github.com/hms/hms/internal/platform/recordstore"
)

// Entity is the record store collection name.
const Entity = "patient"

// External field names.
const (
	fieldCode             = "code_c"
	fieldFirstName        = "first_name_c"
	fieldLastName         = "last_name_c"
	fieldDateOfBirth      = "date_of_birth_c"
	fieldGender           = "gender_c"
	fieldBloodType        = "blood_type_c"
	fieldPhone            = "phone_c"
	fieldEmail            = "email_c"
	fieldAddress          = "address_c"
	fieldContactName      = "emergency_contact_name_c"
	fieldContactPhone     = "emergency_contact_phone_c"
	fieldContactRelation  = "emergency_contact_relation_c"
	fieldStatus           = "status_c"
	fieldAssignedBed      = "assigned_bed_c"
	fieldAssignedDoctorID = "assigned_doctor_id_c"
	fieldAssignedDoctor   = "assigned_doctor_c"
	fieldAdmissionDate    = "admission_date_c"
)

// Fields is the projection requested from the store.
var Fields = []string{
	record.FieldName, fieldCode, fieldFirstName, fieldLastName, fieldDateOfBirth,
	fieldGender, fieldBloodType, fieldPhone, fieldEmail, fieldAddress,
	fieldContactName, fieldContactPhone, fieldContactRelation, fieldStatus,
	fieldAssignedBed, fieldAssignedDoctorID, fieldAssignedDoctor, fieldAdmissionDate,
}

// CodeFor renders the patient code derived from the record id.
func CodeFor(id int64) string { return record.Code("P", 3, id) }

// ToUI converts a store record. Missing fields take their defaults.
func ToUI(rec record.Record) Patient {
	r := record.Read(rec)
	p := Patient{
		ID:          r.Int(record.FieldID),
		Code:        r.String(fieldCode),
		FirstName:   r.String(fieldFirstName),
		LastName:    r.String(fieldLastName),
		DateOfBirth: r.Time(fieldDateOfBirth),
		Gender:      r.String(fieldGender),
		BloodType:   r.String(fieldBloodType),
		Phone:       r.String(fieldPhone),
		Email:       r.String(fieldEmail),
		Address:     r.String(fieldAddress),
		EmergencyContact: EmergencyContact{
			Name:     r.String(fieldContactName),
			Phone:    r.String(fieldContactPhone),
			Relation: r.String(fieldContactRelation),
		},
		Status:        r.OneOf(fieldStatus, Statuses, StatusActive),
		AssignedBed:   r.String(fieldAssignedBed),
		AdmissionDate: r.Time(fieldAdmissionDate),
	}

	// Older records only carry the display name.
	if p.FirstName == "" && p.LastName == "" {
		first, last, _ := strings.Cut(strings.TrimSpace(r.String(record.FieldName)), " ")
		p.FirstName, p.LastName = first, strings.TrimSpace(last)
	}
	if p.Code == "" && p.ID != 0 {
		p.Code = CodeFor(p.ID)
	}

	doctor := r.Ref(fieldAssignedDoctorID)
	p.AssignedDoctorID = doctor.ID
	p.AssignedDoctor = doctor.Name
	if p.AssignedDoctor == "" {
		p.AssignedDoctor = r.String(fieldAssignedDoctor)
	}
	return p
}

// ToAPI converts a patient to the store shape, omitting empty values.
func ToAPI(p Patient, mode record.Mode) record.Record {
	return record.NewWriter(p.ID, mode).
		String(record.FieldName, p.FullName()).
		String(fieldCode, p.Code).
		String(fieldFirstName, p.FirstName).
		String(fieldLastName, p.LastName).
		Date(fieldDateOfBirth, p.DateOfBirth).
		String(fieldGender, p.Gender).
		String(fieldBloodType, p.BloodType).
		String(fieldPhone, p.Phone).
		String(fieldEmail, p.Email).
		String(fieldAddress, p.Address).
		String(fieldContactName, p.EmergencyContact.Name).
		String(fieldContactPhone, p.EmergencyContact.Phone).
		String(fieldContactRelation, p.EmergencyContact.Relation).
		String(fieldStatus, p.Status).
		String(fieldAssignedBed, p.AssignedBed).
		Ref(fieldAssignedDoctorID, record.Ref{ID: p.AssignedDoctorID}).
		String(fieldAssignedDoctor, p.AssignedDoctor).
		Time(fieldAdmissionDate, p.AdmissionDate).
		Record()
}

// Codec binds the patient transforms to the store.
var Codec = recordstore.Codec[Patient]{
	Entity:  Entity,
	Fields:  Fields,
	OrderBy: []recordstore.OrderBy{{Field: record.FieldID}},
	ToUI:    ToUI,
	ToAPI:   ToAPI,
	ID:      func(p Patient) int64 { return p.ID },
}
