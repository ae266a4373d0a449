package staff

import (
	"github.com/hms/hms/internal/platform/record"
	"github.com/hms/hms/internal/platform/recordstore"
)

const Entity = "staff"

const (
	fieldRole           = "role_c"
	fieldSpecialization = "specialization_c"
	fieldDepartmentID   = "department_id_c"
	fieldDepartment     = "department_name_c"
	fieldPhone          = "phone_c"
	fieldEmail          = "email_c"
	fieldStatus         = "status_c"
)

var Fields = []string{
	record.FieldName, fieldRole, fieldSpecialization, fieldDepartmentID,
	fieldDepartment, fieldPhone, fieldEmail, fieldStatus,
}

func ToUI(rec record.Record) Member {
	r := record.Read(rec)
	dept := r.Ref(fieldDepartmentID)
	m := Member{
		ID:             r.Int(record.FieldID),
		Name:           r.String(record.FieldName),
		Role:           r.String(fieldRole),
		Specialization: r.String(fieldSpecialization),
		DepartmentID:   dept.ID,
		Department:     dept.Name,
		Phone:          r.String(fieldPhone),
		Email:          r.String(fieldEmail),
		Status:         r.OneOf(fieldStatus, Statuses, StatusAvailable),
	}
	if m.Department == "" {
		m.Department = r.String(fieldDepartment)
	}
	return m
}

func ToAPI(m Member, mode record.Mode) record.Record {
	return record.NewWriter(m.ID, mode).
		String(record.FieldName, m.Name).
		String(fieldRole, m.Role).
		String(fieldSpecialization, m.Specialization).
		Ref(fieldDepartmentID, record.Ref{ID: m.DepartmentID}).
		String(fieldDepartment, m.Department).
		String(fieldPhone, m.Phone).
		String(fieldEmail, m.Email).
		String(fieldStatus, m.Status).
		Record()
}

var Codec = recordstore.Codec[Member]{
	Entity:  Entity,
	Fields:  Fields,
	OrderBy: []recordstore.OrderBy{{Field: record.FieldID}},
	ToUI:    ToUI,
	ToAPI:   ToAPI,
	ID:      func(m Member) int64 { return m.ID },
}
