package department

import (
	"github.com/hms/hms/internal/platform/record"
	"github.com/hms/hms/internal/platform/recordstore"
)

const Entity = "department"

const (
	fieldType             = "type_c"
	fieldTotalBeds        = "total_beds_c"
	fieldAvailableBeds    = "available_beds_c"
	fieldHeadOfDepartment = "head_of_department_c"
	fieldContactExtension = "contact_extension_c"
)

var Fields = []string{
	record.FieldName, fieldType, fieldTotalBeds, fieldAvailableBeds,
	fieldHeadOfDepartment, fieldContactExtension,
}

func ToUI(rec record.Record) Department {
	r := record.Read(rec)
	return Department{
		ID:               r.Int(record.FieldID),
		Name:             r.String(record.FieldName),
		Type:             r.String(fieldType),
		TotalBeds:        max(r.Int(fieldTotalBeds), 0),
		AvailableBeds:    max(r.Int(fieldAvailableBeds), 0),
		HeadOfDepartment: r.String(fieldHeadOfDepartment),
		ContactExtension: r.String(fieldContactExtension),
	}
}

// ToAPI always writes bed counts: zero available beds is meaningful.
func ToAPI(d Department, mode record.Mode) record.Record {
	return record.NewWriter(d.ID, mode).
		String(record.FieldName, d.Name).
		String(fieldType, d.Type).
		Int(fieldTotalBeds, d.TotalBeds).
		Int(fieldAvailableBeds, d.AvailableBeds).
		String(fieldHeadOfDepartment, d.HeadOfDepartment).
		String(fieldContactExtension, d.ContactExtension).
		Record()
}

var Codec = recordstore.Codec[Department]{
	Entity:  Entity,
	Fields:  Fields,
	OrderBy: []recordstore.OrderBy{{Field: record.FieldName}},
	ToUI:    ToUI,
	ToAPI:   ToAPI,
	ID:      func(d Department) int64 { return d.ID },
}
