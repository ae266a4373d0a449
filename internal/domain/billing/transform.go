package billing

import (
	"github.com/hms/hms/internal/platform/record"
	"github.com/hms/hms/internal/platform/recordstore"
)

const Entity = "bill"

const (
	fieldBillNumber  = "bill_number_c"
	fieldPatientID   = "patient_id_c"
	fieldPatientName = "patient_name_c"
	fieldDescription = "description_c"
	fieldDate        = "date_c"
	fieldDueDate     = "due_date_c"
	fieldItems       = "items_c"
	fieldTotalAmount = "total_amount_c"
	fieldStatus      = "status_c"
	fieldPaidDate    = "paid_date_c"
	fieldCreatedAt   = "created_at_c"
	fieldUpdatedAt   = "updated_at_c"
)

var Fields = []string{
	record.FieldName, fieldBillNumber, fieldPatientID, fieldPatientName, fieldDescription,
	fieldDate, fieldDueDate, fieldItems, fieldTotalAmount, fieldStatus, fieldPaidDate,
	fieldCreatedAt, fieldUpdatedAt,
}

// NumberFor renders the bill number derived from the record id.
func NumberFor(id int64) string { return record.Code("INV-", 4, id) }

// ToUI converts a store record. Line totals are recomputed from quantity
// and unit price; the bill total is taken from the store when present.
func ToUI(rec record.Record) Bill {
	r := record.Read(rec)
	patient := r.Ref(fieldPatientID)
	b := Bill{
		ID:          r.Int(record.FieldID),
		BillNumber:  r.String(fieldBillNumber),
		PatientID:   patient.ID,
		PatientName: patient.Name,
		Description: r.String(fieldDescription),
		Date:        r.Time(fieldDate),
		DueDate:     r.Time(fieldDueDate),
		Status:      r.OneOf(fieldStatus, Statuses, StatusPending),
		PaidDate:    r.Time(fieldPaidDate),
		CreatedAt:   r.Time(fieldCreatedAt),
		UpdatedAt:   r.Time(fieldUpdatedAt),
	}
	if b.PatientName == "" {
		b.PatientName = r.String(fieldPatientName)
	}
	if b.BillNumber == "" && b.ID != 0 {
		b.BillNumber = NumberFor(b.ID)
	}

	var items []LineItem
	r.JSON(fieldItems, &items)
	if items == nil {
		items = []LineItem{}
	}
	b.Items = items
	stored := r.Float(fieldTotalAmount)
	b = b.WithTotals()
	if r.Has(fieldTotalAmount) {
		b.TotalAmount = stored
	}
	return b
}

func ToAPI(b Bill, mode record.Mode) record.Record {
	w := record.NewWriter(b.ID, mode).
		String(record.FieldName, b.BillNumber).
		String(fieldBillNumber, b.BillNumber).
		Ref(fieldPatientID, record.Ref{ID: b.PatientID}).
		String(fieldPatientName, b.PatientName).
		String(fieldDescription, b.Description).
		Date(fieldDate, b.Date).
		Date(fieldDueDate, b.DueDate).
		Float(fieldTotalAmount, b.TotalAmount).
		String(fieldStatus, b.Status).
		Time(fieldPaidDate, b.PaidDate).
		Time(fieldCreatedAt, b.CreatedAt).
		Time(fieldUpdatedAt, b.UpdatedAt)
	if len(b.Items) > 0 {
		w.JSON(fieldItems, b.Items)
	}
	return w.Record()
}

var Codec = recordstore.Codec[Bill]{
	Entity:  Entity,
	Fields:  Fields,
	OrderBy: []recordstore.OrderBy{{Field: fieldDate}},
	ToUI:    ToUI,
	ToAPI:   ToAPI,
	ID:      func(b Bill) int64 { return b.ID },
}
