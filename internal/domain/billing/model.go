package billing

import (
	"math"
	"time"
)

const (
	StatusPending       = "Pending"
	StatusPaid          = "Paid"
	StatusOverdue       = "Overdue"
	StatusPartiallyPaid = "Partially Paid"
	StatusCancelled     = "Cancelled"
)

var Statuses = []string{StatusPending, StatusPaid, StatusOverdue, StatusPartiallyPaid, StatusCancelled}

var validStatuses = map[string]bool{
	StatusPending: true, StatusPaid: true, StatusOverdue: true, StatusPartiallyPaid: true, StatusCancelled: true,
}

// OverduePolicy decides what happens when a pending bill passes its due
// date.
type OverduePolicy string

const (
	// PolicyView derives Overdue on read and never writes it.
	PolicyView OverduePolicy = "view"
	// PolicyPersist also stores the Overdue status and announces it.
	PolicyPersist OverduePolicy = "persist"
)

type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
}

type Bill struct {
	ID          int64      `json:"id"`
	BillNumber  string     `json:"billNumber"`
	PatientID   int64      `json:"patientId"`
	PatientName string     `json:"patientName"`
	Description string     `json:"description"`
	Date        *time.Time `json:"date"`
	DueDate     *time.Time `json:"dueDate"`
	Items       []LineItem `json:"items"`
	TotalAmount float64    `json:"totalAmount"`
	Status      string     `json:"status"`
	PaidDate    *time.Time `json:"paidDate"`
	CreatedAt   *time.Time `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
}

// IsOverdue reports whether a pending bill's due date lies before now.
func (b Bill) IsOverdue(now time.Time) bool {
	return b.Status == StatusPending && b.DueDate != nil && b.DueDate.Before(now)
}

// EffectiveStatus is the status shown to users: Overdue for a pending bill
// past its due date, the stored status otherwise.
func (b Bill) EffectiveStatus(now time.Time) string {
	if b.IsOverdue(now) {
		return StatusOverdue
	}
	return b.Status
}

// DaysOverdue counts started days since the due date of an overdue bill.
func (b Bill) DaysOverdue(now time.Time) int {
	if b.DueDate == nil || b.EffectiveStatus(now) != StatusOverdue {
		return 0
	}
	days := now.Sub(*b.DueDate).Hours() / 24
	if days <= 0 {
		return 0
	}
	return int(math.Ceil(days))
}

// WithTotals recomputes every line total and the bill total. Input totals
// are never trusted.
func (b Bill) WithTotals() Bill {
	items := make([]LineItem, len(b.Items))
	var sum float64
	for i, it := range b.Items {
		it.Total = round2(it.Quantity * it.UnitPrice)
		sum += it.Total
		items[i] = it
	}
	b.Items = items
	b.TotalAmount = round2(sum)
	return b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
