package billing

import (
	"strconv"
	"time"

	"github.com/hms/hms/internal/platform/collection"
)

type Stats struct {
	Total         int     `json:"total"`
	TotalAmount   float64 `json:"totalAmount"`
	PaidAmount    float64 `json:"paidAmount"`
	PendingAmount float64 `json:"pendingAmount"`
	OverdueAmount float64 `json:"overdueAmount"`
	PaidCount     int     `json:"paidCount"`
	PendingCount  int     `json:"pendingCount"`
	OverdueCount  int     `json:"overdueCount"`
}

// ViewConfig expects bills whose status is already the effective one.
var ViewConfig = collection.Config[Bill, Stats]{
	Search: []func(Bill) string{
		func(b Bill) string { return b.PatientName },
		func(b Bill) string { return b.BillNumber },
		func(b Bill) string { return b.Description },
	},
	Status:     func(b Bill) string { return b.Status },
	ForeignKey: func(b Bill) string { return idString(b.PatientID) },
	DateAxis:   dateAxis,
	Less:       byDate,
	Summarize:  summarize,
	Scope:      collection.ScopeAll,
}

var ForeignKeyParams = []string{"patientId"}

func idString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func dateAxis(b Bill) (time.Time, bool) {
	if b.Date == nil {
		return time.Time{}, false
	}
	return *b.Date, true
}

func byDate(a, b Bill) bool {
	switch {
	case a.Date == nil:
		return false
	case b.Date == nil:
		return true
	}
	return a.Date.Before(*b.Date)
}

func summarize(items []Bill, _ time.Time) Stats {
	s := Stats{Total: len(items)}
	for _, b := range items {
		s.TotalAmount += b.TotalAmount
		switch b.Status {
		case StatusPaid:
			s.PaidCount++
			s.PaidAmount += b.TotalAmount
		case StatusPending:
			s.PendingCount++
			s.PendingAmount += b.TotalAmount
		case StatusOverdue:
			s.OverdueCount++
			s.OverdueAmount += b.TotalAmount
		}
	}
	s.TotalAmount = round2(s.TotalAmount)
	s.PaidAmount = round2(s.PaidAmount)
	s.PendingAmount = round2(s.PendingAmount)
	s.OverdueAmount = round2(s.OverdueAmount)
	return s
}
