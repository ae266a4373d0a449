package labtest

import "time"

const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusCancelled  = "Cancelled"
)

var Statuses = []string{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

var Categories = []string{"Hematology", "Chemistry", "Endocrinology", "Urinalysis", "Molecular"}

var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}

const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"

	DefaultCategory = "Chemistry"
)

// transitions lists the statuses reachable from each status.
var transitions = map[string][]string{
	StatusPending:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// CanMove reports whether a test may move from one status to another.
func CanMove(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Results struct {
	Summary        string   `json:"summary"`
	AbnormalValues []string `json:"abnormalValues"`
	ReportURL      string   `json:"reportUrl"`
}

type LabTest struct {
	ID            int64      `json:"id"`
	TestCode      string     `json:"testCode"`
	TestName      string     `json:"testName"`
	PatientID     int64      `json:"patientId"`
	PatientName   string     `json:"patientName"`
	DoctorName    string     `json:"doctorName"`
	Category      string     `json:"category"`
	Priority      string     `json:"priority"`
	Status        string     `json:"status"`
	Instructions  string     `json:"instructions"`
	OrderDate     *time.Time `json:"orderDate"`
	ExpectedDate  *time.Time `json:"expectedDate"`
	CompletedDate *time.Time `json:"completedDate"`
	Cost          float64    `json:"cost"`
	Results       *Results   `json:"results"`
}
