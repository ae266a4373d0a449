package staff

const (
	StatusAvailable = "Available"
	StatusBusy      = "Busy"
	StatusOnCall    = "On Call"
	StatusOffDuty   = "Off Duty"
)

var Statuses = []string{StatusAvailable, StatusBusy, StatusOnCall, StatusOffDuty}

// RoleDoctor is the role counted by the doctors summary and offered as
// appointment doctor.
const RoleDoctor = "Doctor"

type Member struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	Specialization string `json:"specialization"`
	DepartmentID   int64  `json:"departmentId"`
	Department     string `json:"department"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Status         string `json:"status"`
}

// IsActive reports whether the member is on shift.
func (m Member) IsActive() bool {
	return m.Status == StatusAvailable || m.Status == StatusBusy
}
