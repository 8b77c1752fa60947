package attendance

import "time"

// Record is one employee-day of attendance. CheckOut stays nil until the
// second check of the day.
type Record struct {
	ID         int64      `json:"id"`
	EmployeeID int64      `json:"employee_id"`
	Date       time.Time  `json:"date"`
	CheckIn    time.Time  `json:"check_in"`
	CheckOut   *time.Time `json:"check_out,omitempty"`
}

// Check outcomes. A day moves check_in -> check_out -> done and never back.
const (
	CheckedIn  = "check_in"
	CheckedOut = "check_out"
	Done       = "done"
)

// CheckResult reports which transition a check attempt produced.
type CheckResult struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// DayView is one calendar day of an employee's week, times rendered as
// HH:MM strings for the client. Empty strings mean no check that day.
type DayView struct {
	Date     string `json:"date"`
	Weekday  string `json:"weekday"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

// Match is a face recognition hit. Label carries the employee email the
// matcher was enrolled with.
type Match struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}
