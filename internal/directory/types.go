package directory

import "time"

// Employee is one record of the HR directory. Dates that are calendar days
// (birthday, start date, attendance day) travel as YYYY-MM-DD strings.
type Employee struct {
	ID         int64     `json:"id"`
	FullName   string    `json:"full_name"`
	Gender     string    `json:"gender,omitempty"`
	Birthday   string    `json:"birthday,omitempty"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Address    string    `json:"address,omitempty"`
	Department string    `json:"department,omitempty"`
	Position   string    `json:"position,omitempty"`
	StartDate  string    `json:"start_date,omitempty"`
	Salary     int64     `json:"salary,omitempty"`
	Role       string    `json:"role"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// DefaultOnboardPassword is the initial login password handed to a new hire.
// It is hashed at rest and expected to be changed on first login.
const DefaultOnboardPassword = "123456"
