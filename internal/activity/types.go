package activity

import "time"

// Action is what the employee did with the document.
type Action string

const (
	ActionView     Action = "view"
	ActionDownload Action = "download"
)

// Valid reports whether the action is a known value.
func (a Action) Valid() bool {
	return a == ActionView || a == ActionDownload
}

// Entry is one append-only access log row. FileID is nil for events against
// documents that predate structured storage; their legacy identifier survives
// only through FileName and FileURL.
type Entry struct {
	ID         int64     `json:"id"`
	EmployeeID int64     `json:"employee_id"`
	FileID     *int64    `json:"file_id"`
	FileName   string    `json:"file_name,omitempty"`
	FileURL    string    `json:"file_url,omitempty"`
	Action     Action    `json:"action"`
	Location   string    `json:"location,omitempty"`
	AccessedAt time.Time `json:"accessed_at"`
}

// LogSpec describes an access event to record. FileRef carries either a
// numeric document id or a non-numeric legacy token.
type LogSpec struct {
	EmployeeID int64
	FileRef    string
	FileName   string
	FileURL    string
	Action     Action
	Location   string
}

// HistoryEntry is an access log row joined with the employee's identity.
type HistoryEntry struct {
	Entry
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Group is one (employee, hour bucket) aggregation flagged by the detector.
type Group struct {
	EmployeeID        int64     `json:"employee_id"`
	FullName          string    `json:"full_name"`
	Email             string    `json:"email"`
	Department        string    `json:"department,omitempty"`
	HourBucket        time.Time `json:"hour_period"`
	DistinctFileCount int       `json:"file_count"`
	DownloadCount     int       `json:"download_count"`
	FirstAccess       time.Time `json:"first_access"`
	LastAccess        time.Time `json:"last_access"`
	AccessedFiles     string    `json:"accessed_files,omitempty"`
	SuspiciousType    string    `json:"suspicious_type"`
}

// EmployeeAccessInfo summarises one employee's recent document activity.
type EmployeeAccessInfo struct {
	EmployeeID          int64  `json:"id"`
	FullName            string `json:"full_name"`
	Email               string `json:"email"`
	Department          string `json:"department,omitempty"`
	Position            string `json:"position,omitempty"`
	AvatarURL           string `json:"avatar_url,omitempty"`
	Role                string `json:"role"`
	AccessCount7Days    int    `json:"access_count_7days"`
	DownloadCount7Days  int    `json:"download_count_7days"`
	AccessibleFileCount int    `json:"accessible_file_count"`
}
