package docshare

import "time"

// Audience selects who may access a shared document.
type Audience string

const (
	AudienceAll    Audience = "all"
	AudienceStaff  Audience = "staff"
	AudienceSingle Audience = "single"
)

// Valid reports whether the audience is one of the three known tiers.
func (a Audience) Valid() bool {
	switch a {
	case AudienceAll, AudienceStaff, AudienceSingle:
		return true
	}
	return false
}

// PermissionType gates what a single-audience grant allows.
type PermissionType string

const (
	PermissionView     PermissionType = "view"
	PermissionDownload PermissionType = "download"
	PermissionBoth     PermissionType = "both"
)

// Valid reports whether the permission type is a known value.
func (p PermissionType) Valid() bool {
	switch p {
	case PermissionView, PermissionDownload, PermissionBoth:
		return true
	}
	return false
}

// Document is a shared file record. Immutable after creation except deletion.
type Document struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	FileType  string    `json:"file_type,omitempty"`
	FileSize  int64     `json:"file_size,omitempty"`
	Audience  Audience  `json:"audience"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// AccessibleDocument is a document visible to a particular employee; the
// permission type is set only when visibility comes from a single-audience
// grant and gates download versus view downstream.
type AccessibleDocument struct {
	Document
	PermissionType PermissionType `json:"permission_type,omitempty"`
}

// Grant ties a single-audience document to one employee. At most one grant
// exists per (document, employee) pair; re-granting overwrites it.
type Grant struct {
	FileID         int64          `json:"file_id"`
	EmployeeID     int64          `json:"employee_id"`
	PermissionType PermissionType `json:"permission_type"`
	GrantedBy      int64          `json:"granted_by,omitempty"`
	GrantedAt      time.Time      `json:"granted_at"`
}

// GrantDetail is a grant joined with the grantee's directory fields.
type GrantDetail struct {
	Grant
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
}

// DocumentSummary is the administrative view of a document.
type DocumentSummary struct {
	Document
	CreatedByName  string `json:"created_by_name,omitempty"`
	CreatedByEmail string `json:"created_by_email,omitempty"`
	GrantCount     int    `json:"permission_count"`
}

// CreateSpec describes a document to share.
type CreateSpec struct {
	Name          string
	URL           string
	FileType      string
	FileSize      int64
	Audience      Audience
	CreatedBy     int64
	AssigneeEmail string
	AssigneeID    int64
}

// CreateResult reports the outcome of a share. Assigned is false when the
// document exists but no grant was written — either because the audience
// did not call for one or because the lenient assignee policy kicked in;
// Note explains the latter so partial success is never hidden.
type CreateResult struct {
	FileID   int64  `json:"file_id"`
	Assigned bool   `json:"assigned"`
	Note     string `json:"note,omitempty"`
}
