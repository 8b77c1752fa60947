package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"peopledesk.org/internal/audit"
	"peopledesk.org/internal/docshare"
	"peopledesk.org/internal/obs"
)

type shareFileRequest struct {
	FileName      string `json:"file_name"`
	FileURL       string `json:"file_url"`
	FileType      string `json:"file_type"`
	FileSize      int64  `json:"file_size"`
	Audience      string `json:"target_audience"`
	CreatedBy     flexID `json:"created_by"`
	AssigneeEmail string `json:"assignee_email"`
	AssigneeID    flexID `json:"assignee_id"`
}

type grantRequest struct {
	FileID         flexID `json:"file_id"`
	EmployeeID     flexID `json:"employee_id"`
	PermissionType string `json:"permission_type"`
	GrantedBy      flexID `json:"granted_by"`
}

func (a *API) handleSharedFilesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listSharedFiles(w, r)
	case http.MethodPost:
		a.shareFile(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleSharedFileResource routes everything under /v1/shared-files/:
// permission grants, per-employee resolution, permission listings and
// document deletion.
func (a *API) handleSharedFileResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/shared-files/")

	switch {
	case path == "permission":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.grantPermission(w, r)

	case strings.HasPrefix(path, "permission/"):
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		a.revokePermission(w, r, strings.TrimPrefix(path, "permission/"))

	case strings.HasPrefix(path, "employee/"):
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.accessibleFiles(w, r, strings.TrimPrefix(path, "employee/"))

	case strings.HasSuffix(path, "/permissions"):
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listPermissions(w, r, strings.TrimSuffix(path, "/permissions"))

	case path != "" && !strings.Contains(path, "/"):
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		a.deleteSharedFile(w, r, path)

	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) listSharedFiles(w http.ResponseWriter, r *http.Request) {
	items, err := a.docs.ListAll(r.Context())
	if err != nil {
		handleDocshareError(w, r, err)
		return
	}
	if items == nil {
		items = []docshare.DocumentSummary{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) shareFile(w http.ResponseWriter, r *http.Request) {
	var req shareFileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.docs.Create(r.Context(), docshare.CreateSpec{
		Name:          req.FileName,
		URL:           req.FileURL,
		FileType:      req.FileType,
		FileSize:      req.FileSize,
		Audience:      docshare.Audience(req.Audience),
		CreatedBy:     req.CreatedBy.Int64(),
		AssigneeEmail: req.AssigneeEmail,
		AssigneeID:    req.AssigneeID.Int64(),
	})
	if err != nil {
		handleDocshareError(w, r, err)
		return
	}

	obs.CountDocumentCreated()
	_ = audit.LogEvent(r.Context(), "docshare.file.create", map[string]any{
		"file_id":  res.FileID,
		"audience": req.Audience,
		"assigned": res.Assigned,
	})
	writeJSON(w, http.StatusCreated, res)
}

func (a *API) deleteSharedFile(w http.ResponseWriter, r *http.Request, raw string) {
	id, err := parsePathID(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.docs.Delete(r.Context(), id); err != nil {
		handleDocshareError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "docshare.file.delete", map[string]any{"file_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (a *API) accessibleFiles(w http.ResponseWriter, r *http.Request, raw string) {
	id, err := parsePathID(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	docs, err := a.docs.AccessibleForEmployee(r.Context(), id)
	if err != nil {
		handleDocshareError(w, r, err)
		return
	}
	if docs == nil {
		docs = []docshare.AccessibleDocument{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (a *API) listPermissions(w http.ResponseWriter, r *http.Request, raw string) {
	id, err := parsePathID(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	perms, err := a.docs.Permissions(r.Context(), id)
	if err != nil {
		handleDocshareError(w, r, err)
		return
	}
	if perms == nil {
		perms = []docshare.GrantDetail{}
	}
	writeJSON(w, http.StatusOK, perms)
}

func (a *API) grantPermission(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	g := docshare.Grant{
		FileID:         req.FileID.Int64(),
		EmployeeID:     req.EmployeeID.Int64(),
		PermissionType: docshare.PermissionType(req.PermissionType),
		GrantedBy:      req.GrantedBy.Int64(),
	}
	if err := a.docs.Grant(r.Context(), g); err != nil {
		handleDocshareError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "docshare.permission.grant", map[string]any{
		"file_id":         g.FileID,
		"employee_id":     g.EmployeeID,
		"permission_type": string(g.PermissionType),
	})
	writeJSON(w, http.StatusOK, map[string]any{"granted": true})
}

func (a *API) revokePermission(w http.ResponseWriter, r *http.Request, raw string) {
	parts := strings.Split(raw, "/")
	if len(parts) != 2 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	fileID, err := parsePathID(parts[0])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	employeeID, err := parsePathID(parts[1])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.docs.Revoke(r.Context(), fileID, employeeID); err != nil {
		handleDocshareError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "docshare.permission.revoke", map[string]any{
		"file_id":     fileID,
		"employee_id": employeeID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"revoked": true})
}

func handleDocshareError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, docshare.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, docshare.ErrEmployeeNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, docshare.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
