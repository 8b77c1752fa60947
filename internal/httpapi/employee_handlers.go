package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"peopledesk.org/internal/audit"
	"peopledesk.org/internal/directory"
)

type employeeRequest struct {
	FullName   string `json:"full_name"`
	Gender     string `json:"gender"`
	Birthday   string `json:"birthday"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Department string `json:"department"`
	Position   string `json:"position"`
	StartDate  string `json:"start_date"`
	Salary     int64  `json:"salary"`
	Role       string `json:"role"`
	AvatarURL  string `json:"avatar_url"`
}

func (req employeeRequest) toEmployee() directory.Employee {
	return directory.Employee{
		FullName:   req.FullName,
		Gender:     req.Gender,
		Birthday:   req.Birthday,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		Department: req.Department,
		Position:   req.Position,
		StartDate:  req.StartDate,
		Salary:     req.Salary,
		Role:       req.Role,
		AvatarURL:  req.AvatarURL,
	}
}

func (a *API) handleEmployeesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listEmployees(w, r)
	case http.MethodPost:
		a.createEmployee(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleEmployeeResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/employees/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id, err := parsePathID(path)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getEmployee(w, r, id)
	case http.MethodPut:
		a.updateEmployee(w, r, id)
	case http.MethodDelete:
		a.deleteEmployee(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listEmployees(w http.ResponseWriter, r *http.Request) {
	emps, err := a.directory.List(r.Context())
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	if emps == nil {
		emps = []directory.Employee{}
	}
	writeJSON(w, http.StatusOK, emps)
}

func (a *API) getEmployee(w http.ResponseWriter, r *http.Request, id int64) {
	emp, err := a.directory.Get(r.Context(), id)
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (a *API) createEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	emp, err := a.directory.Create(r.Context(), req.toEmployee())
	if err != nil && !errors.Is(err, directory.ErrCredentialProvision) {
		handleDirectoryError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "directory.employee.create", map[string]any{
		"employee_id": emp.ID,
		"email":       emp.Email,
	})

	resp := map[string]any{"employee": emp}
	if errors.Is(err, directory.ErrCredentialProvision) {
		// The employee row stands; the caller learns the login was not set up.
		resp["note"] = "employee created but login credentials could not be provisioned"
	}
	w.Header().Set("Location", "/v1/employees/"+itoa(emp.ID))
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) updateEmployee(w http.ResponseWriter, r *http.Request, id int64) {
	var req employeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	emp, err := a.directory.Update(r.Context(), id, req.toEmployee())
	if err != nil && !errors.Is(err, directory.ErrCredentialProvision) {
		handleDirectoryError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "directory.employee.update", map[string]any{
		"employee_id": id,
		"email":       emp.Email,
	})

	resp := map[string]any{"employee": emp}
	if errors.Is(err, directory.ErrCredentialProvision) {
		resp["note"] = "employee updated but login credentials are out of sync"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) deleteEmployee(w http.ResponseWriter, r *http.Request, id int64) {
	if err := a.directory.Delete(r.Context(), id); err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.employee.delete", map[string]any{
		"employee_id": id,
	})
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func handleDirectoryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, directory.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, directory.ErrEmailTaken):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, directory.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
