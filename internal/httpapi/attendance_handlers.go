package httpapi

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"peopledesk.org/internal/attendance"
	"peopledesk.org/internal/audit"
	"peopledesk.org/internal/directory"
)

type attendanceCheckRequest struct {
	EmployeeID flexID `json:"employee_id"`
}

type faceMatchRequest struct {
	// Image is a base64 frame, optionally a data URL.
	Image string `json:"image"`
}

func (a *API) handleAttendanceCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req attendanceCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.attendance.CheckInOrOut(r.Context(), req.EmployeeID.Int64())
	if err != nil {
		handleAttendanceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "attendance.check", map[string]any{
		"employee_id": req.EmployeeID.Int64(),
		"type":        res.Type,
	})
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleAttendanceToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/v1/attendance/today/")
	id, err := parsePathID(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := a.attendance.Today(r.Context(), id)
	if err != nil {
		if errors.Is(err, attendance.ErrNoRecord) {
			writeError(w, r, http.StatusNotFound, "no attendance record today")
			return
		}
		handleAttendanceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleAttendanceWeek(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	email := strings.TrimPrefix(r.URL.Path, "/v1/attendance/week/")
	if email == "" || strings.Contains(email, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	week, err := a.attendance.Week(r.Context(), email)
	if err != nil {
		handleAttendanceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

// handleFaceMatch identifies the employee on a camera frame and runs the
// daily check for them in one round trip.
func (a *API) handleFaceMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.matcher == nil {
		writeError(w, r, http.StatusServiceUnavailable, "face matching disabled")
		return
	}

	var req faceMatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	frame, err := decodeImage(req.Image)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	match, err := a.matcher.MatchFace(r.Context(), frame)
	if err != nil {
		if errors.Is(err, attendance.ErrNoMatch) {
			writeError(w, r, http.StatusNotFound, "no matching employee")
			return
		}
		writeError(w, r, http.StatusBadGateway, "face matching failed")
		return
	}

	emp, err := a.directory.GetByEmail(r.Context(), match.Label)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "matched face has no employee record")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	res, err := a.attendance.CheckInOrOut(r.Context(), emp.ID)
	if err != nil {
		handleAttendanceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "attendance.face_match", map[string]any{
		"employee_id": emp.ID,
		"confidence":  match.Confidence,
		"type":        res.Type,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"employee":   emp,
		"confidence": match.Confidence,
		"result":     res,
	})
}

func decodeImage(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("image is required")
	}
	// data URL form: data:image/jpeg;base64,<payload>
	if idx := strings.Index(raw, ","); strings.HasPrefix(raw, "data:") && idx >= 0 {
		raw = raw[idx+1:]
	}
	frame, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.New("image must be base64 encoded")
	}
	return frame, nil
}

func handleAttendanceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, attendance.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, attendance.ErrEmployeeNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
