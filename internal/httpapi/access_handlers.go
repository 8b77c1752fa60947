package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"peopledesk.org/internal/activity"
	"peopledesk.org/internal/obs"
	"peopledesk.org/internal/stream"
)

type accessLogRequest struct {
	EmployeeID flexID `json:"employee_id"`
	FileID     string `json:"file_id"`
	FileName   string `json:"file_name"`
	FileURL    string `json:"file_url"`
	Action     string `json:"action"`
	Location   string `json:"location"`
}

func (a *API) handleAccessLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req accessLogRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := a.activity.Log(r.Context(), activity.LogSpec{
		EmployeeID: req.EmployeeID.Int64(),
		FileRef:    req.FileID,
		FileName:   req.FileName,
		FileURL:    req.FileURL,
		Action:     activity.Action(req.Action),
		Location:   req.Location,
	})
	if err != nil {
		handleActivityError(w, r, err)
		return
	}

	obs.CountAccessEvent(string(entry.Action))
	if a.stream != nil {
		evt := stream.AccessEvent{
			EmployeeID: entry.EmployeeID,
			FileID:     entry.FileID,
			FileName:   entry.FileName,
			Action:     string(entry.Action),
			Timestamp:  entry.AccessedAt,
		}
		if emp, err := a.directory.Get(r.Context(), entry.EmployeeID); err == nil {
			evt.EmployeeName = emp.FullName
		}
		a.stream.Publish(evt)
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (a *API) handleSuspicious(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	days, err := parsePositiveInt(r.URL.Query().Get("days"), activity.DefaultWindowDays, 1, 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "days must be a positive integer")
		return
	}

	groups, err := a.activity.Suspicious(r.Context(), days)
	if err != nil {
		handleActivityError(w, r, err)
		return
	}
	if groups == nil {
		groups = []activity.Group{}
	}
	obs.CountSuspiciousGroups(len(groups))
	writeJSON(w, http.StatusOK, map[string]any{
		"window_days": days,
		"as_of":       time.Now().UTC(),
		"items":       groups,
	})
}

func (a *API) handleAccessHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/v1/document-access/history/")
	id, err := parsePathID(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 50, 1, 500)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}

	items, err := a.activity.History(r.Context(), id, limit)
	if err != nil {
		handleActivityError(w, r, err)
		return
	}
	if items == nil {
		items = []activity.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) handleAccessOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	items, err := a.activity.Overview(r.Context())
	if err != nil {
		handleActivityError(w, r, err)
		return
	}
	if items == nil {
		items = []activity.EmployeeAccessInfo{}
	}
	writeJSON(w, http.StatusOK, items)
}

func handleActivityError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, activity.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, activity.ErrEmployeeNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
