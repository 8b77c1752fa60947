package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"peopledesk.org/internal/activity"
	"peopledesk.org/internal/attendance"
	"peopledesk.org/internal/auth"
	"peopledesk.org/internal/directory"
	"peopledesk.org/internal/docshare"
	"peopledesk.org/internal/obs"
	"peopledesk.org/internal/stream"
)

// ReadyProbe is a readiness check, typically a database ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the domain services into the HTTP layer. Nil services disable
// their routes with 503 rather than panicking.
type Config struct {
	Ready      ReadyProbe
	Version    string
	Directory  directory.Service
	Documents  docshare.Service
	Activity   activity.Service
	Attendance attendance.Service
	Auth       *auth.Service
	Matcher    attendance.FaceMatcher
	Stream     *stream.Stream

	// Rate limiting per client IP; zero values fall back to defaults.
	RateBurst  int
	RatePerSec int
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	directory  directory.Service
	docs       docshare.Service
	activity   activity.Service
	attendance attendance.Service
	auth       *auth.Service
	matcher    attendance.FaceMatcher
	stream     *stream.Stream

	rateBurst  int
	ratePerSec int
}

func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: cfg.Ready,
		version:    cfg.Version,
		directory:  cfg.Directory,
		docs:       cfg.Documents,
		activity:   cfg.Activity,
		attendance: cfg.Attendance,
		auth:       cfg.Auth,
		matcher:    cfg.Matcher,
		stream:     cfg.Stream,
		rateBurst:  cfg.RateBurst,
		ratePerSec: cfg.RatePerSec,
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 60
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 30
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/otp/send", a.handleSendOTP)
	a.mux.HandleFunc("/v1/auth/otp/verify", a.handleVerifyOTP)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)

	// employee directory
	a.mux.HandleFunc("/v1/employees", a.handleEmployeesCollection)
	a.mux.HandleFunc("/v1/employees/", a.handleEmployeeResource)

	// document sharing
	a.mux.HandleFunc("/v1/shared-files", a.handleSharedFilesCollection)
	a.mux.HandleFunc("/v1/shared-files/", a.handleSharedFileResource)

	// access log and anomaly reporting
	a.mux.HandleFunc("/v1/document-access/log", a.handleAccessLog)
	a.mux.HandleFunc("/v1/document-access/suspicious", a.handleSuspicious)
	a.mux.HandleFunc("/v1/document-access/history/", a.handleAccessHistory)
	a.mux.HandleFunc("/v1/document-access/employees", a.handleAccessOverview)
	a.mux.HandleFunc("/v1/document-access/stream", a.Stream)

	// attendance
	a.mux.HandleFunc("/v1/attendance/check", a.handleAttendanceCheck)
	a.mux.HandleFunc("/v1/attendance/today/", a.handleAttendanceToday)
	a.mux.HandleFunc("/v1/attendance/week/", a.handleAttendanceWeek)
	a.mux.HandleFunc("/v1/attendance/face-match", a.handleFaceMatch)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server. Order
// matters: the request id must exist before logging, and rate limiting runs
// before any body is read.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "peopledesk-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "peopledesk-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
