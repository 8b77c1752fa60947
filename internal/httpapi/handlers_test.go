package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"peopledesk.org/internal/activity"
	"peopledesk.org/internal/attendance"
	"peopledesk.org/internal/auth"
	"peopledesk.org/internal/directory"
	"peopledesk.org/internal/docshare"
	"peopledesk.org/internal/mail"
	"peopledesk.org/internal/stream"
)

type apiClient struct {
	t       *testing.T
	baseURL string
	client  *http.Client
	token   string
}

type testEnv struct {
	api   *apiClient
	dir   *directory.InMemory
	docs  *docshare.InMemory
	log   *activity.InMemory
	book  *attendance.InMemory
	creds *auth.InMemoryStore
	mails *mail.Recorder
}

func newTestAPI(t *testing.T) *testEnv {
	t.Helper()
	// Leave tokens disabled unless a test opts in via its own secret.
	t.Setenv("PEOPLEDESK_AUTH_SECRET", "")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	creds := auth.NewInMemoryStore()
	dir := directory.NewInMemory(creds)
	docs := docshare.NewInMemory(dir)
	log := activity.NewInMemory(dir, docs)
	book := attendance.NewInMemory(dir)
	mails := &mail.Recorder{}
	authSvc := auth.NewService(creds, mails)

	api := New(Config{
		Version:    "test",
		Directory:  dir,
		Documents:  docs,
		Activity:   log,
		Attendance: book,
		Auth:       authSvc,
		Stream:     stream.New(),
		RateBurst:  1000,
		RatePerSec: 1000,
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{
		api:   &apiClient{t: t, baseURL: srv.URL, client: srv.Client()},
		dir:   dir,
		docs:  docs,
		log:   log,
		book:  book,
		creds: creds,
		mails: mails,
	}
}

func (c *apiClient) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.baseURL+path, buf)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (c *apiClient) post(path string, body any) *http.Response {
	return c.do(http.MethodPost, path, body)
}

func (c *apiClient) get(path string) *http.Response {
	return c.do(http.MethodGet, path, nil)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func wantStatus(t *testing.T, resp *http.Response, code int) {
	t.Helper()
	if resp.StatusCode != code {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status %d, want %d; body: %s", resp.StatusCode, code, body)
	}
}

func TestAPIHealthz(t *testing.T) {
	env := newTestAPI(t)
	resp := env.api.get("/healthz")
	wantStatus(t, resp, http.StatusOK)
	out := decode[map[string]any](t, resp)
	if out["service"] != "peopledesk-api" || out["version"] != "test" {
		t.Fatalf("unexpected health payload %v", out)
	}
}

func TestAPIDocumentFlow(t *testing.T) {
	env := newTestAPI(t)

	// Onboard an admin and a staff member.
	resp := env.api.post("/v1/employees", map[string]any{
		"full_name": "Ada Admin", "email": "ada@corp.test", "role": "admin",
	})
	wantStatus(t, resp, http.StatusCreated)
	created := decode[struct {
		Employee directory.Employee `json:"employee"`
	}](t, resp)
	adminID := created.Employee.ID

	resp = env.api.post("/v1/employees", map[string]any{
		"full_name": "Sam Staff", "email": "sam@corp.test", "role": "staff",
	})
	wantStatus(t, resp, http.StatusCreated)
	created = decode[struct {
		Employee directory.Employee `json:"employee"`
	}](t, resp)
	staffID := created.Employee.ID

	// Share a single-audience document with the staff member.
	resp = env.api.post("/v1/shared-files", map[string]any{
		"file_name": "payslip.pdf", "file_url": "/files/payslip.pdf",
		"target_audience": "single", "created_by": adminID,
		"assignee_email": "sam@corp.test",
	})
	wantStatus(t, resp, http.StatusCreated)
	share := decode[docshare.CreateResult](t, resp)
	if !share.Assigned {
		t.Fatalf("expected an assigned grant, got %+v", share)
	}

	// The staff member resolves it; the admin does not.
	resp = env.api.get(fmt.Sprintf("/v1/shared-files/employee/%d", staffID))
	wantStatus(t, resp, http.StatusOK)
	if docs := decode[[]docshare.AccessibleDocument](t, resp); len(docs) != 1 {
		t.Fatalf("staff expected 1 document, got %d", len(docs))
	}
	resp = env.api.get(fmt.Sprintf("/v1/shared-files/employee/%d", adminID))
	wantStatus(t, resp, http.StatusOK)
	if docs := decode[[]docshare.AccessibleDocument](t, resp); len(docs) != 0 {
		t.Fatalf("admin expected 0 documents, got %d", len(docs))
	}

	// Log an access and read it back through the history endpoint.
	resp = env.api.post("/v1/document-access/log", map[string]any{
		"employee_id": staffID, "file_id": fmt.Sprint(share.FileID),
		"file_name": "payslip.pdf", "action": "view",
	})
	wantStatus(t, resp, http.StatusCreated)

	resp = env.api.get(fmt.Sprintf("/v1/document-access/history/%d", staffID))
	wantStatus(t, resp, http.StatusOK)
	history := decode[[]activity.HistoryEntry](t, resp)
	if len(history) != 1 || history[0].FileName != "payslip.pdf" {
		t.Fatalf("unexpected history %+v", history)
	}

	// Revoke and confirm the document disappears.
	resp = env.api.do(http.MethodDelete,
		fmt.Sprintf("/v1/shared-files/permission/%d/%d", share.FileID, staffID), nil)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.api.get(fmt.Sprintf("/v1/shared-files/employee/%d", staffID))
	wantStatus(t, resp, http.StatusOK)
	if docs := decode[[]docshare.AccessibleDocument](t, resp); len(docs) != 0 {
		t.Fatalf("revoked document still resolvable")
	}
}

func TestAPISuspiciousReport(t *testing.T) {
	env := newTestAPI(t)

	emp, err := env.dir.Create(t.Context(), directory.Employee{
		FullName: "Nina Novak", Email: "nina@corp.test", Role: "staff",
	})
	if err != nil {
		t.Fatalf("seed employee: %v", err)
	}
	base := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Hour)
	for i := 0; i < 11; i++ {
		id := int64(i + 1)
		env.log.Append(activity.Entry{
			EmployeeID: emp.ID, FileID: &id, FileName: fmt.Sprintf("f%d", i),
			Action: activity.ActionView, AccessedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	resp := env.api.get("/v1/document-access/suspicious?days=7")
	wantStatus(t, resp, http.StatusOK)
	report := decode[struct {
		WindowDays int              `json:"window_days"`
		Items      []activity.Group `json:"items"`
	}](t, resp)
	if report.WindowDays != 7 {
		t.Fatalf("window days %d", report.WindowDays)
	}
	if len(report.Items) != 1 || report.Items[0].SuspiciousType != activity.TypeHighAccessRate {
		t.Fatalf("unexpected report %+v", report.Items)
	}

	// Any positive window is accepted; only non-positive values are rejected.
	resp = env.api.get("/v1/document-access/suspicious?days=120")
	wantStatus(t, resp, http.StatusOK)
	wide := decode[struct {
		WindowDays int `json:"window_days"`
	}](t, resp)
	if wide.WindowDays != 120 {
		t.Fatalf("window days %d", wide.WindowDays)
	}

	resp = env.api.get("/v1/document-access/suspicious?days=0")
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestAPIAttendanceFlow(t *testing.T) {
	env := newTestAPI(t)

	emp, err := env.dir.Create(t.Context(), directory.Employee{
		FullName: "Pam Park", Email: "pam@corp.test", Role: "staff",
	})
	if err != nil {
		t.Fatalf("seed employee: %v", err)
	}

	resp := env.api.post("/v1/attendance/check", map[string]any{"employee_id": emp.ID})
	wantStatus(t, resp, http.StatusOK)
	res := decode[attendance.CheckResult](t, resp)
	if res.Type != attendance.CheckedIn {
		t.Fatalf("expected %s, got %s", attendance.CheckedIn, res.Type)
	}

	resp = env.api.get(fmt.Sprintf("/v1/attendance/today/%d", emp.ID))
	wantStatus(t, resp, http.StatusOK)
	rec := decode[attendance.Record](t, resp)
	if rec.EmployeeID != emp.ID || rec.CheckOut != nil {
		t.Fatalf("unexpected record %+v", rec)
	}

	resp = env.api.post("/v1/attendance/check", map[string]any{"employee_id": emp.ID})
	wantStatus(t, resp, http.StatusOK)
	if res := decode[attendance.CheckResult](t, resp); res.Type != attendance.CheckedOut {
		t.Fatalf("expected %s, got %s", attendance.CheckedOut, res.Type)
	}

	resp = env.api.get("/v1/attendance/week/pam@corp.test")
	wantStatus(t, resp, http.StatusOK)
	week := decode[[]attendance.DayView](t, resp)
	if len(week) != 1 || week[0].CheckOut == "" {
		t.Fatalf("unexpected week %+v", week)
	}

	// Unknown employee surfaces as 404.
	resp = env.api.post("/v1/attendance/check", map[string]any{"employee_id": 9999})
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestAPIFaceMatchDisabled(t *testing.T) {
	env := newTestAPI(t)
	resp := env.api.post("/v1/attendance/face-match", map[string]any{"image": "aGVsbG8="})
	wantStatus(t, resp, http.StatusServiceUnavailable)
	resp.Body.Close()
}

func TestAPILoginAndOTP(t *testing.T) {
	env := newTestAPI(t)

	// Onboarding provisions a login with the default password.
	resp := env.api.post("/v1/employees", map[string]any{
		"full_name": "Lina Lee", "email": "lina@corp.test", "role": "admin",
	})
	wantStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = env.api.post("/v1/auth/login", map[string]any{
		"email": "lina@corp.test", "password": directory.DefaultOnboardPassword,
	})
	wantStatus(t, resp, http.StatusOK)
	login := decode[struct {
		Email    string             `json:"email"`
		Role     string             `json:"role"`
		Employee directory.Employee `json:"employee"`
	}](t, resp)
	if login.Role != "admin" || login.Employee.FullName != "Lina Lee" {
		t.Fatalf("unexpected login payload %+v", login)
	}

	resp = env.api.post("/v1/auth/login", map[string]any{
		"email": "lina@corp.test", "password": "wrong",
	})
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	// OTP round trip; the code travels by mail only.
	resp = env.api.post("/v1/auth/otp/send", map[string]any{"email": "lina@corp.test"})
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	if len(env.mails.Sent()) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(env.mails.Sent()))
	}

	otp, err := env.creds.LatestOTP(t.Context(), "lina@corp.test")
	if err != nil {
		t.Fatalf("latest otp: %v", err)
	}
	resp = env.api.post("/v1/auth/otp/verify", map[string]any{
		"email": "lina@corp.test", "code": "000000",
	})
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	// Token issuance needs a signing secret.
	t.Setenv("PEOPLEDESK_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()
	resp = env.api.post("/v1/auth/otp/verify", map[string]any{
		"email": "lina@corp.test", "code": otp.Code,
	})
	wantStatus(t, resp, http.StatusOK)
	verified := decode[struct {
		Token string `json:"token"`
	}](t, resp)
	if verified.Token == "" {
		t.Fatalf("expected a session token")
	}
}

func TestAPIValidationErrors(t *testing.T) {
	env := newTestAPI(t)

	// Unknown fields are rejected.
	resp := env.api.post("/v1/employees", map[string]any{
		"full_name": "X", "email": "x@corp.test", "surprise": true,
	})
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = env.api.post("/v1/employees", map[string]any{"full_name": "No Email"})
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = env.api.post("/v1/shared-files", map[string]any{
		"file_name": "x", "file_url": "/x", "target_audience": "everyone", "created_by": 1,
	})
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = env.api.get("/v1/employees/abc")
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = env.api.get("/v1/nope")
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestAPIEnforcesAuth(t *testing.T) {
	// The auth wrapper is chosen when the handler chain is built, so the
	// secret must exist before the server does.
	t.Setenv("PEOPLEDESK_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	dir := directory.NewInMemory(nil)
	api := New(Config{
		Version:   "test",
		Directory: dir,
		Stream:    stream.New(),
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	client := &apiClient{t: t, baseURL: srv.URL, client: srv.Client()}

	resp := client.get("/v1/employees")
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	// Public paths stay open.
	resp = client.get("/healthz")
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	token, err := auth.GenerateToken("lina@corp.test", []string{"admin"}, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	client.token = token
	resp = client.get("/v1/employees")
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}
