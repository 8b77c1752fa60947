package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"peopledesk.org/internal/audit"
	"peopledesk.org/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpRequest struct {
	Email string `json:"email"`
	Code  string `json:"code,omitempty"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	cred, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	resp := map[string]any{
		"email": cred.Email,
		"role":  cred.Role,
	}
	// The login row may exist without a directory profile; that is not an
	// error, the client just gets the bare credential identity.
	if emp, err := a.directory.GetByEmail(r.Context(), cred.Email); err == nil {
		resp["employee"] = emp
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{"email": cred.Email})
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req otpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.auth.SendOTP(r.Context(), req.Email); err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.otp.sent", map[string]any{"email": strings.ToLower(req.Email)})
	writeJSON(w, http.StatusOK, map[string]any{"sent": true})
}

func (a *API) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req otpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.auth.VerifyOTP(r.Context(), req.Email, req.Code)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.otp.verified", map[string]any{"email": strings.ToLower(req.Email)})
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
	})
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	email := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	if email == "" || strings.Contains(email, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	emp, err := a.directory.GetByEmail(r.Context(), email)
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, auth.ErrOTPNotFound):
		writeError(w, r, http.StatusNotFound, "no code issued for this email")
	case errors.Is(err, auth.ErrOTPMismatch):
		writeError(w, r, http.StatusUnauthorized, "incorrect code")
	case errors.Is(err, auth.ErrOTPExpired):
		writeError(w, r, http.StatusUnauthorized, "code expired")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
