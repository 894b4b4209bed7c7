// Package handler exposes the auth service over HTTP with JSON bodies and an
// HttpOnly session cookie.
package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"restaurant-pos/backend/internal/auth"
)

// SessionCookieName is the cookie carrying the opaque session token. The
// cookie TTL is only the transport's outer bound; the 6-minute liveness
// window is what actually expires idle sessions.
const SessionCookieName = "session_token"

var (
	employeeIDPattern = regexp.MustCompile(`^\d{7}$`)
	pinPattern        = regexp.MustCompile(`^\d{4,7}$`)
)

// AuthHandler handles login, validate, heartbeat, and logout endpoints.
type AuthHandler struct {
	svc            *auth.Service
	cookieTTL      time.Duration
	secureCookies  bool
	validRegisters map[string]bool
	logins         metric.Int64Counter
	heartbeats     metric.Int64Counter
}

// NewAuthHandler returns an auth handler. validRegisters is the whitelist of
// terminal IDs a login may bind to; secureCookies should be true in production.
func NewAuthHandler(svc *auth.Service, cookieTTL time.Duration, secureCookies bool, validRegisters []string) *AuthHandler {
	registers := make(map[string]bool, len(validRegisters))
	for _, reg := range validRegisters {
		registers[reg] = true
	}
	meter := otel.Meter("restaurant-pos/backend/internal/auth/handler")
	logins, err := meter.Int64Counter("pos.auth.logins",
		metric.WithDescription("Login attempts by outcome"))
	if err != nil {
		log.Printf("auth handler: login counter: %v", err)
	}
	heartbeats, err := meter.Int64Counter("pos.auth.heartbeats",
		metric.WithDescription("Heartbeats by outcome"))
	if err != nil {
		log.Printf("auth handler: heartbeat counter: %v", err)
	}
	return &AuthHandler{
		svc:            svc,
		cookieTTL:      cookieTTL,
		secureCookies:  secureCookies,
		validRegisters: registers,
		logins:         logins,
		heartbeats:     heartbeats,
	}
}

// LoginRequest is the login request body.
type LoginRequest struct {
	EmployeeID string `json:"employeeId"`
	PIN        string `json:"pin"`
	RegisterID string `json:"registerId"`
}

// LoginResponse is the successful login response.
type LoginResponse struct {
	Success   bool          `json:"success"`
	User      auth.UserInfo `json:"user"`
	Terminal  string        `json:"terminal"`
	LoginTime time.Time     `json:"loginTime"`
	Message   string        `json:"message"`
}

// FailureResponse is the error body for auth endpoints.
type FailureResponse struct {
	Success             bool   `json:"success"`
	Error               string `json:"error"`
	Message             string `json:"message"`
	ConflictingTerminal string `json:"conflictingTerminal,omitempty"`
}

// ValidateUser is the employee projection returned by Validate, including the
// bound terminal.
type ValidateUser struct {
	auth.UserInfo
	Terminal string `json:"terminal"`
}

// Login authenticates an employee at a register and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, FailureResponse{
			Error: "MISSING_CREDENTIALS", Message: "Employee ID, PIN, and Register ID are required",
		})
		return
	}
	if req.EmployeeID == "" || req.PIN == "" || req.RegisterID == "" {
		writeJSON(w, http.StatusBadRequest, FailureResponse{
			Error: "MISSING_CREDENTIALS", Message: "Employee ID, PIN, and Register ID are required",
		})
		return
	}
	if !employeeIDPattern.MatchString(req.EmployeeID) {
		writeJSON(w, http.StatusBadRequest, FailureResponse{
			Error: "INVALID_EMPLOYEE_ID", Message: "Employee ID must be 7 digits",
		})
		return
	}
	if !pinPattern.MatchString(req.PIN) {
		writeJSON(w, http.StatusBadRequest, FailureResponse{
			Error: "INVALID_PIN", Message: "PIN must be 4-7 digits",
		})
		return
	}
	if !h.validRegisters[req.RegisterID] {
		writeJSON(w, http.StatusBadRequest, FailureResponse{
			Error: "INVALID_REGISTER", Message: "Unknown register ID",
		})
		return
	}

	result, err := h.svc.Login(r.Context(), req.EmployeeID, req.PIN, req.RegisterID)
	if err != nil {
		h.countLogin(r, failureCode(err))
		h.writeFailure(w, err)
		return
	}
	h.countLogin(r, "success")

	http.SetCookie(w, h.sessionCookie(result.Token, h.cookieTTL))
	writeJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		User:      result.User,
		Terminal:  result.Terminal,
		LoginTime: result.LoginTime,
		Message:   "Login successful",
	})
}

// Validate checks the session cookie and returns the logged-in employee.
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	token := h.sessionToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"valid": false, "error": "NO_SESSION", "message": "No session token found",
		})
		return
	}

	result, err := h.svc.Validate(r.Context(), token)
	if err != nil {
		f, ok := auth.AsFailure(err)
		if ok && f.Code == auth.CodeAuthenticationError {
			log.Printf("auth: validate: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"valid": false, "error": string(f.Code), "message": "Error validating session",
			})
			return
		}
		// Expired or unknown session: drop the cookie so the client re-logins.
		http.SetCookie(w, h.sessionCookie("", -time.Hour))
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"valid": false, "error": failureCode(err), "message": "Session invalid",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"user":  ValidateUser{UserInfo: result.User, Terminal: result.Terminal},
	})
}

// Heartbeat refreshes session activity. Failures are logged, not escalated:
// a missed heartbeat simply lets liveness expire the session naturally.
func (h *AuthHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	token := h.sessionToken(r)
	if token == "" {
		h.countHeartbeat(r, "no_session")
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false, "error": "NO_SESSION",
		})
		return
	}

	if err := h.svc.Heartbeat(r.Context(), token); err != nil {
		log.Printf("auth: heartbeat: %v", err)
		h.countHeartbeat(r, failureCode(err))
		status := http.StatusUnauthorized
		if f, ok := auth.AsFailure(err); ok && f.Code == auth.CodeAuthenticationError {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, map[string]any{
			"success": false, "error": failureCode(err),
		})
		return
	}

	h.countHeartbeat(r, "success")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true, "timestamp": time.Now().UTC(),
	})
}

// Logout clears the session and the cookie. Idempotent: a missing or unknown
// token still logs out successfully.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.sessionToken(r); token != "" {
		if err := h.svc.Logout(r.Context(), token); err != nil {
			log.Printf("auth: logout: %v", err)
			writeJSON(w, http.StatusInternalServerError, FailureResponse{
				Error: "LOGOUT_ERROR", Message: "Error during logout",
			})
			return
		}
	}

	http.SetCookie(w, h.sessionCookie("", -time.Hour))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true, "message": "Logged out successfully",
	})
}

// writeFailure maps an auth failure to the original controller's status codes:
// 401 for not-found/invalid-credential, 423 for locked, 409 for conflict,
// 500 for everything unexpected.
func (h *AuthHandler) writeFailure(w http.ResponseWriter, err error) {
	f, ok := auth.AsFailure(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, FailureResponse{
			Error: "SERVER_ERROR", Message: "Internal server error",
		})
		return
	}

	status := http.StatusUnauthorized
	switch f.Code {
	case auth.CodeEmployeeNotFound, auth.CodeInvalidPIN:
		status = http.StatusUnauthorized
	case auth.CodeAccountLocked:
		status = http.StatusLocked
	case auth.CodeAlreadyLoggedIn:
		status = http.StatusConflict
	default:
		log.Printf("auth: login: %v", err)
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, FailureResponse{
		Error:               string(f.Code),
		Message:             f.Message,
		ConflictingTerminal: f.ConflictingTerminal,
	})
}

func (h *AuthHandler) sessionToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *AuthHandler) sessionCookie(value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}

func (h *AuthHandler) countLogin(r *http.Request, outcome string) {
	if h.logins == nil {
		return
	}
	h.logins.Add(r.Context(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (h *AuthHandler) countHeartbeat(r *http.Request, outcome string) {
	if h.heartbeats == nil {
		return
	}
	h.heartbeats.Add(r.Context(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func failureCode(err error) string {
	if f, ok := auth.AsFailure(err); ok {
		return string(f.Code)
	}
	return "SERVER_ERROR"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("auth handler: encode response: %v", err)
	}
}
