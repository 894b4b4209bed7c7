package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"restaurant-pos/backend/internal/auth"
	authhandler "restaurant-pos/backend/internal/auth/handler"
	"restaurant-pos/backend/internal/employee/domain"
	"restaurant-pos/backend/internal/security"
)

type sessionStore struct {
	mu sync.Mutex
	e  *domain.Employee
}

func (s *sessionStore) GetActiveByID(ctx context.Context, employeeID string) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.e == nil || s.e.EmployeeID != employeeID || !s.e.IsActive {
		return nil, nil
	}
	e2 := *s.e
	return &e2, nil
}

func (s *sessionStore) GetBySessionToken(ctx context.Context, token string) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.e == nil || s.e.CurrentSessionToken == nil || *s.e.CurrentSessionToken != token {
		return nil, nil
	}
	e2 := *s.e
	return &e2, nil
}

func (s *sessionStore) UpdateLockout(ctx context.Context, employeeID string, failedAttempts int, lockedUntil *time.Time) error {
	return nil
}

func (s *sessionStore) BindSession(ctx context.Context, employeeID, token, terminal string, at time.Time, prevToken *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.e.CurrentSessionToken = &token
	s.e.LoggedInTerminal = &terminal
	s.e.LastActivity = &at
	return true, nil
}

func (s *sessionStore) TouchSession(ctx context.Context, token string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.e == nil || s.e.CurrentSessionToken == nil || *s.e.CurrentSessionToken != token {
		return false, nil
	}
	s.e.LastActivity = &at
	return true, nil
}

func (s *sessionStore) ClearSession(ctx context.Context, employeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.e.CurrentSessionToken = nil
	s.e.LoggedInTerminal = nil
	s.e.LastActivity = nil
	return nil
}

func loggedInStore(t *testing.T, token string) *sessionStore {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash PIN: %v", err)
	}
	terminal := "REG01"
	now := time.Now().UTC()
	return &sessionStore{e: &domain.Employee{
		EmployeeID:          "1234567",
		PINHash:             string(hash),
		Role:                domain.RoleCashier,
		FirstName:           "Casey",
		LastName:            "Nguyen",
		IsActive:            true,
		CurrentSessionToken: &token,
		LoggedInTerminal:    &terminal,
		LastActivity:        &now,
	}}
}

func testAuthService(store *sessionStore) *auth.Service {
	return auth.NewService(
		store,
		security.NewHasher(bcrypt.MinCost),
		auth.NewLockoutPolicy(store, 4, 15*time.Minute),
		auth.NewRegistry(store),
		auth.Liveness{Window: 6 * time.Minute},
		nil,
	)
}

func TestSessionAuthMiddlewareInjectsUser(t *testing.T) {
	store := loggedInStore(t, "tok-123")
	mw := SessionAuthMiddleware(testAuthService(store))

	var user auth.UserInfo
	var found bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, found = UserFromContext(r.Context())
	})

	r := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	r.AddCookie(&http.Cookie{Name: authhandler.SessionCookieName, Value: "tok-123"})
	w := httptest.NewRecorder()
	mw(next).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !found {
		t.Fatal("user not injected into context")
	}
	if user.EmployeeID != "1234567" {
		t.Fatalf("employee = %q", user.EmployeeID)
	}
}

func TestSessionAuthMiddlewareRejectsMissingCookie(t *testing.T) {
	mw := SessionAuthMiddleware(testAuthService(loggedInStore(t, "tok-123")))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached without a session")
	})

	r := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	w := httptest.NewRecorder()
	mw(next).ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "NO_SESSION" {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestSessionAuthMiddlewareRejectsUnknownToken(t *testing.T) {
	mw := SessionAuthMiddleware(testAuthService(loggedInStore(t, "tok-123")))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached with an unknown token")
	})

	r := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	r.AddCookie(&http.Cookie{Name: authhandler.SessionCookieName, Value: "stale"})
	w := httptest.NewRecorder()
	mw(next).ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "SESSION_NOT_FOUND" {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestSessionAuthMiddlewarePassesOptions(t *testing.T) {
	mw := SessionAuthMiddleware(testAuthService(loggedInStore(t, "tok-123")))

	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	r := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	w := httptest.NewRecorder()
	mw(next).ServeHTTP(w, r)

	if !reached {
		t.Fatal("OPTIONS preflight blocked by session middleware")
	}
}
