package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"restaurant-pos/backend/internal/employee/domain"
	"restaurant-pos/backend/internal/security"
)

// memEmployeeStore backs the auth service in tests. It implements Store,
// LockoutStore, and SessionStore over a single map, matching the row-level
// semantics of the Postgres repository: lookups return copies, writes go to
// the stored row, BindSession is a compare-and-swap on the stored token.
type memEmployeeStore struct {
	mu   sync.Mutex
	byID map[string]*domain.Employee
}

func newMemEmployeeStore(employees ...*domain.Employee) *memEmployeeStore {
	s := &memEmployeeStore{byID: make(map[string]*domain.Employee)}
	for _, e := range employees {
		e2 := *e
		s.byID[e.EmployeeID] = &e2
	}
	return s
}

func (s *memEmployeeStore) GetActiveByID(ctx context.Context, employeeID string) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[employeeID]
	if !ok || !e.IsActive {
		return nil, nil
	}
	e2 := *e
	return &e2, nil
}

func (s *memEmployeeStore) GetBySessionToken(ctx context.Context, token string) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.byID {
		if e.CurrentSessionToken != nil && *e.CurrentSessionToken == token {
			e2 := *e
			return &e2, nil
		}
	}
	return nil, nil
}

func (s *memEmployeeStore) UpdateLockout(ctx context.Context, employeeID string, failedAttempts int, lockedUntil *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.byID[employeeID]; ok {
		e.FailedAttempts = failedAttempts
		e.LockedUntil = lockedUntil
	}
	return nil
}

func (s *memEmployeeStore) BindSession(ctx context.Context, employeeID, token, terminal string, at time.Time, prevToken *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[employeeID]
	if !ok {
		return false, nil
	}
	if !tokensEqual(e.CurrentSessionToken, prevToken) {
		return false, nil
	}
	e.CurrentSessionToken = &token
	e.LoggedInTerminal = &terminal
	e.LastActivity = &at
	return true, nil
}

func (s *memEmployeeStore) TouchSession(ctx context.Context, token string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.byID {
		if e.CurrentSessionToken != nil && *e.CurrentSessionToken == token {
			e.LastActivity = &at
			return true, nil
		}
	}
	return false, nil
}

func (s *memEmployeeStore) ClearSession(ctx context.Context, employeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.byID[employeeID]; ok {
		e.CurrentSessionToken = nil
		e.LoggedInTerminal = nil
		e.LastActivity = nil
	}
	return nil
}

func tokensEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

const (
	testEmployeeID = "1234567"
	testPIN        = "1234"
	testAdminID    = "9999999"
)

func testEmployee(t *testing.T, role domain.Role) *domain.Employee {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPIN), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash PIN: %v", err)
	}
	id := testEmployeeID
	if role == domain.RoleAdmin {
		id = testAdminID
	}
	return &domain.Employee{
		EmployeeID: id,
		PINHash:    string(hash),
		Role:       role,
		FirstName:  "Casey",
		LastName:   "Nguyen",
		IsActive:   true,
	}
}

// testService wires a Service over the fake store with a controllable clock.
// Advance the clock through the returned pointer.
func testService(t *testing.T, store *memEmployeeStore) (*Service, *time.Time) {
	t.Helper()
	svc := NewService(
		store,
		security.NewHasher(bcrypt.MinCost),
		NewLockoutPolicy(store, 4, 15*time.Minute),
		NewRegistry(store),
		Liveness{Window: 6 * time.Minute},
		nil,
	)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, &now
}

func failureCode(t *testing.T, err error) FailureCode {
	t.Helper()
	if err == nil {
		t.Fatal("expected a failure, got nil")
	}
	f, ok := AsFailure(err)
	if !ok {
		t.Fatalf("expected *Failure, got %T: %v", err, err)
	}
	return f.Code
}

func TestLoginSuccess(t *testing.T) {
	store := newMemEmployeeStore(testEmployee(t, domain.RoleCashier))
	svc, _ := testService(t, store)

	res, err := svc.Login(context.Background(), testEmployeeID, testPIN, "REG01")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected a session token")
	}
	if res.Terminal != "REG01" {
		t.Fatalf("terminal = %q, want REG01", res.Terminal)
	}
	if res.User.EmployeeID != testEmployeeID || res.User.FirstName != "Casey" {
		t.Fatalf("unexpected user info: %+v", res.User)
	}

	e, _ := store.GetActiveByID(context.Background(), testEmployeeID)
	if e.CurrentSessionToken == nil || *e.CurrentSessionToken != res.Token {
		t.Fatal("session token not persisted")
	}
	if e.LoggedInTerminal == nil || *e.LoggedInTerminal != "REG01" {
		t.Fatal("terminal not persisted")
	}
}

func TestLoginUnknownEmployee(t *testing.T) {
	svc, _ := testService(t, newMemEmployeeStore())

	_, err := svc.Login(context.Background(), "0000000", testPIN, "REG01")
	if code := failureCode(t, err); code != CodeEmployeeNotFound {
		t.Fatalf("code = %s, want %s", code, CodeEmployeeNotFound)
	}
}

func TestLoginInactiveEmployee(t *testing.T) {
	e := testEmployee(t, domain.RoleCashier)
	e.IsActive = false
	svc, _ := testService(t, newMemEmployeeStore(e))

	_, err := svc.Login(context.Background(), testEmployeeID, testPIN, "REG01")
	if code := failureCode(t, err); code != CodeEmployeeNotFound {
		t.Fatalf("code = %s, want %s", code, CodeEmployeeNotFound)
	}
}

func TestLoginWrongPINIncrementsFailedAttempts(t *testing.T) {
	store := newMemEmployeeStore(testEmployee(t, domain.RoleCashier))
	svc, _ := testService(t, store)

	_, err := svc.Login(context.Background(), testEmployeeID, "0000", "REG01")
	if code := failureCode(t, err); code != CodeInvalidPIN {
		t.Fatalf("code = %s, want %s", code, CodeInvalidPIN)
	}

	e, _ := store.GetActiveByID(context.Background(), testEmployeeID)
	if e.FailedAttempts != 1 {
		t.Fatalf("failed_attempts = %d, want 1", e.FailedAttempts)
	}
	if e.LockedUntil != nil {
		t.Fatal("account locked below threshold")
	}
}

func TestLockoutAfterThreshold(t *testing.T) {
	store := newMemEmployeeStore(testEmployee(t, domain.RoleCashier))
	svc, clock := testService(t, store)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.Login(ctx, testEmployeeID, "0000", "REG01")
		if code := failureCode(t, err); code != CodeInvalidPIN {
			t.Fatalf("attempt %d: code = %s, want %s", i+1, code, CodeInvalidPIN)
		}
	}

	e, _ := store.GetActiveByID(ctx, testEmployeeID)
	if e.LockedUntil == nil {
		t.Fatal("expected account locked after 4 failures")
	}

	// Correct PIN while locked still fails.
	_, err := svc.Login(ctx, testEmployeeID, testPIN, "REG01")
	f, _ := AsFailure(err)
	if f == nil || f.Code != CodeAccountLocked {
		t.Fatalf("login while locked: %v, want %s", err, CodeAccountLocked)
	}
	if f.Message != "Account locked for 15 more minutes" {
		t.Fatalf("message = %q", f.Message)
	}

	// Past the window the lock expires lazily and the counter resets.
	*clock = clock.Add(16 * time.Minute)
	if _, err := svc.Login(ctx, testEmployeeID, testPIN, "REG01"); err != nil {
		t.Fatalf("login after lock expiry: %v", err)
	}
	e, _ = store.GetActiveByID(ctx, testEmployeeID)
	if e.FailedAttempts != 0 || e.LockedUntil != nil {
		t.Fatalf("lockout state not reset: attempts=%d locked=%v", e.FailedAttempts, e.LockedUntil)
	}
}

func TestAdminNeverLocks(t *testing.T) {
	store := newMemEmployeeStore(testEmployee(t, domain.RoleAdmin))
	svc, _ := testService(t, store)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := svc.Login(ctx, testAdminID, "0000", "REG01")
		if code := failureCode(t, err); code != CodeInvalidPIN {
			t.Fatalf("attempt %d: code = %s, want %s", i+1, code, CodeInvalidPIN)
		}
	}

	e, _ := store.GetActiveByID(ctx, testAdminID)
	if e.LockedUntil != nil {
		t.Fatal("admin account must never lock")
	}
	if e.FailedAttempts != 10 {
		t.Fatalf("failed_attempts = %d, want 10", e.FailedAttempts)
	}

	if _, err := svc.Login(ctx, testAdminID, testPIN, "REG01"); err != nil {
		t.Fatalf("admin login with correct PIN: %v", err)
	}
}

func TestSuccessResetsFailedAttempts(t *testing.T) {
	store := newMemEmployeeStore(testEmployee(t, domain.RoleCashier))
	svc, _ := testService(t, store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = svc.Login(ctx, testEmployeeID, "0000", "REG01")
	}
	if _, err := svc.Login(ctx, testEmployeeID, testPIN, "REG01"); err != nil {
		t.Fatalf("login: %v", err)
	}

	e, _ := store.GetActiveByID(ctx, testEmployeeID)
	if e.FailedAttempts != 0 {
		t.Fatalf("failed_attempts = %d, want 0 after success", e.FailedAttempts)
	}
}

func TestConflictWithLiveSession(t *testing.T) {
	store := newMemEmployeeStore(testEmployee(t, domain.RoleCashier))
	svc, clock := testService(t, store)
	ctx := context.Background()

	if _, err := svc.Login(ctx, testEmployeeID, testPIN, "REG01"); err != nil {
		t.Fatalf("first login: %v", err)
	}

	// Within the liveness window the first session holds the account.
	*clock = clock.Add(3 * time.Minute)
	_, err := svc.Login(ctx, testEmployeeID, testPIN, "REG02")
	f, _ := AsFailure(err)
	if f == nil || f.Code != CodeAlreadyLoggedIn {
		t.Fatalf("second login: %v, want %s", err, CodeAlreadyLoggedIn)
	}
	if f.ConflictingTerminal != "REG01" {
		t.Fatalf("conflicting terminal = %q, want REG01", f.ConflictingTerminal)
	}
	if f.Message != "Already logged into REG01" {
		t.Fatalf("message = %q", f.Message)
	}
}

func TestTakeoverOfStaleSession(t *testing.T) {
	store := newMemEmployeeStore(testEmployee(t, domain.RoleCashier))
	svc, clock := testService(t, store)
	ctx := context.Background()

	first, err := svc.Login(ctx, testEmployeeID, testPIN, "REG01")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}

	// Past the liveness window the session is dead and a new terminal takes over.
	*clock = clock.Add(7 * time.Minute)
	second, err := svc.Login(ctx, testEmployeeID, testPIN, "REG02")
	if err != nil {
		t.Fatalf("takeover login: %v", err)
	}
	if second.Token == first.Token {
		t.Fatal("takeover must issue a fresh token")
	}

	// The displaced token is gone.
	if _, err := svc.Validate(ctx, first.Token); err == nil {
		t.Fatal("old token still validates after takeover")
	}
	res, err := svc.Validate(ctx, second.Token)
	if err != nil {
		t.Fatalf("validate new token: %v", err)
	}
	if res.Terminal != "REG02" {
		t.Fatalf("terminal = %q, want REG02", res.Terminal)
	}
}

func TestSameTerminalReloginReplacesToken(t *testing.T) {
	store := newMemEmployeeStore(testEmployee(t, domain.RoleCashier))
	svc, _ := testService(t, store)
	ctx := context.Background()

	first, err := svc.Login(ctx, testEmployeeID, testPIN, "REG01")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := svc.Login(ctx, testEmployeeID, testPIN, "REG01")
	if err != nil {
		t.Fatalf("re-login on same terminal: %v", err)
	}
	if second.Token == first.Token {
		t.Fatal("re-login must replace the token")
	}
	if _, err := svc.Validate(ctx, first.Token); err == nil {
		t.Fatal("old token still validates after re-login")
	}
}

func TestValidateRefreshesActivity(t *testing.T) {
	store := newMemEmployeeStore(testEmployee(t, domain.RoleCashier))
	svc, clock := testService(t, store)
	ctx := context.Background()

	res, err := svc.Login(ctx, testEmployeeID, testPIN, "REG01")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Repeated validations inside the window keep the session alive
	// indefinitely because each one refreshes last_activity.
	for i := 0; i < 5; i++ {
		*clock = clock.Add(5 * time.Minute)
		if _, err := svc.Validate(ctx, res.Token); err != nil {
			t.Fatalf("validate round %d: %v", i+1, err)
		}
	}
}

func TestValidateExpiredSession(t *testing.T) {
	store := newMemEmployeeStore(testEmployee(t, domain.RoleCashier))
	svc, clock := testService(t, store)
	ctx := context.Background()

	res, err := svc.Login(ctx, testEmployeeID, testPIN, "REG01")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	*clock = clock.Add(7 * time.Minute)
	_, err = svc.Validate(ctx, res.Token)
	if code := failureCode(t, err); code != CodeSessionExpired {
		t.Fatalf("code = %s, want %s", code, CodeSessionExpired)
	}

	// Expiry clears the session: a second validate sees no session at all.
	_, err = svc.Validate(ctx, res.Token)
	if code := failureCode(t, err); code != CodeSessionNotFound {
		t.Fatalf("code = %s, want %s", code, CodeSessionNotFound)
	}
}

func TestValidateUnknownToken(t *testing.T) {
	svc, _ := testService(t, newMemEmployeeStore(testEmployee(t, domain.RoleCashier)))

	_, err := svc.Validate(context.Background(), "deadbeef")
	if code := failureCode(t, err); code != CodeSessionNotFound {
		t.Fatalf("code = %s, want %s", code, CodeSessionNotFound)
	}
}

func TestHeartbeatKeepsSessionAlive(t *testing.T) {
	store := newMemEmployeeStore(testEmployee(t, domain.RoleCashier))
	svc, clock := testService(t, store)
	ctx := context.Background()

	res, err := svc.Login(ctx, testEmployeeID, testPIN, "REG01")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	*clock = clock.Add(5 * time.Minute)
	if err := svc.Heartbeat(ctx, res.Token); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	// 5 more minutes after the heartbeat is still inside the window.
	*clock = clock.Add(5 * time.Minute)
	if _, err := svc.Validate(ctx, res.Token); err != nil {
		t.Fatalf("validate after heartbeat: %v", err)
	}
}

func TestHeartbeatUnknownToken(t *testing.T) {
	svc, _ := testService(t, newMemEmployeeStore())

	err := svc.Heartbeat(context.Background(), "deadbeef")
	if code := failureCode(t, err); code != CodeSessionNotFound {
		t.Fatalf("code = %s, want %s", code, CodeSessionNotFound)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	store := newMemEmployeeStore(testEmployee(t, domain.RoleCashier))
	svc, _ := testService(t, store)
	ctx := context.Background()

	res, err := svc.Login(ctx, testEmployeeID, testPIN, "REG01")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(ctx, res.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := svc.Logout(ctx, res.Token); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if err := svc.Logout(ctx, "never-issued"); err != nil {
		t.Fatalf("logout with unknown token: %v", err)
	}

	e, _ := store.GetActiveByID(ctx, testEmployeeID)
	if e.HasSession() {
		t.Fatal("session survived logout")
	}
}

func TestLogoutThenLoginFromAnotherTerminal(t *testing.T) {
	store := newMemEmployeeStore(testEmployee(t, domain.RoleCashier))
	svc, _ := testService(t, store)
	ctx := context.Background()

	res, err := svc.Login(ctx, testEmployeeID, testPIN, "REG01")
	if err != nil {
		t.Fatalf("login REG01: %v", err)
	}
	if err := svc.Logout(ctx, res.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	// No conflict after logout even inside the liveness window.
	second, err := svc.Login(ctx, testEmployeeID, testPIN, "REG02")
	if err != nil {
		t.Fatalf("login REG02 after logout: %v", err)
	}
	if second.Terminal != "REG02" {
		t.Fatalf("terminal = %q, want REG02", second.Terminal)
	}
}

func TestBindLosesRaceToConcurrentLogin(t *testing.T) {
	store := newMemEmployeeStore(testEmployee(t, domain.RoleCashier))
	ctx := context.Background()

	// Another login lands between this login's conflict check and its bind:
	// simulate by moving the stored token under a stale snapshot.
	stolen := "winner-token"
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	if ok, _ := store.BindSession(ctx, testEmployeeID, stolen, "REG02", at, nil); !ok {
		t.Fatal("setup bind failed")
	}
	e, _ := store.GetActiveByID(ctx, testEmployeeID)
	e.CurrentSessionToken = nil // stale snapshot, as if read before the winner bound
	e.LoggedInTerminal = nil
	e.LastActivity = nil

	_, err := NewRegistry(store).Bind(ctx, e, "REG01", at)
	if err != ErrSessionRaced {
		t.Fatalf("bind = %v, want ErrSessionRaced", err)
	}

	// The winner's session is untouched.
	winner, _ := store.GetBySessionToken(ctx, stolen)
	if winner == nil || *winner.LoggedInTerminal != "REG02" {
		t.Fatal("winning session was disturbed by the losing bind")
	}
}
