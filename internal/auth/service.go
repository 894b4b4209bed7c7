// Package auth implements terminal-bound employee authentication: the login
// state machine, single-active-session enforcement, brute-force lockout, and
// heartbeat-driven session liveness.
package auth

import (
	"context"
	"fmt"
	"time"

	"restaurant-pos/backend/internal/audit"
	"restaurant-pos/backend/internal/employee/domain"
	"restaurant-pos/backend/internal/security"
)

// Store is the employee store the auth service reads from. Session and
// lockout writes go through the Registry and LockoutPolicy respectively.
type Store interface {
	GetActiveByID(ctx context.Context, employeeID string) (*domain.Employee, error)
}

// UserInfo is the sanitized employee projection returned to callers. It never
// carries the PIN hash or lockout state.
type UserInfo struct {
	EmployeeID string      `json:"employeeId"`
	FirstName  string      `json:"firstName"`
	LastName   string      `json:"lastName"`
	Role       domain.Role `json:"role"`
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token     string
	User      UserInfo
	Terminal  string
	LoginTime time.Time
}

// ValidateResult is the outcome of a successful session validation.
type ValidateResult struct {
	User     UserInfo
	Terminal string
}

// Service composes the lockout policy, session registry, and liveness check
// into the login decision sequence, and owns validate/heartbeat/logout.
type Service struct {
	store    Store
	hasher   *security.Hasher
	lockout  *LockoutPolicy
	registry *Registry
	liveness Liveness
	audit    audit.AuditLogger // optional; nil disables audit
	now      func() time.Time
}

// NewService returns a Service with the given collaborators. auditLogger may be nil.
func NewService(
	store Store,
	hasher *security.Hasher,
	lockout *LockoutPolicy,
	registry *Registry,
	liveness Liveness,
	auditLogger audit.AuditLogger,
) *Service {
	return &Service{
		store:    store,
		hasher:   hasher,
		lockout:  lockout,
		registry: registry,
		liveness: liveness,
		audit:    auditLogger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Login runs the login state machine for (employeeID, pin, terminal), strictly
// in order and short-circuiting on the first failure: lookup, lockout gate,
// credential check, session conflict resolution, issuance. Failed-attempt
// accounting committed before a later step fails is deliberately not rolled
// back; it is idempotent and eventually consistent with reality.
func (s *Service) Login(ctx context.Context, employeeID, pin, terminal string) (*LoginResult, error) {
	now := s.now()

	e, err := s.store.GetActiveByID(ctx, employeeID)
	if err != nil {
		return nil, internalFailure(err)
	}
	if e == nil {
		return nil, newFailure(CodeEmployeeNotFound, "Employee not found")
	}

	lock, err := s.lockout.Check(ctx, e, now)
	if err != nil {
		return nil, internalFailure(err)
	}
	if lock.Locked {
		return nil, newFailure(CodeAccountLocked,
			fmt.Sprintf("Account locked for %d more minutes", lock.RemainingMinutes))
	}

	if !s.hasher.Verify(e.PINHash, []byte(pin)) {
		if err := s.lockout.RecordFailure(ctx, e, now); err != nil {
			return nil, internalFailure(err)
		}
		action := audit.ActionLoginFailure
		if e.LockedUntil != nil {
			action = audit.ActionAccountLocked
		}
		s.auditEvent(ctx, e.EmployeeID, action, terminal, "")
		// No remaining-attempts count in the message: it would aid brute force.
		return nil, newFailure(CodeInvalidPIN, "Invalid PIN")
	}
	if err := s.lockout.RecordSuccess(ctx, e); err != nil {
		return nil, internalFailure(err)
	}

	if e.HasSession() && *e.LoggedInTerminal != terminal {
		if s.liveness.Alive(e, now) {
			conflicting := *e.LoggedInTerminal
			return nil, &Failure{
				Code:                CodeAlreadyLoggedIn,
				Message:             fmt.Sprintf("Already logged into %s", conflicting),
				ConflictingTerminal: conflicting,
			}
		}
		// Stale session: the previous terminal went quiet past the liveness
		// window, so this login takes the account over.
		if err := s.registry.Clear(ctx, e); err != nil {
			return nil, internalFailure(err)
		}
	}
	// Same-terminal re-login falls through: binding replaces the old token.

	token, err := s.registry.Bind(ctx, e, terminal, now)
	if err != nil {
		// Includes ErrSessionRaced: a concurrent login for this employee won
		// the row. The retry will observe the winner and report the conflict.
		return nil, internalFailure(err)
	}

	s.auditEvent(ctx, e.EmployeeID, audit.ActionLoginSuccess, terminal, "")
	return &LoginResult{
		Token:     token,
		User:      userInfo(e),
		Terminal:  terminal,
		LoginTime: now,
	}, nil
}

// Validate checks that token names a live session, refreshes its activity, and
// returns the sanitized employee plus the bound terminal.
func (s *Service) Validate(ctx context.Context, token string) (*ValidateResult, error) {
	now := s.now()

	e, err := s.registry.FindByToken(ctx, token)
	if err != nil {
		return nil, internalFailure(err)
	}
	if e == nil {
		return nil, newFailure(CodeSessionNotFound, "Session not found")
	}

	terminal := deref(e.LoggedInTerminal)
	if !s.liveness.Alive(e, now) {
		if err := s.registry.Clear(ctx, e); err != nil {
			return nil, internalFailure(err)
		}
		s.auditEvent(ctx, e.EmployeeID, audit.ActionSessionExpired, terminal, "")
		return nil, newFailure(CodeSessionExpired, "Session expired")
	}

	if _, err := s.registry.Touch(ctx, token, now); err != nil {
		return nil, internalFailure(err)
	}
	return &ValidateResult{User: userInfo(e), Terminal: terminal}, nil
}

// Heartbeat refreshes last_activity for token. It is purely a keep-alive and
// does not re-run the liveness or lockout pipeline. An unknown token is a
// reported failure with no state change.
func (s *Service) Heartbeat(ctx context.Context, token string) error {
	ok, err := s.registry.Touch(ctx, token, s.now())
	if err != nil {
		return internalFailure(err)
	}
	if !ok {
		return newFailure(CodeSessionNotFound, "Session not found")
	}
	return nil
}

// Logout clears the session holding token. Unknown tokens are treated as
// already logged out; logging out twice succeeds both times.
func (s *Service) Logout(ctx context.Context, token string) error {
	e, err := s.registry.FindByToken(ctx, token)
	if err != nil {
		return internalFailure(err)
	}
	if e == nil {
		return nil
	}
	terminal := deref(e.LoggedInTerminal)
	if err := s.registry.Clear(ctx, e); err != nil {
		return internalFailure(err)
	}
	s.auditEvent(ctx, e.EmployeeID, audit.ActionLogout, terminal, "")
	return nil
}

func (s *Service) auditEvent(ctx context.Context, employeeID, action, terminal, metadata string) {
	if s.audit == nil {
		return
	}
	s.audit.LogEvent(ctx, employeeID, action, terminal, metadata)
}

func userInfo(e *domain.Employee) UserInfo {
	return UserInfo{
		EmployeeID: e.EmployeeID,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Role:       e.Role,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
