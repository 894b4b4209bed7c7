package auth

import (
	"context"
	"errors"
	"time"

	"restaurant-pos/backend/internal/employee/domain"
	"restaurant-pos/backend/internal/security"
)

// ErrSessionRaced is returned by Bind when a concurrent login replaced the
// session between the conflict check and the write.
var ErrSessionRaced = errors.New("session bind lost race with concurrent login")

// SessionStore is the slice of the employee store the registry writes through.
// The registry is the sole writer of the session triple.
type SessionStore interface {
	GetBySessionToken(ctx context.Context, token string) (*domain.Employee, error)
	BindSession(ctx context.Context, employeeID, token, terminal string, at time.Time, prevToken *string) (bool, error)
	TouchSession(ctx context.Context, token string, at time.Time) (bool, error)
	ClearSession(ctx context.Context, employeeID string) error
}

// Registry is the single source of truth for "who is logged in where": one
// session triple per employee, replaced wholesale on bind. Conflict resolution
// happens upstream in the orchestrator before Bind is called.
type Registry struct {
	store SessionStore
}

// NewRegistry returns a Registry writing through store.
func NewRegistry(store SessionStore) *Registry {
	return &Registry{store: store}
}

// Bind issues a fresh opaque token and installs it for e at terminal,
// replacing any prior session. The write is guarded by the token observed on
// e, so a login racing this one fails with ErrSessionRaced instead of
// silently stacking a second session.
func (r *Registry) Bind(ctx context.Context, e *domain.Employee, terminal string, now time.Time) (string, error) {
	token, err := security.NewSessionToken()
	if err != nil {
		return "", err
	}
	ok, err := r.store.BindSession(ctx, e.EmployeeID, token, terminal, now, e.CurrentSessionToken)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrSessionRaced
	}
	e.CurrentSessionToken = &token
	e.LoggedInTerminal = &terminal
	e.LastActivity = &now
	return token, nil
}

// Touch refreshes last_activity for the employee holding token. Reports false
// when no employee holds it; that is not an error.
func (r *Registry) Touch(ctx context.Context, token string, now time.Time) (bool, error) {
	return r.store.TouchSession(ctx, token, now)
}

// Clear nulls the session triple for e.
func (r *Registry) Clear(ctx context.Context, e *domain.Employee) error {
	if err := r.store.ClearSession(ctx, e.EmployeeID); err != nil {
		return err
	}
	e.CurrentSessionToken = nil
	e.LoggedInTerminal = nil
	e.LastActivity = nil
	return nil
}

// FindByToken returns the employee holding token, or nil.
func (r *Registry) FindByToken(ctx context.Context, token string) (*domain.Employee, error) {
	return r.store.GetBySessionToken(ctx, token)
}
