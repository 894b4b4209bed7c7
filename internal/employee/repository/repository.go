// Package repository persists employees and their embedded session state.
package repository

import (
	"context"
	"time"

	"restaurant-pos/backend/internal/employee/domain"
)

// Repository is the employee store. Lookups return nil (not an error) for
// missing rows; errors are database failures only.
//
// Session writes go through BindSession, TouchSession, and ClearSession so the
// triple stays atomic; lockout writes go through UpdateLockout. BindSession is
// a compare-and-swap on the previously observed token, which serializes racing
// logins for the same employee at the row level.
type Repository interface {
	GetActiveByID(ctx context.Context, employeeID string) (*domain.Employee, error)
	GetBySessionToken(ctx context.Context, token string) (*domain.Employee, error)
	Create(ctx context.Context, e *domain.Employee) error

	UpdateLockout(ctx context.Context, employeeID string, failedAttempts int, lockedUntil *time.Time) error

	// BindSession installs the session triple for employeeID, but only if the
	// row still holds prevToken (nil meaning no session). Returns false when
	// the row moved underneath the caller and nothing was written.
	BindSession(ctx context.Context, employeeID, token, terminal string, at time.Time, prevToken *string) (bool, error)

	// TouchSession updates last_activity for the row holding token. Returns
	// false when no row holds that token.
	TouchSession(ctx context.Context, token string, at time.Time) (bool, error)

	ClearSession(ctx context.Context, employeeID string) error
}
