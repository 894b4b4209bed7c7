package auth

import (
	"context"
	"math"
	"time"

	"restaurant-pos/backend/internal/employee/domain"
)

// LockoutStore is the slice of the employee store the lockout policy writes
// through. The policy is the sole writer of failed_attempts and locked_until.
type LockoutStore interface {
	UpdateLockout(ctx context.Context, employeeID string, failedAttempts int, lockedUntil *time.Time) error
}

// LockoutPolicy tracks failed-attempt counts and lock expiry per account.
// Lock expiry is lazy: it is evaluated on the next access rather than swept
// by a background job, so the check stays O(1) and self-healing.
type LockoutPolicy struct {
	store     LockoutStore
	threshold int
	duration  time.Duration
}

// NewLockoutPolicy returns a policy that locks a non-admin account for
// duration once failed attempts reach threshold.
func NewLockoutPolicy(store LockoutStore, threshold int, duration time.Duration) *LockoutPolicy {
	return &LockoutPolicy{store: store, threshold: threshold, duration: duration}
}

// LockoutStatus is the outcome of a lockout gate check.
type LockoutStatus struct {
	Locked           bool
	RemainingMinutes int
}

// Check evaluates the lockout gate for e at now. An expired lock is cleared in
// place (both in the store and on e) and reported as not locked. A live lock
// reports the ceiling-rounded minutes remaining.
func (p *LockoutPolicy) Check(ctx context.Context, e *domain.Employee, now time.Time) (LockoutStatus, error) {
	if e.LockedUntil == nil {
		return LockoutStatus{}, nil
	}
	if now.After(*e.LockedUntil) {
		if err := p.store.UpdateLockout(ctx, e.EmployeeID, 0, nil); err != nil {
			return LockoutStatus{}, err
		}
		e.FailedAttempts = 0
		e.LockedUntil = nil
		return LockoutStatus{}, nil
	}
	remaining := int(math.Ceil(e.LockedUntil.Sub(now).Minutes()))
	return LockoutStatus{Locked: true, RemainingMinutes: remaining}, nil
}

// RecordSuccess resets the failed-attempt count after a valid credential.
func (p *LockoutPolicy) RecordSuccess(ctx context.Context, e *domain.Employee) error {
	if err := p.store.UpdateLockout(ctx, e.EmployeeID, 0, nil); err != nil {
		return err
	}
	e.FailedAttempts = 0
	return nil
}

// RecordFailure increments the failed-attempt count, locking the account when
// the count reaches the threshold. Admin accounts never lock: an operator must
// always be able to recover the system, whatever the attempt count.
func (p *LockoutPolicy) RecordFailure(ctx context.Context, e *domain.Employee, now time.Time) error {
	attempts := e.FailedAttempts + 1
	var lockedUntil *time.Time
	if attempts >= p.threshold && e.Role != domain.RoleAdmin {
		until := now.Add(p.duration)
		lockedUntil = &until
	}
	if err := p.store.UpdateLockout(ctx, e.EmployeeID, attempts, lockedUntil); err != nil {
		return err
	}
	e.FailedAttempts = attempts
	e.LockedUntil = lockedUntil
	return nil
}
