package domain

import (
	"errors"
	"time"
)

// Employee is the persisted identity and security state for one employee.
// The session triple (CurrentSessionToken, LoggedInTerminal, LastActivity) is
// set and cleared together: either all three are present or none is.
type Employee struct {
	EmployeeID string
	PINHash    string
	Role       Role
	FirstName  string
	LastName   string
	IsActive   bool

	FailedAttempts int
	LockedUntil    *time.Time // nil when not locked

	CurrentSessionToken *string
	LoggedInTerminal    *string
	LastActivity        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
	RoleOther   Role = "other"
)

// HasSession reports whether the employee currently holds a session triple.
func (e *Employee) HasSession() bool {
	return e.CurrentSessionToken != nil && e.LoggedInTerminal != nil && e.LastActivity != nil
}

// Validate validates the employee for persistence. Returns an error describing the first validation failure.
func (e *Employee) Validate() error {
	if e.EmployeeID == "" {
		return errors.New("employee_id is required")
	}
	if e.PINHash == "" {
		return errors.New("pin_hash is required")
	}
	if e.Role == "" {
		e.Role = RoleCashier
	}
	return nil
}
