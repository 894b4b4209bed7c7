package domain

import "time"

// AuditLog is one persisted security event: who did what, at which terminal,
// from which client IP.
type AuditLog struct {
	ID         string
	EmployeeID string
	Action     string
	Terminal   string
	IP         string
	Metadata   string
	CreatedAt  time.Time
}
