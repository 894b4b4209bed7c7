// Package audit records security events (logins, lockouts, logouts) to a
// persistent trail. Writes are best-effort and never fail the caller.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"restaurant-pos/backend/internal/audit/domain"
	auditrepo "restaurant-pos/backend/internal/audit/repository"
)

// Audit actions emitted by the auth pipeline.
const (
	ActionLoginSuccess   = "login_success"
	ActionLoginFailure   = "login_failure"
	ActionAccountLocked  = "account_locked"
	ActionSessionExpired = "session_expired"
	ActionLogout         = "logout"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event. LogEvent is best-effort: failures
// are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, employeeID, action, terminal, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, employeeID, action, terminal, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	entry := &domain.AuditLog{
		ID:         uuid.New().String(),
		EmployeeID: employeeID,
		Action:     action,
		Terminal:   terminal,
		IP:         ip,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s for %s: %v", action, employeeID, err)
	}
}
