package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"restaurant-pos/backend/internal/audit/domain"
)

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
	err     error
}

func (r *memAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func TestLogEventRecordsEntry(t *testing.T) {
	repo := &memAuditRepo{}
	l := NewLogger(repo, func(context.Context) string { return "10.0.0.7" })

	l.LogEvent(context.Background(), "1234567", ActionLoginSuccess, "REG01", "")

	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.ID == "" {
		t.Error("entry has no ID")
	}
	if e.EmployeeID != "1234567" || e.Action != ActionLoginSuccess || e.Terminal != "REG01" {
		t.Errorf("entry = %+v", e)
	}
	if e.IP != "10.0.0.7" {
		t.Errorf("IP = %q, want 10.0.0.7", e.IP)
	}
	if e.CreatedAt.IsZero() {
		t.Error("entry has no timestamp")
	}
}

func TestLogEventDefaultsIPWithoutExtractor(t *testing.T) {
	repo := &memAuditRepo{}
	l := NewLogger(repo, nil)

	l.LogEvent(context.Background(), "1234567", ActionLogout, "REG02", "")

	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	if repo.entries[0].IP != "unknown" {
		t.Errorf("IP = %q, want unknown", repo.entries[0].IP)
	}
}

func TestLogEventSwallowsRepoErrors(t *testing.T) {
	repo := &memAuditRepo{err: errors.New("db down")}
	l := NewLogger(repo, nil)

	// Must not panic or surface the error.
	l.LogEvent(context.Background(), "1234567", ActionLoginFailure, "REG01", "")
}
