package auth

import (
	"time"

	"restaurant-pos/backend/internal/employee/domain"
)

// Liveness derives whether a recorded session is still in active use from
// heartbeat recency. Staleness is never stored, only computed, so a client
// that crashes without logging out self-expires after one missed window and
// no reaper process is needed.
type Liveness struct {
	Window time.Duration
}

// Alive reports whether the employee's session has seen activity within the
// window as of now.
func (l Liveness) Alive(e *domain.Employee, now time.Time) bool {
	return e.LastActivity != nil && now.Sub(*e.LastActivity) <= l.Window
}
