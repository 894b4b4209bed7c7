package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"restaurant-pos/backend/internal/employee/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an employee repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const employeeColumns = `employee_id, pin_hash, role, first_name, last_name, is_active,
	failed_attempts, locked_until, current_session_token, logged_in_terminal, last_activity,
	created_at, updated_at`

// GetActiveByID returns the active employee for employeeID, or nil if not found
// or inactive. It returns an error only for database failures, not missing rows.
func (r *PostgresRepository) GetActiveByID(ctx context.Context, employeeID string) (*domain.Employee, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE employee_id = $1 AND is_active = TRUE`,
		employeeID)
	return scanEmployee(row)
}

// GetBySessionToken returns the active employee currently holding token, or nil
// if no row holds it.
func (r *PostgresRepository) GetBySessionToken(ctx context.Context, token string) (*domain.Employee, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE current_session_token = $1 AND is_active = TRUE`,
		token)
	return scanEmployee(row)
}

// Create persists the employee. The employee must have EmployeeID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Employee) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO employees (employee_id, pin_hash, role, first_name, last_name, is_active, failed_attempts, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.EmployeeID, e.PINHash, string(e.Role), e.FirstName, e.LastName, e.IsActive,
		e.FailedAttempts, e.CreatedAt, e.UpdatedAt)
	return err
}

// UpdateLockout writes the lockout pair for employeeID. lockedUntil nil clears the lock.
func (r *PostgresRepository) UpdateLockout(ctx context.Context, employeeID string, failedAttempts int, lockedUntil *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE employees SET failed_attempts = $2, locked_until = $3, updated_at = $4 WHERE employee_id = $1`,
		employeeID, failedAttempts, nullTime(lockedUntil), time.Now().UTC())
	return err
}

// BindSession installs the session triple in one statement, guarded by the
// token the caller last observed on the row. IS NOT DISTINCT FROM makes the
// guard hold for NULL (no prior session) as well, so two logins racing for one
// employee cannot both pass: the loser's guard no longer matches.
func (r *PostgresRepository) BindSession(ctx context.Context, employeeID, token, terminal string, at time.Time, prevToken *string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE employees
		 SET current_session_token = $2, logged_in_terminal = $3, last_activity = $4, updated_at = $4
		 WHERE employee_id = $1 AND current_session_token IS NOT DISTINCT FROM $5`,
		employeeID, token, terminal, at, nullString(prevToken))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// TouchSession refreshes last_activity for the row holding token.
func (r *PostgresRepository) TouchSession(ctx context.Context, token string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE employees SET last_activity = $2, updated_at = $2 WHERE current_session_token = $1`,
		token, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClearSession nulls the session triple for employeeID.
func (r *PostgresRepository) ClearSession(ctx context.Context, employeeID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE employees
		 SET current_session_token = NULL, logged_in_terminal = NULL, last_activity = NULL, updated_at = $2
		 WHERE employee_id = $1`,
		employeeID, time.Now().UTC())
	return err
}

func scanEmployee(row *sql.Row) (*domain.Employee, error) {
	var (
		e            domain.Employee
		role         string
		lockedUntil  sql.NullTime
		sessionToken sql.NullString
		terminal     sql.NullString
		lastActivity sql.NullTime
	)
	err := row.Scan(
		&e.EmployeeID, &e.PINHash, &role, &e.FirstName, &e.LastName, &e.IsActive,
		&e.FailedAttempts, &lockedUntil, &sessionToken, &terminal, &lastActivity,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e.Role = domain.Role(role)
	if lockedUntil.Valid {
		t := lockedUntil.Time
		e.LockedUntil = &t
	}
	if sessionToken.Valid {
		s := sessionToken.String
		e.CurrentSessionToken = &s
	}
	if terminal.Valid {
		s := terminal.String
		e.LoggedInTerminal = &s
	}
	if lastActivity.Valid {
		t := lastActivity.Time
		e.LastActivity = &t
	}
	return &e, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
