package auth

import "errors"

// FailureCode identifies a caller-visible authentication failure category.
type FailureCode string

const (
	CodeEmployeeNotFound    FailureCode = "EMPLOYEE_NOT_FOUND"
	CodeInvalidPIN          FailureCode = "INVALID_PIN"
	CodeAccountLocked       FailureCode = "ACCOUNT_LOCKED"
	CodeAlreadyLoggedIn     FailureCode = "ALREADY_LOGGED_IN"
	CodeSessionNotFound     FailureCode = "SESSION_NOT_FOUND"
	CodeSessionExpired      FailureCode = "SESSION_EXPIRED"
	CodeAuthenticationError FailureCode = "AUTHENTICATION_ERROR"
)

// Failure is a structured, recoverable authentication failure. Handlers map
// Code to an HTTP status and surface Message; store errors never reach the
// caller verbatim, they arrive wrapped under CodeAuthenticationError.
type Failure struct {
	Code    FailureCode
	Message string
	// ConflictingTerminal is set only for CodeAlreadyLoggedIn, naming the
	// terminal the employee must log out from first.
	ConflictingTerminal string

	cause error
}

func (f *Failure) Error() string {
	return string(f.Code) + ": " + f.Message
}

func (f *Failure) Unwrap() error { return f.cause }

// AsFailure unwraps err into a *Failure, if it is one.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func newFailure(code FailureCode, message string) *Failure {
	return &Failure{Code: code, Message: message}
}

// internalFailure downgrades an unexpected store error to the catch-all code.
// The cause stays attached for logging but must not be echoed to clients.
func internalFailure(err error) *Failure {
	return &Failure{Code: CodeAuthenticationError, Message: "Login system error", cause: err}
}
