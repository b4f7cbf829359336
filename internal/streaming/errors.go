package streaming

import "fmt"

// SessionError is a domain error with a stable code.
type SessionError struct {
	Code    string
	Message string
	Cause   error
}

func (e *SessionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SessionError) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	ErrCodeSessionNotFound = "SESSION_NOT_FOUND"
	ErrCodeSessionExists   = "SESSION_EXISTS"
	ErrCodePortAllocation  = "PORT_ALLOCATION"
	ErrCodeSpawnFailed     = "SPAWN_FAILED"
)

// NewSessionError creates a new session error.
func NewSessionError(code, message string, cause error) *SessionError {
	return &SessionError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrSessionNotFound reports a start or stop against an id that has no
// pending or active entry.
func ErrSessionNotFound(sessionID string) *SessionError {
	return NewSessionError(ErrCodeSessionNotFound, fmt.Sprintf("session %q not found", sessionID), nil)
}
