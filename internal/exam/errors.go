package exam

import (
	"errors"
	"fmt"
)

// Domain errors surfaced by the session runtime.
var (
	// ErrAlreadySubmitted reports a finalize attempt that lost the
	// submission gate. Treated as a benign duplicate by callers.
	ErrAlreadySubmitted = errors.New("finalize already in progress or completed")
	// ErrSessionClosed reports a mutation attempted after the session
	// left IN_PROGRESS or was torn down.
	ErrSessionClosed = errors.New("session is not accepting changes")
	// ErrQuestionOutOfRange reports a question number outside 1..total.
	ErrQuestionOutOfRange = errors.New("question number out of range")
)

// ValidationError reports malformed input detected before any state
// mutation: a bad session id or a structurally invalid question list.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// PersistenceError wraps a collaborator failure, classified by whether the
// operation may be retried. createSession failures are fatal to session
// start; submitSession failures are retryable after the gate is released.
type PersistenceError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
