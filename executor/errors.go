package executor

import (
	"errors"
	"fmt"
)

// ErrProtocol indicates a worker terminated without a well-formed payload.
var ErrProtocol = errors.New("worker protocol failure")

// ProtocolError is returned for a call whose worker did not report properly.
// It matches ErrProtocol and the underlying cause with errors.Is.
type ProtocolError struct {
	ID       string
	ExitCode int
	State    string
	Err      error
}

func (e *ProtocolError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("%v: call %s (%s): %v", ErrProtocol, e.ID, e.State, e.Err)
	}
	return fmt.Sprintf("%v: call %s: %v", ErrProtocol, e.ID, e.Err)
}

func (e *ProtocolError) Unwrap() []error {
	return []error{ErrProtocol, e.Err}
}
