// Package result holds the outcome of isolated calls.
package result

import (
	"fmt"
	"time"

	"github.com/skylenet/tafelrunde/payload"
)

// Status classifies an ExecutionResult.
type Status string

const (
	// StatusSuccess means the body completed normally.
	StatusSuccess Status = "success"
	// StatusFailure means the body returned an error or panicked; see Failure.
	StatusFailure Status = "failure"
	// StatusProtocolFailure means the worker produced no usable payload; see ProtocolError.
	StatusProtocolFailure Status = "protocol_failure"
)

// ExecutionResult is the measured outcome of one call.
type ExecutionResult struct {
	ID     string `json:"id"`
	Status Status `json:"status"`

	// WallTime is the call duration reported by the worker.
	WallTime time.Duration `json:"wall_time_ns"`
	// UserTime and SysTime are the worker's CPU times as accounted by the OS.
	UserTime time.Duration `json:"user_time_ns"`
	SysTime  time.Duration `json:"sys_time_ns"`

	// MemoryDelta is PeakRSS minus BaselineRSS, in bytes.
	MemoryDelta int64 `json:"memory_delta"`
	BaselineRSS int64 `json:"baseline_rss"`
	PeakRSS     int64 `json:"peak_rss"`

	ExitCode int `json:"exit_code"`

	Failure       *FailureDetail `json:"failure,omitempty"`
	ProtocolError string         `json:"protocol_error,omitempty"`
}

// FailureDetail describes a failed call.
type FailureDetail struct {
	TypeName  string                   `json:"typename"`
	Kind      string                   `json:"kind"`
	Message   string                   `json:"message"`
	Traceback string                   `json:"traceback"`
	Locals    map[string]payload.Local `json:"locals"`
}

// IsSuccess returns true if the body completed normally.
func (r *ExecutionResult) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// IsProtocolFailure returns true if the worker did not report properly.
func (r *ExecutionResult) IsProtocolFailure() bool {
	return r.Status == StatusProtocolFailure
}

// String returns a one-line summary.
func (r *ExecutionResult) String() string {
	s := fmt.Sprintf("%s: %s | wall: %v | user: %v | sys: %v | mem: %d B | exit: %d",
		r.ID, r.Status, r.WallTime, r.UserTime, r.SysTime, r.MemoryDelta, r.ExitCode)
	switch {
	case r.Failure != nil:
		s += " | " + r.Failure.TypeName + ": " + r.Failure.Message
	case r.ProtocolError != "":
		s += " | " + r.ProtocolError
	}
	return s
}

// NewFailureDetail converts a worker exception into a failure detail.
func NewFailureDetail(exc *payload.Exception, locals map[string]payload.Local) *FailureDetail {
	if exc == nil {
		return nil
	}
	if locals == nil {
		locals = map[string]payload.Local{}
	}
	return &FailureDetail{
		TypeName:  exc.TypeName,
		Kind:      exc.Kind,
		Message:   exc.Message,
		Traceback: exc.Traceback,
		Locals:    locals,
	}
}
