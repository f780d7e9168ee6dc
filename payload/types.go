// Package payload provides the message a worker writes back to its controller.
package payload

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the outcome a worker reports for its call.
type Status string

const (
	// StatusSuccess means the body returned without error.
	StatusSuccess Status = "success"
	// StatusException means the body returned an error or panicked.
	StatusException Status = "exception"
)

// Exit codes a worker terminates with.
const (
	ExitSuccess   = 0 // body completed normally
	ExitException = 1 // body failed, exception payload written
	ExitProtocol  = 3 // no payload could be produced
)

// Failure kinds.
const (
	KindError   = "error"   // body returned a non-nil error
	KindPanic   = "panic"   // body panicked with a non-runtime value
	KindRuntime = "runtime" // body triggered a runtime error (divide by zero, nil dereference, ...)
)

// Payload is the complete report of one worker.
type Payload struct {
	Status      Status           `json:"status"`
	BaselineRSS int64            `json:"baseline_rss"`
	ElapsedNS   int64            `json:"elapsed_ns"`
	Exception   *Exception       `json:"exception,omitempty"`
	Locals      map[string]Local `json:"locals,omitempty"`
}

// Exception describes why a body failed.
type Exception struct {
	TypeName  string `json:"typename"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Traceback string `json:"traceback"`
}

// Local is one local value of a failed call. Exactly one of Value and Repr
// is set: Value when the value could be encoded as JSON, Repr otherwise.
type Local struct {
	Value json.RawMessage `json:"value,omitempty"`
	Repr  string          `json:"repr,omitempty"`
}

// EncodeLocal encodes v as structured JSON, falling back to its Go syntax
// representation when v cannot be encoded. A marshaler that panics degrades
// the same way.
func EncodeLocal(v any) (l Local) {
	defer func() {
		if r := recover(); r != nil {
			l = Local{Repr: fmt.Sprintf("%#v", v)}
		}
	}()

	data, err := json.Marshal(v)
	if err != nil {
		return Local{Repr: fmt.Sprintf("%#v", v)}
	}
	return Local{Value: data}
}

// IsText reports whether the local degraded to its textual representation.
func (l Local) IsText() bool {
	return l.Value == nil
}

// String returns the local as display text.
func (l Local) String() string {
	if l.IsText() {
		return l.Repr
	}
	return string(l.Value)
}

// Elapsed returns the self-reported wall time of the call.
func (p *Payload) Elapsed() time.Duration {
	return time.Duration(p.ElapsedNS)
}

// ExitCode returns the exit code a worker reporting p terminates with.
func (p *Payload) ExitCode() int {
	if p.Status == StatusSuccess {
		return ExitSuccess
	}
	return ExitException
}

// IsSuccess returns true if the body completed normally.
func (p *Payload) IsSuccess() bool {
	return p.Status == StatusSuccess
}
