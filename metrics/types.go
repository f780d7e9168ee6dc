// Package metrics provides per-benchmark summaries of execution results.
package metrics

import (
	"fmt"
	"time"
)

// Summary aggregates the results of one benchmark's calls.
type Summary struct {
	Calls            int `json:"calls"`             // Number of executed calls
	Succeeded        int `json:"succeeded"`         // Calls whose body completed normally
	Failed           int `json:"failed"`            // Calls whose body returned an error or panicked
	ProtocolFailures int `json:"protocol_failures"` // Calls whose worker did not report properly

	// Totals over all calls that produced a payload
	WallTime time.Duration `json:"wall_time_ns"`
	UserTime time.Duration `json:"user_time_ns"`
	SysTime  time.Duration `json:"sys_time_ns"`

	// Extremes over all calls that produced a payload
	WallMin        time.Duration `json:"wall_min_ns"`
	WallMax        time.Duration `json:"wall_max_ns"`
	MaxMemoryDelta int64         `json:"max_memory_delta"`
	SlowestCall    string        `json:"slowest_call"`
}

// String returns a human-readable summary.
func (s *Summary) String() string {
	return fmt.Sprintf(
		"Calls: %d | OK: %d | Failed: %d | Protocol: %d | Wall: %v | User: %v | Sys: %v | Max mem: %d B",
		s.Calls, s.Succeeded, s.Failed, s.ProtocolFailures,
		s.WallTime, s.UserTime, s.SysTime, s.MaxMemoryDelta,
	)
}

// ToDetails returns the summary formatted for the run output.
func (s *Summary) ToDetails() string {
	return fmt.Sprintf(`
Benchmark Summary
=================
Calls:         %d
Succeeded:     %d
Failed:        %d
Protocol:      %d

Resource Totals
---------------
Wall:          %v
User CPU:      %v
System CPU:    %v
Wall Min:      %v
Wall Max:      %v
Slowest:       %s
Max Mem Delta: %d B
`,
		s.Calls, s.Succeeded, s.Failed, s.ProtocolFailures,
		s.WallTime, s.UserTime, s.SysTime, s.WallMin, s.WallMax,
		s.SlowestCall, s.MaxMemoryDelta)
}

// AllSucceeded returns true if every call completed normally.
func (s *Summary) AllSucceeded() bool {
	return s.Calls > 0 && s.Succeeded == s.Calls
}
