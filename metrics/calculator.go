package metrics

import (
	"github.com/skylenet/tafelrunde/result"
)

// Calculator computes summaries from execution results.
type Calculator struct{}

// NewCalculator creates a new metrics calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate summarizes results.
func (c *Calculator) Calculate(results []*result.ExecutionResult) *Summary {
	s := &Summary{Calls: len(results)}
	if len(results) == 0 {
		return s
	}

	measured := 0
	for _, r := range results {
		switch r.Status {
		case result.StatusSuccess:
			s.Succeeded++
		case result.StatusFailure:
			s.Failed++
		case result.StatusProtocolFailure:
			s.ProtocolFailures++
			continue
		}

		s.WallTime += r.WallTime
		s.UserTime += r.UserTime
		s.SysTime += r.SysTime

		if measured == 0 || r.WallTime < s.WallMin {
			s.WallMin = r.WallTime
		}
		if measured == 0 || r.WallTime > s.WallMax {
			s.WallMax = r.WallTime
			s.SlowestCall = r.ID
		}
		if r.MemoryDelta > s.MaxMemoryDelta {
			s.MaxMemoryDelta = r.MemoryDelta
		}
		measured++
	}

	return s
}
