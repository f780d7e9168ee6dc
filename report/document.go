// Package report turns suite outcomes into persistent reports: a JSON
// document, a Prometheus textfile and an authenticated upload.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/skylenet/tafelrunde/benchmark"
	"github.com/skylenet/tafelrunde/metrics"
	"github.com/skylenet/tafelrunde/payload"
	"github.com/skylenet/tafelrunde/plan"
	"github.com/skylenet/tafelrunde/result"
	"github.com/skylenet/tafelrunde/suite"
)

// Document is the JSON report of one suite run.
type Document struct {
	RunID      string             `json:"run_id"`
	Suite      string             `json:"suite"`
	Version    string             `json:"version"`
	Created    time.Time          `json:"created"`
	Benchmarks []*BenchmarkReport `json:"benchmarks"`
}

// BenchmarkReport holds the calls and summary of one benchmark.
type BenchmarkReport struct {
	Name           string           `json:"name"`
	WarmupExecuted bool             `json:"warmup_executed"`
	WarmupDuration time.Duration    `json:"warmup_duration_ns"`
	Summary        *metrics.Summary `json:"summary"`
	Calls          []*CallReport    `json:"calls"`
}

// CallReport pairs one binding with its result. Binding values are encoded
// like the locals of a failure, so values JSON cannot represent are kept as
// text.
type CallReport struct {
	ID      string                   `json:"id"`
	Binding map[string]payload.Local `json:"binding"`
	Result  *result.ExecutionResult  `json:"result"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Build assembles the report of a finished run. Outcomes are matched to
// benchmarks by name; benchmarks without an outcome are omitted.
func Build(runID string, s *suite.Suite, outcomes []*benchmark.Outcome) *Document {
	if runID == "" {
		runID = NewRunID()
	}
	doc := &Document{
		RunID:   runID,
		Suite:   s.Name(),
		Version: s.Version(),
		Created: time.Now().UTC(),
	}

	byName := make(map[string]*benchmark.Outcome, len(outcomes))
	for _, o := range outcomes {
		byName[o.Benchmark] = o
	}

	for _, b := range s.Benchmarks() {
		o, ok := byName[b.Name()]
		if !ok {
			continue
		}
		br := &BenchmarkReport{
			Name:           b.Name(),
			WarmupExecuted: o.WarmupExecuted,
			WarmupDuration: o.WarmupDuration,
			Summary:        o.Summary,
		}

		calls := b.Calls()
		seen := make(map[string]bool, len(calls))
		for i, id := range b.Identifiers() {
			if seen[id] {
				continue
			}
			res, ok := b.Results().Get(id)
			if !ok {
				continue
			}
			seen[id] = true
			br.Calls = append(br.Calls, &CallReport{
				ID:      id,
				Binding: encodeBinding(calls[i]),
				Result:  res,
			})
		}
		doc.Benchmarks = append(doc.Benchmarks, br)
	}

	return doc
}

func encodeBinding(b plan.Binding) map[string]payload.Local {
	m := make(map[string]payload.Local, b.Len())
	for _, name := range b.Names() {
		v, _ := b.Value(name)
		m[name] = payload.EncodeLocal(v)
	}
	return m
}

// Benchmark returns the report of the named benchmark.
func (d *Document) Benchmark(name string) (*BenchmarkReport, bool) {
	for _, b := range d.Benchmarks {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// WriteFile writes the document as indented JSON.
func (d *Document) WriteFile(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ReadFile loads a document written by WriteFile.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &d, nil
}
