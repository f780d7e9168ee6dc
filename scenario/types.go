// Package scenario loads declared call bindings from YAML or JSON files and
// turns them into argument fillers.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/skylenet/tafelrunde/plan"
)

var (
	// ErrInvalidDomain indicates a domain declares neither values nor a valid range.
	ErrInvalidDomain = errors.New("invalid domain")

	// ErrEmptyScenario indicates a scenario declares no calls.
	ErrEmptyScenario = errors.New("scenario declares no calls")
)

// DomainSpec declares the candidate values of one parameter, either as an
// explicit list or as a half-open integer range [start, stop).
type DomainSpec struct {
	Name   string `yaml:"name"`
	Values []any  `yaml:"values"`
	Range  []int  `yaml:"range"`
}

// Domain converts the declaration into a planner domain.
func (d DomainSpec) Domain() (plan.Domain, error) {
	switch {
	case d.Name == "":
		return plan.Domain{}, fmt.Errorf("%w: missing name", ErrInvalidDomain)
	case len(d.Values) > 0 && len(d.Range) > 0:
		return plan.Domain{}, fmt.Errorf("%w: %s declares both values and range", ErrInvalidDomain, d.Name)
	case len(d.Values) > 0:
		return plan.Domain{Name: d.Name, Values: d.Values}, nil
	case len(d.Range) == 2 && d.Range[0] < d.Range[1]:
		return plan.Domain{Name: d.Name, Values: plan.Range(d.Range[0], d.Range[1])}, nil
	default:
		return plan.Domain{}, fmt.Errorf("%w: %s needs values or range [start, stop)", ErrInvalidDomain, d.Name)
	}
}

// Scenario declares the calls of one benchmark.
type Scenario struct {
	// Name is the benchmark the calls belong to. It defaults to the file
	// name without extension.
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Calls are single bindings, registered first and in order.
	Calls []map[string]any `yaml:"calls"`
	// Combinations are expanded into their Cartesian product after Calls.
	Combinations []DomainSpec `yaml:"combinations"`

	// Path is the file the scenario was loaded from.
	Path string `yaml:"-"`

	domains plan.Domains
}

// Size returns the number of calls the scenario registers.
func (s *Scenario) Size() int {
	n := len(s.Calls)
	if len(s.domains) > 0 {
		n += s.domains.Size()
	}
	return n
}

// Apply registers the scenario's calls with p.
func (s *Scenario) Apply(p *plan.Planner) {
	for _, call := range s.Calls {
		p.AddCall(call)
	}
	if len(s.domains) > 0 {
		p.CallCombinations(s.domains)
	}
}

func (s *Scenario) validate() error {
	s.domains = make(plan.Domains, 0, len(s.Combinations))
	for _, spec := range s.Combinations {
		d, err := spec.Domain()
		if err != nil {
			return err
		}
		s.domains = append(s.domains, d)
	}
	if s.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyScenario, s.Name)
	}
	return nil
}

// Load loads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}

	s.Path = path
	if s.Name == "" {
		s.Name = stem(path)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Defaults maps parameter names to domains. It fills any benchmark whose
// free parameters it covers completely.
type Defaults map[string]plan.Domain

// LoadDefaults loads a defaults file: a mapping from parameter name to
// domain declaration.
func LoadDefaults(path string) (Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read defaults: %w", err)
	}

	var raw map[string]DomainSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse defaults %s: %w", path, err)
	}

	defaults := make(Defaults, len(raw))
	for name, spec := range raw {
		spec.Name = name
		d, err := spec.Domain()
		if err != nil {
			return nil, fmt.Errorf("defaults %s: %w", path, err)
		}
		defaults[name] = d
	}
	return defaults, nil
}

// Domains returns the domains for names in the given order. ok is false if
// any name is not covered.
func (d Defaults) Domains(names []string) (plan.Domains, bool) {
	domains := make(plan.Domains, 0, len(names))
	for _, name := range names {
		dom, ok := d[name]
		if !ok {
			return nil, false
		}
		domains = append(domains, dom)
	}
	return domains, true
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isScenarioFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
