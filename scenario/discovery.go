package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/skylenet/tafelrunde/plan"
)

// DefaultsName is the file stem of the defaults file in a scenarios directory.
const DefaultsName = "defaults"

// Set is the result of scanning a scenarios directory.
type Set struct {
	log       logrus.FieldLogger
	scenarios map[string]*Scenario
	names     []string
	defaults  Defaults
}

// Names returns the scenario names in sorted order.
func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

// Scenario returns the scenario for a benchmark.
func (s *Set) Scenario(name string) (*Scenario, bool) {
	sc, ok := s.scenarios[name]
	return sc, ok
}

// Defaults returns the parameter-keyed defaults, or nil.
func (s *Set) Defaults() Defaults {
	return s.defaults
}

// Filler returns an argument filler. A benchmark with a scenario of its own
// name receives that scenario's calls. Otherwise the defaults are expanded
// when they cover every free parameter.
func (s *Set) Filler() plan.Filler {
	return func(p *plan.Planner) {
		log := s.log.WithField("benchmark", p.Name())

		if sc, ok := s.scenarios[p.Name()]; ok {
			sc.Apply(p)
			log.WithFields(logrus.Fields{
				"path":  sc.Path,
				"calls": sc.Size(),
			}).Debug("Filled calls from scenario")
			return
		}

		domains, ok := s.defaults.Domains(p.FreeParameters())
		if !ok {
			log.WithField("free", p.FreeParameters()).Debug("No scenario or defaults cover the free parameters")
			return
		}
		p.CallCombinations(domains)
		log.WithField("calls", domains.Size()).Debug("Filled calls from defaults")
	}
}

// Discovery finds and loads scenario files.
type Discovery struct {
	log logrus.FieldLogger
}

// NewDiscovery creates a new scenario discovery service.
func NewDiscovery(log logrus.FieldLogger) *Discovery {
	return &Discovery{
		log: log.WithField("component", "scenario-discovery"),
	}
}

// Discover loads every YAML or JSON file in baseDir. A file named
// defaults.<ext> holds the parameter-keyed defaults; every other file is one
// scenario. Files that fail to load are skipped with a warning.
func (d *Discovery) Discover(baseDir string) (*Set, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios directory: %w", err)
	}

	set := &Set{
		log:       d.log,
		scenarios: make(map[string]*Scenario, len(entries)),
	}

	for _, entry := range entries {
		if entry.IsDir() || !isScenarioFile(entry.Name()) {
			continue
		}
		path := filepath.Join(baseDir, entry.Name())

		if stem(entry.Name()) == DefaultsName {
			defaults, err := LoadDefaults(path)
			if err != nil {
				d.log.WithError(err).WithField("path", path).Warn("Failed to load defaults")
				continue
			}
			set.defaults = defaults
			d.log.WithFields(logrus.Fields{
				"path":       path,
				"parameters": len(defaults),
			}).Info("Loaded defaults")
			continue
		}

		sc, err := Load(path)
		if err != nil {
			d.log.WithError(err).WithField("path", path).Warn("Failed to load scenario")
			continue
		}
		if prev, ok := set.scenarios[sc.Name]; ok {
			d.log.WithFields(logrus.Fields{
				"name":  sc.Name,
				"path":  path,
				"first": prev.Path,
			}).Warn("Duplicate scenario name, skipping")
			continue
		}

		d.log.WithFields(logrus.Fields{
			"name":  sc.Name,
			"calls": sc.Size(),
		}).Info("Discovered scenario")

		set.scenarios[sc.Name] = sc
		set.names = append(set.names, sc.Name)
	}

	sort.Strings(set.names)

	return set, nil
}
