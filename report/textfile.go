package report

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tafel"

// callLabels identify one call in the exported metrics.
var callLabels = []string{"suite", "benchmark", "call", "status"}

// Collectors holds the gauges a document is exported through.
type Collectors struct {
	registry *prometheus.Registry

	wall     *prometheus.GaugeVec
	user     *prometheus.GaugeVec
	sys      *prometheus.GaugeVec
	memory   *prometheus.GaugeVec
	exitCode *prometheus.GaugeVec
	calls    *prometheus.GaugeVec
	info     *prometheus.GaugeVec
}

// NewCollectors registers the report gauges on a fresh registry.
func NewCollectors() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		wall: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "call_wall_seconds",
			Help:      "Wall time of one call as measured inside its worker.",
		}, callLabels),
		user: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "call_user_seconds",
			Help:      "User CPU time of the worker that ran one call.",
		}, callLabels),
		sys: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "call_sys_seconds",
			Help:      "System CPU time of the worker that ran one call.",
		}, callLabels),
		memory: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "call_memory_delta_bytes",
			Help:      "Peak resident set growth of the worker during one call.",
		}, callLabels),
		exitCode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "call_exit_code",
			Help:      "Exit code of the worker that ran one call.",
		}, callLabels),
		calls: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "benchmark_calls",
			Help:      "Number of calls per benchmark and status.",
		}, []string{"suite", "benchmark", "status"}),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_info",
			Help:      "Constant 1, labelled with the run identity.",
		}, []string{"suite", "version", "run_id"}),
	}

	c.registry.MustRegister(c.wall, c.user, c.sys, c.memory, c.exitCode, c.calls, c.info)
	return c
}

// Registry returns the registry the gauges are registered on.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Observe sets the gauges from d. Label values that are not valid UTF-8 are
// exported with the invalid bytes replaced by U+FFFD.
func (c *Collectors) Observe(d *Document) {
	suite := labelValue(d.Suite)
	c.info.WithLabelValues(suite, labelValue(d.Version), labelValue(d.RunID)).Set(1)

	for _, b := range d.Benchmarks {
		name := labelValue(b.Name)
		if s := b.Summary; s != nil {
			c.calls.WithLabelValues(suite, name, "success").Set(float64(s.Succeeded))
			c.calls.WithLabelValues(suite, name, "failure").Set(float64(s.Failed))
			c.calls.WithLabelValues(suite, name, "protocol_failure").Set(float64(s.ProtocolFailures))
		}

		for _, call := range b.Calls {
			r := call.Result
			labels := []string{suite, name, labelValue(call.ID), string(r.Status)}
			c.exitCode.WithLabelValues(labels...).Set(float64(r.ExitCode))
			if r.IsProtocolFailure() {
				continue
			}
			c.wall.WithLabelValues(labels...).Set(r.WallTime.Seconds())
			c.user.WithLabelValues(labels...).Set(r.UserTime.Seconds())
			c.sys.WithLabelValues(labels...).Set(r.SysTime.Seconds())
			c.memory.WithLabelValues(labels...).Set(float64(r.MemoryDelta))
		}
	}
}

func labelValue(v string) string {
	return strings.ToValidUTF8(v, "\uFFFD")
}

// WriteTextfile exports d in the Prometheus text format, for pickup by the
// node exporter's textfile collector.
func WriteTextfile(path string, d *Document) error {
	c := NewCollectors()
	c.Observe(d)
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write textfile %s: %w", path, err)
	}
	return nil
}
