package benchmark

import (
	"errors"
	"fmt"
)

// ErrConfiguration indicates a benchmark cannot be executed as registered.
var ErrConfiguration = errors.New("benchmark configuration error")

// ConfigurationError is reported at registration or preparation time,
// before any worker is started.
type ConfigurationError struct {
	Benchmark string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrConfiguration, e.Benchmark, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

func configErrorf(name, format string, args ...any) error {
	return &ConfigurationError{Benchmark: name, Reason: fmt.Sprintf(format, args...)}
}
