// Package envsan prepares the environment a daemonized program inherits.
package envsan

import (
	"fmt"
	"os"
	"strings"
)

// Strategy removes every variable from the process environment.
type Strategy interface {
	Name() string
	Clear() error
}

// Bulk clears the environment in one call.
type Bulk struct{}

func (Bulk) Name() string { return "bulk" }

func (Bulk) Clear() error {
	os.Clearenv()
	return nil
}

// Iterative unsets variables one at a time, for platforms where a bulk
// clear does not reach the table exec passes on.
type Iterative struct{}

func (Iterative) Name() string { return "iterative" }

func (Iterative) Clear() error {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if key == "" {
			continue
		}
		if err := os.Unsetenv(key); err != nil {
			return fmt.Errorf("unset %s: %w", key, err)
		}
	}
	if n := len(os.Environ()); n != 0 {
		return fmt.Errorf("%d variables left after clearing", n)
	}
	return nil
}

// Default returns the strategy selected for this platform at build time.
func Default() Strategy {
	return platformStrategy
}

// StrategyByName resolves a configured strategy; an empty name selects
// Default.
func StrategyByName(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "":
		return Default(), nil
	case "bulk":
		return Bulk{}, nil
	case "iterative":
		return Iterative{}, nil
	}
	return nil, fmt.Errorf("unknown environment strategy %q (want bulk or iterative)", name)
}

// Options controls Sanitize.
type Options struct {
	// Keep leaves the inherited variables in place.
	Keep bool
	// Path and Shell are always written to PATH and SHELL.
	Path  string
	Shell string
	// Strategy clears the table when Keep is false. Nil selects Default.
	Strategy Strategy
}

// Sanitize clears the environment unless opts.Keep is set, overwrites PATH
// and SHELL, and returns the resulting KEY=VALUE list.
func Sanitize(opts Options) ([]string, error) {
	if !opts.Keep {
		s := opts.Strategy
		if s == nil {
			s = Default()
		}
		if err := s.Clear(); err != nil {
			return nil, fmt.Errorf("clear environment (%s): %w", s.Name(), err)
		}
	}
	if err := os.Setenv("PATH", opts.Path); err != nil {
		return nil, fmt.Errorf("set PATH: %w", err)
	}
	if err := os.Setenv("SHELL", opts.Shell); err != nil {
		return nil, fmt.Errorf("set SHELL: %w", err)
	}
	return os.Environ(), nil
}
