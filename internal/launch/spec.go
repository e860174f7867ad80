// Package launch describes what to daemonize and carries that description
// from one process stage to the next.
package launch

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"daemonizer/internal/config"
	"daemonizer/internal/poll"
	"daemonizer/internal/signals"
)

const (
	DefaultLogPath    = "/var/log/daemonizer"
	DefaultSearchPath = "/sbin:/bin:/usr/sbin:/usr/bin:/usr/local/sbin:/usr/local/bin"
	DefaultShell      = "/bin/sh"

	DefaultAdoptInterval = 10 * time.Millisecond
	DefaultAdoptAttempts = 100
)

// ErrNoProgram is reported when there is nothing to launch.
var ErrNoProgram = errors.New("no program specified")

// Adoption tunes the wait for the daemon to be reparented to init.
type Adoption struct {
	poll.Options
	// AcceptSubreaper also counts adoption by a child subreaper (any
	// parent other than the exited session leader) as converged.
	AcceptSubreaper bool
}

// Spec is a complete launch request. It is built once by the caller and
// passed by value between stages.
type Spec struct {
	Program string
	// Args is the target's argument vector; Args[0] is the program name.
	Args            []string
	LogPath         string
	PIDPath         string
	KeepEnvironment bool
	SearchPath      string
	Shell           string
	EnvStrategy     string
	LaunchID        string
	Adoption        Adoption
	Signals         signals.Policy
}

// New returns a Spec for program with the built-in defaults.
func New(program string, args ...string) Spec {
	return Spec{
		Program:    program,
		Args:       append([]string{program}, args...),
		LogPath:    DefaultLogPath,
		SearchPath: DefaultSearchPath,
		Shell:      DefaultShell,
		Adoption: Adoption{Options: poll.Options{
			Interval: DefaultAdoptInterval,
			Attempts: DefaultAdoptAttempts,
		}},
		Signals: signals.DefaultPolicy(),
	}
}

// ApplyConfig copies values set in cfg onto s. Flags applied afterwards
// take precedence.
func (s *Spec) ApplyConfig(cfg *config.Config) error {
	if cfg.Log != "" {
		s.LogPath = cfg.Log
	}
	if cfg.PID != "" {
		s.PIDPath = cfg.PID
	}
	if cfg.KeepEnvironment {
		s.KeepEnvironment = true
	}
	if cfg.SearchPath != "" {
		s.SearchPath = cfg.SearchPath
	}
	if cfg.Shell != "" {
		s.Shell = cfg.Shell
	}
	if cfg.EnvStrategy != "" {
		s.EnvStrategy = cfg.EnvStrategy
	}
	if cfg.Adoption.Interval > 0 {
		s.Adoption.Interval = cfg.Adoption.Interval
	}
	if cfg.Adoption.Attempts > 0 {
		s.Adoption.Attempts = cfg.Adoption.Attempts
	}
	if cfg.Adoption.AcceptSubreaper {
		s.Adoption.AcceptSubreaper = true
	}
	if len(cfg.Signals) > 0 {
		p, err := s.Signals.WithOverrides(cfg.Signals)
		if err != nil {
			return fmt.Errorf("config signals: %w", err)
		}
		s.Signals = p
	}
	return nil
}

// Validate checks the launch request before any process is split.
func (s Spec) Validate() error {
	if s.Program == "" {
		return ErrNoProgram
	}
	if len(s.Args) == 0 || s.Args[0] != s.Program {
		return fmt.Errorf("argument vector must start with the program name %q", s.Program)
	}
	if s.LogPath == "" {
		return errors.New("no log file specified")
	}
	if s.SearchPath == "" {
		return errors.New("empty search path")
	}
	if s.Shell == "" {
		return errors.New("empty shell")
	}
	if s.Adoption.Attempts < 0 || s.Adoption.Interval < 0 {
		return fmt.Errorf("invalid adoption window %d x %s", s.Adoption.Attempts, s.Adoption.Interval)
	}
	return nil
}

// StageArgs encodes s as the command line of a hidden stage subcommand.
// extra flags are inserted before the "--" separating the program.
func (s Spec) StageArgs(stage string, extra ...string) []string {
	args := []string{stage,
		"--log", s.LogPath,
		"--search-path", s.SearchPath,
		"--shell", s.Shell,
		"--adopt-interval", s.Adoption.Interval.String(),
		"--adopt-attempts", strconv.Itoa(s.Adoption.Attempts),
	}
	if s.PIDPath != "" {
		args = append(args, "--pid", s.PIDPath)
	}
	if s.KeepEnvironment {
		args = append(args, "--keep-environment")
	}
	if s.EnvStrategy != "" {
		args = append(args, "--env-strategy", s.EnvStrategy)
	}
	if s.LaunchID != "" {
		args = append(args, "--launch-id", s.LaunchID)
	}
	if s.Adoption.AcceptSubreaper {
		args = append(args, "--accept-subreaper")
	}
	pairs := s.Signals.Strings()
	names := make([]string, 0, len(pairs))
	for name := range pairs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		args = append(args, "--signal", name+"="+pairs[name])
	}
	args = append(args, extra...)
	args = append(args, "--")
	return append(args, s.Args...)
}

// StageFlags decodes the flags written by StageArgs.
type StageFlags struct {
	spec    Spec
	signals []string
}

// BindStageFlags registers the stage flags on fs.
func BindStageFlags(fs *pflag.FlagSet) *StageFlags {
	f := &StageFlags{spec: New("")}
	fs.StringVar(&f.spec.LogPath, "log", DefaultLogPath, "Log file")
	fs.StringVar(&f.spec.PIDPath, "pid", "", "PID file")
	fs.BoolVar(&f.spec.KeepEnvironment, "keep-environment", false, "Keep the caller's environment")
	fs.StringVar(&f.spec.SearchPath, "search-path", DefaultSearchPath, "PATH for the target program")
	fs.StringVar(&f.spec.Shell, "shell", DefaultShell, "SHELL for the target program")
	fs.StringVar(&f.spec.EnvStrategy, "env-strategy", "", "Environment clearing strategy")
	fs.StringVar(&f.spec.LaunchID, "launch-id", "", "Launch identifier")
	fs.DurationVar(&f.spec.Adoption.Interval, "adopt-interval", DefaultAdoptInterval, "Adoption poll interval")
	fs.IntVar(&f.spec.Adoption.Attempts, "adopt-attempts", DefaultAdoptAttempts, "Adoption poll attempts")
	fs.BoolVar(&f.spec.Adoption.AcceptSubreaper, "accept-subreaper", false, "Accept adoption by a subreaper")
	fs.StringArrayVar(&f.signals, "signal", nil, "Signal action as name=action")
	return f
}

// Spec assembles the decoded spec with the positional program arguments.
func (f *StageFlags) Spec(args []string) (Spec, error) {
	s := f.spec
	if len(args) == 0 {
		return Spec{}, ErrNoProgram
	}
	s.Program = args[0]
	s.Args = append([]string(nil), args...)

	overrides := make(map[string]string, len(f.signals))
	for _, kv := range f.signals {
		name, action, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return Spec{}, fmt.Errorf("invalid --signal %q (want name=action)", kv)
		}
		overrides[name] = action
	}
	if len(overrides) > 0 {
		p, err := signals.Policy{}.WithOverrides(overrides)
		if err != nil {
			return Spec{}, err
		}
		s.Signals = p
	}
	return s, s.Validate()
}
