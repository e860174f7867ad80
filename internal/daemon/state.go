package daemon

import "fmt"

// Role is the part a process image plays in the double fork.
type Role int

const (
	// OriginalCaller is the process started from the user's shell.
	OriginalCaller Role = iota
	// IntermediateSessionLeader creates the new session and exits.
	IntermediateSessionLeader
	// Daemon is the final process that becomes the target program.
	Daemon
)

// Hidden subcommands that re-enter the binary in a later role.
const (
	LeaderStage = "_leader"
	DaemonStage = "_daemon"
)

func (r Role) String() string {
	switch r {
	case OriginalCaller:
		return "caller"
	case IntermediateSessionLeader:
		return "session leader"
	case Daemon:
		return "daemon"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// State is one step of the daemonization sequence.
type State int

const (
	Init State = iota + 1
	FirstSplit
	SessionCreate
	SecondSplit
	PermissionMask
	SignalSetup
	FDSanitize
	StdoutRebind
	StderrRebind
	StdinRebind
	StartupLog
	EnvSanitize
	OrphanWait
	PIDFileWrite
	ExecHandoff
)

var stateNames = map[State]string{
	Init:           "checking launch request",
	FirstSplit:     "creating 1st child",
	SessionCreate:  "starting new session",
	SecondSplit:    "creating 2nd child",
	PermissionMask: "setting file creation mask",
	SignalSetup:    "installing signal handlers",
	FDSanitize:     "closing inherited descriptors",
	StdoutRebind:   "opening STDOUT to log",
	StderrRebind:   "opening STDERR to log",
	StdinRebind:    "opening STDIN to /dev/null",
	StartupLog:     "logging startup",
	EnvSanitize:    "preparing environment",
	OrphanWait:     "waiting for adoption by init",
	PIDFileWrite:   "writing pid file",
	ExecHandoff:    "starting program",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Role returns the role that executes s.
func (s State) Role() Role {
	switch {
	case s <= FirstSplit:
		return OriginalCaller
	case s <= SecondSplit:
		return IntermediateSessionLeader
	default:
		return Daemon
	}
}

// StateError records the step at which the sequence failed.
type StateError struct {
	State State
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("failure %s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }

type step struct {
	state State
	run   func() error
}

// runSteps executes steps in order and stops at the first failure.
func runSteps(steps []step) error {
	for _, s := range steps {
		if err := s.run(); err != nil {
			return &StateError{State: s.state, Err: err}
		}
	}
	return nil
}
