// Package signals maps the signals a daemon watches to an explicit action
// and runs the handler that applies it.
package signals

import (
	"fmt"
	"sort"
	"strings"
	"syscall"
)

// Action is what the handler does after logging a caught signal.
type Action int

const (
	// LogAndContinue logs the signal and keeps running.
	LogAndContinue Action = iota
	// LogAndTerminate logs the signal and exits with a failure status.
	LogAndTerminate
)

func (a Action) String() string {
	switch a {
	case LogAndContinue:
		return "continue"
	case LogAndTerminate:
		return "terminate"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ParseAction parses "continue" or "terminate".
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "continue":
		return LogAndContinue, nil
	case "terminate":
		return LogAndTerminate, nil
	}
	return 0, fmt.Errorf("unknown signal action %q (want continue or terminate)", s)
}

// names lists the signals a policy may configure, keyed by short name.
var names = map[string]syscall.Signal{
	"hup":  syscall.SIGHUP,
	"int":  syscall.SIGINT,
	"quit": syscall.SIGQUIT,
	"segv": syscall.SIGSEGV,
}

// ParseSignal accepts "hup", "HUP" or "SIGHUP" for any configurable signal.
func ParseSignal(s string) (syscall.Signal, error) {
	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "sig")
	sig, ok := names[key]
	if !ok {
		return 0, fmt.Errorf("unsupported signal %q", s)
	}
	return sig, nil
}

func shortName(sig syscall.Signal) string {
	for name, s := range names {
		if s == sig {
			return name
		}
	}
	return fmt.Sprintf("%d", int(sig))
}

// Policy maps each watched signal to its action.
type Policy map[syscall.Signal]Action

// DefaultPolicy logs hangup, interrupt and quit without acting on them and
// terminates on segmentation violation.
func DefaultPolicy() Policy {
	return Policy{
		syscall.SIGHUP:  LogAndContinue,
		syscall.SIGINT:  LogAndContinue,
		syscall.SIGQUIT: LogAndContinue,
		syscall.SIGSEGV: LogAndTerminate,
	}
}

// WithOverrides returns a copy of p with the given "name" -> "action"
// entries applied.
func (p Policy) WithOverrides(overrides map[string]string) (Policy, error) {
	out := make(Policy, len(p)+len(overrides))
	for sig, a := range p {
		out[sig] = a
	}
	for name, action := range overrides {
		sig, err := ParseSignal(name)
		if err != nil {
			return nil, err
		}
		a, err := ParseAction(action)
		if err != nil {
			return nil, fmt.Errorf("signal %s: %w", name, err)
		}
		out[sig] = a
	}
	return out, nil
}

// Strings renders p as "name" -> "action" pairs, the inverse of
// WithOverrides.
func (p Policy) Strings() map[string]string {
	out := make(map[string]string, len(p))
	for sig, a := range p {
		out[shortName(sig)] = a.String()
	}
	return out
}

// Signals returns the watched signals in ascending order.
func (p Policy) Signals() []syscall.Signal {
	sigs := make([]syscall.Signal, 0, len(p))
	for sig := range p {
		sigs = append(sigs, sig)
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i] < sigs[j] })
	return sigs
}
