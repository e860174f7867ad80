// Package daemon runs the daemonization sequence. The sequence spans three
// process images: the caller, a transient session leader and the daemon.
// Go cannot fork, so each split re-executes this binary in a hidden stage
// subcommand carrying the full launch spec.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"

	"daemonizer/internal/envsan"
	"daemonizer/internal/launch"
	"daemonizer/internal/logchan"
	"daemonizer/internal/poll"
	"daemonizer/internal/signals"
)

// initPID is the process that adopts orphans.
const initPID = 1

// ErrNotAdopted means the daemon's parent never became init within the
// adoption window.
var ErrNotAdopted = errors.New("not adopted by init: timeout reached")

// getppid is replaced in tests.
var getppid = unix.Getppid

// RunCaller validates spec, starts the session leader and reaps it. It
// returns the leader's exit status, which is 0 once the daemon has been
// spawned.
func RunCaller(spec launch.Spec) (int, error) {
	status := 0
	err := runSteps([]step{
		{Init, spec.Validate},
		{FirstSplit, func() error {
			cmd, err := stageCommand(spec.StageArgs(LeaderStage))
			if err != nil {
				return err
			}
			if err := cmd.Start(); err != nil {
				return fmt.Errorf("start session leader: %w", err)
			}
			err = cmd.Wait()
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				status = exitErr.ExitCode()
				if status < 0 {
					status = 1
				}
				return nil
			}
			if err != nil {
				return fmt.Errorf("wait for session leader: %w", err)
			}
			return nil
		}},
	})
	return status, err
}

// RunLeader creates a new session, starts the daemon stage and returns
// without waiting for it. Failures are reported on standard error.
func RunLeader(spec launch.Spec) error {
	log := logchan.New(os.Stderr)
	err := runSteps([]step{
		{SessionCreate, createSession},
		{SecondSplit, func() error {
			cmd, err := stageCommand(spec.StageArgs(DaemonStage, "--leader-pid", strconv.Itoa(os.Getpid())))
			if err != nil {
				return err
			}
			if err := cmd.Start(); err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}
			return cmd.Process.Release()
		}},
	})
	if err != nil {
		log.Fatalf("%v", err)
	}
	return err
}

// daemonRun holds the state of the final stage.
type daemonRun struct {
	spec      launch.Spec
	leaderPID int
	log       *logchan.Channel
	handler   *signals.Handler
	env       []string
}

// RunDaemon performs every remaining step and replaces the process image
// with the target program. It returns only on failure, after writing the
// diagnostic to the log channel (or to the inherited standard error if the
// log is not bound yet).
func RunDaemon(spec launch.Spec, leaderPID int) error {
	d := &daemonRun{
		spec:      spec,
		leaderPID: leaderPID,
		log:       logchan.New(os.Stderr),
	}
	err := runSteps(d.steps())
	if err != nil {
		d.log.Fatalf("%v", err)
	}
	return err
}

func (d *daemonRun) steps() []step {
	return []step{
		{PermissionMask, d.setUmask},
		{SignalSetup, d.installSignals},
		{FDSanitize, sanitizeDescriptors},
		{StdoutRebind, d.bindStdout},
		{StderrRebind, d.bindStderr},
		{StdinRebind, d.bindStdin},
		{StartupLog, d.logStartup},
		{EnvSanitize, d.sanitizeEnv},
		{OrphanWait, d.awaitAdoption},
		{PIDFileWrite, d.writePID},
		{ExecHandoff, d.handoff},
	}
}

func (d *daemonRun) setUmask() error {
	unix.Umask(unix.S_IWGRP | unix.S_IWOTH)
	return nil
}

func (d *daemonRun) installSignals() error {
	d.handler = signals.Install(d.spec.Signals, d.log)
	return nil
}

func (d *daemonRun) bindStdout() error {
	if err := bindSlot(stdoutSlot, "STDOUT", openLog(d.spec.LogPath)); err != nil {
		return fmt.Errorf("%s: %w", d.spec.LogPath, err)
	}
	if err := closeAliases(stdoutSlot); err != nil {
		return fmt.Errorf("%s: %w", d.spec.LogPath, err)
	}
	if err := lockSentinel(stdoutSlot); err != nil {
		return fmt.Errorf("%s: %w", d.spec.LogPath, err)
	}
	// os.Stdout writes to descriptor 1, which is now the locked log.
	return d.log.Rebind(os.Stdout)
}

func (d *daemonRun) bindStderr() error {
	if err := bindSlot(stderrSlot, "STDERR", dupStdout); err != nil {
		return err
	}
	return d.relock()
}

func (d *daemonRun) bindStdin() error {
	if err := bindSlot(stdinSlot, "STDIN", openDevNull); err != nil {
		return err
	}
	if err := d.relock(); err != nil {
		return err
	}
	return verifyDetached()
}

// relock takes the log lock again after a standard slot was closed. If the
// closed slot referred to the log, the close released the lock, and another
// instance may have taken it since.
func (d *daemonRun) relock() error {
	if err := lockSentinel(stdoutSlot); err != nil {
		return fmt.Errorf("%s: %w", d.spec.LogPath, err)
	}
	return nil
}

func (d *daemonRun) logStartup() error {
	d.log.Printf("success starting pid %d", os.Getpid())
	if d.spec.LaunchID != "" {
		d.log.Printf("launch %s program %s", d.spec.LaunchID, d.spec.Program)
	}
	return d.log.Flush()
}

func (d *daemonRun) sanitizeEnv() error {
	strategy, err := envsan.StrategyByName(d.spec.EnvStrategy)
	if err != nil {
		return err
	}
	env, err := envsan.Sanitize(envsan.Options{
		Keep:     d.spec.KeepEnvironment,
		Path:     d.spec.SearchPath,
		Shell:    d.spec.Shell,
		Strategy: strategy,
	})
	if err != nil {
		return err
	}
	for _, kv := range env {
		d.log.Printf("%s", kv)
	}
	d.env = env
	return d.log.Flush()
}

// awaitAdoption polls until the exited session leader's child has been
// reparented. Until the kernel finishes reaping the leader, getppid may
// still report it.
func (d *daemonRun) awaitAdoption() error {
	err := poll.Until(context.Background(), d.spec.Adoption.Options, adopted(d.leaderPID, d.spec.Adoption.AcceptSubreaper))
	if errors.Is(err, poll.ErrTimeout) {
		return fmt.Errorf("%w (parent %d)", ErrNotAdopted, getppid())
	}
	return err
}

func adopted(leaderPID int, acceptSubreaper bool) poll.Condition {
	return func() (bool, error) {
		ppid := getppid()
		if ppid == initPID {
			return true, nil
		}
		return acceptSubreaper && leaderPID > 0 && ppid != leaderPID, nil
	}
}

func (d *daemonRun) writePID() error {
	if d.spec.PIDPath == "" {
		return nil
	}
	return writePIDFile(d.spec.PIDPath, os.Getpid())
}

func (d *daemonRun) handoff() error {
	if err := d.log.Flush(); err != nil {
		return err
	}
	return handoff(d.spec.Program, d.spec.Args, d.env)
}
