package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"daemonizer/internal/config"
	"daemonizer/internal/launch"
	"daemonizer/internal/signals"
)

// runRoot executes the root command with args and captures the launch request that
// would have been launched.
func runRoot(t *testing.T, args ...string) (launch.Spec, int, string) {
	t.Helper()
	t.Setenv(config.EnvVar, "")

	var got launch.Spec
	orig := runCaller
	runCaller = func(spec launch.Spec) (int, error) {
		got = spec
		return 0, nil
	}
	t.Cleanup(func() { runCaller = orig })

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	code := Execute(cmd)
	return got, code, stdout.String() + stderr.String()
}

func TestNoProgram(t *testing.T) {
	spec, code, out := runRoot(t)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out, "Error: no program specified") {
		t.Errorf("output missing error: %q", out)
	}
	if !strings.Contains(out, "Usage:") {
		t.Errorf("output missing usage: %q", out)
	}
	if spec.Program != "" {
		t.Errorf("launched %q without a program", spec.Program)
	}
}

func TestUnknownFlagExitsZero(t *testing.T) {
	_, code, out := runRoot(t, "--bogus", "/bin/true")
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(out, "unknown flag: --bogus") || !strings.Contains(out, "Usage:") {
		t.Errorf("output = %q", out)
	}
}

func TestHelp(t *testing.T) {
	_, code, out := runRoot(t, "--help")
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	for _, want := range []string{"--keep-environment", "--log", "--pid", "--config"} {
		if !strings.Contains(out, want) {
			t.Errorf("help missing %s", want)
		}
	}
	for _, hidden := range []string{"_leader", "_daemon"} {
		if strings.Contains(out, hidden) {
			t.Errorf("help lists hidden stage %s", hidden)
		}
	}
}

func TestProgramFlagsPassThrough(t *testing.T) {
	spec, code, _ := runRoot(t, "-l", "/tmp/a.log", "-e", "/bin/echo", "-l", "--pid", "x")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if spec.LogPath != "/tmp/a.log" {
		t.Errorf("LogPath = %q", spec.LogPath)
	}
	if !spec.KeepEnvironment {
		t.Error("KeepEnvironment not set")
	}
	if spec.PIDPath != "" {
		t.Errorf("PIDPath = %q, want empty", spec.PIDPath)
	}
	want := []string{"/bin/echo", "-l", "--pid", "x"}
	if strings.Join(spec.Args, " ") != strings.Join(want, " ") {
		t.Errorf("Args = %q, want %q", spec.Args, want)
	}
	if spec.LaunchID == "" {
		t.Error("LaunchID not generated")
	}
}

func TestDefaults(t *testing.T) {
	spec, _, _ := runRoot(t, "/bin/true")
	if spec.LogPath != launch.DefaultLogPath {
		t.Errorf("LogPath = %q, want %q", spec.LogPath, launch.DefaultLogPath)
	}
	if spec.KeepEnvironment {
		t.Error("KeepEnvironment set by default")
	}
	if spec.Signals[syscall.SIGHUP] != signals.LogAndContinue {
		t.Errorf("SIGHUP action = %v", spec.Signals[syscall.SIGHUP])
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemonizer.yaml")
	data := `
log: /var/log/from-config.log
pid: /run/from-config.pid
keep_environment: true
command: "/usr/bin/testd --interval '1s'"
adoption:
  attempts: 7
  accept_subreaper: true
signals:
  hup: terminate
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	spec, code, out := runRoot(t, "-c", path, "-l", "/tmp/flag.log")
	if code != 0 {
		t.Fatalf("exit code = %d: %s", code, out)
	}
	if spec.LogPath != "/tmp/flag.log" {
		t.Errorf("LogPath = %q, flag should win", spec.LogPath)
	}
	if spec.PIDPath != "/run/from-config.pid" {
		t.Errorf("PIDPath = %q", spec.PIDPath)
	}
	if !spec.KeepEnvironment {
		t.Error("KeepEnvironment from config ignored")
	}
	if strings.Join(spec.Args, "|") != "/usr/bin/testd|--interval|1s" {
		t.Errorf("Args = %q", spec.Args)
	}
	if spec.Adoption.Attempts != 7 || !spec.Adoption.AcceptSubreaper {
		t.Errorf("Adoption = %+v", spec.Adoption)
	}
	if spec.Signals[syscall.SIGHUP] != signals.LogAndTerminate {
		t.Errorf("SIGHUP action = %v, want terminate", spec.Signals[syscall.SIGHUP])
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemonizer.yaml")
	if err := os.WriteFile(path, []byte("pid: /run/env.pid\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	orig := runCaller
	var got launch.Spec
	runCaller = func(spec launch.Spec) (int, error) { got = spec; return 0, nil }
	defer func() { runCaller = orig }()
	t.Setenv(config.EnvVar, path)

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"/bin/true"})
	if code := Execute(cmd); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if got.PIDPath != "/run/env.pid" {
		t.Errorf("PIDPath = %q", got.PIDPath)
	}
}

func TestMissingConfigFile(t *testing.T) {
	_, code, out := runRoot(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "/bin/true")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out, "error: read config") {
		t.Errorf("output = %q", out)
	}
}

func TestLeaderStatusPropagated(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	orig := runCaller
	runCaller = func(launch.Spec) (int, error) { return 3, nil }
	defer func() { runCaller = orig }()

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"/bin/true"})
	if code := Execute(cmd); code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
}
