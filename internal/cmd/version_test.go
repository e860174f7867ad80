package cmd

import (
	"bytes"
	"strings"
	"testing"

	"daemonizer/internal/version"
)

func TestVersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--version"})

	if code := Execute(cmd); code != 0 {
		t.Fatalf("--version exit code = %d, want 0", code)
	}

	got := strings.TrimSpace(buf.String())
	want := "daemonizer version " + version.Version
	if got != want {
		t.Errorf("--version output = %q, want %q", got, want)
	}
}
