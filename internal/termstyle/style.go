package termstyle

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// enabled tracks whether ANSI styling is active.
// Defaults to true if stderr is a TTY, since diagnostics are written there.
var enabled = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

// SetEnabled overrides the auto-detected TTY check.
func SetEnabled(on bool) {
	enabled = on
}

func wrap(s string, apply func(termenv.Style) termenv.Style) string {
	if !enabled || s == "" {
		return s
	}
	return apply(termenv.ANSI.String(s)).String()
}

func fg(c termenv.ANSIColor) func(termenv.Style) termenv.Style {
	return func(st termenv.Style) termenv.Style { return st.Foreground(c) }
}

// Red renders text in red.
func Red(s string) string { return wrap(s, fg(termenv.ANSIRed)) }

// ErrorPrefix is the label printed before caller-side diagnostics.
func ErrorPrefix() string { return Red("error:") }
