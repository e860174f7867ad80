// Package logchan implements the daemon's log channel: a buffered,
// line-oriented writer whose every line carries a local timestamp in the
// fixed "Weekday Month Day Year HH:MM:SS" format.
package logchan

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ncruces/go-strftime"
)

// TimeLayout is the strftime layout prefixed to every line.
const TimeLayout = "%a %b %d %Y %H:%M:%S"

// Timestamp formats t with TimeLayout.
func Timestamp(t time.Time) string {
	return strftime.Format(TimeLayout, t)
}

// Channel writes timestamped lines to an underlying writer. Output is
// buffered until Flush. All methods are safe for concurrent use; a line is
// never interleaved with another.
type Channel struct {
	mu  sync.Mutex
	w   *bufio.Writer
	now func() time.Time
}

// New returns a Channel writing to w.
func New(w io.Writer) *Channel {
	return &Channel{w: bufio.NewWriter(w), now: time.Now}
}

// Rebind flushes pending output to the current writer and directs all
// further lines to w.
func (c *Channel) Rebind(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.w.Flush()
	c.w = bufio.NewWriter(w)
	if err != nil {
		return fmt.Errorf("flush log channel: %w", err)
	}
	return nil
}

// Printf formats a message and appends it as one timestamped line.
// Write errors are retained and reported by the next Flush.
func (c *Channel) Printf(format string, args ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")

	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.WriteString(Timestamp(c.now()))
	c.w.WriteByte(' ')
	c.w.WriteString(msg)
	c.w.WriteByte('\n')
}

// Flush writes any buffered lines to the underlying writer.
func (c *Channel) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("flush log channel: %w", err)
	}
	return nil
}

// Fatalf logs a message and flushes, ignoring flush failures: it is used on
// paths that are about to terminate the process.
func (c *Channel) Fatalf(format string, args ...any) {
	c.Printf(format, args...)
	_ = c.Flush()
}
