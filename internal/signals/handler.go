package signals

import (
	"os"
	"os/signal"
	"syscall"
)

// Log is the sink the handler reports to.
type Log interface {
	Printf(format string, args ...any)
	Flush() error
}

// Handler applies a Policy to delivered signals. It is installed once and
// lives until the process image is replaced.
type Handler struct {
	policy Policy
	log    Log
	ch     chan os.Signal
	done   chan struct{}

	// exit is os.Exit outside of tests.
	exit func(int)
}

// Install starts delivering the policy's signals to a handler goroutine.
// Installing overrides the default disposition of every watched signal.
func Install(policy Policy, log Log) *Handler {
	h := newHandler(policy, log)
	sigs := make([]os.Signal, 0, len(policy))
	for _, sig := range policy.Signals() {
		sigs = append(sigs, sig)
	}
	signal.Notify(h.ch, sigs...)
	go h.loop()
	return h
}

func newHandler(policy Policy, log Log) *Handler {
	return &Handler{
		policy: policy,
		log:    log,
		ch:     make(chan os.Signal, 4),
		done:   make(chan struct{}),
		exit:   os.Exit,
	}
}

// Stop restores default handling for the watched signals.
func (h *Handler) Stop() {
	signal.Stop(h.ch)
	close(h.done)
}

func (h *Handler) loop() {
	for {
		select {
		case sig := <-h.ch:
			h.handle(sig)
		case <-h.done:
			return
		}
	}
}

// handle flushes pending output, records the signal number and applies the
// configured action.
func (h *Handler) handle(sig os.Signal) {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return
	}
	_ = h.log.Flush()
	h.log.Printf("Caught signal %d", int(s))
	_ = h.log.Flush()
	if h.policy[s] == LogAndTerminate {
		h.exit(1)
	}
}
