// Command testd is a long-running program used to exercise daemonizer. It
// reports on standard output and standard error at a fixed interval so the
// log shows that both streams reach it.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	interval := pflag.Duration("interval", time.Second, "Time between reports")
	count := pflag.Int("count", 0, "Number of reports before exiting (0 runs until terminated)")
	dumpEnv := pflag.Bool("env", false, "Print the environment once at startup")
	pflag.Parse()

	if *dumpEnv {
		env := os.Environ()
		sort.Strings(env)
		for _, kv := range env {
			fmt.Printf("env %s\n", kv)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for n := 1; *count == 0 || n <= *count; n++ {
		fmt.Fprintf(os.Stdout, "running (out) %d\n", n)
		fmt.Fprintf(os.Stderr, "running (err) %d\n", n)
		select {
		case <-ticker.C:
		case sig := <-sigCh:
			fmt.Printf("exiting on %v\n", sig)
			return
		}
	}
}
