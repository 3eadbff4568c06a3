// smokehouse runs the perfaudit smoke suite: every test audits a stored
// capture in its own child process and checks expectations against the report.
//
// Usage:
//
//	smokehouse run [ids...] [--parallel N] [--timeout D] [--serial] [--format text|compact]
//	smokehouse one --test <id>
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitError ends the process with code without printing anything; the
// command has already reported its results.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
