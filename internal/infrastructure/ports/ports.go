package ports

import (
	"context"
	"time"

	"github.com/sophialabs/perfaudit/internal/domain/smoke"
)

// Clock provides the current time (for testing).
type Clock interface {
	Now() time.Time
	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration
	// SleepContext blocks for d or until ctx is cancelled. Returns ctx.Err() if cancelled.
	SleepContext(ctx context.Context, d time.Duration) error
}

// Logger provides structured logging.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
	// With returns a logger that adds args to every record.
	With(args ...any) Logger
}

// RateLimiter checks whether a request is allowed under rate limits.
type RateLimiter interface {
	// Allow checks if a request identified by key is within the rate limit.
	// rate is tokens per second, burst is the max burst size.
	Allow(ctx context.Context, key string, rate float64, burst int) bool
}

// LaunchResult is what a finished child process left behind.
type LaunchResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Launcher starts an isolated child process and waits for it. Cancelling ctx
// kills the process; the returned error is then ctx.Err().
type Launcher interface {
	Launch(ctx context.Context, args []string) (LaunchResult, error)
}

// ExpectationEvaluator checks one smoke expectation against a decoded report.
type ExpectationEvaluator interface {
	Evaluate(report any, exp smoke.Expectation) smoke.Check
}

// OutcomeRenderer formats a finished smoke test for the terminal.
type OutcomeRenderer interface {
	Render(o smoke.Outcome) (string, error)
}
