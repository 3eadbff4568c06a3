package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/sophialabs/perfaudit/internal/domain/smoke"
	"github.com/sophialabs/perfaudit/internal/infrastructure/ports"
)

var _ ports.Logger = (*NoopLogger)(nil)

// NoopLogger discards all log output.
type NoopLogger struct{}

func (l *NoopLogger) Info(string, ...any)      {}
func (l *NoopLogger) Warn(string, ...any)      {}
func (l *NoopLogger) Error(string, ...any)     {}
func (l *NoopLogger) Debug(string, ...any)     {}
func (l *NoopLogger) With(...any) ports.Logger { return l }

var _ ports.Clock = (*FixedClock)(nil)

// FixedClock returns a fixed time and never sleeps.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time                  { return c.T }
func (c *FixedClock) Since(t time.Time) time.Duration { return c.T.Sub(t) }
func (c *FixedClock) SleepContext(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

var _ ports.RateLimiter = (*StubRateLimiter)(nil)

// StubRateLimiter returns a configurable Allow result.
type StubRateLimiter struct {
	AllowAll bool
}

func (r *StubRateLimiter) Allow(context.Context, string, float64, int) bool {
	return r.AllowAll
}

var _ ports.Launcher = (*StubLauncher)(nil)

// StubLauncher answers launches from a function and records the calls.
type StubLauncher struct {
	Fn func(ctx context.Context, args []string) (ports.LaunchResult, error)

	mu    sync.Mutex
	calls [][]string
}

func (l *StubLauncher) Launch(ctx context.Context, args []string) (ports.LaunchResult, error) {
	l.mu.Lock()
	l.calls = append(l.calls, append([]string(nil), args...))
	l.mu.Unlock()
	if l.Fn == nil {
		return ports.LaunchResult{}, nil
	}
	return l.Fn(ctx, args)
}

// Calls returns the argument lists of every launch, in call order.
func (l *StubLauncher) Calls() [][]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]string(nil), l.calls...)
}

var _ ports.OutcomeRenderer = (*StubRenderer)(nil)

// StubRenderer renders every outcome as its test id.
type StubRenderer struct{}

func (StubRenderer) Render(o smoke.Outcome) (string, error) { return o.TestID, nil }

var _ ports.ExpectationEvaluator = (*StubEvaluator)(nil)

// StubEvaluator passes every expectation unless Fail names its path.
type StubEvaluator struct {
	Fail map[string]bool
}

func (e *StubEvaluator) Evaluate(_ any, exp smoke.Expectation) smoke.Check {
	return smoke.Check{Path: exp.Path, Assert: exp.Assert, Passed: !e.Fail[exp.Path]}
}
