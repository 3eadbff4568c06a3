package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sophialabs/perfaudit/internal/domain/smoke"
	"github.com/sophialabs/perfaudit/internal/infrastructure/ports"
)

// SmokeOptions controls how a suite is run.
type SmokeOptions struct {
	// Args is the argument list for one child process, before "--test <id>".
	Args []string
	// Parallelism bounds concurrent children in the parallel batch.
	Parallelism int
	// Timeout is the wall-clock limit for one test.
	Timeout time.Duration
	// Cooldown is the pause between serial tests.
	Cooldown time.Duration
	// ForceSerial runs every test in the serial batch.
	ForceSerial bool
}

// RunSmokeUseCase runs each smoke test in its own child process.
type RunSmokeUseCase struct {
	launcher ports.Launcher
	renderer ports.OutcomeRenderer
	clock    ports.Clock
	logger   ports.Logger
	opts     SmokeOptions

	outMu sync.Mutex
	out   io.Writer
}

// NewRunSmokeUseCase creates a new use case that prints each outcome to out
// as soon as it finishes.
func NewRunSmokeUseCase(
	launcher ports.Launcher,
	renderer ports.OutcomeRenderer,
	clock ports.Clock,
	logger ports.Logger,
	out io.Writer,
	opts SmokeOptions,
) *RunSmokeUseCase {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	return &RunSmokeUseCase{
		launcher: launcher,
		renderer: renderer,
		clock:    clock,
		logger:   logger,
		opts:     opts,
		out:      out,
	}
}

// Execute runs the selected tests: the parallel batch first, then the serial
// tests one at a time in suite order. A failing or timed-out test never stops
// the others. Outcomes are returned in suite order.
func (uc *RunSmokeUseCase) Execute(ctx context.Context, suite smoke.Suite, ids []string) ([]smoke.Outcome, error) {
	tests, err := suite.Select(ids)
	if err != nil {
		return nil, err
	}
	parallel, serial := smoke.Partition(tests, uc.opts.ForceSerial)

	uc.logger.Info("running smoke tests", "parallel", len(parallel), "serial", len(serial))

	byID := make(map[string]smoke.Outcome, len(tests))
	var mu sync.Mutex
	record := func(o smoke.Outcome) {
		mu.Lock()
		byID[o.TestID] = o
		mu.Unlock()
		uc.print(o)
	}

	var eg errgroup.Group
	eg.SetLimit(uc.opts.Parallelism)
	for _, t := range parallel {
		eg.Go(func() error {
			record(uc.runOne(ctx, t))
			return nil
		})
	}
	_ = eg.Wait()

	for i, t := range serial {
		if i > 0 && uc.opts.Cooldown > 0 {
			if err := uc.clock.SleepContext(ctx, uc.opts.Cooldown); err != nil {
				return collect(tests, byID), err
			}
		}
		record(uc.runOne(ctx, t))
	}

	return collect(tests, byID), nil
}

func (uc *RunSmokeUseCase) runOne(ctx context.Context, t smoke.Test) (o smoke.Outcome) {
	o.TestID = t.ID
	start := uc.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			o.Passed = false
			o.Err = fmt.Sprintf("panic: %v", r)
		}
		o.Duration = uc.clock.Since(start)
	}()

	tctx := ctx
	if uc.opts.Timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, uc.opts.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), uc.opts.Args...), "--test", t.ID)
	res, err := uc.launcher.Launch(tctx, args)
	o.ExitCode = res.ExitCode
	o.Stdout = string(res.Stdout)
	o.Stderr = string(res.Stderr)

	switch {
	case err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		o.TimedOut = true
		o.Err = fmt.Sprintf("timed out after %s", uc.opts.Timeout)
	case err != nil:
		o.Err = err.Error()
	default:
		o.Passed = res.ExitCode == 0
	}

	if !o.Passed {
		uc.logger.Warn("smoke test failed", "test", t.ID, "exit_code", o.ExitCode, "timed_out", o.TimedOut)
	}
	return o
}

func (uc *RunSmokeUseCase) print(o smoke.Outcome) {
	text, err := uc.renderer.Render(o)
	if err != nil {
		uc.logger.Error("failed to render smoke outcome", "test", o.TestID, "error", err)
		text = fmt.Sprintf("%s: passed=%v", o.TestID, o.Passed)
	}

	uc.outMu.Lock()
	defer uc.outMu.Unlock()
	fmt.Fprintln(uc.out, text)
}

func collect(tests []smoke.Test, byID map[string]smoke.Outcome) []smoke.Outcome {
	out := make([]smoke.Outcome, 0, len(byID))
	for _, t := range tests {
		if o, ok := byID[t.ID]; ok {
			out = append(out, o)
		}
	}
	return out
}
