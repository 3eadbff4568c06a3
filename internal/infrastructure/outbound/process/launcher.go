package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/sophialabs/perfaudit/internal/infrastructure/ports"
)

var _ ports.Launcher = (*Launcher)(nil)

// waitDelay bounds how long Launch waits for output pipes after the child
// has been killed.
const waitDelay = 2 * time.Second

// Launcher runs a fixed executable as a child process.
type Launcher struct {
	path string
	env  []string
}

// NewLauncher creates a launcher for the executable at path. env entries
// (KEY=VALUE) are appended to the parent's environment.
func NewLauncher(path string, env ...string) *Launcher {
	return &Launcher{path: path, env: env}
}

// Self returns a launcher that re-executes the running binary.
func Self(env ...string) (*Launcher, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	return NewLauncher(path, env...), nil
}

// Launch runs the child to completion. A non-zero exit is reported through
// the result, not as an error.
func (l *Launcher) Launch(ctx context.Context, args []string) (ports.LaunchResult, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, l.path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), l.env...)
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	res := ports.LaunchResult{ExitCode: -1, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	case err != nil:
		return res, fmt.Errorf("failed to run %s: %w", l.path, err)
	}
	res.ExitCode = 0
	return res, nil
}
