package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"wifski/logger"
)

// Result is what a finished invocation reports back.
type Result struct {
	ExitCode int
	Stderr   string
}

// Runner executes an external program synchronously. A non-zero exit is
// reported through Result.ExitCode with a nil error; the error is reserved for
// programs that could not be started or were killed by ctx.
type Runner interface {
	Run(ctx context.Context, name string, args []string) (Result, error)
}

// DefaultWaitDelay bounds how long Run keeps reading stderr after the
// process was killed or exited while a child still holds the pipe open.
const DefaultWaitDelay = 3 * time.Second

// ExecRunner runs programs with os/exec and captures stderr.
type ExecRunner struct {
	WaitDelay time.Duration // zero selects DefaultWaitDelay
}

func (r ExecRunner) Run(ctx context.Context, name string, args []string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	res := Result{Stderr: stderrBuf.String()}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s killed: %w", name, ctxErr)
	}
	// exited 0 but a leftover child kept stderr open
	if errors.Is(err, exec.ErrWaitDelay) {
		return res, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	res.ExitCode = -1
	return res, err
}

// Available reports whether the named command resolves on PATH.
func Available(cmdName string) error {
	if _, err := exec.LookPath(cmdName); err != nil {
		return fmt.Errorf("command '%s' not found in PATH: %w", cmdName, err)
	}
	return nil
}

// CheckFFmpeg logs whether the configured ffmpeg binary can be found. The
// server still starts without it; every conversion will then fail in pass 1.
func CheckFFmpeg(path string) bool {
	if err := Available(path); err != nil {
		logger.Warnf("encoder [gif] unavailable: %v", err)
		return false
	}
	logger.Debugf("encoder [gif] registered (command: %s)", path)
	return true
}
