// Package runner is the host-process execution facility used for CodeQL
// invocations and PoC runs. Commands are explicit argument vectors with a
// working directory and wall-clock timeout; there is no shell
// interpolation anywhere in the pipeline.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Command describes one external invocation.
type Command struct {
	Argv    []string      // program and arguments; Argv[0] is resolved via PATH
	Dir     string        // working directory ("" = inherit)
	Env     []string      // extra environment entries appended to the parent's
	Timeout time.Duration // wall-clock bound; 0 means no bound
}

// Result captures what the process did. Output is combined stdout+stderr.
type Result struct {
	Output   string
	ExitCode int
	TimedOut bool
}

// Runner executes commands. The interface exists so the verification
// machine and the CodeQL manager can be driven by a scripted fake in tests.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands on the host via os/exec.
type ExecRunner struct{}

// Run executes cmd and returns its combined output. A non-zero exit is not
// an error: the Result carries the exit code and the caller classifies the
// output. An error is returned only when the process could not be run at
// all (missing binary, bad working directory) or was cut off by the
// timeout, in which case Result.TimedOut is set alongside partial output.
func (ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if len(cmd.Argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(runCtx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}

	output, err := c.CombinedOutput()
	res := &Result{Output: string(output)}

	if runCtx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitCode = -1
		return res, fmt.Errorf("command %s timed out after %v", cmd.Argv[0], cmd.Timeout)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		// Could not start: missing binary, permission, bad dir.
		res.ExitCode = -1
		return res, fmt.Errorf("command %s failed to start: %w", cmd.Argv[0], err)
	}

	return res, nil
}
