package adb

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Output is the result of a single adb invocation.
type Output struct {
	// Args holds the arguments passed to adb, without the executable.
	Args     []string
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Success returns true if adb exited with status 0.
func (o *Output) Success() bool {
	return o.ExitCode == 0
}

// String returns stdout with surrounding whitespace removed.
func (o *Output) String() string {
	return strings.TrimSpace(string(o.Stdout))
}

// Runner runs an executable to completion.
// A non-zero exit status is reported in Output.ExitCode, not as an error;
// the error is only set when the process could not be run at all.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Output, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, name string, args ...string) (*Output, error)

func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) (*Output, error) {
	return f(ctx, name, args...)
}

// ExecRunner runs executables with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (*Output, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	out := &Output{Args: args}
	err := cmd.Run()
	out.Stdout = stdout.Bytes()
	out.Stderr = stderr.Bytes()
	return exitResult(ctx, name, out, err)
}

// exitResult maps the error of a finished process onto Output. The context
// only matters if the process did not exit cleanly.
func exitResult(ctx context.Context, name string, out *Output, err error) (*Output, error) {
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return out, errors.Wrapf(ctx.Err(), "running %s", name)
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	return out, errors.Wrapf(err, "running %s", name)
}
