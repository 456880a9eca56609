package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"golang.org/x/text/encoding"
)

// Result is the outcome of a process that was launched. A non-zero ExitCode is a
// normal result, not an error.
type Result struct {
	ExitCode int
	Output   string // combined stdout and stderr, decoded
}

// OK reports whether the process exited with code zero.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// CommandRunner abstracts command execution for testability.
// Implementations return an error only when the process could not be launched.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
	RunIn(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// OSRunner executes commands via os/exec and decodes their output with Encoding.
// A nil Encoding passes the raw bytes through unchanged.
type OSRunner struct {
	Encoding encoding.Encoding
}

func (r *OSRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return r.RunIn(ctx, "", name, args...)
}

func (r *OSRunner) RunIn(ctx context.Context, dir, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()

	text := r.decode(out.Bytes())
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{ExitCode: exitErr.ExitCode(), Output: text}, nil
	}
	if err != nil {
		return Result{ExitCode: -1, Output: text}, fmt.Errorf("launching %s: %w", name, err)
	}
	return Result{Output: text}, nil
}

func (r *OSRunner) decode(raw []byte) string {
	if r.Encoding == nil {
		return string(raw)
	}
	decoded, err := r.Encoding.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
