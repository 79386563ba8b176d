package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Transport runs a shell command where the Slurm CLI lives.
type Transport interface {
	Run(ctx context.Context, command string) (RunResult, error)
	Describe() string
}

type RunError struct {
	Command  string
	Target   string
	Stdout   string
	Stderr   string
	ExitCode int
	Timeout  bool
	Err      error
}

func (e *RunError) Error() string {
	base := fmt.Sprintf("command failed on %s", e.Target)
	if e.Timeout {
		base += " (timeout)"
	}
	if e.ExitCode != 0 {
		base += fmt.Sprintf(" [exit=%d]", e.ExitCode)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		base += ": " + s
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// run executes cmd and wraps any failure in a RunError describing target.
func run(ctx context.Context, cmd *exec.Cmd, command, target string) (RunResult, error) {
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	result := RunResult{
		Stdout: outBuf.String(),
		Stderr: errBuf.String(),
	}
	if err == nil {
		return result, nil
	}

	runErr := &RunError{
		Command: command,
		Target:  target,
		Stdout:  result.Stdout,
		Stderr:  result.Stderr,
		Err:     err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		runErr.ExitCode = exitErr.ExitCode()
		result.ExitCode = runErr.ExitCode
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		runErr.Timeout = true
	}
	return result, runErr
}

var retrySignals = []string{
	"connection reset",
	"broken pipe",
	"timed out",
	"network is unreachable",
	"temporary failure",
	"connection closed",
	"no route to host",
	"connection refused",
	"slurm_load_jobs error",
	"slurm_load_node error",
	"socket timed out",
}

// IsRetryable reports whether err looks like a transient SSH, network or
// slurmctld failure rather than a broken command.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
		return true
	}

	var runErr *RunError
	if !errors.As(err, &runErr) {
		return false
	}
	if runErr.Timeout || runErr.ExitCode == 255 {
		return true
	}
	stderr := strings.ToLower(runErr.Stderr)
	for _, signal := range retrySignals {
		if strings.Contains(stderr, signal) {
			return true
		}
	}
	return false
}
