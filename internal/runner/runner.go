// Package runner executes the wrapped build command: spawn, signal
// forwarding, reap, and timing. It knows nothing about telemetry — span and
// metric construction happen after the child is fully reaped, so an export
// problem can never interfere with the command's real outcome.
package runner

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/tracebuild/tracebuild/internal/timestamp"
)

// ExitOSErr is the exit status for spawn failures (EX_OSERR from sysexits).
const ExitOSErr = 71

// SpawnError reports that the wrapped executable could not be started at
// all (missing or unrunnable). It is fatal and no span is emitted for it.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("runner: failed to start %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Result describes one finished child process.
type Result struct {
	// ExitCode is the child's real exit code. A child terminated by a
	// signal gets the negative of the signal number as a distinguishable
	// sentinel (-15 for SIGTERM).
	ExitCode int
	Signaled bool
	Start    timestamp.Timestamp
	End      timestamp.Timestamp
}

// Run spawns the command with inherited standard streams and waits for it.
// Streams are not captured: buffering a long-running build's output would
// grow without bound and break interactive children.
//
// SIGTERM and SIGINT received while the child runs are forwarded to it, and
// the child is still reaped afterwards so its exit status is reported
// accurately.
func Run(command string, args []string) (Result, error) {
	cmd := exec.Command(command, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// Start time immediately before spawn, end time immediately after reap:
	// the span covers the child's whole lifetime and nothing else.
	start := timestamp.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, &SpawnError{Command: command, Err: err}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				if err := cmd.Process.Signal(sig); err != nil {
					fmt.Fprintf(os.Stderr, "tracebuild: failed to forward %s to child: %v\n", sig, err)
				}
			case <-done:
				return
			}
		}
	}()

	waitErr := cmd.Wait()
	end := timestamp.Now()
	signal.Stop(sigCh)
	close(done)

	res := Result{Start: start, End: end}
	if waitErr == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			res.ExitCode = -int(ws.Signal())
			res.Signaled = true
			return res, nil
		}
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	// Wait failed for a non-exit reason (I/O on the process handle). The
	// child's status is unknown; report a plain failure.
	res.ExitCode = 1
	return res, fmt.Errorf("runner: wait for %s: %w", command, waitErr)
}

// ExitStatus maps a Result exit code onto a process exit status: the
// negative signal sentinel becomes the conventional 128+signal, everything
// else passes through.
func ExitStatus(code int) int {
	if code < 0 {
		return 128 - code
	}
	return code
}
