// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// Command is a single compiled monitor invocation.
type Command struct {
	executable   string
	args         []string
	debugLogPath string
	networking   bool
	tapDevice    string
}

// Result carries the outcome of a finished VM session.
type Result struct {
	// ExitCode is the monitor's own exit code. Signal terminations are
	// mapped to 128 plus the signal number.
	ExitCode int

	// Signal is set if the monitor was terminated by a signal.
	Signal string

	// DebugLogPath is the resolved debug console capture file. It exists
	// after a session, possibly empty.
	DebugLogPath string
}

// NewCommand compiles the given spec into a runnable [Command].
func NewCommand(spec CommandSpec) (*Command, error) {
	spec.AddDefaults()

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	args, err := spec.arguments().Build()
	if err != nil {
		return nil, err
	}

	return &Command{
		executable:   spec.Executable,
		args:         args,
		debugLogPath: spec.DebugLogPath,
		networking:   spec.NetworkingEnabled,
		tapDevice:    spec.TapDevice,
	}, nil
}

// String implements [fmt.Stringer].
func (c *Command) String() string {
	return c.executable + " " + strings.Join(c.args, " ")
}

// Args returns the compiled argument strings.
func (c *Command) Args() []string {
	return c.args
}

// DebugLogPath returns the file the debug console is captured to.
func (c *Command) DebugLogPath() string {
	return c.debugLogPath
}

// Run starts the monitor and blocks until it terminates or ctx is
// cancelled.
//
// The debug console device writes into an extra file descriptor whose
// content is pumped into the log file for the whole session. The log file
// is created fresh (truncated) before the monitor starts, so it exists
// even if the session produces no output. A non-zero or signal-terminated
// monitor exit is reported in the [Result], never suppressed.
func (c *Command) Run(
	ctx context.Context,
	stdout, stderr io.Writer,
) (*Result, error) {
	if c.networking {
		if err := ensureTap(c.tapDevice); err != nil {
			return nil, fmt.Errorf("setup tap device: %w", err)
		}
	}

	logFile, err := os.OpenFile(
		c.debugLogPath,
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_APPEND,
		0o644,
	)
	if err != nil {
		return nil, fmt.Errorf("create debug log: %w", err)
	}
	defer logFile.Close()

	readPipe, writePipe, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create console pipe: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.executable, c.args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.ExtraFiles = []*os.File{writePipe}

	slog.Debug("starting monitor", slog.String("command", c.String()))

	var pump errgroup.Group

	pump.Go(func() error {
		defer readPipe.Close()

		_, err := io.Copy(logFile, readPipe)
		if err != nil {
			return fmt.Errorf("capture debug console: %w", err)
		}

		return nil
	})

	if err := cmd.Start(); err != nil {
		_ = writePipe.Close()
		_ = pump.Wait()

		return nil, &MonitorError{
			Err: fmt.Errorf("%w: %w", ErrMonitorStartFailed, err),
		}
	}

	// Close the parent's copy so the pump terminates with the child.
	_ = writePipe.Close()

	waitErr := cmd.Wait()
	pumpErr := pump.Wait()

	result := &Result{DebugLogPath: c.debugLogPath}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, &MonitorError{Err: waitErr}
		}

		result.ExitCode = exitErr.ExitCode()

		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok &&
			status.Signaled() {
			result.ExitCode = 128 + int(status.Signal())
			result.Signal = status.Signal().String()
		}

		slog.Warn("monitor terminated",
			slog.Int("exitcode", result.ExitCode),
			slog.String("signal", result.Signal),
		)
	}

	if ctx.Err() != nil {
		return result, fmt.Errorf("session cancelled: %w", ctx.Err())
	}

	if pumpErr != nil {
		return result, pumpErr
	}

	return result, nil
}
