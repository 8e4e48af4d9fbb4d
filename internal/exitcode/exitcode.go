// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package exitcode maps pipeline failures to process exit codes.
//
// A clean session exits with the monitor's own exit code. Failures before
// the monitor ran get a distinct code per pipeline phase so callers can
// tell a bad boot binary from a tooling problem without parsing stderr.
package exitcode

import (
	"errors"
	"fmt"

	"github.com/hvforge/bootstage/internal/bootheader"
	"github.com/hvforge/bootstage/internal/media"
	"github.com/hvforge/bootstage/internal/mount"
	"github.com/hvforge/bootstage/internal/qemu"
	"github.com/hvforge/bootstage/internal/staging"
)

const (
	// Success is the exit code of a clean run.
	Success = 0

	// CodeInternal is the fallback for errors no phase claims.
	CodeInternal = 1

	// CodeUsage covers invalid flags, config and command specs.
	CodeUsage = 2

	// CodeHeader covers boot header validation failures.
	CodeHeader = 3

	// CodeStaging covers working directory population failures.
	CodeStaging = 4

	// CodeMedia covers media image build and mount failures.
	CodeMedia = 5

	// CodeMonitor covers monitor processes that could not be started.
	CodeMonitor = 6
)

// Error is a monitor exit code that is passed through as is.
type Error int

// Error implements the [error] interface.
func (e Error) Error() string {
	return fmt.Sprintf("non-zero monitor exit code: %d", int(e))
}

// Is implements the [errors.Is] interface.
func (Error) Is(other error) bool {
	_, ok := other.(Error)
	return ok
}

// Code returns the exit code as basic int type.
func (e Error) Code() int {
	return int(e)
}

// For returns the process exit code for the given error.
//
// A nil error is [Success]. A wrapped [Error] carries a monitor exit code
// and is passed through unchanged. All other errors map to the code of the
// pipeline phase they belong to.
func For(err error) int {
	if err == nil {
		return Success
	}

	var codeErr Error
	if errors.As(err, &codeErr) {
		return codeErr.Code()
	}

	switch {
	case errors.Is(err, &qemu.SpecError{}),
		errors.Is(err, qemu.ErrArgumentCollision),
		errors.Is(err, media.ErrProtocolUnknown):
		return CodeUsage
	case errors.Is(err, &bootheader.HeaderError{}),
		errors.Is(err, bootheader.ErrHeaderNotFound),
		errors.Is(err, bootheader.ErrChecksumMismatch),
		errors.Is(err, bootheader.ErrUnsupportedFlags),
		errors.Is(err, bootheader.ErrVariantUnknown):
		return CodeHeader
	case errors.Is(err, &staging.IOError{}),
		errors.Is(err, staging.ErrDestinationTaken),
		errors.Is(err, staging.ErrDestinationInvalid),
		errors.Is(err, staging.ErrSourceNotRegular):
		return CodeStaging
	case errors.Is(err, &media.BuildError{}),
		errors.Is(err, media.ErrInsufficientMediaSize),
		errors.Is(err, media.ErrWorkDirIncomplete),
		errors.Is(err, &mount.Error{}),
		errors.Is(err, mount.ErrMountConflict):
		return CodeMedia
	case errors.Is(err, &qemu.MonitorError{}),
		errors.Is(err, qemu.ErrMonitorStartFailed):
		return CodeMonitor
	default:
		return CodeInternal
	}
}
