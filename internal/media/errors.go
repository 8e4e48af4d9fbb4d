// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProtocolUnknown is returned for an unknown [BootProtocol].
	ErrProtocolUnknown = errors.New("unknown boot protocol")

	// ErrWorkDirIncomplete is returned if a required staged file is missing
	// from the working directory.
	ErrWorkDirIncomplete = errors.New("working directory misses staged file")

	// ErrInsufficientMediaSize is returned if the configured media capacity
	// cannot hold the staged payloads. Payloads are never truncated.
	ErrInsufficientMediaSize = errors.New("media size too small for payloads")
)

// BuildError wraps a failed external image build tool invocation together
// with its captured output.
type BuildError struct {
	Tool   string
	Output []byte
	Err    error
}

// Error implements the [error] interface.
func (e *BuildError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Tool, e.Err)

	if out := strings.TrimSpace(string(e.Output)); out != "" {
		msg += "\n" + out
	}

	return msg
}

// Is implements the [errors.Is] interface.
func (*BuildError) Is(other error) bool {
	_, ok := other.(*BuildError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *BuildError) Unwrap() error {
	return e.Err
}
