// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"errors"
	"fmt"
)

var (
	// ErrArgumentCollision is returned if two [Argument]s cannot coexist
	// in one command line.
	ErrArgumentCollision = errors.New("colliding monitor arguments")

	// ErrMonitorStartFailed is returned if the monitor process could not
	// be started at all.
	ErrMonitorStartFailed = errors.New("monitor did not start")
)

// SpecError indicates an invalid [CommandSpec].
type SpecError struct {
	msg string
}

// Error implements the [error] interface.
func (e *SpecError) Error() string {
	return "command spec: " + e.msg
}

// Is implements the [errors.Is] interface.
func (*SpecError) Is(other error) bool {
	_, ok := other.(*SpecError)
	return ok
}

// MonitorError wraps a failure of the monitor process itself.
type MonitorError struct {
	Err error
}

// Error implements the [error] interface.
func (e *MonitorError) Error() string {
	return fmt.Sprintf("monitor: %v", e.Err)
}

// Is implements the [errors.Is] interface.
func (*MonitorError) Is(other error) bool {
	_, ok := other.(*MonitorError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *MonitorError) Unwrap() error {
	return e.Err
}
