// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package staging

import (
	"errors"
	"fmt"
)

var (
	// ErrDestinationTaken is returned if a manifest destination path is
	// claimed twice.
	ErrDestinationTaken = errors.New("destination path already in manifest")

	// ErrDestinationInvalid is returned if a destination path would escape
	// the working directory.
	ErrDestinationInvalid = errors.New("destination path not relative to workdir")

	// ErrSourceNotRegular is returned if a manifest source is not a regular
	// file.
	ErrSourceNotRegular = errors.New("source is not a regular file")
)

// IOError describes a failed staging operation with the offending path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the [error] interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("staging %s %s: %v", e.Op, e.Path, e.Err)
}

// Is implements the [errors.Is] interface.
func (*IOError) Is(other error) bool {
	_, ok := other.(*IOError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *IOError) Unwrap() error {
	return e.Err
}
