// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bootheader

import (
	"errors"
	"fmt"
)

var (
	// ErrHeaderNotFound is returned if no known magic value is found within
	// the scan window of a binary.
	ErrHeaderNotFound = errors.New("boot header not found")

	// ErrChecksumMismatch is returned if a magic value is found but the
	// header's integrity invariant does not hold.
	ErrChecksumMismatch = errors.New("boot header checksum mismatch")

	// ErrUnsupportedFlags is returned if a structurally valid header
	// requests optional features that are not supported.
	ErrUnsupportedFlags = errors.New("boot header requests unsupported features")

	// ErrVariantUnknown is returned for an unknown [Variant].
	ErrVariantUnknown = errors.New("unknown boot header variant")
)

// HeaderError describes a failed header validation including where in the
// binary the offending header was found.
type HeaderError struct {
	Location Location
	Err      error
}

// Error implements the [error] interface.
func (e *HeaderError) Error() string {
	return fmt.Sprintf(
		"%s header at offset %#x: %v",
		e.Location.Variant, e.Location.Offset, e.Err,
	)
}

// Is implements the [errors.Is] interface.
func (*HeaderError) Is(other error) bool {
	_, ok := other.(*HeaderError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *HeaderError) Unwrap() error {
	return e.Err
}

func (l Location) wrap(err error) error {
	return &HeaderError{Location: l, Err: err}
}
