// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package mount

import (
	"errors"
	"fmt"
)

// ErrMountConflict is returned if another acquisition is outstanding for
// the same image path. The image is not touched in that case.
var ErrMountConflict = errors.New("image is already mounted")

// Error describes a failed mount operation.
type Error struct {
	Op   string
	Path string
	Err  error
}

// Error implements the [error] interface.
func (e *Error) Error() string {
	return fmt.Sprintf("mount %s %s: %v", e.Op, e.Path, e.Err)
}

// Is implements the [errors.Is] interface.
func (*Error) Is(other error) bool {
	_, ok := other.(*Error)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *Error) Unwrap() error {
	return e.Err
}
