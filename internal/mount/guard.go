// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package mount

import (
	"errors"
	"log/slog"
	"os"

	"github.com/gofrs/flock"
)

// Mount is a held loop mount of a filesystem image. It is only meaningful
// between [Acquire] and [Mount.Release].
type Mount struct {
	imagePath  string
	mountPoint string
	device     string
	lock       *flock.Flock
	sys        system
	released   bool
}

// Acquire loop-mounts the image at imagePath on a freshly created mount
// point.
//
// Only one [Mount] may be held per image path at a time, across processes.
// A second acquisition fails immediately with [ErrMountConflict] instead of
// blocking.
func Acquire(imagePath string) (*Mount, error) {
	return acquire(imagePath, realSystem{})
}

func acquire(imagePath string, sys system) (*Mount, error) {
	lock := flock.New(imagePath + ".lock")

	locked, err := lock.TryLock()
	if err != nil {
		return nil, &Error{Op: "lock", Path: imagePath, Err: err}
	}

	if !locked {
		return nil, &Error{Op: "lock", Path: imagePath, Err: ErrMountConflict}
	}

	mountPoint, err := os.MkdirTemp("", "bootstage-mnt-")
	if err != nil {
		_ = lock.Unlock()

		return nil, &Error{Op: "mkdir", Path: imagePath, Err: err}
	}

	device, err := sys.attach(imagePath)
	if err != nil {
		_ = os.Remove(mountPoint)
		_ = lock.Unlock()

		return nil, &Error{Op: "attach", Path: imagePath, Err: err}
	}

	if err := sys.mount(device, mountPoint); err != nil {
		_ = sys.detach(device)
		_ = os.Remove(mountPoint)
		_ = lock.Unlock()

		return nil, &Error{Op: "mount", Path: imagePath, Err: err}
	}

	slog.Debug("acquired mount",
		slog.String("image", imagePath),
		slog.String("device", device),
		slog.String("mountpoint", mountPoint),
	)

	return &Mount{
		imagePath:  imagePath,
		mountPoint: mountPoint,
		device:     device,
		lock:       lock,
		sys:        sys,
	}, nil
}

// MountPoint returns the directory the image content is visible at.
func (m *Mount) MountPoint() string {
	return m.mountPoint
}

// Release unmounts the image, detaches the loop device and removes the
// mount point. Calling it on an already released handle is a no-op, not an
// error, so it can be deferred unconditionally.
func (m *Mount) Release() error {
	if m.released {
		return nil
	}

	m.released = true

	var errs []error

	if err := m.sys.unmount(m.mountPoint); err != nil {
		errs = append(errs, &Error{Op: "unmount", Path: m.imagePath, Err: err})
	}

	if err := m.sys.detach(m.device); err != nil {
		errs = append(errs, &Error{Op: "detach", Path: m.imagePath, Err: err})
	}

	if err := os.Remove(m.mountPoint); err != nil {
		errs = append(errs, &Error{Op: "cleanup", Path: m.imagePath, Err: err})
	}

	if err := m.lock.Unlock(); err != nil {
		errs = append(errs, &Error{Op: "unlock", Path: m.imagePath, Err: err})
	}

	return errors.Join(errs...)
}
