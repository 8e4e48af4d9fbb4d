// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package staging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const defaultDirMode = 0o755

// WorkDir is a staged working directory. Its lifetime is owned by the
// caller. [WorkDir.Remove] must be called on every exit path once the
// builder consumed it.
type WorkDir struct {
	path    string
	removed bool
}

// SessionPath returns a working directory path under base that is unique to
// this launch session, so concurrent launches never share staging state.
func SessionPath(base string) string {
	return filepath.Join(base, "bootstage-"+uuid.NewString())
}

// Stage creates the working directory at dir and copies all manifest
// entries into it.
//
// A pre-existing directory at dir is destroyed first so stale files from a
// previous failed run cannot leak into the new media. Permission bits of
// each source are preserved, which keeps the boot binary executable. The
// first failing entry aborts staging with an [IOError]; partially staged
// directories are removed.
func Stage(dir string, manifest *Manifest) (*WorkDir, error) {
	if err := os.RemoveAll(dir); err != nil {
		return nil, &IOError{Op: "clear", Path: dir, Err: err}
	}

	if err := os.MkdirAll(dir, defaultDirMode); err != nil {
		return nil, &IOError{Op: "create", Path: dir, Err: err}
	}

	workDir := &WorkDir{path: dir}

	for _, entry := range manifest.Entries() {
		destination := filepath.Join(dir, entry.Destination)

		err := copyFile(entry.Source, destination)
		if err != nil {
			_ = workDir.Remove()

			return nil, &IOError{Op: "stage", Path: entry.Source, Err: err}
		}

		slog.Debug("staged file",
			slog.String("source", entry.Source),
			slog.String("destination", destination),
		)
	}

	return workDir, nil
}

// Path returns the absolute location of the working directory.
func (w *WorkDir) Path() string {
	return w.path
}

// Join returns the given path elements joined below the working directory.
func (w *WorkDir) Join(elements ...string) string {
	return filepath.Join(append([]string{w.path}, elements...)...)
}

// Remove deletes the working directory and everything in it. It is
// idempotent so cleanup code can call it unconditionally.
func (w *WorkDir) Remove() error {
	if w.removed {
		return nil
	}

	if err := os.RemoveAll(w.path); err != nil {
		return fmt.Errorf("remove workdir: %w", err)
	}

	w.removed = true

	return nil
}

func copyFile(source, destination string) error {
	src, err := os.Open(source)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrSourceNotRegular, source)
	}

	if err := os.MkdirAll(filepath.Dir(destination), defaultDirMode); err != nil {
		return err
	}

	dst, err := os.OpenFile(
		destination,
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC,
		info.Mode().Perm(),
	)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()

		return err
	}

	return dst.Close()
}
