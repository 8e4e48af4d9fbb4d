// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hvforge/bootstage/internal/mount"
	"github.com/hvforge/bootstage/internal/staging"
)

const (
	// DefaultMediaCapacity is the removable image size. Small and fixed;
	// the media only carries the boot binary and a few payloads.
	DefaultMediaCapacity = 50 * 1024 * 1024

	// filesystemOverhead reserves space for FAT metadata when checking
	// whether the payloads fit.
	filesystemOverhead = 1024 * 1024

	defaultFormatter = "mkfs.vfat"

	// AutorunScriptName is executed unconditionally by UEFI firmware when
	// the media is the boot device.
	AutorunScriptName = "startup.nsh"
)

// autorunScript loads and runs the boot binary under its fixed media name.
// The firmware shell interpreting it is extremely limited, so the script is
// intentionally static and carries no conditional logic.
const autorunScript = "@echo -off\nfs0:\n" + UEFIBinaryName + "\n"

// RemovableBuilder produces a FAT formatted removable media image that
// UEFI class firmware boots via the autorun script.
type RemovableBuilder struct {
	// CapacityBytes is the size of the zero-filled image. Defaults to
	// [DefaultMediaCapacity].
	CapacityBytes int64

	// Formatter is the FAT formatting tool to invoke. Defaults to
	// mkfs.vfat.
	Formatter string

	// acquireFn is swappable for tests that cannot perform privileged
	// mounts.
	acquireFn func(imagePath string) (mountHandle, error)
}

type mountHandle interface {
	MountPoint() string
	Release() error
}

// Protocol implements [Builder].
func (*RemovableBuilder) Protocol() BootProtocol {
	return ProtocolRemovableUEFI
}

// Build allocates and formats the image, loop-mounts it, injects the
// autorun script plus all staged files and releases the mount before
// returning. The mount is released on every exit path.
func (b *RemovableBuilder) Build(
	ctx context.Context,
	workDir *staging.WorkDir,
	outputPath string,
) (*Artifact, error) {
	if err := requireStaged(workDir, UEFIBinaryName); err != nil {
		return nil, err
	}

	capacity := b.CapacityBytes
	if capacity <= 0 {
		capacity = DefaultMediaCapacity
	}

	if err := checkCapacity(workDir.Path(), capacity); err != nil {
		return nil, err
	}

	if err := allocateImage(outputPath, capacity); err != nil {
		return nil, err
	}

	if err := b.format(ctx, outputPath); err != nil {
		return nil, err
	}

	if err := b.populate(outputPath, workDir.Path()); err != nil {
		return nil, err
	}

	return newArtifact(b.Protocol(), outputPath)
}

// populate mounts the formatted image and fills it. Split out so the
// release is scoped tightly around the window the mount is actually held.
func (b *RemovableBuilder) populate(outputPath, stagedDir string) error {
	acquireFn := b.acquireFn
	if acquireFn == nil {
		acquireFn = func(imagePath string) (mountHandle, error) {
			return mount.Acquire(imagePath)
		}
	}

	handle, err := acquireFn(outputPath)
	if err != nil {
		return err
	}
	defer handle.Release() //nolint:errcheck

	root := handle.MountPoint()

	scriptPath := filepath.Join(root, AutorunScriptName)
	if err := os.WriteFile(scriptPath, []byte(autorunScript), 0o644); err != nil {
		return fmt.Errorf("write autorun script: %w", err)
	}

	if err := copyTree(stagedDir, root); err != nil {
		return fmt.Errorf("fill media: %w", err)
	}

	return handle.Release()
}

func (b *RemovableBuilder) format(ctx context.Context, imagePath string) error {
	formatter := b.Formatter
	if formatter == "" {
		formatter = defaultFormatter
	}

	cmd := exec.CommandContext(ctx, formatter, imagePath)

	slog.Debug("formatting media", slog.String("command", cmd.String()))

	output, err := cmd.CombinedOutput()
	if err != nil {
		return &BuildError{Tool: formatter, Output: output, Err: err}
	}

	return nil
}

// checkCapacity fails early if the staged payloads cannot fit. Undersized
// media is an explicit error, never silent truncation.
func checkCapacity(stagedDir string, capacity int64) error {
	var required int64 = filesystemOverhead + int64(len(autorunScript))

	err := filepath.WalkDir(stagedDir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		required += info.Size()

		return nil
	})
	if err != nil {
		return fmt.Errorf("measure payloads: %w", err)
	}

	if required > capacity {
		return fmt.Errorf(
			"%w: need %d bytes, capacity %d",
			ErrInsufficientMediaSize, required, capacity,
		)
	}

	return nil
}

func allocateImage(path string, capacity int64) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}

	if err := f.Truncate(capacity); err != nil {
		_ = f.Close()

		return fmt.Errorf("allocate image: %w", err)
	}

	return f.Close()
}

func copyTree(srcDir, dstDir string) error {
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil || rel == "." {
			return err
		}

		target := filepath.Join(dstDir, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}
