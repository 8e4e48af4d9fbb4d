// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"context"
	"fmt"
	"os"

	"github.com/hvforge/bootstage/internal/staging"
)

// Fixed in-tree names the builders expect in their working directory. The
// launch pipeline stages files under these names.
const (
	// BootBinaryName is the staged primary boot binary for the raw and
	// removable protocols.
	BootBinaryName = "kernel.elf"

	// UEFIBinaryName is the fixed name the autorun script loads from the
	// removable media root.
	UEFIBinaryName = "boot.efi"

	// ISOBinaryPath and GrubConfigPath are the staged paths the rescue
	// image generator expects.
	ISOBinaryPath  = "boot/kernel.elf"
	GrubConfigPath = "boot/grub/grub.cfg"
)

// Artifact is a produced bootable image. It is consumed exactly once by a
// launch and is not deleted automatically, so it can be inspected when a
// session fails.
type Artifact struct {
	Kind      BootProtocol
	Path      string
	SizeBytes uint64
}

// Builder produces an [Artifact] from a staged working directory.
//
// Implementations must release any privileged resource they acquire on
// every exit path, including error returns and context cancellation.
type Builder interface {
	Protocol() BootProtocol
	Build(ctx context.Context, workDir *staging.WorkDir, outputPath string) (*Artifact, error)
}

// ForProtocol returns the builder for the given protocol with its default
// configuration.
func ForProtocol(protocol BootProtocol) (Builder, error) {
	switch protocol {
	case ProtocolRawMultiboot:
		return &RawBuilder{}, nil
	case ProtocolOpticalRescue:
		return &OpticalBuilder{}, nil
	case ProtocolRemovableUEFI:
		return &RemovableBuilder{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrProtocolUnknown, protocol)
	}
}

func newArtifact(kind BootProtocol, path string) (*Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	return &Artifact{
		Kind:      kind,
		Path:      path,
		SizeBytes: uint64(info.Size()),
	}, nil
}

// requireStaged checks that all given relative paths exist in the working
// directory before an external tool is pointed at it.
func requireStaged(workDir *staging.WorkDir, paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(workDir.Join(path)); err != nil {
			return fmt.Errorf("%w: %s", ErrWorkDirIncomplete, path)
		}
	}

	return nil
}
