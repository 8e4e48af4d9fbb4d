// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"context"

	"github.com/hvforge/bootstage/internal/bootheader"
	"github.com/hvforge/bootstage/internal/staging"
)

// RawBuilder handles the raw multiboot protocol. The staged binary itself
// is the bootable artifact; no container image is produced.
type RawBuilder struct{}

// Protocol implements [Builder].
func (*RawBuilder) Protocol() BootProtocol {
	return ProtocolRawMultiboot
}

// Build validates the staged binary's boot header and returns it as the
// artifact. The outputPath is unused since nothing is written.
func (b *RawBuilder) Build(
	_ context.Context,
	workDir *staging.WorkDir,
	_ string,
) (*Artifact, error) {
	if err := requireStaged(workDir, BootBinaryName); err != nil {
		return nil, err
	}

	binaryPath := workDir.Join(BootBinaryName)

	if _, err := bootheader.ValidateFile(binaryPath); err != nil {
		return nil, err
	}

	return newArtifact(b.Protocol(), binaryPath)
}
