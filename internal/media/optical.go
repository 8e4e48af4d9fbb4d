// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/kdomanski/iso9660"

	"github.com/hvforge/bootstage/internal/staging"
)

const defaultISOGenerator = "grub-mkrescue"

// OpticalBuilder produces a BIOS bootable rescue ISO by invoking an
// external generator against the staged directory tree. It performs no
// privileged mount; the generator operates purely on regular files.
type OpticalBuilder struct {
	// Generator is the rescue image tool to invoke. Defaults to
	// grub-mkrescue.
	Generator string
}

// Protocol implements [Builder].
func (*OpticalBuilder) Protocol() BootProtocol {
	return ProtocolOpticalRescue
}

// Build runs the generator and verifies the result is a readable ISO 9660
// volume. A non-zero generator exit fails with a [BuildError] carrying the
// tool's captured output.
func (b *OpticalBuilder) Build(
	ctx context.Context,
	workDir *staging.WorkDir,
	outputPath string,
) (*Artifact, error) {
	err := requireStaged(workDir, GrubConfigPath, ISOBinaryPath)
	if err != nil {
		return nil, err
	}

	generator := b.Generator
	if generator == "" {
		generator = defaultISOGenerator
	}

	cmd := exec.CommandContext(ctx, generator, "-o", outputPath, workDir.Path())

	slog.Debug("running image generator", slog.String("command", cmd.String()))

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &BuildError{Tool: generator, Output: output, Err: err}
	}

	if err := verifyISO(outputPath); err != nil {
		return nil, &BuildError{Tool: generator, Output: output, Err: err}
	}

	return newArtifact(b.Protocol(), outputPath)
}

// verifyISO opens the produced image to make sure the generator actually
// wrote a readable volume, not just exited cleanly.
func verifyISO(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	image, err := iso9660.OpenImage(f)
	if err != nil {
		return fmt.Errorf("read iso volume: %w", err)
	}

	if _, err := image.RootDir(); err != nil {
		return fmt.Errorf("read iso root directory: %w", err)
	}

	return nil
}
