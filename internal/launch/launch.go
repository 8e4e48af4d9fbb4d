// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package launch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hvforge/bootstage/internal/bootheader"
	"github.com/hvforge/bootstage/internal/media"
	"github.com/hvforge/bootstage/internal/qemu"
	"github.com/hvforge/bootstage/internal/staging"
)

// initramfsName is the in-tree name of the packed guest root filesystem.
const initramfsName = "initramfs.cpio"

// Options are the VM session parameters of a launch.
type Options struct {
	Executable          string
	FirmwarePath        string
	Memory              uint64
	SMP                 uint64
	CPU                 string
	EnableHardwareAccel bool
	NetworkingEnabled   bool
	TapDevice           string
	RemoteDebugPort     uint16
	AutoRestart         bool

	// DebugLogPath overrides the debug console capture file. If empty, a
	// path next to the media artifact is derived.
	DebugLogPath string

	// ExtraMonitorArgs are appended last so they can override defaults.
	ExtraMonitorArgs []qemu.Argument
}

// Input describes one launch pipeline invocation.
type Input struct {
	// BinaryPath is the primary boot binary.
	BinaryPath string

	// Payloads are auxiliary files staged next to the binary under their
	// base names.
	Payloads []string

	// GuestRootDir is an optional directory packed into a newc cpio
	// initramfs archive for the guest kernel.
	GuestRootDir string

	Protocol media.BootProtocol
	Options  Options

	// StagingBase is the directory session working directories are created
	// under. Defaults to the system temp directory.
	StagingBase string

	// OutputPath places the produced image artifact at the given path
	// instead of next to the session working directory. Ignored for the
	// raw protocol, whose artifact is the staged binary itself.
	OutputPath string

	// Builder overrides the protocol's default media builder.
	Builder media.Builder
}

// Result is the outcome of a completed VM session.
type Result struct {
	ExitCode     int
	Signal       string
	DebugLogPath string
	ArtifactPath string
}

// Build assembles the boot media for the given input.
//
// It validates the boot header where the protocol requires it, stages all
// payloads into a fresh session working directory and runs the protocol's
// media builder. On success the caller owns the returned working directory
// and must remove it once the artifact is consumed; the raw multiboot
// artifact lives inside it.
func Build(
	ctx context.Context,
	input *Input,
) (*media.Artifact, *staging.WorkDir, error) {
	builder := input.Builder

	if builder == nil {
		var err error

		builder, err = media.ForProtocol(input.Protocol)
		if err != nil {
			return nil, nil, err
		}
	}

	// Fail fast on a broken boot binary before any staging IO happens. The
	// builder revalidates the staged copy.
	if input.Protocol == media.ProtocolRawMultiboot {
		if _, err := bootheader.ValidateFile(input.BinaryPath); err != nil {
			return nil, nil, err
		}
	}

	manifest, err := input.manifest()
	if err != nil {
		return nil, nil, err
	}

	base := input.StagingBase
	if base == "" {
		base = os.TempDir()
	}

	sessionDir := staging.SessionPath(base)

	workDir, err := staging.Stage(sessionDir, manifest)
	if err != nil {
		return nil, nil, err
	}

	if err := input.packGuestRoot(workDir); err != nil {
		_ = workDir.Remove()

		return nil, nil, err
	}

	if input.Protocol == media.ProtocolOpticalRescue {
		err := writeBootloaderConfig(workDir, input.GuestRootDir != "")
		if err != nil {
			_ = workDir.Remove()

			return nil, nil, err
		}
	}

	outputPath := sessionDir + artifactExtension(input.Protocol)
	if input.OutputPath != "" && input.Protocol != media.ProtocolRawMultiboot {
		outputPath = input.OutputPath
	}

	artifact, err := builder.Build(ctx, workDir, outputPath)
	if err != nil {
		_ = workDir.Remove()

		return nil, nil, err
	}

	slog.Info("media built",
		slog.String("protocol", artifact.Kind.String()),
		slog.String("path", artifact.Path),
		slog.Uint64("size", artifact.SizeBytes),
	)

	return artifact, workDir, nil
}

// Run executes the full pipeline: build the media, then block for the VM
// session and report the monitor's termination.
func Run(
	ctx context.Context,
	input *Input,
	stdout, stderr io.Writer,
) (*Result, error) {
	artifact, workDir, err := Build(ctx, input)
	if err != nil {
		return nil, err
	}
	defer workDir.Remove() //nolint:errcheck

	debugLogPath := input.Options.DebugLogPath
	if debugLogPath == "" {
		debugLogPath = workDir.Path() + ".debug.log"
	}

	spec := qemu.CommandSpec{
		Executable:          input.Options.Executable,
		Media:               *artifact,
		FirmwarePath:        input.Options.FirmwarePath,
		Memory:              input.Options.Memory,
		SMP:                 input.Options.SMP,
		CPU:                 input.Options.CPU,
		EnableHardwareAccel: input.Options.EnableHardwareAccel,
		NetworkingEnabled:   input.Options.NetworkingEnabled,
		TapDevice:           input.Options.TapDevice,
		DebugLogPath:        debugLogPath,
		RemoteDebugPort:     input.Options.RemoteDebugPort,
		AutoRestart:         input.Options.AutoRestart,
		ExtraArgs:           input.monitorArgs(workDir),
	}

	cmd, err := qemu.NewCommand(spec)
	if err != nil {
		return nil, err
	}

	sessionResult, err := cmd.Run(ctx, stdout, stderr)
	if err != nil {
		return nil, err
	}

	return &Result{
		ExitCode:     sessionResult.ExitCode,
		Signal:       sessionResult.Signal,
		DebugLogPath: sessionResult.DebugLogPath,
		ArtifactPath: artifact.Path,
	}, nil
}

// manifest builds the staging manifest with the in-tree names the
// protocol's builder expects.
func (i *Input) manifest() (*staging.Manifest, error) {
	var manifest staging.Manifest

	binaryDestination := media.BootBinaryName

	switch i.Protocol {
	case media.ProtocolOpticalRescue:
		binaryDestination = media.ISOBinaryPath
	case media.ProtocolRemovableUEFI:
		binaryDestination = media.UEFIBinaryName
	}

	if err := manifest.Add(i.BinaryPath, binaryDestination); err != nil {
		return nil, err
	}

	for _, payload := range i.Payloads {
		if err := manifest.Add(payload, filepath.Base(payload)); err != nil {
			return nil, err
		}
	}

	return &manifest, nil
}

// packGuestRoot packs the guest root directory into the working directory
// if one was given.
func (i *Input) packGuestRoot(workDir *staging.WorkDir) error {
	if i.GuestRootDir == "" {
		return nil
	}

	target := workDir.Join(i.initramfsPath())

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create initramfs dir: %w", err)
	}

	return staging.PackInitramfs(i.GuestRootDir, target)
}

// initramfsPath is the archive location relative to the working directory
// root. The rescue image keeps it under boot/ next to the binary.
func (i *Input) initramfsPath() string {
	if i.Protocol == media.ProtocolOpticalRescue {
		return filepath.Join("boot", initramfsName)
	}

	return initramfsName
}

// monitorArgs returns the extra monitor arguments for the session. For the
// raw protocol a packed guest root is handed to the monitor's initrd
// loader; for image media it is part of the media itself.
func (i *Input) monitorArgs(workDir *staging.WorkDir) []qemu.Argument {
	var args []qemu.Argument

	if i.GuestRootDir != "" && i.Protocol == media.ProtocolRawMultiboot {
		args = append(args, qemu.UniqueArg("initrd", workDir.Join(initramfsName)))
	}

	return append(args, i.Options.ExtraMonitorArgs...)
}

func artifactExtension(protocol media.BootProtocol) string {
	switch protocol {
	case media.ProtocolOpticalRescue:
		return ".iso"
	case media.ProtocolRemovableUEFI:
		return ".img"
	default:
		return ""
	}
}
