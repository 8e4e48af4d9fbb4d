// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package launch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvforge/bootstage/internal/bootheader"
	"github.com/hvforge/bootstage/internal/launch"
	"github.com/hvforge/bootstage/internal/media"
	"github.com/hvforge/bootstage/internal/staging"
)

// writeKernel writes a binary with a valid legacy multiboot header.
func writeKernel(t *testing.T) string {
	t.Helper()

	header, err := bootheader.Encode(bootheader.VariantMultiboot)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "kernel.bin")
	require.NoError(t, os.WriteFile(path, header, 0o755))

	return path
}

// captureBuilder records the working directory content it was called with
// and returns the staged binary as artifact.
type captureBuilder struct {
	protocol media.BootProtocol
	workDir  string
	files    map[string][]byte
}

func (b *captureBuilder) Protocol() media.BootProtocol {
	return b.protocol
}

func (b *captureBuilder) Build(
	_ context.Context,
	workDir *staging.WorkDir,
	_ string,
) (*media.Artifact, error) {
	b.workDir = workDir.Path()
	b.files = make(map[string][]byte)

	err := filepath.Walk(workDir.Path(),
		func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}

			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			rel, err := filepath.Rel(workDir.Path(), path)
			if err != nil {
				return err
			}

			b.files[rel] = content

			return nil
		})
	if err != nil {
		return nil, err
	}

	return &media.Artifact{
		Kind: b.protocol,
		Path: workDir.Path(),
	}, nil
}

func TestBuildRawMultiboot(t *testing.T) {
	input := &launch.Input{
		BinaryPath:  writeKernel(t),
		Protocol:    media.ProtocolRawMultiboot,
		StagingBase: t.TempDir(),
	}

	artifact, workDir, err := launch.Build(context.Background(), input)
	require.NoError(t, err)

	t.Cleanup(func() { _ = workDir.Remove() })

	assert.Equal(t, media.ProtocolRawMultiboot, artifact.Kind)
	assert.Equal(t, workDir.Join(media.BootBinaryName), artifact.Path)
	assert.FileExists(t, artifact.Path)
}

func TestBuildRawRejectsBrokenHeader(t *testing.T) {
	binary := filepath.Join(t.TempDir(), "broken.bin")
	require.NoError(t, os.WriteFile(binary, make([]byte, 64), 0o755))

	stagingBase := t.TempDir()

	input := &launch.Input{
		BinaryPath:  binary,
		Protocol:    media.ProtocolRawMultiboot,
		StagingBase: stagingBase,
	}

	_, _, err := launch.Build(context.Background(), input)
	require.ErrorIs(t, err, bootheader.ErrHeaderNotFound)

	// Validation fails before any staging IO.
	entries, err := os.ReadDir(stagingBase)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBuildUnknownProtocol(t *testing.T) {
	input := &launch.Input{
		BinaryPath: writeKernel(t),
		Protocol:   media.BootProtocol("floppy"),
	}

	_, _, err := launch.Build(context.Background(), input)
	require.ErrorIs(t, err, media.ErrProtocolUnknown)
}

func TestBuildOpticalStaging(t *testing.T) {
	guestRoot := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(guestRoot, "etc.conf"), []byte("guest"), 0o644,
	))

	payload := filepath.Join(t.TempDir(), "extra.dat")
	require.NoError(t, os.WriteFile(payload, []byte("aux"), 0o644))

	builder := &captureBuilder{protocol: media.ProtocolOpticalRescue}

	input := &launch.Input{
		BinaryPath:   writeKernel(t),
		Payloads:     []string{payload},
		GuestRootDir: guestRoot,
		Protocol:     media.ProtocolOpticalRescue,
		StagingBase:  t.TempDir(),
		Builder:      builder,
	}

	_, workDir, err := launch.Build(context.Background(), input)
	require.NoError(t, err)

	t.Cleanup(func() { _ = workDir.Remove() })

	assert.Contains(t, builder.files, media.ISOBinaryPath)
	assert.Contains(t, builder.files, "extra.dat")
	assert.Contains(t, builder.files, filepath.Join("boot", "initramfs.cpio"))

	config := string(builder.files[media.GrubConfigPath])
	assert.Contains(t, config, "multiboot2 /"+media.ISOBinaryPath)
	assert.Contains(t, config, "module2 /boot/initramfs.cpio")
}

func TestBuildOpticalConfigWithoutGuestRoot(t *testing.T) {
	builder := &captureBuilder{protocol: media.ProtocolOpticalRescue}

	input := &launch.Input{
		BinaryPath:  writeKernel(t),
		Protocol:    media.ProtocolOpticalRescue,
		StagingBase: t.TempDir(),
		Builder:     builder,
	}

	_, workDir, err := launch.Build(context.Background(), input)
	require.NoError(t, err)

	t.Cleanup(func() { _ = workDir.Remove() })

	config := string(builder.files[media.GrubConfigPath])
	assert.Contains(t, config, "multiboot2")
	assert.NotContains(t, config, "module2")
}

func TestRun(t *testing.T) {
	fakeMonitor := filepath.Join(t.TempDir(), "monitor")
	script := "#!/bin/sh\necho 'hv: started' >&3\nexit 3\n"
	require.NoError(t, os.WriteFile(fakeMonitor, []byte(script), 0o755))

	stagingBase := t.TempDir()

	input := &launch.Input{
		BinaryPath:  writeKernel(t),
		Protocol:    media.ProtocolRawMultiboot,
		StagingBase: stagingBase,
		Options: launch.Options{
			Executable: fakeMonitor,
		},
	}

	result, err := launch.Run(
		context.Background(), input, os.Stdout, os.Stderr,
	)
	require.NoError(t, err)

	assert.Equal(t, 3, result.ExitCode)
	assert.Empty(t, result.Signal)

	log, err := os.ReadFile(result.DebugLogPath)
	require.NoError(t, err)
	assert.Equal(t, "hv: started\n", string(log))

	// The session working directory is gone, the debug log next to it
	// survives.
	entries, err := os.ReadDir(stagingBase)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsDir())
}
