// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvforge/bootstage/internal/media"
	"github.com/hvforge/bootstage/internal/qemu"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bootstage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func newTestFlags(t *testing.T) (*launchFlags, *cobra.Command) {
	t.Helper()

	var flags launchFlags

	cmd := &cobra.Command{}
	flags.register(cmd)

	return &flags, cmd
}

func TestLaunchFlagsInput(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		flags, cmd := newTestFlags(t)

		input, err := flags.input(cmd.Flags(), []string{"/boot/kernel"})
		require.NoError(t, err)

		assert.Equal(t, "/boot/kernel", input.BinaryPath)
		assert.Equal(t, media.ProtocolRawMultiboot, input.Protocol)
		assert.Zero(t, input.Options.Memory)
		assert.False(t, input.Options.EnableHardwareAccel)
	})

	t.Run("config file values", func(t *testing.T) {
		config := writeConfig(t, `
binary: /boot/hv.elf
protocol: iso
payloads:
  - /boot/extra.dat
monitor:
  memory: 1G
  smp: 2
  kvm: true
  gdb_port: 1234
`)

		flags, cmd := newTestFlags(t)
		require.NoError(t, cmd.Flags().Set("config", config))

		input, err := flags.input(cmd.Flags(), nil)
		require.NoError(t, err)

		assert.Equal(t, "/boot/hv.elf", input.BinaryPath)
		assert.Equal(t, media.ProtocolOpticalRescue, input.Protocol)
		assert.Equal(t, []string{"/boot/extra.dat"}, input.Payloads)
		assert.Equal(t, uint64(1024), input.Options.Memory)
		assert.Equal(t, uint64(2), input.Options.SMP)
		assert.True(t, input.Options.EnableHardwareAccel)
		assert.Equal(t, uint16(1234), input.Options.RemoteDebugPort)
	})

	t.Run("flags override config", func(t *testing.T) {
		config := writeConfig(t, `
binary: /boot/hv.elf
monitor:
  memory: 1G
  cpu: qemu64
`)

		flags, cmd := newTestFlags(t)
		require.NoError(t, cmd.Flags().Set("config", config))
		require.NoError(t, cmd.Flags().Set("memory", "512M"))
		require.NoError(t, cmd.Flags().Set("cpu", "max"))

		input, err := flags.input(cmd.Flags(), []string{"/boot/other.elf"})
		require.NoError(t, err)

		assert.Equal(t, "/boot/other.elf", input.BinaryPath)
		assert.Equal(t, uint64(512), input.Options.Memory)
		assert.Equal(t, "max", input.Options.CPU)
	})

	t.Run("no binary", func(t *testing.T) {
		flags, cmd := newTestFlags(t)

		_, err := flags.input(cmd.Flags(), nil)
		require.ErrorIs(t, err, errUsage)
	})

	t.Run("unknown protocol", func(t *testing.T) {
		flags, cmd := newTestFlags(t)
		require.NoError(t, cmd.Flags().Set("protocol", "floppy"))

		_, err := flags.input(cmd.Flags(), []string{"/boot/kernel"})
		require.ErrorIs(t, err, media.ErrProtocolUnknown)
	})

	t.Run("invalid memory size", func(t *testing.T) {
		flags, cmd := newTestFlags(t)
		require.NoError(t, cmd.Flags().Set("memory", "lots"))

		_, err := flags.input(cmd.Flags(), []string{"/boot/kernel"})
		require.ErrorIs(t, err, errUsage)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("unknown field rejected", func(t *testing.T) {
		config := writeConfig(t, "binry: /boot/hv.elf\n")

		_, err := LoadConfig(config)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		config := writeConfig(t, "")

		actual, err := LoadConfig(config)
		require.NoError(t, err)
		assert.Empty(t, actual.Binary)
	})
}

func TestParseMemory(t *testing.T) {
	tests := []struct {
		input       string
		expected    uint64
		expectedErr bool
	}{
		{input: "512M", expected: 512},
		{input: "2g", expected: 2048},
		{input: "1048576", expected: 1},
		{input: "100k", expectedErr: true},
		{input: "lots", expectedErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			actual, err := parseMemory(tt.input)

			if tt.expectedErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestParseMonitorArgs(t *testing.T) {
	tests := []struct {
		name        string
		tokens      []string
		expected    []qemu.Argument
		expectedErr error
	}{
		{
			name: "empty",
		},
		{
			name:   "flag only",
			tokens: []string{"-no-shutdown"},
			expected: []qemu.Argument{
				qemu.RepeatableArg("no-shutdown"),
			},
		},
		{
			name:   "name value pair",
			tokens: []string{"-append", "console=ttyS0"},
			expected: []qemu.Argument{
				qemu.RepeatableArg("append", "console=ttyS0"),
			},
		},
		{
			name:   "name equals value",
			tokens: []string{"-m=1024"},
			expected: []qemu.Argument{
				qemu.RepeatableArg("m", "1024"),
			},
		},
		{
			name:   "double dash prefix",
			tokens: []string{"--enable-kvm"},
			expected: []qemu.Argument{
				qemu.RepeatableArg("enable-kvm"),
			},
		},
		{
			name:        "missing dash",
			tokens:      []string{"oops"},
			expectedErr: errUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := parseMonitorArgs(tt.tokens)

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}
