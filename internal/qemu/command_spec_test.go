// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvforge/bootstage/internal/media"
	"github.com/hvforge/bootstage/internal/qemu"
)

func minimalSpec(kind media.BootProtocol) qemu.CommandSpec {
	return qemu.CommandSpec{
		Media: media.Artifact{
			Kind: kind,
			Path: "/tmp/artifact",
		},
		DebugLogPath: "/tmp/artifact.debug.log",
	}
}

func TestCommandSpecValidate(t *testing.T) {
	tests := []struct {
		name  string
		spec  qemu.CommandSpec
		valid bool
	}{
		{
			name:  "minimal valid",
			spec:  minimalSpec(media.ProtocolRawMultiboot),
			valid: true,
		},
		{
			name: "no media",
			spec: qemu.CommandSpec{
				DebugLogPath: "/tmp/log",
			},
		},
		{
			name: "unknown media kind",
			spec: qemu.CommandSpec{
				Media: media.Artifact{
					Kind: media.BootProtocol("floppy"),
					Path: "/tmp/artifact",
				},
				DebugLogPath: "/tmp/log",
			},
		},
		{
			name: "host cpu without acceleration",
			spec: func() qemu.CommandSpec {
				spec := minimalSpec(media.ProtocolRawMultiboot)
				spec.CPU = "host"

				return spec
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := qemu.NewCommand(tt.spec)

			if tt.valid {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, &qemu.SpecError{})
		})
	}
}

func TestCommandSpecArguments(t *testing.T) {
	tests := []struct {
		name        string
		spec        func() qemu.CommandSpec
		contains    [][]string
		notContains []string
	}{
		{
			name: "raw multiboot uses kernel loader",
			spec: func() qemu.CommandSpec {
				return minimalSpec(media.ProtocolRawMultiboot)
			},
			contains: [][]string{
				{"-kernel", "/tmp/artifact"},
				{"-display", "none"},
				{"-m", "256"},
				{"-cpu", "max"},
				{"-nic", "none"},
				{"-no-reboot"},
			},
			notContains: []string{"-cdrom", "-drive", "-gdb", "-enable-kvm"},
		},
		{
			name: "optical media attaches as cdrom",
			spec: func() qemu.CommandSpec {
				return minimalSpec(media.ProtocolOpticalRescue)
			},
			contains: [][]string{
				{"-cdrom", "/tmp/artifact"},
				{"-m", "512"},
			},
			notContains: []string{"-kernel"},
		},
		{
			name: "removable media attaches as raw drive",
			spec: func() qemu.CommandSpec {
				return minimalSpec(media.ProtocolRemovableUEFI)
			},
			contains: [][]string{
				{"-drive", "format=raw,file=/tmp/artifact"},
			},
			notContains: []string{"-kernel", "-cdrom"},
		},
		{
			name: "debug console chardev on extra fd",
			spec: func() qemu.CommandSpec {
				return minimalSpec(media.ProtocolRawMultiboot)
			},
			contains: [][]string{
				{"-chardev", "file,id=dbglog,path=/dev/fd/3"},
				{"-device", "isa-debugcon,iobase=0x402,chardev=dbglog"},
			},
		},
		{
			name: "remote debug halts machine",
			spec: func() qemu.CommandSpec {
				spec := minimalSpec(media.ProtocolRawMultiboot)
				spec.RemoteDebugPort = 1234

				return spec
			},
			contains: [][]string{
				{"-gdb", "tcp::1234"},
				{"-S"},
			},
		},
		{
			name: "auto restart drops no-reboot",
			spec: func() qemu.CommandSpec {
				spec := minimalSpec(media.ProtocolRawMultiboot)
				spec.AutoRestart = true

				return spec
			},
			notContains: []string{"-no-reboot"},
		},
		{
			name: "hardware acceleration",
			spec: func() qemu.CommandSpec {
				spec := minimalSpec(media.ProtocolRawMultiboot)
				spec.EnableHardwareAccel = true

				return spec
			},
			contains: [][]string{
				{"-enable-kvm"},
				{"-cpu", "host"},
			},
		},
		{
			name: "networking attaches tap netdev",
			spec: func() qemu.CommandSpec {
				spec := minimalSpec(media.ProtocolRawMultiboot)
				spec.NetworkingEnabled = true

				return spec
			},
			contains: [][]string{
				{"-netdev", "tap,id=net0,ifname=bootstage0,script=no,downscript=no"},
				{"-device", "virtio-net-pci,netdev=net0"},
			},
			notContains: []string{"-nic"},
		},
		{
			name: "firmware and topology",
			spec: func() qemu.CommandSpec {
				spec := minimalSpec(media.ProtocolRemovableUEFI)
				spec.FirmwarePath = "/usr/share/OVMF.fd"
				spec.SMP = 4
				spec.Memory = 1024

				return spec
			},
			contains: [][]string{
				{"-bios", "/usr/share/OVMF.fd"},
				{"-smp", "4"},
				{"-m", "1024"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := qemu.NewCommand(tt.spec())
			require.NoError(t, err)

			args := cmd.Args()

			for _, seq := range tt.contains {
				assertArg(t, args, seq...)
			}

			for _, name := range tt.notContains {
				assert.NotContains(t, args, name)
			}
		})
	}
}

func TestCommandSpecExtraArgs(t *testing.T) {
	t.Run("appended last", func(t *testing.T) {
		spec := minimalSpec(media.ProtocolRawMultiboot)
		spec.ExtraArgs = []qemu.Argument{
			qemu.UniqueArg("d", "int,cpu_reset"),
		}

		cmd, err := qemu.NewCommand(spec)
		require.NoError(t, err)

		args := cmd.Args()
		assertArg(t, args, "-d", "int,cpu_reset")
		assert.Equal(t, "int,cpu_reset", args[len(args)-1])
	})

	t.Run("overrides colliding default", func(t *testing.T) {
		spec := minimalSpec(media.ProtocolRawMultiboot)
		spec.ExtraArgs = []qemu.Argument{
			qemu.UniqueArg("m", "1024"),
		}

		cmd, err := qemu.NewCommand(spec)
		require.NoError(t, err)

		args := cmd.Args()
		assertArg(t, args, "-m", "1024")
		assert.NotContains(t, args, "256")
	})
}

// assertArg asserts that the flag and its value appear adjacent in args.
func assertArg(t *testing.T, args []string, seq ...string) {
	t.Helper()

	for idx, arg := range args {
		if arg != seq[0] {
			continue
		}

		if len(seq) == 1 {
			return
		}

		if idx+1 < len(args) && args[idx+1] == seq[1] {
			return
		}
	}

	t.Errorf("argument sequence %v not found in %v", seq, args)
}
