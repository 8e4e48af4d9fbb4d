// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"fmt"
	"strconv"

	"github.com/hvforge/bootstage/internal/media"
)

const (
	defaultExecutable = "qemu-system-x86_64"

	// Default guest memory in MiB per media format. The raw multiboot path
	// loads a bare kernel and needs little; image based media boot real
	// firmware stacks.
	defaultMemoryRaw   = 256
	defaultMemoryImage = 512

	debugConsoleChardevID = "dbglog"

	// debugConsolePort is the ISA IO port of the monitor's debug console
	// device. The hypervisor writes its diagnostic bytes there.
	debugConsolePort = "0x402"
)

// CommandSpec defines the parameters for a [Command].
type CommandSpec struct {
	// Path to the monitor binary. Defaults to qemu-system-x86_64.
	Executable string

	// Media is the boot media to attach. Its kind decides the device type:
	// raw multiboot binaries are loaded with the monitor's kernel loader,
	// optical images are attached as CD-ROM, removable images as raw
	// drives.
	Media media.Artifact

	// FirmwarePath is an optional secondary firmware blob (e.g. a UEFI
	// firmware image) passed to the monitor.
	FirmwarePath string

	// Memory for the machine in MiB. Defaults per media format.
	Memory uint64

	// Number of CPUs for the guest.
	SMP uint64

	// CPU model. Defaults to host passthrough when hardware acceleration
	// is enabled.
	CPU string

	// EnableHardwareAccel turns on KVM support.
	EnableHardwareAccel bool

	// NetworkingEnabled attaches a tap backed NIC. Disabled by default;
	// the monitor then gets no network device at all.
	NetworkingEnabled bool

	// TapDevice is the host tap interface used when networking is enabled.
	TapDevice string

	// DebugLogPath is the file all debug console bytes are captured to. It
	// is created fresh at session start. Must be set; the launch layer
	// derives a default next to the media artifact.
	DebugLogPath string

	// RemoteDebugPort exposes a gdb stub on the given TCP port. The
	// monitor halts before executing guest code and waits for a debugger
	// to attach.
	RemoteDebugPort uint16

	// AutoRestart lets the monitor reset the machine on a triple fault
	// instead of terminating. Off by default for deterministic runs.
	AutoRestart bool

	// ExtraArgs are appended after all defaults and replace any default
	// they collide with, so callers can override the session defaults.
	ExtraArgs []Argument
}

// AddDefaults fills unset fields with defaults fitting the media format.
func (s *CommandSpec) AddDefaults() {
	if s.Executable == "" {
		s.Executable = defaultExecutable
	}

	if s.Memory == 0 {
		if s.Media.Kind == media.ProtocolRawMultiboot {
			s.Memory = defaultMemoryRaw
		} else {
			s.Memory = defaultMemoryImage
		}
	}

	if s.CPU == "" {
		if s.EnableHardwareAccel {
			s.CPU = "host"
		} else {
			s.CPU = "max"
		}
	}

	if s.TapDevice == "" {
		s.TapDevice = "bootstage0"
	}
}

// Validate checks the spec for missing essentials.
func (s *CommandSpec) Validate() error {
	if s.Media.Path == "" {
		return &SpecError{"no media attached"}
	}

	if s.Media.Kind.String() == "" {
		return &SpecError{"unknown media kind"}
	}

	if s.DebugLogPath == "" {
		return &SpecError{"no debug log path"}
	}

	if s.CPU == "host" && !s.EnableHardwareAccel {
		return &SpecError{"host cpu passthrough requires hardware acceleration"}
	}

	return nil
}

// arguments compiles the argument list for the monitor command.
func (s *CommandSpec) arguments() Arguments {
	args := Arguments{
		// No graphical console, text console on stdio.
		UniqueArg("display", "none"),
		RepeatableArg("chardev", "stdio,id=con0"),
		RepeatableArg("serial", "chardev:con0"),
		UniqueArg("no-user-config"),
		UniqueArg("m", strconv.FormatUint(s.Memory, 10)),
	}

	switch s.Media.Kind {
	case media.ProtocolRawMultiboot:
		args.Add(UniqueArg("kernel", s.Media.Path))
	case media.ProtocolOpticalRescue:
		args.Add(UniqueArg("cdrom", s.Media.Path))
	case media.ProtocolRemovableUEFI:
		args.Add(RepeatableArg("drive", "format=raw,file="+s.Media.Path))
	}

	if s.FirmwarePath != "" {
		args.Add(UniqueArg("bios", s.FirmwarePath))
	}

	if s.SMP != 0 {
		args.Add(UniqueArg("smp", strconv.FormatUint(s.SMP, 10)))
	}

	if s.CPU != "" {
		args.Add(UniqueArg("cpu", s.CPU))
	}

	if s.EnableHardwareAccel {
		args.Add(UniqueArg("enable-kvm"))
	}

	if s.NetworkingEnabled {
		netdev := "tap,id=net0,ifname=" + s.TapDevice + ",script=no,downscript=no"
		args.Add(
			RepeatableArg("netdev", netdev),
			RepeatableArg("device", "virtio-net-pci,netdev=net0"),
		)
	} else {
		args.Add(UniqueArg("nic", "none"))
	}

	// The debug console is always captured. Its chardev writes to an
	// additional file descriptor provided via [exec.Cmd.ExtraFiles]; FDs
	// 0, 1, 2 are standard in, out, err, so the first extra file is 3.
	args.Add(
		RepeatableArg("chardev", fmt.Sprintf(
			"file,id=%s,path=%s", debugConsoleChardevID, fdPath(3),
		)),
		RepeatableArg("device", fmt.Sprintf(
			"isa-debugcon,iobase=%s,chardev=%s",
			debugConsolePort, debugConsoleChardevID,
		)),
	)

	if s.RemoteDebugPort != 0 {
		args.Add(
			UniqueArg("gdb", fmt.Sprintf("tcp::%d", s.RemoteDebugPort)),
			// Halt until a debugger attaches.
			UniqueArg("S"),
		)
	}

	if !s.AutoRestart {
		// Terminate instead of resetting on triple faults.
		args.Add(UniqueArg("no-reboot"))
	}

	args.Override(s.ExtraArgs...)

	return args
}

func fdPath(fd int) string {
	return fmt.Sprintf("/dev/fd/%d", fd)
}
