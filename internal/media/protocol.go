// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import "slices"

const (
	// ProtocolRawMultiboot boots the kernel binary directly through the
	// monitor's built-in multiboot loader. No media image is produced.
	ProtocolRawMultiboot BootProtocol = "multiboot"
	// ProtocolOpticalRescue produces a BIOS bootable rescue ISO via an
	// external bootloader installer.
	ProtocolOpticalRescue BootProtocol = "iso"
	// ProtocolRemovableUEFI produces a FAT formatted removable media image
	// with an autorun script for UEFI firmware.
	ProtocolRemovableUEFI BootProtocol = "uefi"
)

// BootProtocol selects which media builder runs. It is immutable once
// chosen for a launch.
type BootProtocol string

func (p BootProtocol) isKnown() bool {
	knownProtocols := []BootProtocol{
		ProtocolRawMultiboot,
		ProtocolOpticalRescue,
		ProtocolRemovableUEFI,
	}

	return slices.Contains(knownProtocols, p)
}

// String implements [fmt.Stringer].
func (p BootProtocol) String() string {
	if !p.isKnown() {
		return ""
	}

	return string(p)
}

// MarshalText implements [encoding.TextMarshaler].
func (p BootProtocol) MarshalText() ([]byte, error) {
	s := p.String()
	if s == "" {
		return nil, ErrProtocolUnknown
	}

	return []byte(s), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (p *BootProtocol) UnmarshalText(text []byte) error {
	protocol := BootProtocol(text)

	if !protocol.isKnown() {
		return ErrProtocolUnknown
	}

	*p = protocol

	return nil
}
