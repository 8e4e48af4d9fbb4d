// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bootheader

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Magic values as defined by the multiboot specifications.
const (
	MagicMultiboot  uint32 = 0x1badb002
	MagicMultiboot2 uint32 = 0xe85250d6
)

const (
	// ScanLimit is the number of bytes at the start of a binary that are
	// searched for a boot header. Bootloaders scan the same bounded prefix.
	ScanLimit = 8192

	// multiboot1 header: magic, flags, checksum plus five reserved words.
	multibootHeaderLen = 32

	// minimal multiboot2 header: magic, architecture, header_length,
	// checksum plus the 8 byte end tag.
	multiboot2HeaderLen = 24

	multibootAlign  = 4
	multiboot2Align = 8
)

// Variant is a supported boot header variant.
type Variant string

const (
	VariantMultiboot  Variant = "multiboot"
	VariantMultiboot2 Variant = "multiboot2"
)

// Location describes where a valid boot header was found in a binary.
type Location struct {
	Offset  int64
	Variant Variant
}

// Encode returns the byte representation of a minimal valid header for the
// given variant. No optional features are requested.
func Encode(variant Variant) ([]byte, error) {
	switch variant {
	case VariantMultiboot:
		magic, flags := MagicMultiboot, uint32(0)

		hdr := make([]byte, multibootHeaderLen)
		binary.LittleEndian.PutUint32(hdr[0:], magic)
		binary.LittleEndian.PutUint32(hdr[4:], flags)
		binary.LittleEndian.PutUint32(hdr[8:], -(magic + flags))

		return hdr, nil
	case VariantMultiboot2:
		magic, arch := MagicMultiboot2, uint32(0)
		headerLen := uint32(multiboot2HeaderLen)

		hdr := make([]byte, multiboot2HeaderLen)
		binary.LittleEndian.PutUint32(hdr[0:], magic)
		binary.LittleEndian.PutUint32(hdr[4:], arch)
		binary.LittleEndian.PutUint32(hdr[8:], headerLen)
		binary.LittleEndian.PutUint32(hdr[12:], -(magic + arch + headerLen))
		// End tag: type 0, flags 0, size 8.
		binary.LittleEndian.PutUint16(hdr[16:], 0)
		binary.LittleEndian.PutUint16(hdr[18:], 0)
		binary.LittleEndian.PutUint32(hdr[20:], 8)

		return hdr, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrVariantUnknown, variant)
	}
}

// Validate scans the given binary content for a boot header.
//
// The scan covers 4 byte aligned offsets within the first [ScanLimit] bytes.
// The first offset holding a known magic value decides the outcome: either
// the complete header at that offset is valid and its [Location] is
// returned, or validation fails. A binary without any magic value in the
// scan window fails with [ErrHeaderNotFound].
func Validate(content []byte) (Location, error) {
	limit := min(len(content), ScanLimit)

	for offset := 0; offset+multibootAlign <= limit; offset += multibootAlign {
		switch word(content, offset) {
		case MagicMultiboot:
			return validateMultiboot(content, int64(offset))
		case MagicMultiboot2:
			return validateMultiboot2(content, int64(offset))
		}
	}

	return Location{}, ErrHeaderNotFound
}

// ValidateFile runs [Validate] against the scan window of the file at the
// given path.
func ValidateFile(path string) (Location, error) {
	f, err := os.Open(path)
	if err != nil {
		return Location{}, fmt.Errorf("open binary: %w", err)
	}
	defer f.Close()

	buf := make([]byte, ScanLimit)

	n, err := io.ReadFull(f, buf)
	if err != nil && n == 0 {
		return Location{}, fmt.Errorf("read binary: %w", err)
	}

	return Validate(buf[:n])
}

func validateMultiboot(b []byte, offset int64) (Location, error) {
	loc := Location{Offset: offset, Variant: VariantMultiboot}

	if int(offset)+multibootHeaderLen > len(b) {
		return Location{}, loc.wrap(ErrHeaderNotFound)
	}

	magic := word(b, int(offset))
	flags := word(b, int(offset)+4)
	checksum := word(b, int(offset)+8)

	if magic+flags+checksum != 0 {
		return Location{}, loc.wrap(ErrChecksumMismatch)
	}

	// The reserved words are part of the fixed layout and must be zero.
	// Anything else means the header is damaged, not merely extended.
	for idx := 12; idx < multibootHeaderLen; idx += 4 {
		if word(b, int(offset)+idx) != 0 {
			return Location{}, loc.wrap(ErrChecksumMismatch)
		}
	}

	if flags != 0 {
		return Location{}, loc.wrap(ErrUnsupportedFlags)
	}

	return loc, nil
}

func validateMultiboot2(b []byte, offset int64) (Location, error) {
	loc := Location{Offset: offset, Variant: VariantMultiboot2}

	if offset%multiboot2Align != 0 {
		return Location{}, loc.wrap(ErrHeaderNotFound)
	}

	if int(offset)+multiboot2HeaderLen > len(b) {
		return Location{}, loc.wrap(ErrHeaderNotFound)
	}

	magic := word(b, int(offset))
	arch := word(b, int(offset)+4)
	headerLen := word(b, int(offset)+8)
	checksum := word(b, int(offset)+12)

	if magic+arch+headerLen+checksum != 0 {
		return Location{}, loc.wrap(ErrChecksumMismatch)
	}

	if int64(headerLen) < multiboot2HeaderLen ||
		int(offset)+int(headerLen) > len(b) {
		return Location{}, loc.wrap(ErrChecksumMismatch)
	}

	// Architecture 0 is i386 protected mode, the only one produced here.
	if arch != 0 {
		return Location{}, loc.wrap(ErrUnsupportedFlags)
	}

	if err := validateTags(b, int(offset)+16, int(offset)+int(headerLen)); err != nil {
		return Location{}, loc.wrap(err)
	}

	return loc, nil
}

// validateTags walks the multiboot2 tag list and requires a terminating end
// tag. Optional feature tags are rejected since nothing here implements
// them.
func validateTags(b []byte, pos, end int) error {
	for pos+8 <= end {
		typ := binary.LittleEndian.Uint16(b[pos:])
		size := binary.LittleEndian.Uint32(b[pos+4:])

		if size < 8 {
			return ErrChecksumMismatch
		}

		if typ == 0 {
			return nil
		}

		flags := binary.LittleEndian.Uint16(b[pos+2:])
		if flags&1 == 0 { // required tag, not understood
			return ErrUnsupportedFlags
		}

		// Tags are padded to 8 byte alignment.
		pos += int((size + 7) &^ 7)
	}

	return ErrChecksumMismatch
}

func word(b []byte, offset int) uint32 {
	return binary.LittleEndian.Uint32(b[offset:])
}
