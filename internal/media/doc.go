// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package media turns a staged working directory into a bootable media
// artifact. Three builders share one interface: raw multiboot binaries,
// BIOS rescue ISO images and removable UEFI filesystem images.
package media
