// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package bootheader encodes and validates the multiboot headers that
// firmware and bootloaders scan for in a kernel binary.
//
// Validation is a pure function over the binary's byte content. It never
// executes anything; it only decides whether the chosen boot protocol will
// recognize the artifact before an expensive media build is attempted.
package bootheader
