// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package qemu builds and runs the virtual machine monitor invocation for a
// produced media artifact.
//
// A [CommandSpec] declares the session: media attachment, memory, CPUs,
// debug console capture, remote debug stub, networking and restart policy.
// It compiles into a [Command] that blocks for the lifetime of the monitor
// process and captures the debug console deterministically.
package qemu
