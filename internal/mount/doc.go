// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mount guards privileged loop mounts of filesystem images.
//
// Acquisition and release are meant to be paired with scoped-resource
// discipline: release on every exit path. [Mount.Release] is idempotent so
// cleanup code can call it unconditionally.
package mount
