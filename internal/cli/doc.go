// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cli implements the bootstage command tree.
//
// Launch parameters come from flags and an optional YAML config file.
// Flags set explicitly on the command line win over file values.
package cli
