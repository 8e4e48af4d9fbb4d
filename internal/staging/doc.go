// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package staging populates the transient working directory a media builder
// consumes. Staging is all-or-nothing: the directory is created fresh for
// every run and the first copy failure aborts the remaining entries.
package staging
