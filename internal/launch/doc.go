// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package launch ties the pipeline phases together: boot header
// validation, staging, media build and the VM session.
//
// Each launch is an independent pipeline with its own session scoped
// working directory. The working directory is removed on every exit path;
// produced media artifacts are kept for inspection.
package launch
