// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"os"

	"github.com/hvforge/bootstage/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
