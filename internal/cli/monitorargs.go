// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/hvforge/bootstage/internal/qemu"
)

// parseMonitorArgs converts raw command line tokens after the -- separator
// into monitor arguments. Supported forms are "-name", "-name=value" and
// "-name value".
func parseMonitorArgs(tokens []string) ([]qemu.Argument, error) {
	var args []qemu.Argument

	for idx := 0; idx < len(tokens); idx++ {
		token := strings.TrimPrefix(tokens[idx], "-")
		token = strings.TrimPrefix(token, "-")

		if token == tokens[idx] || token == "" {
			return nil, fmt.Errorf(
				"%w: monitor argument must start with '-': %q",
				errUsage, tokens[idx],
			)
		}

		if name, value, found := strings.Cut(token, "="); found {
			args = append(args, qemu.RepeatableArg(name, value))

			continue
		}

		if idx+1 < len(tokens) && !strings.HasPrefix(tokens[idx+1], "-") {
			args = append(args, qemu.RepeatableArg(token, tokens[idx+1]))
			idx++

			continue
		}

		args = append(args, qemu.RepeatableArg(token))
	}

	return args, nil
}
