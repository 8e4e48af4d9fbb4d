// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvforge/bootstage/internal/bootheader"
	"github.com/hvforge/bootstage/internal/cli"
)

func writeKernel(t *testing.T) string {
	t.Helper()

	header, err := bootheader.Encode(bootheader.VariantMultiboot)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "kernel.bin")
	require.NoError(t, os.WriteFile(path, header, 0o755))

	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := cli.NewRootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)

	err := root.Execute()

	return out.String(), err
}

func TestInspectCommand(t *testing.T) {
	t.Run("valid binary", func(t *testing.T) {
		out, err := execute(t, "inspect", writeKernel(t))
		require.NoError(t, err)

		assert.Contains(t, out, "multiboot header at offset 0")
	})

	t.Run("invalid binary", func(t *testing.T) {
		binary := filepath.Join(t.TempDir(), "empty.bin")
		require.NoError(t, os.WriteFile(binary, make([]byte, 64), 0o644))

		_, err := execute(t, "inspect", binary)
		require.ErrorIs(t, err, bootheader.ErrHeaderNotFound)
	})
}

func TestBuildCommandRaw(t *testing.T) {
	out, err := execute(t, "build", writeKernel(t))
	require.NoError(t, err)

	assert.Contains(t, out, "valid boot binary")
}

func TestRunCommand(t *testing.T) {
	monitor := filepath.Join(t.TempDir(), "monitor")
	script := "#!/bin/sh\necho 'hv: up' >&3\nexit 0\n"
	require.NoError(t, os.WriteFile(monitor, []byte(script), 0o755))

	debugLog := filepath.Join(t.TempDir(), "session.debug.log")

	_, err := execute(t,
		"run", writeKernel(t),
		"--monitor", monitor,
		"--debug-log", debugLog,
	)
	require.NoError(t, err)

	content, err := os.ReadFile(debugLog)
	require.NoError(t, err)
	assert.Equal(t, "hv: up\n", string(content))
}

func TestRunCommandUnknownFlag(t *testing.T) {
	_, err := execute(t, "run", "--bogus")
	require.Error(t, err)
}
