// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package launch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hvforge/bootstage/internal/media"
	"github.com/hvforge/bootstage/internal/staging"
)

// writeBootloaderConfig generates the bootloader config the rescue image
// generator bakes into the ISO. The entry boots the staged binary via the
// multiboot2 loader and hands over the initramfs as a module if one was
// packed.
func writeBootloaderConfig(workDir *staging.WorkDir, withInitramfs bool) error {
	config := "set timeout=0\n" +
		"set default=0\n" +
		"\n" +
		"menuentry \"bootstage\" {\n" +
		"    multiboot2 /" + media.ISOBinaryPath + "\n"

	if withInitramfs {
		config += "    module2 /boot/" + initramfsName + "\n"
	}

	config += "    boot\n}\n"

	target := workDir.Join(media.GrubConfigPath)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create bootloader config dir: %w", err)
	}

	if err := os.WriteFile(target, []byte(config), 0o644); err != nil {
		return fmt.Errorf("write bootloader config: %w", err)
	}

	return nil
}
