// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package staging

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cavaliergopher/cpio"
)

const numDirLinks = 2

// PackInitramfs writes the contents of sourceDir into a newc cpio archive
// at outPath, the format guest kernels accept as initramfs. Regular files,
// directories and symlinks are supported.
func PackInitramfs(sourceDir, outPath string) error {
	out, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	writer := cpio.NewWriter(out)

	err = filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}

		if name == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return writeDirectory(writer, name)
		case info.Mode()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}

			return writeLink(writer, name, target)
		case info.Mode().IsRegular():
			return writeRegular(writer, name, path, info)
		default:
			return fmt.Errorf("%w: %s", ErrSourceNotRegular, path)
		}
	})
	if err != nil {
		_ = writer.Close()
		_ = out.Close()

		return fmt.Errorf("pack %s: %w", sourceDir, err)
	}

	if err := writer.Close(); err != nil {
		_ = out.Close()

		return fmt.Errorf("close archive: %w", err)
	}

	return out.Close()
}

func writeDirectory(writer *cpio.Writer, name string) error {
	header := &cpio.Header{
		Name:  name,
		Mode:  cpio.TypeDir | cpio.ModePerm,
		Links: numDirLinks,
	}

	return writeHeader(writer, header)
}

func writeLink(writer *cpio.Writer, name, target string) error {
	header := &cpio.Header{
		Name: name,
		Mode: cpio.TypeSymlink | cpio.ModePerm,
		Size: int64(len(target)),
	}

	if err := writeHeader(writer, header); err != nil {
		return err
	}

	// Body of a link is the path of the target file.
	if _, err := writer.Write([]byte(target)); err != nil {
		return fmt.Errorf("write body for %s: %w", name, err)
	}

	return nil
}

func writeRegular(writer *cpio.Writer, name, path string, info fs.FileInfo) error {
	header, err := cpio.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("create header: %w", err)
	}

	header.Name = name

	if err := writeHeader(writer, header); err != nil {
		return err
	}

	source, err := os.Open(path)
	if err != nil {
		return err
	}
	defer source.Close()

	if _, err := io.Copy(writer, source); err != nil {
		return fmt.Errorf("write body for %s: %w", name, err)
	}

	return nil
}

func writeHeader(writer *cpio.Writer, header *cpio.Header) error {
	if err := writer.WriteHeader(header); err != nil {
		return fmt.Errorf("write header for %s: %w", header.Name, err)
	}

	return nil
}
