// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package mount

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	loopControlPath = "/dev/loop-control"

	// All media images produced here are FAT formatted. The optical builder
	// never mounts, so no other filesystem type ever reaches the guard.
	imageFSType = "vfat"
)

// system is the privileged syscall surface of the guard. Split out so the
// release/conflict logic can be tested without root.
type system interface {
	attach(imagePath string) (device string, err error)
	detach(device string) error
	mount(device, target string) error
	unmount(target string) error
}

type realSystem struct{}

// attach binds imagePath to a free loop device and returns its path.
func (realSystem) attach(imagePath string) (string, error) {
	ctl, err := os.OpenFile(loopControlPath, os.O_RDWR, 0)
	if err != nil {
		return "", fmt.Errorf("open loop control: %w", err)
	}
	defer ctl.Close()

	num, err := unix.IoctlRetInt(int(ctl.Fd()), unix.LOOP_CTL_GET_FREE)
	if err != nil {
		return "", fmt.Errorf("get free loop device: %w", err)
	}

	device := fmt.Sprintf("/dev/loop%d", num)

	image, err := os.OpenFile(imagePath, os.O_RDWR, 0)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer image.Close()

	dev, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", device, err)
	}
	defer dev.Close()

	err = unix.IoctlSetInt(int(dev.Fd()), unix.LOOP_SET_FD, int(image.Fd()))
	if err != nil {
		return "", fmt.Errorf("bind %s: %w", device, err)
	}

	return device, nil
}

func (realSystem) detach(device string) error {
	dev, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", device, err)
	}
	defer dev.Close()

	err = unix.IoctlSetInt(int(dev.Fd()), unix.LOOP_CLR_FD, 0)
	if err != nil {
		return fmt.Errorf("clear %s: %w", device, err)
	}

	return nil
}

func (realSystem) mount(device, target string) error {
	err := unix.Mount(device, target, imageFSType, 0, "")
	if err != nil {
		return fmt.Errorf("mount %s on %s: %w", device, target, err)
	}

	return nil
}

func (realSystem) unmount(target string) error {
	err := unix.Unmount(target, 0)
	if err != nil {
		return fmt.Errorf("unmount %s: %w", target, err)
	}

	return nil
}
