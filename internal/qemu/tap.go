// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"errors"
	"fmt"
	"os"

	"github.com/vishvananda/netlink"
)

// ensureTap creates the host tap interface the monitor's netdev attaches
// to and brings it up. An already existing link of the same name is reused.
func ensureTap(name string) error {
	attrs := netlink.NewLinkAttrs()
	attrs.Name = name

	tap := &netlink.Tuntap{
		LinkAttrs: attrs,
		Mode:      netlink.TUNTAP_MODE_TAP,
	}

	if err := netlink.LinkAdd(tap); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("add link %s: %w", name, err)
	}

	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("get link %s: %w", name, err)
	}

	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("set link %s up: %w", name, err)
	}

	return nil
}
