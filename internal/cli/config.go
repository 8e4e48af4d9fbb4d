// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	units "github.com/docker/go-units"
	"gopkg.in/yaml.v3"

	"github.com/hvforge/bootstage/internal/media"
)

// Config is the YAML launch description. All fields are optional; flags
// set on the command line override them.
type Config struct {
	Binary    string             `yaml:"binary,omitempty"`
	Protocol  media.BootProtocol `yaml:"protocol,omitempty"`
	Payloads  []string           `yaml:"payloads,omitempty"`
	GuestRoot string             `yaml:"guest_root,omitempty"`
	Monitor   MonitorConfig      `yaml:"monitor,omitempty"`
}

// MonitorConfig holds the VM session parameters of a [Config].
type MonitorConfig struct {
	Executable  string `yaml:"executable,omitempty"`
	Firmware    string `yaml:"firmware,omitempty"`
	Memory      string `yaml:"memory,omitempty"`
	SMP         uint64 `yaml:"smp,omitempty"`
	CPU         string `yaml:"cpu,omitempty"`
	KVM         bool   `yaml:"kvm,omitempty"`
	Networking  bool   `yaml:"networking,omitempty"`
	Tap         string `yaml:"tap,omitempty"`
	DebugLog    string `yaml:"debug_log,omitempty"`
	GDBPort     uint16 `yaml:"gdb_port,omitempty"`
	AutoRestart bool   `yaml:"auto_restart,omitempty"`
}

// LoadConfig reads and decodes the config file at path. Unknown fields are
// rejected so typos do not silently fall back to defaults.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var config Config

	if err := decoder.Decode(&config); err != nil &&
		!errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &config, nil
}

// parseMemory converts a human readable size like "512M" or "1g" into
// whole MiB.
func parseMemory(size string) (uint64, error) {
	bytes, err := units.RAMInBytes(size)
	if err != nil {
		return 0, fmt.Errorf("parse memory size: %w", err)
	}

	if bytes < units.MiB {
		return 0, fmt.Errorf("memory size below 1 MiB: %s", size)
	}

	return uint64(bytes) / units.MiB, nil
}
