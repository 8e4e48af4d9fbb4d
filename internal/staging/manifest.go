// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package staging

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Entry is a single file to stage: an existing source path and the path it
// gets relative to the working directory root.
type Entry struct {
	Source      string
	Destination string
}

// Manifest is the ordered list of files a builder expects in its working
// directory. Entries are append-only. Destination paths must be unique and
// must stay inside the working directory.
type Manifest struct {
	entries []Entry
}

// Add appends an entry. It fails if the destination is already claimed by a
// previous entry or escapes the working directory.
func (m *Manifest) Add(source, destination string) error {
	cleaned := filepath.Clean(destination)

	if cleaned == "." || cleaned == "/" ||
		strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return fmt.Errorf("%w: %s", ErrDestinationInvalid, destination)
	}

	for _, entry := range m.entries {
		if entry.Destination == cleaned {
			return fmt.Errorf("%w: %s", ErrDestinationTaken, cleaned)
		}
	}

	m.entries = append(m.entries, Entry{
		Source:      source,
		Destination: cleaned,
	})

	return nil
}

// Entries returns the entries in insertion order.
func (m *Manifest) Entries() []Entry {
	return m.entries
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	return len(m.entries)
}
