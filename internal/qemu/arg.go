// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"fmt"
	"slices"
	"strings"
)

// Argument is a single monitor argument with or without a value.
//
// Its name may be marked unique within an argument list. Caller supplied
// extra arguments are appended after all defaults, so collisions with the
// session's essential arguments are detected instead of silently ignored.
type Argument struct {
	name          string
	value         string
	nonUniqueName bool
}

// UniqueArg returns a new [Argument] whose name may appear only once in an
// argument list.
func UniqueArg(name string, value ...string) Argument {
	return Argument{
		name:  name,
		value: strings.Join(value, ","),
	}
}

// RepeatableArg returns a new [Argument] whose name may appear multiple
// times, as long as the values differ.
func RepeatableArg(name string, value ...string) Argument {
	return Argument{
		name:          name,
		value:         strings.Join(value, ","),
		nonUniqueName: true,
	}
}

// Name returns the name of the [Argument].
func (a Argument) Name() string {
	return a.name
}

// Value returns the value of the [Argument].
func (a Argument) Value() string {
	return a.value
}

// String implements [fmt.Stringer].
func (a Argument) String() string {
	s := "-" + a.name
	if a.value != "" {
		s += " " + a.value
	}

	return s
}

// collides reports whether two [Argument]s cannot coexist. Unique names
// collide on the name alone, repeatable names only on identical values.
func (a Argument) collides(other Argument) bool {
	if a.name != other.name {
		return false
	}

	if a.nonUniqueName && other.nonUniqueName {
		return a.value == other.value
	}

	return true
}

// Arguments is a list of [Argument]s.
type Arguments []Argument

// Add appends the given [Argument]s.
func (a *Arguments) Add(args ...Argument) {
	*a = append(*a, args...)
}

// Override appends the given [Argument]s, dropping any earlier argument
// they collide with. Caller supplied arguments win over session defaults.
func (a *Arguments) Override(args ...Argument) {
	for _, arg := range args {
		*a = slices.DeleteFunc(*a, arg.collides)
		*a = append(*a, arg)
	}
}

// Build compiles the list into the string slice passed to the monitor
// process. It fails with [ErrArgumentCollision] if any uniqueness
// constraint is violated.
func (a Arguments) Build() ([]string, error) {
	result := make([]string, 0, len(a)*2)

	for idx, arg := range a {
		if i := slices.IndexFunc(a[:idx], arg.collides); i != -1 {
			return nil, fmt.Errorf(
				"%w: %s, %s",
				ErrArgumentCollision, arg.String(), a[i].String(),
			)
		}

		result = append(result, "-"+arg.name)

		if arg.value != "" {
			result = append(result, arg.value)
		}
	}

	return result, nil
}
