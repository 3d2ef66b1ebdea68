package ir

import (
	"fmt"
	"strconv"
)

// Location is an interned (file, line, column) debug-info triple,
// attachable to any instruction.
type Location struct {
	File   string
	Line   uint32
	Column uint32
}

func locationKey(l *Location) string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// NewLocation returns the interned location.
func (c *Context) NewLocation(file string, line, column uint32) *Location {
	return c.locations.Intern(Location{File: file, Line: line, Column: column})
}

// String renders the canonical textual spelling of the location.
func (l *Location) String() string {
	return strconv.Quote(l.File) + ":" + strconv.FormatUint(uint64(l.Line), 10) + ":" + strconv.FormatUint(uint64(l.Column), 10)
}
