package ir

import (
	"spirit/internal/arena"
	"spirit/internal/source"
)

// Context is the global arena context: the single owner of every type,
// constant, value, and location allocated while building IR. It is
// passed explicitly to every constructor; each test builds its own.
type Context struct {
	types     *arena.Interner[Type]
	consts    *arena.Interner[Const]
	locations *arena.Interner[Location]
	values    arena.Arena[Value]
	strings   *source.Interner
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{
		types:     arena.NewInterner(typeKey),
		consts:    arena.NewInterner(constKey),
		locations: arena.NewInterner(locationKey),
		strings:   source.NewInterner(),
	}
}

// Strings exposes the context's string interner (debug names, labels).
func (c *Context) Strings() *source.Interner {
	return c.strings
}

// NumTypes returns the number of distinct interned types.
func (c *Context) NumTypes() int { return c.types.Len() }

// NumConsts returns the number of distinct interned constants.
func (c *Context) NumConsts() int { return c.consts.Len() }

// NumValues returns the number of SSA values allocated so far.
func (c *Context) NumValues() int { return c.values.Len() }
