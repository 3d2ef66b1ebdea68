// Package ir defines the typed intermediate representation produced by
// shader translation: interned types and constants, SSA value
// definitions and uses, instructions with structured control flow
// (blocks, loops, breaks, continues), functions and modules.
//
// All long-lived IR entities are owned by one Context, the root arena
// and interner for a compilation unit. Nothing in the IR outlives the
// Context that allocated it; cyclic references (a continue back to its
// loop, a break to an enclosing block) are plain non-owning pointers
// into the same arenas.
package ir
