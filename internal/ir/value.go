package ir

import (
	"spirit/internal/arena"
)

// Value is a single SSA definition slot: a type, a debug name, and an
// optional resolved constant. The constant is define-once; a second
// SetConst panics because it means the builder produced two definitions
// for one slot.
type Value struct {
	Type *Type
	Name string

	konst arena.Once[*Const]
}

// SetConst resolves the value to a constant. Panics on a second call.
func (v *Value) SetConst(k *Const) {
	if k == nil {
		panic("ir: nil constant")
	}
	if k.Type != v.Type {
		panic("ir: constant type does not match value type")
	}
	v.konst.Set(k)
}

// Const returns the resolved constant, if any.
func (v *Value) Const() (*Const, bool) {
	return v.konst.Get()
}

// ValueDef owns the creation of a fresh Value in the context's arena.
// Exactly one ValueDef exists per Value; every other reference is a
// ValueUse.
type ValueDef struct {
	Value *Value
}

// NewValueDef allocates a fresh SSA value of type t.
func (c *Context) NewValueDef(t *Type, name string) *ValueDef {
	if t == nil {
		panic("ir: nil value type")
	}
	v := c.values.Alloc(Value{Type: t, Name: name})
	return &ValueDef{Value: v}
}

// Use returns a non-owning use of the defined value.
func (d *ValueDef) Use() ValueUse {
	return ValueUse{Value: d.Value}
}

// ValueUse is a non-owning reference to an existing Value: one SSA
// def/use edge. Many uses may reference one definition.
type ValueUse struct {
	Value *Value
}

// Type returns the type of the used value.
func (u ValueUse) Type() *Type {
	return u.Value.Type
}
