package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ConstKind discriminates the Const union.
type ConstKind uint8

const (
	// ConstInteger is a fixed-width integer constant.
	ConstInteger ConstKind = iota
	// ConstFloat is a float constant stored as its raw bit pattern.
	ConstFloat
	// ConstBool is a boolean constant.
	ConstBool
	// ConstVector is a homogeneous vector of constants.
	ConstVector
	// ConstUndef is an undefined value of a given type.
	ConstUndef
	// ConstNull is the null value of a pointer type.
	ConstNull
)

// Const is one interned IR constant, always handled as *Const from a
// Context. Floats carry raw bits, never a decimal value, so NaN
// payloads and subnormals survive round-trips untouched.
type Const struct {
	Kind ConstKind
	Type *Type

	Bits  uint64   // ConstInteger, ConstFloat: raw bit pattern
	Bool  bool     // ConstBool
	Elems []*Const // ConstVector
}

// constKey builds the interner key. Type and elements are interned, so
// their addresses identify them.
func constKey(k *Const) string {
	switch k.Kind {
	case ConstInteger:
		return fmt.Sprintf("int:%p:%x", k.Type, k.Bits)
	case ConstFloat:
		return fmt.Sprintf("float:%p:%x", k.Type, k.Bits)
	case ConstBool:
		return fmt.Sprintf("bool:%v", k.Bool)
	case ConstVector:
		var sb strings.Builder
		sb.WriteString("vec:")
		for _, e := range k.Elems {
			fmt.Fprintf(&sb, "%p,", e)
		}
		return sb.String()
	case ConstUndef:
		return fmt.Sprintf("undef:%p", k.Type)
	case ConstNull:
		return fmt.Sprintf("null:%p", k.Type)
	default:
		panic(fmt.Sprintf("ir: unknown const kind %d", k.Kind))
	}
}

// IntConst returns the interned integer constant of width w. Bits above
// the width are masked off.
func (c *Context) IntConst(w IntWidth, bits uint64) *Const {
	if w != Int64 {
		bits &= (uint64(1) << w.Bits()) - 1
	}
	return c.consts.Intern(Const{Kind: ConstInteger, Type: c.IntType(w), Bits: bits})
}

// FloatConst returns the interned float constant of width w with the
// given raw bit pattern.
func (c *Context) FloatConst(w FloatWidth, bits uint64) *Const {
	if w != Float64 {
		bits &= (uint64(1) << w.Bits()) - 1
	}
	return c.consts.Intern(Const{Kind: ConstFloat, Type: c.FloatType(w), Bits: bits})
}

// BoolConst returns the interned boolean constant.
func (c *Context) BoolConst(v bool) *Const {
	return c.consts.Intern(Const{Kind: ConstBool, Type: c.BoolType(), Bool: v})
}

// VectorConst returns the interned vector constant. The vector must
// have at least one element and all elements must share one type;
// violating either is a construction-time contract violation and
// panics.
func (c *Context) VectorConst(elems []*Const) *Const {
	if len(elems) == 0 {
		panic("ir: vector constant needs at least one element")
	}
	elemType := elems[0].Type
	for _, e := range elems[1:] {
		if e.Type != elemType {
			panic("ir: vector constant elements must share one type")
		}
	}
	vt := c.VectorType(elemType, uint32(len(elems)))
	return c.consts.Intern(Const{
		Kind:  ConstVector,
		Type:  vt,
		Elems: append([]*Const(nil), elems...),
	})
}

// UndefConst returns the interned undefined constant of type t.
func (c *Context) UndefConst(t *Type) *Const {
	return c.consts.Intern(Const{Kind: ConstUndef, Type: t})
}

// NullConst returns the interned null constant; t must be a pointer
// type.
func (c *Context) NullConst(t *Type) *Const {
	if t.Kind != TypePointer {
		panic("ir: null constant needs a pointer type")
	}
	return c.consts.Intern(Const{Kind: ConstNull, Type: t})
}

// String renders the canonical textual spelling of the constant.
func (k *Const) String() string {
	switch k.Kind {
	case ConstInteger:
		return "0x" + strconv.FormatUint(k.Bits, 16) + k.Type.Int.String()
	case ConstFloat:
		digits := int(k.Type.Float.Bits()) / 4
		return fmt.Sprintf("%s 0x%0*x", k.Type.Float, digits, k.Bits)
	case ConstBool:
		if k.Bool {
			return "true"
		}
		return "false"
	case ConstVector:
		var sb strings.Builder
		sb.WriteString("<")
		for i, e := range k.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(e.String())
		}
		sb.WriteString(">")
		return sb.String()
	case ConstUndef:
		return "undef " + k.Type.String()
	case ConstNull:
		return "null " + k.Type.String()
	default:
		panic(fmt.Sprintf("ir: unknown const kind %d", k.Kind))
	}
}
