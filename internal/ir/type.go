package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// IntWidth is the bit width of an integer type.
type IntWidth uint8

const (
	Int8 IntWidth = iota
	Int16
	Int32
	Int64
)

// Bits returns the width in bits.
func (w IntWidth) Bits() uint32 {
	return 8 << w
}

func (w IntWidth) String() string {
	return "i" + strconv.FormatUint(uint64(w.Bits()), 10)
}

// FloatWidth is the bit width of a float type.
type FloatWidth uint8

const (
	Float16 FloatWidth = iota
	Float32
	Float64
)

// Bits returns the width in bits.
func (w FloatWidth) Bits() uint32 {
	return 16 << w
}

func (w FloatWidth) String() string {
	return "f" + strconv.FormatUint(uint64(w.Bits()), 10)
}

// TypeKind discriminates the Type union.
type TypeKind uint8

const (
	// TypeInteger is a fixed-width integer.
	TypeInteger TypeKind = iota
	// TypeFloat is a fixed-width float.
	TypeFloat
	// TypeBool is the boolean type.
	TypeBool
	// TypePointer is a pointer to a pointee type.
	TypePointer
	// TypeVector is a fixed-length vector of a scalar element.
	TypeVector
	// TypeMatrix is a column-major matrix.
	TypeMatrix
	// TypeVariableVector is a vector whose length is not statically known.
	TypeVariableVector
	// TypeOpaque is a named type with no visible structure.
	TypeOpaque
	// TypeFunction is a function pointer type.
	TypeFunction
)

// Type is one interned IR type. Types are always handled as *Type
// obtained from a Context; structurally equal types are the same
// pointer within one Context, so type equality is pointer equality.
type Type struct {
	Kind TypeKind

	Int     IntWidth   // TypeInteger
	Float   FloatWidth // TypeFloat
	Pointee *Type      // TypePointer
	Elem    *Type      // TypeVector, TypeMatrix, TypeVariableVector
	Len     uint32     // TypeVector
	Cols    uint32     // TypeMatrix
	Rows    uint32     // TypeMatrix
	Name    string     // TypeOpaque
	Fn      *FnType    // TypeFunction
}

// FnType is the payload of a function pointer type. Returns is
// uninhabited when the function never returns.
type FnType struct {
	Args    []*Type
	Returns Inhabitable[[]*Type]
}

// typeKey builds the interner key. Children are already interned, so
// their addresses identify them; the key never recurses.
func typeKey(t *Type) string {
	switch t.Kind {
	case TypeInteger:
		return "int:" + strconv.FormatUint(uint64(t.Int), 10)
	case TypeFloat:
		return "float:" + strconv.FormatUint(uint64(t.Float), 10)
	case TypeBool:
		return "bool"
	case TypePointer:
		return fmt.Sprintf("ptr:%p", t.Pointee)
	case TypeVector:
		return fmt.Sprintf("vec:%d:%p", t.Len, t.Elem)
	case TypeMatrix:
		return fmt.Sprintf("mat:%dx%d:%p", t.Cols, t.Rows, t.Elem)
	case TypeVariableVector:
		return fmt.Sprintf("vvec:%p", t.Elem)
	case TypeOpaque:
		return "opaque:" + t.Name
	case TypeFunction:
		var sb strings.Builder
		sb.WriteString("fn:")
		for _, a := range t.Fn.Args {
			fmt.Fprintf(&sb, "%p,", a)
		}
		sb.WriteString("->")
		if rets, ok := t.Fn.Returns.Get(); ok {
			for _, r := range rets {
				fmt.Fprintf(&sb, "%p,", r)
			}
		} else {
			sb.WriteString("!")
		}
		return sb.String()
	default:
		panic(fmt.Sprintf("ir: unknown type kind %d", t.Kind))
	}
}

// IntType returns the interned integer type of width w.
func (c *Context) IntType(w IntWidth) *Type {
	return c.types.Intern(Type{Kind: TypeInteger, Int: w})
}

// FloatType returns the interned float type of width w.
func (c *Context) FloatType(w FloatWidth) *Type {
	return c.types.Intern(Type{Kind: TypeFloat, Float: w})
}

// BoolType returns the interned boolean type.
func (c *Context) BoolType() *Type {
	return c.types.Intern(Type{Kind: TypeBool})
}

// PointerType returns the interned pointer type to pointee.
func (c *Context) PointerType(pointee *Type) *Type {
	if pointee == nil {
		panic("ir: nil pointee")
	}
	return c.types.Intern(Type{Kind: TypePointer, Pointee: pointee})
}

// VectorType returns the interned vector type of n elems.
func (c *Context) VectorType(elem *Type, n uint32) *Type {
	if elem == nil || n == 0 {
		panic("ir: invalid vector type")
	}
	return c.types.Intern(Type{Kind: TypeVector, Elem: elem, Len: n})
}

// MatrixType returns the interned cols x rows matrix type.
func (c *Context) MatrixType(elem *Type, cols, rows uint32) *Type {
	if elem == nil || cols == 0 || rows == 0 {
		panic("ir: invalid matrix type")
	}
	return c.types.Intern(Type{Kind: TypeMatrix, Elem: elem, Cols: cols, Rows: rows})
}

// VariableVectorType returns the interned variable-length vector type.
func (c *Context) VariableVectorType(elem *Type) *Type {
	if elem == nil {
		panic("ir: nil element type")
	}
	return c.types.Intern(Type{Kind: TypeVariableVector, Elem: elem})
}

// OpaqueType returns the interned opaque type with the given name.
func (c *Context) OpaqueType(name string) *Type {
	return c.types.Intern(Type{Kind: TypeOpaque, Name: name})
}

// FunctionType returns the interned function pointer type.
func (c *Context) FunctionType(args []*Type, returns Inhabitable[[]*Type]) *Type {
	fn := &FnType{Args: append([]*Type(nil), args...), Returns: returns}
	if rets, ok := returns.Get(); ok {
		fn.Returns = Inhabited(append([]*Type(nil), rets...))
	}
	return c.types.Intern(Type{Kind: TypeFunction, Fn: fn})
}

// String renders the canonical textual spelling of the type.
func (t *Type) String() string {
	switch t.Kind {
	case TypeInteger:
		return t.Int.String()
	case TypeFloat:
		return t.Float.String()
	case TypeBool:
		return "bool"
	case TypePointer:
		return "*" + t.Pointee.String()
	case TypeVector:
		return fmt.Sprintf("<%d x %s>", t.Len, t.Elem)
	case TypeMatrix:
		return fmt.Sprintf("<%d x %d x %s>", t.Cols, t.Rows, t.Elem)
	case TypeVariableVector:
		return fmt.Sprintf("<? x %s>", t.Elem)
	case TypeOpaque:
		return "opaque " + strconv.Quote(t.Name)
	case TypeFunction:
		var sb strings.Builder
		sb.WriteString("fn[")
		for i, a := range t.Fn.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.String())
		}
		sb.WriteString("] -> ")
		if rets, ok := t.Fn.Returns.Get(); ok {
			sb.WriteString("[")
			for i, r := range rets {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(r.String())
			}
			sb.WriteString("]")
		} else {
			sb.WriteString("!")
		}
		return sb.String()
	default:
		panic(fmt.Sprintf("ir: unknown type kind %d", t.Kind))
	}
}
