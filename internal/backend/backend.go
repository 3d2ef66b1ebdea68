// Package backend defines the capability surface a native-code backend
// exposes to the compiler core.
//
// The core never names a concrete backend. It receives a Context, builds
// a Module through it, and hands the module back through Compiler.Run.
// Instruction emission goes through a two-state builder: a
// DetachedBuilder attaches to a basic block and becomes an
// AttachedBuilder; every terminator-emitting method detaches it again
// and returns the DetachedBuilder. A terminated block can never be
// appended to, so using an AttachedBuilder after a terminator call is a
// programming error and panics.
package backend

// Type is an opaque backend type handle.
type Type interface {
	String() string
}

// Value is an opaque backend SSA value handle.
type Value interface {
	Type() Type
}

// BinOp selects the operation of AttachedBuilder.BuildBinary. Cmp ops
// produce a boolean; the rest produce the operand type. F-prefixed ops
// and the Cmp ops on float operands use the target's float arithmetic.
type BinOp uint8

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinAnd
	BinOr
	BinXor
	BinShl
	BinShr
	BinCmpEq
	BinCmpNe
	BinCmpLt
	BinCmpLe
	BinCmpGt
	BinCmpGe
)

// UnOp selects the operation of AttachedBuilder.BuildUnary.
type UnOp uint8

const (
	UnNeg UnOp = iota
	UnNot
)

// Context creates modules, builders, types and constants. One Context
// owns everything it hands out; handles from different contexts must
// not be mixed.
type Context interface {
	CreateModule(name string) Module
	CreateBuilder() DetachedBuilder

	VoidType() Type
	BoolType() Type
	IntType(bits uint32) Type
	FloatType(bits uint32) Type
	PointerType(elem Type) Type
	FunctionType(params []Type, ret Type) Type

	ConstInt(t Type, v uint64) Value
	ConstFloat(t Type, bits uint64) Value
}

// Module is a collection of functions under construction.
type Module interface {
	Name() string
	AddFunction(name string, t Type) Function
	// Verify checks structural well-formedness (every block terminated
	// exactly once, every function non-empty) and seals the module.
	Verify() (VerifiedModule, error)
}

// VerifiedModule is a module that passed Verify. Only verified modules
// reach code generation.
type VerifiedModule interface {
	Raw() Module
}

// Function is a function under construction inside a Module.
type Function interface {
	Value
	Name() string
	// Param returns the i-th formal parameter as a value; out of range
	// panics.
	Param(i int) Value
	AppendBasicBlock(name string) BasicBlock
}

// BasicBlock is an instruction sequence ending in one terminator.
type BasicBlock interface {
	Name() string
}

// DetachedBuilder is a builder not currently positioned in any block.
type DetachedBuilder interface {
	Attach(bb BasicBlock) AttachedBuilder
}

// AttachedBuilder emits instructions at the end of one basic block.
// Terminator methods consume the builder: they return the detached
// form, and every later call on the attached form panics.
type AttachedBuilder interface {
	Block() BasicBlock

	BuildAlloca(t Type, name string) Value
	BuildLoad(t Type, ptr Value, name string) Value
	BuildStore(v, ptr Value)
	BuildBinary(op BinOp, lhs, rhs Value, name string) Value
	BuildUnary(op UnOp, v Value, name string) Value
	BuildSelect(cond, then, els Value, name string) Value

	BuildReturn(v Value) DetachedBuilder
	BuildReturnVoid() DetachedBuilder
	BuildBr(dst BasicBlock) DetachedBuilder
	BuildCondBr(cond Value, t, f BasicBlock) DetachedBuilder
	BuildUnreachable() DetachedBuilder
}

// CompileInputs is what a CompilerUser hands back: the finished module
// and the externally callable entry points, keyed however the embedding
// likes.
type CompileInputs[K comparable] struct {
	Module      Module
	EntryPoints map[K]Function
}

// CompilerUser is the callback side of one compilation. Run receives a
// live Context and builds the module; CreateError wraps an internal
// failure message into the embedding's own error type, so the core
// never dictates how failures are reported.
type CompilerUser[K comparable] interface {
	Run(ctx Context) (CompileInputs[K], error)
	CreateError(msg string) error
}

// CompiledCode is the opaque result of one compilation. Function
// pointers for the entry points registered in CompileInputs are fetched
// by key.
type CompiledCode[K comparable] interface {
	FunctionPointer(key K) (uintptr, bool)
}

// Config carries backend-independent compilation knobs.
type Config struct {
	OptimizationLevel int
}

// Compiler drives one complete compilation: it calls user.Run with a
// fresh Context, verifies the returned module, generates code, and
// returns the compiled handle. Any internal failure comes back through
// user.CreateError.
type Compiler[K comparable] interface {
	Run(user CompilerUser[K], cfg Config) (CompiledCode[K], error)
}
