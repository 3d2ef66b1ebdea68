package ir

import (
	"spirit/internal/arena"
)

// InliningHint tells a backend how to treat calls to a function.
type InliningHint uint8

const (
	// InlineNone leaves the decision to the backend.
	InlineNone InliningHint = iota
	// InlineHint asks for inlining.
	InlineHint
	// InlineDont forbids inlining.
	InlineDont
)

func (h InliningHint) String() string {
	switch h {
	case InlineNone:
		return "none"
	case InlineHint:
		return "inline"
	case InlineDont:
		return "dont_inline"
	}
	return "unknown"
}

// SideEffects classifies a function for optimization purposes.
type SideEffects uint8

const (
	// EffectsNormal makes no promise.
	EffectsNormal SideEffects = iota
	// EffectsPure means no side effects; may read memory.
	EffectsPure
	// EffectsConst means the result depends only on the arguments.
	EffectsConst
)

func (e SideEffects) String() string {
	switch e {
	case EffectsNormal:
		return "normal"
	case EffectsPure:
		return "pure"
	case EffectsConst:
		return "const"
	}
	return "unknown"
}

// FunctionHints carries backend-facing hints; the zero value is the
// default (none / normal).
type FunctionHints struct {
	Inlining    InliningHint
	SideEffects SideEffects
}

// Variable is a typed stack slot local to a function, together with the
// pointer value its address is visible as.
type Variable struct {
	Type    *Type
	Pointer *ValueDef
}

// FunctionEntry holds the argument definitions of a function.
type FunctionEntry struct {
	Args []*ValueDef
}

// Results implements CodeIO.
func (e *FunctionEntry) Results() Inhabitable[[]*ValueDef] {
	return Inhabited(e.Args)
}

// Arguments implements CodeIO.
func (e *FunctionEntry) Arguments() []ValueUse {
	return nil
}

// Function is one IR function. Its function pointer type is derived in
// NewFunction from the argument and body result types, so the type can
// never disagree with the body. Names are not required to be unique.
type Function struct {
	Name  string
	Hints FunctionHints
	Type  *Type // TypeFunction, derived
	Entry FunctionEntry
	Body  *Block

	locals arena.Once[[]Variable]
}

// NewFunction builds a function and derives its type from args and the
// body's result types.
func (c *Context) NewFunction(name string, hints FunctionHints, args []*ValueDef, body *Block) *Function {
	argTypes := make([]*Type, len(args))
	for i, a := range args {
		argTypes[i] = a.Value.Type
	}
	fnType := c.FunctionType(argTypes, body.ResultTypes())
	return &Function{
		Name:  name,
		Hints: hints,
		Type:  fnType,
		Entry: FunctionEntry{Args: args},
		Body:  body,
	}
}

// SetLocals populates the function's local variables. Set-once: a
// second call panics.
func (f *Function) SetLocals(vars []Variable) {
	f.locals.Set(vars)
}

// Locals returns the local variables, or nil when never set.
func (f *Function) Locals() []Variable {
	vars, ok := f.locals.Get()
	if !ok {
		return nil
	}
	return vars
}

// HasLocals reports whether SetLocals has run.
func (f *Function) HasLocals() bool {
	return f.locals.IsSet()
}
