package ir

import (
	"testing"
)

// emptyBody returns a block that immediately breaks itself with no
// results.
func emptyBody(name string) *Block {
	b := NewBlock(name, nil, nil, Inhabited([]*ValueDef{}))
	b.Append(Instruction{Kind: InstrBreak, Break: BreakBlock{Block: b}})
	return b
}

func TestFunctionTypeDerivation(t *testing.T) {
	ctx := NewContext()
	i32 := ctx.IntType(Int32)
	f32 := ctx.FloatType(Float32)

	arg0 := ctx.NewValueDef(i32, "a")
	arg1 := ctx.NewValueDef(f32, "b")
	ret := ctx.NewValueDef(f32, "r")
	body := NewBlock("entry", nil, nil, Inhabited([]*ValueDef{ret}))
	body.Append(Instruction{Kind: InstrBreak, Break: BreakBlock{Block: body, Args: []ValueUse{arg1.Use()}}})

	f := ctx.NewFunction("shade", FunctionHints{}, []*ValueDef{arg0, arg1}, body)

	want := ctx.FunctionType([]*Type{i32, f32}, Inhabited([]*Type{f32}))
	if f.Type != want {
		t.Errorf("derived type = %s, want %s", f.Type, want)
	}
}

func TestFunctionTypeUninhabitedBody(t *testing.T) {
	ctx := NewContext()
	body := NewBlock("entry", nil, nil, Uninhabited[[]*ValueDef]())
	f := ctx.NewFunction("spin", FunctionHints{}, nil, body)

	if f.Type.Fn.Returns.IsInhabited() {
		t.Error("a body that never falls through must derive uninhabited returns")
	}
}

func TestFunctionLocalsSetOnce(t *testing.T) {
	ctx := NewContext()
	f := ctx.NewFunction("main", FunctionHints{}, nil, emptyBody("entry"))

	if f.HasLocals() {
		t.Error("locals must start unset")
	}
	ptr := ctx.NewValueDef(ctx.PointerType(ctx.IntType(Int32)), "p")
	f.SetLocals([]Variable{{Type: ctx.IntType(Int32), Pointer: ptr}})
	if len(f.Locals()) != 1 {
		t.Error("locals not stored")
	}

	defer func() {
		if recover() == nil {
			t.Error("second SetLocals must panic")
		}
	}()
	f.SetLocals(nil)
}

func TestHintDefaults(t *testing.T) {
	var h FunctionHints
	if h.Inlining.String() != "none" || h.SideEffects.String() != "normal" {
		t.Errorf("defaults = %s/%s, want none/normal", h.Inlining, h.SideEffects)
	}
}
