package cfg

import (
	"strings"
	"testing"

	"spirit/internal/ir"
)

// emitClient fabricates the value operands the emitter asks for: every
// block body defines one boolean and one i32 it can later hand out as a
// condition, selector, or return value.
type emitClient struct {
	ctx   *ir.Context
	bools map[LabelID]*ir.ValueDef
	ints  map[LabelID]*ir.ValueDef
}

func newEmitClient(ctx *ir.Context) *emitClient {
	return &emitClient{
		ctx:   ctx,
		bools: make(map[LabelID]*ir.ValueDef),
		ints:  make(map[LabelID]*ir.ValueDef),
	}
}

func (c *emitClient) EmitBlock(label LabelID, dst *ir.Block) error {
	b := c.ctx.NewValueDef(c.ctx.BoolType(), "")
	dst.Append(ir.NewConst(c.ctx.BoolConst(true), b))
	c.bools[label] = b

	n := c.ctx.NewValueDef(c.ctx.IntType(ir.Int32), "")
	dst.Append(ir.NewConst(c.ctx.IntConst(ir.Int32, uint64(label)), n))
	c.ints[label] = n
	return nil
}

func (c *emitClient) Condition(label LabelID) (ir.ValueUse, error) {
	return c.bools[label].Use(), nil
}

func (c *emitClient) Selector(label LabelID) (ir.ValueUse, ir.IntWidth, error) {
	return c.ints[label].Use(), ir.Int32, nil
}

func (c *emitClient) ReturnValue(label LabelID) (ir.ValueUse, error) {
	return c.ints[label].Use(), nil
}

func emitModule(t *testing.T, blocks []BlockInput, idBound uint32, results []*ir.Type) (*ir.Context, *ir.Module) {
	t.Helper()
	ctx := ir.NewContext()
	g := mustBuild(t, blocks, idBound)
	tree, err := BuildStructure(g)
	if err != nil {
		t.Fatalf("BuildStructure: %v", err)
	}
	f, err := EmitFunction(ctx, g, tree, newEmitClient(ctx), "main", ir.FunctionHints{}, nil, results)
	if err != nil {
		t.Fatalf("EmitFunction: %v", err)
	}
	m := ir.NewModule(ir.DefaultTargetProperties())
	m.AddFunction(f)
	m.EntryPoint = f
	return ctx, m
}

func kinds(b *ir.Block) []ir.InstrKind {
	out := make([]ir.InstrKind, len(b.Body))
	for i := range b.Body {
		out[i] = b.Body[i].Kind
	}
	return out
}

func TestEmitStraightLine(t *testing.T) {
	_, m := emitModule(t, []BlockInput{branch(0, 1), ret(1)}, 2, nil)
	if err := ir.Validate(m); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	body := m.EntryPoint.Body
	// Two leaf bodies back to back, the branch folded into fallthrough,
	// then the return break.
	ks := kinds(body)
	if ks[len(ks)-1] != ir.InstrBreak {
		t.Errorf("last instruction %v, want break", ks[len(ks)-1])
	}
	for _, k := range ks[:len(ks)-1] {
		if k != ir.InstrSimple {
			t.Errorf("instruction kind %v, want simple", k)
		}
	}
}

func TestEmitReturnValue(t *testing.T) {
	ctx := ir.NewContext()
	g := mustBuild(t, []BlockInput{{Label: 0, Term: Terminator{Kind: TermReturnValue}}}, 1)
	tree, err := BuildStructure(g)
	if err != nil {
		t.Fatal(err)
	}
	i32 := ctx.IntType(ir.Int32)
	f, err := EmitFunction(ctx, g, tree, newEmitClient(ctx), "main", ir.FunctionHints{}, nil, []*ir.Type{i32})
	if err != nil {
		t.Fatal(err)
	}
	types, ok := f.Type.Fn.Returns.Get()
	if !ok || len(types) != 1 || types[0] != i32 {
		t.Errorf("derived returns = %v", f.Type)
	}
	last := f.Body.Body[len(f.Body.Body)-1]
	if last.Kind != ir.InstrBreak || len(last.Break.Args) != 1 {
		t.Fatalf("last instruction %+v, want break with the returned value", last)
	}
}

func TestEmitLoop(t *testing.T) {
	_, m := emitModule(t, []BlockInput{
		branch(0, 1),
		withMerge(condBr(1, 2, 4), loopMerge(4, 3)),
		branch(2, 3),
		branch(3, 1),
		ret(4),
	}, 5, nil)
	if err := ir.Validate(m); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	var loop *ir.Loop
	for i := range m.EntryPoint.Body.Body {
		if m.EntryPoint.Body.Body[i].Kind == ir.InstrLoop {
			loop = m.EntryPoint.Body.Body[i].Loop
		}
	}
	if loop == nil {
		t.Fatal("no loop emitted")
	}
	if !hasKind(loop.Body, ir.InstrContinue) {
		t.Error("loop body must contain a continue")
	}
	if !hasKind(loop.Body, ir.InstrBranch) {
		t.Error("loop body must contain the header branch")
	}
}

func TestEmitSelection(t *testing.T) {
	_, m := emitModule(t, []BlockInput{
		withMerge(condBr(0, 1, 2), selMerge(3)),
		branch(1, 3),
		branch(2, 3),
		ret(3),
	}, 4, nil)
	if err := ir.Validate(m); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !hasKind(m.EntryPoint.Body, ir.InstrBranch) {
		t.Error("selection must lower to a branch")
	}
}

func TestEmitSwitch(t *testing.T) {
	sw := BlockInput{
		Label: 0,
		Merge: &Merge{Kind: MergeSelection, MergeBlock: 4},
		Term: Terminator{
			Kind:    TermSwitch,
			Default: 1,
			Cases:   []SwitchCase{{Value: 10, Target: 2}, {Value: 20, Target: 3}},
		},
	}
	_, m := emitModule(t, []BlockInput{
		sw,
		branch(1, 4),
		branch(2, 3),
		branch(3, 4),
		ret(4),
	}, 5, nil)
	if err := ir.Validate(m); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	// The selector dispatch lowers to equality tests.
	if countOp(m.EntryPoint.Body, ir.OpCmpEq) != 2 {
		t.Errorf("cmp_eq count = %d, want 2", countOp(m.EntryPoint.Body, ir.OpCmpEq))
	}
}

func TestEmitSwitchAllArmsToMerge(t *testing.T) {
	// The default and the only case both jump straight to the merge, so
	// the switch has no arms and degenerates to a fallthrough.
	sw := BlockInput{
		Label: 0,
		Merge: &Merge{Kind: MergeSelection, MergeBlock: 1},
		Term: Terminator{
			Kind:    TermSwitch,
			Default: 1,
			Cases:   []SwitchCase{{Value: 10, Target: 1}},
		},
	}
	_, m := emitModule(t, []BlockInput{sw, ret(1)}, 2, nil)
	if err := ir.Validate(m); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if n := countOp(m.EntryPoint.Body, ir.OpCmpEq); n != 0 {
		t.Errorf("cmp_eq count = %d, want 0", n)
	}
	if !hasKind(m.EntryPoint.Body, ir.InstrBreak) {
		t.Error("merge body must still end in the return break")
	}
}

func TestEmitSwitchDefaultOnly(t *testing.T) {
	sw := BlockInput{
		Label: 0,
		Merge: &Merge{Kind: MergeSelection, MergeBlock: 2},
		Term: Terminator{
			Kind:    TermSwitch,
			Default: 1,
		},
	}
	_, m := emitModule(t, []BlockInput{sw, branch(1, 2), ret(2)}, 3, nil)
	if err := ir.Validate(m); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	// A single arm needs no selector comparison.
	if n := countOp(m.EntryPoint.Body, ir.OpCmpEq); n != 0 {
		t.Errorf("cmp_eq count = %d, want 0", n)
	}
}

func TestEmitKillFillsResultsWithUndef(t *testing.T) {
	ctx := ir.NewContext()
	g := mustBuild(t, []BlockInput{{Label: 0, Term: Terminator{Kind: TermKill}}}, 1)
	tree, err := BuildStructure(g)
	if err != nil {
		t.Fatal(err)
	}
	i32 := ctx.IntType(ir.Int32)
	f, err := EmitFunction(ctx, g, tree, newEmitClient(ctx), "main", ir.FunctionHints{}, nil, []*ir.Type{i32})
	if err != nil {
		t.Fatal(err)
	}
	m := ir.NewModule(ir.DefaultTargetProperties())
	m.AddFunction(f)
	m.EntryPoint = f
	if err := ir.Validate(m); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	last := f.Body.Body[len(f.Body.Body)-1]
	if last.Kind != ir.InstrBreak || len(last.Break.Args) != 1 {
		t.Fatalf("last instruction %+v, want break with one argument", last)
	}
	k, ok := last.Break.Args[0].Value.Const()
	if !ok || k.Kind != ir.ConstUndef {
		t.Error("kill must fill results with undef")
	}
}

func TestEmitPlainReturnWithResultsFails(t *testing.T) {
	ctx := ir.NewContext()
	g := mustBuild(t, []BlockInput{ret(0)}, 1)
	tree, err := BuildStructure(g)
	if err != nil {
		t.Fatal(err)
	}
	i32 := ctx.IntType(ir.Int32)
	_, err = EmitFunction(ctx, g, tree, newEmitClient(ctx), "main", ir.FunctionHints{}, nil, []*ir.Type{i32})
	if err == nil || !strings.Contains(err.Error(), "plain return") {
		t.Fatalf("err = %v, want plain return error", err)
	}
}

func hasKind(b *ir.Block, kind ir.InstrKind) bool {
	for i := range b.Body {
		in := &b.Body[i]
		if in.Kind == kind {
			return true
		}
		switch in.Kind {
		case ir.InstrBlock:
			if hasKind(in.Block, kind) {
				return true
			}
		case ir.InstrLoop:
			if hasKind(in.Loop.Body, kind) {
				return true
			}
		}
	}
	return false
}

func countOp(b *ir.Block, op ir.Opcode) int {
	n := 0
	for i := range b.Body {
		in := &b.Body[i]
		switch in.Kind {
		case ir.InstrSimple:
			if in.Simple.Op == op {
				n++
			}
		case ir.InstrBlock:
			n += countOp(in.Block, op)
		case ir.InstrLoop:
			n += countOp(in.Loop.Body, op)
		}
	}
	return n
}
