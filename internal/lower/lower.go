// Package lower flattens structured IR into backend builder calls.
// Nested blocks and loops become basic blocks; break and continue
// become branches; block results and loop parameters travel through
// stack slots so no phi support is required of the backend.
package lower

import (
	"fmt"

	"spirit/internal/backend"
	"spirit/internal/ir"
)

// User adapts an IR module to the backend CompilerUser contract: Run
// lowers every function of the module and registers each one as an
// entry point under its own name.
type User struct {
	ModuleName string
	Module     *ir.Module
}

func (u *User) Run(ctx backend.Context) (backend.CompileInputs[string], error) {
	m := ctx.CreateModule(u.ModuleName)
	entries := make(map[string]backend.Function, len(u.Module.Funcs))
	for _, f := range u.Module.Funcs {
		if _, dup := entries[f.Name]; dup {
			return backend.CompileInputs[string]{}, fmt.Errorf("duplicate function name %q", f.Name)
		}
		bf, err := Function(ctx, m, f)
		if err != nil {
			return backend.CompileInputs[string]{}, fmt.Errorf("function %s: %w", f.Name, err)
		}
		entries[f.Name] = bf
	}
	return backend.CompileInputs[string]{Module: m, EntryPoints: entries}, nil
}

func (u *User) CreateError(msg string) error {
	return fmt.Errorf("lower %s: %s", u.ModuleName, msg)
}

// Type lowers an IR type to a backend type. Vector, matrix and opaque
// types have no backend mapping here.
func Type(ctx backend.Context, t *ir.Type) (backend.Type, error) {
	switch t.Kind {
	case ir.TypeInteger:
		return ctx.IntType(t.Int.Bits()), nil
	case ir.TypeFloat:
		return ctx.FloatType(t.Float.Bits()), nil
	case ir.TypeBool:
		return ctx.BoolType(), nil
	case ir.TypePointer:
		elem, err := Type(ctx, t.Pointee)
		if err != nil {
			return nil, err
		}
		return ctx.PointerType(elem), nil
	}
	return nil, fmt.Errorf("cannot lower type %s", t)
}

// blockExit is where a break to one block lands: the basic block after
// the construct and the slots holding its results.
type blockExit struct {
	after backend.BasicBlock
	slots []backend.Value
}

// loopTarget is where a continue lands: the loop header and the slots
// holding its parameters.
type loopTarget struct {
	header backend.BasicBlock
	slots  []backend.Value
}

type lowering struct {
	ctx backend.Context
	fn  *ir.Function
	bf  backend.Function

	b backend.AttachedBuilder // nil while detached
	d backend.DetachedBuilder

	vals   map[*ir.Value]backend.Value
	exits  map[*ir.Block]*blockExit // nil entry: break means return
	loops  map[*ir.Loop]*loopTarget
	nnames int
}

// Function lowers one IR function into m and returns the backend
// function.
func Function(ctx backend.Context, m backend.Module, f *ir.Function) (backend.Function, error) {
	params := make([]backend.Type, len(f.Entry.Args))
	for i, a := range f.Entry.Args {
		t, err := Type(ctx, a.Value.Type)
		if err != nil {
			return nil, err
		}
		params[i] = t
	}
	ret := ctx.VoidType()
	if types, ok := f.Body.ResultTypes().Get(); ok {
		switch len(types) {
		case 0:
		case 1:
			t, err := Type(ctx, types[0])
			if err != nil {
				return nil, err
			}
			ret = t
		default:
			return nil, fmt.Errorf("%d results, backends take at most one", len(types))
		}
	}

	lo := &lowering{
		ctx:   ctx,
		fn:    f,
		bf:    m.AddFunction(f.Name, ctx.FunctionType(params, ret)),
		d:     ctx.CreateBuilder(),
		vals:  make(map[*ir.Value]backend.Value),
		exits: make(map[*ir.Block]*blockExit),
		loops: make(map[*ir.Loop]*loopTarget),
	}
	lo.enter(lo.bf.AppendBasicBlock("entry"))
	for i, a := range f.Entry.Args {
		lo.vals[a.Value] = lo.bf.Param(i)
	}
	for _, v := range f.Locals() {
		t, err := Type(ctx, v.Type)
		if err != nil {
			return nil, err
		}
		lo.vals[v.Pointer.Value] = lo.b.BuildAlloca(t, v.Pointer.Value.Name)
	}

	for i, def := range f.Body.Header.Args {
		v, err := lo.use(f.Body.EntryArgs[i])
		if err != nil {
			return nil, err
		}
		lo.vals[def.Value] = v
	}
	lo.exits[f.Body] = nil // break entry = return
	if err := lo.body(f.Body); err != nil {
		return nil, err
	}
	if lo.b != nil {
		// The function body fell off its end.
		types, ok := f.Body.ResultTypes().Get()
		switch {
		case !ok:
			lo.d = lo.b.BuildUnreachable()
		case len(types) == 0:
			lo.d = lo.b.BuildReturnVoid()
		default:
			return nil, fmt.Errorf("body falls through with results")
		}
		lo.b = nil
	}
	return lo.bf, nil
}

func (lo *lowering) enter(bb backend.BasicBlock) {
	lo.b = lo.d.Attach(bb)
}

func (lo *lowering) newBlock(base string) backend.BasicBlock {
	lo.nnames++
	if base == "" {
		base = "b"
	}
	return lo.bf.AppendBasicBlock(fmt.Sprintf("%s%d", base, lo.nnames))
}

func (lo *lowering) use(u ir.ValueUse) (backend.Value, error) {
	if v, ok := lo.vals[u.Value]; ok {
		return v, nil
	}
	if k, ok := u.Value.Const(); ok {
		return lo.konst(k)
	}
	return nil, fmt.Errorf("value %%%s used before lowering", u.Value.Name)
}

func (lo *lowering) konst(k *ir.Const) (backend.Value, error) {
	t, err := Type(lo.ctx, k.Type)
	if err != nil {
		return nil, err
	}
	switch k.Kind {
	case ir.ConstInteger:
		return lo.ctx.ConstInt(t, k.Bits), nil
	case ir.ConstBool:
		var bits uint64
		if k.Bool {
			bits = 1
		}
		return lo.ctx.ConstInt(t, bits), nil
	case ir.ConstFloat:
		return lo.ctx.ConstFloat(t, k.Bits), nil
	case ir.ConstUndef:
		// Any value is a correct lowering of undef.
		switch k.Type.Kind {
		case ir.TypeFloat:
			return lo.ctx.ConstFloat(t, 0), nil
		case ir.TypeInteger, ir.TypeBool:
			return lo.ctx.ConstInt(t, 0), nil
		}
	}
	return nil, fmt.Errorf("cannot lower constant %s", k)
}

// resultSlots allocates one stack slot per result of defs.
func (lo *lowering) resultSlots(defs []*ir.ValueDef) ([]backend.Value, error) {
	slots := make([]backend.Value, len(defs))
	for i, def := range defs {
		t, err := Type(lo.ctx, def.Value.Type)
		if err != nil {
			return nil, err
		}
		slots[i] = lo.b.BuildAlloca(t, "")
	}
	return slots, nil
}

// loadResults binds the result defs of a construct from its slots in
// the after-block.
func (lo *lowering) loadResults(defs []*ir.ValueDef, slots []backend.Value) error {
	for i, def := range defs {
		t, err := Type(lo.ctx, def.Value.Type)
		if err != nil {
			return err
		}
		lo.vals[def.Value] = lo.b.BuildLoad(t, slots[i], def.Value.Name)
	}
	return nil
}

func (lo *lowering) body(b *ir.Block) error {
	for i := range b.Body {
		if lo.b == nil {
			return fmt.Errorf("unreachable instruction after terminator in block %s", b.Name)
		}
		if err := lo.instr(&b.Body[i]); err != nil {
			return err
		}
	}
	return nil
}

func (lo *lowering) instr(in *ir.Instruction) error {
	switch in.Kind {
	case ir.InstrSimple:
		return lo.simple(&in.Simple)
	case ir.InstrBlock:
		return lo.block(in.Block)
	case ir.InstrLoop:
		return lo.loop(in.Loop)
	case ir.InstrBreak:
		return lo.breakTo(&in.Break)
	case ir.InstrContinue:
		return lo.continueTo(&in.Continue)
	case ir.InstrBranch:
		return lo.branch(&in.Branch)
	}
	return fmt.Errorf("unknown instruction kind %d", in.Kind)
}

func (lo *lowering) block(blk *ir.Block) error {
	// Header parameters are ordinary values bound at entry; the block
	// itself continues in the current basic block. Only breaks need a
	// landing site.
	for i, def := range blk.Header.Args {
		v, err := lo.use(blk.EntryArgs[i])
		if err != nil {
			return err
		}
		lo.vals[def.Value] = v
	}
	defs, hasResults := blk.Results.Get()
	var slots []backend.Value
	if hasResults {
		var err error
		if slots, err = lo.resultSlots(defs); err != nil {
			return err
		}
	}
	after := lo.newBlock(blk.Name)
	lo.exits[blk] = &blockExit{after: after, slots: slots}

	if err := lo.body(blk); err != nil {
		return err
	}
	if lo.b != nil {
		// Fall-through out of a structured block.
		if hasResults && len(defs) > 0 {
			return fmt.Errorf("block %s falls through with results", blk.Name)
		}
		lo.d = lo.b.BuildBr(after)
		lo.b = nil
	}
	if !hasResults {
		// Nothing after this block executes; leave the builder
		// detached and let an enclosing terminator end `after`.
		lo.enter(after)
		lo.d = lo.b.BuildUnreachable()
		lo.b = nil
		return nil
	}
	lo.enter(after)
	return lo.loadResults(defs, slots)
}

func (lo *lowering) loop(loop *ir.Loop) error {
	defs, hasResults := loop.Body.Results.Get()
	var slots []backend.Value
	if hasResults {
		var err error
		if slots, err = lo.resultSlots(defs); err != nil {
			return err
		}
	}
	params, err := lo.resultSlots(loop.Header.Args)
	if err != nil {
		return err
	}
	for i, arg := range loop.Arguments {
		v, err := lo.use(arg)
		if err != nil {
			return err
		}
		lo.b.BuildStore(v, params[i])
	}

	header := lo.newBlock(loop.Name)
	after := lo.newBlock(loop.Name + "_end")
	lo.exits[loop.Body] = &blockExit{after: after, slots: slots}
	lo.loops[loop] = &loopTarget{header: header, slots: params}

	lo.d = lo.b.BuildBr(header)
	lo.b = nil
	lo.enter(header)
	for i, def := range loop.Header.Args {
		t, err := Type(lo.ctx, def.Value.Type)
		if err != nil {
			return err
		}
		lo.vals[def.Value] = lo.b.BuildLoad(t, params[i], def.Value.Name)
	}
	if err := lo.body(loop.Body); err != nil {
		return err
	}
	if lo.b != nil {
		return fmt.Errorf("loop %s body falls through", loop.Name)
	}
	if !hasResults {
		lo.enter(after)
		lo.d = lo.b.BuildUnreachable()
		lo.b = nil
		return nil
	}
	lo.enter(after)
	return lo.loadResults(defs, slots)
}

// emitBreak stores the break arguments and branches to the landing
// site; a break out of the function body returns instead.
func (lo *lowering) emitBreak(br *ir.BreakBlock) error {
	exit, known := lo.exits[br.Block]
	if !known {
		return fmt.Errorf("break to unknown block %s", br.Block.Name)
	}
	if exit == nil {
		switch len(br.Args) {
		case 0:
			lo.d = lo.b.BuildReturnVoid()
		case 1:
			v, err := lo.use(br.Args[0])
			if err != nil {
				return err
			}
			lo.d = lo.b.BuildReturn(v)
		default:
			return fmt.Errorf("%d return values, backends take at most one", len(br.Args))
		}
		lo.b = nil
		return nil
	}
	for i, arg := range br.Args {
		v, err := lo.use(arg)
		if err != nil {
			return err
		}
		lo.b.BuildStore(v, exit.slots[i])
	}
	lo.d = lo.b.BuildBr(exit.after)
	lo.b = nil
	return nil
}

func (lo *lowering) breakTo(br *ir.BreakBlock) error {
	return lo.emitBreak(br)
}

func (lo *lowering) continueTo(c *ir.ContinueLoop) error {
	target, known := lo.loops[c.Loop]
	if !known {
		return fmt.Errorf("continue to unknown loop %s", c.Loop.Name)
	}
	for i, arg := range c.Args {
		v, err := lo.use(arg)
		if err != nil {
			return err
		}
		lo.b.BuildStore(v, target.slots[i])
	}
	lo.d = lo.b.BuildBr(target.header)
	lo.b = nil
	return nil
}

func (lo *lowering) branch(br *ir.Branch) error {
	cond, err := lo.use(br.Cond)
	if err != nil {
		return err
	}
	// Arms that carry no arguments and do not return can jump straight
	// to the landing site; the rest get a trampoline that performs the
	// stores (or the return).
	direct := func(arm *ir.BreakBlock) (backend.BasicBlock, bool) {
		exit, known := lo.exits[arm.Block]
		if known && exit != nil && len(arm.Args) == 0 {
			return exit.after, true
		}
		return nil, false
	}
	thenBB, thenDirect := direct(&br.True)
	elseBB, elseDirect := direct(&br.False)
	if !thenDirect {
		thenBB = lo.newBlock("then")
	}
	if !elseDirect {
		elseBB = lo.newBlock("else")
	}
	lo.d = lo.b.BuildCondBr(cond, thenBB, elseBB)
	lo.b = nil
	if !thenDirect {
		lo.enter(thenBB)
		if err := lo.emitBreak(&br.True); err != nil {
			return err
		}
	}
	if !elseDirect {
		lo.enter(elseBB)
		if err := lo.emitBreak(&br.False); err != nil {
			return err
		}
	}
	return nil
}

var binOps = map[ir.Opcode]backend.BinOp{
	ir.OpAdd:   backend.BinAdd,
	ir.OpSub:   backend.BinSub,
	ir.OpMul:   backend.BinMul,
	ir.OpDiv:   backend.BinDiv,
	ir.OpRem:   backend.BinRem,
	ir.OpFAdd:  backend.BinAdd,
	ir.OpFSub:  backend.BinSub,
	ir.OpFMul:  backend.BinMul,
	ir.OpFDiv:  backend.BinDiv,
	ir.OpAnd:   backend.BinAnd,
	ir.OpOr:    backend.BinOr,
	ir.OpXor:   backend.BinXor,
	ir.OpShl:   backend.BinShl,
	ir.OpShr:   backend.BinShr,
	ir.OpCmpEq: backend.BinCmpEq,
	ir.OpCmpNe: backend.BinCmpNe,
	ir.OpCmpLt: backend.BinCmpLt,
	ir.OpCmpLe: backend.BinCmpLe,
	ir.OpCmpGt: backend.BinCmpGt,
	ir.OpCmpGe: backend.BinCmpGe,
}

func (lo *lowering) simple(s *ir.SimpleInstr) error {
	args := make([]backend.Value, len(s.Args))
	for i, a := range s.Args {
		v, err := lo.use(a)
		if err != nil {
			return err
		}
		args[i] = v
	}
	def := func(i int, v backend.Value) {
		lo.vals[s.Results[i].Value] = v
	}

	if op, ok := binOps[s.Op]; ok {
		def(0, lo.b.BuildBinary(op, args[0], args[1], s.Results[0].Value.Name))
		return nil
	}
	switch s.Op {
	case ir.OpConst:
		v, err := lo.konst(s.Const)
		if err != nil {
			return err
		}
		def(0, v)
	case ir.OpNeg, ir.OpFNeg:
		def(0, lo.b.BuildUnary(backend.UnNeg, args[0], s.Results[0].Value.Name))
	case ir.OpNot:
		def(0, lo.b.BuildUnary(backend.UnNot, args[0], s.Results[0].Value.Name))
	case ir.OpSelect:
		def(0, lo.b.BuildSelect(args[0], args[1], args[2], s.Results[0].Value.Name))
	case ir.OpLoad:
		t, err := Type(lo.ctx, s.Results[0].Value.Type)
		if err != nil {
			return err
		}
		def(0, lo.b.BuildLoad(t, args[0], s.Results[0].Value.Name))
	case ir.OpStore:
		lo.b.BuildStore(args[1], args[0])
	default:
		return fmt.Errorf("cannot lower %s", s.Op)
	}
	return nil
}
