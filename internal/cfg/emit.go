package cfg

import (
	"fmt"

	"spirit/internal/diag"
	"spirit/internal/ir"
)

// EmitClient supplies the value-level pieces the structuring pass does
// not carry: straight-line block bodies, branch conditions, switch
// selectors, and return values. The emitter owns all control flow.
type EmitClient interface {
	// EmitBlock appends the non-terminator instructions of the labeled
	// source block to dst.
	EmitBlock(label LabelID, dst *ir.Block) error
	// Condition returns the boolean operand of the labeled block's
	// conditional terminator.
	Condition(label LabelID) (ir.ValueUse, error)
	// Selector returns the selector operand of the labeled block's
	// switch terminator and the width of its case literals.
	Selector(label LabelID) (ir.ValueUse, ir.IntWidth, error)
	// ReturnValue returns the operand of the labeled block's
	// value-returning terminator.
	ReturnValue(label LabelID) (ir.ValueUse, error)
}

// EmitFunction lowers a structure tree to a structured IR function.
// Every region path ends in an explicit break, continue, branch, or
// return; falling through a synthetic wrapper block is how a structured
// jump lands at its target, so the emitted order is exactly the tree's
// child order.
func EmitFunction(ctx *ir.Context, g *Graph, tree *Structure, client EmitClient,
	name string, hints ir.FunctionHints, args []*ir.ValueDef, results []*ir.Type) (*ir.Function, error) {

	defs := make([]*ir.ValueDef, len(results))
	for i, t := range results {
		defs[i] = ctx.NewValueDef(t, "")
	}
	body := ir.NewBlock("entry", nil, nil, ir.Inhabited(defs))

	e := &emitter{ctx: ctx, g: g, client: client, fnBody: body, results: results}
	if err := e.children(tree.Children, body, nil); err != nil {
		return nil, err
	}
	return ctx.NewFunction(name, hints, args, body), nil
}

// jump is the structured encoding of one control transfer: break a
// block, continue a loop, or nothing at all when the target is the very
// next emitted position.
type jump struct {
	block *ir.Block
	loop  *ir.Loop
}

func (j jump) isBreak() bool {
	return j.block != nil
}

type emitter struct {
	ctx     *ir.Context
	g       *Graph
	client  EmitClient
	fnBody  *ir.Block
	results []*ir.Type
	nwrap   int
}

func (e *emitter) wrap(base string) *ir.Block {
	e.nwrap++
	return ir.NewBlock(fmt.Sprintf("%s%d", base, e.nwrap), nil, nil, ir.Inhabited([]*ir.ValueDef{}))
}

func blockInstr(b *ir.Block) ir.Instruction {
	return ir.Instruction{Kind: ir.InstrBlock, Block: b}
}

func (e *emitter) children(children []Child, dst *ir.Block, env map[int]jump) error {
	for i, child := range children {
		next := -1
		if i+1 < len(children) {
			next = children[i+1].Block
		}
		var err error
		switch child.Kind {
		case ChildBlock:
			err = e.leaf(child.Block, dst, env, next)
		case ChildLoop:
			err = e.loop(child.Loop, dst, env)
		case ChildSelection:
			err = e.selection(child.Selection, dst, env)
		case ChildSwitch:
			err = e.swtch(child.Switch, dst, env)
		default:
			panic(fmt.Sprintf("cfg: unknown child kind %d", child.Kind))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// resolve maps a CFG target to its structured jump. The structure tree
// guarantees every leaf target is either the next sibling or a region
// exit; anything else is an emitter bug.
func resolve(target, next int, env map[int]jump) jump {
	if target == next {
		return jump{}
	}
	j, ok := env[target]
	if !ok {
		panic(fmt.Sprintf("cfg: block %d has no structured jump target", target))
	}
	return j
}

func (e *emitter) leaf(b int, dst *ir.Block, env map[int]jump, next int) error {
	label := e.g.Blocks[b].Label
	if err := e.client.EmitBlock(label, dst); err != nil {
		return err
	}
	return e.terminator(b, dst, env, next)
}

func (e *emitter) terminator(b int, dst *ir.Block, env map[int]jump, next int) error {
	in := &e.g.Blocks[b]
	switch in.Term.Kind {
	case TermBranch:
		e.jumpTail(dst, resolve(e.g.Index(in.Term.Target), next, env))
		return nil
	case TermBranchConditional:
		cond, err := e.client.Condition(in.Label)
		if err != nil {
			return err
		}
		jt := resolve(e.g.Index(in.Term.TrueTarget), next, env)
		jf := resolve(e.g.Index(in.Term.FalseTarget), next, env)
		e.condJump(dst, cond, jt, jf)
		return nil
	case TermReturn:
		if len(e.results) != 0 {
			return errf(diag.TrUnsupportedInstr, in.Label, "plain return in a function that returns %d values", len(e.results))
		}
		dst.Append(ir.Instruction{Kind: ir.InstrBreak, Break: ir.BreakBlock{Block: e.fnBody}})
		return nil
	case TermReturnValue:
		if len(e.results) != 1 {
			return errf(diag.TrUnsupportedInstr, in.Label, "value return in a function that returns %d values", len(e.results))
		}
		use, err := e.client.ReturnValue(in.Label)
		if err != nil {
			return err
		}
		dst.Append(ir.Instruction{Kind: ir.InstrBreak, Break: ir.BreakBlock{Block: e.fnBody, Args: []ir.ValueUse{use}}})
		return nil
	case TermKill, TermUnreachable:
		// The invocation ends without meaningful results; fill them
		// with undef so the break arity stays consistent.
		args := make([]ir.ValueUse, len(e.results))
		for i, t := range e.results {
			def := e.ctx.NewValueDef(t, "")
			dst.Append(ir.NewConst(e.ctx.UndefConst(t), def))
			args[i] = def.Use()
		}
		dst.Append(ir.Instruction{Kind: ir.InstrBreak, Break: ir.BreakBlock{Block: e.fnBody, Args: args}})
		return nil
	default:
		return errf(diag.TrUnsupportedInstr, in.Label, "unknown terminator kind %d", in.Term.Kind)
	}
}

func (e *emitter) jumpTail(dst *ir.Block, j jump) {
	switch {
	case j.loop != nil:
		dst.Append(ir.Instruction{Kind: ir.InstrContinue, Continue: ir.ContinueLoop{Loop: j.loop}})
	case j.block != nil:
		dst.Append(ir.Instruction{Kind: ir.InstrBreak, Break: ir.BreakBlock{Block: j.block}})
	}
}

// condJump lowers a two-way transfer. A branch instruction can only
// break blocks, so arms that fall through or continue a loop get a
// wrapper block whose break lands just before the arm's tail.
func (e *emitter) condJump(dst *ir.Block, cond ir.ValueUse, jt, jf jump) {
	branch := func(t, f *ir.Block) ir.Instruction {
		return ir.Instruction{Kind: ir.InstrBranch, Branch: ir.Branch{
			Cond:  cond,
			True:  ir.BreakBlock{Block: t},
			False: ir.BreakBlock{Block: f},
		}}
	}
	switch {
	case jt.isBreak() && jf.isBreak():
		dst.Append(branch(jt.block, jf.block))
	case jt.isBreak():
		w := e.wrap("skip")
		w.Append(branch(jt.block, w))
		dst.Append(blockInstr(w))
		e.jumpTail(dst, jf)
	case jf.isBreak():
		w := e.wrap("skip")
		w.Append(branch(w, jf.block))
		dst.Append(blockInstr(w))
		e.jumpTail(dst, jt)
	default:
		outer := e.wrap("skip")
		inner := e.wrap("skip")
		inner.Append(branch(inner, outer))
		outer.Append(blockInstr(inner))
		e.jumpTail(outer, jt)
		dst.Append(blockInstr(outer))
		e.jumpTail(dst, jf)
	}
}

func cloneEnv(env map[int]jump) map[int]jump {
	out := make(map[int]jump, len(env)+2)
	for k, v := range env {
		out[k] = v
	}
	return out
}

func (e *emitter) loop(node *LoopNode, dst *ir.Block, env map[int]jump) error {
	label := e.g.Blocks[node.Header].Label
	body := ir.NewBlock(fmt.Sprintf("loop%d", label), nil, nil, ir.Inhabited([]*ir.ValueDef{}))
	l := ir.NewLoop(body.Name, nil, nil, body)

	headerNext := -1
	if len(node.Body) > 0 {
		headerNext = node.Body[0].Block
	}

	if len(node.Continue) == 0 {
		// Single region: breaking the loop body exits, the continue
		// target (often the header itself) is the back edge.
		benv := cloneEnv(env)
		benv[node.Merge] = jump{block: body}
		benv[node.ContinueTarget] = jump{loop: l}
		benv[node.Header] = jump{loop: l}
		if err := e.leaf(node.Header, body, benv, headerNext); err != nil {
			return err
		}
		if err := e.children(node.Body, body, benv); err != nil {
			return err
		}
	} else {
		// Separate continue region: the body proper runs inside a
		// wrapper block so a jump to the continue target lands on the
		// continue code, which then loops back to the header.
		w := e.wrap(fmt.Sprintf("body%d_", label))
		benv := cloneEnv(env)
		benv[node.Merge] = jump{block: body}
		benv[node.ContinueTarget] = jump{block: w}
		if err := e.leaf(node.Header, w, benv, headerNext); err != nil {
			return err
		}
		if err := e.children(node.Body, w, benv); err != nil {
			return err
		}
		body.Append(blockInstr(w))

		cenv := cloneEnv(env)
		cenv[node.Merge] = jump{block: body}
		cenv[node.Header] = jump{loop: l}
		if err := e.children(node.Continue, body, cenv); err != nil {
			return err
		}
	}

	dst.Append(ir.Instruction{Kind: ir.InstrLoop, Loop: l})
	return nil
}

func (e *emitter) selection(node *SelectionNode, dst *ir.Block, env map[int]jump) error {
	label := e.g.Blocks[node.Header].Label
	if err := e.client.EmitBlock(label, dst); err != nil {
		return err
	}
	cond, err := e.client.Condition(label)
	if err != nil {
		return err
	}

	endif := e.wrap(fmt.Sprintf("endif%d_", label))
	aenv := cloneEnv(env)
	aenv[node.Merge] = jump{block: endif}

	branch := func(t, f *ir.Block) ir.Instruction {
		return ir.Instruction{Kind: ir.InstrBranch, Branch: ir.Branch{
			Cond:  cond,
			True:  ir.BreakBlock{Block: t},
			False: ir.BreakBlock{Block: f},
		}}
	}

	switch {
	case len(node.True) > 0 && len(node.False) > 0:
		elseb := e.wrap(fmt.Sprintf("else%d_", label))
		thenb := e.wrap(fmt.Sprintf("then%d_", label))
		thenb.Append(branch(thenb, elseb))
		elseb.Append(blockInstr(thenb))
		if err := e.children(node.True, elseb, aenv); err != nil {
			return err
		}
		endif.Append(blockInstr(elseb))
		if err := e.children(node.False, endif, aenv); err != nil {
			return err
		}
	case len(node.True) > 0:
		thenb := e.wrap(fmt.Sprintf("then%d_", label))
		thenb.Append(branch(thenb, endif))
		endif.Append(blockInstr(thenb))
		if err := e.children(node.True, endif, aenv); err != nil {
			return err
		}
	case len(node.False) > 0:
		elseb := e.wrap(fmt.Sprintf("else%d_", label))
		elseb.Append(branch(endif, elseb))
		endif.Append(blockInstr(elseb))
		if err := e.children(node.False, endif, aenv); err != nil {
			return err
		}
	default:
		// Both arms reconverge immediately.
		endif.Append(ir.Instruction{Kind: ir.InstrBreak, Break: ir.BreakBlock{Block: endif}})
	}

	dst.Append(blockInstr(endif))
	return nil
}

func (e *emitter) swtch(node *SwitchNode, dst *ir.Block, env map[int]jump) error {
	label := e.g.Blocks[node.Header].Label
	if err := e.client.EmitBlock(label, dst); err != nil {
		return err
	}
	sel, width, err := e.client.Selector(label)
	if err != nil {
		return err
	}

	endsw := e.wrap(fmt.Sprintf("endsw%d_", label))

	// The default and every case may all target the merge, leaving no
	// arms at all. The switch is then a plain fallthrough.
	if len(node.Cases) == 0 {
		endsw.Append(ir.Instruction{Kind: ir.InstrBreak, Break: ir.BreakBlock{Block: endsw}})
		dst.Append(blockInstr(endsw))
		return nil
	}

	// One wrapper per arm, innermost first: breaking wrapper i lands on
	// arm i's body, which sits right after wrapper i inside wrapper
	// i+1. Fallthrough is simply running off one body into the next.
	ws := make([]*ir.Block, len(node.Cases))
	for i := range node.Cases {
		ws[i] = e.wrap(fmt.Sprintf("sw%d_%d_", label, i))
	}

	// Dispatch: test each non-default arm in order, then fall back to
	// the default, which is always the first arm.
	dispatch := ws[0]
	for i := 1; i < len(node.Cases); i++ {
		c := node.Cases[i]
		k := e.ctx.IntConst(width, c.Value)
		kdef := e.ctx.NewValueDef(k.Type, "")
		dispatch.Append(ir.NewConst(k, kdef))
		m := e.ctx.NewValueDef(e.ctx.BoolType(), "")
		dispatch.Append(ir.NewSimple(ir.OpCmpEq, []ir.ValueUse{sel, kdef.Use()}, []*ir.ValueDef{m}))
		e.condJump(dispatch, m.Use(), jump{block: ws[i]}, jump{})
	}
	dispatch.Append(ir.Instruction{Kind: ir.InstrBreak, Break: ir.BreakBlock{Block: ws[0]}})

	inner := dispatch
	for i := range node.Cases {
		outer := endsw
		if i+1 < len(node.Cases) {
			outer = ws[i+1]
		}
		outer.Append(blockInstr(inner))

		aenv := cloneEnv(env)
		aenv[node.Merge] = jump{block: endsw}
		for j := i + 1; j < len(node.Cases); j++ {
			aenv[node.Cases[j].Target] = jump{block: ws[j]}
		}
		if err := e.children(node.Cases[i].Body, outer, aenv); err != nil {
			return err
		}
		inner = outer
	}

	dst.Append(blockInstr(endsw))
	return nil
}
