package driver

import (
	"fmt"
	"strings"

	"spirit/internal/ir"
)

// StructureOutline renders the control-flow skeleton of a module: one
// line per function, block, loop and terminator, indented by nesting
// depth. Simple instructions are folded into a single count per region.
func StructureOutline(m *ir.Module) string {
	var b strings.Builder
	for _, f := range m.Funcs {
		marker := ""
		if m.EntryPoint == f {
			marker = " (entry point)"
		}
		fmt.Fprintf(&b, "fn %s%s\n", f.Name, marker)
		outlineBlock(&b, f.Body, 1)
	}
	return b.String()
}

func outlineBlock(b *strings.Builder, blk *ir.Block, depth int) {
	fmt.Fprintf(b, "%sblock %s%s\n", indent(depth), blk.Name, arity(blk.Header.Args, blk.Results))
	outlineBody(b, blk.Body, depth+1)
}

func outlineBody(b *strings.Builder, body []ir.Instruction, depth int) {
	simple := 0
	flush := func() {
		if simple > 0 {
			fmt.Fprintf(b, "%s%d instr\n", indent(depth), simple)
			simple = 0
		}
	}
	for i := range body {
		in := &body[i]
		switch in.Kind {
		case ir.InstrSimple:
			simple++
		case ir.InstrBlock:
			flush()
			outlineBlock(b, in.Block, depth)
		case ir.InstrLoop:
			flush()
			loop := in.Loop
			fmt.Fprintf(b, "%sloop %s%s\n", indent(depth), loop.Name, arity(loop.Header.Args, loop.Body.Results))
			outlineBody(b, loop.Body.Body, depth+1)
		case ir.InstrContinue:
			flush()
			fmt.Fprintf(b, "%scontinue %s\n", indent(depth), in.Continue.Loop.Name)
		case ir.InstrBreak:
			flush()
			fmt.Fprintf(b, "%sbreak %s\n", indent(depth), in.Break.Block.Name)
		case ir.InstrBranch:
			flush()
			fmt.Fprintf(b, "%sbranch %s / %s\n", indent(depth), in.Branch.True.Block.Name, in.Branch.False.Block.Name)
		}
	}
	flush()
}

func arity(params []*ir.ValueDef, results ir.Inhabitable[[]*ir.ValueDef]) string {
	res, ok := results.Get()
	if !ok {
		return fmt.Sprintf(" [%d params, diverges]", len(params))
	}
	return fmt.Sprintf(" [%d params -> %d results]", len(params), len(res))
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}
