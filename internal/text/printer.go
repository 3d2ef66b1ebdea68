package text

import (
	"fmt"
	"strconv"
	"strings"

	"spirit/internal/ir"
)

// PrintModule renders the canonical textual form of a module. The
// output parses back to a structurally identical module and reprints
// byte-for-byte. Malformed modules (a use before its definition, an
// entry point that is not in the module) are construction bugs and
// panic.
func PrintModule(m *ir.Module) string {
	p := newPrinter()
	p.module(m)
	return p.sb.String()
}

// PrintType renders the canonical textual form of a type.
func PrintType(t *ir.Type) string {
	return t.String()
}

// PrintConst renders the canonical textual form of a constant.
func PrintConst(k *ir.Const) string {
	return k.String()
}

type printer struct {
	sb     strings.Builder
	indent int

	// Per-function print scopes. Debug names are hints, not
	// identities: empty or colliding names get a numeric suffix so
	// the printed text is unambiguous.
	values     map[*ir.Value]string
	usedValues map[string]bool
	blocks     map[*ir.Block]string
	loops      map[*ir.Loop]string
	usedLabels map[string]bool

	funcs     map[*ir.Function]string
	usedFuncs map[string]bool
}

func newPrinter() *printer {
	return &printer{
		funcs:     make(map[*ir.Function]string),
		usedFuncs: make(map[string]bool),
	}
}

func (p *printer) line(format string, args ...any) {
	for i := 0; i < p.indent; i++ {
		p.sb.WriteString("    ")
	}
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteString("\n")
}

func uniqueName(base, fallback string, used map[string]bool) string {
	if base == "" {
		base = fallback
	}
	name := base
	for n := 1; used[name]; n++ {
		name = base + strconv.Itoa(n)
	}
	used[name] = true
	return name
}

func (p *printer) resetFunctionScope() {
	p.values = make(map[*ir.Value]string)
	p.usedValues = make(map[string]bool)
	p.blocks = make(map[*ir.Block]string)
	p.loops = make(map[*ir.Loop]string)
	p.usedLabels = make(map[string]bool)
}

func (p *printer) defineValue(def *ir.ValueDef) string {
	name := uniqueName(def.Value.Name, "v", p.usedValues)
	p.values[def.Value] = name
	return name
}

func (p *printer) useValue(u ir.ValueUse) string {
	name, ok := p.values[u.Value]
	if !ok {
		panic(fmt.Sprintf("text: value %q used before its definition", u.Value.Name))
	}
	return "%" + name
}

// defList renders `%name: type` definitions, naming each value.
func (p *printer) defList(defs []*ir.ValueDef) string {
	var sb strings.Builder
	for i, d := range defs {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%%%s: %s", p.defineValue(d), d.Value.Type)
	}
	return sb.String()
}

func (p *printer) useList(uses []ir.ValueUse) string {
	var sb strings.Builder
	for i, u := range uses {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.useValue(u))
	}
	return sb.String()
}

// headerList renders `%name: type = %init` header parameters. The
// initial values are printed before the parameter defs are named, so a
// parameter cannot appear to initialize itself.
func (p *printer) headerList(defs []*ir.ValueDef, inits []ir.ValueUse) string {
	initNames := make([]string, len(inits))
	for i, u := range inits {
		initNames[i] = p.useValue(u)
	}
	var sb strings.Builder
	for i, d := range defs {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%%%s: %s = %s", p.defineValue(d), d.Value.Type, initNames[i])
	}
	return sb.String()
}

// results renders `-> !` or `-> [%r: type, ...]`, naming result defs.
func (p *printer) results(r ir.Inhabitable[[]*ir.ValueDef]) string {
	defs, ok := r.Get()
	if !ok {
		return "-> !"
	}
	return "-> [" + p.defList(defs) + "]"
}

func typeList(types []*ir.Type) string {
	var sb strings.Builder
	for i, t := range types {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(t.String())
	}
	return sb.String()
}

func (p *printer) module(m *ir.Module) {
	p.line("module {")
	p.indent++

	p.line("target_properties {")
	p.indent++
	p.line("data_pointer_width: %s;", m.Target.DataPointerWidth)
	p.line("function_pointer_width: %s;", m.Target.FunctionPointerWidth)
	p.indent--
	p.line("}")

	for _, f := range m.Funcs {
		p.funcs[f] = uniqueName(f.Name, "f", p.usedFuncs)
	}
	for _, f := range m.Funcs {
		p.function(f)
	}

	if m.EntryPoint == nil {
		panic("text: module has no entry point")
	}
	entry, ok := p.funcs[m.EntryPoint]
	if !ok {
		panic("text: entry point is not a function of the module")
	}
	p.line("entry_point: %s;", entry)

	p.indent--
	p.line("}")
}

func (p *printer) function(f *ir.Function) {
	p.resetFunctionScope()

	var rets string
	if types, ok := f.Body.ResultTypes().Get(); ok {
		rets = "[" + typeList(types) + "]"
	} else {
		rets = "!"
	}
	p.line("fn %s[%s] -> %s {", p.funcs[f], p.defList(f.Entry.Args), rets)
	p.indent++

	p.line("hints {")
	p.indent++
	p.line("inlining_hint: %s;", f.Hints.Inlining)
	p.line("side_effects: %s;", f.Hints.SideEffects)
	p.indent--
	p.line("}")

	if f.HasLocals() {
		p.line("locals {")
		p.indent++
		for _, v := range f.Locals() {
			p.line("%%%s: %s;", p.defineValue(v.Pointer), v.Type)
		}
		p.indent--
		p.line("}")
	}

	p.block(f.Body)

	p.indent--
	p.line("}")
}

func (p *printer) block(b *ir.Block) {
	label := uniqueName(b.Name, "b", p.usedLabels)
	p.blocks[b] = label
	p.line("block %s[%s] %s {", label, p.headerList(b.Header.Args, b.EntryArgs), p.results(b.Results))
	p.body(b)
	delete(p.blocks, b)
	delete(p.usedLabels, label)
	p.line("}")
}

func (p *printer) loop(l *ir.Loop) {
	label := uniqueName(l.Name, "l", p.usedLabels)
	p.blocks[l.Body] = label
	p.loops[l] = label
	p.line("loop %s[%s] %s {", label, p.headerList(l.Header.Args, l.Arguments), p.results(l.Body.Results))
	p.body(l.Body)
	delete(p.blocks, l.Body)
	delete(p.loops, l)
	delete(p.usedLabels, label)
	p.line("}")
}

func (p *printer) body(b *ir.Block) {
	p.indent++
	for i := range b.Body {
		p.instr(&b.Body[i])
	}
	p.indent--
}

func (p *printer) blockLabel(b *ir.Block) string {
	label, ok := p.blocks[b]
	if !ok {
		panic(fmt.Sprintf("text: break targets block %q outside the enclosing scope", b.Name))
	}
	return label
}

func (p *printer) loopLabel(l *ir.Loop) string {
	label, ok := p.loops[l]
	if !ok {
		panic(fmt.Sprintf("text: continue targets loop %q outside the enclosing scope", l.Name))
	}
	return label
}

func (p *printer) breakTo(br ir.BreakBlock) string {
	return fmt.Sprintf("%s[%s]", p.blockLabel(br.Block), p.useList(br.Args))
}

func (p *printer) instr(in *ir.Instruction) {
	loc := ""
	if in.Location != nil {
		loc = " @ " + in.Location.String()
	}
	switch in.Kind {
	case ir.InstrSimple:
		info := in.Simple.Op.Info()
		var args string
		if in.Simple.Op == ir.OpConst {
			args = in.Simple.Const.String()
		} else {
			args = p.useList(in.Simple.Args)
		}
		p.line("%s [%s] -> [%s]%s;", info.Name, args, p.defList(in.Simple.Results), loc)
	case ir.InstrBlock:
		p.block(in.Block)
	case ir.InstrLoop:
		p.loop(in.Loop)
	case ir.InstrBreak:
		p.line("break %s%s;", p.breakTo(in.Break), loc)
	case ir.InstrContinue:
		p.line("continue %s[%s]%s;", p.loopLabel(in.Continue.Loop), p.useList(in.Continue.Args), loc)
	case ir.InstrBranch:
		p.line("branch [%s] then %s else %s%s;",
			p.useValue(in.Branch.Cond), p.breakTo(in.Branch.True), p.breakTo(in.Branch.False), loc)
	default:
		panic(fmt.Sprintf("text: unknown instruction kind %d", in.Kind))
	}
}
