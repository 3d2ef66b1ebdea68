package text

import (
	"math"

	"golang.org/x/text/unicode/norm"

	"spirit/internal/diag"
	"spirit/internal/ir"
	"spirit/internal/source"
)

// ParseModule parses the canonical textual form of a whole module.
func ParseModule(path, src string, ctx *ir.Context) (*ir.Module, error) {
	p := newParser(path, src, ctx)
	m, err := p.parseModule()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseType parses a single type.
func ParseType(path, src string, ctx *ir.Context) (*ir.Type, error) {
	p := newParser(path, src, ctx)
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseConst parses a single constant literal.
func ParseConst(path, src string, ctx *ir.Context) (*ir.Const, error) {
	p := newParser(path, src, ctx)
	k, err := p.parseConst()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return k, nil
}

// labelEntry is one entry on the structured-label scope stack. Loop is
// nil for plain blocks; for loops, Block is the loop body (the break
// target) and Loop the continue target.
type labelEntry struct {
	name  string
	block *ir.Block
	loop  *ir.Loop
}

type parser struct {
	ctx  *ir.Context
	fs   *source.FileSet
	file *source.File
	lx   *lexer

	// Per-function state. Reset after each function body, so value and
	// label names are reusable across sibling functions.
	values map[string]*ir.Value
	labels []labelEntry

	funcs map[string]*ir.Function
}

func newParser(path, src string, ctx *ir.Context) *parser {
	fs := source.NewFileSet()
	id := fs.AddVirtual(path, []byte(src))
	file := fs.Get(id)
	return &parser{
		ctx:   ctx,
		fs:    fs,
		file:  file,
		lx:    newLexer(fs, file),
		funcs: make(map[string]*ir.Function),
	}
}

func (p *parser) errAt(tok Token, code diag.Code, format string, args ...any) *FromTextError {
	return p.lx.errAt(tok.Span.Start, code, format, args...)
}

func (p *parser) next() (Token, *FromTextError) {
	return p.lx.next()
}

func (p *parser) peek() (Token, *FromTextError) {
	return p.lx.peek()
}

func (p *parser) expectPunct(s string) (Token, *FromTextError) {
	tok, err := p.next()
	if err != nil {
		return tok, err
	}
	if !tok.Is(s) {
		return tok, p.errAt(tok, diag.SynUnexpectedToken, "expected %q, found %q", s, tok.Text)
	}
	return tok, nil
}

func (p *parser) expectWord(s string) (Token, *FromTextError) {
	tok, err := p.next()
	if err != nil {
		return tok, err
	}
	if !tok.IsWord(s) {
		return tok, p.errAt(tok, diag.SynUnexpectedToken, "expected %q, found %q", s, tok.Text)
	}
	return tok, nil
}

func (p *parser) expectIdent() (Token, *FromTextError) {
	tok, err := p.next()
	if err != nil {
		return tok, err
	}
	if tok.Kind != TokIdent {
		return tok, p.errAt(tok, diag.SynExpectIdentifier, "expected identifier, found %q", tok.Text)
	}
	return tok, nil
}

func (p *parser) expectEOF() *FromTextError {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.Kind != TokEOF {
		return p.errAt(tok, diag.SynUnexpectedToken, "expected end of input, found %q", tok.Text)
	}
	return nil
}

// peekIs reports whether the next token is the given punctuation.
func (p *parser) peekIs(s string) bool {
	tok, err := p.peek()
	return err == nil && tok.Is(s)
}

func (p *parser) peekIsWord(s string) bool {
	tok, err := p.peek()
	return err == nil && tok.IsWord(s)
}

// ---- module ----

func (p *parser) parseModule() (*ir.Module, *FromTextError) {
	if _, err := p.expectWord("module"); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}

	target := ir.DefaultTargetProperties()
	if p.peekIsWord("target_properties") {
		t, err := p.parseTargetProperties()
		if err != nil {
			return nil, err
		}
		target = t
	}

	m := ir.NewModule(target)
	for p.peekIsWord("fn") {
		f, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		m.AddFunction(f)
	}

	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if !tok.IsWord("entry_point") {
		return nil, p.errAt(tok, diag.SynMissingEntryPoint, "expected entry_point, found %q", tok.Text)
	}
	if _, err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	entry, ok := p.funcs[nameTok.Text]
	if !ok {
		return nil, p.errAt(nameTok, diag.SynUndefinedName, "entry point %q is not a defined function", nameTok.Text)
	}
	m.EntryPoint = entry
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return m, nil
}

func (p *parser) parseTargetProperties() (ir.TargetProperties, *FromTextError) {
	target := ir.DefaultTargetProperties()
	if _, err := p.expectWord("target_properties"); err != nil {
		return target, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return target, err
	}
	seen := map[string]bool{}
	for !p.peekIs("}") {
		fieldTok, err := p.expectIdent()
		if err != nil {
			return target, err
		}
		field := fieldTok.Text
		if field != "data_pointer_width" && field != "function_pointer_width" {
			return target, p.errAt(fieldTok, diag.SynBadTargetProperty, "unknown target property %q", field)
		}
		if seen[field] {
			return target, p.errAt(fieldTok, diag.SynBadTargetProperty, "duplicate target property %q", field)
		}
		seen[field] = true
		if _, err := p.expectPunct(":"); err != nil {
			return target, err
		}
		widthTok, err := p.expectIdent()
		if err != nil {
			return target, err
		}
		width, ok := intWidthByName(widthTok.Text)
		if !ok {
			return target, p.errAt(widthTok, diag.SynBadTargetProperty, "expected integer width, found %q", widthTok.Text)
		}
		if field == "data_pointer_width" {
			target.DataPointerWidth = width
		} else {
			target.FunctionPointerWidth = width
		}
		if _, err := p.expectPunct(";"); err != nil {
			return target, err
		}
	}
	if _, err := p.expectPunct("}"); err != nil {
		return target, err
	}
	return target, nil
}

func intWidthByName(s string) (ir.IntWidth, bool) {
	switch s {
	case "i8":
		return ir.Int8, true
	case "i16":
		return ir.Int16, true
	case "i32":
		return ir.Int32, true
	case "i64":
		return ir.Int64, true
	}
	return 0, false
}

func floatWidthByName(s string) (ir.FloatWidth, bool) {
	switch s {
	case "f16":
		return ir.Float16, true
	case "f32":
		return ir.Float32, true
	case "f64":
		return ir.Float64, true
	}
	return 0, false
}

// ---- functions ----

func (p *parser) parseFunction() (*ir.Function, *FromTextError) {
	// Function-local scopes start fresh; names from sibling functions
	// do not leak.
	p.values = make(map[string]*ir.Value)
	p.labels = p.labels[:0]

	if _, err := p.expectWord("fn"); err != nil {
		return nil, err
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, dup := p.funcs[nameTok.Text]; dup {
		return nil, p.errAt(nameTok, diag.SynDuplicateName, "function %q already defined", nameTok.Text)
	}

	if _, err := p.expectPunct("["); err != nil {
		return nil, err
	}
	var args []*ir.ValueDef
	for !p.peekIs("]") {
		if len(args) > 0 {
			if _, err := p.expectPunct(","); err != nil {
				return nil, err
			}
		}
		def, err := p.parseValueDef()
		if err != nil {
			return nil, err
		}
		args = append(args, def)
	}
	if _, err := p.expectPunct("]"); err != nil {
		return nil, err
	}

	if _, err := p.expectPunct("->"); err != nil {
		return nil, err
	}
	declared, declTok, err := p.parseReturnTypes()
	if err != nil {
		return nil, err
	}

	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}

	hints := ir.FunctionHints{}
	if p.peekIsWord("hints") {
		hints, err = p.parseHints()
		if err != nil {
			return nil, err
		}
	}

	var locals []ir.Variable
	hasLocals := false
	if p.peekIsWord("locals") {
		locals, err = p.parseLocals()
		if err != nil {
			return nil, err
		}
		hasLocals = true
	}

	bodyInstr, err := p.parseBlockInstr()
	if err != nil {
		return nil, err
	}
	body := bodyInstr.Block

	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}

	if err := p.checkDeclaredReturns(declTok, declared, body.ResultTypes()); err != nil {
		return nil, err
	}

	f := p.ctx.NewFunction(nameTok.Text, hints, args, body)
	if hasLocals {
		f.SetLocals(locals)
	}
	p.funcs[nameTok.Text] = f
	return f, nil
}

// parseReturnTypes parses `!` or `[type, ...]`.
func (p *parser) parseReturnTypes() (ir.Inhabitable[[]*ir.Type], Token, *FromTextError) {
	tok, err := p.peek()
	if err != nil {
		return ir.Uninhabited[[]*ir.Type](), tok, err
	}
	if tok.Is("!") {
		_, _ = p.next()
		return ir.Uninhabited[[]*ir.Type](), tok, nil
	}
	if _, err := p.expectPunct("["); err != nil {
		return ir.Uninhabited[[]*ir.Type](), tok, err
	}
	types := []*ir.Type{}
	for !p.peekIs("]") {
		if len(types) > 0 {
			if _, err := p.expectPunct(","); err != nil {
				return ir.Uninhabited[[]*ir.Type](), tok, err
			}
		}
		t, err := p.parseType()
		if err != nil {
			return ir.Uninhabited[[]*ir.Type](), tok, err
		}
		types = append(types, t)
	}
	if _, err := p.expectPunct("]"); err != nil {
		return ir.Uninhabited[[]*ir.Type](), tok, err
	}
	return ir.Inhabited(types), tok, nil
}

func (p *parser) checkDeclaredReturns(at Token, declared, actual ir.Inhabitable[[]*ir.Type]) *FromTextError {
	dTypes, dOK := declared.Get()
	aTypes, aOK := actual.Get()
	if dOK != aOK {
		return p.errAt(at, diag.SynTypeMismatch, "declared return types do not match body results")
	}
	if !dOK {
		return nil
	}
	if len(dTypes) != len(aTypes) {
		return p.errAt(at, diag.SynTypeMismatch, "declared %d return types, body produces %d", len(dTypes), len(aTypes))
	}
	for i := range dTypes {
		if dTypes[i] != aTypes[i] {
			return p.errAt(at, diag.SynTypeMismatch, "return type %d mismatch: declared %s, body produces %s", i, dTypes[i], aTypes[i])
		}
	}
	return nil
}

func (p *parser) parseHints() (ir.FunctionHints, *FromTextError) {
	hints := ir.FunctionHints{}
	if _, err := p.expectWord("hints"); err != nil {
		return hints, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return hints, err
	}
	seen := map[string]bool{}
	for !p.peekIs("}") {
		fieldTok, err := p.expectIdent()
		if err != nil {
			return hints, err
		}
		if seen[fieldTok.Text] {
			return hints, p.errAt(fieldTok, diag.SynBadHint, "duplicate hint %q", fieldTok.Text)
		}
		seen[fieldTok.Text] = true
		if _, err := p.expectPunct(":"); err != nil {
			return hints, err
		}
		valTok, err := p.expectIdent()
		if err != nil {
			return hints, err
		}
		switch fieldTok.Text {
		case "inlining_hint":
			switch valTok.Text {
			case "none":
				hints.Inlining = ir.InlineNone
			case "inline":
				hints.Inlining = ir.InlineHint
			case "dont_inline":
				hints.Inlining = ir.InlineDont
			default:
				return hints, p.errAt(valTok, diag.SynBadHint, "unknown inlining hint %q", valTok.Text)
			}
		case "side_effects":
			switch valTok.Text {
			case "normal":
				hints.SideEffects = ir.EffectsNormal
			case "pure":
				hints.SideEffects = ir.EffectsPure
			case "const":
				hints.SideEffects = ir.EffectsConst
			default:
				return hints, p.errAt(valTok, diag.SynBadHint, "unknown side effects %q", valTok.Text)
			}
		default:
			return hints, p.errAt(fieldTok, diag.SynBadHint, "unknown hint %q", fieldTok.Text)
		}
		if _, err := p.expectPunct(";"); err != nil {
			return hints, err
		}
	}
	if _, err := p.expectPunct("}"); err != nil {
		return hints, err
	}
	return hints, nil
}

// parseLocals parses `locals { %name: type; ... }`. The declared type
// is the stack slot type; the named pointer value gets the matching
// pointer type.
func (p *parser) parseLocals() ([]ir.Variable, *FromTextError) {
	if _, err := p.expectWord("locals"); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	vars := []ir.Variable{}
	for !p.peekIs("}") {
		if _, err := p.expectPunct("%"); err != nil {
			return nil, err
		}
		nameTok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, dup := p.values[nameTok.Text]; dup {
			return nil, p.errAt(nameTok, diag.SynDuplicateName, "value %%%s already defined", nameTok.Text)
		}
		if _, err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		slotType, err := p.parseType()
		if err != nil {
			return nil, err
		}
		def := p.ctx.NewValueDef(p.ctx.PointerType(slotType), nameTok.Text)
		p.values[nameTok.Text] = def.Value
		vars = append(vars, ir.Variable{Type: slotType, Pointer: def})
		if _, err := p.expectPunct(";"); err != nil {
			return nil, err
		}
	}
	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return vars, nil
}

// ---- values ----

// parseValueDef parses `%name: type` and registers the fresh value.
func (p *parser) parseValueDef() (*ir.ValueDef, *FromTextError) {
	if _, err := p.expectPunct("%"); err != nil {
		return nil, err
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, dup := p.values[nameTok.Text]; dup {
		return nil, p.errAt(nameTok, diag.SynDuplicateName, "value %%%s already defined", nameTok.Text)
	}
	if _, err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	def := p.ctx.NewValueDef(t, nameTok.Text)
	p.values[nameTok.Text] = def.Value
	return def, nil
}

// parseValueUse parses `%name` referencing an existing value.
func (p *parser) parseValueUse() (ir.ValueUse, *FromTextError) {
	if _, err := p.expectPunct("%"); err != nil {
		return ir.ValueUse{}, err
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return ir.ValueUse{}, err
	}
	v, ok := p.values[nameTok.Text]
	if !ok {
		return ir.ValueUse{}, p.errAt(nameTok, diag.SynUndefinedName, "value %%%s is not defined", nameTok.Text)
	}
	return ir.ValueUse{Value: v}, nil
}

func (p *parser) parseValueUseList() ([]ir.ValueUse, *FromTextError) {
	if _, err := p.expectPunct("["); err != nil {
		return nil, err
	}
	uses := []ir.ValueUse{}
	for !p.peekIs("]") {
		if len(uses) > 0 {
			if _, err := p.expectPunct(","); err != nil {
				return nil, err
			}
		}
		u, err := p.parseValueUse()
		if err != nil {
			return nil, err
		}
		uses = append(uses, u)
	}
	if _, err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	return uses, nil
}

// parseResults parses `-> !` or `-> [%r: type, ...]`.
func (p *parser) parseResults() (ir.Inhabitable[[]*ir.ValueDef], *FromTextError) {
	if _, err := p.expectPunct("->"); err != nil {
		return ir.Uninhabited[[]*ir.ValueDef](), err
	}
	if p.peekIs("!") {
		_, _ = p.next()
		return ir.Uninhabited[[]*ir.ValueDef](), nil
	}
	if _, err := p.expectPunct("["); err != nil {
		return ir.Uninhabited[[]*ir.ValueDef](), err
	}
	defs := []*ir.ValueDef{}
	for !p.peekIs("]") {
		if len(defs) > 0 {
			if _, err := p.expectPunct(","); err != nil {
				return ir.Uninhabited[[]*ir.ValueDef](), err
			}
		}
		def, err := p.parseValueDef()
		if err != nil {
			return ir.Uninhabited[[]*ir.ValueDef](), err
		}
		defs = append(defs, def)
	}
	if _, err := p.expectPunct("]"); err != nil {
		return ir.Uninhabited[[]*ir.ValueDef](), err
	}
	return ir.Inhabited(defs), nil
}

// ---- labels ----

func (p *parser) lookupLabel(tok Token) (*labelEntry, *FromTextError) {
	for i := len(p.labels) - 1; i >= 0; i-- {
		if p.labels[i].name == tok.Text {
			return &p.labels[i], nil
		}
	}
	return nil, p.errAt(tok, diag.SynUndefinedLabel, "label %q is not in scope", tok.Text)
}

func (p *parser) pushLabel(tok Token, block *ir.Block, loop *ir.Loop) *FromTextError {
	for i := range p.labels {
		if p.labels[i].name == tok.Text {
			return p.errAt(tok, diag.SynDuplicateName, "label %q shadows an enclosing label", tok.Text)
		}
	}
	p.labels = append(p.labels, labelEntry{name: tok.Text, block: block, loop: loop})
	return nil
}

func (p *parser) popLabel() {
	p.labels = p.labels[:len(p.labels)-1]
}

// ---- instructions ----

// parseBlockInstr parses `block name[%h: t = %u, ...] -> results { ... }`.
func (p *parser) parseBlockInstr() (ir.Instruction, *FromTextError) {
	if _, err := p.expectWord("block"); err != nil {
		return ir.Instruction{}, err
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return ir.Instruction{}, err
	}

	header, entryArgs, err := p.parseHeader()
	if err != nil {
		return ir.Instruction{}, err
	}
	results, err := p.parseResults()
	if err != nil {
		return ir.Instruction{}, err
	}

	block := ir.NewBlock(nameTok.Text, header, entryArgs, results)
	if err := p.pushLabel(nameTok, block, nil); err != nil {
		return ir.Instruction{}, err
	}
	defer p.popLabel()

	if err := p.parseBody(block); err != nil {
		return ir.Instruction{}, err
	}
	return ir.Instruction{Kind: ir.InstrBlock, Block: block}, nil
}

// parseHeader parses `[%name: type = %use, ...]`: parameter defs bound
// from entry uses.
func (p *parser) parseHeader() ([]*ir.ValueDef, []ir.ValueUse, *FromTextError) {
	if _, err := p.expectPunct("["); err != nil {
		return nil, nil, err
	}
	var defs []*ir.ValueDef
	var uses []ir.ValueUse
	for !p.peekIs("]") {
		if len(defs) > 0 {
			if _, err := p.expectPunct(","); err != nil {
				return nil, nil, err
			}
		}
		// Bind the use before the def so a parameter cannot name itself
		// as its own initial value.
		if _, err := p.expectPunct("%"); err != nil {
			return nil, nil, err
		}
		nameTok, err := p.expectIdent()
		if err != nil {
			return nil, nil, err
		}
		if _, dup := p.values[nameTok.Text]; dup {
			return nil, nil, p.errAt(nameTok, diag.SynDuplicateName, "value %%%s already defined", nameTok.Text)
		}
		if _, err := p.expectPunct(":"); err != nil {
			return nil, nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectPunct("="); err != nil {
			return nil, nil, err
		}
		use, err := p.parseValueUse()
		if err != nil {
			return nil, nil, err
		}
		if use.Type() != t {
			return nil, nil, p.errAt(nameTok, diag.SynTypeMismatch, "parameter %%%s has type %s but initial value has type %s", nameTok.Text, t, use.Type())
		}
		def := p.ctx.NewValueDef(t, nameTok.Text)
		p.values[nameTok.Text] = def.Value
		defs = append(defs, def)
		uses = append(uses, use)
	}
	if _, err := p.expectPunct("]"); err != nil {
		return nil, nil, err
	}
	return defs, uses, nil
}

func (p *parser) parseBody(block *ir.Block) *FromTextError {
	if _, err := p.expectPunct("{"); err != nil {
		return err
	}
	for !p.peekIs("}") {
		instr, err := p.parseInstr()
		if err != nil {
			return err
		}
		block.Append(instr)
	}
	if _, err := p.expectPunct("}"); err != nil {
		return err
	}
	return nil
}

func (p *parser) parseInstr() (ir.Instruction, *FromTextError) {
	tok, err := p.peek()
	if err != nil {
		return ir.Instruction{}, err
	}
	switch {
	case tok.IsWord("block"):
		return p.parseBlockInstr()
	case tok.IsWord("loop"):
		return p.parseLoopInstr()
	case tok.IsWord("break"):
		return p.parseBreakInstr()
	case tok.IsWord("continue"):
		return p.parseContinueInstr()
	case tok.IsWord("branch"):
		return p.parseBranchInstr()
	case tok.IsWord("const"):
		return p.parseConstInstr()
	}
	if tok.Kind == TokIdent {
		if op, ok := ir.OpcodeByName(tok.Text); ok {
			return p.parseSimpleInstr(op)
		}
		return ir.Instruction{}, p.errAt(tok, diag.SynUnknownInstruction, "unknown instruction %q", tok.Text)
	}
	return ir.Instruction{}, p.errAt(tok, diag.SynUnexpectedToken, "expected instruction, found %q", tok.Text)
}

func (p *parser) parseLoopInstr() (ir.Instruction, *FromTextError) {
	if _, err := p.expectWord("loop"); err != nil {
		return ir.Instruction{}, err
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return ir.Instruction{}, err
	}

	header, args, err := p.parseHeader()
	if err != nil {
		return ir.Instruction{}, err
	}
	results, err := p.parseResults()
	if err != nil {
		return ir.Instruction{}, err
	}

	body := ir.NewBlock(nameTok.Text, nil, nil, results)
	loop := ir.NewLoop(nameTok.Text, args, header, body)
	if err := p.pushLabel(nameTok, body, loop); err != nil {
		return ir.Instruction{}, err
	}
	defer p.popLabel()

	if err := p.parseBody(body); err != nil {
		return ir.Instruction{}, err
	}
	return ir.Instruction{Kind: ir.InstrLoop, Loop: loop}, nil
}

// parseBreakArgs checks a break's arguments against the target block's
// declared results.
func (p *parser) parseBreakArgs(nameTok Token, block *ir.Block) (ir.BreakBlock, *FromTextError) {
	args, err := p.parseValueUseList()
	if err != nil {
		return ir.BreakBlock{}, err
	}
	results, ok := block.Results.Get()
	if !ok {
		if len(args) != 0 {
			return ir.BreakBlock{}, p.errAt(nameTok, diag.SynArityMismatch, "break %s: block never falls through, no arguments allowed", nameTok.Text)
		}
		return ir.BreakBlock{Block: block}, nil
	}
	if len(args) != len(results) {
		return ir.BreakBlock{}, p.errAt(nameTok, diag.SynArityMismatch, "break %s: %d arguments for %d results", nameTok.Text, len(args), len(results))
	}
	for i, a := range args {
		if a.Type() != results[i].Value.Type {
			return ir.BreakBlock{}, p.errAt(nameTok, diag.SynTypeMismatch, "break %s: argument %d has type %s, result expects %s", nameTok.Text, i, a.Type(), results[i].Value.Type)
		}
	}
	return ir.BreakBlock{Block: block, Args: args}, nil
}

func (p *parser) parseBreakInstr() (ir.Instruction, *FromTextError) {
	if _, err := p.expectWord("break"); err != nil {
		return ir.Instruction{}, err
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return ir.Instruction{}, err
	}
	entry, perr := p.lookupLabel(nameTok)
	if perr != nil {
		return ir.Instruction{}, perr
	}
	br, perr := p.parseBreakArgs(nameTok, entry.block)
	if perr != nil {
		return ir.Instruction{}, perr
	}
	instr := ir.Instruction{Kind: ir.InstrBreak, Break: br}
	if err := p.finishInstr(&instr); err != nil {
		return ir.Instruction{}, err
	}
	return instr, nil
}

func (p *parser) parseContinueInstr() (ir.Instruction, *FromTextError) {
	if _, err := p.expectWord("continue"); err != nil {
		return ir.Instruction{}, err
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return ir.Instruction{}, err
	}
	entry, perr := p.lookupLabel(nameTok)
	if perr != nil {
		return ir.Instruction{}, perr
	}
	if entry.loop == nil {
		return ir.Instruction{}, p.errAt(nameTok, diag.SynUndefinedLabel, "label %q is a block, continue needs a loop", nameTok.Text)
	}
	args, perr := p.parseValueUseList()
	if perr != nil {
		return ir.Instruction{}, perr
	}
	params := entry.loop.Header.Args
	if len(args) != len(params) {
		return ir.Instruction{}, p.errAt(nameTok, diag.SynArityMismatch, "continue %s: %d arguments for %d parameters", nameTok.Text, len(args), len(params))
	}
	for i, a := range args {
		if a.Type() != params[i].Value.Type {
			return ir.Instruction{}, p.errAt(nameTok, diag.SynTypeMismatch, "continue %s: argument %d has type %s, parameter expects %s", nameTok.Text, i, a.Type(), params[i].Value.Type)
		}
	}
	instr := ir.Instruction{Kind: ir.InstrContinue, Continue: ir.ContinueLoop{Loop: entry.loop, Args: args}}
	if err := p.finishInstr(&instr); err != nil {
		return ir.Instruction{}, err
	}
	return instr, nil
}

func (p *parser) parseBranchInstr() (ir.Instruction, *FromTextError) {
	if _, err := p.expectWord("branch"); err != nil {
		return ir.Instruction{}, err
	}
	if _, err := p.expectPunct("["); err != nil {
		return ir.Instruction{}, err
	}
	condTok, err := p.peek()
	if err != nil {
		return ir.Instruction{}, err
	}
	cond, perr := p.parseValueUse()
	if perr != nil {
		return ir.Instruction{}, perr
	}
	if cond.Type().Kind != ir.TypeBool {
		return ir.Instruction{}, p.errAt(condTok, diag.SynTypeMismatch, "branch condition must be bool, found %s", cond.Type())
	}
	if _, err := p.expectPunct("]"); err != nil {
		return ir.Instruction{}, err
	}

	if _, err := p.expectWord("then"); err != nil {
		return ir.Instruction{}, err
	}
	thenTok, err := p.expectIdent()
	if err != nil {
		return ir.Instruction{}, err
	}
	thenEntry, perr := p.lookupLabel(thenTok)
	if perr != nil {
		return ir.Instruction{}, perr
	}
	thenBr, perr := p.parseBreakArgs(thenTok, thenEntry.block)
	if perr != nil {
		return ir.Instruction{}, perr
	}

	if _, err := p.expectWord("else"); err != nil {
		return ir.Instruction{}, err
	}
	elseTok, err := p.expectIdent()
	if err != nil {
		return ir.Instruction{}, err
	}
	elseEntry, perr := p.lookupLabel(elseTok)
	if perr != nil {
		return ir.Instruction{}, perr
	}
	elseBr, perr := p.parseBreakArgs(elseTok, elseEntry.block)
	if perr != nil {
		return ir.Instruction{}, perr
	}

	instr := ir.Instruction{Kind: ir.InstrBranch, Branch: ir.Branch{Cond: cond, True: thenBr, False: elseBr}}
	if err := p.finishInstr(&instr); err != nil {
		return ir.Instruction{}, err
	}
	return instr, nil
}

func (p *parser) parseConstInstr() (ir.Instruction, *FromTextError) {
	if _, err := p.expectWord("const"); err != nil {
		return ir.Instruction{}, err
	}
	if _, err := p.expectPunct("["); err != nil {
		return ir.Instruction{}, err
	}
	litTok, err := p.peek()
	if err != nil {
		return ir.Instruction{}, err
	}
	k, perr := p.parseConst()
	if perr != nil {
		return ir.Instruction{}, perr
	}
	if _, err := p.expectPunct("]"); err != nil {
		return ir.Instruction{}, err
	}
	results, perr := p.parseResults()
	if perr != nil {
		return ir.Instruction{}, perr
	}
	defs, ok := results.Get()
	if !ok || len(defs) != 1 {
		return ir.Instruction{}, p.errAt(litTok, diag.SynArityMismatch, "const produces exactly one result")
	}
	if defs[0].Value.Type != k.Type {
		return ir.Instruction{}, p.errAt(litTok, diag.SynTypeMismatch, "const literal has type %s, result declares %s", k.Type, defs[0].Value.Type)
	}
	instr := ir.NewConst(k, defs[0])
	if err := p.finishInstr(&instr); err != nil {
		return ir.Instruction{}, err
	}
	return instr, nil
}

func (p *parser) parseSimpleInstr(op ir.Opcode) (ir.Instruction, *FromTextError) {
	opTok, err := p.next() // mnemonic
	if err != nil {
		return ir.Instruction{}, err
	}
	args, perr := p.parseValueUseList()
	if perr != nil {
		return ir.Instruction{}, perr
	}
	info := op.Info()
	if len(args) != info.Args {
		return ir.Instruction{}, p.errAt(opTok, diag.SynArityMismatch, "%s takes %d arguments, got %d", info.Name, info.Args, len(args))
	}
	results, perr := p.parseResults()
	if perr != nil {
		return ir.Instruction{}, perr
	}
	defs, ok := results.Get()
	if !ok || len(defs) != info.Results {
		return ir.Instruction{}, p.errAt(opTok, diag.SynArityMismatch, "%s produces %d results", info.Name, info.Results)
	}
	instr := ir.NewSimple(op, args, defs)
	if err := p.finishInstr(&instr); err != nil {
		return ir.Instruction{}, err
	}
	return instr, nil
}

// finishInstr consumes an optional `@ "file":line:col` location suffix
// and the terminating semicolon.
func (p *parser) finishInstr(instr *ir.Instruction) *FromTextError {
	if p.peekIs("@") {
		_, _ = p.next()
		fileTok, err := p.next()
		if err != nil {
			return err
		}
		if fileTok.Kind != TokString {
			return p.errAt(fileTok, diag.SynUnexpectedToken, "expected file name string, found %q", fileTok.Text)
		}
		if _, err := p.expectPunct(":"); err != nil {
			return err
		}
		lineTok, err := p.expectBareInt()
		if err != nil {
			return err
		}
		if _, err := p.expectPunct(":"); err != nil {
			return err
		}
		colTok, err := p.expectBareInt()
		if err != nil {
			return err
		}
		line, err := narrow32(p, lineTok)
		if err != nil {
			return err
		}
		col, err := narrow32(p, colTok)
		if err != nil {
			return err
		}
		file := norm.NFC.String(fileTok.Str)
		instr.Location = p.ctx.NewLocation(file, line, col)
	}
	_, err := p.expectPunct(";")
	return err
}

func narrow32(p *parser, tok Token) (uint32, *FromTextError) {
	if tok.Bits > math.MaxUint32 {
		return 0, p.errAt(tok, diag.LexBadNumber, "integer %d out of range", tok.Bits)
	}
	return uint32(tok.Bits), nil
}

// expectBareInt expects an integer without a width suffix.
func (p *parser) expectBareInt() (Token, *FromTextError) {
	tok, err := p.next()
	if err != nil {
		return tok, err
	}
	if tok.Kind != TokInt {
		return tok, p.errAt(tok, diag.SynUnexpectedToken, "expected integer, found %q", tok.Text)
	}
	if tok.HasSuffix {
		return tok, p.errAt(tok, diag.SynUnexpectedToken, "width suffix not allowed here")
	}
	return tok, nil
}

// ---- types ----

func (p *parser) parseType() (*ir.Type, *FromTextError) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch {
	case tok.Kind == TokIdent:
		if w, ok := intWidthByName(tok.Text); ok {
			return p.ctx.IntType(w), nil
		}
		if w, ok := floatWidthByName(tok.Text); ok {
			return p.ctx.FloatType(w), nil
		}
		if tok.Text == "bool" {
			return p.ctx.BoolType(), nil
		}
		if tok.Text == "opaque" {
			nameTok, err := p.next()
			if err != nil {
				return nil, err
			}
			if nameTok.Kind != TokString {
				return nil, p.errAt(nameTok, diag.SynExpectType, "expected opaque type name string")
			}
			return p.ctx.OpaqueType(norm.NFC.String(nameTok.Str)), nil
		}
		return nil, p.errAt(tok, diag.SynExpectType, "expected type, found %q", tok.Text)
	case tok.Is("*"):
		pointee, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return p.ctx.PointerType(pointee), nil
	case tok.Is("<"):
		return p.parseVectorOrMatrixType(tok)
	default:
		return nil, p.errAt(tok, diag.SynExpectType, "expected type, found %q", tok.Text)
	}
}

// parseVectorOrMatrixType parses the remainder of `<N x T>`,
// `<C x R x T>`, or `<? x T>` after the opening angle.
func (p *parser) parseVectorOrMatrixType(open Token) (*ir.Type, *FromTextError) {
	if p.peekIs("?") {
		_, _ = p.next()
		if _, err := p.expectWord("x"); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(">"); err != nil {
			return nil, err
		}
		return p.ctx.VariableVectorType(elem), nil
	}

	first, err := p.expectBareInt()
	if err != nil {
		return nil, err
	}
	if first.Bits == 0 {
		return nil, p.errAt(first, diag.SynExpectType, "vector length must be positive")
	}
	cols, err := narrow32(p, first)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectWord("x"); err != nil {
		return nil, err
	}

	// A second integer means a matrix: <cols x rows x elem>.
	if tok, err := p.peek(); err == nil && tok.Kind == TokInt {
		second, err := p.expectBareInt()
		if err != nil {
			return nil, err
		}
		if second.Bits == 0 {
			return nil, p.errAt(second, diag.SynExpectType, "matrix rows must be positive")
		}
		rows, err := narrow32(p, second)
		if err != nil {
			return nil, err
		}
		if _, err := p.expectWord("x"); err != nil {
			return nil, err
		}
		elem, perr := p.parseType()
		if perr != nil {
			return nil, perr
		}
		if _, err := p.expectPunct(">"); err != nil {
			return nil, err
		}
		return p.ctx.MatrixType(elem, cols, rows), nil
	}

	elem, perr := p.parseType()
	if perr != nil {
		return nil, perr
	}
	if _, err := p.expectPunct(">"); err != nil {
		return nil, err
	}
	return p.ctx.VectorType(elem, cols), nil
}

// ---- constants ----

func (p *parser) parseConst() (*ir.Const, *FromTextError) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch {
	case tok.Kind == TokInt:
		if !tok.HasSuffix {
			return nil, p.errAt(tok, diag.LexMissingIntSuffix, "integer constant needs an explicit width suffix (e.g. %si32)", tok.Text)
		}
		return p.ctx.IntConst(tok.Width, tok.Bits), nil
	case tok.Kind == TokIdent:
		if w, ok := floatWidthByName(tok.Text); ok {
			bitsTok, err := p.expectBareInt()
			if err != nil {
				return nil, err
			}
			if w != ir.Float64 && bitsTok.Bits >= uint64(1)<<w.Bits() {
				return nil, p.errAt(bitsTok, diag.SynExpectConst, "bit pattern does not fit %s", w)
			}
			return p.ctx.FloatConst(w, bitsTok.Bits), nil
		}
		switch tok.Text {
		case "true":
			return p.ctx.BoolConst(true), nil
		case "false":
			return p.ctx.BoolConst(false), nil
		case "undef":
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			return p.ctx.UndefConst(t), nil
		case "null":
			t, perr := p.parseType()
			if perr != nil {
				return nil, perr
			}
			if t.Kind != ir.TypePointer {
				return nil, p.errAt(tok, diag.SynExpectConst, "null needs a pointer type, found %s", t)
			}
			return p.ctx.NullConst(t), nil
		}
		return nil, p.errAt(tok, diag.SynExpectConst, "expected constant, found %q", tok.Text)
	case tok.Is("<"):
		var elems []*ir.Const
		for !p.peekIs(">") {
			if len(elems) > 0 {
				if _, err := p.expectPunct(","); err != nil {
					return nil, err
				}
			}
			etok, err := p.peek()
			if err != nil {
				return nil, err
			}
			e, perr := p.parseConst()
			if perr != nil {
				return nil, perr
			}
			if len(elems) > 0 && e.Type != elems[0].Type {
				return nil, p.errAt(etok, diag.SynTypeMismatch, "vector element has type %s, expected %s", e.Type, elems[0].Type)
			}
			elems = append(elems, e)
		}
		if _, err := p.expectPunct(">"); err != nil {
			return nil, err
		}
		if len(elems) == 0 {
			return nil, p.errAt(tok, diag.SynExpectConst, "vector constant needs at least one element")
		}
		return p.ctx.VectorConst(elems), nil
	default:
		return nil, p.errAt(tok, diag.SynExpectConst, "expected constant, found %q", tok.Text)
	}
}
