// Package llvm is a textual LLVM IR backend: it implements the backend
// interfaces by rendering modules to .ll source. It performs no native
// code generation, so function pointers it hands out are placeholders;
// the text itself is the product, fetched from Code.Text.
package llvm

import (
	"fmt"
	"math"
	"strings"

	"spirit/internal/backend"
)

type typeKind uint8

const (
	tyVoid typeKind = iota
	tyBool
	tyInt
	tyFloat
	tyPtr
	tyFn
)

type llType struct {
	kind   typeKind
	bits   uint32
	params []*llType
	ret    *llType
}

func (t *llType) String() string {
	switch t.kind {
	case tyVoid:
		return "void"
	case tyBool:
		return "i1"
	case tyInt:
		return fmt.Sprintf("i%d", t.bits)
	case tyFloat:
		switch t.bits {
		case 16:
			return "half"
		case 32:
			return "float"
		default:
			return "double"
		}
	case tyPtr:
		return "ptr"
	case tyFn:
		parts := make([]string, len(t.params))
		for i, p := range t.params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("%s (%s)", t.ret.String(), strings.Join(parts, ", "))
	}
	return "void"
}

// value pairs an operand spelling (SSA name, literal, or global) with
// its type.
type value struct {
	name string
	t    *llType
}

func (v *value) Type() backend.Type { return v.t }

type Context struct {
	nextAddr uintptr
}

func NewContext() *Context {
	return &Context{nextAddr: 0x1000}
}

func (c *Context) CreateModule(name string) backend.Module {
	return &Module{ctx: c, name: name}
}

func (c *Context) CreateBuilder() backend.DetachedBuilder {
	return detached{}
}

func (c *Context) VoidType() backend.Type { return &llType{kind: tyVoid} }
func (c *Context) BoolType() backend.Type { return &llType{kind: tyBool} }

func (c *Context) IntType(bits uint32) backend.Type {
	return &llType{kind: tyInt, bits: bits}
}

func (c *Context) FloatType(bits uint32) backend.Type {
	return &llType{kind: tyFloat, bits: bits}
}

func (c *Context) PointerType(elem backend.Type) backend.Type {
	return &llType{kind: tyPtr}
}

func (c *Context) FunctionType(params []backend.Type, ret backend.Type) backend.Type {
	t := &llType{kind: tyFn, ret: ret.(*llType)}
	for _, p := range params {
		t.params = append(t.params, p.(*llType))
	}
	return t
}

func (c *Context) ConstInt(t backend.Type, v uint64) backend.Value {
	lt := t.(*llType)
	switch lt.kind {
	case tyBool:
		if v != 0 {
			return &value{name: "true", t: lt}
		}
		return &value{name: "false", t: lt}
	case tyInt:
		// LLVM integer literals are signed decimal at the native width.
		if lt.bits < 64 {
			v &= (1 << lt.bits) - 1
			if v>>(lt.bits-1) != 0 {
				v |= ^uint64(0) << lt.bits
			}
		}
		return &value{name: fmt.Sprintf("%d", int64(v)), t: lt}
	}
	panic(fmt.Sprintf("llvm: ConstInt of %s", lt))
}

func (c *Context) ConstFloat(t backend.Type, bits uint64) backend.Value {
	lt := t.(*llType)
	if lt.kind != tyFloat {
		panic(fmt.Sprintf("llvm: ConstFloat of %s", lt))
	}
	// LLVM spells float literals as the hex of the value widened to
	// double.
	if lt.bits == 32 {
		bits = math.Float64bits(float64(math.Float32frombits(uint32(bits))))
	}
	return &value{name: fmt.Sprintf("0x%016X", bits), t: lt}
}

type Module struct {
	ctx      *Context
	name     string
	funcs    []*Function
	verified bool
}

func (m *Module) Name() string { return m.name }

func (m *Module) AddFunction(name string, t backend.Type) backend.Function {
	if m.verified {
		panic("llvm: AddFunction on a verified module")
	}
	f := &Function{mod: m, name: name, t: t.(*llType), addr: m.ctx.nextAddr}
	m.ctx.nextAddr += 0x10
	m.funcs = append(m.funcs, f)
	return f
}

func (m *Module) Verify() (backend.VerifiedModule, error) {
	for _, f := range m.funcs {
		if len(f.blocks) == 0 {
			return nil, fmt.Errorf("function @%s has no basic blocks", f.name)
		}
		for _, b := range f.blocks {
			if b.term == "" {
				return nil, fmt.Errorf("block %s of @%s is not terminated", b.name, f.name)
			}
		}
	}
	m.verified = true
	return verified{m: m}, nil
}

type verified struct {
	m *Module
}

func (v verified) Raw() backend.Module { return v.m }

// Emit renders the verified module as LLVM assembly.
func (v verified) Emit() string {
	var buf strings.Builder
	buf.WriteString("target triple = \"x86_64-linux-gnu\"\n\n")
	for _, f := range v.m.funcs {
		f.emit(&buf)
	}
	return buf.String()
}

type Function struct {
	mod    *Module
	name   string
	t      *llType
	addr   uintptr
	blocks []*block
	ntmp   int
}

func (f *Function) Type() backend.Type { return f.t }
func (f *Function) Name() string       { return f.name }

func (f *Function) Param(i int) backend.Value {
	if f.t.kind != tyFn || i < 0 || i >= len(f.t.params) {
		panic(fmt.Sprintf("llvm: @%s has no parameter %d", f.name, i))
	}
	return &value{name: fmt.Sprintf("%%p%d", i), t: f.t.params[i]}
}

func (f *Function) AppendBasicBlock(name string) backend.BasicBlock {
	if f.mod.verified {
		panic("llvm: AppendBasicBlock on a verified module")
	}
	if name == "" {
		name = fmt.Sprintf("bb%d", len(f.blocks))
	}
	b := &block{fn: f, name: name}
	f.blocks = append(f.blocks, b)
	return b
}

func (f *Function) emit(buf *strings.Builder) {
	params := make([]string, len(f.t.params))
	for i, p := range f.t.params {
		params[i] = fmt.Sprintf("%s %%p%d", p.String(), i)
	}
	fmt.Fprintf(buf, "define %s @%s(%s) {\n", f.t.ret.String(), f.name, strings.Join(params, ", "))
	for _, b := range f.blocks {
		fmt.Fprintf(buf, "%s:\n", b.name)
		for _, line := range b.lines {
			fmt.Fprintf(buf, "  %s\n", line)
		}
		fmt.Fprintf(buf, "  %s\n", b.term)
	}
	buf.WriteString("}\n\n")
}

// tmp mints an SSA name, preferring the caller's hint.
func (f *Function) tmp(hint string) string {
	if hint != "" {
		return "%" + hint
	}
	f.ntmp++
	return fmt.Sprintf("%%t%d", f.ntmp)
}

type block struct {
	fn    *Function
	name  string
	lines []string
	term  string
}

func (b *block) Name() string { return b.name }

type detached struct{}

func (detached) Attach(bb backend.BasicBlock) backend.AttachedBuilder {
	b := bb.(*block)
	if b.term != "" {
		panic(fmt.Sprintf("llvm: attach to terminated block %s", b.name))
	}
	return &attached{block: b}
}

type attached struct {
	block *block
	done  bool
}

func (a *attached) live() *block {
	if a.done {
		panic("llvm: builder used after a terminator")
	}
	return a.block
}

func (a *attached) terminate(term string) backend.DetachedBuilder {
	b := a.live()
	b.term = term
	a.done = true
	return detached{}
}

func (a *attached) Block() backend.BasicBlock { return a.block }

func (a *attached) BuildAlloca(t backend.Type, name string) backend.Value {
	b := a.live()
	n := b.fn.tmp(name)
	b.lines = append(b.lines, fmt.Sprintf("%s = alloca %s", n, t.(*llType).String()))
	return &value{name: n, t: &llType{kind: tyPtr}}
}

func (a *attached) BuildLoad(t backend.Type, ptr backend.Value, name string) backend.Value {
	b := a.live()
	n := b.fn.tmp(name)
	lt := t.(*llType)
	b.lines = append(b.lines, fmt.Sprintf("%s = load %s, ptr %s", n, lt.String(), ptr.(*value).name))
	return &value{name: n, t: lt}
}

func (a *attached) BuildStore(v, ptr backend.Value) {
	b := a.live()
	vv := v.(*value)
	b.lines = append(b.lines, fmt.Sprintf("store %s %s, ptr %s", vv.t.String(), vv.name, ptr.(*value).name))
}

var intBinMnemonics = map[backend.BinOp]string{
	backend.BinAdd:   "add",
	backend.BinSub:   "sub",
	backend.BinMul:   "mul",
	backend.BinDiv:   "sdiv",
	backend.BinRem:   "srem",
	backend.BinAnd:   "and",
	backend.BinOr:    "or",
	backend.BinXor:   "xor",
	backend.BinShl:   "shl",
	backend.BinShr:   "ashr",
	backend.BinCmpEq: "icmp eq",
	backend.BinCmpNe: "icmp ne",
	backend.BinCmpLt: "icmp slt",
	backend.BinCmpLe: "icmp sle",
	backend.BinCmpGt: "icmp sgt",
	backend.BinCmpGe: "icmp sge",
}

var floatBinMnemonics = map[backend.BinOp]string{
	backend.BinAdd:   "fadd",
	backend.BinSub:   "fsub",
	backend.BinMul:   "fmul",
	backend.BinDiv:   "fdiv",
	backend.BinRem:   "frem",
	backend.BinCmpEq: "fcmp oeq",
	backend.BinCmpNe: "fcmp one",
	backend.BinCmpLt: "fcmp olt",
	backend.BinCmpLe: "fcmp ole",
	backend.BinCmpGt: "fcmp ogt",
	backend.BinCmpGe: "fcmp oge",
}

func (a *attached) BuildBinary(op backend.BinOp, lhs, rhs backend.Value, name string) backend.Value {
	b := a.live()
	l, r := lhs.(*value), rhs.(*value)
	n := b.fn.tmp(name)
	table := intBinMnemonics
	if l.t.kind == tyFloat {
		table = floatBinMnemonics
	}
	mnemonic, ok := table[op]
	if !ok {
		panic(fmt.Sprintf("llvm: binary op %d on %s", op, l.t))
	}
	rt := l.t
	if op >= backend.BinCmpEq {
		rt = &llType{kind: tyBool}
	}
	b.lines = append(b.lines, fmt.Sprintf("%s = %s %s %s, %s", n, mnemonic, l.t.String(), l.name, r.name))
	return &value{name: n, t: rt}
}

func (a *attached) BuildUnary(op backend.UnOp, v backend.Value, name string) backend.Value {
	b := a.live()
	vv := v.(*value)
	n := b.fn.tmp(name)
	switch {
	case op == backend.UnNeg && vv.t.kind == tyFloat:
		b.lines = append(b.lines, fmt.Sprintf("%s = fneg %s %s", n, vv.t.String(), vv.name))
	case op == backend.UnNeg:
		b.lines = append(b.lines, fmt.Sprintf("%s = sub %s 0, %s", n, vv.t.String(), vv.name))
	default:
		b.lines = append(b.lines, fmt.Sprintf("%s = xor %s %s, -1", n, vv.t.String(), vv.name))
	}
	return &value{name: n, t: vv.t}
}

func (a *attached) BuildSelect(cond, then, els backend.Value, name string) backend.Value {
	b := a.live()
	c, tv, fv := cond.(*value), then.(*value), els.(*value)
	n := b.fn.tmp(name)
	b.lines = append(b.lines, fmt.Sprintf("%s = select i1 %s, %s %s, %s %s",
		n, c.name, tv.t.String(), tv.name, fv.t.String(), fv.name))
	return &value{name: n, t: tv.t}
}

func (a *attached) BuildReturn(v backend.Value) backend.DetachedBuilder {
	vv := v.(*value)
	return a.terminate(fmt.Sprintf("ret %s %s", vv.t.String(), vv.name))
}

func (a *attached) BuildReturnVoid() backend.DetachedBuilder {
	return a.terminate("ret void")
}

func (a *attached) BuildBr(dst backend.BasicBlock) backend.DetachedBuilder {
	return a.terminate(fmt.Sprintf("br label %%%s", dst.(*block).name))
}

func (a *attached) BuildCondBr(cond backend.Value, t, f backend.BasicBlock) backend.DetachedBuilder {
	return a.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s",
		cond.(*value).name, t.(*block).name, f.(*block).name))
}

func (a *attached) BuildUnreachable() backend.DetachedBuilder {
	return a.terminate("unreachable")
}
