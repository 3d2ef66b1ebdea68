package backend

import (
	"errors"
	"fmt"
	"strings"
)

// The null backend compiles nothing. It records module shape, enforces
// the builder state machine, and hands out stable fake function
// addresses. Tests use it to exercise the interface contract without a
// native toolchain.

type nullTypeKind uint8

const (
	nullVoid nullTypeKind = iota
	nullBool
	nullInt
	nullFloat
	nullPtr
	nullFn
)

type nullType struct {
	kind   nullTypeKind
	bits   uint32
	elem   *nullType
	params []*nullType
	ret    *nullType
}

func (t *nullType) String() string {
	switch t.kind {
	case nullVoid:
		return "void"
	case nullBool:
		return "bool"
	case nullInt:
		return fmt.Sprintf("i%d", t.bits)
	case nullFloat:
		return fmt.Sprintf("f%d", t.bits)
	case nullPtr:
		return "*" + t.elem.String()
	case nullFn:
		parts := make([]string, len(t.params))
		for i, p := range t.params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("fn(%s) %s", strings.Join(parts, ", "), t.ret.String())
	}
	return "?"
}

type nullValue struct {
	t *nullType
}

func (v *nullValue) Type() Type { return v.t }

type nullContext struct {
	nextAddr uintptr
}

func newNullContext() *nullContext {
	return &nullContext{nextAddr: 0x1000}
}

func (c *nullContext) CreateModule(name string) Module {
	return &nullModule{ctx: c, name: name}
}

func (c *nullContext) CreateBuilder() DetachedBuilder {
	return nullDetached{}
}

func (c *nullContext) VoidType() Type { return &nullType{kind: nullVoid} }
func (c *nullContext) BoolType() Type { return &nullType{kind: nullBool} }

func (c *nullContext) IntType(bits uint32) Type {
	return &nullType{kind: nullInt, bits: bits}
}

func (c *nullContext) FloatType(bits uint32) Type {
	return &nullType{kind: nullFloat, bits: bits}
}

func (c *nullContext) PointerType(elem Type) Type {
	return &nullType{kind: nullPtr, elem: elem.(*nullType)}
}

func (c *nullContext) FunctionType(params []Type, ret Type) Type {
	t := &nullType{kind: nullFn, ret: ret.(*nullType)}
	for _, p := range params {
		t.params = append(t.params, p.(*nullType))
	}
	return t
}

func (c *nullContext) ConstInt(t Type, v uint64) Value {
	nt := t.(*nullType)
	if nt.kind != nullInt && nt.kind != nullBool {
		panic(fmt.Sprintf("backend: ConstInt of %s", nt))
	}
	return &nullValue{t: nt}
}

func (c *nullContext) ConstFloat(t Type, bits uint64) Value {
	nt := t.(*nullType)
	if nt.kind != nullFloat {
		panic(fmt.Sprintf("backend: ConstFloat of %s", nt))
	}
	return &nullValue{t: nt}
}

type nullModule struct {
	ctx      *nullContext
	name     string
	funcs    []*nullFunction
	verified bool
}

func (m *nullModule) Name() string { return m.name }

func (m *nullModule) AddFunction(name string, t Type) Function {
	if m.verified {
		panic("backend: AddFunction on a verified module")
	}
	f := &nullFunction{mod: m, name: name, t: t.(*nullType), addr: m.ctx.nextAddr}
	m.ctx.nextAddr += 0x10
	m.funcs = append(m.funcs, f)
	return f
}

func (m *nullModule) Verify() (VerifiedModule, error) {
	var errs []error
	for _, f := range m.funcs {
		if len(f.blocks) == 0 {
			errs = append(errs, fmt.Errorf("function %s has no basic blocks", f.name))
		}
		for _, b := range f.blocks {
			if !b.terminated {
				errs = append(errs, fmt.Errorf("block %s of %s is not terminated", b.name, f.name))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	m.verified = true
	return nullVerified{m: m}, nil
}

type nullVerified struct {
	m *nullModule
}

func (v nullVerified) Raw() Module { return v.m }

type nullFunction struct {
	mod    *nullModule
	name   string
	t      *nullType
	addr   uintptr
	blocks []*nullBlock
}

func (f *nullFunction) Type() Type   { return f.t }
func (f *nullFunction) Name() string { return f.name }

func (f *nullFunction) Param(i int) Value {
	if f.t.kind != nullFn || i < 0 || i >= len(f.t.params) {
		panic(fmt.Sprintf("backend: %s has no parameter %d", f.name, i))
	}
	return &nullValue{t: f.t.params[i]}
}

func (f *nullFunction) AppendBasicBlock(name string) BasicBlock {
	if f.mod.verified {
		panic("backend: AppendBasicBlock on a verified module")
	}
	if name == "" {
		name = fmt.Sprintf("bb%d", len(f.blocks))
	}
	b := &nullBlock{fn: f, name: name}
	f.blocks = append(f.blocks, b)
	return b
}

type nullBlock struct {
	fn         *nullFunction
	name       string
	ninstr     int
	terminated bool
}

func (b *nullBlock) Name() string { return b.name }

type nullDetached struct{}

func (nullDetached) Attach(bb BasicBlock) AttachedBuilder {
	b := bb.(*nullBlock)
	if b.terminated {
		panic(fmt.Sprintf("backend: attach to terminated block %s", b.name))
	}
	return &nullAttached{block: b}
}

type nullAttached struct {
	block *nullBlock
	done  bool
}

// live guards every emission against use after a terminator.
func (a *nullAttached) live() *nullBlock {
	if a.done {
		panic("backend: builder used after a terminator")
	}
	return a.block
}

func (a *nullAttached) detach() DetachedBuilder {
	b := a.live()
	b.terminated = true
	a.done = true
	return nullDetached{}
}

func (a *nullAttached) ctx() *nullContext { return a.block.fn.mod.ctx }

func (a *nullAttached) Block() BasicBlock { return a.block }

func (a *nullAttached) BuildAlloca(t Type, name string) Value {
	a.live().ninstr++
	return &nullValue{t: a.ctx().PointerType(t).(*nullType)}
}

func (a *nullAttached) BuildLoad(t Type, ptr Value, name string) Value {
	a.live().ninstr++
	return &nullValue{t: t.(*nullType)}
}

func (a *nullAttached) BuildStore(v, ptr Value) {
	a.live().ninstr++
}

func (a *nullAttached) BuildBinary(op BinOp, lhs, rhs Value, name string) Value {
	a.live().ninstr++
	t := lhs.Type().(*nullType)
	if op >= BinCmpEq {
		t = a.ctx().BoolType().(*nullType)
	}
	return &nullValue{t: t}
}

func (a *nullAttached) BuildUnary(op UnOp, v Value, name string) Value {
	a.live().ninstr++
	return &nullValue{t: v.Type().(*nullType)}
}

func (a *nullAttached) BuildSelect(cond, then, els Value, name string) Value {
	a.live().ninstr++
	return &nullValue{t: then.Type().(*nullType)}
}

func (a *nullAttached) BuildReturn(v Value) DetachedBuilder    { return a.detach() }
func (a *nullAttached) BuildReturnVoid() DetachedBuilder       { return a.detach() }
func (a *nullAttached) BuildBr(dst BasicBlock) DetachedBuilder { return a.detach() }
func (a *nullAttached) BuildUnreachable() DetachedBuilder      { return a.detach() }

func (a *nullAttached) BuildCondBr(cond Value, t, f BasicBlock) DetachedBuilder {
	return a.detach()
}

type nullCompiler[K comparable] struct{}

// NewNullCompiler returns the no-op compiler. The code it produces is
// not callable; FunctionPointer hands out stable fake addresses.
func NewNullCompiler[K comparable]() Compiler[K] {
	return nullCompiler[K]{}
}

func (nullCompiler[K]) Run(user CompilerUser[K], cfg Config) (CompiledCode[K], error) {
	ctx := newNullContext()
	in, err := user.Run(ctx)
	if err != nil {
		return nil, err
	}
	m, ok := in.Module.(*nullModule)
	if !ok || m.ctx != ctx {
		return nil, user.CreateError("module does not belong to this compilation")
	}
	if _, err := m.Verify(); err != nil {
		return nil, user.CreateError(err.Error())
	}
	code := nullCode[K]{ptrs: make(map[K]uintptr, len(in.EntryPoints))}
	for key, fn := range in.EntryPoints {
		nf, ok := fn.(*nullFunction)
		if !ok || nf.mod != m {
			return nil, user.CreateError(fmt.Sprintf("entry point %v is not a function of the returned module", key))
		}
		code.ptrs[key] = nf.addr
	}
	return code, nil
}

type nullCode[K comparable] struct {
	ptrs map[K]uintptr
}

func (c nullCode[K]) FunctionPointer(key K) (uintptr, bool) {
	p, ok := c.ptrs[key]
	return p, ok
}
