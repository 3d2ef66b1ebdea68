package llvm

import (
	"fmt"

	"spirit/internal/backend"
)

type compiler[K comparable] struct{}

// NewCompiler returns a compiler that verifies the user's module and
// renders it to LLVM assembly. The result is a *Code; its Text method
// carries the .ll source.
func NewCompiler[K comparable]() backend.Compiler[K] {
	return compiler[K]{}
}

func (compiler[K]) Run(user backend.CompilerUser[K], cfg backend.Config) (backend.CompiledCode[K], error) {
	ctx := NewContext()
	in, err := user.Run(ctx)
	if err != nil {
		return nil, err
	}
	m, ok := in.Module.(*Module)
	if !ok || m.ctx != ctx {
		return nil, user.CreateError("module does not belong to this compilation")
	}
	v, err := m.Verify()
	if err != nil {
		return nil, user.CreateError(err.Error())
	}
	code := &Code[K]{
		text: v.(verified).Emit(),
		ptrs: make(map[K]uintptr, len(in.EntryPoints)),
	}
	for key, fn := range in.EntryPoints {
		lf, ok := fn.(*Function)
		if !ok || lf.mod != m {
			return nil, user.CreateError(fmt.Sprintf("entry point %v is not a function of the returned module", key))
		}
		code.ptrs[key] = lf.addr
	}
	return code, nil
}

// Code holds the rendered module. Addresses are placeholders; nothing
// here is executable.
type Code[K comparable] struct {
	text string
	ptrs map[K]uintptr
}

func (c *Code[K]) Text() string { return c.text }

func (c *Code[K]) FunctionPointer(key K) (uintptr, bool) {
	p, ok := c.ptrs[key]
	return p, ok
}
