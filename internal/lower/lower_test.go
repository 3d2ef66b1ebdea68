package lower

import (
	"strings"
	"testing"

	"spirit/internal/backend"
	"spirit/internal/backend/llvm"
	"spirit/internal/ir"
	"spirit/internal/text"
)

const countModule = `module {
    fn count[%n: i32] -> [i32] {
        block entry[] -> [%out: i32] {
            const [0x0i32] -> [%zero: i32];
            const [0x1i32] -> [%one: i32];
            loop iter[%i: i32 = %zero, %acc: i32 = %zero] -> [%sum: i32] {
                cmp_lt [%i, %n] -> [%more: bool];
                block cont[] -> [] {
                    branch [%more] then cont[] else iter[%acc];
                }
                add [%i, %one] -> [%next: i32];
                add [%acc, %i] -> [%acc2: i32];
                continue iter[%next, %acc2];
            }
            break entry[%sum];
        }
    }
    fn main[] -> [] {
        locals {
            %slot: i32;
        }
        block entry[] -> [] {
            const [0x7i32] -> [%v: i32];
            store [%slot, %v] -> [];
            load [%slot] -> [%r: i32];
            break entry[];
        }
    }
    entry_point: main;
}
`

func parse(t *testing.T, src string) *ir.Module {
	t.Helper()
	m, err := text.ParseModule("test.sir", src, ir.NewContext())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return m
}

func TestLowerToLLVMText(t *testing.T) {
	user := &User{ModuleName: "test", Module: parse(t, countModule)}
	code, err := llvm.NewCompiler[string]().Run(user, backend.Config{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	txt := code.(*llvm.Code[string]).Text()

	for _, want := range []string{
		"define i32 @count(i32 %p0) {",
		"define void @main() {",
		"%slot = alloca i32",
		"store i32 7, ptr %slot",
		"icmp slt",
		"br label %iter",
		"br i1 %more",
		"ret i32",
		"ret void",
	} {
		if !strings.Contains(txt, want) {
			t.Errorf("lowered text missing %q:\n%s", want, txt)
		}
	}
	if strings.Contains(txt, "unreachable") {
		t.Errorf("no unreachable expected:\n%s", txt)
	}
	for _, key := range []string{"count", "main"} {
		if ptr, ok := code.FunctionPointer(key); !ok || ptr == 0 {
			t.Errorf("FunctionPointer(%q) = %#x, %v", key, ptr, ok)
		}
	}
}

func TestLowerThroughNullBackend(t *testing.T) {
	user := &User{ModuleName: "test", Module: parse(t, countModule)}
	code, err := backend.NewNullCompiler[string]().Run(user, backend.Config{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := code.FunctionPointer("count"); !ok {
		t.Error("count must be registered as an entry point")
	}
}

func TestLowerRejectsVectorTypes(t *testing.T) {
	src := `module {
    fn v[%x: <4 x f32>] -> [] {
        block entry[] -> [] {
            break entry[];
        }
    }
    entry_point: v;
}
`
	user := &User{ModuleName: "test", Module: parse(t, src)}
	_, err := llvm.NewCompiler[string]().Run(user, backend.Config{})
	if err == nil || !strings.Contains(err.Error(), "cannot lower type") {
		t.Fatalf("err = %v, want type lowering failure", err)
	}
}

func TestLowerDuplicateFunctionNames(t *testing.T) {
	ctx := ir.NewContext()
	m := ir.NewModule(ir.DefaultTargetProperties())
	for range 2 {
		body := ir.NewBlock("entry", nil, nil, ir.Inhabited([]*ir.ValueDef{}))
		body.Append(ir.Instruction{Kind: ir.InstrBreak, Break: ir.BreakBlock{Block: body}})
		f := ctx.NewFunction("dup", ir.FunctionHints{}, nil, body)
		m.AddFunction(f)
	}
	m.EntryPoint = m.Funcs[0]

	user := &User{ModuleName: "test", Module: m}
	_, err := llvm.NewCompiler[string]().Run(user, backend.Config{})
	if err == nil || !strings.Contains(err.Error(), "duplicate function name") {
		t.Fatalf("err = %v, want duplicate name error", err)
	}
}
