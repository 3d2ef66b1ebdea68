package text

import (
	"testing"

	"spirit/internal/ir"
)

func TestConstRoundTrip(t *testing.T) {
	cases := []string{
		"0x1i8",
		"0xffi8",
		"0x2ai32",
		"0xffffffffffffffffi64",
		"<0x1i8, 0x2i8, 0x3i8, 0x4i8>",
		"f16 0x3c00",
		"f32 0x3f800000",
		"f64 0x3ff0000000000000",
		"f32 0x00000001",
		"true",
		"false",
		"undef i32",
		"undef <4 x f32>",
		"null *i32",
		"<true, false>",
	}
	for _, src := range cases {
		ctx := ir.NewContext()
		k, err := ParseConst("test.sir", src, ctx)
		if err != nil {
			t.Errorf("parse %q: %v", src, err)
			continue
		}
		if got := PrintConst(k); got != src {
			t.Errorf("round trip %q -> %q", src, got)
		}
	}
}

func TestConstNormalizes(t *testing.T) {
	// Integer bits above the declared width are masked off, and hex is
	// the one canonical base.
	cases := []struct{ src, want string }{
		{"0x1ffi8", "0xffi8"},
		{"255i8", "0xffi8"},
		{"42i32", "0x2ai32"},
	}
	for _, tc := range cases {
		ctx := ir.NewContext()
		k, err := ParseConst("test.sir", tc.src, ctx)
		if err != nil {
			t.Errorf("parse %q: %v", tc.src, err)
			continue
		}
		if got := PrintConst(k); got != tc.want {
			t.Errorf("%q printed as %q, want %q", tc.src, got, tc.want)
		}
	}
}

func TestTypeRoundTrip(t *testing.T) {
	cases := []string{
		"i8",
		"i64",
		"f16",
		"bool",
		"*i32",
		"**f64",
		"<4 x f32>",
		"<4 x 3 x f32>",
		"<? x f32>",
		"*<4 x i8>",
		`opaque "texture2d"`,
	}
	for _, src := range cases {
		ctx := ir.NewContext()
		ty, err := ParseType("test.sir", src, ctx)
		if err != nil {
			t.Errorf("parse %q: %v", src, err)
			continue
		}
		if got := PrintType(ty); got != src {
			t.Errorf("round trip %q -> %q", src, got)
		}
	}
}

func TestTypeInterning(t *testing.T) {
	ctx := ir.NewContext()
	a, err := ParseType("test.sir", "*<4 x f32>", ctx)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseType("test.sir", "*<4 x f32>", ctx)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("structurally equal types must intern to one pointer")
	}
}

const emptyMainModule = `module {
    target_properties {
        data_pointer_width: i64;
        function_pointer_width: i64;
    }
    fn main[] -> [] {
        hints {
            inlining_hint: none;
            side_effects: normal;
        }
        block entry[] -> [] {
            break entry[];
        }
    }
    entry_point: main;
}
`

const loopModule = `module {
    target_properties {
        data_pointer_width: i32;
        function_pointer_width: i64;
    }
    fn count[%n: i32] -> [i32] {
        hints {
            inlining_hint: inline;
            side_effects: pure;
        }
        block entry[] -> [%out: i32] {
            const [0x0i32] -> [%zero: i32] @ "demo.sir":2:9;
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
        hints {
            inlining_hint: none;
            side_effects: normal;
        }
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

func TestModuleRoundTrip(t *testing.T) {
	cases := map[string]string{
		"empty_main": emptyMainModule,
		"loop":       loopModule,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := ir.NewContext()
			m, err := ParseModule("test.sir", src, ctx)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got := PrintModule(m)
			if got != src {
				t.Errorf("round trip mismatch:\n--- want ---\n%s--- got ---\n%s", src, got)
			}
		})
	}
}

func TestModuleReprint(t *testing.T) {
	// Printing is a pure function of the module: a reparse of printed
	// text prints identically.
	ctx := ir.NewContext()
	m, err := ParseModule("test.sir", loopModule, ctx)
	if err != nil {
		t.Fatal(err)
	}
	first := PrintModule(m)

	ctx2 := ir.NewContext()
	m2, err := ParseModule("test.sir", first, ctx2)
	if err != nil {
		t.Fatal(err)
	}
	if second := PrintModule(m2); second != first {
		t.Error("reparse of printed module prints differently")
	}
}

func TestTargetPropertiesDefault(t *testing.T) {
	src := `module {
    target_properties {}
    fn main[] -> [] {
        block entry[] -> [] {
            break entry[];
        }
    }
    entry_point: main;
}`
	ctx := ir.NewContext()
	m, err := ParseModule("test.sir", src, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if m.Target != ir.DefaultTargetProperties() {
		t.Errorf("empty target_properties = %+v, want defaults", m.Target)
	}
	// Canonical output spells both widths out.
	if got := PrintModule(m); got != emptyMainModule {
		t.Errorf("canonical print:\n%s", got)
	}
}

func TestPrintGeneratedNames(t *testing.T) {
	// Values without debug names get stable generated ones.
	ctx := ir.NewContext()
	out := ctx.NewValueDef(ctx.IntType(ir.Int32), "")
	body := ir.NewBlock("entry", nil, nil, ir.Inhabited([]*ir.ValueDef{out}))
	k := ctx.IntConst(ir.Int32, 7)
	def := ctx.NewValueDef(ctx.IntType(ir.Int32), "")
	body.Append(ir.NewConst(k, def))
	body.Append(ir.Instruction{Kind: ir.InstrBreak, Break: ir.BreakBlock{Block: body, Args: []ir.ValueUse{def.Use()}}})

	m := ir.NewModule(ir.DefaultTargetProperties())
	f := ctx.NewFunction("main", ir.FunctionHints{}, nil, body)
	m.AddFunction(f)
	m.EntryPoint = f

	want := `module {
    target_properties {
        data_pointer_width: i64;
        function_pointer_width: i64;
    }
    fn main[] -> [i32] {
        hints {
            inlining_hint: none;
            side_effects: normal;
        }
        block entry[] -> [%v: i32] {
            const [0x7i32] -> [%v1: i32];
            break entry[%v1];
        }
    }
    entry_point: main;
}
`
	if got := PrintModule(m); got != want {
		t.Errorf("generated names:\n--- want ---\n%s--- got ---\n%s", want, got)
	}
}

func TestPrintUseBeforeDefPanics(t *testing.T) {
	ctx := ir.NewContext()
	stray := ctx.NewValueDef(ctx.IntType(ir.Int32), "stray")
	body := ir.NewBlock("entry", nil, nil, ir.Inhabited([]*ir.ValueDef{}))
	body.Append(ir.NewSimple(ir.OpNeg, []ir.ValueUse{stray.Use()}, []*ir.ValueDef{ctx.NewValueDef(ctx.IntType(ir.Int32), "r")}))
	body.Append(ir.Instruction{Kind: ir.InstrBreak, Break: ir.BreakBlock{Block: body}})

	m := ir.NewModule(ir.DefaultTargetProperties())
	f := ctx.NewFunction("main", ir.FunctionHints{}, nil, body)
	m.AddFunction(f)
	m.EntryPoint = f

	defer func() {
		if recover() == nil {
			t.Error("printing a use of an undefined value must panic")
		}
	}()
	PrintModule(m)
}
