package text

import (
	"testing"

	"spirit/internal/diag"
	"spirit/internal/ir"
)

func wrapFn(body string) string {
	return `module {
    fn main[%a: i32, %b: bool] -> [] {
        block entry[] -> [] {
` + body + `
            break entry[];
        }
    }
    entry_point: main;
}`
}

func TestParseModuleErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"missing_suffix", wrapFn("const [42] -> [%c: i32];"), diag.LexMissingIntSuffix},
		{"undefined_value", wrapFn("neg [%nope] -> [%r: i32];"), diag.SynUndefinedName},
		{"unknown_instruction", wrapFn("frobnicate [%a] -> [%r: i32];"), diag.SynUnknownInstruction},
		{"arity", wrapFn("add [%a] -> [%r: i32];"), diag.SynArityMismatch},
		{"branch_not_bool", wrapFn("branch [%a] then entry[] else entry[];"), diag.SynTypeMismatch},
		{"continue_block", wrapFn("continue entry[];"), diag.SynUndefinedLabel},
		{"break_unknown_label", wrapFn("break nowhere[];"), diag.SynUndefinedLabel},
		{"duplicate_value", wrapFn("const [0x1i32] -> [%a: i32];"), diag.SynDuplicateName},
		{"const_type_mismatch", wrapFn("const [0x1i8] -> [%c: i32];"), diag.SynTypeMismatch},
		{"vector_mixed", wrapFn("const [<0x1i8, 0x2i16>] -> [%c: <2 x i8>];"), diag.SynTypeMismatch},
		{"null_non_pointer", wrapFn("const [null i32] -> [%c: i32];"), diag.SynExpectConst},
		{
			"duplicate_label",
			wrapFn(`block entry[] -> [] {
                break entry[];
            }`),
			diag.SynDuplicateName,
		},
		{
			"return_mismatch",
			`module {
    fn main[] -> [i32] {
        block entry[] -> [] {
            break entry[];
        }
    }
    entry_point: main;
}`,
			diag.SynTypeMismatch,
		},
		{
			"unknown_entry_point",
			`module {
    entry_point: main;
}`,
			diag.SynUndefinedName,
		},
		{
			"bad_hint",
			`module {
    fn main[] -> [] {
        hints {
            inlining_hint: always;
        }
        block entry[] -> [] {
            break entry[];
        }
    }
    entry_point: main;
}`,
			diag.SynBadHint,
		},
		{
			"bad_target_property",
			`module {
    target_properties {
        endianness: big;
    }
    entry_point: main;
}`,
			diag.SynBadTargetProperty,
		},
		{
			"duplicate_function",
			`module {
    fn main[] -> [] {
        block entry[] -> [] {
            break entry[];
        }
    }
    fn main[] -> [] {
        block entry[] -> [] {
            break entry[];
        }
    }
    entry_point: main;
}`,
			diag.SynDuplicateName,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := ir.NewContext()
			_, err := ParseModule("test.sir", tc.src, ctx)
			if err == nil {
				t.Fatal("want error")
			}
			fte, ok := err.(*FromTextError)
			if !ok {
				t.Fatalf("error type %T", err)
			}
			if fte.Code != tc.code {
				t.Errorf("code %v, want %v: %v", fte.Code, tc.code, err)
			}
		})
	}
}

func TestParseBreakArity(t *testing.T) {
	src := `module {
    fn main[%a: i32] -> [] {
        block entry[] -> [] {
            break entry[%a];
        }
    }
    entry_point: main;
}`
	ctx := ir.NewContext()
	_, err := ParseModule("test.sir", src, ctx)
	fte, ok := err.(*FromTextError)
	if !ok || fte.Code != diag.SynArityMismatch {
		t.Fatalf("want arity mismatch, got %v", err)
	}
}

func TestParseHeaderBindsOuterValue(t *testing.T) {
	// A header parameter's initial value resolves in the enclosing
	// scope, so a parameter cannot initialize itself.
	src := `module {
    fn main[] -> [] {
        block entry[] -> [] {
            block inner[%x: i32 = %x] -> [] {
                break inner[];
            }
            break entry[];
        }
    }
    entry_point: main;
}`
	ctx := ir.NewContext()
	_, err := ParseModule("test.sir", src, ctx)
	fte, ok := err.(*FromTextError)
	if !ok || fte.Code != diag.SynUndefinedName {
		t.Fatalf("want undefined name, got %v", err)
	}
}

func TestParseValueScopePerFunction(t *testing.T) {
	// Sibling functions may reuse value and label names.
	src := `module {
    fn a[%x: i32] -> [] {
        block entry[] -> [] {
            break entry[];
        }
    }
    fn b[%x: i32] -> [] {
        block entry[] -> [] {
            break entry[];
        }
    }
    entry_point: a;
}`
	ctx := ir.NewContext()
	m, err := ParseModule("test.sir", src, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Funcs) != 2 || m.EntryPoint != m.Funcs[0] {
		t.Errorf("funcs=%d entry=%v", len(m.Funcs), m.EntryPoint)
	}
}

func TestParseErrorPosition(t *testing.T) {
	src := "module {\n    entry_point: missing;\n}"
	ctx := ir.NewContext()
	_, err := ParseModule("test.sir", src, ctx)
	fte, ok := err.(*FromTextError)
	if !ok {
		t.Fatalf("error type %T", err)
	}
	if fte.Line != 2 || fte.Col != 18 {
		t.Errorf("position %d:%d, want 2:18", fte.Line, fte.Col)
	}
	if fte.Error() != "test.sir:2:18: entry point \"missing\" is not a defined function" {
		t.Errorf("message %q", fte.Error())
	}
}
