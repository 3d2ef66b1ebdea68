package ir

import (
	"math"
	"testing"
)

func TestConstInterning(t *testing.T) {
	ctx := NewContext()

	if ctx.IntConst(Int8, 1) != ctx.IntConst(Int8, 1) {
		t.Error("equal constants must be one instance")
	}
	if ctx.IntConst(Int8, 1) == ctx.IntConst(Int8, 2) {
		t.Error("distinct values must differ")
	}
	if ctx.IntConst(Int8, 1) == ctx.IntConst(Int16, 1) {
		t.Error("distinct widths must differ")
	}
}

func TestConstIntegerMasksWidth(t *testing.T) {
	ctx := NewContext()
	k := ctx.IntConst(Int8, 0x1ff)
	if k.Bits != 0xff {
		t.Errorf("Bits = %#x, want 0xff", k.Bits)
	}
	if k != ctx.IntConst(Int8, 0xff) {
		t.Error("masked constants must collapse")
	}
}

func TestConstString(t *testing.T) {
	ctx := NewContext()

	cases := []struct {
		k    *Const
		want string
	}{
		{ctx.IntConst(Int8, 1), "0x1i8"},
		{ctx.IntConst(Int32, 23), "0x17i32"},
		{ctx.BoolConst(true), "true"},
		{ctx.BoolConst(false), "false"},
		{ctx.FloatConst(Float32, uint64(math.Float32bits(1.0))), "f32 0x3f800000"},
		{ctx.FloatConst(Float16, 0x3c00), "f16 0x3c00"},
		{ctx.UndefConst(ctx.IntType(Int32)), "undef i32"},
		{ctx.NullConst(ctx.PointerType(ctx.IntType(Int32))), "null *i32"},
	}
	for _, tc := range cases {
		if got := tc.k.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestVectorConst(t *testing.T) {
	ctx := NewContext()
	elems := []*Const{
		ctx.IntConst(Int8, 1),
		ctx.IntConst(Int8, 2),
		ctx.IntConst(Int8, 3),
		ctx.IntConst(Int8, 4),
	}
	v := ctx.VectorConst(elems)

	if v.Type != ctx.VectorType(ctx.IntType(Int8), 4) {
		t.Error("vector constant type mismatch")
	}
	if got := v.String(); got != "<0x1i8, 0x2i8, 0x3i8, 0x4i8>" {
		t.Errorf("String() = %q", got)
	}
	if v != ctx.VectorConst(elems) {
		t.Error("equal vector constants must be one instance")
	}
}

func TestVectorConstEmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("empty vector constant must panic")
		}
	}()
	NewContext().VectorConst(nil)
}

func TestVectorConstHeterogeneousPanics(t *testing.T) {
	ctx := NewContext()
	defer func() {
		if recover() == nil {
			t.Error("heterogeneous vector constant must panic")
		}
	}()
	ctx.VectorConst([]*Const{ctx.IntConst(Int8, 1), ctx.IntConst(Int16, 2)})
}

func TestNullConstNeedsPointer(t *testing.T) {
	ctx := NewContext()
	defer func() {
		if recover() == nil {
			t.Error("null of a non-pointer type must panic")
		}
	}()
	ctx.NullConst(ctx.IntType(Int32))
}
