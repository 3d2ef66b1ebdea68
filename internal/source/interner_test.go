package source

import (
	"fmt"
	"testing"
)

func TestInternerBasic(t *testing.T) {
	in := NewInterner()

	if s, ok := in.Lookup(NoStringID); !ok || s != "" {
		t.Errorf("NoStringID must resolve to the empty string, got %q, ok=%v", s, ok)
	}

	id1 := in.Intern("pos")
	if id1 == NoStringID {
		t.Error("Intern must not return NoStringID for a non-empty string")
	}

	id2 := in.Intern("pos")
	if id1 != id2 {
		t.Errorf("re-interning must return the same ID: %d != %d", id1, id2)
	}

	if s, ok := in.Lookup(id1); !ok || s != "pos" {
		t.Errorf("Lookup returned %q, ok=%v", s, ok)
	}

	id3 := in.Intern("normal")
	if id3 == id1 {
		t.Error("distinct strings must get distinct IDs")
	}

	if in.Len() != 3 {
		t.Errorf("Len = %d, want 3", in.Len())
	}
}

func TestInternerBytes(t *testing.T) {
	in := NewInterner()
	id1 := in.InternBytes([]byte("entry"))
	id2 := in.Intern("entry")
	if id1 != id2 {
		t.Errorf("InternBytes and Intern disagree: %d != %d", id1, id2)
	}
}

func TestInternerMany(t *testing.T) {
	in := NewInterner()
	ids := make([]StringID, 0, 100)
	for i := range 100 {
		ids = append(ids, in.Intern(fmt.Sprintf("block%d", i)))
	}
	for i, id := range ids {
		want := fmt.Sprintf("block%d", i)
		if got := in.MustLookup(id); got != want {
			t.Fatalf("MustLookup(%d) = %q, want %q", id, got, want)
		}
	}
}
