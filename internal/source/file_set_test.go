package source

import (
	"testing"
)

func TestFileSetAdd(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("shader.sir", []byte("module {\n}\n"))

	f := fs.Get(id)
	if f == nil {
		t.Fatal("Get returned nil for a fresh id")
	}
	if f.Flags&FileVirtual == 0 {
		t.Error("AddVirtual must set FileVirtual")
	}
	if len(f.LineIdx) != 2 {
		t.Errorf("LineIdx has %d entries, want 2", len(f.LineIdx))
	}
}

func TestFileSetNormalization(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("bom.sir", []byte("\xEF\xBB\xBFmodule {\r\n}\r\n"))

	f := fs.Get(id)
	if f.Flags&FileHadBOM == 0 {
		t.Error("BOM flag not set")
	}
	if f.Flags&FileNormalizedCRLF == 0 {
		t.Error("CRLF flag not set")
	}
	if string(f.Content) != "module {\n}\n" {
		t.Errorf("content not normalized: %q", f.Content)
	}
}

func TestFileSetByPath(t *testing.T) {
	fs := NewFileSet()
	fs.AddVirtual("a.sir", []byte("old"))
	id2 := fs.AddVirtual("a.sir", []byte("new"))

	f, ok := fs.ByPath("a.sir")
	if !ok || f.ID != id2 {
		t.Errorf("ByPath must return the latest version, got %v ok=%v", f, ok)
	}
	if _, ok := fs.ByPath("missing.sir"); ok {
		t.Error("ByPath must miss on unknown paths")
	}
}

func TestFileSetPosition(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("p.sir", []byte("one\ntwo three\n"))

	got := fs.Position(id, 8)
	if got.Line != 2 || got.Col != 5 {
		t.Errorf("Position = %+v, want line 2 col 5", got)
	}
}
