package diag

import (
	"testing"

	"spirit/internal/source"
)

func mk(code Code, sev Severity, start uint32) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  "m",
		Primary:  source.Span{File: 0, Start: start, End: start + 1},
	}
}

func TestBagCap(t *testing.T) {
	b := NewBag(2)
	if !b.Add(mk(LexBadNumber, SevError, 0)) || !b.Add(mk(LexBadNumber, SevError, 1)) {
		t.Fatal("first two adds must succeed")
	}
	if b.Add(mk(LexBadNumber, SevError, 2)) {
		t.Error("add past cap must fail")
	}
	if b.Len() != 2 {
		t.Errorf("Len = %d, want 2", b.Len())
	}
}

func TestBagHasErrors(t *testing.T) {
	b := NewBag(10)
	b.Add(mk(LexInfo, SevInfo, 0))
	if b.HasErrors() {
		t.Error("info only, HasErrors must be false")
	}
	b.Add(mk(SynUnexpectedToken, SevError, 1))
	if !b.HasErrors() {
		t.Error("HasErrors must see the error")
	}
}

func TestBagSortAndDedup(t *testing.T) {
	b := NewBag(10)
	b.Add(mk(SynUnexpectedToken, SevError, 5))
	b.Add(mk(LexBadNumber, SevError, 1))
	b.Add(mk(SynUnexpectedToken, SevError, 5))
	b.Sort()
	b.Dedup()

	items := b.Items()
	if len(items) != 2 {
		t.Fatalf("after dedup Len = %d, want 2", len(items))
	}
	if items[0].Primary.Start != 1 || items[1].Primary.Start != 5 {
		t.Error("not sorted by start offset")
	}
}

func TestBagReporter(t *testing.T) {
	b := NewBag(10)
	var r Reporter = BagReporter{Bag: b}
	Errorf(r, TrDuplicateLabel, source.Span{Start: 3, End: 4}, "duplicate label %d", 7)

	if b.Len() != 1 {
		t.Fatalf("Len = %d, want 1", b.Len())
	}
	d := b.Items()[0]
	if d.Code != TrDuplicateLabel || d.Message != "duplicate label 7" {
		t.Errorf("unexpected diagnostic %+v", d)
	}
}

func TestCodeString(t *testing.T) {
	if got := TrDuplicateLabel.String(); got != "SIR3001" {
		t.Errorf("Code.String = %q, want SIR3001", got)
	}
}
