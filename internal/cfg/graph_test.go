package cfg

import (
	"errors"
	"testing"

	"spirit/internal/diag"
)

func branch(label, target LabelID) BlockInput {
	return BlockInput{Label: label, Term: Terminator{Kind: TermBranch, Target: target}}
}

func condBr(label, t, f LabelID) BlockInput {
	return BlockInput{Label: label, Term: Terminator{Kind: TermBranchConditional, TrueTarget: t, FalseTarget: f}}
}

func ret(label LabelID) BlockInput {
	return BlockInput{Label: label, Term: Terminator{Kind: TermReturn}}
}

func withMerge(b BlockInput, m Merge) BlockInput {
	b.Merge = &m
	return b
}

func selMerge(m LabelID) Merge {
	return Merge{Kind: MergeSelection, MergeBlock: m}
}

func loopMerge(m, cont LabelID) Merge {
	return Merge{Kind: MergeLoop, MergeBlock: m, ContinueTarget: cont}
}

func mustBuild(t *testing.T, blocks []BlockInput, idBound uint32) *Graph {
	t.Helper()
	g, err := Build(blocks, idBound)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func wantCode(t *testing.T, err error, code diag.Code) {
	t.Helper()
	if err == nil {
		t.Fatal("want error")
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("error type %T", err)
	}
	if e.Code != code {
		t.Errorf("code %v, want %v: %v", e.Code, code, err)
	}
}

func TestBuildDiamond(t *testing.T) {
	g := mustBuild(t, []BlockInput{
		withMerge(condBr(0, 1, 2), selMerge(3)),
		branch(1, 3),
		branch(2, 3),
		ret(3),
	}, 4)

	// Successor order is the terminator visit order: true then false.
	if len(g.Succs[0]) != 2 || g.Succs[0][0] != 1 || g.Succs[0][1] != 2 {
		t.Errorf("Succs[0] = %v, want [1 2]", g.Succs[0])
	}
	if len(g.Preds[3]) != 2 || g.Preds[3][0] != 1 || g.Preds[3][1] != 2 {
		t.Errorf("Preds[3] = %v, want [1 2]", g.Preds[3])
	}
	if g.Index(2) != 2 {
		t.Errorf("Index(2) = %d", g.Index(2))
	}
}

func TestBuildSwitchEdgeOrder(t *testing.T) {
	sw := BlockInput{
		Label: 0,
		Merge: &Merge{Kind: MergeSelection, MergeBlock: 3},
		Term: Terminator{
			Kind:    TermSwitch,
			Default: 1,
			Cases:   []SwitchCase{{Value: 10, Target: 2}, {Value: 20, Target: 1}},
		},
	}
	g := mustBuild(t, []BlockInput{sw, branch(1, 3), branch(2, 3), ret(3)}, 4)

	// Default first, then cases in listed order; duplicate targets make
	// one edge.
	if len(g.Succs[0]) != 2 || g.Succs[0][0] != 1 || g.Succs[0][1] != 2 {
		t.Errorf("Succs[0] = %v, want [1 2]", g.Succs[0])
	}
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		name    string
		blocks  []BlockInput
		idBound uint32
		code    diag.Code
	}{
		{"empty", nil, 4, diag.TrMissingTerminator},
		{"duplicate_label", []BlockInput{branch(0, 1), ret(1), ret(1)}, 4, diag.TrDuplicateLabel},
		{"undefined_target", []BlockInput{branch(0, 9)}, 4, diag.TrUndefinedLabel},
		{"label_out_of_bound", []BlockInput{branch(7, 7)}, 4, diag.TrUndefinedLabel},
		{"undefined_merge", []BlockInput{withMerge(condBr(0, 1, 2), selMerge(9)), ret(1), ret(2)}, 4, diag.TrUndefinedLabel},
		{"entry_preds", []BlockInput{branch(0, 1), branch(1, 0)}, 4, diag.TrEntryHasPredecessors},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.blocks, tc.idBound)
			wantCode(t, err, tc.code)
		})
	}
}
