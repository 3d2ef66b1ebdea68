package cfg

import (
	"testing"

	"spirit/internal/diag"
)

func mustStructure(t *testing.T, blocks []BlockInput, idBound uint32) (*Graph, *Structure) {
	t.Helper()
	g := mustBuild(t, blocks, idBound)
	tree, err := BuildStructure(g)
	if err != nil {
		t.Fatalf("BuildStructure: %v", err)
	}
	return g, tree
}

// flatten records every block index in emission order.
func flatten(children []Child, out *[]int) {
	for _, c := range children {
		*out = append(*out, c.Block)
		switch c.Kind {
		case ChildLoop:
			flatten(c.Loop.Body, out)
			flatten(c.Loop.Continue, out)
		case ChildSelection:
			flatten(c.Selection.True, out)
			flatten(c.Selection.False, out)
		case ChildSwitch:
			for _, arm := range c.Switch.Cases {
				flatten(arm.Body, out)
			}
		}
	}
}

// checkSchedule verifies the structure-tree fidelity law: every
// reachable block appears exactly once, and every CFG edge points at a
// block placed at or after its source, or at a region header already
// placed (a back edge or break).
func checkSchedule(t *testing.T, g *Graph, tree *Structure) {
	t.Helper()
	var order []int
	flatten(tree.Children, &order)

	seen := map[int]int{}
	for pos, b := range order {
		if prev, dup := seen[b]; dup {
			t.Fatalf("block %d appears at %d and %d", b, prev, pos)
		}
		seen[b] = pos
	}
	for _, b := range g.ReversePostOrder() {
		if _, ok := seen[b]; !ok {
			t.Errorf("reachable block %d missing from schedule", b)
		}
	}
	for _, b := range order {
		for _, s := range g.Succs[b] {
			if _, ok := seen[s]; !ok {
				t.Errorf("edge %d -> %d leaves the schedule", b, s)
			}
		}
	}
}

func TestStructureIfElse(t *testing.T) {
	g, tree := mustStructure(t, []BlockInput{
		withMerge(condBr(0, 1, 2), selMerge(3)),
		branch(1, 3),
		branch(2, 3),
		ret(3),
	}, 4)

	if len(tree.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(tree.Children))
	}
	sel := tree.Children[0]
	if sel.Kind != ChildSelection || sel.Block != 0 {
		t.Fatalf("first child = %+v, want selection at 0", sel)
	}
	if len(sel.Selection.True) != 1 || sel.Selection.True[0].Block != 1 {
		t.Errorf("true arm = %+v", sel.Selection.True)
	}
	if len(sel.Selection.False) != 1 || sel.Selection.False[0].Block != 2 {
		t.Errorf("false arm = %+v", sel.Selection.False)
	}
	if tree.Children[1].Kind != ChildBlock || tree.Children[1].Block != 3 {
		t.Errorf("merge child = %+v", tree.Children[1])
	}
	checkSchedule(t, g, tree)
}

func TestStructureIfWithoutElse(t *testing.T) {
	g, tree := mustStructure(t, []BlockInput{
		withMerge(condBr(0, 1, 2), selMerge(2)),
		branch(1, 2),
		ret(2),
	}, 3)

	sel := tree.Children[0]
	if sel.Kind != ChildSelection {
		t.Fatalf("first child = %+v", sel)
	}
	if len(sel.Selection.True) != 1 || len(sel.Selection.False) != 0 {
		t.Errorf("arms = %d/%d, want 1/0", len(sel.Selection.True), len(sel.Selection.False))
	}
	checkSchedule(t, g, tree)
}

func TestStructureLoopWithContinue(t *testing.T) {
	// 0 -> 1 (header); body 2 branches to continue target 3, which
	// loops back to 1; header exits to 4.
	g, tree := mustStructure(t, []BlockInput{
		branch(0, 1),
		withMerge(condBr(1, 2, 4), loopMerge(4, 3)),
		branch(2, 3),
		branch(3, 1),
		ret(4),
	}, 5)

	if len(tree.Children) != 3 {
		t.Fatalf("children = %d, want 3", len(tree.Children))
	}
	loop := tree.Children[1]
	if loop.Kind != ChildLoop || loop.Block != 1 {
		t.Fatalf("loop child = %+v", loop)
	}
	n := loop.Loop
	if n.Merge != 4 || n.ContinueTarget != 3 {
		t.Errorf("merge/continue = %d/%d, want 4/3", n.Merge, n.ContinueTarget)
	}
	if len(n.Body) != 1 || n.Body[0].Block != 2 {
		t.Errorf("body = %+v", n.Body)
	}
	if len(n.Continue) != 1 || n.Continue[0].Block != 3 {
		t.Errorf("continue region = %+v", n.Continue)
	}
	checkSchedule(t, g, tree)
}

func TestStructureSelfContinueLoop(t *testing.T) {
	// The continue target is the header itself: no separate continue
	// region is synthesized.
	_, tree := mustStructure(t, []BlockInput{
		branch(0, 1),
		withMerge(condBr(1, 2, 3), loopMerge(3, 1)),
		branch(2, 1),
		ret(3),
	}, 4)

	loop := tree.Children[1]
	if loop.Kind != ChildLoop {
		t.Fatalf("loop child = %+v", loop)
	}
	if len(loop.Loop.Continue) != 0 {
		t.Errorf("continue region = %+v, want none", loop.Loop.Continue)
	}
	if len(loop.Loop.Body) != 1 || loop.Loop.Body[0].Block != 2 {
		t.Errorf("body = %+v", loop.Loop.Body)
	}
}

func TestStructureSwitchFallthrough(t *testing.T) {
	sw := BlockInput{
		Label: 0,
		Merge: &Merge{Kind: MergeSelection, MergeBlock: 4},
		Term: Terminator{
			Kind:    TermSwitch,
			Default: 1,
			Cases:   []SwitchCase{{Value: 10, Target: 2}, {Value: 20, Target: 3}},
		},
	}
	g, tree := mustStructure(t, []BlockInput{
		sw,
		branch(1, 4),
		branch(2, 3), // case 10 falls through into case 20
		branch(3, 4),
		ret(4),
	}, 5)

	node := tree.Children[0]
	if node.Kind != ChildSwitch {
		t.Fatalf("first child = %+v", node)
	}
	cases := node.Switch.Cases
	if len(cases) != 3 {
		t.Fatalf("cases = %d, want 3", len(cases))
	}
	if !cases[0].IsDefault || cases[0].FallsThrough {
		t.Errorf("case 0 = %+v, want plain default", cases[0])
	}
	if cases[1].Value != 10 || !cases[1].FallsThrough {
		t.Errorf("case 1 = %+v, want value 10 falling through", cases[1])
	}
	if cases[2].Value != 20 || cases[2].FallsThrough {
		t.Errorf("case 2 = %+v, want value 20", cases[2])
	}
	checkSchedule(t, g, tree)
}

func TestStructureSwitchSkipsEmptyCase(t *testing.T) {
	// Case 10 shares its target with the next case: it is an empty
	// fallthrough and produces no arm of its own.
	sw := BlockInput{
		Label: 0,
		Merge: &Merge{Kind: MergeSelection, MergeBlock: 3},
		Term: Terminator{
			Kind:    TermSwitch,
			Default: 1,
			Cases:   []SwitchCase{{Value: 10, Target: 2}, {Value: 20, Target: 2}},
		},
	}
	_, tree := mustStructure(t, []BlockInput{
		sw,
		branch(1, 3),
		branch(2, 3),
		ret(3),
	}, 4)

	cases := tree.Children[0].Switch.Cases
	if len(cases) != 2 {
		t.Fatalf("cases = %d, want 2", len(cases))
	}
	if cases[1].Value != 20 || cases[1].Target != 2 {
		t.Errorf("case 1 = %+v", cases[1])
	}
}

func TestStructureErrors(t *testing.T) {
	swCycle := BlockInput{
		Label: 0,
		Merge: &Merge{Kind: MergeSelection, MergeBlock: 4},
		Term: Terminator{
			Kind:    TermSwitch,
			Default: 1,
			Cases:   []SwitchCase{{Value: 10, Target: 2}, {Value: 20, Target: 3}},
		},
	}
	cases := []struct {
		name    string
		blocks  []BlockInput
		idBound uint32
		code    diag.Code
	}{
		{
			"conditional_without_merge",
			[]BlockInput{condBr(0, 1, 2), ret(1), ret(2)},
			3, diag.TrConditionalNeedsMerge,
		},
		{
			"switch_without_merge",
			[]BlockInput{{Label: 0, Term: Terminator{Kind: TermSwitch, Default: 1}}, ret(1)},
			2, diag.TrMergeOnBadTerminator,
		},
		{
			"selection_merge_on_plain_branch_switch",
			[]BlockInput{withMerge(branch(0, 1), selMerge(1)), ret(1)},
			2, diag.TrMergeOnBadTerminator,
		},
		{
			"switch_case_cycle",
			[]BlockInput{swCycle, branch(1, 4), branch(2, 3), branch(3, 2), ret(4)},
			5, diag.TrSwitchCaseLoop,
		},
		{
			"shared_tail_without_merge",
			[]BlockInput{
				withMerge(condBr(0, 1, 2), selMerge(4)),
				branch(1, 3),
				branch(2, 3),
				branch(3, 4),
				ret(4),
			},
			5, diag.TrIrreducibleFlow,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := mustBuild(t, tc.blocks, tc.idBound)
			_, err := BuildStructure(g)
			wantCode(t, err, tc.code)
		})
	}
}
