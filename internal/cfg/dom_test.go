package cfg

import (
	"testing"
)

// TestDomLinearChain verifies: b0 -> b1 -> b2.
func TestDomLinearChain(t *testing.T) {
	g := mustBuild(t, []BlockInput{branch(0, 1), branch(1, 2), ret(2)}, 3)
	d := ComputeDom(g)

	if d.Idom(0) != -1 {
		t.Errorf("Idom(0) = %d, want -1", d.Idom(0))
	}
	if d.Idom(1) != 0 {
		t.Errorf("Idom(1) = %d, want 0", d.Idom(1))
	}
	if d.Idom(2) != 1 {
		t.Errorf("Idom(2) = %d, want 1", d.Idom(2))
	}
}

// TestDomDiamond verifies that the merge after an if/else is dominated
// by the block before the branch, not by either arm.
func TestDomDiamond(t *testing.T) {
	g := mustBuild(t, []BlockInput{
		withMerge(condBr(0, 1, 2), selMerge(3)),
		branch(1, 3),
		branch(2, 3),
		ret(3),
	}, 4)
	d := ComputeDom(g)

	if d.Idom(1) != 0 || d.Idom(2) != 0 {
		t.Errorf("Idom arms = %d, %d, want 0, 0", d.Idom(1), d.Idom(2))
	}
	if d.Idom(3) != 0 {
		t.Errorf("Idom(3) = %d, want 0", d.Idom(3))
	}
	if !d.Dominates(0, 3) || d.Dominates(1, 3) || d.Dominates(2, 3) {
		t.Error("merge must be dominated by the pre-branch block only")
	}
	if !d.Dominates(3, 3) {
		t.Error("a block dominates itself")
	}
}

// TestDomLoop verifies that a loop header dominates every block of its
// body, back edge included.
func TestDomLoop(t *testing.T) {
	// 0 -> 1 (header) -> 2 (body) -> 3 (latch) -> 1; header exits to 4.
	g := mustBuild(t, []BlockInput{
		branch(0, 1),
		withMerge(condBr(1, 2, 4), loopMerge(4, 3)),
		branch(2, 3),
		branch(3, 1),
		ret(4),
	}, 5)
	d := ComputeDom(g)

	for _, b := range []int{2, 3, 4} {
		if !d.Dominates(1, b) {
			t.Errorf("header must dominate block %d", b)
		}
	}
	if d.Idom(2) != 1 || d.Idom(3) != 2 || d.Idom(4) != 1 {
		t.Errorf("idoms = %d, %d, %d", d.Idom(2), d.Idom(3), d.Idom(4))
	}
	if d.Dominates(3, 1) {
		t.Error("latch must not dominate the header")
	}
}

// TestDomUnreachable verifies that unreachable blocks stay out of the
// tree.
func TestDomUnreachable(t *testing.T) {
	g, err := Build([]BlockInput{branch(0, 2), ret(1), ret(2)}, 3)
	if err != nil {
		t.Fatal(err)
	}
	d := ComputeDom(g)

	if d.Idom(1) != -1 {
		t.Errorf("Idom(1) = %d, want -1", d.Idom(1))
	}
	if d.Dominates(0, 1) || d.Dominates(1, 1) {
		t.Error("unreachable block must not be dominated")
	}
	rpo := g.ReversePostOrder()
	if len(rpo) != 2 || rpo[0] != 0 || rpo[1] != 2 {
		t.Errorf("rpo = %v, want [0 2]", rpo)
	}
}
