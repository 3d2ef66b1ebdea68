package cfg

// DomTree is the immediate-dominator tree of a Graph, computed with
// Cooper, Harvey, and Kennedy's "A Simple, Fast Dominance Algorithm"
// over the block index space, seeded from the entry block.
type DomTree struct {
	idom     []int // immediate dominator per block index, -1 for entry/unreachable
	children [][]int
	rpoNum   []int // RPO position per block index, -1 for unreachable
}

// ReversePostOrder returns the reachable block indices in reverse
// post-order starting from the entry. Unreachable blocks are excluded.
func (g *Graph) ReversePostOrder() []int {
	visited := make([]bool, g.Len())
	var order []int

	var dfs func(b int)
	dfs = func(b int) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range g.Succs[b] {
			dfs(s)
		}
		order = append(order, b)
	}
	dfs(0)

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// ComputeDom computes the dominator tree of g.
func ComputeDom(g *Graph) *DomTree {
	rpo := g.ReversePostOrder()

	d := &DomTree{
		idom:     make([]int, g.Len()),
		children: make([][]int, g.Len()),
		rpoNum:   make([]int, g.Len()),
	}
	for i := range d.idom {
		d.idom[i] = -1
		d.rpoNum[i] = -1
	}
	for i, b := range rpo {
		d.rpoNum[b] = i
	}

	intersect := func(b1, b2 int) int {
		for b1 != b2 {
			for d.rpoNum[b1] > d.rpoNum[b2] {
				b1 = d.idom[b1]
			}
			for d.rpoNum[b2] > d.rpoNum[b1] {
				b2 = d.idom[b2]
			}
		}
		return b1
	}

	// Entry dominates itself as a sentinel during iteration.
	d.idom[0] = 0

	changed := true
	for changed {
		changed = false
		for _, b := range rpo[1:] {
			newIdom := -1
			for _, p := range g.Preds[b] {
				if d.idom[p] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = p
					continue
				}
				newIdom = intersect(p, newIdom)
			}
			if newIdom != -1 && d.idom[b] != newIdom {
				d.idom[b] = newIdom
				changed = true
			}
		}
	}

	d.idom[0] = -1
	for _, b := range rpo {
		if d.idom[b] != -1 {
			d.children[d.idom[b]] = append(d.children[d.idom[b]], b)
		}
	}
	return d
}

// Idom returns the immediate dominator of block b, or -1 for the entry
// and unreachable blocks.
func (d *DomTree) Idom(b int) int {
	return d.idom[b]
}

// Children returns the blocks immediately dominated by b.
func (d *DomTree) Children(b int) []int {
	return d.children[b]
}

// Dominates reports whether a dominates b. Every block dominates
// itself. Unreachable blocks are dominated by nothing.
func (d *DomTree) Dominates(a, b int) bool {
	if d.rpoNum[b] == -1 {
		return false
	}
	for b != -1 {
		if a == b {
			return true
		}
		b = d.idom[b]
	}
	return false
}
