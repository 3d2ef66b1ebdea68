package cfg

import (
	"fmt"

	"fortio.org/safecast"

	"spirit/internal/diag"
)

// Graph is the block-level control flow graph of one function. Blocks
// keep their encountered order; index 0 is the entry. Successor edges
// follow the fixed terminator visit order, predecessor edges are
// computed once at build time.
type Graph struct {
	Blocks []BlockInput
	Succs  [][]int
	Preds  [][]int

	byLabel []int32 // dense label -> block index, -1 when undefined
}

// Build constructs the graph from one (label, merge, terminator) triple
// per block. idBound is the exclusive upper bound of the label space
// and sizes the dense label map.
func Build(blocks []BlockInput, idBound uint32) (*Graph, error) {
	if len(blocks) == 0 {
		return nil, errf(diag.TrMissingTerminator, 0, "function has no basic blocks")
	}

	g := &Graph{
		Blocks:  blocks,
		Succs:   make([][]int, len(blocks)),
		Preds:   make([][]int, len(blocks)),
		byLabel: make([]int32, idBound),
	}
	for i := range g.byLabel {
		g.byLabel[i] = -1
	}

	for i, b := range blocks {
		if uint32(b.Label) >= idBound {
			return nil, errf(diag.TrUndefinedLabel, b.Label, "label outside the id bound %d", idBound)
		}
		if g.byLabel[b.Label] != -1 {
			return nil, errf(diag.TrDuplicateLabel, b.Label, "label defined twice")
		}
		idx, err := safecast.Conv[int32](i)
		if err != nil {
			return nil, errf(diag.TrDuplicateLabel, b.Label, "too many blocks: %v", err)
		}
		g.byLabel[b.Label] = idx
	}

	for i := range blocks {
		b := &blocks[i]
		for _, target := range b.Term.Targets() {
			if uint32(target) >= idBound || g.byLabel[target] == -1 {
				return nil, errf(diag.TrUndefinedLabel, b.Label, "terminator targets undefined label %%%d", target)
			}
			t := int(g.byLabel[target])
			if containsEdge(g.Succs[i], t) {
				continue
			}
			g.Succs[i] = append(g.Succs[i], t)
			g.Preds[t] = append(g.Preds[t], i)
		}
		if m := b.Merge; m != nil {
			if uint32(m.MergeBlock) >= idBound || g.byLabel[m.MergeBlock] == -1 {
				return nil, errf(diag.TrUndefinedLabel, b.Label, "merge declares undefined label %%%d", m.MergeBlock)
			}
			if m.Kind == MergeLoop {
				if uint32(m.ContinueTarget) >= idBound || g.byLabel[m.ContinueTarget] == -1 {
					return nil, errf(diag.TrUndefinedLabel, b.Label, "merge declares undefined continue target %%%d", m.ContinueTarget)
				}
			}
		}
	}

	if len(g.Preds[0]) > 0 {
		return nil, errf(diag.TrEntryHasPredecessors, blocks[0].Label, "entry block has %d predecessors", len(g.Preds[0]))
	}
	return g, nil
}

func containsEdge(edges []int, t int) bool {
	for _, e := range edges {
		if e == t {
			return true
		}
	}
	return false
}

// Index resolves a label to its block index. Panics on an undefined
// label: Build already validated every label the input can mention.
func (g *Graph) Index(label LabelID) int {
	if uint32(label) >= uint32(len(g.byLabel)) || g.byLabel[label] == -1 {
		panic(fmt.Sprintf("cfg: label %%%d not in graph", label))
	}
	return int(g.byLabel[label])
}

// Len returns the number of blocks.
func (g *Graph) Len() int {
	return len(g.Blocks)
}
