package cfg

import (
	"spirit/internal/diag"
)

// ChildKind discriminates structure tree nodes.
type ChildKind uint8

const (
	// ChildBlock is a leaf basic block.
	ChildBlock ChildKind = iota
	// ChildLoop is a loop region.
	ChildLoop
	// ChildSelection is an if/else region.
	ChildSelection
	// ChildSwitch is a multi-way selection region.
	ChildSwitch
)

// Child is one node of the structure tree. Block is the leaf block for
// ChildBlock and the header block otherwise.
type Child struct {
	Kind  ChildKind
	Block int

	Loop      *LoopNode
	Selection *SelectionNode
	Switch    *SwitchNode
}

// LoopNode is a loop region: the header's terminator enters Body, Body
// regions terminate at the merge or continue target, and Continue holds
// the continue region when the stream has one distinct from the header.
type LoopNode struct {
	Header         int
	Merge          int
	ContinueTarget int
	Body           []Child
	Continue       []Child
}

// SelectionNode is an if/else region. True or False is empty when the
// corresponding target leaves the region directly.
type SelectionNode struct {
	Header int
	Merge  int
	True   []Child
	False  []Child
}

// SwitchNode is a multi-way selection. Cases are ordered default first,
// then listed case order, except that a case reached by fallthrough is
// chained immediately after the case that falls into it.
type SwitchNode struct {
	Header int
	Merge  int
	Cases  []CaseNode
}

// CaseNode is one switch arm. FallsThrough marks a body that exits into
// the next case in the list instead of the merge.
type CaseNode struct {
	IsDefault    bool
	Value        uint64
	Target       int
	Body         []Child
	FallsThrough bool
}

// Structure is the structure tree of one function.
type Structure struct {
	Children []Child
}

// BuildStructure reconstructs the nested structure tree of g by
// recursive descent guided by merge declarations. Child order is block
// discovery order; it is reused directly as the emission order of the
// structured IR.
func BuildStructure(g *Graph) (*Structure, error) {
	s := &structurer{g: g, placed: make([]bool, g.Len())}
	children, _, err := s.region(0, nil)
	if err != nil {
		return nil, err
	}
	return &Structure{Children: children}, nil
}

type structurer struct {
	g      *Graph
	placed []bool
}

func (s *structurer) place(b int) error {
	if s.placed[b] {
		return errf(diag.TrIrreducibleFlow, s.g.Blocks[b].Label, "block reached on two distinct structured paths")
	}
	s.placed[b] = true
	return nil
}

func cloneExits(exits map[int]bool, more ...int) map[int]bool {
	out := make(map[int]bool, len(exits)+len(more))
	for k := range exits {
		out[k] = true
	}
	for _, m := range more {
		out[m] = true
	}
	return out
}

// region parses the children starting at block start until every path
// terminates or reaches an exit target. It returns the children plus
// the exits actually reached, in first-reach order.
func (s *structurer) region(start int, exits map[int]bool) ([]Child, []int, error) {
	var children []Child
	var reached []int
	seen := map[int]bool{}
	hit := func(b int) {
		if !seen[b] {
			seen[b] = true
			reached = append(reached, b)
		}
	}

	cur := start
	for {
		if exits[cur] {
			hit(cur)
			return children, reached, nil
		}
		if err := s.place(cur); err != nil {
			return nil, nil, err
		}

		b := &s.g.Blocks[cur]
		if b.Merge == nil {
			child, next, exited, err := s.leaf(cur, exits)
			if err != nil {
				return nil, nil, err
			}
			children = append(children, child)
			for _, e := range exited {
				hit(e)
			}
			if next == -1 {
				return children, reached, nil
			}
			cur = next
			continue
		}

		switch b.Merge.Kind {
		case MergeLoop:
			child, err := s.loop(cur, exits)
			if err != nil {
				return nil, nil, err
			}
			children = append(children, child)
			cur = child.Loop.Merge
		case MergeSelection:
			var child Child
			var err error
			if b.Term.Kind == TermSwitch {
				child, err = s.swtch(cur, exits)
			} else {
				child, err = s.selection(cur, exits)
			}
			if err != nil {
				return nil, nil, err
			}
			children = append(children, child)
			if child.Kind == ChildSwitch {
				cur = child.Switch.Merge
			} else {
				cur = child.Selection.Merge
			}
		}
	}
}

// leaf handles a block without a merge declaration. It returns the next
// block to walk (-1 when the region ends here) and the exits the
// block's terminator reached directly.
func (s *structurer) leaf(cur int, exits map[int]bool) (Child, int, []int, error) {
	child := Child{Kind: ChildBlock, Block: cur}
	b := &s.g.Blocks[cur]

	switch b.Term.Kind {
	case TermBranch:
		t := s.g.Index(b.Term.Target)
		if exits[t] {
			return child, -1, []int{t}, nil
		}
		return child, t, nil, nil
	case TermBranchConditional:
		t := s.g.Index(b.Term.TrueTarget)
		f := s.g.Index(b.Term.FalseTarget)
		switch {
		case exits[t] && exits[f]:
			return child, -1, []int{t, f}, nil
		case exits[t]:
			return child, f, []int{t}, nil
		case exits[f]:
			return child, t, []int{f}, nil
		default:
			return Child{}, 0, nil, errf(diag.TrConditionalNeedsMerge, b.Label,
				"conditional branch without a merge must leave the enclosing region on at least one side")
		}
	case TermSwitch:
		return Child{}, 0, nil, errf(diag.TrMergeOnBadTerminator, b.Label, "switch without a selection merge")
	case TermKill, TermReturn, TermReturnValue, TermUnreachable:
		return child, -1, nil, nil
	default:
		return Child{}, 0, nil, errf(diag.TrUnsupportedInstr, b.Label, "unknown terminator kind %d", b.Term.Kind)
	}
}

func (s *structurer) loop(cur int, exits map[int]bool) (Child, error) {
	b := &s.g.Blocks[cur]
	if b.Term.Kind != TermBranch && b.Term.Kind != TermBranchConditional {
		return Child{}, errf(diag.TrMergeOnBadTerminator, b.Label, "loop merge requires a branch terminator")
	}

	merge := s.g.Index(b.Merge.MergeBlock)
	cont := s.g.Index(b.Merge.ContinueTarget)
	node := &LoopNode{Header: cur, Merge: merge, ContinueTarget: cont}

	bodyExits := cloneExits(exits, merge, cont)
	var bodyReached []int
	switch b.Term.Kind {
	case TermBranch:
		t := s.g.Index(b.Term.Target)
		if bodyExits[t] {
			bodyReached = []int{t}
		} else {
			var err error
			node.Body, bodyReached, err = s.region(t, bodyExits)
			if err != nil {
				return Child{}, err
			}
		}
	case TermBranchConditional:
		t := s.g.Index(b.Term.TrueTarget)
		f := s.g.Index(b.Term.FalseTarget)
		start := -1
		switch {
		case bodyExits[t] && bodyExits[f]:
			bodyReached = []int{t, f}
		case bodyExits[t]:
			start = f
			bodyReached = []int{t}
		case bodyExits[f]:
			start = t
			bodyReached = []int{f}
		default:
			return Child{}, errf(diag.TrConditionalNeedsMerge, b.Label,
				"loop header conditional must exit to the merge or continue target on one side")
		}
		if start != -1 {
			body, reached, err := s.region(start, bodyExits)
			if err != nil {
				return Child{}, err
			}
			node.Body = body
			bodyReached = append(bodyReached, reached...)
		}
	}

	// The continue region is parsed separately; branching back to the
	// loop header terminates it instead of recursing forever.
	if cont != cur && reachedContains(bodyReached, cont) {
		contExits := cloneExits(exits, merge, cur)
		contChildren, _, err := s.region(cont, contExits)
		if err != nil {
			return Child{}, err
		}
		node.Continue = contChildren
	}

	return Child{Kind: ChildLoop, Block: cur, Loop: node}, nil
}

func reachedContains(reached []int, b int) bool {
	for _, r := range reached {
		if r == b {
			return true
		}
	}
	return false
}

func (s *structurer) selection(cur int, exits map[int]bool) (Child, error) {
	b := &s.g.Blocks[cur]
	if b.Term.Kind != TermBranchConditional {
		return Child{}, errf(diag.TrMergeOnBadTerminator, b.Label, "selection merge requires a conditional branch or switch terminator")
	}

	merge := s.g.Index(b.Merge.MergeBlock)
	node := &SelectionNode{Header: cur, Merge: merge}
	inner := cloneExits(exits, merge)

	t := s.g.Index(b.Term.TrueTarget)
	if !inner[t] {
		children, _, err := s.region(t, inner)
		if err != nil {
			return Child{}, err
		}
		node.True = children
	}
	f := s.g.Index(b.Term.FalseTarget)
	if !inner[f] {
		children, _, err := s.region(f, inner)
		if err != nil {
			return Child{}, err
		}
		node.False = children
	}
	return Child{Kind: ChildSelection, Block: cur, Selection: node}, nil
}

func (s *structurer) swtch(cur int, exits map[int]bool) (Child, error) {
	b := &s.g.Blocks[cur]
	merge := s.g.Index(b.Merge.MergeBlock)
	node := &SwitchNode{Header: cur, Merge: merge}

	// Distinct arms, default first. A case whose target equals the next
	// case's target is an empty fallthrough and is skipped entirely; a
	// target already claimed by an earlier arm is folded into it.
	var arms []CaseNode
	claimed := map[int]int{}
	add := func(c CaseNode) {
		// An arm that jumps straight to the merge has no body at all.
		if c.Target == merge {
			return
		}
		if _, ok := claimed[c.Target]; ok {
			return
		}
		claimed[c.Target] = len(arms)
		arms = append(arms, c)
	}
	add(CaseNode{IsDefault: true, Target: s.g.Index(b.Term.Default)})
	for i, c := range b.Term.Cases {
		if i+1 < len(b.Term.Cases) && c.Target == b.Term.Cases[i+1].Target {
			continue
		}
		add(CaseNode{Value: c.Value, Target: s.g.Index(c.Target)})
	}

	inner := cloneExits(exits, merge)
	for i := range arms {
		inner[arms[i].Target] = true
	}

	emitted := make([]bool, len(arms))
	for i := range arms {
		if emitted[i] {
			continue
		}
		at := i
		for {
			a := arms[at]
			emitted[at] = true

			bodyExits := cloneExits(inner)
			delete(bodyExits, a.Target)
			body, reached, err := s.region(a.Target, bodyExits)
			if err != nil {
				return Child{}, err
			}
			a.Body = body

			next := -1
			for _, r := range reached {
				if j, ok := claimed[r]; ok {
					next = j
					break
				}
			}
			if next == -1 {
				node.Cases = append(node.Cases, a)
				break
			}
			if emitted[next] {
				return Child{}, errf(diag.TrSwitchCaseLoop, b.Label, "switch cases fall through in a cycle")
			}
			a.FallsThrough = true
			node.Cases = append(node.Cases, a)
			at = next
		}
	}

	return Child{Kind: ChildSwitch, Block: cur, Switch: node}, nil
}
