// Package cfg reconstructs structured control flow from a flat,
// label-addressed instruction stream: it builds the block-level control
// flow graph, computes dominance, and synthesizes a nested structure
// tree (loops, selections, switches) that drives emission of structured
// IR. The package is agnostic to the binary wire format that produced
// the stream; callers hand it one (label, optional merge, terminator)
// triple per basic block.
package cfg

// LabelID addresses one basic block in the source stream.
type LabelID uint32

// MergeKind discriminates merge declarations.
type MergeKind uint8

const (
	// MergeLoop declares a loop region: the block reconverges at
	// MergeBlock and iterates through ContinueTarget.
	MergeLoop MergeKind = iota
	// MergeSelection declares an if/switch region reconverging at
	// MergeBlock.
	MergeSelection
)

// Merge is the payload of a merge declaration preceding a terminator.
type Merge struct {
	Kind           MergeKind
	MergeBlock     LabelID
	ContinueTarget LabelID // MergeLoop only
}

// TermKind discriminates block terminators.
type TermKind uint8

const (
	// TermBranch jumps unconditionally to Target.
	TermBranch TermKind = iota
	// TermBranchConditional jumps to TrueTarget or FalseTarget.
	TermBranchConditional
	// TermSwitch jumps to the case matching a selector, else Default.
	TermSwitch
	// TermKill terminates the invocation.
	TermKill
	// TermReturn returns without a value.
	TermReturn
	// TermReturnValue returns one value.
	TermReturnValue
	// TermUnreachable marks a block that is never executed.
	TermUnreachable
)

// SwitchCase is one (selector value, target) pair.
type SwitchCase struct {
	Value  uint64
	Target LabelID
}

// Terminator is the mandatory final instruction of a basic block. Only
// the fields of the matching Kind are meaningful.
type Terminator struct {
	Kind TermKind

	Target      LabelID // TermBranch
	TrueTarget  LabelID // TermBranchConditional
	FalseTarget LabelID // TermBranchConditional
	Default     LabelID // TermSwitch
	Cases       []SwitchCase
}

// Targets returns the outgoing labels in their fixed visit order:
// conditional true then false, switch default then cases as listed.
// Duplicates are preserved; the graph builder dedupes edges.
func (t *Terminator) Targets() []LabelID {
	switch t.Kind {
	case TermBranch:
		return []LabelID{t.Target}
	case TermBranchConditional:
		return []LabelID{t.TrueTarget, t.FalseTarget}
	case TermSwitch:
		targets := make([]LabelID, 0, 1+len(t.Cases))
		targets = append(targets, t.Default)
		for _, c := range t.Cases {
			targets = append(targets, c.Target)
		}
		return targets
	default:
		return nil
	}
}

// BlockInput is one basic block of the source stream.
type BlockInput struct {
	Label LabelID
	Merge *Merge
	Term  Terminator
}
