package ir

// BlockHeader declares the SSA arguments a block is invoked with,
// analogous to phi-node parameters.
type BlockHeader struct {
	Args []*ValueDef
}

// Results implements CodeIO: a header "produces" its argument defs.
func (h *BlockHeader) Results() Inhabitable[[]*ValueDef] {
	return Inhabited(h.Args)
}

// Arguments implements CodeIO.
func (h *BlockHeader) Arguments() []ValueUse {
	return nil
}

// Block is a structured basic block: an ordered instruction sequence,
// header parameters, and result definitions produced on normal
// fall-through (uninhabited if the block never falls through). A block
// is owned by the function or loop containing it; BreakBlock
// instructions reference it weakly.
type Block struct {
	Name      string
	Header    BlockHeader
	EntryArgs []ValueUse // one per header parameter
	Body      []Instruction
	Results   Inhabitable[[]*ValueDef]
}

// NewBlock builds a block whose header parameters are bound from
// entryArgs on entry. Panics if the arity disagrees: the caller built
// an inconsistent structure.
func NewBlock(name string, header []*ValueDef, entryArgs []ValueUse, results Inhabitable[[]*ValueDef]) *Block {
	if len(header) != len(entryArgs) {
		panic("ir: block entry arguments must match header parameters")
	}
	return &Block{
		Name:      name,
		Header:    BlockHeader{Args: header},
		EntryArgs: entryArgs,
		Results:   results,
	}
}

// Append adds an instruction to the block body.
func (b *Block) Append(in Instruction) {
	b.Body = append(b.Body, in)
}

// ResultTypes returns the block's result types, or uninhabited.
func (b *Block) ResultTypes() Inhabitable[[]*Type] {
	defs, ok := b.Results.Get()
	if !ok {
		return Uninhabited[[]*Type]()
	}
	types := make([]*Type, len(defs))
	for i, d := range defs {
		types[i] = d.Value.Type
	}
	return Inhabited(types)
}

// LoopHeader declares a loop's invocation parameters: the SSA values
// that differ between iterations.
type LoopHeader struct {
	Args []*ValueDef
}

// Results implements CodeIO.
func (h *LoopHeader) Results() Inhabitable[[]*ValueDef] {
	return Inhabited(h.Args)
}

// Arguments implements CodeIO.
func (h *LoopHeader) Arguments() []ValueUse {
	return nil
}

// Loop owns exactly one block (its body) plus the loop-entry arguments.
// ContinueLoop instructions reference the loop weakly and supply the
// next iteration's parameter values; breaking the body block exits the
// loop.
type Loop struct {
	Name      string
	Arguments []ValueUse // initial parameter values, one per header arg
	Header    LoopHeader
	Body      *Block
}

// NewLoop builds a loop. Panics when the initial arguments do not match
// the header parameters.
func NewLoop(name string, args []ValueUse, header []*ValueDef, body *Block) *Loop {
	if len(args) != len(header) {
		panic("ir: loop arguments must match header parameters")
	}
	return &Loop{
		Name:      name,
		Arguments: args,
		Header:    LoopHeader{Args: header},
		Body:      body,
	}
}
