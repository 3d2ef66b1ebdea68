package ir

import (
	"fmt"
)

// Opcode identifies a simple (fixed-arity, non-structural) instruction.
// The opcode table drives parsing, printing, and arity checks; adding
// an instruction kind is one table row.
type Opcode uint8

const (
	// OpConst materializes a constant literal.
	OpConst Opcode = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpNeg
	OpFNeg
	OpNot
	OpCmpEq
	OpCmpNe
	OpCmpLt
	OpCmpLe
	OpCmpGt
	OpCmpGe
	OpSelect
	OpLoad
	OpStore

	numOpcodes
)

// OpcodeInfo describes one row of the opcode table.
type OpcodeInfo struct {
	Name    string
	Args    int
	Results int
}

var opcodeTable = [numOpcodes]OpcodeInfo{
	OpConst:  {"const", 0, 1},
	OpAdd:    {"add", 2, 1},
	OpSub:    {"sub", 2, 1},
	OpMul:    {"mul", 2, 1},
	OpDiv:    {"div", 2, 1},
	OpRem:    {"rem", 2, 1},
	OpFAdd:   {"fadd", 2, 1},
	OpFSub:   {"fsub", 2, 1},
	OpFMul:   {"fmul", 2, 1},
	OpFDiv:   {"fdiv", 2, 1},
	OpAnd:    {"and", 2, 1},
	OpOr:     {"or", 2, 1},
	OpXor:    {"xor", 2, 1},
	OpShl:    {"shl", 2, 1},
	OpShr:    {"shr", 2, 1},
	OpNeg:    {"neg", 1, 1},
	OpFNeg:   {"fneg", 1, 1},
	OpNot:    {"not", 1, 1},
	OpCmpEq:  {"cmp_eq", 2, 1},
	OpCmpNe:  {"cmp_ne", 2, 1},
	OpCmpLt:  {"cmp_lt", 2, 1},
	OpCmpLe:  {"cmp_le", 2, 1},
	OpCmpGt:  {"cmp_gt", 2, 1},
	OpCmpGe:  {"cmp_ge", 2, 1},
	OpSelect: {"select", 3, 1},
	OpLoad:   {"load", 1, 1},
	OpStore:  {"store", 2, 0},
}

// Info returns the table row for op.
func (op Opcode) Info() OpcodeInfo {
	return opcodeTable[op]
}

func (op Opcode) String() string {
	return opcodeTable[op].Name
}

// OpcodeByName resolves a textual mnemonic. Used by the parser.
func OpcodeByName(name string) (Opcode, bool) {
	for op := Opcode(0); op < numOpcodes; op++ {
		if opcodeTable[op].Name == name {
			return op, true
		}
	}
	return 0, false
}

// InstrKind discriminates the Instruction union.
type InstrKind uint8

const (
	// InstrSimple is a fixed-arity instruction from the opcode table.
	InstrSimple InstrKind = iota
	// InstrBlock enters a nested structured block.
	InstrBlock
	// InstrLoop enters a structured loop.
	InstrLoop
	// InstrContinue jumps to the next iteration of a target loop.
	InstrContinue
	// InstrBreak exits a target block, supplying its results.
	InstrBreak
	// InstrBranch breaks one of two ways on a boolean condition.
	InstrBranch
)

// Instruction is one IR instruction. Every kind satisfies the same
// input/output contract (Results, Arguments), which is what lets the
// printer, validator, and structuring pass stay generic.
type Instruction struct {
	Kind InstrKind

	Simple   SimpleInstr
	Block    *Block
	Loop     *Loop
	Continue ContinueLoop
	Break    BreakBlock
	Branch   Branch

	// Location is optional debug info.
	Location *Location
}

// SimpleInstr is a fixed-arity instruction. Const is set for OpConst
// only.
type SimpleInstr struct {
	Op      Opcode
	Const   *Const
	Args    []ValueUse
	Results []*ValueDef
}

// BreakBlock exits a block (a non-owning back-reference), supplying one
// argument per block result.
type BreakBlock struct {
	Block *Block
	Args  []ValueUse
}

// ContinueLoop jumps to the next iteration of a loop (a non-owning
// back-reference), supplying one argument per loop header parameter.
type ContinueLoop struct {
	Loop *Loop
	Args []ValueUse
}

// Branch breaks to one of two blocks depending on a boolean condition.
type Branch struct {
	Cond  ValueUse
	True  BreakBlock
	False BreakBlock
}

// CodeIO is the uniform input/output contract of every instruction-like
// entity: the SSA definitions it produces (or uninhabited when it never
// falls through) and the uses it consumes.
type CodeIO interface {
	Results() Inhabitable[[]*ValueDef]
	Arguments() []ValueUse
}

// Results implements CodeIO.
func (in *Instruction) Results() Inhabitable[[]*ValueDef] {
	switch in.Kind {
	case InstrSimple:
		return Inhabited(in.Simple.Results)
	case InstrBlock:
		return in.Block.Results
	case InstrLoop:
		return in.Loop.Body.Results
	case InstrContinue, InstrBreak, InstrBranch:
		return Uninhabited[[]*ValueDef]()
	default:
		panic(fmt.Sprintf("ir: unknown instruction kind %d", in.Kind))
	}
}

// Arguments implements CodeIO.
func (in *Instruction) Arguments() []ValueUse {
	switch in.Kind {
	case InstrSimple:
		return in.Simple.Args
	case InstrBlock:
		return in.Block.EntryArgs
	case InstrLoop:
		return in.Loop.Arguments
	case InstrContinue:
		return in.Continue.Args
	case InstrBreak:
		return in.Break.Args
	case InstrBranch:
		args := make([]ValueUse, 0, 1+len(in.Branch.True.Args)+len(in.Branch.False.Args))
		args = append(args, in.Branch.Cond)
		args = append(args, in.Branch.True.Args...)
		args = append(args, in.Branch.False.Args...)
		return args
	default:
		panic(fmt.Sprintf("ir: unknown instruction kind %d", in.Kind))
	}
}

// NewSimple builds a table-driven instruction, checking arity against
// the opcode table.
func NewSimple(op Opcode, args []ValueUse, results []*ValueDef) Instruction {
	info := op.Info()
	if len(args) != info.Args {
		panic(fmt.Sprintf("ir: %s takes %d arguments, got %d", info.Name, info.Args, len(args)))
	}
	if len(results) != info.Results {
		panic(fmt.Sprintf("ir: %s produces %d results, got %d", info.Name, info.Results, len(results)))
	}
	return Instruction{Kind: InstrSimple, Simple: SimpleInstr{Op: op, Args: args, Results: results}}
}

// NewConst builds an OpConst instruction defining result to the literal
// k, and resolves the result value to that constant.
func NewConst(k *Const, result *ValueDef) Instruction {
	result.Value.SetConst(k)
	return Instruction{Kind: InstrSimple, Simple: SimpleInstr{Op: OpConst, Const: k, Results: []*ValueDef{result}}}
}
