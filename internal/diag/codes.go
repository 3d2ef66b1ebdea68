package diag

import (
	"fmt"
)

// Code identifies a diagnostic condition. Ranges: 1000s lexical, 2000s
// syntactic, 3000s translation (CFG/structure), 4000s IR validation.
type Code uint16

const (
	UnknownCode Code = 0

	// Lexical
	LexInfo               Code = 1000
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexBadNumber          Code = 1003
	LexMissingIntSuffix   Code = 1004
	LexBadEscape          Code = 1005

	// Syntactic
	SynInfo               Code = 2000
	SynUnexpectedToken    Code = 2001
	SynExpectIdentifier   Code = 2002
	SynExpectType         Code = 2003
	SynExpectConst        Code = 2004
	SynDuplicateName      Code = 2005
	SynUndefinedName      Code = 2006
	SynUnknownInstruction Code = 2007
	SynArityMismatch      Code = 2008
	SynTypeMismatch       Code = 2009
	SynUndefinedLabel     Code = 2010
	SynMissingEntryPoint  Code = 2011
	SynBadHint            Code = 2012
	SynBadTargetProperty  Code = 2013

	// Translation (CFG reconstruction and structuring)
	TrInfo                  Code = 3000
	TrDuplicateLabel        Code = 3001
	TrUndefinedLabel        Code = 3002
	TrMergeOnBadTerminator  Code = 3003
	TrSwitchCaseLoop        Code = 3004
	TrUnreachableMerge      Code = 3005
	TrMissingTerminator     Code = 3006
	TrEntryHasPredecessors  Code = 3007
	TrUnsupportedInstr      Code = 3008
	TrContinueOutsideLoop   Code = 3009
	TrConditionalNeedsMerge Code = 3010
	TrIrreducibleFlow       Code = 3011

	// IR validation
	ValInfo       Code = 4000
	ValBadModule  Code = 4001
	ValBadFunc    Code = 4002
	ValBadInstr   Code = 4003
	ValBadTypeUse Code = 4004
)

func (c Code) String() string {
	return fmt.Sprintf("SIR%04d", uint16(c))
}
