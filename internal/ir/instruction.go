package ir

import "crux/internal/types"

// ArgKind discriminates what an Instruction operand slot carries (§3.3):
// nothing, a storage Ref, a jump target block id, or a numeric-kind
// discriminator consumed during cast specialization.
type ArgKind uint8

const (
	ArgNone ArgKind = iota
	ArgRef
	ArgBlock
	ArgNumKind
)

// Arg is one operand slot of an Instruction.
type Arg struct {
	Kind    ArgKind
	Ref     Ref
	Block   int
	NumKind types.NumKind
}

// RefArg wraps a Ref as an instruction operand.
func RefArg(r Ref) Arg { return Arg{Kind: ArgRef, Ref: r} }

// BlockArg wraps a jump-target block index as an instruction operand.
func BlockArg(blockIdx int) Arg { return Arg{Kind: ArgBlock, Block: blockIdx} }

// NumKindArg wraps a numeric-kind discriminator as an instruction operand,
// used only by cast.
func NumKindArg(k types.NumKind) Arg { return Arg{Kind: ArgNumKind, NumKind: k} }

// DebugInfo is the optional source-position metadata an Instruction may
// carry through to its lowered BcInstr, grounded on a bytecode chunk
// writer's debug-info side table. Used for diagnostics only; it changes no
// execution behavior.
type DebugInfo struct {
	File   string
	Line   int
	Column int
}

// Instruction is (opcode, arg[0..2]) per §3.3.
type Instruction struct {
	Op    Opcode
	Args  [3]Arg
	Debug DebugInfo
}
