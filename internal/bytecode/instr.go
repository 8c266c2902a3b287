package bytecode

import "crux/internal/ir"

// BcInstr is one lowered instruction: a specialized opcode, up to three
// resolved operand references, a jump target (meaningful only for
// jmp/jmpz/jmpnz, indexing BcFunction.Instrs), and a call target (the
// index of a known callee BcFunction when the call lowered to a direct
// call_jmp; -1 for an indirect call through Operands[1]).
type BcInstr struct {
	Op       BcOp
	Operands [3]BcRef

	JumpTarget int // instruction index, valid for jmp/jmpz/jmpnz only
	CallTarget int // BcProgram.Functions index, or -1 for indirect call

	Debug ir.DebugInfo
}
