package bytecode

import (
	"fmt"

	"crux/internal/ir"
	"crux/internal/types"
)

// BcOp is a lowered, specialized opcode: the IR's type-uniform base
// operation paired with the concrete NumKind the operands were
// specialized to at lowering time (§4.4's "opcode specialization by
// bit-width/numeric-kind"). Packing (base, kind) into one value rather
// than enumerating every combination as a named constant keeps the
// opcode set small while still recording the width lowering chose. The
// interpreter dispatches on Base(); only its arithmetic and comparison
// handlers read NumKind() (to choose the float or integer path), and the
// other handlers read their operands' static types directly.
type BcOp uint16

// numKindNone marks a BcOp whose base opcode carries no numeric
// specialization (jmp, enter, leave, call, ...).
const numKindNone = types.NumKind(0xff)

// MakeBcOp packs a base opcode and its specialized numeric kind.
func MakeBcOp(op ir.Opcode, nk types.NumKind) BcOp {
	return BcOp(uint16(op)<<8 | uint16(nk))
}

// MakeBcOpUnspecialized packs a base opcode that carries no numeric kind.
func MakeBcOpUnspecialized(op ir.Opcode) BcOp {
	return BcOp(uint16(op)<<8 | uint16(numKindNone))
}

// Base returns the opcode's unspecialized IR operation.
func (o BcOp) Base() ir.Opcode { return ir.Opcode(o >> 8) }

// NumKind returns the opcode's specialized numeric kind, or false if the
// base opcode carries none.
func (o BcOp) NumKind() (types.NumKind, bool) {
	nk := types.NumKind(o & 0xff)
	if nk == numKindNone {
		return 0, false
	}
	return nk, true
}

func (o BcOp) String() string {
	if nk, ok := o.NumKind(); ok {
		return fmt.Sprintf("%s_%s", o.Base(), nk)
	}
	return o.Base().String()
}

// specializes reports whether base varies behavior by operand width — used
// by the lowering pass to decide whether to look at the instruction's
// static operand type when choosing a BcOp.
func specializes(op ir.Opcode) bool {
	switch op {
	case ir.Mov, ir.Jmpz, ir.Jmpnz, ir.Lea, ir.Neg, ir.Compl, ir.Not,
		ir.Add, ir.Sub, ir.Mul, ir.Div, ir.Mod,
		ir.Bitand, ir.Bitor, ir.Xor, ir.Lsh, ir.Rsh,
		ir.And, ir.Or, ir.Eq, ir.Ne, ir.Ge, ir.Gt, ir.Le, ir.Lt, ir.Cast:
		return true
	default:
		return false
	}
}
