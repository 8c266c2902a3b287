// Package bytecode lowers an ir.Program's functions into flat,
// byte-offset-addressed instructions the interpreter can dispatch without
// re-deriving frame layout or re-resolving symbols on every step (§4.4).
// Lowering never changes the ir.Program's functions, blocks, or
// instructions. It does write to the program in three ways: it caches its
// result per ir.Function, so re-lowering the same function is a no-op; it
// materializes referenced globals; and it allocates one-word cells for
// resolved extern procedures in the program arena.
package bytecode

import "crux/internal/types"

// BcKind discriminates what base pointer a BcRef is offset from, replacing
// ir.Ref's symbolic Kind with one the interpreter can use as a direct
// array index into its base-pointer table (§4.5).
type BcKind uint8

const (
	BcNone BcKind = iota
	BcFrame
	BcArg
	BcRet
	BcReg
	BcRodata
	BcData
	BcInstrKind
)

func (k BcKind) String() string {
	switch k {
	case BcNone:
		return "none"
	case BcFrame:
		return "frame"
	case BcArg:
		return "arg"
	case BcRet:
		return "ret"
	case BcReg:
		return "reg"
	case BcRodata:
		return "rodata"
	case BcData:
		return "data"
	case BcInstrKind:
		return "instr"
	default:
		return "invalid"
	}
}

// BcRef is a fully-resolved storage reference: resolution is
// `*(type*)((*(u8**)(base+offset))[post_offset])` when Indirect, else
// `*(type*)(base+offset+post_offset)`, where base is the interpreter's
// Kind-indexed base pointer (§3.4, §4.5).
type BcRef struct {
	Kind       BcKind
	Offset     uint64
	PostOffset uint64
	Type       *types.Type
	Indirect   bool
}
