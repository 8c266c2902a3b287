package ir

import "crux/internal/types"

// RefKind discriminates what storage class a Ref names. Beyond the core
// set of Frame/Arg/Ret/Global/Const/Reg/ExtSym/None, crux adds RefFunc: a
// reference to a function defined in the same Program, used only as the
// callee operand of `call`. Without it nothing in the builder surface
// could deterministically produce a direct call_jmp when the callee is a
// native IR function known at lowering time — every other Ref kind
// denotes a runtime-resolved storage slot, not a statically-known callee.
// See DESIGN.md for the full resolution.
type RefKind uint8

const (
	RefNone RefKind = iota
	RefFrame
	RefArg
	RefRet
	RefGlobal
	RefConst
	RefReg
	RefExtSym
	RefFunc
)

func (k RefKind) String() string {
	switch k {
	case RefNone:
		return "none"
	case RefFrame:
		return "frame"
	case RefArg:
		return "arg"
	case RefRet:
		return "ret"
	case RefGlobal:
		return "global"
	case RefConst:
		return "const"
	case RefReg:
		return "reg"
	case RefExtSym:
		return "extsym"
	case RefFunc:
		return "func"
	default:
		return "invalid"
	}
}

// NumRegisters is the fixed count of scratch pseudo-registers (§4.5).
const NumRegisters = 6

// Ref names a storage location from which the interpreter will read or
// write (§3.4): `*(type*)((*(u8**)(base+offset))[post_offset])` when
// Indirect, otherwise `*(type*)(base+offset+post_offset)`.
type Ref struct {
	Kind       RefKind
	Index      int // meaning depends on Kind: local/arg/global/const/reg/so-extern/function index
	Offset     uint64
	PostOffset uint64
	Type       *types.Type
	Indirect   bool
}

// Field derives a Ref to a tuple/aggregate member of r, applying fieldOffset
// before any existing indirection (or after it, via PostOffset, if r is
// already indirect) and retyping to t. This is how the builder expresses
// "the i-th field of local variable n" without a dedicated IR opcode: the
// Ref's own offset arithmetic carries it.
func (r Ref) Field(fieldOffset uint64, t *types.Type) Ref {
	out := r
	if r.Indirect {
		out.PostOffset += fieldOffset
	} else {
		out.Offset += fieldOffset
	}
	out.Type = t
	return out
}

// Deref derives a Ref that reads through the pointer r currently denotes,
// retyping the result to t. Only valid when r is not already indirect —
// the Ref model supports exactly one level of indirection per §3.4.
func (r Ref) Deref(t *types.Type) Ref {
	if r.Indirect {
		panic("ir: Ref is already indirect; at most one level of indirection is representable")
	}
	out := r
	out.Indirect = true
	out.Type = t
	return out
}
