package bytecode

import "crux/internal/types"

// BcFunction is a lowered function: concrete frame layout plus a flat,
// index-addressed instruction stream with jump and call targets already
// resolved to instruction/function indices (§4.4).
type BcFunction struct {
	Name string
	Type *types.Type // Procedure

	FrameSize  uint64
	FrameAlign uint64

	Instrs []BcInstr
}
