package bytecode

import (
	"fmt"
	"sync"
	"unsafe"

	"crux/internal/crerr"
	"crux/internal/ir"
	"crux/internal/types"
)

// ExternResolver resolves a declared shared-object symbol to a concrete
// address. Lowering depends on this interface rather than on package
// dlshim directly, so bytecode never imports the dynamic-loader package —
// whoever creates the Program (cmd/crux's commands, wiring a dlshim.Host,
// or a test) supplies one.
type ExternResolver interface {
	Resolve(so string, name string, t *types.Type) (unsafe.Pointer, error)
}

// Program lowers an ir.Program's functions on demand, caching each
// function's BcFunction both on the ir.Function itself (so repeat Lower
// calls from anywhere are free) and in a program-wide, call-target-index
// order used to resolve direct call_jmp instructions (§4.4's "transitive
// lowering with per-function caching").
type Program struct {
	IR  *ir.Program
	Ext ExternResolver

	mu    sync.Mutex
	index map[*ir.Function]int
	order []*BcFunction
}

// NewProgram creates a lowering session over irp, resolving extern symbols
// through ext.
func NewProgram(irp *ir.Program, ext ExternResolver) *Program {
	return &Program{IR: irp, Ext: ext, index: make(map[*ir.Function]int)}
}

// Lower lowers (or returns the cached lowering of) the function at fnIdx,
// transitively lowering every function it calls directly.
func (p *Program) Lower(fnIdx int) (*BcFunction, error) {
	fn := p.IR.Functions.At(fnIdx)
	idx, err := p.ensure(fn)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order[idx], nil
}

// Function returns the lowered function at call-target index idx, once
// Lower has reached it.
func (p *Program) Function(idx int) *BcFunction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order[idx]
}

// ensure returns fn's stable call-target index, lowering it on first
// reservation. Reserving the index before recursing into doLower lets
// self- and mutually-recursive calls resolve to a valid CallTarget
// without looping forever.
func (p *Program) ensure(fn *ir.Function) (int, error) {
	if cached, ok := fn.Lowered(); ok {
		bf := cached.(*BcFunction)
		p.mu.Lock()
		idx, known := p.index[fn]
		if !known {
			idx = len(p.order)
			p.order = append(p.order, bf)
			p.index[fn] = idx
		}
		p.mu.Unlock()
		return idx, nil
	}

	p.mu.Lock()
	if idx, ok := p.index[fn]; ok {
		p.mu.Unlock()
		return idx, nil
	}
	idx := len(p.order)
	p.order = append(p.order, nil)
	p.index[fn] = idx
	p.mu.Unlock()

	bf, err := p.doLower(fn)
	if err != nil {
		return 0, err
	}

	fn.SetLowered(bf)
	p.mu.Lock()
	p.order[idx] = bf
	p.mu.Unlock()
	return idx, nil
}

func (p *Program) doLower(fn *ir.Function) (*BcFunction, error) {
	frameLayout, frameSize, frameAlign := fn.FrameLayout(p.IR.Interner)

	var argLayout []types.Elem
	if args := fn.Type.Args(); args != nil {
		argLayout = args.Elems()
	}

	blockStart := make(map[int]int, len(fn.Blocks))
	total := 0
	for _, bIdx := range fn.Blocks {
		blk := p.IR.Blocks.At(bIdx)
		blockStart[bIdx] = total
		total += len(blk.Instrs)
	}

	out := make([]BcInstr, 0, total)
	for _, bIdx := range fn.Blocks {
		blk := p.IR.Blocks.At(bIdx)
		for _, iIdx := range blk.Instrs {
			in := p.IR.Instructions.At(iIdx)
			lowered, err := p.lowerInstr(fn, frameLayout, argLayout, blockStart, in)
			if err != nil {
				return nil, err
			}
			out = append(out, lowered)
		}
	}

	return &BcFunction{
		Name:       fn.Name,
		Type:       fn.Type,
		FrameSize:  frameSize,
		FrameAlign: frameAlign,
		Instrs:     out,
	}, nil
}

func (p *Program) lowerInstr(fn *ir.Function, frameLayout, argLayout []types.Elem, blockStart map[int]int, in *ir.Instruction) (BcInstr, error) {
	var out BcInstr
	out.Debug = in.Debug
	out.CallTarget = -1
	out.JumpTarget = -1

	nk, hasNK := numKindOf(in)
	if specializes(in.Op) && hasNK {
		out.Op = MakeBcOp(in.Op, nk)
	} else {
		out.Op = MakeBcOpUnspecialized(in.Op)
	}

	for i, a := range in.Args {
		switch a.Kind {
		case ir.ArgRef:
			r, err := p.resolveRef(fn, frameLayout, argLayout, a.Ref)
			if err != nil {
				return BcInstr{}, err
			}
			out.Operands[i] = r
		case ir.ArgBlock:
			start, ok := blockStart[a.Block]
			if !ok {
				return BcInstr{}, crerr.New(crerr.Lowering, fmt.Sprintf("jump to unknown block %d", a.Block))
			}
			out.JumpTarget = start
		case ir.ArgNumKind:
			// carried only to select specialization above; no BcRef to produce.
		}
	}

	if in.Op == ir.Call {
		calleeArg := in.Args[1]
		if calleeArg.Kind == ir.ArgRef && calleeArg.Ref.Kind == ir.RefFunc {
			callee := p.IR.Functions.At(calleeArg.Ref.Index)
			idx, err := p.ensure(callee)
			if err != nil {
				return BcInstr{}, err
			}
			out.CallTarget = idx
		}
	}

	return out, nil
}

// numKindOf extracts the numeric kind an instruction specializes on: the
// explicit NumKindArg for Cast; for a comparison, the static type of the
// first compared operand (its destination is always a one-byte result);
// otherwise the static type of its first Ref operand (every other
// specializing opcode is uniform across its operands by construction).
// A Pointer or Typeref operand is scalar but carries no
// NumKind of its own, so it specializes as u64 — pointer operands are
// treated as u64 throughout arithmetic, comparison, mov, and the branch
// opcodes.
func numKindOf(in *ir.Instruction) (types.NumKind, bool) {
	if in.Op == ir.Cast {
		for _, a := range in.Args {
			if a.Kind == ir.ArgNumKind {
				return a.NumKind, true
			}
		}
		return 0, false
	}
	args := in.Args[:]
	switch in.Op {
	case ir.Eq, ir.Ne, ir.Ge, ir.Gt, ir.Le, ir.Lt:
		args = in.Args[1:]
	}
	for _, a := range args {
		if a.Kind != ir.ArgRef || a.Ref.Type == nil || !a.Ref.Type.IsScalar() {
			continue
		}
		if a.Ref.Type.Class() == types.ClassNumeric {
			return a.Ref.Type.NumKind(), true
		}
		return types.U64, true
	}
	return 0, false
}

func (p *Program) resolveRef(fn *ir.Function, frameLayout, argLayout []types.Elem, r ir.Ref) (BcRef, error) {
	out := BcRef{Type: r.Type, PostOffset: r.PostOffset, Indirect: r.Indirect}

	switch r.Kind {
	case ir.RefNone:
		out.Kind = BcNone

	case ir.RefFrame:
		out.Kind = BcFrame
		out.Offset = frameLayout[r.Index].Offset + r.Offset

	case ir.RefArg:
		out.Kind = BcArg
		out.Offset = argLayout[r.Index].Offset + r.Offset

	case ir.RefRet:
		out.Kind = BcRet
		out.Offset = r.Offset

	case ir.RefReg:
		out.Kind = BcReg
		out.Offset = uint64(r.Index)*types.WordSize + r.Offset

	case ir.RefGlobal:
		addr := p.IR.GlobalAddr(r.Index)
		out.Kind = BcData
		out.Offset = uint64(uintptr(addr)) + r.Offset

	case ir.RefConst:
		c := p.IR.Consts[r.Index]
		out.Kind = BcRodata
		out.Offset = uint64(uintptr(c.Data)) + r.Offset

	case ir.RefExtSym:
		ext := p.IR.Externs[r.Index]
		so := p.IR.SOs[ext.SOID]
		addr, err := p.Ext.Resolve(so, ext.Name, ext.Type)
		if err != nil {
			return BcRef{}, crerr.Wrap(crerr.Lowering, err, fmt.Sprintf("resolving extern symbol %q", ext.Name))
		}
		out.Kind = BcRodata
		if ext.Type.Class() == types.ClassProcedure {
			// A resolved procedure symbol is a bare code address, not a
			// storage location; wrap it in a one-word cell so it reads
			// back through Value.Addr() the same way a Reg or Pointer
			// holding a callee address does.
			cell := p.IR.Arena.Alloc(types.WordSize, types.WordSize)
			*(*unsafe.Pointer)(cell) = addr
			out.Offset = uint64(uintptr(cell)) + r.Offset
		} else {
			out.Offset = uint64(uintptr(addr)) + r.Offset
		}

	case ir.RefFunc:
		out.Kind = BcInstrKind
		out.Offset = uint64(r.Index)

	default:
		return BcRef{}, crerr.New(crerr.Lowering, fmt.Sprintf("unresolvable ref kind %v", r.Kind))
	}

	return out, nil
}
