package bytecode

import (
	"testing"
	"unsafe"

	"crux/internal/ir"
	"crux/internal/types"
)

type noExterns struct{}

func (noExterns) Resolve(so, name string, t *types.Type) (unsafe.Pointer, error) {
	panic("no externs declared in this test")
}

// stubExtern resolves every symbol to a fixed, non-nil address.
type stubExtern struct{ addr unsafe.Pointer }

func (s stubExtern) Resolve(so, name string, t *types.Type) (unsafe.Pointer, error) {
	return s.addr, nil
}

func buildAdd(t *testing.T) (*ir.Program, int) {
	t.Helper()
	in := types.NewInterner()
	p := ir.NewProgram(in)
	b := ir.NewBuilder(p)

	i64 := in.GetNumeric(types.I64)
	argsT := in.GetTuple([]*types.Type{i64, i64})
	fnT := in.GetProcedure(argsT, i64, types.Native, false, false)

	fnIdx := b.CreateFunction("add", fnT)
	entry := b.CreateLabel("entry")
	b.StartBlock(entry)
	ret := b.RetRef(i64)
	b.Add(ret, b.ArgRef(0, i64), b.ArgRef(1, i64))
	b.Ret(ret)
	if err := b.FinishFunction(); err != nil {
		t.Fatalf("FinishFunction: %v", err)
	}
	return p, fnIdx
}

func TestLowerAddSpecializesToI64(t *testing.T) {
	p, fnIdx := buildAdd(t)
	bp := NewProgram(p, noExterns{})

	bf, err := bp.Lower(fnIdx)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(bf.Instrs) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(bf.Instrs))
	}
	addI := bf.Instrs[0]
	if addI.Op.Base() != ir.Add {
		t.Fatalf("expected base Add, got %v", addI.Op.Base())
	}
	nk, ok := addI.Op.NumKind()
	if !ok || nk != types.I64 {
		t.Fatalf("expected specialized i64, got %v ok=%v", nk, ok)
	}
	if addI.Operands[1].Kind != BcArg || addI.Operands[2].Kind != BcArg {
		t.Fatalf("expected arg operands, got %v %v", addI.Operands[1].Kind, addI.Operands[2].Kind)
	}
}

func TestLowerIsCachedOnFunction(t *testing.T) {
	p, fnIdx := buildAdd(t)
	bp := NewProgram(p, noExterns{})

	bf1, err := bp.Lower(fnIdx)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	bf2, err := bp.Lower(fnIdx)
	if err != nil {
		t.Fatalf("Lower (second): %v", err)
	}
	if bf1 != bf2 {
		t.Fatal("expected the same *BcFunction pointer from a cached re-lowering")
	}
}

func TestLowerRecursiveCallResolvesCallTarget(t *testing.T) {
	in := types.NewInterner()
	p := ir.NewProgram(in)
	b := ir.NewBuilder(p)

	i64 := in.GetNumeric(types.I64)
	argsT := in.GetTuple([]*types.Type{i64})
	fnT := in.GetProcedure(argsT, i64, types.Native, false, false)

	factIdx := b.CreateFunction("fact", fnT)
	entry := b.CreateLabel("entry")
	b.StartBlock(entry)
	selfRef := b.DeclareFunc(factIdx)
	ret := b.RetRef(i64)
	b.Call(ret, selfRef, b.ArgRef(0, i64))
	b.Ret(ret)
	if err := b.FinishFunction(); err != nil {
		t.Fatalf("FinishFunction: %v", err)
	}

	bp := NewProgram(p, noExterns{})
	bf, err := bp.Lower(factIdx)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	// Instrs[0] is the Mov that Builder.Call emits to marshal the argument
	// into the call's argument tuple; the Call itself follows it.
	callI := bf.Instrs[1]
	if callI.Op.Base() != ir.Call {
		t.Fatalf("expected Call, got %v", callI.Op.Base())
	}
	if callI.CallTarget != 0 {
		t.Fatalf("expected self-recursive call to resolve to index 0, got %d", callI.CallTarget)
	}
}

// TestLowerComparesSpecializeToU64ForPointers asserts that eq/ne over
// Pointer-typed operands specialize as u64, not as the NumKind zero value
// I8 a Pointer Type's unset num field would otherwise alias onto.
func TestLowerComparesSpecializeToU64ForPointers(t *testing.T) {
	in := types.NewInterner()
	p := ir.NewProgram(in)
	b := ir.NewBuilder(p)

	i64 := in.GetNumeric(types.I64)
	u8 := in.GetNumeric(types.U8)
	ptrI64 := in.GetPointer(i64)
	argsT := in.GetTuple([]*types.Type{ptrI64, ptrI64})
	fnT := in.GetProcedure(argsT, u8, types.Native, false, false)

	fnIdx := b.CreateFunction("ptrEq", fnT)
	entry := b.CreateLabel("entry")
	b.StartBlock(entry)
	ret := b.RetRef(u8)
	b.Eq(ret, b.ArgRef(0, ptrI64), b.ArgRef(1, ptrI64))
	b.Ret(ret)
	if err := b.FinishFunction(); err != nil {
		t.Fatalf("FinishFunction: %v", err)
	}

	bp := NewProgram(p, noExterns{})
	bf, err := bp.Lower(fnIdx)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	eqI := bf.Instrs[0]
	if eqI.Op.Base() != ir.Eq {
		t.Fatalf("expected base Eq, got %v", eqI.Op.Base())
	}
	nk, ok := eqI.Op.NumKind()
	if !ok || nk != types.U64 {
		t.Fatalf("expected Pointer operands to specialize as u64, got %v ok=%v", nk, ok)
	}
}

// TestLowerExtSymResolvesToRodata asserts that a resolved extern symbol
// lowers to (Rodata, &slot), matching every other resolved-at-lowering
// constant reference.
func TestLowerExtSymResolvesToRodata(t *testing.T) {
	in := types.NewInterner()
	p := ir.NewProgram(in)
	b := ir.NewBuilder(p)

	i64 := in.GetNumeric(types.I64)
	argsT := in.GetTuple([]*types.Type{i64})
	fnT := in.GetProcedure(argsT, i64, types.Cdecl, false, false)

	so := b.DeclareSharedObject("libm")
	extRef := b.DeclareExternProc("sqrt", so, fnT)

	callerArgsT := in.GetTuple(nil)
	callerT := in.GetProcedure(callerArgsT, i64, types.Native, false, false)
	fnIdx := b.CreateFunction("useSqrt", callerT)
	entry := b.CreateLabel("entry")
	b.StartBlock(entry)
	dst := b.MakeLocalVar(i64)
	b.Mov(dst, extRef)
	ret := b.RetRef(i64)
	b.Mov(ret, dst)
	b.Ret(ret)
	if err := b.FinishFunction(); err != nil {
		t.Fatalf("FinishFunction: %v", err)
	}

	var cell unsafe.Pointer
	bp := NewProgram(p, stubExtern{addr: unsafe.Pointer(&cell)})
	bf, err := bp.Lower(fnIdx)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	movI := bf.Instrs[0]
	if movI.Operands[1].Kind != BcRodata {
		t.Fatalf("expected ExtSym to lower to BcRodata, got %v", movI.Operands[1].Kind)
	}
}
