package ir

import (
	"testing"

	"crux/internal/types"
)

func TestBuildAddFunction(t *testing.T) {
	in := types.NewInterner()
	p := NewProgram(in)
	b := NewBuilder(p)

	i64 := in.GetNumeric(types.I64)
	argsT := in.GetTuple([]*types.Type{i64, i64})
	fnT := in.GetProcedure(argsT, i64, types.Native, false, false)

	fnIdx := b.CreateFunction("add", fnT)
	entry := b.CreateLabel("entry")
	b.StartBlock(entry)

	a := b.ArgRef(0, i64)
	c := b.ArgRef(1, i64)
	ret := b.RetRef(i64)
	b.Add(ret, a, c)
	b.Ret(ret)

	if err := b.FinishFunction(); err != nil {
		t.Fatalf("FinishFunction: %v", err)
	}

	fn := p.Functions.At(fnIdx)
	if fn.Name != "add" {
		t.Fatalf("expected name add, got %q", fn.Name)
	}
	if len(fn.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(fn.Blocks))
	}
	blk := p.Blocks.At(fn.Blocks[0])
	if len(blk.Instrs) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(blk.Instrs))
	}
	addInstr := p.Instructions.At(blk.Instrs[0])
	if addInstr.Op != Add {
		t.Fatalf("expected Add, got %v", addInstr.Op)
	}
	retInstr := p.Instructions.At(blk.Instrs[1])
	if retInstr.Op != Ret {
		t.Fatalf("expected Ret, got %v", retInstr.Op)
	}
}

func TestUnbalancedEnterLeaveIsConstructionError(t *testing.T) {
	in := types.NewInterner()
	p := NewProgram(in)
	b := NewBuilder(p)

	voidT := in.GetVoid()
	argsT := in.GetTuple(nil)
	fnT := in.GetProcedure(argsT, voidT, types.Native, false, false)

	b.CreateFunction("bad", fnT)
	entry := b.CreateLabel("entry")
	b.StartBlock(entry)
	b.Enter()
	b.Ret(Ref{Kind: RefNone, Type: voidT})

	if err := b.FinishFunction(); err == nil {
		t.Fatal("expected a Construction error for unbalanced enter/leave")
	}
}

func TestCallReferencesCalleeFunc(t *testing.T) {
	in := types.NewInterner()
	p := NewProgram(in)
	b := NewBuilder(p)

	i64 := in.GetNumeric(types.I64)
	argsT := in.GetTuple([]*types.Type{i64})
	fnT := in.GetProcedure(argsT, i64, types.Native, false, false)

	calleeIdx := b.CreateFunction("callee", fnT)
	calleeEntry := b.CreateLabel("entry")
	b.StartBlock(calleeEntry)
	b.Ret(b.ArgRef(0, i64))
	if err := b.FinishFunction(); err != nil {
		t.Fatalf("FinishFunction(callee): %v", err)
	}

	b.CreateFunction("caller", fnT)
	callerEntry := b.CreateLabel("entry")
	b.StartBlock(callerEntry)

	calleeRef := b.DeclareFunc(calleeIdx)
	if calleeRef.Kind != RefFunc {
		t.Fatalf("expected RefFunc, got %v", calleeRef.Kind)
	}
	ret := b.RetRef(i64)
	b.Call(ret, calleeRef, b.ArgRef(0, i64))
	b.Ret(ret)
	if err := b.FinishFunction(); err != nil {
		t.Fatalf("FinishFunction(caller): %v", err)
	}
}

func TestPromoteVariadicArgWidensNarrowKinds(t *testing.T) {
	in := types.NewInterner()
	p := NewProgram(in)
	b := NewBuilder(p)

	voidT := in.GetVoid()
	argsT := in.GetTuple(nil)
	fnT := in.GetProcedure(argsT, voidT, types.Native, false, false)
	b.CreateFunction("promote", fnT)
	b.StartBlock(b.CreateLabel("entry"))

	u8Ref := b.MakeLocalVar(in.GetNumeric(types.U8))
	widenedInt := b.PromoteVariadicArg(u8Ref)
	if widenedInt.Type.NumKind() != types.I32 {
		t.Fatalf("expected u8 to promote to i32, got %v", widenedInt.Type.NumKind())
	}

	f32Ref := b.MakeLocalVar(in.GetNumeric(types.F32))
	widenedFloat := b.PromoteVariadicArg(f32Ref)
	if widenedFloat.Type.NumKind() != types.F64 {
		t.Fatalf("expected f32 to promote to f64, got %v", widenedFloat.Type.NumKind())
	}

	i64Ref := b.MakeLocalVar(in.GetNumeric(types.I64))
	if unchanged := b.PromoteVariadicArg(i64Ref); unchanged.Type.NumKind() != types.I64 {
		t.Fatalf("expected i64 to pass through unchanged, got %v", unchanged.Type.NumKind())
	}

	b.Ret(Ref{Kind: RefNone, Type: voidT})
	if err := b.FinishFunction(); err != nil {
		t.Fatalf("FinishFunction: %v", err)
	}
}
