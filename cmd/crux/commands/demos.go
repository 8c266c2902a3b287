// Package commands implements cmd/crux's subcommands. Nothing upstream of
// this core defines a textual surface syntax (the core's scope is the
// typed IR, lowering, and interpreter, not a parser), so the CLI's "run"
// and "disasm" commands operate on a small built-in registry of demo
// programs assembled through the public ir.Builder API — the same
// programs exercised by internal/vm's end-to-end tests (§8's six worked
// scenarios) — rather than compiling source text from disk.
package commands

import (
	"crux/internal/dlshim"
	"crux/internal/ir"
	"crux/internal/types"
	"crux/internal/value"
)

// demo is one named, buildable program plus the function index to run.
type demo struct {
	name  string
	build func(in *types.Interner) (*ir.Program, int)
	host  func() *dlshim.Host
}

var demos = map[string]demo{
	"add":  {name: "add", build: buildAddDemo},
	"fact": {name: "fact", build: buildFactDemo},
	"abs":  {name: "abs", build: buildAbsDemo},
	"sqrt": {name: "sqrt", build: buildSqrtDemo, host: sqrtHost},
}

func sqrtHost() *dlshim.Host {
	h := dlshim.NewHost()
	h.RegisterModule("libm", dlshim.LibmModule())
	return h
}

// buildAddDemo builds fn add(a, b i64) i64 { return a + b } (§8 scenario 1).
func buildAddDemo(in *types.Interner) (*ir.Program, int) {
	p := ir.NewProgram(in)
	b := ir.NewBuilder(p)

	i64 := in.GetNumeric(types.I64)
	argsT := in.GetTuple([]*types.Type{i64, i64})
	fnT := in.GetProcedure(argsT, i64, types.Native, false, false)

	idx := b.CreateFunction("add", fnT)
	entry := b.CreateLabel("entry")
	b.StartBlock(entry)
	ret := b.RetRef(i64)
	b.Add(ret, b.ArgRef(0, i64), b.ArgRef(1, i64))
	b.Ret(ret)
	mustFinish(b)
	return p, idx
}

// buildFactDemo builds the recursive fn fact(n i64) i64 (§8 scenario 4):
//
//	if n <= 1 { return 1 }
//	return n * fact(n - 1)
func buildFactDemo(in *types.Interner) (*ir.Program, int) {
	p := ir.NewProgram(in)
	b := ir.NewBuilder(p)

	i64 := in.GetNumeric(types.I64)
	argsT := in.GetTuple([]*types.Type{i64})
	fnT := in.GetProcedure(argsT, i64, types.Native, false, false)

	idx := b.CreateFunction("fact", fnT)
	entry := b.CreateLabel("entry")
	baseCase := b.CreateLabel("base")
	recurse := b.CreateLabel("recurse")

	b.StartBlock(entry)
	n := b.ArgRef(0, i64)
	one := b.MakeConst(constI64(p, in, 1))
	cond := b.MakeLocalVar(in.GetNumeric(types.U8))
	b.Le(cond, n, one)
	b.Jmpnz(cond, baseCase)
	b.Jmp(recurse)

	b.StartBlock(baseCase)
	ret1 := b.RetRef(i64)
	b.Mov(ret1, one)
	b.Ret(ret1)

	b.StartBlock(recurse)
	self := b.DeclareFunc(idx)
	nMinus1 := b.MakeLocalVar(i64)
	b.Sub(nMinus1, n, one)
	sub := b.MakeLocalVar(i64)
	b.Call(sub, self, nMinus1)
	ret2 := b.RetRef(i64)
	b.Mul(ret2, n, sub)
	b.Ret(ret2)

	mustFinish(b)
	return p, idx
}

// buildAbsDemo builds fn abs(x i64) i64 (§8 scenario 3):
//
//	if x < 0 { return -x }
//	return x
func buildAbsDemo(in *types.Interner) (*ir.Program, int) {
	p := ir.NewProgram(in)
	b := ir.NewBuilder(p)

	i64 := in.GetNumeric(types.I64)
	argsT := in.GetTuple([]*types.Type{i64})
	fnT := in.GetProcedure(argsT, i64, types.Native, false, false)

	idx := b.CreateFunction("abs", fnT)
	entry := b.CreateLabel("entry")
	neg := b.CreateLabel("negative")
	pos := b.CreateLabel("positive")

	b.StartBlock(entry)
	x := b.ArgRef(0, i64)
	zero := b.MakeConst(constI64(p, in, 0))
	cond := b.MakeLocalVar(in.GetNumeric(types.U8))
	b.Lt(cond, x, zero)
	b.Jmpnz(cond, neg)
	b.Jmp(pos)

	b.StartBlock(neg)
	retN := b.RetRef(i64)
	b.Neg(retN, x)
	b.Ret(retN)

	b.StartBlock(pos)
	retP := b.RetRef(i64)
	b.Mov(retP, x)
	b.Ret(retP)

	mustFinish(b)
	return p, idx
}

// buildSqrtDemo builds fn callSqrt(x f64) f64 { return sqrt(x) } (§8
// scenario 2), declaring "sqrt" as an extern proc from shared object
// "libm" resolved through dlshim's libm host module.
func buildSqrtDemo(in *types.Interner) (*ir.Program, int) {
	p := ir.NewProgram(in)
	b := ir.NewBuilder(p)

	f64 := in.GetNumeric(types.F64)
	argsT := in.GetTuple([]*types.Type{f64})
	fnT := in.GetProcedure(argsT, f64, types.Native, false, false)
	sqrtT := in.GetProcedure(argsT, f64, types.Cdecl, false, false)

	so := b.DeclareSharedObject("libm")
	sqrtRef := b.DeclareExternProc("sqrt", so, sqrtT)

	idx := b.CreateFunction("callSqrt", fnT)
	entry := b.CreateLabel("entry")
	b.StartBlock(entry)
	ret := b.RetRef(f64)
	b.Call(ret, sqrtRef, b.ArgRef(0, f64))
	b.Ret(ret)
	mustFinish(b)
	return p, idx
}

func mustFinish(b *ir.Builder) {
	if err := b.FinishFunction(); err != nil {
		panic(err)
	}
}

func constI64(p *ir.Program, in *types.Interner, n int64) value.Value {
	t := in.GetNumeric(types.I64)
	v := value.Value{Data: p.Arena.Alloc(int(t.Size()), int(t.Align())), Type: t}
	v.SetInt64(n)
	return v
}
