package ir

import (
	"fmt"

	"crux/internal/crerr"
	"crux/internal/types"
	"crux/internal/value"
)

// Builder is the stateful front-end surface for emitting a Program,
// grounded on a bytecode-chunk append-as-you-go writer style: one current
// function, one current block, and a running enter/leave balance checked
// at FinishFunction time rather than left for the interpreter to discover
// as stack corruption.
type Builder struct {
	Program *Program

	fn       *Function
	fnIdx    int
	block    *Block
	blockIdx int

	enterDepth int
}

// NewBuilder creates a Builder over a fresh Program using the default
// interner, or over p if p is non-nil.
func NewBuilder(p *Program) *Builder {
	if p == nil {
		p = NewProgram(nil)
	}
	return &Builder{Program: p}
}

// CreateFunction declares a function of the given procedure type and
// begins emitting it; it becomes the Builder's current function, with no
// blocks and no current block until CreateLabel and StartBlock are called.
func (b *Builder) CreateFunction(name string, fnType *types.Type) int {
	if fnType.Class() != types.ClassProcedure {
		panic("ir: CreateFunction type must be Procedure")
	}
	fn := &Function{Name: name, Type: fnType}
	idx := b.Program.Functions.Append(fn)
	b.fn, b.fnIdx = fn, idx
	b.enterDepth = 0
	b.block, b.blockIdx = nil, -1
	return idx
}

// StartFunction resumes emission into a previously created, not-yet-finished function.
func (b *Builder) StartFunction(idx int) {
	b.fn = b.Program.Functions.At(idx)
	b.fnIdx = idx
}

// FinishFunction closes out the current function, returning a Construction
// error if any Enter was left without a matching Leave.
func (b *Builder) FinishFunction() error {
	if b.enterDepth != 0 {
		return crerr.New(crerr.Construction,
			fmt.Sprintf("function %q: unbalanced enter/leave (depth %d at finish)", b.fn.Name, b.enterDepth))
	}
	b.fn, b.block = nil, nil
	b.fnIdx, b.blockIdx = -1, -1
	return nil
}

// CreateLabel allocates a new, empty block belonging to the current
// function and appends it to the function's block order, without making
// it the current block.
func (b *Builder) CreateLabel(name string) int {
	blk := &Block{Name: name}
	idx := b.Program.Blocks.Append(blk)
	b.fn.Blocks = append(b.fn.Blocks, idx)
	return idx
}

// StartBlock makes blockIdx the current block that subsequent Gen calls append to.
func (b *Builder) StartBlock(blockIdx int) {
	b.block = b.Program.Blocks.At(blockIdx)
	b.blockIdx = blockIdx
}

// MakeLocalVar reserves a new local slot of type t in the current function,
// returning a Frame Ref naming it.
func (b *Builder) MakeLocalVar(t *types.Type) Ref {
	idx := len(b.fn.Locals)
	b.fn.Locals = append(b.fn.Locals, t)
	return Ref{Kind: RefFrame, Index: idx, Type: t}
}

// MakeGlobalVar reserves a new program-wide global of type t, returning a
// Global Ref naming it. Globals are zero-initialized lazily on first
// materialization (see Program.GlobalAddr).
func (b *Builder) MakeGlobalVar(t *types.Type) Ref {
	idx := len(b.Program.Globals)
	b.Program.Globals = append(b.Program.Globals, t)
	return Ref{Kind: RefGlobal, Index: idx, Type: t}
}

// MakeConst copies src's bytes into the program arena and registers it as
// a new constant, returning a Const Ref naming it.
func (b *Builder) MakeConst(src value.Value) Ref {
	data := b.Program.Arena.AllocBytes(src.Bytes())
	idx := len(b.Program.Consts)
	b.Program.Consts = append(b.Program.Consts, Const{Data: data, Type: src.Type})
	return Ref{Kind: RefConst, Index: idx, Type: src.Type}
}

// DeclareSharedObject registers a shared-object name (for the dlshim to
// open lazily) and returns its so_id, deduplicating by name.
func (b *Builder) DeclareSharedObject(name string) int {
	for i, s := range b.Program.SOs {
		if s == name {
			return i
		}
	}
	idx := len(b.Program.SOs)
	b.Program.SOs = append(b.Program.SOs, name)
	return idx
}

// DeclareExternProc declares an external procedure symbol resolved from
// shared object soID, returning an ExtSym Ref naming it.
func (b *Builder) DeclareExternProc(name string, soID int, procType *types.Type) Ref {
	return b.declareExtern(name, soID, procType)
}

// DeclareExternData declares an external data symbol resolved from shared
// object soID, returning an ExtSym Ref naming it.
func (b *Builder) DeclareExternData(name string, soID int, dataType *types.Type) Ref {
	return b.declareExtern(name, soID, dataType)
}

func (b *Builder) declareExtern(name string, soID int, t *types.Type) Ref {
	idx := len(b.Program.Externs)
	b.Program.Externs = append(b.Program.Externs, ExternSym{Name: name, SOID: soID, Type: t})
	return Ref{Kind: RefExtSym, Index: idx, Type: t}
}

// DeclareFunc returns a Ref naming a same-program function as a call
// target, resolved at lowering time to a direct call_jmp (§8; see RefFunc doc).
func (b *Builder) DeclareFunc(fnIdx int) Ref {
	fn := b.Program.Functions.At(fnIdx)
	return Ref{Kind: RefFunc, Index: fnIdx, Type: fn.Type}
}

// ArgRef names incoming argument i of the current function.
func (b *Builder) ArgRef(i int, t *types.Type) Ref {
	return Ref{Kind: RefArg, Index: i, Type: t}
}

// RetRef names the current function's return slot.
func (b *Builder) RetRef(t *types.Type) Ref {
	return Ref{Kind: RefRet, Type: t}
}

// RegRef names scratch register i (0..NumRegisters-1).
func (b *Builder) RegRef(i int, t *types.Type) Ref {
	if i < 0 || i >= NumRegisters {
		panic("ir: register index out of range")
	}
	return Ref{Kind: RefReg, Index: i, Type: t}
}

// Gen appends an instruction to the current block and returns its program-wide index.
func (b *Builder) Gen(op Opcode, args ...Arg) int {
	var in Instruction
	in.Op = op
	for i := 0; i < len(args) && i < 3; i++ {
		in.Args[i] = args[i]
	}
	idx := b.Program.Instructions.Append(&in)
	b.block.Instrs = append(b.block.Instrs, idx)
	return idx
}

// emitBin is the shared shape for every binary arithmetic/comparison opcode: dst = lhs OP rhs.
func (b *Builder) emitBin(op Opcode, dst, lhs, rhs Ref) int {
	return b.Gen(op, RefArg(dst), RefArg(lhs), RefArg(rhs))
}

func (b *Builder) Mov(dst, src Ref) int    { return b.Gen(Mov, RefArg(dst), RefArg(src)) }
func (b *Builder) Lea(dst, src Ref) int    { return b.Gen(Lea, RefArg(dst), RefArg(src)) }
func (b *Builder) Neg(dst, src Ref) int    { return b.Gen(Neg, RefArg(dst), RefArg(src)) }
func (b *Builder) Compl(dst, src Ref) int  { return b.Gen(Compl, RefArg(dst), RefArg(src)) }
func (b *Builder) Not(dst, src Ref) int    { return b.Gen(Not, RefArg(dst), RefArg(src)) }

func (b *Builder) Add(dst, l, r Ref) int    { return b.emitBin(Add, dst, l, r) }
func (b *Builder) Sub(dst, l, r Ref) int    { return b.emitBin(Sub, dst, l, r) }
func (b *Builder) Mul(dst, l, r Ref) int    { return b.emitBin(Mul, dst, l, r) }
func (b *Builder) Div(dst, l, r Ref) int    { return b.emitBin(Div, dst, l, r) }
func (b *Builder) Mod(dst, l, r Ref) int    { return b.emitBin(Mod, dst, l, r) }
func (b *Builder) Bitand(dst, l, r Ref) int { return b.emitBin(Bitand, dst, l, r) }
func (b *Builder) Bitor(dst, l, r Ref) int  { return b.emitBin(Bitor, dst, l, r) }
func (b *Builder) Xor(dst, l, r Ref) int    { return b.emitBin(Xor, dst, l, r) }
func (b *Builder) Lsh(dst, l, r Ref) int    { return b.emitBin(Lsh, dst, l, r) }
func (b *Builder) Rsh(dst, l, r Ref) int    { return b.emitBin(Rsh, dst, l, r) }
func (b *Builder) And(dst, l, r Ref) int    { return b.emitBin(And, dst, l, r) }
func (b *Builder) Or(dst, l, r Ref) int     { return b.emitBin(Or, dst, l, r) }
func (b *Builder) Eq(dst, l, r Ref) int     { return b.emitBin(Eq, dst, l, r) }
func (b *Builder) Ne(dst, l, r Ref) int     { return b.emitBin(Ne, dst, l, r) }
func (b *Builder) Ge(dst, l, r Ref) int     { return b.emitBin(Ge, dst, l, r) }
func (b *Builder) Gt(dst, l, r Ref) int     { return b.emitBin(Gt, dst, l, r) }
func (b *Builder) Le(dst, l, r Ref) int     { return b.emitBin(Le, dst, l, r) }
func (b *Builder) Lt(dst, l, r Ref) int     { return b.emitBin(Lt, dst, l, r) }

// Cast emits dst = (NumKind)src, recording the target numeric kind as the
// instruction's third argument slot for use during specialization (§4.4).
func (b *Builder) Cast(dst, src Ref, to types.NumKind) int {
	return b.Gen(Cast, RefArg(dst), RefArg(src), NumKindArg(to))
}

func (b *Builder) Ret(src Ref) int { return b.Gen(Ret, RefArg(src)) }

func (b *Builder) Jmp(target int) int { return b.Gen(Jmp, BlockArg(target)) }

func (b *Builder) Jmpz(cond Ref, target int) int {
	return b.Gen(Jmpz, RefArg(cond), BlockArg(target))
}

func (b *Builder) Jmpnz(cond Ref, target int) int {
	return b.Gen(Jmpnz, RefArg(cond), BlockArg(target))
}

// Enter opens a new block scope within the current function (at run time,
// a stack-allocator marker that Leave pops back to); every Enter must be matched by a
// Leave before FinishFunction, checked by the builder rather than left for
// the interpreter to discover as stack corruption (SPEC_FULL.md §4 supplement).
func (b *Builder) Enter() int {
	b.enterDepth++
	return b.Gen(Enter)
}

// Leave closes the innermost open Enter scope.
func (b *Builder) Leave() int {
	if b.enterDepth == 0 {
		panic("ir: Leave without matching Enter")
	}
	b.enterDepth--
	return b.Gen(Leave)
}

// PromoteVariadicArg widens a numeric argument the way the C ABI promotes
// varargs — f32 to f64, any integer narrower than i32 to i32 — by emitting
// a Cast into a fresh local and returning a Ref to it. §4.6 leaves variadic
// promotion to the caller rather than performing it silently inside Call;
// this is that caller-invoked helper, applied to each trailing argument of
// a variadic call site before passing it to Call.
func (b *Builder) PromoteVariadicArg(r Ref) Ref {
	if r.Type.Class() != types.ClassNumeric {
		return r
	}
	switch r.Type.NumKind() {
	case types.F32:
		widened := b.MakeLocalVar(b.Program.Interner.GetNumeric(types.F64))
		b.Cast(widened, r, types.F64)
		return widened
	case types.I8, types.I16, types.U8, types.U16:
		widened := b.MakeLocalVar(b.Program.Interner.GetNumeric(types.I32))
		b.Cast(widened, r, types.I32)
		return widened
	default:
		return r
	}
}

// Call emits a call through callee (an ExtSym, Func, or runtime-resolved
// Ref), writing the result to dst. args are marshaled into a synthesized
// Tuple-typed frame local first — the same layout algorithm that lays out
// locals and aggregates doubles as the calling convention's argument
// marshaling, so a call stays 3-ary (dst, callee, argsTuple) regardless of
// arity. Lowering decides between a direct call_jmp and an indirect call
// based on callee.Kind (§8).
func (b *Builder) Call(dst, callee Ref, args ...Ref) int {
	argTypes := make([]*types.Type, len(args))
	for i, a := range args {
		argTypes[i] = a.Type
	}
	tup := b.Program.Interner.GetTuple(argTypes)
	argsLocal := b.MakeLocalVar(tup)
	for i, a := range args {
		b.Mov(argsLocal.Field(tup.Elems()[i].Offset, a.Type), a)
	}
	return b.Gen(Call, RefArg(dst), RefArg(callee), RefArg(argsLocal))
}
