// Package ir implements the language-agnostic intermediate representation
// (§3.3) and the stateful builder the front end uses to emit it (§4.2).
// IrProgram's flat vectors (functions, blocks, instructions) are
// append-only and index-addressed — never deleted, never moved — so the
// whole structure stays serializable and safe to hold across lowering, per
// §4.3.
package ir

import (
	"sync"
	"unsafe"

	"github.com/google/uuid"

	"crux/internal/arena"
	"crux/internal/types"
	"crux/internal/value"
)

// Function owns a name, a procedure Type, its block order, its local
// variable types, and (after lowering) a cached, opaque bytecode-function
// pointer. The cache is `any` rather than a concrete *bytecode.BcFunction
// to keep package ir from importing package bytecode — bytecode lowering
// is a consumer of ir, not the reverse.
type Function struct {
	Name   string
	Type   *types.Type // Procedure
	Blocks []int       // indices into Program.Blocks, in emission order

	Locals     []*types.Type
	localsOnce sync.Once
	localsLay  []types.Elem // tuple layout over Locals, computed on first lowering
	frameSize  uint64
	frameAlign uint64

	mu      sync.Mutex
	lowered any // set by bytecode.Lower; read back by bytecode.Lower for idempotence
}

// FrameLayout lazily computes and caches the tuple layout over the
// function's locals, used by bytecode lowering (§4.4 step 1) to translate
// Frame references into byte offsets. It is safe to call concurrently:
// the layout is computed once and is idempotent regardless of how many
// goroutines ask for it.
func (f *Function) FrameLayout(in *types.Interner) ([]types.Elem, uint64, uint64) {
	f.localsOnce.Do(func() {
		tup := in.GetTuple(f.Locals)
		f.localsLay = tup.Elems()
		f.frameSize = tup.Size()
		f.frameAlign = tup.Align()
	})
	return f.localsLay, f.frameSize, f.frameAlign
}

// Lowered returns the cached bytecode-function value and whether it was present.
func (f *Function) Lowered() (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lowered, f.lowered != nil
}

// SetLowered caches v as the function's lowered bytecode, first-writer-wins.
func (f *Function) SetLowered(v any) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lowered == nil {
		f.lowered = v
	}
	return f.lowered
}

// Block owns a name and its ordered instruction indices.
type Block struct {
	Name   string
	Instrs []int // indices into Program.Instructions
}

// ExternSym is an external-symbol record: a name resolved, lazily, from a
// declared shared object.
type ExternSym struct {
	Name string
	SOID int
	Type *types.Type
}

// Const is an interned constant: a (data, Type) pair whose bytes live in
// the Program's arena, written once by the front end at MakeConst time.
type Const struct {
	Data unsafe.Pointer
	Type *types.Type
}

// Value returns the constant as a value.Value.
func (c Const) Value() value.Value { return value.Value{Data: c.Data, Type: c.Type} }

// Program owns every function, block, and instruction of one compilation
// unit, plus its globals, constants, shared-object names, and externs
// (§3.3). Everything is append-only.
type Program struct {
	ID uuid.UUID

	Interner *types.Interner
	Arena    *arena.Arena

	Functions    *arena.Sequence[*Function]
	Blocks       *arena.Sequence[*Block]
	Instructions *arena.Sequence[*Instruction]

	Globals []*types.Type // index = global id
	Consts  []Const       // index = const id
	SOs     []string      // index = so_id
	Externs []ExternSym   // index = ext_sym id

	mu          sync.Mutex
	globalAddr  []unsafe.Pointer // lazily materialized, parallel to Globals
	globalsOnce []sync.Once

	lowerMu sync.Mutex // program-wide mutex exposed through LowerLock/LowerUnlock
}

// NewProgram creates an empty Program with its own arena and a fresh UUID,
// using the process-wide type interner unless in is non-nil.
func NewProgram(in *types.Interner) *Program {
	if in == nil {
		in = types.Default()
	}
	return &Program{
		ID:           uuid.New(),
		Interner:     in,
		Arena:        arena.New(),
		Functions:    arena.NewSequence[*Function](),
		Blocks:       arena.NewSequence[*Block](),
		Instructions: arena.NewSequence[*Instruction](),
	}
}

// Destroy frees the program's arena as a unit (§3.5).
func (p *Program) Destroy() { p.Arena.Free() }

// LowerLock and LowerUnlock expose a program-wide mutex to callers that
// want to serialize their own work on the Program. Package bytecode does
// not take it: its lowering cache is guarded by bytecode.Program's own
// mutex and each Function's lowered slot by the Function's mutex.
func (p *Program) LowerLock()   { p.lowerMu.Lock() }
func (p *Program) LowerUnlock() { p.lowerMu.Unlock() }

// GlobalAddr returns the materialized address of global id, allocating and
// zero-initializing it from the program arena on first use (§4.4 step 3:
// globals are zeroed on first materialization).
func (p *Program) GlobalAddr(id int) unsafe.Pointer {
	p.mu.Lock()
	if p.globalAddr == nil {
		p.globalAddr = make([]unsafe.Pointer, len(p.Globals))
		p.globalsOnce = make([]sync.Once, len(p.Globals))
	}
	once := &p.globalsOnce[id]
	p.mu.Unlock()

	once.Do(func() {
		t := p.Globals[id]
		addr := p.Arena.Alloc(int(t.Size()), int(t.Align()))
		p.mu.Lock()
		p.globalAddr[id] = addr
		p.mu.Unlock()
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.globalAddr[id]
}
