// Package vm implements the bytecode interpreter: a dispatch loop over
// lowered instructions, a bump-allocated call-frame stack, and the 8-entry
// base-pointer table that turns each BcRef into a concrete address (§4.5).
package vm

import (
	"unsafe"

	"crux/internal/bytecode"
	"crux/internal/ir"
	"crux/internal/types"
	"crux/internal/value"
)

// regFileBytes is the byte size of one call frame's scratch register file.
const regFileBytes = ir.NumRegisters * types.WordSize

// baseCount mirrors the number of bytecode.BcKind values; bases[None],
// bases[Rodata], bases[Data], and bases[Instr] are always nil because
// lowering already bakes absolute addresses into those refs' Offset —
// reading through a nil base plus an absolute-address offset is exactly
// how those four kinds resolve (§4.5).
const baseCount = 8

type bases [baseCount]unsafe.Pointer

// ExternCaller invokes a resolved native code address with marshaled
// argument and return Values — the trampoline that backs an indirect
// call (one whose CallTarget lowering could not resolve to a same-program
// function). internal/ffi supplies the concrete implementation; vm
// depends only on this interface to avoid importing ffi (both packages
// share the value and types packages, and ffi does not import vm).
type ExternCaller interface {
	Call(fnType *types.Type, fnAddr unsafe.Pointer, args value.Value, ret value.Value) error
}

// Context is one interpreter call chain: its own call stack and control
// stack, re-entrant across nested Invoke calls, with no shared mutable
// state across goroutines. Create one per top-level invocation (e.g. one
// per incoming request, REPL line, or CLI run) and never share it across
// goroutines.
type Context struct {
	prog   *bytecode.Program
	extern ExternCaller
	stack  *callStack
	frames []frame
}

type frame struct {
	bf         *bytecode.BcFunction
	bases      bases
	stackMark  int
	enterMarks []int // stack-allocator markers pushed by ir.Enter, popped by ir.Leave
}

// NewContext creates an interpreter context over prog, dispatching
// indirect calls through extern.
func NewContext(prog *bytecode.Program, extern ExternCaller) *Context {
	return &Context{prog: prog, extern: extern, stack: newCallStack()}
}

// Invoke calls the function at fnIdx (lowering it on demand) with args
// bytewise-copied into its argument tuple, writing the result into ret.
// Invoke is re-entrant: handlers for the indirect-call path may call back
// into Invoke (or the caller may nest calls) using the same Context.
func (c *Context) Invoke(fnIdx int, ret value.Value, args []value.Value) error {
	bf, err := c.prog.Lower(fnIdx)
	if err != nil {
		return err
	}
	argsType := bf.Type.Args()
	argsMark := c.stack.mark()
	argAddr := c.stack.push(int(argsType.Size()), int(argsType.Align()))
	argsVal := value.Value{Data: argAddr, Type: argsType}
	for i, a := range args {
		argsVal.Field(i).CopyFrom(a)
	}

	err = c.run(bf, argAddr, ret.Data)
	c.stack.popTo(argsMark)
	return err
}

// run executes bf's instructions to completion, with Arg base argAddr and
// Ret base retAddr, returning any Runtime error raised along the way.
func (c *Context) run(bf *bytecode.BcFunction, argAddr, retAddr unsafe.Pointer) error {
	var fr frame
	fr.bf = bf
	fr.stackMark = c.stack.mark()
	fr.bases[bytecode.BcArg] = argAddr
	fr.bases[bytecode.BcRet] = retAddr
	fr.bases[bytecode.BcFrame] = c.stack.push(int(bf.FrameSize), int(bf.FrameAlign))
	fr.bases[bytecode.BcReg] = c.stack.push(regFileBytes, types.WordSize)

	c.frames = append(c.frames, fr)
	defer func() {
		c.frames = c.frames[:len(c.frames)-1]
		c.stack.popTo(fr.stackMark)
	}()

	return c.dispatch(&c.frames[len(c.frames)-1])
}
