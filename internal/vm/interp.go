package vm

import (
	"unsafe"

	"crux/internal/bytecode"
	"crux/internal/crerr"
	"crux/internal/ir"
	"crux/internal/value"
)

// resolve turns a lowered reference into the Value it names, following one
// level of indirection when the reference requires it (§3.4, §4.5).
func resolve(fr *frame, r bytecode.BcRef) value.Value {
	addr := unsafe.Add(fr.bases[r.Kind], uintptr(r.Offset))
	if r.Indirect {
		p := *(*unsafe.Pointer)(addr)
		addr = unsafe.Add(p, uintptr(r.PostOffset))
	}
	return value.Value{Data: addr, Type: r.Type}
}

// dispatch runs fr's instruction stream to completion.
func (c *Context) dispatch(fr *frame) error {
	instrs := fr.bf.Instrs
	pc := 0
	for pc < len(instrs) {
		in := &instrs[pc]
		next := pc + 1

		switch in.Op.Base() {
		case ir.Nop:
			// no-op

		case ir.Ret:
			src := resolve(fr, in.Operands[0])
			dst := value.Value{Data: fr.bases[bytecode.BcRet], Type: src.Type}
			dst.CopyFrom(src)
			return nil

		case ir.Jmp:
			next = in.JumpTarget

		case ir.Jmpz:
			cond := resolve(fr, in.Operands[0])
			if !cond.Bool() {
				next = in.JumpTarget
			}

		case ir.Jmpnz:
			cond := resolve(fr, in.Operands[0])
			if cond.Bool() {
				next = in.JumpTarget
			}

		case ir.Enter:
			fr.enterMarks = append(fr.enterMarks, c.stack.mark())

		case ir.Leave:
			if len(fr.enterMarks) == 0 {
				return crerr.New(crerr.Runtime, "leave without matching enter")
			}
			last := len(fr.enterMarks) - 1
			c.stack.popTo(fr.enterMarks[last])
			fr.enterMarks = fr.enterMarks[:last]

		case ir.Mov:
			dst, src := resolve(fr, in.Operands[0]), resolve(fr, in.Operands[1])
			dst.CopyFrom(src)

		case ir.Lea:
			dst, src := resolve(fr, in.Operands[0]), resolve(fr, in.Operands[1])
			dst.SetAddr(src.Data)

		case ir.Neg:
			dst, src := resolve(fr, in.Operands[0]), resolve(fr, in.Operands[1])
			if src.Type.NumKind().IsFloat() {
				dst.SetFromFloat64(-src.AsFloat64())
			} else {
				dst.SetFromInt64(-src.AsInt64())
			}

		case ir.Compl:
			dst, src := resolve(fr, in.Operands[0]), resolve(fr, in.Operands[1])
			dst.SetFromInt64(^src.AsInt64())

		case ir.Not:
			dst, src := resolve(fr, in.Operands[0]), resolve(fr, in.Operands[1])
			dst.SetBool(!src.Bool())

		case ir.Add, ir.Sub, ir.Mul, ir.Div, ir.Mod,
			ir.Bitand, ir.Bitor, ir.Xor, ir.Lsh, ir.Rsh:
			if err := c.execArith(fr, in); err != nil {
				return err
			}

		case ir.And:
			dst, l, r := resolve(fr, in.Operands[0]), resolve(fr, in.Operands[1]), resolve(fr, in.Operands[2])
			dst.SetBool(l.Bool() && r.Bool())

		case ir.Or:
			dst, l, r := resolve(fr, in.Operands[0]), resolve(fr, in.Operands[1]), resolve(fr, in.Operands[2])
			dst.SetBool(l.Bool() || r.Bool())

		case ir.Eq, ir.Ne, ir.Ge, ir.Gt, ir.Le, ir.Lt:
			execCompare(fr, in)

		case ir.Cast:
			if err := execCast(fr, in); err != nil {
				return err
			}

		case ir.Call:
			if err := c.execCall(fr, in); err != nil {
				return err
			}

		default:
			return crerr.New(crerr.Runtime, "unimplemented opcode "+in.Op.Base().String())
		}

		pc = next
	}
	return nil
}

func (c *Context) execArith(fr *frame, in *bytecode.BcInstr) error {
	dst := resolve(fr, in.Operands[0])
	l := resolve(fr, in.Operands[1])
	r := resolve(fr, in.Operands[2])

	nk, _ := in.Op.NumKind()
	if nk.IsFloat() {
		a, b := l.AsFloat64(), r.AsFloat64()
		var out float64
		switch in.Op.Base() {
		case ir.Add:
			out = a + b
		case ir.Sub:
			out = a - b
		case ir.Mul:
			out = a * b
		case ir.Div:
			out = a / b
		default:
			return crerr.New(crerr.Runtime, "opcode "+in.Op.Base().String()+" is not defined over floats")
		}
		dst.SetFromFloat64(out)
		return nil
	}

	a, b := l.AsWord(), r.AsWord()
	var out int64
	switch in.Op.Base() {
	case ir.Add:
		out = a + b
	case ir.Sub:
		out = a - b
	case ir.Mul:
		out = a * b
	case ir.Div:
		if b == 0 {
			return crerr.New(crerr.Runtime, "integer division by zero")
		}
		out = a / b
	case ir.Mod:
		if b == 0 {
			return crerr.New(crerr.Runtime, "integer division by zero")
		}
		out = a % b
	case ir.Bitand:
		out = a & b
	case ir.Bitor:
		out = a | b
	case ir.Xor:
		out = a ^ b
	case ir.Lsh:
		out = a << uint64(b)
	case ir.Rsh:
		out = a >> uint64(b)
	}
	dst.SetFromInt64(out)
	return nil
}

func execCompare(fr *frame, in *bytecode.BcInstr) {
	dst := resolve(fr, in.Operands[0])
	l := resolve(fr, in.Operands[1])
	r := resolve(fr, in.Operands[2])

	nk, _ := in.Op.NumKind()
	if nk.IsFloat() {
		if l.IsNaN() || r.IsNaN() {
			// IEEE-754: every ordered comparison involving NaN is false,
			// except != which is true.
			dst.SetBool(in.Op.Base() == ir.Ne)
			return
		}
		a, b := l.AsFloat64(), r.AsFloat64()
		dst.SetBool(compareOrdered(in.Op.Base(), a < b, a == b, a > b))
		return
	}

	a, b := l.AsWord(), r.AsWord()
	dst.SetBool(compareOrdered(in.Op.Base(), a < b, a == b, a > b))
}

func compareOrdered(op ir.Opcode, lt, eq, gt bool) bool {
	switch op {
	case ir.Eq:
		return eq
	case ir.Ne:
		return !eq
	case ir.Ge:
		return gt || eq
	case ir.Gt:
		return gt
	case ir.Le:
		return lt || eq
	case ir.Lt:
		return lt
	default:
		return false
	}
}

func execCast(fr *frame, in *bytecode.BcInstr) error {
	dst := resolve(fr, in.Operands[0])
	src := resolve(fr, in.Operands[1])

	if dst.Type.NumKind().IsFloat() {
		var f float64
		if src.Type.NumKind().IsFloat() {
			f = src.AsFloat64()
		} else {
			f = float64(src.AsInt64())
		}
		dst.SetFromFloat64(f)
		return nil
	}

	var n int64
	if src.Type.NumKind().IsFloat() {
		n = int64(src.AsFloat64())
	} else {
		n = src.AsInt64()
	}
	dst.SetFromInt64(n)
	return nil
}

func (c *Context) execCall(fr *frame, in *bytecode.BcInstr) error {
	dst := resolve(fr, in.Operands[0])
	argsVal := resolve(fr, in.Operands[2])

	if in.CallTarget >= 0 {
		callee := c.prog.Function(in.CallTarget)
		return c.run(callee, argsVal.Data, dst.Data)
	}

	callee := resolve(fr, in.Operands[1])
	fnAddr := callee.Addr()
	if fnAddr == nil {
		return crerr.New(crerr.Runtime, "indirect call through nil function pointer")
	}
	if c.extern == nil {
		return crerr.New(crerr.Runtime, "no extern caller configured for an indirect call")
	}
	return c.extern.Call(callee.Type, fnAddr, argsVal, dst)
}
