package ir

// Opcode is the IR's type-uniform instruction set (§6.3). Specialization
// into typed bytecode variants happens only at lowering time; at the IR
// level every arithmetic opcode works over any scalar operand type.
type Opcode uint8

const (
	Nop Opcode = iota
	Ret
	Jmp
	Jmpz
	Jmpnz
	Enter
	Leave
	Call
	Mov
	Lea
	Neg
	Compl
	Not
	Add
	Sub
	Mul
	Div
	Mod
	Bitand
	Bitor
	Xor
	Lsh
	Rsh
	And
	Or
	Eq
	Ne
	Ge
	Gt
	Le
	Lt
	Cast
)

var opcodeNames = [...]string{
	Nop: "nop", Ret: "ret", Jmp: "jmp", Jmpz: "jmpz", Jmpnz: "jmpnz",
	Enter: "enter", Leave: "leave", Call: "call", Mov: "mov", Lea: "lea",
	Neg: "neg", Compl: "compl", Not: "not", Add: "add", Sub: "sub",
	Mul: "mul", Div: "div", Mod: "mod", Bitand: "bitand", Bitor: "bitor",
	Xor: "xor", Lsh: "lsh", Rsh: "rsh", And: "and", Or: "or", Eq: "eq",
	Ne: "ne", Ge: "ge", Gt: "gt", Le: "le", Lt: "lt", Cast: "cast",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "unknown"
}

// IsTerminator reports whether op ends a block's control flow, per the
// builder invariant that every reachable path through a finished function
// ends in one of these.
func (op Opcode) IsTerminator() bool {
	switch op {
	case Ret, Jmp, Jmpz, Jmpnz:
		return true
	default:
		return false
	}
}
