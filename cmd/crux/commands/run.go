package commands

import (
	"fmt"
	"strconv"
	"unsafe"

	"github.com/pkg/errors"

	"crux/internal/bytecode"
	"crux/internal/ffi"
	"crux/internal/ir"
	"crux/internal/types"
	"crux/internal/value"
	"crux/internal/vm"
)

// rejectingResolver implements bytecode.ExternResolver for demos that
// declare no shared objects, so a missing host wiring fails loudly
// instead of dereferencing a nil interface.
type rejectingResolver struct{}

func (rejectingResolver) Resolve(so, name string, t *types.Type) (unsafe.Pointer, error) {
	return nil, errors.Errorf("no extern resolver configured; cannot resolve %s:%s", so, name)
}

// Run builds the named demo program, invokes its entry function with the
// given integer/float arguments, and prints the result.
func Run(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: crux run <demo> [args...]")
	}
	d, ok := demos[args[0]]
	if !ok {
		return errors.Errorf("unknown demo %q", args[0])
	}

	in := types.NewInterner()
	prog, fnIdx := d.build(in)
	fn := prog.Functions.At(fnIdx)

	var ext bytecode.ExternResolver = rejectingResolver{}
	if d.host != nil {
		ext = d.host()
	}

	bp := bytecode.NewProgram(prog, ext)
	ctx := vm.NewContext(bp, ffi.NewTrampoline())

	callArgs, err := parseArgs(prog, fn.Type, args[1:])
	if err != nil {
		return err
	}

	retT := fn.Type.Ret()
	ret := value.Value{Data: prog.Arena.Alloc(int(retT.Size()), int(retT.Align())), Type: retT}

	if err := ctx.Invoke(fnIdx, ret, callArgs); err != nil {
		return errors.Wrap(err, "invocation failed")
	}

	fmt.Println(formatValue(ret))
	return nil
}

func parseArgs(prog *ir.Program, fnType *types.Type, raw []string) ([]value.Value, error) {
	argTypes := fnType.Args().Elems()
	if len(raw) != len(argTypes) {
		return nil, errors.Errorf("expected %d arguments, got %d", len(argTypes), len(raw))
	}
	out := make([]value.Value, len(raw))
	for i, s := range raw {
		t := argTypes[i].Type
		v := value.Value{Data: prog.Arena.Alloc(int(t.Size()), int(t.Align())), Type: t}
		if t.NumKind().IsFloat() {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "argument %d", i)
			}
			v.SetFromFloat64(f)
		} else {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "argument %d", i)
			}
			v.SetFromInt64(n)
		}
		out[i] = v
	}
	return out, nil
}

func formatValue(v value.Value) string {
	switch v.Type.Class() {
	case types.ClassPointer, types.ClassTyperef:
		return fmt.Sprintf("%#x", uintptr(v.Addr()))
	case types.ClassNumeric:
		if v.Type.NumKind().IsFloat() {
			return strconv.FormatFloat(v.AsFloat64(), 'g', -1, 64)
		}
		return strconv.FormatInt(v.AsInt64(), 10)
	default:
		return fmt.Sprintf("<%s>", v.Type)
	}
}
