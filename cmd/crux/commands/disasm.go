package commands

import (
	"fmt"

	"github.com/kr/pretty"
	"github.com/pkg/errors"

	"crux/internal/bytecode"
	"crux/internal/types"
)

// Disasm builds the named demo program, lowers its entry function, and
// pretty-prints the resulting BcFunction via kr/pretty — the same
// structured-dump library SPEC_FULL.md's ambient stack names for
// diagnostics.
func Disasm(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: crux disasm <demo>")
	}
	d, ok := demos[args[0]]
	if !ok {
		return errors.Errorf("unknown demo %q", args[0])
	}

	in := types.NewInterner()
	prog, fnIdx := d.build(in)

	var ext bytecode.ExternResolver = rejectingResolver{}
	if d.host != nil {
		ext = d.host()
	}

	bp := bytecode.NewProgram(prog, ext)
	bf, err := bp.Lower(fnIdx)
	if err != nil {
		return errors.Wrap(err, "lowering")
	}

	fmt.Printf("%s %s\n", bf.Name, bf.Type)
	for i, in := range bf.Instrs {
		fmt.Printf("% 4d  %s  %# v\n", i, in.Op, pretty.Formatter(in.Operands))
	}
	return nil
}
