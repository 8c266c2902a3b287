package commands

import (
	"fmt"

	"github.com/pkg/errors"

	"crux/internal/types"
)

// Types builds the named demo program and prints its entry function's
// procedure type plus every local variable's type.
func Types(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: crux types <demo>")
	}
	d, ok := demos[args[0]]
	if !ok {
		return errors.Errorf("unknown demo %q", args[0])
	}

	in := types.NewInterner()
	prog, fnIdx := d.build(in)
	fn := prog.Functions.At(fnIdx)

	fmt.Printf("%s: %s\n", fn.Name, fn.Type)
	for i, l := range fn.Locals {
		fmt.Printf("  local %d: %s\n", i, l)
	}
	return nil
}
