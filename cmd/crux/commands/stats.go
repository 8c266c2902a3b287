package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"crux/internal/types"
)

// Stats builds the named demo program and reports its arena's usage, via
// go-humanize for readable byte counts.
func Stats(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: crux stats <demo>")
	}
	d, ok := demos[args[0]]
	if !ok {
		return errors.Errorf("unknown demo %q", args[0])
	}

	in := types.NewInterner()
	prog, _ := d.build(in)
	used, cap := prog.Arena.Stats()
	fmt.Printf("arena: %s used of %s allocated\n", humanize.Bytes(used), humanize.Bytes(cap))
	fmt.Printf("functions: %d  blocks: %d  instructions: %d\n",
		prog.Functions.Len(), prog.Blocks.Len(), prog.Instructions.Len())
	return nil
}
