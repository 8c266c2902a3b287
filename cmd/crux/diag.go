package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"crux/internal/crerr"
)

// colorEnabled reports whether stderr is a terminal, gating ANSI output.
var colorEnabled = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

const (
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// reportFatal prints err to stderr, colorizing the Kind tag when stderr is
// a terminal and rendering the CoreError's location/kind when the error
// came from the core rather than from argument parsing.
func reportFatal(cmd string, err error) {
	var ce *crerr.CoreError
	if !errors.As(err, &ce) {
		fmt.Fprintf(os.Stderr, "crux %s: %v\n", cmd, err)
		os.Exit(1)
	}

	tag := fmt.Sprintf("[%s]", ce.Kind)
	if colorEnabled {
		tag = ansiRed + tag + ansiReset
	}
	fmt.Fprintf(os.Stderr, "crux %s: %s %s\n", cmd, tag, ce.Error())
	os.Exit(1)
}
