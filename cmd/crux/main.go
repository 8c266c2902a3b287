// cmd/crux is the core's command-line front end: run a program, disassemble
// its lowered bytecode, print its type graph, or report arena stats.
package main

import (
	"fmt"
	"os"
	"time"

	"crux/cmd/crux/commands"
)

const version = "0.1.0"

var buildDate = time.Now().Format("2006-01-02")

// commandAliases gives each subcommand a single-letter shorthand.
var commandAliases = map[string]string{
	"r": "run",
	"d": "disasm",
	"t": "types",
	"s": "stats",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		fmt.Printf("crux %s (built %s)\n", version, buildDate)
	case "run":
		if err := commands.Run(args[1:]); err != nil {
			reportFatal("run", err)
		}
	case "disasm":
		if err := commands.Disasm(args[1:]); err != nil {
			reportFatal("disasm", err)
		}
	case "types":
		if err := commands.Types(args[1:]); err != nil {
			reportFatal("types", err)
		}
	case "stats":
		if err := commands.Stats(args[1:]); err != nil {
			reportFatal("stats", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "crux: unknown command %q\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`crux - a typed IR, bytecode lowering, and interpreter core

Usage:
  crux <command> [arguments]

Commands:
  run      run a built-in demo program
  disasm   print a function's lowered bytecode
  types    print a demo function's type and its locals' types
  stats    print arena usage for a program
  version  print the crux version

Aliases: r=run d=disasm t=types s=stats`)
}
