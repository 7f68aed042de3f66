// cmd/juliavm is the CLI entry point: run/build/repl subcommands over
// persisted IR JSON (spec §6.2), grounded on sentra/cmd/sentra/main.go's
// alias-resolve-then-dispatch shape.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/AtelierArith/julia-vm-oss-sub008/cmd/juliavm/commands"
)

// VERSION is the running binary's version; BuildDate/GitCommit are
// stamped at link time via -ldflags, matching the teacher's own build.
const VERSION = "0.1.0"

var (
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// commandAliases mirrors the teacher's single-letter shortcuts.
var commandAliases = map[string]string{
	"r": "run",
	"b": "build",
	"i": "repl",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		printVersion()
		return
	case "run":
		if err := commands.RunCommand(args[1:]); err != nil {
			log.Fatalf("run: %v", err)
		}
	case "build":
		if err := commands.BuildCommand(args[1:]); err != nil {
			log.Fatalf("build: %v", err)
		}
	case "repl":
		if err := commands.ReplCommand(args[1:]); err != nil {
			log.Fatalf("repl: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "juliavm: unknown command %q\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("juliavm %s (build %s, commit %s)\n", VERSION, BuildDate, GitCommit)
}

func printUsage() {
	fmt.Print(`juliavm - compiler and stack VM for a Julia-like language subset

Usage:
  juliavm run <file.ir.json> [--seed N] [--arg X] [--cache-dir DIR]
  juliavm build <file.ir.json> -o <out.ir.json> [--cache-dir DIR]
  juliavm repl [--seed N] [--cache-dir DIR]
  juliavm version
  juliavm help

Aliases: r=run, b=build, i=repl

<file.ir.json> is a persisted bytecode envelope (spec §6.2): a source-text
front end is out of scope, so run/build/repl all consume the same IR JSON
that internal/ffi's compile_to_ir/run_ir_json accept.
`)
}
