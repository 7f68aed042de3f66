// Package tests drives cmd/juliavm as a black box with
// github.com/rogpeppe/go-internal/testscript (spec SPEC_FULL.md §8's
// ambient CLI-testing note), the teacher pack's idiomatic choice given
// rogpeppe/go-internal was already present in the teacher's go.mod.
package tests

import (
	"fmt"
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/AtelierArith/julia-vm-oss-sub008/cmd/juliavm/commands"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/compiler"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/effects"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/methods"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/persist"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/types"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

// juliavmMain re-dispatches the same three subcommands cmd/juliavm/main.go
// wires, reimplemented here (rather than imported from package main,
// which testscript.RunMain cannot import directly) so the binary
// testscript.RunMain builds behaves identically to the real CLI.
func juliavmMain() int {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "juliavm: missing subcommand")
		return 1
	}
	var err error
	switch args[0] {
	case "run":
		err = commands.RunCommand(args[1:])
	case "build":
		err = commands.BuildCommand(args[1:])
	case "repl":
		err = commands.ReplCommand(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "juliavm: unknown command %q\n", args[0])
		return 1
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"juliavm": juliavmMain,
	}))
}

// writeIncrementFixture compiles `f(x) = x + 1` and writes its persisted
// IR JSON envelope to path, for scripts to feed to `juliavm run`/`build`.
func writeIncrementFixture(path string) error {
	c := compiler.NewCompiler(methods.NewTable(), value.NewStructHeap(), effects.NewRegistry(), nil)
	fn := &ir.FuncDecl{
		Name:   "f",
		Params: []ir.Param{{Name: "x"}},
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{Op: "+", Left: &ir.Ident{Name: "x"}, Right: &ir.Literal{Value: value.F64(1)}}},
		},
	}
	c.CompileFunction(fn, []types.Type{types.NewNumeric(value.TagF64)})

	mod, err := persist.FromProgram(c.Program)
	if err != nil {
		return err
	}
	env := persist.New("", "increment", "", mod)
	data, err := persist.Marshal(env)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func TestCLI(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			return writeIncrementFixture(env.WorkDir + "/increment.ir.json")
		},
	})
}
