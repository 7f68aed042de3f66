package commands

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/vm"
)

// ReplCommand runs a read-eval-print loop: each line of input is one
// complete persisted IR JSON envelope (there is no source-text front
// end; see internal/ffi's package doc), compiled and run as function 0
// with a zero scalar argument.
func ReplCommand(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	seed := fs.Int64("seed", 0, "RNG seed passed to each evaluated envelope")
	cacheDir := fs.String("cache-dir", "", "override JULIAVM_CACHE_DIR")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Println("juliavm repl - each line is one persisted IR JSON envelope; 'exit' or Ctrl-D to quit")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for {
		fmt.Print("julia> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		canon, err := loadCanonicalIR(*cacheDir, []byte(line))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		prog, err := buildProgram(canon)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if len(prog.Functions) == 0 {
			fmt.Fprintln(os.Stderr, "module has no compiled functions")
			continue
		}

		machine := vm.New(prog)
		runArgs := []value.Value{
			value.F64(0),
			value.Ref(value.TagRNG, value.NewRNG(value.RNGMersenneTwister, *seed)),
		}
		result, err := machine.Run(0, runArgs)
		if out := machine.Output(); out != "" {
			fmt.Print(out)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Println(result.String())
	}
	return scanner.Err()
}
