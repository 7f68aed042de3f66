package commands

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/vm"
)

// RunCommand loads a persisted IR JSON envelope and runs its function 0
// with (arg, seed), printing captured Print output followed by the
// result (spec §6.2/§6.3's "run_ir_json" shape, exposed as a CLI verb).
func RunCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	seed := fs.Int64("seed", 0, "RNG seed passed to function 0")
	arg := fs.Float64("arg", 0, "scalar argument passed to function 0")
	cacheDir := fs.String("cache-dir", "", "override JULIAVM_CACHE_DIR")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: juliavm run <file.ir.json> [--seed N] [--arg X]")
	}
	filename := rest[0]

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	canon, err := loadCanonicalIR(*cacheDir, data)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	prog, err := buildProgram(canon)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	if len(prog.Functions) == 0 {
		return fmt.Errorf("%s: module has no compiled functions", filename)
	}

	machine := vm.New(prog)
	runArgs := []value.Value{
		value.F64(*arg),
		value.Ref(value.TagRNG, value.NewRNG(value.RNGMersenneTwister, *seed)),
	}

	start := time.Now()
	result, runErr := machine.Run(0, runArgs)
	elapsed := time.Since(start)

	if out := machine.Output(); out != "" {
		fmt.Print(out)
	}
	if runErr != nil {
		return fmt.Errorf("runtime error: %w", runErr)
	}
	fmt.Printf("=> %s\n", result.String())
	fmt.Fprintf(os.Stderr, "(%s)\n", elapsed)
	return nil
}
