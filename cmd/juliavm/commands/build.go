package commands

import (
	"flag"
	"fmt"
	"os"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/cache"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ffi"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/persist"
)

// BuildCommand validates and canonicalizes an IR JSON envelope, writes
// it to -o, and seeds the package cache with it so a later `run` of the
// same input is a cache hit (spec §6.1).
func BuildCommand(args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	out := fs.String("o", "", "output path for the canonicalized envelope (required)")
	cacheDir := fs.String("cache-dir", "", "override JULIAVM_CACHE_DIR")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: juliavm build <file.ir.json> -o <out.ir.json>")
	}
	if *out == "" {
		return fmt.Errorf("build: -o output path is required")
	}
	filename := rest[0]

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	canon, err := ffi.CompileToIR(data)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	if err := os.WriteFile(*out, canon, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}

	if store, err := openCache(*cacheDir); err == nil {
		if hash, herr := cache.Hash(cliModuleName, persist.VMVersion, data); herr == nil {
			store.Put(hash, canon)
		}
		store.Close()
	}

	fmt.Printf("%s -> %s\n", filename, *out)
	return nil
}
