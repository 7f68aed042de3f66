// Package ffi implements the six foreign entry points of spec §6.3 as
// plain, testable Go functions; cabi.go wraps each one behind a cgo
// `//export` so a C caller gets the exact signatures §6.3 names.
//
// "src_ptr" throughout §6.3 is persisted IR JSON (an internal/persist
// Envelope), not Julia-like source text: a real source-to-IR parser is
// explicitly out of this repository's scope (spec §1's excluded
// collaborators list, and internal/ir's own doc comment — "Parsing
// itself is out of scope; this package only pins the tree shape"). A
// caller wanting true source-text compilation runs an external parser
// that emits the same IR JSON this package consumes; compile_to_ir is
// therefore a validating identity transform rather than a parser
// invocation.
//
// Grounded on sentra's internal/vm/vm_cached.go (load-then-run shape)
// and packages.ModuleCache (handle/registry-by-key idiom), adapted from
// a bare pointer/string key to a github.com/google/uuid v4 handle per
// spec's expanded §6.3.
package ffi

import (
	"encoding/json"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/compiler"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/effects"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/errors"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/methods"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/persist"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/vm"
)

// handles maps a live VM's uuid to its instance, so vm_request_cancel/
// vm_reset_cancel can address a running VM without exposing a raw
// pointer's lifetime across the C boundary (spec §6.3 expanded).
var handles sync.Map // map[string]*vm.VM

// Sentinel float return codes for run_ir_json/compile_and_run's
// documented failure fallbacks (spec §6.3 "negative sentinel integers
// or NaN on classes of failure").
const (
	ErrMalformedJSON  = -1.0
	ErrCompileFailed  = -2.0
	ErrRuntimeFailure = -3.0
)

// buildProgram rebuilds a runnable compiler.Program from a persisted
// envelope: the function table round-trips through persist.ToProgram,
// while the method table, struct heap, and effect registry are fresh,
// empty instances (spec §5 "Method table & struct definitions ...
// mutated only during the compile phase" — a persisted envelope only
// needs to carry compiled code, not that phase's scratch state, since
// CallDynamic sites that matter are already devirtualized to direct
// Call(func_index) by the time bytecode is persisted).
func buildProgram(envJSON []byte, wantTarget, wantModuleName, wantHash string) (*compiler.Program, error) {
	env, err := persist.Unmarshal(envJSON, wantTarget, wantModuleName, wantHash)
	if err != nil {
		return nil, err
	}
	prog, err := persist.ToProgram(env.IR)
	if err != nil {
		return nil, err
	}
	prog.Methods = methods.NewTable()
	prog.Structs = value.NewStructHeap()
	prog.Effects = effects.NewRegistry()
	return prog, nil
}

// RunIRJSON implements run_ir_json: parse, build, run function 0 with
// (arg, seed), and reduce the result to a float64 per the documented
// fallbacks above. New VM handles created internally for the call are
// discarded once it returns; callers that need to cancel a specific
// run should use NewVM/RequestCancel/ResetCancel directly instead.
func RunIRJSON(envJSON []byte, arg float64, seed int64) float64 {
	prog, err := buildProgram(envJSON, "", "", "")
	if err != nil {
		return ErrMalformedJSON
	}
	if len(prog.Functions) == 0 {
		return ErrCompileFailed
	}
	machine := vm.New(prog)
	args := []value.Value{value.F64(arg), value.Ref(value.TagRNG, value.NewRNG(value.RNGMersenneTwister, seed))}
	result, err := machine.Run(0, args)
	if err != nil {
		return ErrRuntimeFailure
	}
	return resultToFloat(result)
}

func resultToFloat(v value.Value) float64 {
	switch {
	case v.Tag.IsFloat():
		return v.AsFloat()
	case v.Tag.IsInteger():
		return float64(v.AsInt())
	case v.Tag == value.TagBool:
		if v.AsBool() {
			return 1
		}
		return 0
	default:
		return math.NaN()
	}
}

// CompileToIR validates envJSON as a persistable envelope and returns
// its canonical re-serialization, or an error. See the package doc
// comment for why this doesn't parse source text.
func CompileToIR(envJSON []byte) ([]byte, error) {
	var env persist.Envelope
	if err := json.Unmarshal(envJSON, &env); err != nil {
		return nil, errors.New(errors.UnsupportedFeature, "malformed IR JSON: %v", err)
	}
	if _, err := persist.ToProgram(env.IR); err != nil {
		return nil, err
	}
	return persist.Marshal(env)
}

// CompileAndRun is compile_and_run: CompileToIR then RunIRJSON.
func CompileAndRun(envJSON []byte, seed int64) float64 {
	canon, err := CompileToIR(envJSON)
	if err != nil {
		return ErrCompileFailed
	}
	return RunIRJSON(canon, 0, seed)
}

// CompileAndRunWithOutput is compile_and_run_with_output: runs the
// program capturing everything it Printed, returning a string with the
// captured output followed by a single trailing result-marker line
// ("=> <value>" or "=> <error message>").
func CompileAndRunWithOutput(envJSON []byte, seed int64) string {
	prog, err := buildProgram(envJSON, "", "", "")
	if err != nil {
		return "=> error: " + err.Error()
	}
	if len(prog.Functions) == 0 {
		return "=> error: no compiled functions in module"
	}
	machine := vm.New(prog)
	args := []value.Value{value.F64(0), value.Ref(value.TagRNG, value.NewRNG(value.RNGMersenneTwister, seed))}
	result, err := machine.Run(0, args)
	out := machine.Output()
	if err != nil {
		return out + "=> error: " + err.Error()
	}
	return out + "=> " + result.String()
}

// NewVM registers prog under a fresh uuid handle and returns it, for
// callers that need to request/reset cancellation on a specific
// in-flight run (vm_request_cancel/vm_reset_cancel).
func NewVM(prog *compiler.Program) (string, *vm.VM) {
	id := uuid.NewString()
	machine := vm.New(prog)
	handles.Store(id, machine)
	return id, machine
}

// ReleaseVM removes a handle once its run has completed.
func ReleaseVM(id string) { handles.Delete(id) }

// RequestCancel implements vm_request_cancel for a registered handle; a
// miss is a silent no-op (the VM already finished or never existed).
func RequestCancel(id string) {
	if m, ok := handles.Load(id); ok {
		m.(*vm.VM).RequestCancel()
	}
}

// ResetCancel implements vm_reset_cancel.
func ResetCancel(id string) {
	if m, ok := handles.Load(id); ok {
		m.(*vm.VM).ResetCancel()
	}
}
