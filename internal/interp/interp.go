// Package interp implements the abstract interpreter (spec §4.3, C4): a
// forward dataflow analysis over the tree IR that infers the type of
// every expression and the return type of a function, using the type
// lattice (C2) and the method table (C5).
//
// Grounded on spec §4.3 directly; the "re-entrant fixpoint memoized by
// (function, arg-types)" idiom (spec §9) is implemented with
// golang.org/x/sync/singleflight so concurrent compile-ahead callers
// (see SPEC_FULL.md §4.3 ambient note) collapse onto one computation.
package interp

import (
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/methods"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/types"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

// maxLoopIterations bounds the fixpoint iteration count for a single
// loop body before widening is forced (spec Invariant L2 "design
// choice: widen after the first merge that would change the concrete
// part" — we additionally cap at this count as a hard backstop so a
// pathological lattice shape can never hang the compiler).
const maxLoopIterations = 8

// Annotation is the per-expression inferred-type map the compiler (C7)
// consults to pick typed vs dynamic instructions.
type Annotation struct {
	types map[ir.Expr]types.Type
}

func newAnnotation() *Annotation { return &Annotation{types: make(map[ir.Expr]types.Type)} }

func (a *Annotation) set(e ir.Expr, t types.Type) types.Type {
	a.types[e] = t
	return t
}

// TypeOf returns the inferred type of e, or Top if e was never visited
// (e.g. dead code after an unconditional return).
func (a *Annotation) TypeOf(e ir.Expr) types.Type {
	if t, ok := a.types[e]; ok {
		return t
	}
	return types.Top
}

// Interpreter runs the fixpoint analysis of spec §4.3 over function
// bodies, consulting a shared method table for call resolution.
type Interpreter struct {
	Methods *methods.Table
	Structs StructFieldLookup

	group    singleflight.Group
	memo     map[string]*FuncResult
	inflight map[string]bool
}

// StructFieldLookup resolves a struct type's field types, needed
// because struct instances answer type-of through the struct
// definition rather than carrying it inline (Invariant V1).
type StructFieldLookup interface {
	FieldType(structName, field string) (types.Type, bool)
}

// FuncResult is the memoized outcome of analyzing one function body
// against one argument-type tuple (spec §9 "(function, arg-types)" key).
type FuncResult struct {
	ReturnType types.Type
	Annotation *Annotation
	ParamEnv   *types.Env
}

func New(mt *methods.Table, structs StructFieldLookup) *Interpreter {
	return &Interpreter{
		Methods:  mt,
		Structs:  structs,
		memo:     make(map[string]*FuncResult),
		inflight: make(map[string]bool),
	}
}

func memoKey(fn *ir.FuncDecl, argTypes []types.Type) string {
	var sb strings.Builder
	sb.WriteString(fn.Name)
	for _, t := range argTypes {
		sb.WriteString("|")
		sb.WriteString(t.String())
	}
	return sb.String()
}

// AnalyzeFunction runs the fixpoint loop over fn's body, seeded with
// argTypes bound to fn's parameters (spec §4.3 step 1). Re-entrant
// calls into a function still being analyzed (recursive functions, §9)
// return Bottom for the return type until a later pass converges.
func (in *Interpreter) AnalyzeFunction(fn *ir.FuncDecl, argTypes []types.Type) *FuncResult {
	key := memoKey(fn, argTypes)
	if r, ok := in.memo[key]; ok {
		return r
	}
	if in.inflight[key] {
		// Recursive re-entry before convergence: Bottom, per spec §9.
		return &FuncResult{ReturnType: types.Bottom, Annotation: newAnnotation()}
	}

	v, _, _ := in.group.Do(key, func() (interface{}, error) {
		in.inflight[key] = true
		defer delete(in.inflight, key)

		env := types.NewEnv()
		for i, p := range fn.Params {
			t := types.Any
			if i < len(argTypes) {
				t = argTypes[i]
			} else if p.TypeAnnot != "" {
				t = annotToType(p.TypeAnnot)
			}
			env.Set(p.Name, t)
		}

		ann := newAnnotation()
		fs := &funcState{ann: ann, in: in, retType: types.Bottom}
		fs.walkStmts(fn.Body, env)

		result := &FuncResult{ReturnType: fs.retType, Annotation: ann, ParamEnv: env}
		in.memo[key] = result
		return result, nil
	})
	return v.(*FuncResult)
}

func annotToType(name string) types.Type {
	// A minimal textual-annotation resolver for parameter type
	// annotations; a real front end would resolve this against the
	// struct/type table. Unknown names default to Top (spec §4.3.1
	// "Unknown names default to Top but do not block compilation").
	switch name {
	case "Int", "Int64":
		return types.NewNumeric(value.TagI64)
	case "Int32":
		return types.NewNumeric(value.TagI32)
	case "Float64":
		return types.NewNumeric(value.TagF64)
	case "Float32":
		return types.NewNumeric(value.TagF32)
	case "Bool":
		return types.Bool
	case "Char":
		return types.CharT
	case "String":
		return types.StringT
	case "Any", "":
		return types.Any
	default:
		return types.Top
	}
}

// funcState threads the per-function cumulative return type and the
// shared annotation map through the statement/expression walk.
type funcState struct {
	ann     *Annotation
	in      *Interpreter
	retType types.Type
}

func (fs *funcState) fail(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}
