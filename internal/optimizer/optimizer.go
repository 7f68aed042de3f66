// Package optimizer implements the opt-in IR-level passes of spec
// §4.8/4.9 (C9): common-subexpression elimination, union splitting, and
// dead-code elimination, run after initial compilation but before VM
// execution, plus a small pass manager deciding which passes a given
// function body is worth running.
//
// Grounded on the Hassandahiru-Compiler-in-Go internal/optimizer package
// (constant.go/deadcode.go's tree-rewrite-pass shape: a pass is a
// function from a statement list to a rewritten statement list) and the
// teacher's internal/jit Profiler/CompilationTier idea (a pass manager
// deciding whether code is "hot enough" to warrant extra work),
// repurposed here with no native codegen: "hot enough" gates which
// optimizer passes run, not which backend compiles the function.
package optimizer

import "github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"

// Pass is one named rewrite over a function body.
type Pass interface {
	Name() string
	Run(body []ir.Stmt) []ir.Stmt
}

// Manager runs a configured pass pipeline, gated by a simple call-count
// heuristic (spec §4.9's pass manager, "does this loop/statement look
// hot enough to warrant running CSE + union-splitting").
type Manager struct {
	passes    []Pass
	callCount map[string]int
	threshold int
}

// NewManager builds the default pipeline: CSE, then union splitting,
// then DCE, each only applied once a function has been compiled at
// least threshold times (0 runs every pass unconditionally, the
// simplest correct policy and this package's default).
func NewManager(threshold int) *Manager {
	return &Manager{
		passes:    []Pass{CSEPass{}, UnionSplitPass{}, DCEPass{}},
		callCount: make(map[string]int),
		threshold: threshold,
	}
}

// RecordCompile bumps fnName's compile-count tally; Optimize consults it
// to decide whether fnName is "hot enough" for the configured threshold.
func (m *Manager) RecordCompile(fnName string) {
	m.callCount[fnName]++
}

// Optimize runs every configured pass over body in order, when fnName
// has crossed the manager's hotness threshold; otherwise body is
// returned unchanged.
func (m *Manager) Optimize(fnName string, body []ir.Stmt) []ir.Stmt {
	if m.callCount[fnName] < m.threshold {
		return body
	}
	for _, p := range m.passes {
		body = p.Run(body)
	}
	return body
}
