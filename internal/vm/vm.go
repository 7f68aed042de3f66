// Package vm implements the stack-based bytecode machine (spec §4.7, C8):
// a single growable operand stack shared by all frames, a frame stack
// carrying typed slots plus name-keyed locals, structured exception
// handlers, and a process-wide cancellation flag.
//
// Grounded on sentra/internal/vm/vm.go (EnhancedVM/EnhancedCallFrame/
// TryFrame dispatch-loop shape), stripped of every security/network/
// siem/cloud builtin (out of domain) and generalized from its ad hoc
// `Value interface{}` to the closed internal/value.Value tag set.
package vm

import (
	"strings"
	"sync/atomic"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/bytecode"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/compiler"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/errors"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/methods"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

// handlerEntry is one structured-handler push (spec §4.7.2): a catch IP
// (or -1), a finally IP (or -1), and the operand-stack depth to restore
// on unwind.
type handlerEntry struct {
	CatchIP, FinallyIP int
	StackDepth         int
}

// Frame is one call frame: typed slots, name-keyed locals for untyped/
// mixed variables, an active-handler stack, and (for closures) captured
// bindings consulted on a name-lookup miss in names.
type Frame struct {
	fn       *compiler.FunctionEntry
	ip       int
	slots    []value.Value
	names    map[string]value.Value
	capture  map[string]value.Value
	handlers []handlerEntry

	// pendingReraise is set when a raise lands on a finally-only handler
	// (no catch): OpEndFinally re-raises it once the finally body
	// completes, unless a `return` inside finally already diverted.
	pendingReraise *errors.VMError
}

// VM executes one compiled Program (spec §4.7 "State").
type VM struct {
	Program *compiler.Program

	stack   []value.Value
	frames  []*Frame
	globals map[string]value.Value

	cancel atomic.Bool

	out strings.Builder

	lastErrorIP int

	// pendingRaiseValue carries the actual raised value.Value across a
	// `raise expr` (as opposed to a VM-internal error, which has none)
	// so the catch variable binds the original value rather than its
	// stringified message. errors.VMError cannot hold a value.Value
	// directly without internal/errors importing internal/value, which
	// would cycle back (value already imports errors for bounds/throws).
	pendingRaiseValue *value.Value
}

func New(prog *compiler.Program) *VM {
	return &VM{Program: prog, globals: make(map[string]value.Value)}
}

// RequestCancel / ResetCancel implement the external cancellation token
// of spec §5: a process-wide flag polled at the top of every dispatch
// cycle, settable/clearable from outside the running VM.
func (vm *VM) RequestCancel() { vm.cancel.Store(true) }
func (vm *VM) ResetCancel()   { vm.cancel.Store(false) }

// CancelRequested reports the current state of the cancellation flag.
func (vm *VM) CancelRequested() bool { return vm.cancel.Load() }

// Output returns everything Print has written so far.
func (vm *VM) Output() string { return vm.out.String() }

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() value.Value {
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	return v
}

func (vm *VM) peek() value.Value { return vm.stack[len(vm.stack)-1] }

func (vm *VM) frame() *Frame { return vm.frames[len(vm.frames)-1] }

// Run executes funcIndex with args per the calling convention of spec
// §4.7.1, returning its final value or the first uncaught error.
func (vm *VM) Run(funcIndex int, args []value.Value) (value.Value, error) {
	vm.pushFrame(funcIndex, args)
	return vm.runUntilDepth(0)
}

// runUntilDepth drives dispatch until the frame stack shrinks back to
// target, used both by Run (target 0) and by a higher-order helper's
// synchronous nested call (spec §4.6 "Higher-order helpers": map/
// filter/reduce invoke a callback per element and need its value back
// before the next element can be processed).
func (vm *VM) runUntilDepth(target int) (value.Value, error) {
	for len(vm.frames) > target {
		if vm.cancel.Load() {
			return value.Value{}, errors.New(errors.Cancellation, "execution cancelled")
		}
		f := vm.frame()
		code := f.fn.Chunk.Code
		if f.ip < 0 || f.ip >= len(code) {
			return value.Value{}, errors.NewInternal("instruction pointer ran off the end of %s", f.fn.Name)
		}
		op := bytecode.OpCode(code[f.ip])
		f.ip++
		vm.lastErrorIP = f.ip - 1

		retVal, isReturn, err := vm.step(f, op)
		if err != nil {
			verr, ok := err.(*errors.VMError)
			if !ok {
				verr = errors.NewInternal("%s", err.Error())
			}
			if uncaught := vm.raise(verr, target); uncaught != nil {
				return value.Value{}, uncaught
			}
			continue
		}
		if isReturn {
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == target {
				return retVal, nil
			}
			vm.push(retVal)
		}
	}
	return value.Value{}, errors.NewInternal("execution fell through with no active frame")
}

// callSync pushes callee(args) and drives it (and anything it calls) to
// completion, for instructions whose semantics need the result
// immediately rather than just scheduling a frame (spec §4.6 "Higher-
// order helpers", §4.6 item 6's broadcast fusion).
func (vm *VM) callSync(callee value.Value, args []value.Value) (value.Value, error) {
	depth := len(vm.frames)
	if err := vm.callValue(callee, args); err != nil {
		return value.Value{}, err
	}
	return vm.runUntilDepth(depth)
}

// pushFrame implements the static-call half of spec §4.7.1's calling
// convention: bind parameters to slots (typed) or names (dynamic) in
// left-to-right order, per the SlotNames map the compiler recorded.
func (vm *VM) pushFrame(funcIndex int, args []value.Value) *Frame {
	fn := vm.Program.Functions[funcIndex]
	f := &Frame{
		fn:    fn,
		slots: make([]value.Value, fn.Chunk.NumSlots),
		names: make(map[string]value.Value),
	}
	for i, name := range fn.ParamNames {
		if i >= len(args) {
			break
		}
		if slot, ok := fn.Chunk.SlotNames[name]; ok {
			f.slots[slot] = args[i]
		} else {
			f.names[name] = args[i]
		}
	}
	vm.frames = append(vm.frames, f)
	return f
}

// raise implements spec §4.7.2's unwind: find the innermost handler
// across the frame stack, restore the operand stack to its recorded
// depth, and jump to its catch IP (binding the raised value) or its
// finally IP (marking a pending re-raise). Returns the error itself,
// unmodified, when no handler caught it (including every non-catchable
// kind, which never searches handlers at all).
func (vm *VM) raise(verr *errors.VMError, floor int) *errors.VMError {
	if !verr.Kind.Catchable() {
		return verr
	}
	for i := len(vm.frames) - 1; i >= floor; i-- {
		f := vm.frames[i]
		for j := len(f.handlers) - 1; j >= 0; j-- {
			h := f.handlers[j]
			f.handlers = f.handlers[:j]
			if h.StackDepth <= len(vm.stack) {
				vm.stack = vm.stack[:h.StackDepth]
			}
			vm.frames = vm.frames[:i+1]
			if h.CatchIP >= 0 {
				vm.push(vm.raisedValue(verr))
				f.ip = h.CatchIP
				return nil
			}
			if h.FinallyIP >= 0 {
				f.pendingReraise = verr
				f.ip = h.FinallyIP
				return nil
			}
		}
	}
	return verr
}

// raisedValue answers the value the catch clause binds: the original
// value passed to `raise`/`throw` when there was one, else a String
// carrying the error's rendered message.
func (vm *VM) raisedValue(verr *errors.VMError) value.Value {
	if vm.pendingRaiseValue != nil {
		v := *vm.pendingRaiseValue
		vm.pendingRaiseValue = nil
		return v
	}
	return value.String(verr.Error())
}

// ResolveMethod looks up a dynamic call target by name and argument
// runtime tags, per spec §4.7.1 "Dynamic call ... look up method by
// argument runtime tags via method table".
func (vm *VM) resolveMethod(name string, tags []value.Tag) (*methods.Method, error) {
	return vm.Program.Methods.ResolveDynamic(name, tags)
}
