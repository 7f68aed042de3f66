package ffi

/*
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"
)

// run_ir_json parses envJSON, compiles, runs, and returns the result as
// a C double (spec §6.3); see RunIRJSON for the fallback encoding.
//
//export run_ir_json
func run_ir_json(jsonPtr *C.char, arg C.double, seed C.longlong) C.double {
	envJSON := []byte(C.GoString(jsonPtr))
	return C.double(RunIRJSON(envJSON, float64(arg), int64(seed)))
}

// compile_to_ir validates/canonicalizes envJSON, returning a
// heap-allocated C string the caller must free_string, or NULL on
// error.
//
//export compile_to_ir
func compile_to_ir(srcPtr *C.char) *C.char {
	src := []byte(C.GoString(srcPtr))
	out, err := CompileToIR(src)
	if err != nil {
		return nil
	}
	return C.CString(string(out))
}

// compile_and_run is the float-returning convenience wrapper of §6.3.
//
//export compile_and_run
func compile_and_run(srcPtr *C.char, seed C.longlong) C.double {
	src := []byte(C.GoString(srcPtr))
	return C.double(CompileAndRun(src, int64(seed)))
}

// compile_and_run_with_output returns a heap-allocated C string
// carrying captured Print output plus a trailing result marker; the
// caller must free_string it.
//
//export compile_and_run_with_output
func compile_and_run_with_output(srcPtr *C.char, seed C.longlong) *C.char {
	src := []byte(C.GoString(srcPtr))
	return C.CString(CompileAndRunWithOutput(src, int64(seed)))
}

// free_string releases a string returned by compile_to_ir or
// compile_and_run_with_output.
//
//export free_string
func free_string(ptr *C.char) {
	if ptr != nil {
		C.free(unsafe.Pointer(ptr))
	}
}

// vm_request_cancel / vm_reset_cancel address a registered VM handle by
// its uuid string (spec §6.3 expanded).
//
//export vm_request_cancel
func vm_request_cancel(handlePtr *C.char) {
	RequestCancel(C.GoString(handlePtr))
}

//export vm_reset_cancel
func vm_reset_cancel(handlePtr *C.char) {
	ResetCancel(C.GoString(handlePtr))
}
