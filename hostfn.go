package zeta

import (
	"bufio"
	"fmt"
	"os"
)

// hostSig is the call form of a host function, parsed from its
// signature string once at registration
type hostSig uint8

const (
	// Signatures the evaluator cannot call; registering them is
	// fine, calling them is fatal
	sigUnsupported hostSig = iota

	// bool(tag): receives the tag of the first argument
	sigBoolTag

	// void(int): receives the integer word
	sigVoidInt

	// void(int64): receives the integer word
	sigVoidInt64

	// void(string): receives the string heap pointer
	sigVoidString
)

var hostSigs = map[string]hostSig{
	"bool(tag)":    sigBoolTag,
	"void(int)":    sigVoidInt,
	"void(int64)":  sigVoidInt64,
	"void(string)": sigVoidString,
}

// HostFn is a native function callable from Zeta code.  The
// interned signature string is the wire format describing the calling
// convention; its parsed form drives call-time dispatch.
type HostFn struct {
	shape Shapeidx

	// Native function
	fptr any

	// Function name
	name *Str

	// Signature string
	sigStr *Str

	// Parsed signature
	sig hostSig
}

func (f *HostFn) Shape() Shapeidx { return f.shape }

// Name returns the interned function name
func (f *HostFn) Name() *Str { return f.name }

// SigStr returns the interned signature string
func (f *HostFn) SigStr() *Str { return f.sigStr }

// HostFnAlloc wraps a native function under a name and a signature
// string
func (vm *VM) HostFnAlloc(fptr any, name, sigStr string) *HostFn {
	vm.heap.alloc(hostFnObjSize, vm.hostFnShape.idx)
	return &HostFn{
		shape:  vm.hostFnShape.idx,
		fptr:   fptr,
		name:   vm.GetStr(name),
		sigStr: vm.GetStr(sigStr),
		sig:    hostSigs[sigStr],
	}
}

// evalHostCall evaluates a host function call: arguments are
// evaluated in the caller's frame and handed over according to the
// parsed signature
func (vm *VM) evalHostCall(callee *HostFn, argExprs *Array, caller *Closure, callerLocals []Value) Value {
	argVals := make([]Value, argExprs.Len())
	for i := uint32(0); i < argExprs.Len(); i++ {
		argVals[i] = vm.evalExpr(argExprs.GetObj(i), caller, callerLocals)
	}

	checkArity := func(n int) {
		if len(argVals) != n {
			fatalf("argument count mismatch calling host function %s (%d given, %d expected)",
				callee.name.Data(), len(argVals), n)
		}
	}

	switch callee.sig {
	case sigBoolTag:
		checkArity(1)
		return BoolValue(callee.fptr.(func(Tag) bool)(argVals[0].Tag))

	case sigVoidInt:
		checkArity(1)
		callee.fptr.(func(int))(int(argVals[0].Int))
		return True

	case sigVoidInt64:
		checkArity(1)
		callee.fptr.(func(int64))(argVals[0].Int)
		return True

	case sigVoidString:
		checkArity(1)
		if argVals[0].Tag != TagString {
			fatalf("host function %s expects a string argument, got %s",
				callee.name.Data(), argVals[0].Tag)
		}
		callee.fptr.(func(*Str))(argVals[0].Obj.(*Str))
		return True
	}

	fatalf("unsupported host function signature %s", callee.sigStr.Data())
	return False
}

// ReadLine reads one line from the VM's input stream
func (vm *VM) ReadLine() (string, error) {
	if vm.stdinRd == nil {
		vm.stdinRd = bufio.NewReader(vm.stdin)
	}
	line, err := vm.stdinRd.ReadString('\n')
	if err != nil {
		return "", err
	}
	return line[:len(line)-1], nil
}

// InitAPICore builds the host function wrappers for the core runtime
// API.  Each function is registered under its plain name; the runtime
// rebinds them in the Zeta global scope as $name.
func (vm *VM) InitAPICore() *Array {
	fns := vm.ArrayAlloc(8)

	addFn := func(fptr any, name, sig string) {
		fns.AppendObj(vm.HostFnAlloc(fptr, name, sig), TagHostFn)
	}

	// Type tests
	addFn(func(t Tag) bool { return t == TagInt64 }, "is_int64", "bool(tag)")
	addFn(func(t Tag) bool { return t == TagString }, "is_string", "bool(tag)")

	// Basic string I/O
	addFn(func(v int64) { fmt.Fprintf(vm.stdout, "%d", v) }, "print_int64", "void(int64)")
	addFn(func(s *Str) { fmt.Fprintf(vm.stdout, "%s", s.Data()) }, "print_string", "void(string)")
	addFn(func() (string, error) { return vm.ReadLine() }, "read_line", "char*()")
	addFn(func(name string) (string, error) {
		buf, err := os.ReadFile(name)
		return string(buf), err
	}, "read_file", "char*(char*)")

	// Host memory management
	addFn(func(size uint64) []byte { return make([]byte, size) }, "malloc", "void*(size_t)")
	addFn(func(p []byte) {}, "free", "void(void*)")
	addFn(func(code int) { vm.exit(code) }, "exit", "void(int)")

	return fns
}
