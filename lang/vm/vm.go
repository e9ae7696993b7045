// Package vm implements the stack-based bytecode interpreter that executes
// the chunks produced by lang/compiler: a call-frame stack, a fixed-size
// value stack, global variables, and the full opcode dispatch loop (spec
// §5, §6).
package vm

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dolthub/swiss"
	"github.com/mna/loxvm/lang/compiler"
	"github.com/mna/loxvm/lang/value"
)

const (
	// FramesMax is the maximum depth of nested function calls (spec §5).
	FramesMax = 64
	// StackMax is the fixed capacity of the value stack. It is preallocated
	// so that *value.Value pointers handed out to open upvalues stay valid
	// for the stack's entire lifetime; nothing ever reallocates it.
	StackMax = FramesMax * 256
)

// CallFrame is one activation record: the closure being executed, the
// instruction pointer into its chunk, and the base index into the VM's
// value stack where its locals (including the callee/receiver slot) begin.
type CallFrame struct {
	closure *value.ObjClosure
	ip      int
	base    int
}

// VM is a single-threaded Lox interpreter instance. It is not safe for
// concurrent use.
type VM struct {
	// Stdout is where the print statement writes. Defaults to os.Stdout.
	Stdout io.Writer
	// Stderr is where runtime error traces are optionally written by callers;
	// the VM itself only returns errors, it never writes to Stderr directly.
	Stderr io.Writer

	interner *value.Interner
	globals  *swiss.Map[*value.ObjString, value.Value]

	stack [StackMax]value.Value
	sp    int

	frames     [FramesMax]CallFrame
	frameCount int

	openUpvalues *value.ObjUpvalue // descending by stack slot, head is highest index; see captureUpvalue
}

// New returns a ready-to-use VM. interner must be the same string pool used
// to compile any source this VM will run, so that interned identifiers
// compare equal by pointer.
func New(interner *value.Interner) *VM {
	vm := &VM{
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		interner: interner,
		globals:  swiss.NewMap[*value.ObjString, value.Value](32),
	}
	vm.defineNative("clock", nativeClock)
	return vm
}

// RuntimeError is returned by Interpret when a compiled chunk raises a
// runtime fault. It carries a human-readable stack trace, innermost frame
// first, bounded by FramesMax entries since the call stack itself can never
// exceed that depth (spec §6, §7).
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string {
	msg := e.Message
	for _, line := range e.Trace {
		msg += "\n" + line
	}
	return msg
}

// Interpret compiles source against the VM's interner and runs the
// resulting top-level function to completion. A compile error is returned
// unwrapped; a runtime fault is returned as a *RuntimeError.
func (vm *VM) Interpret(source string) error {
	fn, err := compiler.Compile(source, vm.interner)
	if err != nil {
		return err
	}

	closure := &value.ObjClosure{Function: fn}
	vm.sp = 0
	vm.frameCount = 0
	vm.openUpvalues = nil

	vm.push(closure)
	if err := vm.call(closure, 0); err != nil {
		return err
	}
	return vm.run()
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() value.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) runtimeError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	trace := make([]string, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		fn := frame.closure.Function
		line := fn.Chunk.Lines[frame.ip-1]
		name := "script"
		if fn.Name != nil {
			name = fn.Name.Chars() + "()"
		}
		trace = append(trace, fmt.Sprintf("[line %d] in %s", line, name))
	}
	vm.resetStack()
	return &RuntimeError{Message: msg, Trace: trace}
}

func (vm *VM) defineNative(name string, fn func(args []value.Value) (value.Value, error)) {
	nameStr := vm.interner.Intern(name)
	vm.globals.Put(nameStr, &value.ObjNative{Name: name, Fn: fn})
}

func nativeClock(_ []value.Value) (value.Value, error) {
	return value.Number(float64(time.Now().UnixNano()) / 1e9), nil
}
