// Package vm implements lumen's stack-based virtual machine.
//
// The VM is the final stage in the execution pipeline:
//
//	Source -> pkg/scanner -> pkg/compiler (single pass) -> pkg/value.Chunk -> VM -> Execution
//
// Virtual Machine Architecture:
//
// The VM owns a fixed-capacity operand stack, a call-frame stack (one
// entry per closure currently executing, forming the lumen call
// stack), a globals table, and a *gc.Heap that every object allocation
// — string interning included — is tracked through. Execution is a
// single dispatch loop (run) reading one opcode byte at a time from
// the current frame's chunk and acting on it; readByte/readShort/
// readConstant/readString below do that decoding as methods on *VM.
//
// Stack discipline: every opcode has a fixed operand-stack shape it
// expects and leaves behind — the dispatch loop trusts the compiler to
// have emitted a well-formed sequence and does not re-derive it.
package vm

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"

	"github.com/lumenlang/lumen/pkg/compiler"
	"github.com/lumenlang/lumen/pkg/gc"
	"github.com/lumenlang/lumen/pkg/value"
)

const (
	framesMax = 256
	stackMax  = framesMax * 256
)

// frame is one active call: the closure it is executing, its
// instruction pointer into that closure's chunk, and the base index
// into the VM's operand stack where its locals (parameter 0 included)
// begin.
type frame struct {
	closure *value.ObjClosure
	ip      int
	base    int
}

// openUpvalue pairs a stack slot with the *value.ObjUpvalue capturing
// it, so closeUpvalues can find every upvalue referencing a slot at or
// above a given depth without needing raw pointer comparisons into a
// Go slice (whose backing array pkg/value's ObjUpvalue.Location must
// not outlive a reallocation — hence the VM's stack is a fixed-size
// array, never reallocated, and upvalues are tracked by slot index
// here instead of via an intrusive list on the upvalue object itself).
type openUpvalue struct {
	slot int
	uv   *value.ObjUpvalue
}

// InterpretResult reports how a VM.Interpret call concluded.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// VM is one instance of the lumen virtual machine: its heap, globals,
// and the operand/call-frame stacks of whatever program it is
// currently running. A VM is reusable across multiple Interpret calls
// — the REPL keeps one *vm.VM alive across input lines so globals and
// function definitions persist between them.
type VM struct {
	heap    *gc.Heap
	globals *swiss.Map[string, value.Value]

	stack     [stackMax]value.Value
	stackTop  int
	frames    [framesMax]frame
	frameCnt  int
	openUps   []openUpvalue

	initString *value.ObjString

	out io.Writer

	trace     bool
	traceExec bool
	logger    *slog.Logger
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithGCStress runs a full collection before every single allocation,
// surfacing use-after-free-shaped bugs (a GC that frees something
// still reachable) far more often than the default heap-growth
// schedule would.
func WithGCStress() Option {
	return func(v *VM) { v.heap.Stress = true }
}

// WithTrace turns on structured per-collection slog output (and, if
// execOpcodes is true, a log line per dispatched instruction) — purely
// a debugging aid, never required for correct program output.
func WithTrace(logger *slog.Logger, execOpcodes bool) Option {
	return func(v *VM) {
		v.trace = true
		v.traceExec = execOpcodes
		v.logger = logger
		v.heap.Log = func(collected, before, after, nextGC int) {
			logger.Debug("gc cycle", "collected", collected, "before", before, "after", after, "next_gc", nextGC)
		}
	}
}

// WithOutput redirects `print` statements away from os.Stdout — used
// by tests to capture a program's output into a buffer.
func WithOutput(w io.Writer) Option {
	return func(v *VM) { v.out = w }
}

// New constructs a VM with its own heap and an empty globals table. It
// registers no natives; pkg/natives.Register installs them through
// DefineNative.
func New(opts ...Option) *VM {
	v := &VM{
		heap:    gc.NewHeap(),
		globals: swiss.NewMap[string, value.Value](64),
		out:     os.Stdout,
	}
	v.initString = v.heap.InternString("init")
	v.heap.MarkRoots = v.markRoots
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Heap exposes the VM's object heap so a native-function package can
// intern strings and allocate objects of its own (pkg/natives uses
// this for type()'s returned type-name strings).
func (v *VM) Heap() *gc.Heap { return v.heap }

// GlobalNames returns the names of every currently-defined global in
// sorted order, for the REPL's :globals introspection command, one
// name per line.
func (v *VM) GlobalNames() []string {
	names := make([]string, 0)
	v.globals.Iter(func(k string, _ value.Value) bool {
		names = append(names, k)
		return false
	})
	slices.Sort(names)
	return names
}

// DefineNative registers fn as a global callable under name — the
// native bridge pkg/natives uses to install its built-in functions.
func (v *VM) DefineNative(name string, fn value.NativeFn) {
	native := v.heap.NewNative(name, fn)
	v.globals.Put(name, value.Obj(native))
}

// Interpret compiles and runs source to completion. A compile error is
// returned as a plain error; a runtime error is returned as
// *RuntimeError (errors.As-able) alongside InterpretRuntimeError.
func (v *VM) Interpret(source string) (InterpretResult, error) {
	fn, err := compiler.Compile(source, v.heap)
	if err != nil {
		return InterpretCompileError, err
	}

	// fn stays on the stack while its closure is allocated, so a
	// collection triggered by that allocation still reaches it.
	v.push(value.Obj(fn))
	closure := v.heap.NewClosure(fn, nil)
	v.pop()
	v.push(value.Obj(closure))
	v.callClosure(closure, 0)

	if err := v.run(); err != nil {
		v.resetStack()
		return InterpretRuntimeError, err
	}
	return InterpretOK, nil
}

func (v *VM) resetStack() {
	v.stackTop = 0
	v.frameCnt = 0
	v.openUps = v.openUps[:0]
}

func (v *VM) push(val value.Value) {
	v.stack[v.stackTop] = val
	v.stackTop++
}

func (v *VM) pop() value.Value {
	v.stackTop--
	return v.stack[v.stackTop]
}

func (v *VM) peek(distance int) value.Value {
	return v.stack[v.stackTop-1-distance]
}

// markRoots is the Heap.MarkRoots callback: every value on the operand
// stack, every closure keeping a call frame alive, every open upvalue,
// and the globals table are GC roots.
func (v *VM) markRoots() {
	for i := 0; i < v.stackTop; i++ {
		v.heap.MarkValue(v.stack[i])
	}
	for i := 0; i < v.frameCnt; i++ {
		v.heap.MarkObject(v.frames[i].closure)
	}
	for _, o := range v.openUps {
		v.heap.MarkObject(o.uv)
	}
	v.globals.Iter(func(_ string, val value.Value) bool {
		v.heap.MarkValue(val)
		return false
	})
	v.heap.MarkObject(v.initString)
}

func (v *VM) runtimeError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)

	frames := make([]StackFrame, 0, v.frameCnt)
	for i := 0; i < v.frameCnt; i++ {
		f := &v.frames[i]
		name := ""
		if f.closure.Fn.Name != nil {
			name = f.closure.Fn.Name.Bytes
		}
		line := f.closure.Fn.Chunk.Line(f.ip - 1)
		frames = append(frames, StackFrame{Name: name, Line: line})
	}
	return newRuntimeError(msg, frames)
}
