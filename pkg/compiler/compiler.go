// Package compiler implements lumen's single-pass Pratt compiler: it
// walks the token stream exactly once, emitting bytecode directly into
// a value.Chunk as each expression and statement is recognized — there
// is no intermediate AST. The structure is advance/consume, a
// parsePrecedence loop driven by a prefix/infix rule table keyed by
// token kind, a chain of per-function compilerState records linked
// through `enclosing` for nested function/closure compilation, and a
// classState stack for `this`/`super` resolution inside method bodies.
//
// Heavy doc comments sit on exported entry points; the compiler
// accumulates every syntax error instead of stopping at the first one,
// and keeps small, readable state structs rather than one monolithic
// closure.
package compiler

import (
	"fmt"

	"github.com/lumenlang/lumen/pkg/chunk"
	"github.com/lumenlang/lumen/pkg/gc"
	"github.com/lumenlang/lumen/pkg/scanner"
	"github.com/lumenlang/lumen/pkg/token"
	"github.com/lumenlang/lumen/pkg/value"
)

// FunctionKind distinguishes the handful of ways a compilerState gets
// spun up, since top-level script code, plain functions, methods, and
// initializers each start with slightly different implicit state:
// methods and initializers reserve local slot 0 for the receiver, and
// an initializer's implicit return value is the receiver, not nil.
type FunctionKind int

const (
	FuncScript FunctionKind = iota
	FuncFunction
	FuncMethod
	FuncInitializer
)

const maxLocals = 256

type local struct {
	name       string
	depth      int // -1 means "declared but not yet defined"
	isCaptured bool
}

type upvalueRef struct {
	index   byte
	isLocal bool
}

// compilerState is one function body's worth of compile-time state:
// its locals (a flat, scope-tagged stack mirroring the VM's own stack
// layout so local slots resolve to plain indices at compile time), its
// captured upvalues, and a link to the compilerState of the function
// lexically enclosing it, so a nested function can resolve a variable
// in an outer scope as an upvalue instead of a local.
type compilerState struct {
	enclosing  *compilerState
	fn         *value.ObjFunction
	kind       FunctionKind
	locals     []local
	upvalues   []upvalueRef
	scopeDepth int
}

// classState tracks the class currently being compiled, so `this` and
// `super` resolve correctly and a class with no explicit superclass
// rejects a `super.x` reference at compile time.
type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// Compiler drives one compilation: a scanner over the source, a
// one-token lookahead pair (previous/current), accumulated error
// messages, and the chain of compilerStates/classStates for whatever
// function or method body is presently being compiled.
type Compiler struct {
	heap *gc.Heap
	scan *scanner.Scanner

	previous token.Token
	current  token.Token

	hadError  bool
	panicMode bool
	errors    []string

	state *compilerState
	class *classState
}

// Compile compiles source into a top-level script function ready to be
// wrapped in a closure and run, or returns the accumulated syntax
// errors joined into one error if compilation failed. heap supplies
// string interning and object allocation: every literal string and
// every nested function this compiler creates is tracked by it.
func Compile(source string, heap *gc.Heap) (*value.ObjFunction, error) {
	c := &Compiler{heap: heap, scan: scanner.New(source)}
	c.pushState(FuncScript, "")

	prevRoots := heap.MarkCompilerRoots
	heap.MarkCompilerRoots = c.markCompilerRoots
	defer func() { heap.MarkCompilerRoots = prevRoots }()

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	fn := c.popState()

	if c.hadError {
		msg := "compile error:"
		for _, e := range c.errors {
			msg += "\n  " + e
		}
		return nil, fmt.Errorf("%s", msg)
	}
	return fn, nil
}

func (c *Compiler) pushState(kind FunctionKind, name string) {
	fn := c.heap.NewFunction()
	st := &compilerState{enclosing: c.state, fn: fn, kind: kind}
	// Slot 0 is reserved: "this" for methods/initializers, an
	// unnameable sentinel for plain functions and script top level.
	receiver := ""
	if kind == FuncMethod || kind == FuncInitializer {
		receiver = "this"
	}
	st.locals = append(st.locals, local{name: receiver, depth: 0})
	c.state = st
	// Interned only after st is linked, so markCompilerRoots keeps fn
	// alive through any collection this allocation triggers.
	if name != "" {
		fn.Name = c.heap.InternString(name)
	}
}

func (c *Compiler) popState() *value.ObjFunction {
	c.emitReturn()
	fn := c.state.fn
	fn.UpvalueCount = len(c.state.upvalues)
	c.state = c.state.enclosing
	return fn
}

// markCompilerRoots marks every function presently under construction
// — the one being compiled right now plus every enclosing one still
// waiting on the compilerState stack — so a mid-compile collection
// cannot sweep an identifier string already sitting in one of their
// constant pools but not yet reachable any other way.
func (c *Compiler) markCompilerRoots() {
	for st := c.state; st != nil; st = st.enclosing {
		c.heap.MarkObject(st.fn)
	}
}

// --- token stream -------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scan.Scan()
		if c.current.Kind != token.ERROR {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(k token.Kind) bool { return c.current.Kind == k }

func (c *Compiler) match(k token.Kind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(k token.Kind, msg string) {
	if c.current.Kind == k {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.previous, msg) }

func (c *Compiler) errorAt(t token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	where := ""
	switch t.Kind {
	case token.EOF:
		where = " at end"
	case token.ERROR:
		// lexeme already is the message
	default:
		where = fmt.Sprintf(" at '%s'", t.Lexeme)
	}
	c.errors = append(c.errors, fmt.Sprintf("[line %d] Error%s: %s", t.Line, where, msg))
}

// synchronize discards tokens until reaching something that plausibly
// starts a new statement, so one syntax error doesn't cascade into a
// wall of spurious follow-on errors.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Kind != token.EOF {
		if c.previous.Kind == token.SEMICOLON {
			return
		}
		switch c.current.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF,
			token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- emission -------------------------------------------------

func (c *Compiler) chunk() *value.Chunk { return c.state.fn.Chunk }

func (c *Compiler) emitByte(b byte) {
	c.chunk().Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op chunk.Op) { c.emitByte(byte(op)) }

func (c *Compiler) emitOps(op chunk.Op, operand byte) {
	c.emitOp(op)
	c.emitByte(operand)
}

func (c *Compiler) emitReturn() {
	if c.state.kind == FuncInitializer {
		c.emitOps(chunk.OpGetLocal, 0)
	} else {
		c.emitOp(chunk.OpNil)
	}
	c.emitOp(chunk.OpReturn)
}

func (c *Compiler) makeConstant(v value.Value) byte {
	idx := c.chunk().AddConstant(v)
	if idx > 255 {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emitOps(chunk.OpConstant, c.makeConstant(v))
}

// emitJump writes op followed by a two-byte placeholder offset and
// returns the placeholder's byte offset, to be patched later via
// patchJump once the jump target is known.
func (c *Compiler) emitJump(op chunk.Op) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk().Code) - offset - 2
	if jump > 0xffff {
		c.error("Too much code to jump over.")
	}
	c.chunk().Code[offset] = byte((jump >> 8) & 0xff)
	c.chunk().Code[offset+1] = byte(jump & 0xff)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(chunk.OpLoop)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.error("Loop body too large.")
	}
	c.emitByte(byte((offset >> 8) & 0xff))
	c.emitByte(byte(offset & 0xff))
}

// --- scopes -------------------------------------------------

func (c *Compiler) beginScope() { c.state.scopeDepth++ }

func (c *Compiler) endScope() {
	c.state.scopeDepth--
	st := c.state
	for len(st.locals) > 0 && st.locals[len(st.locals)-1].depth > st.scopeDepth {
		last := st.locals[len(st.locals)-1]
		if last.isCaptured {
			c.emitOp(chunk.OpCloseUpvalue)
		} else {
			c.emitOp(chunk.OpPop)
		}
		st.locals = st.locals[:len(st.locals)-1]
	}
}

func (c *Compiler) identifierConstant(t token.Token) byte {
	return c.makeConstant(value.Obj(c.heap.InternString(t.Lexeme)))
}
