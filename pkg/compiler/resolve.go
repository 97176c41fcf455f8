package compiler

import (
	"github.com/lumenlang/lumen/pkg/chunk"
	"github.com/lumenlang/lumen/pkg/token"
	"github.com/lumenlang/lumen/pkg/value"
)

// addLocal declares name as a new local in the current scope, marked
// uninitialized (depth -1) until markInitialized runs, so a
// self-referencing initializer like `var a = a;` is rejected.
func (c *Compiler) addLocal(name string) {
	if len(c.state.locals) >= maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.state.locals = append(c.state.locals, local{name: name, depth: -1})
}

func (c *Compiler) markInitialized() {
	if c.state.scopeDepth == 0 {
		return
	}
	c.state.locals[len(c.state.locals)-1].depth = c.state.scopeDepth
}

// declareVariable registers the identifier just consumed as a local if
// inside a scope (scopeDepth > 0); globals are resolved by name at
// runtime and need no compile-time slot.
func (c *Compiler) declareVariable() {
	if c.state.scopeDepth == 0 {
		return
	}
	name := c.previous.Lexeme
	for i := len(c.state.locals) - 1; i >= 0; i-- {
		l := c.state.locals[i]
		if l.depth != -1 && l.depth < c.state.scopeDepth {
			break
		}
		if l.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

// resolveLocal searches st's locals innermost-first, returning the
// slot index or -1 if name isn't a local of st.
func resolveLocal(c *Compiler, st *compilerState, name string) int {
	for i := len(st.locals) - 1; i >= 0; i-- {
		if st.locals[i].name == name {
			if st.locals[i].depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue searches st's enclosing function chain for name,
// recording a capture (of a local or of a further-out upvalue) at
// every level between the defining scope and st, and memoizing the
// result so the same outer variable captured twice by the same
// function reuses one upvalue slot.
func resolveUpvalue(c *Compiler, st *compilerState, name string) int {
	if st.enclosing == nil {
		return -1
	}
	if local := resolveLocal(c, st.enclosing, name); local != -1 {
		st.enclosing.locals[local].isCaptured = true
		return addUpvalue(c, st, byte(local), true)
	}
	if up := resolveUpvalue(c, st.enclosing, name); up != -1 {
		return addUpvalue(c, st, byte(up), false)
	}
	return -1
}

func addUpvalue(c *Compiler, st *compilerState, index byte, isLocal bool) int {
	for i, uv := range st.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(st.upvalues) >= maxLocals {
		c.error("Too many closure variables in function.")
		return 0
	}
	st.upvalues = append(st.upvalues, upvalueRef{index: index, isLocal: isLocal})
	return len(st.upvalues) - 1
}

// parseVariable consumes an identifier, declares it if scoped, and
// returns the constant-pool index of its name for OP_DEFINE_GLOBAL (the
// index is meaningless, and ignored, for a local).
func (c *Compiler) parseVariable(errMsg string) byte {
	c.consume(token.IDENT, errMsg)
	c.declareVariable()
	if c.state.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous)
}

func (c *Compiler) defineVariable(global byte) {
	if c.state.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOps(chunk.OpDefineGlobal, global)
}

// namedVariable compiles a reference to (or, if assign permits and an
// '=' follows, an assignment to) the identifier name.
func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp chunk.Op
	var arg int

	if slot := resolveLocal(c, c.state, name); slot != -1 {
		getOp, setOp, arg = chunk.OpGetLocal, chunk.OpSetLocal, slot
	} else if slot := resolveUpvalue(c, c.state, name); slot != -1 {
		getOp, setOp, arg = chunk.OpGetUpvalue, chunk.OpSetUpvalue, slot
	} else {
		arg = int(c.makeConstant(value.Obj(c.heap.InternString(name))))
		getOp, setOp = chunk.OpGetGlobal, chunk.OpSetGlobal
	}

	if canAssign && c.match(token.EQ) {
		c.expression()
		c.emitOps(setOp, byte(arg))
	} else {
		c.emitOps(getOp, byte(arg))
	}
}
