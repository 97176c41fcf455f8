package compiler

import (
	"github.com/lumenlang/lumen/pkg/chunk"
	"github.com/lumenlang/lumen/pkg/token"
)

// classDeclaration compiles `class Name [< Superclass] { method* }`.
// The class object itself is created at runtime by OP_CLASS; methods
// are compiled as independent functions and attached one at a time by
// OP_METHOD, so a class body is really just a sequence of "compile a
// function, then bind it under a name" steps run inside a temporary
// scope that makes `super` resolvable.
func (c *Compiler) classDeclaration() {
	c.consume(token.IDENT, "Expect class name.")
	nameTok := c.previous
	nameConstant := c.identifierConstant(nameTok)
	c.declareVariable()

	c.emitOps(chunk.OpClass, nameConstant)
	c.defineVariable(nameConstant)

	cs := &classState{enclosing: c.class}
	c.class = cs

	if c.match(token.LT) {
		c.consume(token.IDENT, "Expect superclass name.")
		c.variable(false)
		if nameTok.Lexeme == c.previous.Lexeme {
			c.error("A class can't inherit from itself.")
		}

		c.beginScope()
		c.addLocal("super")
		c.defineVariable(0)

		c.namedVariable(nameTok.Lexeme, false)
		c.emitOp(chunk.OpInherit)
		cs.hasSuperclass = true
	}

	c.namedVariable(nameTok.Lexeme, false)
	c.consume(token.LBRACE, "Expect '{' before class body.")
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RBRACE, "Expect '}' after class body.")
	c.emitOp(chunk.OpPop) // the class itself, pushed by namedVariable above

	if cs.hasSuperclass {
		c.endScope()
	}
	c.class = cs.enclosing
}

func (c *Compiler) method() {
	c.consume(token.IDENT, "Expect method name.")
	name := c.previous
	nameConstant := c.identifierConstant(name)

	kind := FuncMethod
	if name.Lexeme == "init" {
		kind = FuncInitializer
	}
	c.function(kind)
	c.emitOps(chunk.OpMethod, nameConstant)
}
