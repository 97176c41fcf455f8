package compiler

import (
	"strconv"

	"github.com/lumenlang/lumen/pkg/chunk"
	"github.com/lumenlang/lumen/pkg/token"
	"github.com/lumenlang/lumen/pkg/value"
)

// precedence orders the binding strength of every infix operator, low
// to high, so a rule's precedence plus one is "the next
// tighter-binding level", which is what parsePrecedence's
// binary-operator loop relies on.
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type rule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[token.Kind]rule

func init() {
	rules = map[token.Kind]rule{
		token.LPAREN:   {prefix: (*Compiler).grouping, infix: (*Compiler).call, precedence: precCall},
		token.DOT:      {infix: (*Compiler).dot, precedence: precCall},
		token.MINUS:    {prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: precTerm},
		token.PLUS:     {infix: (*Compiler).binary, precedence: precTerm},
		token.SLASH:    {infix: (*Compiler).binary, precedence: precFactor},
		token.STAR:     {infix: (*Compiler).binary, precedence: precFactor},
		token.BANG:     {prefix: (*Compiler).unary},
		token.BANGEQ:   {infix: (*Compiler).binary, precedence: precEquality},
		token.EQEQ:     {infix: (*Compiler).binary, precedence: precEquality},
		token.GT:       {infix: (*Compiler).binary, precedence: precComparison},
		token.GE:       {infix: (*Compiler).binary, precedence: precComparison},
		token.LT:       {infix: (*Compiler).binary, precedence: precComparison},
		token.LE:       {infix: (*Compiler).binary, precedence: precComparison},
		token.IDENT:    {prefix: (*Compiler).variable},
		token.STRING:   {prefix: (*Compiler).string},
		token.NUMBER:   {prefix: (*Compiler).number},
		token.AND:      {infix: (*Compiler).and, precedence: precAnd},
		token.OR:       {infix: (*Compiler).or, precedence: precOr},
		token.FALSE:    {prefix: (*Compiler).literal},
		token.TRUE:     {prefix: (*Compiler).literal},
		token.NIL:      {prefix: (*Compiler).literal},
		token.THIS:     {prefix: (*Compiler).this},
		token.SUPER:    {prefix: (*Compiler).super},
	}
}

func ruleFor(k token.Kind) rule { return rules[k] }

// expression parses the lowest-precedence expression form: a full
// assignment-or-lower expression.
func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefixRule := ruleFor(c.previous.Kind).prefix
	if prefixRule == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefixRule(c, canAssign)

	for prec <= ruleFor(c.current.Kind).precedence {
		c.advance()
		infixRule := ruleFor(c.previous.Kind).infix
		infixRule(c, canAssign)
	}

	if canAssign && c.match(token.EQ) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) number(_ bool) {
	n, _ := strconv.ParseFloat(c.previous.Lexeme, 64)
	c.emitConstant(value.Number(n))
}

func (c *Compiler) string(_ bool) {
	lex := c.previous.Lexeme
	s := lex[1 : len(lex)-1] // strip the surrounding quotes
	c.emitConstant(value.Obj(c.heap.InternString(s)))
}

func (c *Compiler) literal(_ bool) {
	switch c.previous.Kind {
	case token.FALSE:
		c.emitOp(chunk.OpFalse)
	case token.TRUE:
		c.emitOp(chunk.OpTrue)
	case token.NIL:
		c.emitOp(chunk.OpNil)
	}
}

func (c *Compiler) grouping(_ bool) {
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after expression.")
}

func (c *Compiler) unary(_ bool) {
	op := c.previous.Kind
	c.parsePrecedence(precUnary)
	switch op {
	case token.MINUS:
		c.emitOp(chunk.OpNegate)
	case token.BANG:
		c.emitOp(chunk.OpNot)
	}
}

func (c *Compiler) binary(_ bool) {
	op := c.previous.Kind
	r := ruleFor(op)
	c.parsePrecedence(r.precedence + 1)

	switch op {
	case token.BANGEQ:
		c.emitOp(chunk.OpEqual)
		c.emitOp(chunk.OpNot)
	case token.EQEQ:
		c.emitOp(chunk.OpEqual)
	case token.GT:
		c.emitOp(chunk.OpGreater)
	case token.GE:
		c.emitOp(chunk.OpLess)
		c.emitOp(chunk.OpNot)
	case token.LT:
		c.emitOp(chunk.OpLess)
	case token.LE:
		c.emitOp(chunk.OpGreater)
		c.emitOp(chunk.OpNot)
	case token.PLUS:
		c.emitOp(chunk.OpAdd)
	case token.MINUS:
		c.emitOp(chunk.OpSubtract)
	case token.STAR:
		c.emitOp(chunk.OpMultiply)
	case token.SLASH:
		c.emitOp(chunk.OpDivide)
	}
}

// and short-circuits: if the left operand is falsy, it stays on the
// stack and the right operand is skipped entirely.
func (c *Compiler) and(_ bool) {
	endJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

// or short-circuits the opposite way: if the left operand is truthy,
// skip the right operand.
func (c *Compiler) or(_ bool) {
	elseJump := c.emitJump(chunk.OpJumpIfFalse)
	endJump := c.emitJump(chunk.OpJump)

	c.patchJump(elseJump)
	c.emitOp(chunk.OpPop)

	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous.Lexeme, canAssign)
}

func (c *Compiler) this(_ bool) {
	if c.class == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	c.namedVariable("this", false)
}

func (c *Compiler) super(_ bool) {
	if c.class == nil {
		c.error("Can't use 'super' outside of a class.")
	} else if !c.class.hasSuperclass {
		c.error("Can't use 'super' in a class with no superclass.")
	}

	c.consume(token.DOT, "Expect '.' after 'super'.")
	c.consume(token.IDENT, "Expect superclass method name.")
	name := c.identifierConstant(c.previous)

	c.namedVariable("this", false)
	if c.match(token.LPAREN) {
		argCount := c.argumentList()
		c.namedVariable("super", false)
		c.emitOp(chunk.OpSuperInvoke)
		c.emitByte(name)
		c.emitByte(argCount)
		return
	}
	c.namedVariable("super", false)
	c.emitOps(chunk.OpGetSuper, name)
}

func (c *Compiler) call(_ bool) {
	argCount := c.argumentList()
	c.emitOps(chunk.OpCall, argCount)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(token.IDENT, "Expect property name after '.'.")
	name := c.identifierConstant(c.previous)

	switch {
	case canAssign && c.match(token.EQ):
		c.expression()
		c.emitOps(chunk.OpSetProperty, name)
	case c.match(token.LPAREN):
		argCount := c.argumentList()
		c.emitOp(chunk.OpInvoke)
		c.emitByte(name)
		c.emitByte(argCount)
	default:
		c.emitOps(chunk.OpGetProperty, name)
	}
}

// argumentList parses a parenthesized, comma-separated call argument
// list (the opening '(' has already been consumed by whichever rule
// dispatched into call/dot/super) and returns the argument count.
func (c *Compiler) argumentList() byte {
	var count int
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if count == 255 {
				c.error("Can't have more than 255 arguments.")
			}
			count++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after arguments.")
	return byte(count)
}
