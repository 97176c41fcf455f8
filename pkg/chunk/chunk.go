// Package chunk defines the bytecode opcode enum and the disassembler
// that renders a *value.Chunk as human-readable text for --trace-exec
// and cmd/lumen's disasm subcommand. The Chunk container itself lives in
// pkg/value (see value.Chunk's doc comment for why): ObjFunction
// embeds one, and pkg/value cannot import a package that imports
// pkg/value back.
package chunk

import (
	"fmt"
	"strings"

	"github.com/lumenlang/lumen/pkg/value"
)

// Op is a single bytecode instruction opcode.
type Op byte

// The emitted instruction set. Operands are one byte unless noted;
// CLOSURE's trailing (is_local, index) pairs are each two bytes.
const (
	OpConstant Op = iota
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetLocal     // operand: local slot (1 byte)
	OpSetLocal     // operand: local slot (1 byte)
	OpGetGlobal    // operand: constant index (name)
	OpDefineGlobal // operand: constant index (name)
	OpSetGlobal    // operand: constant index (name)
	OpGetUpvalue   // operand: upvalue slot (1 byte)
	OpSetUpvalue   // operand: upvalue slot (1 byte)
	OpGetProperty  // operand: constant index (name)
	OpSetProperty  // operand: constant index (name)
	OpGetSuper     // operand: constant index (name)
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate
	OpPrint
	OpJump        // operand: 16-bit forward offset
	OpJumpIfFalse // operand: 16-bit forward offset
	OpLoop        // operand: 16-bit back offset
	OpCall        // operand: arg count (1 byte)
	OpInvoke      // operands: constant index (name), arg count
	OpSuperInvoke // operands: constant index (name), arg count
	OpClosure     // operand: constant index (function), then upvalue_count (is_local,index) pairs
	OpCloseUpvalue
	OpReturn
	OpClass   // operand: constant index (name)
	OpInherit
	OpMethod // operand: constant index (name)
)

var opNames = map[Op]string{
	OpConstant: "OP_CONSTANT", OpNil: "OP_NIL", OpTrue: "OP_TRUE", OpFalse: "OP_FALSE",
	OpPop: "OP_POP", OpGetLocal: "OP_GET_LOCAL", OpSetLocal: "OP_SET_LOCAL",
	OpGetGlobal: "OP_GET_GLOBAL", OpDefineGlobal: "OP_DEFINE_GLOBAL", OpSetGlobal: "OP_SET_GLOBAL",
	OpGetUpvalue: "OP_GET_UPVALUE", OpSetUpvalue: "OP_SET_UPVALUE",
	OpGetProperty: "OP_GET_PROPERTY", OpSetProperty: "OP_SET_PROPERTY", OpGetSuper: "OP_GET_SUPER",
	OpEqual: "OP_EQUAL", OpGreater: "OP_GREATER", OpLess: "OP_LESS",
	OpAdd: "OP_ADD", OpSubtract: "OP_SUBTRACT", OpMultiply: "OP_MULTIPLY", OpDivide: "OP_DIVIDE",
	OpNot: "OP_NOT", OpNegate: "OP_NEGATE", OpPrint: "OP_PRINT",
	OpJump: "OP_JUMP", OpJumpIfFalse: "OP_JUMP_IF_FALSE", OpLoop: "OP_LOOP",
	OpCall: "OP_CALL", OpInvoke: "OP_INVOKE", OpSuperInvoke: "OP_SUPER_INVOKE",
	OpClosure: "OP_CLOSURE", OpCloseUpvalue: "OP_CLOSE_UPVALUE", OpReturn: "OP_RETURN",
	OpClass: "OP_CLASS", OpInherit: "OP_INHERIT", OpMethod: "OP_METHOD",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "OP_UNKNOWN"
}

// Disassemble renders every instruction in c under a heading of name,
// one line per instruction — used only for --trace-exec output and
// cmd/lumen's disasm subcommand, never on any path that runs without being
// asked to.
func Disassemble(c *value.Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = disassembleInstruction(&b, c, offset)
	}
	return b.String()
}

func disassembleInstruction(b *strings.Builder, c *value.Chunk, offset int) int {
	fmt.Fprintf(b, "%04d ", offset)
	line := c.Line(offset)
	if offset > 0 && line == c.Line(offset-1) {
		fmt.Fprint(b, "   | ")
	} else {
		fmt.Fprintf(b, "%4d ", line)
	}

	op := Op(c.Code[offset])
	switch op {
	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall:
		return byteInstruction(b, op, c, offset)
	case OpGetGlobal, OpDefineGlobal, OpSetGlobal, OpGetProperty, OpSetProperty,
		OpGetSuper, OpClass, OpMethod:
		return constantInstruction(b, op, c, offset)
	case OpInvoke, OpSuperInvoke:
		return invokeInstruction(b, op, c, offset)
	case OpJump, OpJumpIfFalse:
		return jumpInstruction(b, op, c, offset, 1)
	case OpLoop:
		return jumpInstruction(b, op, c, offset, -1)
	case OpClosure:
		return closureInstruction(b, op, c, offset)
	case OpNil, OpTrue, OpFalse, OpPop, OpEqual, OpGreater, OpLess,
		OpAdd, OpSubtract, OpMultiply, OpDivide, OpNot, OpNegate,
		OpPrint, OpCloseUpvalue, OpReturn, OpInherit:
		return simpleInstruction(b, op, offset)
	default:
		fmt.Fprintf(b, "Unknown opcode %d\n", op)
		return offset + 1
	}
}

func simpleInstruction(b *strings.Builder, op Op, offset int) int {
	fmt.Fprintf(b, "%s\n", op)
	return offset + 1
}

func byteInstruction(b *strings.Builder, op Op, c *value.Chunk, offset int) int {
	slot := c.Code[offset+1]
	fmt.Fprintf(b, "%-16s %4d\n", op, slot)
	return offset + 2
}

func constantInstruction(b *strings.Builder, op Op, c *value.Chunk, offset int) int {
	idx := c.Code[offset+1]
	fmt.Fprintf(b, "%-16s %4d '%s'\n", op, idx, c.Constants[idx].String())
	return offset + 2
}

func invokeInstruction(b *strings.Builder, op Op, c *value.Chunk, offset int) int {
	idx := c.Code[offset+1]
	argCount := c.Code[offset+2]
	fmt.Fprintf(b, "%-16s (%d args) %4d '%s'\n", op, argCount, idx, c.Constants[idx].String())
	return offset + 3
}

func jumpInstruction(b *strings.Builder, op Op, c *value.Chunk, offset int, sign int) int {
	jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	target := offset + 3 + sign*jump
	fmt.Fprintf(b, "%-16s %4d -> %d\n", op, offset, target)
	return offset + 3
}

func closureInstruction(b *strings.Builder, op Op, c *value.Chunk, offset int) int {
	offset++
	idx := c.Code[offset]
	offset++
	fmt.Fprintf(b, "%-16s %4d '%s'\n", op, idx, c.Constants[idx].String())

	fn, ok := c.Constants[idx].AsObj().(*value.ObjFunction)
	if !ok {
		return offset
	}
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := c.Code[offset]
		index := c.Code[offset+1]
		offset += 2
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(b, "%04d      |                     %s %d\n", offset-2, kind, index)
	}
	return offset
}
