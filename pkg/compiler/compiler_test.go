package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlang/lumen/pkg/chunk"
	"github.com/lumenlang/lumen/pkg/gc"
	"github.com/lumenlang/lumen/pkg/value"
)

func compileOK(t *testing.T, source string) (*gc.Heap, []byte) {
	t.Helper()
	h := gc.NewHeap()
	fn, err := Compile(source, h)
	require.NoError(t, err)
	return h, fn.Chunk.Code
}

func opsOf(code []byte) []chunk.Op {
	var ops []chunk.Op
	for _, b := range code {
		ops = append(ops, chunk.Op(b))
	}
	return ops
}

func TestCompileNumberLiteralStatement(t *testing.T) {
	_, code := compileOK(t, "42;")

	// OP_CONSTANT <idx>, OP_POP, then the implicit OP_NIL/OP_RETURN
	// every compiled function ends with.
	require.Len(t, code, 5)
	assert.Equal(t, chunk.OpConstant, chunk.Op(code[0]))
	assert.Equal(t, byte(0), code[1])
	assert.Equal(t, chunk.OpPop, chunk.Op(code[2]))
	assert.Equal(t, chunk.OpNil, chunk.Op(code[3]))
	assert.Equal(t, chunk.OpReturn, chunk.Op(code[4]))
}

func TestCompilePrintStatement(t *testing.T) {
	_, code := compileOK(t, `print "hi";`)
	ops := opsOf(code)
	require.GreaterOrEqual(t, len(ops), 3)
	assert.Equal(t, chunk.OpConstant, ops[0])
	assert.Equal(t, chunk.OpPrint, ops[2])
}

func TestCompileGlobalVarRoundTrip(t *testing.T) {
	_, code := compileOK(t, "var x = 1; x = 2; print x;")
	ops := opsOf(code)

	assert.Contains(t, ops, chunk.OpDefineGlobal)
	assert.Contains(t, ops, chunk.OpSetGlobal)
	assert.Contains(t, ops, chunk.OpGetGlobal)
}

func TestCompileLocalUsesSlotNotGlobal(t *testing.T) {
	_, code := compileOK(t, "{ var x = 1; print x; }")
	ops := opsOf(code)

	assert.Contains(t, ops, chunk.OpGetLocal)
	assert.NotContains(t, ops, chunk.OpGetGlobal, "a block-scoped local must never resolve as a global")
}

func TestCompileArithmeticPrecedence(t *testing.T) {
	// 1 + 2 * 3 must multiply before adding: push 1, push 2, push 3,
	// MULTIPLY, ADD.
	_, code := compileOK(t, "1 + 2 * 3;")
	ops := opsOf(code)

	mulIdx, addIdx := -1, -1
	for i, op := range ops {
		if op == chunk.OpMultiply {
			mulIdx = i
		}
		if op == chunk.OpAdd {
			addIdx = i
		}
	}
	require.NotEqual(t, -1, mulIdx)
	require.NotEqual(t, -1, addIdx)
	assert.Less(t, mulIdx, addIdx, "multiplication must be emitted (and so executed) before addition")
}

func TestCompileIfElseEmitsBothBranches(t *testing.T) {
	_, code := compileOK(t, `if (true) { print "a"; } else { print "b"; }`)
	ops := opsOf(code)

	assert.Contains(t, ops, chunk.OpJumpIfFalse)
	assert.Contains(t, ops, chunk.OpJump)

	printCount := 0
	for _, op := range ops {
		if op == chunk.OpPrint {
			printCount++
		}
	}
	assert.Equal(t, 2, printCount)
}

func TestCompileWhileEmitsBackwardLoop(t *testing.T) {
	_, code := compileOK(t, "while (false) { print 1; }")
	assert.Contains(t, opsOf(code), chunk.OpLoop)
}

func TestCompileClosureCapturesEnclosingLocalAsUpvalue(t *testing.T) {
	h := gc.NewHeap()
	fn, err := Compile(`
		fun outer() {
			var x = 1;
			fun inner() { return x; }
			return inner;
		}
	`, h)
	require.NoError(t, err)

	var outerFn *value.ObjFunction
	for _, c := range fn.Chunk.Constants {
		if f, ok := c.AsObj().(*value.ObjFunction); ok && f.Name != nil && f.Name.Bytes == "outer" {
			outerFn = f
		}
	}
	require.NotNil(t, outerFn, "script-level chunk must hold outer as a compiled function constant")

	var innerFn *value.ObjFunction
	for _, c := range outerFn.Chunk.Constants {
		if f, ok := c.AsObj().(*value.ObjFunction); ok && f.Name != nil && f.Name.Bytes == "inner" {
			innerFn = f
		}
	}
	require.NotNil(t, innerFn, "outer's own chunk must hold inner as a compiled function constant")

	assert.Equal(t, 1, innerFn.UpvalueCount, "inner captures exactly one outer local (x)")
	assert.Contains(t, opsOf(innerFn.Chunk.Code), chunk.OpGetUpvalue, "inner must read x through an upvalue, not a local slot")
}

func TestCompileClassEmitsClassAndMethod(t *testing.T) {
	h, code := compileOK(t, `
		class Greeter {
			greet() { print "hi"; }
		}
	`)
	ops := opsOf(code)
	assert.Contains(t, ops, chunk.OpClass)
	assert.Contains(t, ops, chunk.OpMethod)
	_ = h
}

func TestCompileInheritanceEmitsInherit(t *testing.T) {
	_, code := compileOK(t, `
		class A {}
		class B < A {}
	`)
	assert.Contains(t, opsOf(code), chunk.OpInherit)
}

func TestCompileMethodCallUsesInvokeFusion(t *testing.T) {
	_, code := compileOK(t, `
		class Greeter {
			greet() { print "hi"; }
		}
		var g = Greeter();
		g.greet();
	`)
	assert.Contains(t, opsOf(code), chunk.OpInvoke, "a direct obj.method(args) call site must fuse to OP_INVOKE")
}

func TestCompileAccumulatesMultipleSyntaxErrors(t *testing.T) {
	h := gc.NewHeap()
	_, err := Compile("var ; var ;", h)
	require.Error(t, err)
	// Both malformed declarations should be reported, not just the
	// first — synchronize() exists precisely so one error doesn't mask
	// the next.
	assert.Contains(t, err.Error(), "Error")
	assert.Equal(t, 2, strings.Count(err.Error(), "Expect variable name."))
}

func TestCompileRejectsReturnAtTopLevel(t *testing.T) {
	h := gc.NewHeap()
	_, err := Compile("return 1;", h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't return from top-level code.")
}

func TestCompileRejectsReadingLocalInOwnInitializer(t *testing.T) {
	h := gc.NewHeap()
	_, err := Compile("{ var a = a; }", h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't read local variable in its own initializer.")
}
