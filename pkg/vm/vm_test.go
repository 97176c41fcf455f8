package vm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlang/lumen/pkg/natives"
)

func runAndCapture(t *testing.T, source string, opts ...Option) (string, InterpretResult, error) {
	t.Helper()
	var out bytes.Buffer
	v := New(append([]Option{WithOutput(&out)}, opts...)...)
	natives.Register(v.Heap(), v.DefineNative)
	result, err := v.Interpret(source)
	return out.String(), result, err
}

func TestPrintArithmetic(t *testing.T) {
	out, result, err := runAndCapture(t, `print 1 + 2 * 3;`)
	require.NoError(t, err)
	assert.Equal(t, InterpretOK, result)
	assert.Equal(t, "7\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, _, err := runAndCapture(t, `print "foo" + "bar";`)
	require.NoError(t, err)
	assert.Equal(t, "foobar\n", out)
}

func TestGlobalVariables(t *testing.T) {
	out, _, err := runAndCapture(t, `
		var greeting = "hello";
		greeting = greeting + " world";
		print greeting;
	`)
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out)
}

func TestIfElseBranching(t *testing.T) {
	out, _, err := runAndCapture(t, `
		if (1 < 2) { print "less"; } else { print "not less"; }
	`)
	require.NoError(t, err)
	assert.Equal(t, "less\n", out)
}

func TestWhileLoop(t *testing.T) {
	out, _, err := runAndCapture(t, `
		var i = 0;
		var sum = 0;
		while (i < 5) {
			sum = sum + i;
			i = i + 1;
		}
		print sum;
	`)
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)
}

func TestForLoop(t *testing.T) {
	out, _, err := runAndCapture(t, `
		var sum = 0;
		for (var i = 0; i < 5; i = i + 1) {
			sum = sum + i;
		}
		print sum;
	`)
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)
}

// TestClosuresShareUpvalue exercises closure upvalue sharing: two
// closures created in the same call to makeCounter must share one
// upvalue cell, so incrementing through one is visible through the
// other.
func TestClosuresShareUpvalue(t *testing.T) {
	out, _, err := runAndCapture(t, `
		var peek;
		fun makeCounter() {
			var count = 0;
			fun increment() {
				count = count + 1;
				return count;
			}
			fun current() {
				return count;
			}
			peek = current;
			return increment;
		}

		var counter = makeCounter();
		print counter();
		print counter();
		print peek();
		print counter();
	`)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n2\n3\n", out)
}

func TestClosuresAreIndependentAcrossCalls(t *testing.T) {
	out, _, err := runAndCapture(t, `
		fun makeCounter() {
			var count = 0;
			fun increment() {
				count = count + 1;
				return count;
			}
			return increment;
		}

		var a = makeCounter();
		var b = makeCounter();
		print a();
		print a();
		print b();
	`)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n1\n", out)
}

func TestClassesAndMethods(t *testing.T) {
	out, _, err := runAndCapture(t, `
		class Greeter {
			init(name) {
				this.name = name;
			}
			greet() {
				print "hello, " + this.name;
			}
		}

		var g = Greeter("lumen");
		g.greet();
	`)
	require.NoError(t, err)
	assert.Equal(t, "hello, lumen\n", out)
}

func TestInheritanceAndSuper(t *testing.T) {
	out, _, err := runAndCapture(t, `
		class Animal {
			speak() {
				print "...";
			}
		}

		class Dog < Animal {
			speak() {
				super.speak();
				print "woof";
			}
		}

		Dog().speak();
	`)
	require.NoError(t, err)
	assert.Equal(t, "...\nwoof\n", out)
}

func TestInitializerReturnsReceiverImplicitly(t *testing.T) {
	out, _, err := runAndCapture(t, `
		class Box {
			init(v) { this.v = v; }
		}
		var b = Box(7);
		print b.v;
	`)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestRuntimeErrorUndefinedVariable(t *testing.T) {
	_, result, err := runAndCapture(t, `print nope;`)
	require.Error(t, err)
	assert.Equal(t, InterpretRuntimeError, result)

	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Message, "Undefined variable")
}

func TestRuntimeErrorStackTraceNamesEveryFrame(t *testing.T) {
	_, _, err := runAndCapture(t, `
		fun a() { b(); }
		fun b() { c(); }
		fun c() { return 1 + "x"; }
		a();
	`)
	require.Error(t, err)

	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	names := make([]string, 0, len(rerr.StackTrace))
	for _, f := range rerr.StackTrace {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"", "a", "b", "c"}, names, "the trace must list every live frame, outermost first, including the anonymous script frame")
}

func TestCallArityMismatchIsRuntimeError(t *testing.T) {
	_, result, err := runAndCapture(t, `
		fun needsTwo(a, b) { return a + b; }
		needsTwo(1);
	`)
	require.Error(t, err)
	assert.Equal(t, InterpretRuntimeError, result)
	assert.Contains(t, err.Error(), "Expected 2 arguments but got 1")
}

func TestCompileErrorReturnsBeforeRunning(t *testing.T) {
	out, result, err := runAndCapture(t, `print ;`)
	require.Error(t, err)
	assert.Equal(t, InterpretCompileError, result)
	assert.Empty(t, out)
}

func TestNativeClockAndType(t *testing.T) {
	out, _, err := runAndCapture(t, `
		print type(1);
		print type("s");
		print type(nil);
		print clock() >= 0;
	`)
	require.NoError(t, err)
	assert.Equal(t, "number\nstring\nnil\ntrue\n", out)
}

func TestGCStressDoesNotChangeObservableBehavior(t *testing.T) {
	source := `
		class Node {
			init(v) {
				this.v = v;
			}
		}
		var sum = 0;
		for (var i = 0; i < 50; i = i + 1) {
			var n = Node(i);
			sum = sum + n.v;
		}
		print sum;
	`
	normal, _, err := runAndCapture(t, source)
	require.NoError(t, err)

	stressed, _, err := runAndCapture(t, source, WithGCStress())
	require.NoError(t, err)

	assert.Equal(t, normal, stressed, "GC stress mode must not change a program's printed output")
}

func TestGlobalNamesSortedForREPLIntrospection(t *testing.T) {
	var out bytes.Buffer
	v := New(WithOutput(&out))
	natives.Register(v.Heap(), v.DefineNative)
	_, err := v.Interpret(`var zebra = 1; var apple = 2;`)
	require.NoError(t, err)

	names := v.GlobalNames()
	assert.Contains(t, names, "zebra")
	assert.Contains(t, names, "apple")
	assert.Contains(t, names, "clock")
	assert.Contains(t, names, "type")

	for i := 1; i < len(names); i++ {
		assert.LessOrEqual(t, names[i-1], names[i], "GlobalNames must be sorted")
	}
}
