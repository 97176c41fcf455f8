// Package vm - error handling with stack traces.
package vm

import (
	"fmt"
	"strings"
)

// StackFrame is one entry of a RuntimeError's stack trace: the
// function name the frame was executing in and the source line its
// instruction pointer had reached when the error happened.
type StackFrame struct {
	Name string
	Line int
}

// RuntimeError is what Interpret returns when a running program hits a
// runtime error condition: a type mismatch, an undefined variable, a
// call arity mismatch, or similar. StackTrace is the call stack at the
// point of failure, outermost first, rendered as a "[line N] in
// <name>()" trace.
type RuntimeError struct {
	Message    string
	StackTrace []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for i := len(e.StackTrace) - 1; i >= 0; i-- {
		f := e.StackTrace[i]
		name := f.Name
		if name == "" {
			name = "script"
		} else {
			name += "()"
		}
		fmt.Fprintf(&b, "\n[line %d] in %s", f.Line, name)
	}
	return b.String()
}

func newRuntimeError(message string, stack []StackFrame) *RuntimeError {
	return &RuntimeError{Message: message, StackTrace: stack}
}
