// Package natives supplies the concrete native functions bundled with
// the lumen binary: clock() and type(v). The VM only knows about the
// NativeFn interface (pkg/value.NativeFn) and how to call it; this
// package supplies the actual bridged functions.
package natives

import (
	"fmt"
	"time"

	"github.com/lumenlang/lumen/pkg/gc"
	"github.com/lumenlang/lumen/pkg/value"
)

// Register installs every native this package provides onto a VM-like
// definer (pkg/vm.VM.DefineNative), so cmd/lumen can wire the full set
// with one call. heap is used to intern the handful of strings type()
// can return, so those values are tracked by the same GC as everything
// else a running program allocates.
func Register(heap *gc.Heap, define func(name string, fn value.NativeFn)) {
	define("clock", clockNative)
	define("type", typeNative(heap))
}

// clockNative returns the number of seconds since the Unix epoch as a
// lumen number, for benchmarking and timing source programs.
func clockNative(args []value.Value) (value.Value, error) {
	if len(args) != 0 {
		return value.Nil, fmt.Errorf("clock() takes no arguments")
	}
	return value.Number(float64(time.Now().UnixNano()) / 1e9), nil
}

// typeNative returns the runtime type name of its single argument, the
// same name value.Value.TypeName and every runtime error message use.
func typeNative(heap *gc.Heap) value.NativeFn {
	return func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Nil, fmt.Errorf("type() takes exactly one argument")
		}
		return value.Obj(heap.InternString(args[0].TypeName())), nil
	}
}
