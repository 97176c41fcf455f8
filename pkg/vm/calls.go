package vm

import "github.com/lumenlang/lumen/pkg/value"

// callValue dispatches OP_CALL's callee, which may be a closure, a
// native function, a class (constructing an instance), or a bound
// method.
func (v *VM) callValue(callee value.Value, argCount int) error {
	if !callee.IsObj() {
		return v.runtimeError("Can only call functions and classes.")
	}

	switch obj := callee.AsObj().(type) {
	case *value.ObjClosure:
		return v.callClosure(obj, argCount)
	case *value.ObjNative:
		args := v.stack[v.stackTop-argCount : v.stackTop]
		result, err := obj.Fn(args)
		if err != nil {
			return v.runtimeError("%s", err.Error())
		}
		v.stackTop -= argCount + 1
		v.push(result)
		return nil
	case *value.ObjClass:
		inst := v.heap.NewInstance(obj)
		v.stack[v.stackTop-argCount-1] = value.Obj(inst)
		if initializer, ok := obj.Methods.Get(v.initString); ok {
			return v.callClosure(initializer.AsObj().(*value.ObjClosure), argCount)
		}
		if argCount != 0 {
			return v.runtimeError("Expected 0 arguments but got %d.", argCount)
		}
		return nil
	case *value.ObjBoundMethod:
		v.stack[v.stackTop-argCount-1] = obj.Receiver
		return v.callClosure(obj.Method, argCount)
	default:
		return v.runtimeError("Can only call functions and classes.")
	}
}

// callClosure pushes a new call frame for closure, enforcing its
// arity and the VM's frame-depth limit.
func (v *VM) callClosure(closure *value.ObjClosure, argCount int) error {
	if argCount != closure.Fn.Arity {
		return v.runtimeError("Expected %d arguments but got %d.", closure.Fn.Arity, argCount)
	}
	if v.frameCnt == framesMax {
		return v.runtimeError("Stack overflow.")
	}

	v.frames[v.frameCnt] = frame{
		closure: closure,
		ip:      0,
		base:    v.stackTop - argCount - 1,
	}
	v.frameCnt++
	return nil
}

// invoke fuses "look up a method by name, then call it" into one step
// for the common `receiver.method(args)` call site, skipping the
// intermediate ObjBoundMethod allocation OP_GET_PROPERTY+OP_CALL would
// otherwise need.
func (v *VM) invoke(name *value.ObjString, argCount int) error {
	receiver := v.peek(argCount)
	if !receiver.IsObjType(value.ObjTypeInstance) {
		return v.runtimeError("Only instances have methods.")
	}
	inst := receiver.AsObj().(*value.ObjInstance)

	if field, ok := inst.Fields.Get(name); ok {
		v.stack[v.stackTop-argCount-1] = field
		return v.callValue(field, argCount)
	}
	return v.invokeFromClass(inst.Class, name, argCount)
}

func (v *VM) invokeFromClass(class *value.ObjClass, name *value.ObjString, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return v.runtimeError("Undefined property '%s'.", name.Bytes)
	}
	return v.callClosure(method.AsObj().(*value.ObjClosure), argCount)
}

// bindMethod looks up name on class and, if found, pushes a fresh
// ObjBoundMethod pairing it with the receiver already sitting on top
// of the stack (replacing it).
func (v *VM) bindMethod(class *value.ObjClass, name *value.ObjString) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return v.runtimeError("Undefined property '%s'.", name.Bytes)
	}
	bound := v.heap.NewBoundMethod(v.peek(0), method.AsObj().(*value.ObjClosure))
	v.pop()
	v.push(value.Obj(bound))
	return nil
}

// captureUpvalue returns the open upvalue already tracking slot, or
// allocates and registers a new one. Reusing an existing upvalue for
// the same slot is what makes two closures created in the same scope
// share one mutable cell.
func (v *VM) captureUpvalue(slot int) *value.ObjUpvalue {
	for _, o := range v.openUps {
		if o.slot == slot {
			return o.uv
		}
	}
	uv := v.heap.NewUpvalue(&v.stack[slot])
	v.openUps = append(v.openUps, openUpvalue{slot: slot, uv: uv})
	return uv
}

// closeUpvalues closes every open upvalue at or above fromSlot —
// called when a block scope or a function call returns, so the
// closed-over value outlives the stack slot it used to alias.
func (v *VM) closeUpvalues(fromSlot int) {
	kept := v.openUps[:0]
	for _, o := range v.openUps {
		if o.slot >= fromSlot {
			o.uv.Close()
		} else {
			kept = append(kept, o)
		}
	}
	v.openUps = kept
}
