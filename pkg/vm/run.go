package vm

import (
	"fmt"

	"github.com/lumenlang/lumen/pkg/chunk"
	"github.com/lumenlang/lumen/pkg/value"
)

func (v *VM) frame() *frame { return &v.frames[v.frameCnt-1] }

func (v *VM) readByte(f *frame) byte {
	b := f.closure.Fn.Chunk.Code[f.ip]
	f.ip++
	return b
}

func (v *VM) readShort(f *frame) int {
	hi := f.closure.Fn.Chunk.Code[f.ip]
	lo := f.closure.Fn.Chunk.Code[f.ip+1]
	f.ip += 2
	return int(hi)<<8 | int(lo)
}

func (v *VM) readConstant(f *frame) value.Value {
	return f.closure.Fn.Chunk.Constants[v.readByte(f)]
}

func (v *VM) readString(f *frame) *value.ObjString {
	return v.readConstant(f).AsObj().(*value.ObjString)
}

// run is the VM's dispatch loop: decode one opcode from the current
// frame's chunk, act on it, repeat, until an OP_RETURN unwinds the
// outermost frame or a runtime error aborts execution.
func (v *VM) run() error {
	f := v.frame()

	for {
		if v.traceExec {
			v.logger.Debug("exec", "chunk", chunk.Disassemble(f.closure.Fn.Chunk, "trace"), "ip", f.ip)
		}

		op := chunk.Op(v.readByte(f))
		switch op {
		case chunk.OpConstant:
			v.push(v.readConstant(f))

		case chunk.OpNil:
			v.push(value.Nil)
		case chunk.OpTrue:
			v.push(value.True)
		case chunk.OpFalse:
			v.push(value.False)
		case chunk.OpPop:
			v.pop()

		case chunk.OpGetLocal:
			slot := v.readByte(f)
			v.push(v.stack[f.base+int(slot)])
		case chunk.OpSetLocal:
			slot := v.readByte(f)
			v.stack[f.base+int(slot)] = v.peek(0)

		case chunk.OpGetGlobal:
			name := v.readString(f)
			val, ok := v.globals.Get(name.Bytes)
			if !ok {
				return v.runtimeError("Undefined variable '%s'.", name.Bytes)
			}
			v.push(val)
		case chunk.OpDefineGlobal:
			name := v.readString(f)
			v.globals.Put(name.Bytes, v.peek(0))
			v.pop()
		case chunk.OpSetGlobal:
			name := v.readString(f)
			if _, ok := v.globals.Get(name.Bytes); !ok {
				return v.runtimeError("Undefined variable '%s'.", name.Bytes)
			}
			v.globals.Put(name.Bytes, v.peek(0))

		case chunk.OpGetUpvalue:
			slot := v.readByte(f)
			v.push(*f.closure.Upvalues[slot].Location)
		case chunk.OpSetUpvalue:
			slot := v.readByte(f)
			*f.closure.Upvalues[slot].Location = v.peek(0)

		case chunk.OpGetProperty:
			if !v.peek(0).IsObjType(value.ObjTypeInstance) {
				return v.runtimeError("Only instances have properties.")
			}
			inst := v.peek(0).AsObj().(*value.ObjInstance)
			name := v.readString(f)
			if val, ok := inst.Fields.Get(name); ok {
				v.pop()
				v.push(val)
				break
			}
			if err := v.bindMethod(inst.Class, name); err != nil {
				return err
			}
		case chunk.OpSetProperty:
			if !v.peek(1).IsObjType(value.ObjTypeInstance) {
				return v.runtimeError("Only instances have fields.")
			}
			inst := v.peek(1).AsObj().(*value.ObjInstance)
			name := v.readString(f)
			inst.Fields.Set(name, v.peek(0))
			val := v.pop()
			v.pop()
			v.push(val)
		case chunk.OpGetSuper:
			name := v.readString(f)
			super := v.pop().AsObj().(*value.ObjClass)
			if err := v.bindMethod(super, name); err != nil {
				return err
			}

		case chunk.OpEqual:
			b := v.pop()
			a := v.pop()
			v.push(value.Bool(value.Equal(a, b)))
		case chunk.OpGreater:
			if err := v.numericBinary(func(a, b float64) value.Value { return value.Bool(a > b) }); err != nil {
				return err
			}
		case chunk.OpLess:
			if err := v.numericBinary(func(a, b float64) value.Value { return value.Bool(a < b) }); err != nil {
				return err
			}

		case chunk.OpAdd:
			if err := v.add(); err != nil {
				return err
			}
		case chunk.OpSubtract:
			if err := v.numericBinary(func(a, b float64) value.Value { return value.Number(a - b) }); err != nil {
				return err
			}
		case chunk.OpMultiply:
			if err := v.numericBinary(func(a, b float64) value.Value { return value.Number(a * b) }); err != nil {
				return err
			}
		case chunk.OpDivide:
			if err := v.numericBinary(func(a, b float64) value.Value { return value.Number(a / b) }); err != nil {
				return err
			}

		case chunk.OpNot:
			v.push(value.Bool(!value.Truth(v.pop())))
		case chunk.OpNegate:
			if !v.peek(0).IsNumber() {
				return v.runtimeError("Operand must be a number.")
			}
			v.push(value.Number(-v.pop().AsNumber()))

		case chunk.OpPrint:
			fmt.Fprintln(v.out, v.pop().String())

		case chunk.OpJump:
			offset := v.readShort(f)
			f.ip += offset
		case chunk.OpJumpIfFalse:
			offset := v.readShort(f)
			if !value.Truth(v.peek(0)) {
				f.ip += offset
			}
		case chunk.OpLoop:
			offset := v.readShort(f)
			f.ip -= offset

		case chunk.OpCall:
			argCount := int(v.readByte(f))
			if err := v.callValue(v.peek(argCount), argCount); err != nil {
				return err
			}
			f = v.frame()

		case chunk.OpInvoke:
			name := v.readString(f)
			argCount := int(v.readByte(f))
			if err := v.invoke(name, argCount); err != nil {
				return err
			}
			f = v.frame()

		case chunk.OpSuperInvoke:
			name := v.readString(f)
			argCount := int(v.readByte(f))
			super := v.pop().AsObj().(*value.ObjClass)
			if err := v.invokeFromClass(super, name, argCount); err != nil {
				return err
			}
			f = v.frame()

		case chunk.OpClosure:
			fn := v.readConstant(f).AsObj().(*value.ObjFunction)
			upvalues := make([]*value.ObjUpvalue, fn.UpvalueCount)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := v.readByte(f)
				index := v.readByte(f)
				if isLocal != 0 {
					upvalues[i] = v.captureUpvalue(f.base + int(index))
				} else {
					upvalues[i] = f.closure.Upvalues[index]
				}
			}
			closure := v.heap.NewClosure(fn, upvalues)
			v.push(value.Obj(closure))

		case chunk.OpCloseUpvalue:
			v.closeUpvalues(v.stackTop - 1)
			v.pop()

		case chunk.OpReturn:
			result := v.pop()
			v.closeUpvalues(f.base)
			v.frameCnt--
			if v.frameCnt == 0 {
				v.pop()
				return nil
			}
			v.stackTop = f.base
			v.push(result)
			f = v.frame()

		case chunk.OpClass:
			name := v.readString(f)
			v.push(value.Obj(v.heap.NewClass(name)))
		case chunk.OpInherit:
			if !v.peek(1).IsObjType(value.ObjTypeClass) {
				return v.runtimeError("Superclass must be a class.")
			}
			super := v.peek(1).AsObj().(*value.ObjClass)
			sub := v.peek(0).AsObj().(*value.ObjClass)
			sub.Methods.AddAll(super.Methods)
			v.pop() // the subclass
		case chunk.OpMethod:
			name := v.readString(f)
			v.defineMethod(name)

		default:
			return v.runtimeError("Unknown opcode %d.", op)
		}
	}
}

func (v *VM) numericBinary(op func(a, b float64) value.Value) error {
	if !v.peek(0).IsNumber() || !v.peek(1).IsNumber() {
		return v.runtimeError("Operands must be numbers.")
	}
	b := v.pop().AsNumber()
	a := v.pop().AsNumber()
	v.push(op(a, b))
	return nil
}

// add implements `+`'s dual number-or-string overload: two numbers add
// arithmetically, two strings concatenate, anything else is a runtime
// error.
func (v *VM) add() error {
	b := v.peek(0)
	a := v.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		v.pop()
		v.pop()
		v.push(value.Number(a.AsNumber() + b.AsNumber()))
	case a.IsObjType(value.ObjTypeString) && b.IsObjType(value.ObjTypeString):
		v.pop()
		v.pop()
		as := a.AsObj().(*value.ObjString)
		bs := b.AsObj().(*value.ObjString)
		v.push(value.Obj(v.heap.InternString(as.Bytes + bs.Bytes)))
	default:
		return v.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}

// defineMethod pops a just-compiled closure off the stack and binds it
// under name in the class sitting just below it — OP_METHOD runs once
// per method body, immediately after the closure for it is pushed by
// OP_CLOSURE.
func (v *VM) defineMethod(name *value.ObjString) {
	method := v.pop()
	class := v.peek(0).AsObj().(*value.ObjClass)
	class.Methods.Set(name, method)
}

