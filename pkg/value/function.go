package value

// ObjFunction is a compiled function body: its arity, how many
// upvalues its closures must capture, and the chunk of bytecode the
// compiler emitted for it.
type ObjFunction struct {
	Header
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Name         *ObjString
}

// NativeFn is the signature every bridged Go function exposed to
// lumen source code implements: it receives its arguments and either
// returns a value or a runtime error message.
type NativeFn func(args []Value) (Value, error)

// ObjNative wraps a Go function as a callable lumen value, letting the
// runtime bridge host functionality into source code as an ordinary
// callable.
type ObjNative struct {
	Header
	Name string
	Fn   NativeFn
}

// ObjUpvalue is a reference cell shared between a closure and the
// stack slot (or, once closed, the heap copy) it captures. Location
// points into the owning VM's operand stack while the upvalue is
// open; Close copies the current value into Closed and repoints
// Location at it. pkg/vm tracks which stack slot each open upvalue
// belongs to itself, rather than this type threading an intrusive
// open-upvalue list, since that bookkeeping is VM-internal and
// pkg/value has no business knowing about the call stack.
type ObjUpvalue struct {
	Header
	Location *Value
	Closed   Value
}

// Close copies the pointed-to value into the upvalue's own storage and
// repoints Location at that storage, detaching it from the stack slot
// it used to alias.
func (u *ObjUpvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

// ObjClosure pairs a compiled function with the upvalues its nested
// functions/blocks captured at the point it was created by OP_CLOSURE.
type ObjClosure struct {
	Header
	Fn       *ObjFunction
	Upvalues []*ObjUpvalue
}
