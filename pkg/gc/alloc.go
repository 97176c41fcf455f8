package gc

import "github.com/lumenlang/lumen/pkg/value"

// Rough per-kind size estimates charged against the collection-trigger
// budget. These are not meant to reflect Go's actual memory layout
// exactly (Go's runtime already owns real accounting) — only to give
// Track a stable, monotonically-increasing signal so the heap-growth
// schedule behaves the same regardless of platform.
const (
	sizeHeader      = 24
	sizeFunction    = sizeHeader + 32
	sizeNative      = sizeHeader + 16
	sizeClosure     = sizeHeader + 24
	sizeUpvalue     = sizeHeader + 24
	sizeClass       = sizeHeader + 24
	sizeInstance    = sizeHeader + 24
	sizeBoundMethod = sizeHeader + 24
)

// InternString returns the canonical *value.ObjString for bytes,
// allocating and tracking a new one only if no equal string is already
// interned. This is the single entry point every other allocator in
// the VM and compiler uses to produce a string value, so that strings
// stay unique by content globally.
func (h *Heap) InternString(bytes string) *value.ObjString {
	return h.Strings.Intern(bytes, func(b string, hash uint32) *value.ObjString {
		s := &value.ObjString{Bytes: b, Hash: hash}
		s.Typ = value.ObjTypeString
		h.Track(s, sizeHeader+len(b))
		return s
	})
}

// NewFunction allocates an empty, arity-0 function named nil (the
// caller fills Arity/Name/Chunk once known — pkg/compiler builds one
// up incrementally as it compiles the function body).
func (h *Heap) NewFunction() *value.ObjFunction {
	fn := &value.ObjFunction{Chunk: value.NewChunk()}
	fn.Typ = value.ObjTypeFunction
	h.Track(fn, sizeFunction)
	return fn
}

// NewNative wraps fn as a callable native under name.
func (h *Heap) NewNative(name string, fn value.NativeFn) *value.ObjNative {
	n := &value.ObjNative{Name: name, Fn: fn}
	n.Typ = value.ObjTypeNative
	h.Track(n, sizeNative)
	return n
}

// NewClosure wraps fn with upvalues captured by OP_CLOSURE.
func (h *Heap) NewClosure(fn *value.ObjFunction, upvalues []*value.ObjUpvalue) *value.ObjClosure {
	c := &value.ObjClosure{Fn: fn, Upvalues: upvalues}
	c.Typ = value.ObjTypeClosure
	h.Track(c, sizeClosure)
	return c
}

// NewUpvalue allocates an open upvalue pointing at location.
func (h *Heap) NewUpvalue(location *value.Value) *value.ObjUpvalue {
	u := &value.ObjUpvalue{Location: location}
	u.Typ = value.ObjTypeUpvalue
	h.Track(u, sizeUpvalue)
	return u
}

// NewClass allocates an empty class named name.
func (h *Heap) NewClass(name *value.ObjString) *value.ObjClass {
	c := value.NewClass(name)
	c.Typ = value.ObjTypeClass
	h.Track(c, sizeClass)
	return c
}

// NewInstance allocates a fresh, fieldless instance of class.
func (h *Heap) NewInstance(class *value.ObjClass) *value.ObjInstance {
	i := value.NewInstance(class)
	i.Typ = value.ObjTypeInstance
	h.Track(i, sizeInstance)
	return i
}

// NewBoundMethod pairs receiver with method.
func (h *Heap) NewBoundMethod(receiver value.Value, method *value.ObjClosure) *value.ObjBoundMethod {
	m := &value.ObjBoundMethod{Receiver: receiver, Method: method}
	m.Typ = value.ObjTypeBoundMethod
	h.Track(m, sizeBoundMethod)
	return m
}
