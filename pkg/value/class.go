package value

// ObjClass is a class declaration: its name and its method table.
// Methods holds Values of kind KindObj wrapping *ObjClosure, keyed by
// interned method-name strings. Inherit (OP_INHERIT) copies a
// superclass's Methods into the subclass's via Table.AddAll before the
// subclass body's own OP_METHODs run, so overriding is just a second
// Set on the same key.
type ObjClass struct {
	Header
	Name    *ObjString
	Methods *Table
}

// NewClass returns an empty class named name.
func NewClass(name *ObjString) *ObjClass {
	c := &ObjClass{Name: name, Methods: NewTable()}
	c.Typ = ObjTypeClass
	return c
}

// ObjInstance is a runtime instance of a class: its class pointer plus
// an open field table assigned to freely by OP_SET_PROPERTY. Fields
// are never declared ahead of time — any identifier can be assigned as
// a new field on first write.
type ObjInstance struct {
	Header
	Class  *ObjClass
	Fields *Table
}

// NewInstance returns a fresh instance of class with no fields set.
func NewInstance(class *ObjClass) *ObjInstance {
	i := &ObjInstance{Class: class, Fields: NewTable()}
	i.Typ = ObjTypeInstance
	return i
}

// ObjBoundMethod pairs a receiver with one of its class's closures,
// produced by OP_GET_PROPERTY when the property names a method rather
// than a field. Calling it pushes Receiver into call-frame slot 0
// exactly as if the method had been invoked directly — the fusion
// OP_INVOKE/OP_SUPER_INVOKE opcodes skip allocating this object
// entirely on the common `obj.method(args)` call-site fast path.
type ObjBoundMethod struct {
	Header
	Receiver Value
	Method   *ObjClosure
}
