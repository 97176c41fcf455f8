// Package value implements the runtime value representation: the
// tagged Value union (nil/bool/number/object-reference), the shared
// object header every heap object embeds, the object variants
// (strings, functions, closures, upvalues, classes, instances, bound
// methods), the open-addressed hash table keyed by interned strings,
// and the string interner itself.
//
// These live together in one package, rather than split across
// pkg/table and pkg/interner, because Class and Instance (object
// variants) embed Table fields: splitting them into separate packages
// would create an import cycle. Tightly related concerns live as
// multiple files inside one package elsewhere in this module too
// (pkg/vm holds vm.go, run.go, calls.go, and errors.go together)
// rather than splitting by type.
package value

// ObjType is the discriminant tag every heap object carries.
type ObjType byte

const (
	ObjTypeString ObjType = iota
	ObjTypeFunction
	ObjTypeNative
	ObjTypeClosure
	ObjTypeUpvalue
	ObjTypeClass
	ObjTypeInstance
	ObjTypeBoundMethod
)

// Object is satisfied by every heap-allocated variant. The GC walks
// the intrusive allocation list via Next/SetNext and flips Marked via
// SetMarked during a mark-sweep cycle; nothing outside pkg/gc and
// pkg/value needs to call SetMarked/SetNext directly.
type Object interface {
	Type() ObjType
	Marked() bool
	SetMarked(bool)
	Next() Object
	SetNext(Object)
	Size() int
	SetSize(int)
}

// Header is the shared object header every heap object embeds: a type
// tag, a mark bit, and a next pointer threading every live heap object
// onto the VM's intrusive allocation list in allocation order. Every
// object variant embeds Header and gets Object satisfied for free.
//
// Safety invariant: an object must have Typ, marked, and next
// populated before any further allocation can occur, so the allocator
// never observes a partially-initialized header. This holds trivially
// here — Go struct literals are initialized atomically from the GC's
// point of view (no concurrent collector can observe a half-built
// struct) — but callers still fill Header first as documentation of
// the invariant.
type Header struct {
	Typ    ObjType
	marked bool
	next   Object
	size   int
}

func (h *Header) Type() ObjType    { return h.Typ }
func (h *Header) Marked() bool     { return h.marked }
func (h *Header) SetMarked(m bool) { h.marked = m }
func (h *Header) Next() Object     { return h.next }
func (h *Header) SetNext(o Object) { h.next = o }
func (h *Header) Size() int        { return h.size }
func (h *Header) SetSize(s int)    { h.size = s }
