package value

// ObjString is an immutable, interned byte string. Two ObjStrings with
// equal bytes are always the same pointer — strings are unique by
// content — which is what lets Value equality treat Obj comparison as
// plain pointer identity for strings too.
type ObjString struct {
	Header
	Bytes string
	Hash  uint32
}

func fnv1a(s string) uint32 {
	const (
		offsetBasis = 2166136261
		prime       = 16777619
	)
	h := uint32(offsetBasis)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// Interner is the set of canonical string objects keyed by FNV-1a hash
// of their bytes. It is backed by the same open-addressed Table as
// every other string-keyed map in the runtime: interned strings are
// stored as keys with a Nil value, so the same probing logic that
// finds a class field also finds an interned string.
type Interner struct {
	strings *Table
}

// NewInterner returns an empty interner. Intern's alloc callback is
// called for every newly-created ObjString so the GC's allocation list
// and bytes-allocated counter stay authoritative; gc.Heap.InternString
// is the caller that supplies it.
func NewInterner() *Interner {
	return &Interner{strings: NewTable()}
}

// Table returns the backing table, so the GC can call
// RemoveUnreachable on it during sweep.
func (in *Interner) Table() *Table { return in.strings }

// Intern returns the canonical ObjString for bytes, allocating via
// alloc and registering it in the intern table if no equal string
// exists yet. The caller retains ownership of bytes: a Go string is
// already immutable and independent of its origin, so there is no
// separate ownership-transfer path needed to avoid a double free.
func (in *Interner) Intern(bytes string, alloc func(bytes string, hash uint32) *ObjString) *ObjString {
	hash := fnv1a(bytes)
	if existing := in.strings.FindString(bytes, hash); existing != nil {
		return existing
	}
	s := alloc(bytes, hash)
	in.strings.Set(s, Nil)
	return s
}
