// Package gc implements a tri-color mark-sweep collector. It tracks
// every heap object lumen allocates on an intrusive linked list (the
// same list structure value.Header.Next/SetNext expose) and frees
// nothing itself — Go's own allocator and garbage collector own actual
// memory reclamation — but it reproduces the observable effects a real
// mark-sweep collector has: unreachable objects are unlinked from the
// heap's bookkeeping list on sweep, interned strings with no surviving
// reference are dropped from the intern table, and BytesAllocated/
// NextGC track a heap-growth-triggered collection schedule. This is
// what makes GC transparency hold: a program's observable behavior
// never depends on whether or when collection ran, only that
// dead-object bookkeeping eventually shrinks.
package gc

import "github.com/lumenlang/lumen/pkg/value"

// growFactor: each collection sets the next collection's trigger to
// growFactor times the bytes still live.
const growFactor = 2

// initialNextGC is the starting collection threshold, a conservative
// 1MiB so a short-lived program never collects at all.
const initialNextGC = 1 << 20

// Heap owns the allocation list, the string interner, and the gray
// worklist used while tracing references.
type Heap struct {
	objects        value.Object
	Strings        *value.Interner
	bytesAllocated int
	nextGC         int
	gray           []value.Object
	Stress         bool

	// MarkRoots is called at the start of every collection cycle; the
	// owning VM sets this once, after both the VM and its Heap exist,
	// to a closure that walks the operand stack, call frames, open
	// upvalues, and the globals map, calling Heap.MarkObject/MarkValue
	// for each.
	MarkRoots func()

	// MarkCompilerRoots is called right after MarkRoots on every
	// collection cycle. A *compiler.Compiler sets it for the duration of
	// a single Compile call and clears it when done, so a collection
	// triggered mid-compile (any allocation the compiler makes can
	// trigger one, and under WithGCStress every one does) still sees
	// every function presently under
	// construction — and, through its chunk's constant pool, every
	// identifier string already emitted into it. Without this, an
	// in-progress compile has nothing on the operand stack yet for
	// MarkRoots to find, and a collection could evict an interned
	// identifier between two uses of the same name.
	MarkCompilerRoots func()

	// Log, if set, receives one line per collection cycle summarizing
	// bytes reclaimed — wired to log/slog by cmd/lumen's --trace flag,
	// never populated on a path that runs without being asked to.
	Log func(collected, before, after, nextGC int)
}

// NewHeap returns an empty heap with its string interner ready to use.
func NewHeap() *Heap {
	return &Heap{Strings: value.NewInterner(), nextGC: initialNextGC}
}

// BytesAllocated reports the heap's running allocation counter.
func (h *Heap) BytesAllocated() int { return h.bytesAllocated }

// Track first runs a collection if the heap is in stress mode or this
// allocation would take it over its threshold, then registers the
// freshly-constructed object on the allocation list and charges size
// against the collection-trigger budget. Collecting before linking
// keeps the new object, which nothing roots yet, out of that cycle's
// sweep. size is a caller-supplied estimate (a fixed per-kind constant
// is fine — the goal is a stable trigger schedule, not exact byte
// accounting, since Go's own allocator already owns real memory use).
func (h *Heap) Track(o value.Object, size int) {
	if h.Stress || h.bytesAllocated+size > h.nextGC {
		h.Collect()
	}

	o.SetNext(h.objects)
	o.SetSize(size)
	h.objects = o
	h.bytesAllocated += size
}

// MarkObject grays o: marking it reachable and pushing it onto the
// gray worklist for blacken to process, unless it is nil or already
// marked.
func (h *Heap) MarkObject(o value.Object) {
	if o == nil || o.Marked() {
		return
	}
	o.SetMarked(true)
	h.gray = append(h.gray, o)
}

// MarkValue grays v's referenced object, if v holds one.
func (h *Heap) MarkValue(v value.Value) {
	if v.IsObj() {
		h.MarkObject(v.AsObj())
	}
}

// MarkTable grays every key and value of t — used for every class's
// method table and every instance's field table.
func (h *Heap) MarkTable(t *value.Table) {
	t.Each(func(key *value.ObjString, v value.Value) {
		h.MarkObject(key)
		h.MarkValue(v)
	})
}

// Collect runs one full mark-sweep cycle: mark roots, trace references
// to black, drop unreachable interned strings, sweep the allocation
// list, and reschedule the next collection at growFactor times the
// bytes that survived.
func (h *Heap) Collect() {
	before := h.bytesAllocated

	if h.MarkRoots != nil {
		h.MarkRoots()
	}
	if h.MarkCompilerRoots != nil {
		h.MarkCompilerRoots()
	}
	h.traceReferences()
	h.Strings.Table().RemoveUnreachable()
	h.sweep()

	h.nextGC = h.bytesAllocated * growFactor
	if h.Log != nil {
		h.Log(before-h.bytesAllocated, before, h.bytesAllocated, h.nextGC)
	}
}

// traceReferences drains the gray worklist, blackening each object by
// marking everything it references in turn, until nothing gray
// remains.
func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		last := len(h.gray) - 1
		obj := h.gray[last]
		h.gray = h.gray[:last]
		h.blacken(obj)
	}
}

func (h *Heap) blacken(o value.Object) {
	switch t := o.(type) {
	case *value.ObjClosure:
		h.MarkObject(t.Fn)
		for _, uv := range t.Upvalues {
			h.MarkObject(uv)
		}
	case *value.ObjFunction:
		if t.Name != nil { // the top-level script function has no name
			h.MarkObject(t.Name)
		}
		if t.Chunk != nil {
			for _, c := range t.Chunk.Constants {
				h.MarkValue(c)
			}
		}
	case *value.ObjUpvalue:
		h.MarkValue(t.Closed)
	case *value.ObjClass:
		h.MarkObject(t.Name)
		h.MarkTable(t.Methods)
	case *value.ObjInstance:
		h.MarkObject(t.Class)
		h.MarkTable(t.Fields)
	case *value.ObjBoundMethod:
		h.MarkValue(t.Receiver)
		h.MarkObject(t.Method)
	case *value.ObjNative, *value.ObjString:
		// No outgoing references.
	}
}

// sweep walks the allocation list, unmarking survivors for the next
// cycle and unlinking (but not freeing — Go's own collector reclaims
// the memory once nothing references it) everything that stayed
// white.
func (h *Heap) sweep() {
	var previous value.Object
	obj := h.objects

	for obj != nil {
		if obj.Marked() {
			obj.SetMarked(false)
			previous = obj
			obj = obj.Next()
			continue
		}

		unreached := obj
		obj = obj.Next()
		if previous != nil {
			previous.SetNext(obj)
		} else {
			h.objects = obj
		}
		// unreached is now unlinked from h.objects; Go's collector
		// reclaims its memory once its last Go-level reference drops.
		// We still charge its tracked size back off the budget so the
		// trigger schedule reflects live bytes.
		h.bytesAllocated -= unreached.Size()
	}
}
