package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlang/lumen/pkg/value"
)

// newTestHeap returns a heap whose MarkRoots is driven entirely by the
// test, standing in for the VM's own markRoots during these unit tests.
func newTestHeap(roots func(h *Heap)) *Heap {
	h := NewHeap()
	h.MarkRoots = func() { roots(h) }
	return h
}

func TestCollectDropsUnreachableStrings(t *testing.T) {
	h := newTestHeap(func(h *Heap) {})

	kept := h.InternString("kept")
	h.InternString("garbage")

	h.MarkRoots = func() { h.MarkObject(kept) }
	h.Collect()

	assert.NotNil(t, h.Strings.Table().FindString("kept", kept.Hash))
	assert.Nil(t, h.Strings.Table().FindString("garbage", fnv1aForTest("garbage")))
}

func TestCollectTracesTransitiveReferences(t *testing.T) {
	h := NewHeap()

	fn := h.NewFunction()
	fn.Name = h.InternString("f")
	closure := h.NewClosure(fn, nil)

	// Only the closure is rooted; its function and the function's name
	// are reachable solely by tracing through it. If blacken did not
	// chase ObjClosure -> ObjFunction -> Name, the interned "f" string
	// would be unmarked and RemoveUnreachable would drop it from the
	// intern table even though the closure survives.
	h.MarkRoots = func() { h.MarkObject(closure) }
	h.Collect()

	assert.NotNil(t, h.Strings.Table().FindString("f", fn.Name.Hash),
		"the function's name must survive via transitive marking through its closure")
}

func TestCollectUnlinksUnreachableObjectFromAllocationList(t *testing.T) {
	h := NewHeap()

	kept := h.NewFunction()
	h.NewFunction() // unreachable, never rooted

	h.MarkRoots = func() { h.MarkObject(kept) }
	before := h.BytesAllocated()
	h.Collect()

	assert.Less(t, h.BytesAllocated(), before, "sweep should have charged the unreachable function's size back off the budget")
}

func TestStressModeCollectsOnEveryTrack(t *testing.T) {
	h := NewHeap()
	h.Stress = true
	collections := 0
	h.MarkRoots = func() { collections++ }

	h.NewFunction()
	h.NewFunction()
	h.NewFunction()

	assert.Equal(t, 3, collections, "stress mode runs a full collection on every single Track call")
}

func TestHeapGrowthReschedulesNextGCProportionally(t *testing.T) {
	h := NewHeap()
	h.MarkRoots = func() {}

	h.Collect()
	survivorBytes := h.BytesAllocated()
	assert.Equal(t, survivorBytes*growFactor, h.nextGC)
}

func TestMarkObjectIsIdempotent(t *testing.T) {
	h := NewHeap()
	s := h.InternString("x")
	h.MarkObject(s)
	before := len(h.gray)
	h.MarkObject(s)
	assert.Equal(t, before, len(h.gray), "marking an already-marked object does not requeue it")
}

func TestMarkTableMarksKeysAndValues(t *testing.T) {
	h := NewHeap()
	tbl := value.NewTable()
	key := h.InternString("field")
	valStr := h.InternString("payload")
	tbl.Set(key, value.Obj(valStr))

	h.MarkTable(tbl)
	require.True(t, key.Marked())
	require.True(t, valStr.Marked())
}

func fnv1aForTest(s string) uint32 {
	const (
		offsetBasis = 2166136261
		prime       = 16777619
	)
	hsh := uint32(offsetBasis)
	for i := 0; i < len(s); i++ {
		hsh ^= uint32(s[i])
		hsh *= prime
	}
	return hsh
}
