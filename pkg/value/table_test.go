package value

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func internTestString(bytes string) *ObjString {
	return &ObjString{Bytes: bytes, Hash: fnv1a(bytes)}
}

func TestTableSetGetDelete(t *testing.T) {
	tbl := NewTable()
	key := internTestString("answer")

	isNew := tbl.Set(key, Number(42))
	assert.True(t, isNew, "first Set of a key reports new")

	v, ok := tbl.Get(key)
	require.True(t, ok)
	assert.Equal(t, 42.0, v.AsNumber())

	isNew = tbl.Set(key, Number(43))
	assert.False(t, isNew, "overwriting an existing key is not new")

	v, _ = tbl.Get(key)
	assert.Equal(t, 43.0, v.AsNumber())

	assert.True(t, tbl.Delete(key))
	_, ok = tbl.Get(key)
	assert.False(t, ok, "deleted key is absent")

	assert.False(t, tbl.Delete(key), "deleting twice reports false the second time")
}

func TestTableTombstoneKeepsProbeChainIntact(t *testing.T) {
	tbl := NewTable()
	a := internTestString("a")
	b := internTestString("b")
	tbl.Set(a, Number(1))
	tbl.Set(b, Number(2))

	require.True(t, tbl.Delete(a))

	v, ok := tbl.Get(b)
	require.True(t, ok, "deleting a does not break lookups for b even if they collided")
	assert.Equal(t, 2.0, v.AsNumber())
}

func TestTableGrowsAndRehashesPastLoadFactor(t *testing.T) {
	tbl := NewTable()
	keys := make([]*ObjString, 0, 64)
	for i := 0; i < 64; i++ {
		k := internTestString(fmt.Sprintf("key%d", i))
		keys = append(keys, k)
		tbl.Set(k, Number(float64(i)))
	}

	assert.Equal(t, 64, tbl.Count())
	for i, k := range keys {
		v, ok := tbl.Get(k)
		require.True(t, ok)
		assert.Equal(t, float64(i), v.AsNumber())
	}
}

func TestTableAddAllCopiesEntries(t *testing.T) {
	src := NewTable()
	dst := NewTable()

	x := internTestString("x")
	y := internTestString("y")
	src.Set(x, Number(1))
	src.Set(y, Number(2))

	dst.Set(y, Number(99)) // subclass already overrode this one

	dst.AddAll(src)

	vx, _ := dst.Get(x)
	assert.Equal(t, 1.0, vx.AsNumber())

	// AddAll used as inheritance copies superclass methods in first;
	// a subclass's own override happening before AddAll would be lost.
	// Here AddAll runs after the override, matching table_add_all's
	// semantics of "last Set wins" rather than "dst wins".
	vy, _ := dst.Get(y)
	assert.Equal(t, 2.0, vy.AsNumber())
}

func TestTableFindStringByContent(t *testing.T) {
	tbl := NewTable()
	s := internTestString("hello")
	tbl.Set(s, Nil)

	found := tbl.FindString("hello", fnv1a("hello"))
	require.NotNil(t, found)
	assert.Same(t, s, found)

	assert.Nil(t, tbl.FindString("goodbye", fnv1a("goodbye")))
}

func TestTableRemoveUnreachableDropsUnmarkedKeys(t *testing.T) {
	tbl := NewTable()
	live := internTestString("live")
	dead := internTestString("dead")
	live.SetMarked(true)
	tbl.Set(live, Nil)
	tbl.Set(dead, Nil)

	tbl.RemoveUnreachable()

	assert.NotNil(t, tbl.FindString("live", live.Hash))
	assert.Nil(t, tbl.FindString("dead", dead.Hash))
}

func TestTableEachVisitsEveryLiveEntry(t *testing.T) {
	tbl := NewTable()
	a := internTestString("a")
	b := internTestString("b")
	tbl.Set(a, Number(1))
	tbl.Set(b, Number(2))
	tbl.Delete(a)

	seen := map[string]float64{}
	tbl.Each(func(key *ObjString, v Value) {
		seen[key.Bytes] = v.AsNumber()
	})

	assert.Equal(t, map[string]float64{"b": 2}, seen, "tombstoned entries are skipped")
}
