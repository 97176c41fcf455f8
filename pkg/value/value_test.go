package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruthiness(t *testing.T) {
	assert.False(t, Truth(Nil))
	assert.False(t, Truth(False))
	assert.True(t, Truth(True))
	assert.True(t, Truth(Number(0)), "0 is truthy")
	assert.True(t, Truth(Obj(internTestString(""))), "the empty string is truthy")
}

func TestEqualIsStrictOnKind(t *testing.T) {
	assert.True(t, Equal(Number(1), Number(1)))
	assert.False(t, Equal(Number(1), Bool(true)), "different kinds are never equal")
	assert.False(t, Equal(Nil, Bool(false)))
	assert.True(t, Equal(Nil, Nil))
}

func TestEqualOnStringsIsPointerIdentity(t *testing.T) {
	a := internTestString("hi")
	b := internTestString("hi") // deliberately NOT the same pointer
	assert.True(t, Equal(Obj(a), Obj(a)))
	assert.False(t, Equal(Obj(a), Obj(b)), "two distinct *ObjString with equal bytes are only == if interned through the same Interner")
}

func TestStringRendering(t *testing.T) {
	assert.Equal(t, "nil", Nil.String())
	assert.Equal(t, "true", True.String())
	assert.Equal(t, "false", False.String())
	assert.Equal(t, "1", Number(1).String())
	assert.Equal(t, "1.5", Number(1.5).String())
	assert.Equal(t, "hello", Obj(internTestString("hello")).String())
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "nil", Nil.TypeName())
	assert.Equal(t, "bool", True.TypeName())
	assert.Equal(t, "number", Number(1).TypeName())
	assert.Equal(t, "string", Obj(internTestString("x")).TypeName())

	class := NewClass(internTestString("Point"))
	assert.Equal(t, "class", Obj(class).TypeName())

	inst := NewInstance(class)
	assert.Equal(t, "instance", Obj(inst).TypeName())
}
