package value

import (
	"fmt"
	"math"
	"strconv"
)

// Kind discriminates the four members of the Value union.
type Kind byte

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObj
)

// Value is the tagged universe every VM stack slot, local, global, and
// field holds: nil, a bool, a float64 number, or a reference to a
// heap Object. This is a discriminated-record encoding rather than a
// NaN-boxed one; DESIGN.md records the reasoning behind that choice.
type Value struct {
	kind Kind
	num  float64
	b    bool
	obj  Object
}

var Nil = Value{kind: KindNil}
var True = Value{kind: KindBool, b: true}
var False = Value{kind: KindBool, b: false}

// Bool returns the canonical True/False Value for b.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Number wraps a float64 as a Value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Obj wraps a heap object reference as a Value.
func Obj(o Object) Value { return Value{kind: KindObj, obj: o} }

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObj() bool    { return v.kind == KindObj }

func (v Value) AsBool() bool     { return v.b }
func (v Value) AsNumber() float64 { return v.num }
func (v Value) AsObj() Object     { return v.obj }

func (v Value) IsObjType(t ObjType) bool {
	return v.kind == KindObj && v.obj.Type() == t
}

// Truth reports lumen's truthiness rule: nil and false are falsy,
// every other value — including 0 and "" — is truthy.
func Truth(v Value) bool {
	if v.kind == KindNil {
		return false
	}
	if v.kind == KindBool {
		return v.b
	}
	return true
}

// Equal implements lumen's equality rule: structural for nil/bool/number,
// reference identity for Obj (which, because strings are interned,
// coincides with byte-wise string equality). Values of different
// kinds are never equal.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.num == b.num
	case KindObj:
		return a.obj == b.obj
	default:
		return false
	}
}

// TypeName returns the runtime type name used by the `type` native and
// by diagnostic messages.
func (v Value) TypeName() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindObj:
		switch v.obj.Type() {
		case ObjTypeString:
			return "string"
		case ObjTypeFunction, ObjTypeClosure, ObjTypeNative:
			return "function"
		case ObjTypeClass:
			return "class"
		case ObjTypeInstance:
			return "instance"
		case ObjTypeBoundMethod:
			return "bound method"
		case ObjTypeUpvalue:
			return "upvalue"
		}
	}
	return "unknown"
}

// String renders v the way `print` writes it to output.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.num)
	case KindObj:
		return printObject(v.obj)
	default:
		return "<invalid value>"
	}
}

// formatNumber renders a float64 as its shortest round-trip decimal
// form. strconv.FormatFloat with the 'g' verb and precision -1 is Go's
// shortest-round-trip formatter, which is exactly that.
func formatNumber(n float64) string {
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if math.IsNaN(n) {
		return "nan"
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

func printObject(o Object) string {
	switch t := o.(type) {
	case *ObjString:
		return t.Bytes
	case *ObjFunction:
		if t.Name == nil {
			return "<script>"
		}
		return fmt.Sprintf("<fn %s>", t.Name.Bytes)
	case *ObjNative:
		return "<native fn>"
	case *ObjClosure:
		return printObject(t.Fn)
	case *ObjUpvalue:
		return "upvalue"
	case *ObjClass:
		return t.Name.Bytes
	case *ObjInstance:
		return fmt.Sprintf("%s instance", t.Class.Name.Bytes)
	case *ObjBoundMethod:
		return printObject(t.Method)
	default:
		return "<object>"
	}
}
