// Package value implements the Lox runtime value universe: the tagged
// value kinds (nil, boolean, number, heap object), the heap object variants
// (interned string, function, closure, upvalue, class, instance, bound
// method, native), the bytecode container (Chunk/OpCode) that functions own,
// and the open-addressed string-interning table.
package value

import "fmt"

// Value is implemented by every kind a Lox variable may hold: NilType, Bool,
// Number, and every Object variant (*ObjString, *ObjFunction, *ObjClosure,
// *ObjUpvalue, *ObjClass, *ObjInstance, *ObjBoundMethod, *ObjNative).
type Value interface {
	// String returns a human-readable rendering, used by the print statement
	// and by runtime error messages.
	String() string
	// Type names the value's kind, used in type-mismatch error messages.
	Type() string
}

// NilType is the type of the singleton Nil value.
type NilType struct{}

// Nil is the Lox nil value.
var Nil = NilType{}

func (NilType) String() string { return "nil" }
func (NilType) Type() string   { return "nil" }

// Bool is the Lox boolean type.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "bool" }

// Number is the Lox number type: an IEEE-754 double.
type Number float64

func (n Number) String() string {
	f := float64(n)
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
func (Number) Type() string { return "number" }

// IsFalsey reports whether v is falsey: nil or false. Every other value,
// including 0 and the empty string, is truthy.
func IsFalsey(v Value) bool {
	switch v := v.(type) {
	case NilType:
		return true
	case Bool:
		return !bool(v)
	default:
		return false
	}
}

// Equal implements Lox's strict equality: values of different kinds are
// never equal, numbers compare by ==, booleans and nil by identity (i.e. by
// Go equality of their underlying kind), and object references by identity
// except that interned strings with equal content share a reference so
// string equality reduces to pointer equality.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case NilType:
		_, ok := b.(NilType)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case *ObjString:
		bv, ok := b.(*ObjString)
		return ok && av == bv
	default:
		// every other object kind compares by reference identity
		return a == b
	}
}
