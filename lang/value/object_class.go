package value

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// ObjClass is a class: its name and a table mapping method-name strings to
// the closures that implement them. Single inheritance copies the
// superclass's methods into the subclass at class-definition time (OP_
// INHERIT), so method lookup never has to walk a superclass chain at call
// time.
type ObjClass struct {
	Name    *ObjString
	Methods *swiss.Map[*ObjString, *ObjClosure]
}

var _ Value = (*ObjClass)(nil)

// NewClass returns an empty class named name.
func NewClass(name *ObjString) *ObjClass {
	return &ObjClass{Name: name, Methods: swiss.NewMap[*ObjString, *ObjClosure](8)}
}

func (c *ObjClass) String() string { return c.Name.Chars() }
func (c *ObjClass) Type() string   { return "class" }

// ObjInstance is an instance of a class: a fixed class reference and a
// freely-mutating table of field-name to value.
type ObjInstance struct {
	Class  *ObjClass
	Fields *swiss.Map[*ObjString, Value]
}

var _ Value = (*ObjInstance)(nil)

// NewInstance returns a new, field-less instance of class.
func NewInstance(class *ObjClass) *ObjInstance {
	return &ObjInstance{Class: class, Fields: swiss.NewMap[*ObjString, Value](8)}
}

func (i *ObjInstance) String() string { return fmt.Sprintf("%s instance", i.Class.Name.Chars()) }
func (i *ObjInstance) Type() string   { return "instance" }

// ObjBoundMethod pairs a receiver value with the method closure it was
// bound to by a property access, so that calling it implicitly supplies the
// receiver as the method's "this".
type ObjBoundMethod struct {
	Receiver Value
	Method   *ObjClosure
}

var _ Value = (*ObjBoundMethod)(nil)

func (b *ObjBoundMethod) String() string {
	return fmt.Sprintf("<fn %s>", b.Method.Function.nameOrScript())
}
func (b *ObjBoundMethod) Type() string { return "bound method" }
