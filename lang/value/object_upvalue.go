package value

import "fmt"

// ObjUpvalue is a reference cell used to implement lexical capture across
// function boundaries. While open, Location points at a slot in the VM's
// value stack; Next links it into the VM's descending, by-stack-index
// linked list of open upvalues. Closing an upvalue copies the referenced
// value into Closed and repoints Location at it, so reads and writes through
// the upvalue keep working the same way regardless of whether it is open or
// closed (spec §3, §4.4).
type ObjUpvalue struct {
	Location *Value
	Closed   Value
	Next     *ObjUpvalue
}

var _ Value = (*ObjUpvalue)(nil)

func (u *ObjUpvalue) String() string { return "upvalue" }
func (u *ObjUpvalue) Type() string   { return "upvalue" }

// NewOpenUpvalue returns an upvalue referencing slot, a live stack location.
func NewOpenUpvalue(slot *Value) *ObjUpvalue {
	return &ObjUpvalue{Location: slot}
}

// Close copies the current referenced value into the upvalue itself and
// repoints Location at that copy, making the upvalue self-contained
// (independent of the stack slot it used to reference).
func (u *ObjUpvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

// IsClosed reports whether the upvalue has been closed.
func (u *ObjUpvalue) IsClosed() bool { return u.Location == &u.Closed }

// ObjClosure pairs a compiled function with the upvalues it captured at
// creation time. upvalues.length always equals function.UpvalueCount (spec
// §3, §8).
type ObjClosure struct {
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

var _ Value = (*ObjClosure)(nil)

func (c *ObjClosure) String() string { return fmt.Sprintf("<fn %s>", c.Function.nameOrScript()) }
func (c *ObjClosure) Type() string   { return "closure" }

func (f *ObjFunction) nameOrScript() string {
	if f.Name == nil {
		return "script"
	}
	return f.Name.Chars()
}
