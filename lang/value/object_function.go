package value

import "fmt"

// ObjFunction is a compiled function: its arity, how many upvalues its
// closures must capture, an optional name, and the bytecode chunk that
// implements its body. The top-level script is itself represented as an
// anonymous, zero-arity ObjFunction.
type ObjFunction struct {
	Arity        int
	UpvalueCount int
	Name         *ObjString // nil for the top-level script
	Chunk        Chunk
}

var _ Value = (*ObjFunction)(nil)

func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars())
}
func (f *ObjFunction) Type() string { return "function" }

// ObjNative is a host-provided callable: the clock() builtin and any future
// additions follow this shape (spec §6).
type ObjNative struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

var _ Value = (*ObjNative)(nil)

func (n *ObjNative) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }
func (n *ObjNative) Type() string   { return "native" }
