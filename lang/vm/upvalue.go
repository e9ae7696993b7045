package vm

import (
	"unsafe"

	"github.com/mna/loxvm/lang/value"
)

// slotIndex returns the index of p within vm.stack, used only to keep the
// open-upvalue list ordered by descending stack position the same way a
// pointer comparison would in a language with ordered pointers.
func (vm *VM) slotIndex(p *value.Value) int {
	base := uintptr(unsafe.Pointer(&vm.stack[0]))
	addr := uintptr(unsafe.Pointer(p))
	return int((addr - base) / unsafe.Sizeof(vm.stack[0]))
}

// captureUpvalue returns an open upvalue referencing local, reusing an
// existing one if the stack slot is already captured. New upvalues are
// inserted into vm.openUpvalues so the list stays sorted by descending
// stack index, head first (spec §3).
func (vm *VM) captureUpvalue(local *value.Value) *value.ObjUpvalue {
	var prev *value.ObjUpvalue
	upvalue := vm.openUpvalues
	localIdx := vm.slotIndex(local)

	for upvalue != nil && vm.slotIndex(upvalue.Location) > localIdx {
		prev = upvalue
		upvalue = upvalue.Next
	}
	if upvalue != nil && vm.slotIndex(upvalue.Location) == localIdx {
		return upvalue
	}

	created := value.NewOpenUpvalue(local)
	created.Next = upvalue
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue referencing a stack slot at or
// above last, detaching them from vm.openUpvalues as it goes. Called when a
// scope exits (OP_CLOSE_UPVALUE) or a function returns.
func (vm *VM) closeUpvalues(last *value.Value) {
	lastIdx := vm.slotIndex(last)
	for vm.openUpvalues != nil && vm.slotIndex(vm.openUpvalues.Location) >= lastIdx {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.Next
	}
}
