package vm

import (
	"fmt"

	"github.com/mna/loxvm/lang/value"
)

func (vm *VM) readByte(frame *CallFrame) byte {
	b := frame.closure.Function.Chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readShort(frame *CallFrame) int {
	hi := vm.readByte(frame)
	lo := vm.readByte(frame)
	return int(hi)<<8 | int(lo)
}

func (vm *VM) readConstant(frame *CallFrame) value.Value {
	return frame.closure.Function.Chunk.Constants[vm.readByte(frame)]
}

func (vm *VM) readString(frame *CallFrame) *value.ObjString {
	return vm.readConstant(frame).(*value.ObjString)
}

// run executes bytecode starting from the VM's current top call frame until
// that frame (and everything it calls) returns, reading and dispatching one
// instruction at a time (spec §5, §6).
func (vm *VM) run() error {
	frame := &vm.frames[vm.frameCount-1]

	for {
		op := value.OpCode(vm.readByte(frame))

		switch op {
		case value.OpConstant:
			vm.push(vm.readConstant(frame))

		case value.OpNil:
			vm.push(value.Nil)
		case value.OpTrue:
			vm.push(value.Bool(true))
		case value.OpFalse:
			vm.push(value.Bool(false))
		case value.OpPop:
			vm.pop()

		case value.OpGetLocal:
			slot := vm.readByte(frame)
			vm.push(vm.stack[frame.base+int(slot)])
		case value.OpSetLocal:
			slot := vm.readByte(frame)
			vm.stack[frame.base+int(slot)] = vm.peek(0)

		case value.OpGetGlobal:
			name := vm.readString(frame)
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars())
			}
			vm.push(v)
		case value.OpDefineGlobal:
			name := vm.readString(frame)
			vm.globals.Put(name, vm.peek(0))
			vm.pop()
		case value.OpSetGlobal:
			name := vm.readString(frame)
			if _, ok := vm.globals.Get(name); !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars())
			}
			vm.globals.Put(name, vm.peek(0))

		case value.OpGetUpvalue:
			slot := vm.readByte(frame)
			vm.push(*frame.closure.Upvalues[slot].Location)
		case value.OpSetUpvalue:
			slot := vm.readByte(frame)
			*frame.closure.Upvalues[slot].Location = vm.peek(0)

		case value.OpGetProperty:
			instance, ok := vm.peek(0).(*value.ObjInstance)
			if !ok {
				return vm.runtimeError("Only instances have properties.")
			}
			name := vm.readString(frame)
			if v, ok := instance.Fields.Get(name); ok {
				vm.pop()
				vm.push(v)
				break
			}
			if err := vm.bindMethod(instance.Class, name); err != nil {
				return err
			}
		case value.OpSetProperty:
			instance, ok := vm.peek(1).(*value.ObjInstance)
			if !ok {
				return vm.runtimeError("Only instances have fields.")
			}
			name := vm.readString(frame)
			instance.Fields.Put(name, vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)
		case value.OpGetSuper:
			name := vm.readString(frame)
			superclass := vm.pop().(*value.ObjClass)
			if err := vm.bindMethod(superclass, name); err != nil {
				return err
			}

		case value.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))
		case value.OpGreater:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Bool(a > b) }); err != nil {
				return err
			}
		case value.OpLess:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Bool(a < b) }); err != nil {
				return err
			}

		case value.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case value.OpSubtract:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Number(a - b) }); err != nil {
				return err
			}
		case value.OpMultiply:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Number(a * b) }); err != nil {
				return err
			}
		case value.OpDivide:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Number(a / b) }); err != nil {
				return err
			}

		case value.OpNot:
			vm.push(value.Bool(value.IsFalsey(vm.pop())))
		case value.OpNegate:
			n, ok := vm.peek(0).(value.Number)
			if !ok {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.pop()
			vm.push(-n)

		case value.OpPrint:
			fmt.Fprintln(vm.Stdout, vm.pop().String())

		case value.OpJump:
			offset := vm.readShort(frame)
			frame.ip += offset
		case value.OpJumpIfFalse:
			offset := vm.readShort(frame)
			if value.IsFalsey(vm.peek(0)) {
				frame.ip += offset
			}
		case value.OpLoop:
			offset := vm.readShort(frame)
			frame.ip -= offset

		case value.OpCall:
			argCount := int(vm.readByte(frame))
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case value.OpInvoke:
			name := vm.readString(frame)
			argCount := int(vm.readByte(frame))
			if err := vm.invoke(name, argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case value.OpSuperInvoke:
			name := vm.readString(frame)
			argCount := int(vm.readByte(frame))
			superclass := vm.pop().(*value.ObjClass)
			if err := vm.invokeFromClass(superclass, name, argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case value.OpClosure:
			fn := vm.readConstant(frame).(*value.ObjFunction)
			closure := &value.ObjClosure{Function: fn, Upvalues: make([]*value.ObjUpvalue, fn.UpvalueCount)}
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(frame)
				index := vm.readByte(frame)
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(&vm.stack[frame.base+int(index)])
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
			vm.push(closure)

		case value.OpCloseUpvalue:
			vm.closeUpvalues(&vm.stack[vm.sp-1])
			vm.pop()

		case value.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(&vm.stack[frame.base])
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop() // the top-level script closure
				return nil
			}
			vm.sp = frame.base
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		case value.OpClass:
			vm.push(value.NewClass(vm.readString(frame)))

		case value.OpInherit:
			superclass, ok := vm.peek(1).(*value.ObjClass)
			if !ok {
				return vm.runtimeError("Superclass must be a class.")
			}
			subclass := vm.peek(0).(*value.ObjClass)
			superclass.Methods.Iter(func(k *value.ObjString, v *value.ObjClosure) bool {
				subclass.Methods.Put(k, v)
				return false
			})
			vm.pop() // pop the subclass; the superclass stays below it as the enclosing "super" local

		case value.OpMethod:
			vm.defineMethod(vm.readString(frame))

		default:
			return vm.runtimeError("unknown opcode %s", op)
		}
	}
}

func (vm *VM) numericBinary(f func(a, b float64) value.Value) error {
	b, bOK := vm.peek(0).(value.Number)
	a, aOK := vm.peek(1).(value.Number)
	if !aOK || !bOK {
		return vm.runtimeError("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()
	vm.push(f(float64(a), float64(b)))
	return nil
}

func (vm *VM) add() error {
	bNum, bIsNum := vm.peek(0).(value.Number)
	aNum, aIsNum := vm.peek(1).(value.Number)
	if aIsNum && bIsNum {
		vm.pop()
		vm.pop()
		vm.push(aNum + bNum)
		return nil
	}

	bStr, bIsStr := vm.peek(0).(*value.ObjString)
	aStr, aIsStr := vm.peek(1).(*value.ObjString)
	if aIsStr && bIsStr {
		vm.pop()
		vm.pop()
		vm.push(vm.interner.Intern(aStr.Chars() + bStr.Chars()))
		return nil
	}

	return vm.runtimeError("Operands must be two numbers or two strings.")
}

func (vm *VM) defineMethod(name *value.ObjString) {
	method := vm.peek(0).(*value.ObjClosure)
	class := vm.peek(1).(*value.ObjClass)
	class.Methods.Put(name, method)
	vm.pop()
}
