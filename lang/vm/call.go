package vm

import "github.com/mna/loxvm/lang/value"

// callValue dispatches a call to callee, which sits argCount values below
// the top of the stack with its arguments above it, exactly as OP_CALL's
// operand layout expects (spec §5).
func (vm *VM) callValue(callee value.Value, argCount int) error {
	switch c := callee.(type) {
	case *value.ObjClosure:
		return vm.call(c, argCount)
	case *value.ObjBoundMethod:
		vm.stack[vm.sp-argCount-1] = c.Receiver
		return vm.call(c.Method, argCount)
	case *value.ObjClass:
		instance := value.NewInstance(c)
		vm.stack[vm.sp-argCount-1] = instance
		if initializer, ok := c.Methods.Get(vm.interner.Intern("init")); ok {
			return vm.call(initializer, argCount)
		}
		if argCount != 0 {
			return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
		}
		return nil
	case *value.ObjNative:
		args := make([]value.Value, argCount)
		copy(args, vm.stack[vm.sp-argCount:vm.sp])
		result, err := c.Fn(args)
		if err != nil {
			return vm.runtimeError("%s", err.Error())
		}
		vm.sp -= argCount + 1
		vm.push(result)
		return nil
	default:
		return vm.runtimeError("Can only call functions and classes.")
	}
}

// call pushes a new call frame for closure, which must already sit at
// vm.stack[vm.sp-argCount-1] (its eventual slot-0 / "this" / callee slot).
func (vm *VM) call(closure *value.ObjClosure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == FramesMax {
		return vm.runtimeError("Stack overflow.")
	}

	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closure = closure
	frame.ip = 0
	frame.base = vm.sp - argCount - 1
	return nil
}

// bindMethod looks up name on class, binds it to the instance sitting at
// peek(0), pops the instance and pushes the resulting bound method.
func (vm *VM) bindMethod(class *value.ObjClass, name *value.ObjString) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars())
	}
	bound := &value.ObjBoundMethod{Receiver: vm.peek(0), Method: method}
	vm.pop()
	vm.push(bound)
	return nil
}

// invoke resolves and calls a method or field-held callable directly,
// without allocating an intermediate ObjBoundMethod (the OP_INVOKE fast
// path for the common `receiver.method(args)` call shape).
func (vm *VM) invoke(name *value.ObjString, argCount int) error {
	receiver := vm.peek(argCount)
	instance, ok := receiver.(*value.ObjInstance)
	if !ok {
		return vm.runtimeError("Only instances have methods.")
	}
	if v, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.sp-argCount-1] = v
		return vm.callValue(v, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *value.ObjClass, name *value.ObjString, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars())
	}
	return vm.call(method, argCount)
}
