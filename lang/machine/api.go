package machine

// This file is the Go shape of spec.md section 6's "Embedding API": the
// handful of calls a host program uses to stand up a VM, bind values into
// it, and invoke Tack code. create_vm/destroy are NewVM/garbage collection
// (see vm.go); the rest are below.

// GetGlobal looks up a global by name, returning ok=false if it was never
// declared by any loaded module or SetGlobal call (spec.md section 6,
// "get_global").
func (vm *VM) GetGlobal(name string) (v Value, ok bool) {
	idx, _, ok := vm.globalScope.Lookup(name)
	if !ok {
		return Null, false
	}
	return vm.globals[idx], true
}

// SetGlobal binds a host value to a global name, declaring it if this is the
// first time name is seen (spec.md section 6, "set_global(name, value[,
// module], is_const)"). A host-declared const global rejects a later Tack
// assignment the same way a `const` declared in Tack source does, since both
// go through the same GlobalScope.
func (vm *VM) SetGlobal(name string, v Value, isConst bool) {
	idx := vm.globalScope.Declare(name, isConst)
	vm.growGlobals()
	vm.globals[idx] = v
}

// RegisterFunction binds a host Go function under name as a global
// CFunction, the common case of SetGlobal for exposing builtins like print
// (spec.md section 6, "CFunction").
func (vm *VM) RegisterFunction(name string, isConst bool, fn CFunction) {
	vm.SetGlobal(name, vm.newCFunction(fn), isConst)
}

// Call invokes a Tack function value (a Closure or a CFunction) with args,
// from the host (spec.md section 6, "call"). Calling a non-function value is
// a TypeError, reported the same way as calling one from bytecode.
func (vm *VM) Call(fn Value, args []Value) (Value, error) {
	switch {
	case fn.IsFunction():
		return vm.call(vm.Heap.Closure(fn), args)
	case fn.IsCFunction():
		cfn := vm.cfuncs[fn.index()]
		return cfn(vm, args)
	default:
		return Null, newErrorAt(TypeError, 0, "value of type %s is not callable", fn.TypeName())
	}
}

// AllocArray, AllocObject, AllocString and InternString let the host build
// Tack values directly, pinning them so the collector never reclaims a value
// the host is still holding outside of any VM register (spec.md section 6).
// The host must Unpin a value it no longer needs, or it leaks for the life
// of the VM.

func (vm *VM) AllocArray(elems []Value) Value {
	v := vm.Heap.NewArray(elems)
	vm.Heap.Pin(v)
	return v
}

func (vm *VM) AllocObject(fields map[string]Value) Value {
	v := vm.Heap.NewObject(len(fields))
	obj := vm.Heap.Object(v)
	for k, fv := range fields {
		obj.set(k, fv)
	}
	vm.Heap.Pin(v)
	return v
}

func (vm *VM) AllocString(s string) Value {
	v := vm.Heap.NewTransientString(s)
	vm.Heap.Pin(v)
	return v
}

func (vm *VM) InternString(s string) Value {
	v := vm.Heap.InternString(s)
	vm.Heap.Pin(v)
	return v
}

// Unpin releases a host hold taken by AllocArray/AllocObject/AllocString/
// InternString, letting the collector reclaim v once nothing else
// references it.
func (vm *VM) Unpin(v Value) { vm.Heap.Unpin(v) }
