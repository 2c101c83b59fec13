package stdlib

import "github.com/mna/tack/lang/machine"

// keys and values expose an object's insertion-ordered fields as arrays, the
// counterpart of the FOR_ITER single-variable form over an object at the
// library level (original_source/src/library.cpp lists both among the
// array/object functions).
func biKeys(vm *machine.VM, args []Value) (Value, error) {
	v := arg(args, 0)
	if !v.IsObject() {
		return machine.Null, argError(0, "object", v)
	}
	ks := vm.Heap.Object(v).Keys()
	out := make([]Value, len(ks))
	for i, k := range ks {
		out[i] = vm.Heap.InternString(k)
	}
	return vm.Heap.NewArray(out), nil
}

func biValues(vm *machine.VM, args []Value) (Value, error) {
	v := arg(args, 0)
	if !v.IsObject() {
		return machine.Null, argError(0, "object", v)
	}
	obj := vm.Heap.Object(v)
	ks := obj.Keys()
	out := make([]Value, len(ks))
	for i, k := range ks {
		out[i], _ = obj.Get(k)
	}
	return vm.Heap.NewArray(out), nil
}

// filter, map, reduce and foreach are the higher-order array functions
// original_source/src/library.cpp stubs out under "array/objects funcs";
// each calls back into Tack through vm.Call the same way a CALL instruction
// would invoke any other function value (spec.md section 6, "call").
func biFilter(vm *machine.VM, args []Value) (Value, error) {
	v, fn := arg(args, 0), arg(args, 1)
	if !v.IsArray() {
		return machine.Null, argError(0, "array", v)
	}
	var out []Value
	for _, e := range vm.Heap.Array(v) {
		keep, err := vm.Call(fn, []Value{e})
		if err != nil {
			return machine.Null, err
		}
		if keep.Truthy() {
			out = append(out, e)
		}
	}
	return vm.Heap.NewArray(out), nil
}

func biMap(vm *machine.VM, args []Value) (Value, error) {
	v, fn := arg(args, 0), arg(args, 1)
	if !v.IsArray() {
		return machine.Null, argError(0, "array", v)
	}
	elems := vm.Heap.Array(v)
	out := make([]Value, len(elems))
	for i, e := range elems {
		r, err := vm.Call(fn, []Value{e})
		if err != nil {
			return machine.Null, err
		}
		out[i] = r
	}
	return vm.Heap.NewArray(out), nil
}

func biReduce(vm *machine.VM, args []Value) (Value, error) {
	v, fn, acc := arg(args, 0), arg(args, 1), arg(args, 2)
	if !v.IsArray() {
		return machine.Null, argError(0, "array", v)
	}
	for _, e := range vm.Heap.Array(v) {
		r, err := vm.Call(fn, []Value{acc, e})
		if err != nil {
			return machine.Null, err
		}
		acc = r
	}
	return acc, nil
}

func biForeach(vm *machine.VM, args []Value) (Value, error) {
	v, fn := arg(args, 0), arg(args, 1)
	if !v.IsArray() {
		return machine.Null, argError(0, "array", v)
	}
	for _, e := range vm.Heap.Array(v) {
		if _, err := vm.Call(fn, []Value{e}); err != nil {
			return machine.Null, err
		}
	}
	return machine.Null, nil
}
