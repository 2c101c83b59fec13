package machine

import "github.com/mna/tack/lang/compiler"

// add implements ADD's three overloads: numeric sum, string concatenation
// (allocating a transient, non-interned string), and array concatenation
// (allocating a new array). Spec.md section 4.3's Arithmetic class lists ADD
// as "overloaded for String and Array"; every other arithmetic opcode is
// Number-only.
func (vm *VM) add(fr *frame, x, y Value) (Value, error) {
	switch {
	case x.IsNumber() && y.IsNumber():
		return Number(x.AsNumber() + y.AsNumber()), nil
	case x.IsString() && y.IsString():
		return vm.Heap.NewTransientString(vm.Heap.String(x) + vm.Heap.String(y)), nil
	case x.IsArray() && y.IsArray():
		xs, ys := vm.Heap.Array(x), vm.Heap.Array(y)
		out := make([]Value, 0, len(xs)+len(ys))
		out = append(out, xs...)
		out = append(out, ys...)
		return vm.Heap.NewArray(out), nil
	default:
		return Null, vm.newError(fr, TypeError, "cannot add %s and %s", x.TypeName(), y.TypeName())
	}
}

// valuesEqual implements EQUAL/NEQUAL: numeric compares follow IEEE-754
// equality (so NaN != NaN and -0 == 0, unlike a raw bit compare of two
// canonicalized Values), strings compare by content, and everything else
// compares by bit-identity (spec.md section 4.3, "numeric compares on
// numbers, bit-identity on others" — content equality for strings is this
// implementation's resolution of that rule for a type that deliberately
// also allows transient, non-interned instances; see DESIGN.md).
func (vm *VM) valuesEqual(x, y Value) bool {
	switch {
	case x.IsNumber() && y.IsNumber():
		return x.AsNumber() == y.AsNumber()
	case x.IsString() && y.IsString():
		return vm.Heap.String(x) == vm.Heap.String(y)
	default:
		return x == y
	}
}

// length implements LEN (`#x`) over the three sized types; any other operand
// is a TypeError (spec.md section 4.3, Unary class).
func (vm *VM) length(fr *frame, x Value) (Value, error) {
	switch {
	case x.IsString():
		return Number(float64(len(vm.Heap.String(x)))), nil
	case x.IsArray():
		return Number(float64(len(vm.Heap.Array(x)))), nil
	case x.IsObject():
		return Number(float64(vm.Heap.Object(x).len())), nil
	default:
		return Null, vm.newError(fr, TypeError, "cannot take length of %s", x.TypeName())
	}
}

// shl implements SHL: a number does an arithmetic-shifted-left (truncated to
// int64), an array treats the RHS as a value to push onto its end (spec.md
// section 4.3, Shift class).
func (vm *VM) shl(fr *frame, instr compiler.Instr) error {
	x, y := vm.getReg(fr, instr.R1()), vm.getReg(fr, instr.R2())
	switch {
	case x.IsNumber() && y.IsNumber():
		vm.setReg(fr, instr.R0(), Number(float64(int64(x.AsNumber())<<uint64(int64(y.AsNumber())))))
		return nil
	case x.IsArray():
		elems := vm.Heap.Array(x)
		vm.Heap.SetArray(x, append(elems, y))
		vm.setReg(fr, instr.R0(), x)
		return nil
	default:
		return vm.newError(fr, TypeError, "cannot shift-left %s", x.TypeName())
	}
}

// shr implements SHR: a number does an arithmetic-shifted-right (truncated
// to int64), an array pops and returns its last element (spec.md section
// 4.3, Shift class). Popping an empty array is a BoundsError, the same
// family as an out-of-range array index.
func (vm *VM) shr(fr *frame, instr compiler.Instr) error {
	x, y := vm.getReg(fr, instr.R1()), vm.getReg(fr, instr.R2())
	switch {
	case x.IsNumber() && y.IsNumber():
		vm.setReg(fr, instr.R0(), Number(float64(int64(x.AsNumber())>>uint64(int64(y.AsNumber())))))
		return nil
	case x.IsArray():
		elems := vm.Heap.Array(x)
		if len(elems) == 0 {
			return vm.newError(fr, BoundsError, "cannot pop from empty array")
		}
		last := elems[len(elems)-1]
		vm.Heap.SetArray(x, elems[:len(elems)-1])
		vm.setReg(fr, instr.R0(), last)
		return nil
	default:
		return vm.newError(fr, TypeError, "cannot shift-right %s", x.TypeName())
	}
}

func (vm *VM) loadArray(fr *frame, recv, idx Value) (Value, error) {
	if !recv.IsArray() {
		return Null, vm.newError(fr, TypeError, "cannot index %s", recv.TypeName())
	}
	if !idx.IsNumber() {
		return Null, vm.newError(fr, TypeError, "array index must be a number, got %s", idx.TypeName())
	}
	elems := vm.Heap.Array(recv)
	i := int(idx.AsNumber())
	if i < 0 || i >= len(elems) {
		return Null, vm.newError(fr, BoundsError, "array index %d out of range [0, %d)", i, len(elems))
	}
	return elems[i], nil
}

func (vm *VM) storeArray(fr *frame, recv, idx, val Value) error {
	if !recv.IsArray() {
		return vm.newError(fr, TypeError, "cannot index %s", recv.TypeName())
	}
	if !idx.IsNumber() {
		return vm.newError(fr, TypeError, "array index must be a number, got %s", idx.TypeName())
	}
	elems := vm.Heap.Array(recv)
	i := int(idx.AsNumber())
	if i < 0 || i >= len(elems) {
		return vm.newError(fr, BoundsError, "array index %d out of range [0, %d)", i, len(elems))
	}
	elems[i] = val
	return nil
}

func (vm *VM) loadObject(fr *frame, recv, key Value) (Value, error) {
	if !recv.IsObject() {
		return Null, vm.newError(fr, TypeError, "cannot access field of %s", recv.TypeName())
	}
	if !key.IsString() {
		return Null, vm.newError(fr, TypeError, "object key must be a string, got %s", key.TypeName())
	}
	v, ok := vm.Heap.Object(recv).get(vm.Heap.String(key))
	if !ok {
		return Null, vm.newError(fr, BoundsError, "object has no field %q", vm.Heap.String(key))
	}
	return v, nil
}

func (vm *VM) storeObject(fr *frame, recv, key, val Value) error {
	if !recv.IsObject() {
		return vm.newError(fr, TypeError, "cannot access field of %s", recv.TypeName())
	}
	if !key.IsString() {
		return vm.newError(fr, TypeError, "object key must be a string, got %s", key.TypeName())
	}
	vm.Heap.Object(recv).set(vm.Heap.String(key), val)
	return nil
}

func (vm *VM) allocObject(fr *frame, instr compiler.Instr) error {
	tmpl := fr.proto.module.Program.Objects[instr.Payload()]
	objVal := vm.Heap.NewObject(int(tmpl.Count))
	obj := vm.Heap.Object(objVal)
	base := fr.base + int(tmpl.Base)
	for i := 0; i < int(tmpl.Count); i++ {
		key := vm.Heap.String(fr.proto.module.Constants[tmpl.KeyConsts[i]])
		obj.set(key, vm.stack[base+i])
	}
	vm.setReg(fr, instr.R0(), objVal)
	return nil
}

func (vm *VM) allocFunc(fr *frame, instr compiler.Instr) {
	proto := fr.proto.module.FuncProtos[instr.Payload()]
	var captures []Value
	if n := len(proto.fragment.Captures); n > 0 {
		captures = make([]Value, n)
		for i, info := range proto.fragment.Captures {
			captures[i] = vm.getReg(fr, info.Source)
		}
	}
	vm.setReg(fr, instr.R0(), vm.Heap.NewClosure(&Closure{proto: proto, captures: captures}))
}

// forIter implements the single-variable form of FOR_ITER, dispatching on
// the iterable's runtime tag rather than any static distinction between
// "over array" and "over object keys": the parser never actually produces a
// different AST shape for those two forms (both compile to ast.ForArray),
// so the only place the distinction can be made is here, at the value
// itself (see DESIGN.md).
func (vm *VM) forIter(fr *frame, instr compiler.Instr) error {
	state := vm.getReg(fr, instr.R0())
	iterable := vm.getReg(fr, instr.R1())
	idx := int(state.AsNumber())
	switch {
	case iterable.IsArray():
		elems := vm.Heap.Array(iterable)
		if idx < len(elems) {
			vm.setReg(fr, instr.R2(), elems[idx])
			fr.pc++
		}
		return nil
	case iterable.IsObject():
		keys := vm.Heap.Object(iterable).order
		if idx < len(keys) {
			vm.setReg(fr, instr.R2(), vm.Heap.InternString(keys[idx]))
			fr.pc++
		}
		return nil
	default:
		return vm.newError(fr, TypeError, "value of type %s is not iterable", iterable.TypeName())
	}
}

// forIter2 implements the key-value form of for, valid only over Object
// (spec.md section 3, "for (k, v) in obj"); the value variable occupies the
// register immediately after the key variable's, since the compiler
// allocates them back to back (lang/compiler/compiler.go, compileForIn).
func (vm *VM) forIter2(fr *frame, instr compiler.Instr) error {
	iterable := vm.getReg(fr, instr.R1())
	if !iterable.IsObject() {
		return vm.newError(fr, TypeError, "value of type %s is not an object", iterable.TypeName())
	}
	state := vm.getReg(fr, instr.R0())
	idx := int(state.AsNumber())
	obj := vm.Heap.Object(iterable)
	if idx < len(obj.order) {
		key := obj.order[idx]
		v, _ := obj.get(key)
		vm.setReg(fr, instr.R2(), vm.Heap.InternString(key))
		vm.setReg(fr, instr.R2()+1, v)
		fr.pc++
	}
	return nil
}

// execCall implements CALL over both kinds of callable Value: a Closure
// pushes a new bytecode frame that the main run loop continues into, a
// CFunction is invoked directly since it has no bytecode frame of its own
// (spec.md section 4.3, "Calls"; section 6, "CFunction").
func (vm *VM) execCall(fr *frame, instr compiler.Instr) error {
	calleeReg := instr.R0()
	argCount := int(instr.R1())
	frameBase := int(instr.R2())
	callee := vm.getReg(fr, calleeReg)
	absResultSlot := fr.base + int(calleeReg)
	absArgsBase := fr.base + frameBase
	args := vm.stack[absArgsBase : absArgsBase+argCount]

	switch {
	case callee.IsFunction():
		closure := vm.Heap.Closure(callee)
		if _, err := vm.pushFrame(closure, args, absResultSlot); err != nil {
			return err
		}
		return nil
	case callee.IsCFunction():
		cfn := vm.cfuncs[callee.index()]
		argsCopy := append([]Value(nil), args...)
		res, err := cfn(vm, argsCopy)
		if err != nil {
			return vm.wrapErr(fr, err)
		}
		vm.stack[absResultSlot] = res
		return nil
	default:
		return vm.newError(fr, TypeError, "value of type %s is not callable", callee.TypeName())
	}
}
