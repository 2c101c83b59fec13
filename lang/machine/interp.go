package machine

import (
	"math"

	"github.com/mna/tack/lang/compiler"
)

// call invokes closure with args and runs it to completion, returning its
// result. It is the entry point used both by the module loader (running a
// module's toplevel fragment) and by the embedding API's Call (spec.md
// section 6, "call"). A CFunction that itself calls back into Tack code (a
// host-provided callback argument) calls this reentrantly; each call pushes
// its own entry marker so nested invocations unwind independently of any
// call further up the Go stack.
func (vm *VM) call(closure *Closure, args []Value) (Value, error) {
	entry := len(vm.frames)
	if _, err := vm.pushFrame(closure, args, -1); err != nil {
		return Null, err
	}
	return vm.run(entry)
}

// pushFrame reserves this closure's register file at the top of the stack
// and appends its frame. retBase is the absolute stack index the eventual
// RET should write the result into, or -1 if there is none (a call entered
// directly from Go).
func (vm *VM) pushFrame(closure *Closure, args []Value, retBase int) (*frame, error) {
	if len(vm.frames) >= MaxCallDepth {
		return nil, &RuntimeError{Kind: StackOverflowError, Msg: "call stack exceeds maximum depth"}
	}
	frag := closure.proto.fragment
	base := vm.top
	need := base + frag.MaxStack
	if need > StackSize {
		return nil, &RuntimeError{Kind: StackOverflowError, Msg: "call stack exhausted"}
	}

	for i := 0; i < frag.MaxStack; i++ {
		switch {
		case i < frag.NumParams && i < len(args):
			vm.stack[base+i] = args[i]
		default:
			vm.stack[base+i] = Null
		}
	}
	for i, info := range frag.Captures {
		vm.stack[base+int(info.Dest)] = closure.captures[i]
	}

	vm.top = need
	vm.frames = append(vm.frames, frame{
		closure: closure,
		proto:   closure.proto,
		base:    base,
		retBase: retBase,
	})
	return &vm.frames[len(vm.frames)-1], nil
}

// popFrame discards the top frame, writing result back into the caller's
// register when retBase names one, and clears the abandoned register range
// so it no longer roots heap values across later allocations (spec.md
// section 4.3, "RET restores the caller's frame and zeroes the abandoned
// frame's registers").
func (vm *VM) popFrame(fr *frame, result Value) {
	n := fr.proto.fragment.MaxStack
	for i := 0; i < n; i++ {
		vm.stack[fr.base+i] = Null
	}
	vm.top = fr.base
	retBase := fr.retBase
	vm.frames = vm.frames[:len(vm.frames)-1]
	if retBase >= 0 {
		vm.stack[retBase] = result
	}
	if vm.Heap.shouldCollect() {
		vm.Heap.Collect(vm.gcRoots(), vm.gcState)
	}
}

// run executes instructions until the frame stack unwinds back to entry,
// decoding and dispatching one instruction per iteration (spec.md section
// 4.3, "stack-threaded interpreter"). The current frame is recomputed at the
// top of every iteration rather than cached across iterations, since a CALL
// can append to vm.frames and reallocate its backing array.
func (vm *VM) run(entry int) (Value, error) {
	var result Value
	for len(vm.frames) > entry {
		fr := &vm.frames[len(vm.frames)-1]
		frag := fr.proto.fragment
		instr := frag.Code[fr.pc]
		fr.pc++
		op := instr.Op()

		switch op {
		case compiler.NOP:

		case compiler.LOAD_CONST:
			vm.setReg(fr, instr.R0(), fr.proto.module.Constants[instr.Payload()])
		case compiler.LOAD_I_SN:
			vm.setReg(fr, instr.R0(), Number(float64(int16(instr.Payload()))))
		case compiler.LOAD_I_BOOL:
			vm.setReg(fr, instr.R0(), Bool(instr.Payload() != 0))
		case compiler.LOAD_I_NULL:
			vm.setReg(fr, instr.R0(), Null)

		case compiler.READ_GLOBAL:
			vm.setReg(fr, instr.R0(), vm.globals[instr.Payload()])
		case compiler.WRITE_GLOBAL:
			vm.globals[instr.Payload()] = vm.getReg(fr, instr.R0())

		case compiler.MOVE:
			vm.setReg(fr, instr.R0(), vm.getReg(fr, instr.R1()))

		case compiler.ADD:
			v, err := vm.add(fr, vm.getReg(fr, instr.R1()), vm.getReg(fr, instr.R2()))
			if err != nil {
				return Null, err
			}
			vm.setReg(fr, instr.R0(), v)

		case compiler.SUB, compiler.MUL, compiler.DIV, compiler.MOD, compiler.POW:
			x, y := vm.getReg(fr, instr.R1()), vm.getReg(fr, instr.R2())
			if !x.IsNumber() || !y.IsNumber() {
				return Null, vm.newError(fr, TypeError, "arithmetic on non-number operands (%s, %s)", x.TypeName(), y.TypeName())
			}
			vm.setReg(fr, instr.R0(), Number(numericBinop(op, x.AsNumber(), y.AsNumber())))

		case compiler.NEGATE:
			x := vm.getReg(fr, instr.R1())
			if !x.IsNumber() {
				return Null, vm.newError(fr, TypeError, "cannot negate %s", x.TypeName())
			}
			vm.setReg(fr, instr.R0(), Number(-x.AsNumber()))

		case compiler.INCREMENT:
			x := vm.getReg(fr, instr.R0())
			if !x.IsNumber() {
				return Null, vm.newError(fr, TypeError, "cannot increment %s", x.TypeName())
			}
			vm.setReg(fr, instr.R0(), Number(x.AsNumber()+1))

		case compiler.BITAND, compiler.BITOR, compiler.BITXOR:
			x, y := vm.getReg(fr, instr.R1()), vm.getReg(fr, instr.R2())
			if !x.IsNumber() || !y.IsNumber() {
				return Null, vm.newError(fr, TypeError, "bitwise op on non-number operands (%s, %s)", x.TypeName(), y.TypeName())
			}
			vm.setReg(fr, instr.R0(), Number(float64(bitwiseBinop(op, int64(x.AsNumber()), int64(y.AsNumber())))))

		case compiler.BITNOT:
			x := vm.getReg(fr, instr.R1())
			if !x.IsNumber() {
				return Null, vm.newError(fr, TypeError, "cannot bitwise-not %s", x.TypeName())
			}
			vm.setReg(fr, instr.R0(), Number(float64(^int64(x.AsNumber()))))

		case compiler.EQUAL:
			vm.setReg(fr, instr.R0(), Bool(vm.valuesEqual(vm.getReg(fr, instr.R1()), vm.getReg(fr, instr.R2()))))
		case compiler.NEQUAL:
			vm.setReg(fr, instr.R0(), Bool(!vm.valuesEqual(vm.getReg(fr, instr.R1()), vm.getReg(fr, instr.R2()))))

		case compiler.LESS, compiler.GREATER, compiler.LESSEQ, compiler.GREATEREQ:
			x, y := vm.getReg(fr, instr.R1()), vm.getReg(fr, instr.R2())
			if !x.IsNumber() || !y.IsNumber() {
				return Null, vm.newError(fr, TypeError, "cannot compare %s and %s", x.TypeName(), y.TypeName())
			}
			vm.setReg(fr, instr.R0(), Bool(numericCompare(op, x.AsNumber(), y.AsNumber())))

		case compiler.NOT:
			vm.setReg(fr, instr.R0(), Bool(!vm.getReg(fr, instr.R1()).Truthy()))

		case compiler.LEN:
			v, err := vm.length(fr, vm.getReg(fr, instr.R1()))
			if err != nil {
				return Null, err
			}
			vm.setReg(fr, instr.R0(), v)

		case compiler.SHL:
			if err := vm.shl(fr, instr); err != nil {
				return Null, err
			}
		case compiler.SHR:
			if err := vm.shr(fr, instr); err != nil {
				return Null, err
			}

		case compiler.ALLOC_ARRAY:
			base := fr.base + int(instr.R1())
			n := int(instr.R2())
			vm.setReg(fr, instr.R0(), vm.Heap.NewArray(vm.stack[base:base+n]))

		case compiler.ALLOC_OBJECT:
			if err := vm.allocObject(fr, instr); err != nil {
				return Null, err
			}

		case compiler.ALLOC_FUNC:
			vm.allocFunc(fr, instr)

		case compiler.ALLOC_BOX:
			cur := vm.getReg(fr, instr.R0())
			if !cur.IsBox() {
				vm.setReg(fr, instr.R0(), vm.Heap.NewBox(cur))
			}

		case compiler.BOX_LOAD:
			vm.setReg(fr, instr.R0(), vm.Heap.BoxGet(vm.getReg(fr, instr.R1())))
		case compiler.BOX_STORE:
			vm.Heap.BoxSet(vm.getReg(fr, instr.R0()), vm.getReg(fr, instr.R1()))

		case compiler.LOAD_ARRAY:
			v, err := vm.loadArray(fr, vm.getReg(fr, instr.R1()), vm.getReg(fr, instr.R2()))
			if err != nil {
				return Null, err
			}
			vm.setReg(fr, instr.R0(), v)
		case compiler.STORE_ARRAY:
			if err := vm.storeArray(fr, vm.getReg(fr, instr.R0()), vm.getReg(fr, instr.R1()), vm.getReg(fr, instr.R2())); err != nil {
				return Null, err
			}
		case compiler.LOAD_OBJECT:
			v, err := vm.loadObject(fr, vm.getReg(fr, instr.R1()), vm.getReg(fr, instr.R2()))
			if err != nil {
				return Null, err
			}
			vm.setReg(fr, instr.R0(), v)
		case compiler.STORE_OBJECT:
			if err := vm.storeObject(fr, vm.getReg(fr, instr.R0()), vm.getReg(fr, instr.R1()), vm.getReg(fr, instr.R2())); err != nil {
				return Null, err
			}

		case compiler.JUMPF:
			fr.pc += int(instr.Payload())
		case compiler.JUMPB:
			fr.pc -= int(instr.Payload())
		case compiler.CONDSKIP:
			if vm.getReg(fr, instr.R0()).Truthy() {
				fr.pc++
			}

		case compiler.FOR_ITER_INIT:
			iterable := vm.getReg(fr, instr.R1())
			if !iterable.IsArray() && !iterable.IsObject() {
				return Null, vm.newError(fr, TypeError, "value of type %s is not iterable", iterable.TypeName())
			}
			vm.setReg(fr, instr.R0(), Number(0))

		case compiler.FOR_ITER:
			if err := vm.forIter(fr, instr); err != nil {
				return Null, err
			}
		case compiler.FOR_ITER2:
			if err := vm.forIter2(fr, instr); err != nil {
				return Null, err
			}
		case compiler.FOR_ITER_NEXT:
			state := vm.getReg(fr, instr.R0())
			vm.setReg(fr, instr.R0(), Number(state.AsNumber()+1))
		case compiler.FOR_INT:
			lo, hi := vm.getReg(fr, instr.R0()), vm.getReg(fr, instr.R1())
			if lo.AsNumber() < hi.AsNumber() {
				fr.pc++
			}

		case compiler.CALL:
			if err := vm.execCall(fr, instr); err != nil {
				return Null, err
			}

		case compiler.RET:
			var res Value
			if instr.Payload() != 0 {
				res = vm.getReg(fr, instr.R0())
			} else {
				res = Null
			}
			vm.popFrame(fr, res)
			if len(vm.frames) == entry {
				result = res
			}

		default:
			return Null, vm.newError(fr, TypeError, "illegal opcode %s", op)
		}
	}
	return result, nil
}

func numericBinop(op compiler.Opcode, x, y float64) float64 {
	switch op {
	case compiler.SUB:
		return x - y
	case compiler.MUL:
		return x * y
	case compiler.DIV:
		return x / y
	case compiler.MOD:
		return math.Mod(x, y)
	case compiler.POW:
		return math.Pow(x, y)
	default:
		panic("unreachable")
	}
}

// bitwiseBinop truncates both operands to int64 before operating, since
// Tack has no dedicated integer type: a Number is always a float64, and
// bitwise ops need a fixed-width integer interpretation of it (documented
// deviation, see DESIGN.md).
func bitwiseBinop(op compiler.Opcode, x, y int64) int64 {
	switch op {
	case compiler.BITAND:
		return x & y
	case compiler.BITOR:
		return x | y
	case compiler.BITXOR:
		return x ^ y
	default:
		panic("unreachable")
	}
}

func numericCompare(op compiler.Opcode, x, y float64) bool {
	switch op {
	case compiler.LESS:
		return x < y
	case compiler.GREATER:
		return x > y
	case compiler.LESSEQ:
		return x <= y
	case compiler.GREATEREQ:
		return x >= y
	default:
		panic("unreachable")
	}
}
