package compiler

import "github.com/mna/tack/lang/token"

// regState is the allocation state of one slot in a function's register file
// (spec.md section 4.2, "Register policy").
type regState uint8

const (
	regFree  regState = iota // available for allocateRegister
	regBusy                  // holds a live temporary, freed by freeRegister
	regBound                 // holds a named local or parameter; never freed early
)

// scope tracks register allocation and name binding for one function body
// being compiled. Nested blocks push and pop child scopes so that names
// declared in an inner block don't leak past its closing brace, while
// sharing the single register file of the enclosing function (Tack has no
// nested stack frames within a function, only within calls).
type scope struct {
	parent *scope
	fn     *funcState // the function this scope's registers belong to

	names  map[string]byte // name -> register, bound in this block only
	consts map[string]bool // name -> true if bound with `const`
	marks  []byte          // snapshot of fn.nextReg on scope entry, for unwinding
}

// funcState is the per-CodeFragment compilation state: its register file,
// the CodeFragment being built, and the lexical chain used to resolve
// captures (spec.md section 4.2, "Variable resolution").
type funcState struct {
	outer   *scope // lexical scope active where this function literal was written; nil at module level
	isModule bool
	frag    *CodeFragment

	states  [MaxRegisters]regState
	nextReg byte // one past the highest register currently busy or bound; frag.MaxStack keeps the high-water mark

	// captures maps a name captured from an enclosing function to the
	// register holding its Box in *this* function. boxed tracks which of this
	// function's own registers have already been wrapped in a Box so
	// ensureBoxed is idempotent. captureConst mirrors the source binding's
	// const-ness so a capture of a const local still rejects reassignment.
	captures     map[string]byte
	captureConst map[string]bool
	boxed        map[byte]bool
}

func newFuncState(outer *scope, frag *CodeFragment) *funcState {
	return &funcState{outer: outer, frag: frag, captures: map[string]byte{}, captureConst: map[string]bool{}}
}

// emit appends one instruction to this function's code, recording ln as its
// source line (spec.md section 4.3, per-instruction line table for runtime
// error messages).
func (fs *funcState) emit(op Opcode, r0 byte, payload uint16, ln int) int {
	fs.frag.Code = append(fs.frag.Code, Encode(op, r0, payload))
	fs.frag.Lines = append(fs.frag.Lines, token.Pos(ln))
	return len(fs.frag.Code) - 1
}

func (fs *funcState) emitRR(op Opcode, r0, r1, r2 byte, ln int) int {
	return fs.emit(op, r0, uint16(r1)|uint16(r2)<<8, ln)
}

// ensureBoxed wraps reg's value in a Box the first time it is captured by a
// nested function literal. Idempotent: later captures of the same register
// reuse the existing Box (spec.md section 4.2, "Capture boxing").
func (fs *funcState) ensureBoxed(reg byte, ln int) {
	if fs.boxed == nil {
		fs.boxed = map[byte]bool{}
	}
	if fs.boxed[reg] {
		return
	}
	fs.emit(ALLOC_BOX, reg, 0, ln)
	fs.boxed[reg] = true
}

func newScope(parent *scope, fn *funcState) *scope {
	return &scope{parent: parent, fn: fn, names: map[string]byte{}, consts: map[string]bool{}}
}

// allocateRegister reserves the next free register as BUSY and returns it.
// Compilation fails (via the caller's c.fail) if the 256-register ceiling is
// exceeded; see compiler.go's allocReg wrapper.
func (fs *funcState) allocateRegister() (byte, bool) {
	if int(fs.nextReg) >= MaxRegisters {
		return 0, false
	}
	r := fs.nextReg
	fs.states[r] = regBusy
	fs.nextReg++
	if int(fs.nextReg) > fs.frag.MaxStack {
		fs.frag.MaxStack = int(fs.nextReg)
	}
	return r, true
}

// freeRegister releases a BUSY temporary so it can be reused. Freeing is
// strictly LIFO in practice (the compiler frees the operand registers of an
// expression immediately after consuming them) but freeRegister itself only
// asserts the register isn't BOUND; the high-water mark (MaxStack) is never
// lowered, it only ever tracks the deepest point reached.
func (fs *funcState) freeRegister(r byte) {
	if fs.states[r] == regBound {
		return
	}
	fs.states[r] = regFree
	if r == fs.nextReg-1 {
		fs.nextReg--
		for fs.nextReg > 0 && fs.states[fs.nextReg-1] == regFree {
			fs.nextReg--
		}
	}
}

// bindName binds a named local to reg, which the caller has already
// allocated, and marks it BOUND so it survives temporary-register
// reclamation within the block.
func (s *scope) bindName(name string, reg byte, isConst bool) {
	s.fn.states[reg] = regBound
	s.names[name] = reg
	s.consts[name] = isConst
}

// findLocalInScope searches the scope chain starting at sc, stopping at the
// boundary of fn, for a name bound directly (not captured) in fn.
func findLocalInScope(sc *scope, fn *funcState, name string) (reg byte, isConst, ok bool) {
	for s := sc; s != nil && s.fn == fn; s = s.parent {
		if r, ok := s.names[name]; ok {
			return r, s.consts[name], true
		}
	}
	return 0, false, false
}

// resolveInFunc resolves name against fs, crossing function boundaries
// through fs.outer to establish capture chains as needed (spec.md section
// 4.2, "Variable resolution" and "Capture boxing"). boxed reports whether
// reg holds a Box (so the caller must BOX_LOAD/BOX_STORE through it) or a
// plain value (direct MOVE). isConst mirrors the defining `let`/`const`
// binding, so a reassignment through a capture is still rejected. ok is
// false when name is not lexically bound anywhere in the enclosing function
// chain, meaning it resolves as a global.
func resolveInFunc(fs *funcState, sc *scope, name string, ln int) (reg byte, boxed, isConst, ok bool) {
	if r, c, ok := findLocalInScope(sc, fs, name); ok {
		return r, fs.boxed[r], c, true
	}
	if r, ok := fs.captures[name]; ok {
		return r, true, fs.captureConst[name], true
	}
	if fs.outer == nil {
		return 0, false, false, false
	}
	outerFS := fs.outer.fn
	outerReg, outerBoxed, outerConst, ok := resolveInFunc(outerFS, fs.outer, name, ln)
	if !ok {
		return 0, false, false, false
	}
	if !outerBoxed {
		outerFS.ensureBoxed(outerReg, ln)
	}
	dest, ok := fs.allocateRegister()
	if !ok {
		panic(&CompileError{Line: ln, Msg: "function captures too many variables"})
	}
	fs.frag.Captures = append(fs.frag.Captures, CaptureInfo{Source: outerReg, Dest: dest})
	fs.captures[name] = dest
	fs.captureConst[name] = outerConst
	return dest, true, outerConst, true
}
