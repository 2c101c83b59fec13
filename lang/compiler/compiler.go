package compiler

import (
	"fmt"
	"math"

	"github.com/mna/tack/lang/ast"
	"github.com/mna/tack/lang/token"
)

// CompileError is a compile-time failure: an invariant the single-pass
// compiler could not satisfy (spec.md section 7, CompileError). Unlike
// lang/parser.Error these are detected after a successful parse, e.g. an
// assignment to a const binding or a register-file overflow.
type CompileError struct {
	Line int
	Msg  string
}

func (e *CompileError) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Msg) }

// Compile lowers a parsed module to a Program: one CodeFragment per function
// literal plus the module's own implicit top-level fragment, per spec.md
// section 4.2. name is used only for diagnostics and the disassembler.
// globals is the shared global-variable table (spec.md section 3, "Scope");
// pass nil to compile a single module in isolation, which allocates a fresh
// one. A module loader compiling several modules into one VM image passes
// the same GlobalScope to each Compile call so `let`/`const` at one module's
// top level is visible, with its declared const-ness, to every other module
// (spec.md section 4.5).
func Compile(mod *ast.Module, name string, globals *GlobalScope) (prog *Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*CompileError); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()

	if globals == nil {
		globals = NewGlobalScope()
	}
	prog = &Program{Name: name, Globals: globals}
	top := &CodeFragment{Prog: prog, Name: name}
	prog.Toplevel = top

	c := &compiler{prog: prog, constIdx: map[any]uint16{}}
	c.fs = newFuncState(nil, top)
	c.fs.isModule = true
	c.sc = newScope(nil, c.fs)

	for _, s := range mod.Stmts {
		c.compileStmt(s)
	}
	c.fs.emit(RET, 0, 0, mod.Line())
	return prog, nil
}

// compiler holds the state threaded through one Compile call: the Program
// under construction and the function/scope currently being compiled. fs and
// sc are swapped out (and restored) around nested function literals.
type compiler struct {
	prog *Program
	fs   *funcState
	sc   *scope

	constIdx map[any]uint16
}

func (c *compiler) fail(ln int, format string, args ...any) {
	panic(&CompileError{Line: ln, Msg: fmt.Sprintf(format, args...)})
}

func (c *compiler) allocReg(ln int) byte {
	r, ok := c.fs.allocateRegister()
	if !ok {
		c.fail(ln, "function uses too many registers")
	}
	return r
}

func (c *compiler) freeReg(r byte) { c.fs.freeRegister(r) }

// constIndex interns a constant (float64 or string) into the Program's pool.
func (c *compiler) constIndex(v any) uint16 {
	if i, ok := c.constIdx[v]; ok {
		return i
	}
	i := uint16(len(c.prog.Constants))
	c.prog.Constants = append(c.prog.Constants, v)
	c.constIdx[v] = i
	return i
}

// constReg loads a constant into a fresh register.
func (c *compiler) constReg(v any, ln int) byte {
	dst := c.allocReg(ln)
	c.fs.emit(LOAD_CONST, dst, c.constIndex(v), ln)
	return dst
}

// declareGlobal registers name (from a module-level `let`/`const`) in the
// shared GlobalScope, per its declared const-ness.
func (c *compiler) declareGlobal(name string, isConst bool) uint16 {
	return c.prog.Globals.Declare(name, isConst)
}

// resolveGlobalRead looks up an already-declared global for a read or a
// call-callee reference. Unlike the old auto-vivifying behavior, an
// unresolved name is a CompileError: every name must resolve to a local, a
// capture, or a declared global (spec.md section 7, CompileError "Undeclared
// name").
func (c *compiler) resolveGlobalRead(name string, ln int) uint16 {
	i, _, ok := c.prog.Globals.Lookup(name)
	if !ok {
		c.fail(ln, "undeclared name %q", name)
	}
	return i
}

// compileExprFresh compiles e and guarantees the returned register is a
// brand-new BUSY temporary, copying via MOVE when compileExpr returned an
// existing BOUND local directly. Required wherever the result is about to be
// bound to a new name or stored through an indirection, so that mutating the
// new binding never aliases the source (spec.md section 3, Value semantics:
// assignment copies, it never aliases, except for Box/Array/Object/String
// reference values which keep their normal reference semantics).
func (c *compiler) compileExprFresh(e ast.Expr) byte {
	r := c.compileExpr(e)
	if c.fs.states[r] == regBusy {
		return r
	}
	dst := c.allocReg(e.Line())
	c.fs.emitRR(MOVE, dst, r, 0, e.Line())
	return dst
}

func (c *compiler) compileBlock(b *ast.Block) {
	mark := c.fs.nextReg
	c.sc = newScope(c.sc, c.fs)
	for _, s := range b.Stmts {
		c.compileStmt(s)
	}
	c.sc = c.sc.parent
	for r := mark; r < c.fs.nextReg; r++ {
		c.fs.states[r] = regFree
	}
	c.fs.nextReg = mark
}

func (c *compiler) compileStmt(s ast.Stmt) {
	ln := s.Line()
	switch x := s.(type) {
	case *ast.VarDecl:
		if fl, ok := x.Value.(*ast.FuncLiteral); ok && c.fs.isModule && fl.Name == x.Name {
			// declared before the body is compiled so the function can call itself
			c.declareGlobal(x.Name, x.Const)
		}
		val := c.compileExprFresh(x.Value)
		if c.fs.isModule {
			gi := c.declareGlobal(x.Name, x.Const)
			c.fs.emit(WRITE_GLOBAL, val, gi, ln)
			c.freeReg(val)
			return
		}
		c.sc.bindName(x.Name, val, x.Const)

	case *ast.Assign:
		c.compileAssign(x)

	case *ast.ExprStmt:
		r := c.compileExpr(x.X)
		c.freeReg(r)

	case *ast.Block:
		c.compileBlock(x)

	case *ast.If:
		c.compileIf(x)

	case *ast.While:
		c.compileWhile(x)

	case *ast.ForIn:
		c.compileForIn(x)

	case *ast.ForInt:
		c.compileForInt(x)

	case *ast.Return:
		if c.fs.isModule {
			// a top-level return is a no-op: its value is evaluated and discarded
			if x.Value != nil {
				c.freeReg(c.compileExpr(x.Value))
			}
			return
		}
		if x.Value == nil {
			c.fs.emit(RET, 0, 0, ln)
			return
		}
		r := c.compileExprFresh(x.Value)
		c.fs.emit(RET, r, 1, ln)
		c.freeReg(r)

	default:
		c.fail(ln, "internal error: unhandled statement %T", x)
	}
}

func (c *compiler) compileAssign(a *ast.Assign) {
	ln := a.Line()
	switch t := a.Target.(type) {
	case *ast.Identifier:
		if r, boxed, isConst, ok := resolveInFunc(c.fs, c.sc, t.Name, ln); ok {
			if isConst {
				c.fail(ln, "cannot assign to const %q", t.Name)
			}
			val := c.compileExprFresh(a.Value)
			if boxed {
				c.fs.emitRR(BOX_STORE, r, val, 0, ln)
			} else {
				c.fs.emitRR(MOVE, r, val, 0, ln)
			}
			c.freeReg(val)
			return
		}
		_, gConst, ok := c.prog.Globals.Lookup(t.Name)
		if !ok {
			c.fail(ln, "undeclared name %q", t.Name)
		}
		if gConst {
			c.fail(ln, "cannot assign to const %q", t.Name)
		}
		val := c.compileExprFresh(a.Value)
		gi := c.resolveGlobalRead(t.Name, ln)
		c.fs.emit(WRITE_GLOBAL, val, gi, ln)
		c.freeReg(val)

	case *ast.Index:
		recv := c.compileExprFresh(t.Recv)
		idx := c.compileExprFresh(t.Idx)
		val := c.compileExprFresh(a.Value)
		c.fs.emitRR(STORE_ARRAY, recv, idx, val, ln)
		c.freeReg(val)
		c.freeReg(idx)
		c.freeReg(recv)

	case *ast.Access:
		recv := c.compileExprFresh(t.Recv)
		key := c.constReg(t.Field, ln)
		val := c.compileExprFresh(a.Value)
		c.fs.emitRR(STORE_OBJECT, recv, key, val, ln)
		c.freeReg(val)
		c.freeReg(key)
		c.freeReg(recv)

	default:
		c.fail(ln, "internal error: unhandled assignment target %T", t)
	}
}

// compileIf lowers if/else-if/else chains with CONDSKIP guarding a JUMPF over
// the then-branch, and (when an else exists) a trailing unconditional JUMPF
// over the else-branch from the end of the then-branch (spec.md section 4.2,
// "Jump patching").
func (c *compiler) compileIf(x *ast.If) {
	ln := x.Line()
	cond := c.compileExprFresh(x.Cond)
	skipPC := c.emitCondSkip(cond, ln)
	c.freeReg(cond)
	c.compileBlock(x.Then)

	if x.Else == nil {
		c.patchForwardJump(skipPC)
		return
	}
	elseJump := c.emitJumpF(ln)
	c.patchForwardJump(skipPC)
	c.compileStmt(x.Else)
	c.patchForwardJump(elseJump)
}

// compileWhile lowers the loop condition the same way as compileIf, plus a
// trailing JUMPB back to the condition re-evaluation.
func (c *compiler) compileWhile(x *ast.While) {
	ln := x.Line()
	top := len(c.fs.frag.Code)
	cond := c.compileExprFresh(x.Cond)
	skipPC := c.emitCondSkip(cond, ln)
	c.freeReg(cond)
	c.compileBlock(x.Body)
	c.emitJumpB(top, ln)
	c.patchForwardJump(skipPC)
}

// emitCondSkip emits CONDSKIP r, reserving the following instruction slot for
// a JUMPF that is filled in by the caller; returns the JUMPF's pc.
func (c *compiler) emitCondSkip(r byte, ln int) int {
	c.fs.emit(CONDSKIP, r, 0, ln)
	return c.emitJumpF(ln)
}

func (c *compiler) emitJumpF(ln int) int { return c.fs.emit(JUMPF, 0, 0, ln) }

func (c *compiler) emitJumpB(target int, ln int) {
	pc := c.fs.emit(JUMPB, 0, 0, ln)
	off := pc + 1 - target // pc has already been advanced past the JUMPB
	if off < 0 || off > MaxJumpOffset {
		c.fail(ln, "loop body too large to jump back over")
	}
	c.fs.frag.Code[pc] = Encode(JUMPB, 0, uint16(off))
}

// patchForwardJump fills in the payload of the JUMPF at pc so it lands just
// after the current end of the instruction stream.
func (c *compiler) patchForwardJump(pc int) {
	off := len(c.fs.frag.Code) - pc - 1
	if off < 0 || off > MaxJumpOffset {
		c.fail(0, "jump target too far to encode")
	}
	c.fs.frag.Code[pc] = Encode(JUMPF, 0, uint16(off))
}

// compileForIn lowers the collection forms of for using the FOR_ITER state
// machine (spec.md section 4.3, "For-loop state machine"): r0 is an
// interpreter-owned iterator-state register, initialized once and advanced
// each iteration; FOR_ITER/FOR_ITER2 write the user variable(s) and fall
// through to the loop body on "has next" (after auto-skipping the trailing
// JUMPF), or fall through past the body-and-backjump on "end".
func (c *compiler) compileForIn(x *ast.ForIn) {
	ln := x.Line()
	iterReg := c.compileExprFresh(x.Iter)
	state := c.allocReg(ln)
	c.fs.emitRR(FOR_ITER_INIT, state, iterReg, 0, ln)

	top := len(c.fs.frag.Code)
	mark := c.fs.nextReg
	c.sc = newScope(c.sc, c.fs)
	v1 := c.allocReg(ln)
	c.sc.bindName(x.Var1, v1, false)
	if x.Kind == ast.ForEntries {
		v2 := c.allocReg(ln)
		c.sc.bindName(x.Var2, v2, false)
		c.fs.emitRR(FOR_ITER2, state, iterReg, v1, ln)
	} else {
		c.fs.emitRR(FOR_ITER, state, iterReg, v1, ln)
	}
	endJump := c.emitJumpF(ln)

	for _, st := range x.Body.Stmts {
		c.compileStmt(st)
	}
	c.fs.emitRR(FOR_ITER_NEXT, state, iterReg, 0, ln)
	c.emitJumpB(top, ln)
	c.patchForwardJump(endJump)

	c.sc = c.sc.parent
	for r := mark; r < c.fs.nextReg; r++ {
		c.fs.states[r] = regFree
	}
	c.fs.nextReg = mark
	c.freeReg(state)
	c.freeReg(iterReg)
}

// compileForInt lowers `for i in lo..hi { ... }` with the same has-next/end
// contract as FOR_ITER, but over a plain numeric counter (spec.md section
// 4.3).
func (c *compiler) compileForInt(x *ast.ForInt) {
	ln := x.Line()
	lo := c.compileExprFresh(x.Lo)
	hi := c.compileExprFresh(x.Hi)

	top := len(c.fs.frag.Code)
	mark := c.fs.nextReg
	c.sc = newScope(c.sc, c.fs)
	c.sc.bindName(x.Var, lo, false)
	c.fs.emitRR(FOR_INT, lo, hi, 0, ln)
	endJump := c.emitJumpF(ln)

	for _, st := range x.Body.Stmts {
		c.compileStmt(st)
	}
	c.fs.emit(INCREMENT, lo, 0, ln)
	c.emitJumpB(top, ln)
	c.patchForwardJump(endJump)

	c.sc = c.sc.parent
	c.fs.nextReg = mark
	c.freeReg(hi)
	c.freeReg(lo)
}

var binaryOpcodes = map[token.Token]Opcode{
	token.PLUS:       ADD,
	token.MINUS:      SUB,
	token.STAR:       MUL,
	token.SLASH:      DIV,
	token.PERCENT:    MOD,
	token.STARSTAR:   POW,
	token.EQEQ:       EQUAL,
	token.BANGEQ:     NEQUAL,
	token.LT:         LESS,
	token.GT:         GREATER,
	token.LE:         LESSEQ,
	token.GE:         GREATEREQ,
	token.PIPE:       BITOR,
	token.CIRCUMFLEX: BITXOR,
	token.AMP:        BITAND,
	token.LTLT:       SHL,
	token.GTGT:       SHR,
}

func (c *compiler) compileExpr(e ast.Expr) byte {
	ln := e.Line()
	switch x := e.(type) {
	case *ast.NumberLit:
		if x.Value == math.Trunc(x.Value) && x.Value >= math.MinInt16 && x.Value <= math.MaxInt16 {
			dst := c.allocReg(ln)
			c.fs.emit(LOAD_I_SN, dst, uint16(int16(x.Value)), ln)
			return dst
		}
		return c.constReg(x.Value, ln)

	case *ast.StringLit:
		return c.constReg(x.Value, ln)

	case *ast.BoolLit:
		dst := c.allocReg(ln)
		v := uint16(0)
		if x.Value {
			v = 1
		}
		c.fs.emit(LOAD_I_BOOL, dst, v, ln)
		return dst

	case *ast.NullLit:
		dst := c.allocReg(ln)
		c.fs.emit(LOAD_I_NULL, dst, 0, ln)
		return dst

	case *ast.Identifier:
		if r, boxed, _, ok := resolveInFunc(c.fs, c.sc, x.Name, ln); ok {
			if !boxed {
				return r
			}
			dst := c.allocReg(ln)
			c.fs.emitRR(BOX_LOAD, dst, r, 0, ln)
			return dst
		}
		dst := c.allocReg(ln)
		c.fs.emit(READ_GLOBAL, dst, c.resolveGlobalRead(x.Name, ln), ln)
		return dst

	case *ast.ArrayLit:
		base := c.fs.nextReg
		n := len(x.Elems)
		for i, el := range x.Elems {
			want := base + byte(i)
			if r := c.compileExprFresh(el); r != want {
				c.fs.emitRR(MOVE, want, r, 0, ln)
			}
			for r := want + 1; r < c.fs.nextReg; r++ {
				c.fs.states[r] = regFree
			}
			c.fs.nextReg = want + 1
			c.fs.states[want] = regBusy
		}
		for r := base; r < c.fs.nextReg; r++ {
			c.fs.states[r] = regFree
		}
		c.fs.nextReg = base
		dst := c.allocReg(ln)
		c.fs.emitRR(ALLOC_ARRAY, dst, base, byte(n), ln)
		return dst

	case *ast.ObjectLit:
		base := c.fs.nextReg
		n := len(x.Values)
		keyConsts := make([]uint16, n)
		for i, v := range x.Values {
			keyConsts[i] = c.constIndex(x.Keys[i])
			want := base + byte(i)
			if r := c.compileExprFresh(v); r != want {
				c.fs.emitRR(MOVE, want, r, 0, ln)
			}
			for r := want + 1; r < c.fs.nextReg; r++ {
				c.fs.states[r] = regFree
			}
			c.fs.nextReg = want + 1
			c.fs.states[want] = regBusy
		}
		for r := base; r < c.fs.nextReg; r++ {
			c.fs.states[r] = regFree
		}
		c.fs.nextReg = base
		tmplIdx := uint16(len(c.prog.Objects))
		c.prog.Objects = append(c.prog.Objects, ObjectTemplate{KeyConsts: keyConsts, Base: base, Count: byte(n)})
		dst := c.allocReg(ln)
		c.fs.emit(ALLOC_OBJECT, dst, tmplIdx, ln)
		return dst

	case *ast.FuncLiteral:
		return c.compileFuncLiteral(x)

	case *ast.Call:
		return c.compileCall(x)

	case *ast.Index:
		recv := c.compileExprFresh(x.Recv)
		idx := c.compileExprFresh(x.Idx)
		dst := c.allocReg(ln)
		c.fs.emitRR(LOAD_ARRAY, dst, recv, idx, ln)
		c.freeReg(idx)
		c.freeReg(recv)
		return dst

	case *ast.Access:
		recv := c.compileExprFresh(x.Recv)
		key := c.constReg(x.Field, ln)
		dst := c.allocReg(ln)
		c.fs.emitRR(LOAD_OBJECT, dst, recv, key, ln)
		c.freeReg(key)
		c.freeReg(recv)
		return dst

	case *ast.Unary:
		return c.compileUnary(x)

	case *ast.Binary:
		return c.compileBinary(x)

	case *ast.Ternary:
		return c.compileTernary(x)
	}
	c.fail(ln, "internal error: unhandled expression %T", e)
	panic("unreachable")
}

func (c *compiler) compileUnary(x *ast.Unary) byte {
	ln := x.Line()
	xr := c.compileExprFresh(x.X)
	dst := c.allocReg(ln)
	switch x.Op {
	case token.MINUS:
		c.fs.emitRR(NEGATE, dst, xr, 0, ln)
	case token.BANG:
		c.fs.emitRR(NOT, dst, xr, 0, ln)
	case token.TILDE:
		c.fs.emitRR(BITNOT, dst, xr, 0, ln)
	case token.POUND:
		c.fs.emitRR(LEN, dst, xr, 0, ln)
	default:
		c.fail(ln, "internal error: unhandled unary operator %s", x.Op)
	}
	c.freeReg(xr)
	return dst
}

// compileBinary handles every binary operator except && and ||, which
// short-circuit and are compiled by compileLogical instead.
func (c *compiler) compileBinary(x *ast.Binary) byte {
	ln := x.Line()
	if x.Op == token.OROR || x.Op == token.ANDAND {
		return c.compileLogical(x)
	}
	op, ok := binaryOpcodes[x.Op]
	if !ok {
		c.fail(ln, "internal error: unhandled binary operator %s", x.Op)
	}
	lr := c.compileExprFresh(x.X)
	rr := c.compileExprFresh(x.Y)
	dst := c.allocReg(ln)
	c.fs.emitRR(op, dst, lr, rr, ln)
	c.freeReg(rr)
	c.freeReg(lr)
	return dst
}

// compileLogical lowers `a || b` to: evaluate a; if truthy, skip evaluating
// b and use a's value; else evaluate b and use its value. `a && b` is the
// mirror image. Both reuse the same destination register for either operand
// so the result always lands in one place regardless of which branch ran.
func (c *compiler) compileLogical(x *ast.Binary) byte {
	ln := x.Line()
	dst := c.compileExprFresh(x.X)
	var testReg byte
	if x.Op == token.OROR {
		testReg = dst
	} else {
		testReg = c.allocReg(ln)
		c.fs.emitRR(NOT, testReg, dst, 0, ln)
	}
	skipPC := c.emitCondSkip(testReg, ln)
	if x.Op == token.ANDAND {
		c.freeReg(testReg)
	}
	skipEval := c.emitJumpF(ln)
	c.patchForwardJump(skipPC)

	rr := c.compileExpr(x.Y)
	c.fs.emitRR(MOVE, dst, rr, 0, ln)
	if c.fs.states[rr] == regBusy {
		c.freeReg(rr)
	}
	c.patchForwardJump(skipEval)
	return dst
}

func (c *compiler) compileTernary(x *ast.Ternary) byte {
	ln := x.Line()
	cond := c.compileExprFresh(x.Cond)
	skipPC := c.emitCondSkip(cond, ln)
	c.freeReg(cond)

	dst := c.allocReg(ln)
	thenR := c.compileExpr(x.Then)
	c.fs.emitRR(MOVE, dst, thenR, 0, ln)
	if c.fs.states[thenR] == regBusy {
		c.freeReg(thenR)
	}
	elseJump := c.emitJumpF(ln)
	c.patchForwardJump(skipPC)
	elseR := c.compileExpr(x.Else)
	c.fs.emitRR(MOVE, dst, elseR, 0, ln)
	if c.fs.states[elseR] == regBusy {
		c.freeReg(elseR)
	}
	c.patchForwardJump(elseJump)
	return dst
}

// compileCall evaluates the callee and arguments into a contiguous register
// range ending the current frame, per spec.md section 4.2 ("Calls"): CALL's
// payload carries the argument count and the frame-base offset at which the
// callee's own registers begin.
func (c *compiler) compileCall(x *ast.Call) byte {
	ln := x.Line()
	fn := c.compileExprFresh(x.Callee)
	base := c.fs.nextReg
	for i, a := range x.Args {
		want := base + byte(i)
		if r := c.compileExprFresh(a); r != want {
			c.fs.emitRR(MOVE, want, r, 0, ln)
		}
		for r := want + 1; r < c.fs.nextReg; r++ {
			c.fs.states[r] = regFree
		}
		c.fs.nextReg = want + 1
		c.fs.states[want] = regBusy
	}
	n := len(x.Args)
	for r := base; r < c.fs.nextReg; r++ {
		c.fs.states[r] = regFree
	}
	c.fs.nextReg = base
	if int(base) > 0xFF {
		c.fail(ln, "call frame base too deep")
	}
	c.fs.emitRR(CALL, fn, byte(n), byte(base), ln)
	return fn
}

// compileFuncLiteral compiles a nested function body into its own
// CodeFragment, recording it in the Program's function table and emitting
// ALLOC_FUNC at the definition site once the body (and therefore its
// Captures list) is known.
func (c *compiler) compileFuncLiteral(x *ast.FuncLiteral) byte {
	ln := x.Line()
	frag := &CodeFragment{Prog: c.prog, Name: x.Name, NumParams: len(x.Params)}
	for _, p := range x.Params {
		frag.ParamNames = append(frag.ParamNames, p.Name)
	}
	funcIdx := uint16(len(c.prog.Functions))
	c.prog.Functions = append(c.prog.Functions, frag)

	outerFS, outerSC := c.fs, c.sc
	c.fs = newFuncState(outerSC, frag)
	c.sc = newScope(nil, c.fs)
	seen := map[string]bool{}
	for _, p := range x.Params {
		if seen[p.Name] {
			c.fail(p.Line(), "duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
		r := c.allocReg(p.Line())
		c.sc.bindName(p.Name, r, false)
	}
	for _, st := range x.Body.Stmts {
		c.compileStmt(st)
	}
	c.fs.emit(RET, 0, 0, x.Body.Line())

	c.fs, c.sc = outerFS, outerSC
	dst := c.allocReg(ln)
	c.fs.emit(ALLOC_FUNC, dst, funcIdx, ln)
	return dst
}
