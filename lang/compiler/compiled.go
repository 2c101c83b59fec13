package compiler

import "github.com/mna/tack/lang/token"

// MaxRegisters is the register-file ceiling imposed by the single-byte r0
// operand (spec.md section 4.2, "256-entry register file").
const MaxRegisters = 256

// MaxJumpOffset is the largest relative jump CONDSKIP/JUMPF/JUMPB can
// express with a 16-bit payload (spec.md section 4.2, "Jump patching").
const MaxJumpOffset = 0xFFFF

// CaptureInfo is a (source register in the enclosing frame, destination
// register in this function) pair recorded by the compiler. ALLOC_FUNC
// copies the Source registers' Box values out of the defining frame into the
// new Closure; the interpreter then copies them back into each new frame's
// Dest registers every time that Closure is called (spec.md GLOSSARY).
type CaptureInfo struct {
	Source byte
	Dest   byte
}

// ObjectTemplate describes the shape of one ALLOC_OBJECT site: the constant
// pool indices of its keys (evaluated in source order) and the contiguous
// register range holding the already-evaluated values.
type ObjectTemplate struct {
	KeyConsts []uint16
	Base      byte
	Count     byte
}

// GlobalScope is the shared VariableContext table for module-level bindings
// (spec.md section 3, "Scope (compile-time only)": `{register, is_const,
// is_global, global_id}`). Unlike a function's register-bound scope, globals
// live for the lifetime of the VM and are addressed by index rather than
// register, so one GlobalScope is threaded through Compile and, for
// multi-module programs, shared across modules that see the same globals
// (spec.md section 4.5, module loader).
type GlobalScope struct {
	index   map[string]uint16
	isConst map[string]bool
	order   []string
}

// NewGlobalScope creates an empty global scope.
func NewGlobalScope() *GlobalScope {
	return &GlobalScope{index: map[string]uint16{}, isConst: map[string]bool{}}
}

// Declare registers name as a global the first time it is seen, recording
// whether its defining `let`/`const` was const. A later Declare of the same
// name reuses the original index and const-ness (module-level redeclaration
// is not itself an error; reassignment through WRITE_GLOBAL is checked
// separately against the recorded const-ness).
func (g *GlobalScope) Declare(name string, isConst bool) uint16 {
	if i, ok := g.index[name]; ok {
		return i
	}
	i := uint16(len(g.order))
	g.order = append(g.order, name)
	g.index[name] = i
	g.isConst[name] = isConst
	return i
}

// Lookup reports the index and const-ness of an already-declared global.
func (g *GlobalScope) Lookup(name string) (idx uint16, isConst, ok bool) {
	i, ok := g.index[name]
	return i, g.isConst[name], ok
}

// Names returns every declared global name, index order.
func (g *GlobalScope) Names() []string { return g.order }

// Len reports how many globals have been declared.
func (g *GlobalScope) Len() int { return len(g.order) }

// Program is the unit of compilation: one module's constant pool, object
// templates, and function table. All CodeFragments compiled from the same
// module share a Program (spec.md section 3, "Lifecycle").
type Program struct {
	Name      string
	Constants []any // float64 or string
	Objects   []ObjectTemplate
	Globals   *GlobalScope
	Toplevel  *CodeFragment
	Functions []*CodeFragment // every nested function literal, in compile order
}

// CodeFragment is the compiled form of one function literal (or, for the
// module's implicit wrapper, the module body itself): spec.md section 3,
// "CodeFragment (closed under one function)".
type CodeFragment struct {
	Prog *Program

	Name       string
	NumParams  int
	MaxStack   int // one past the highest register index ever allocated
	Code       []Instr
	Lines      []token.Pos // Lines[i] is the source line of Code[i]
	Captures   []CaptureInfo
	ParamNames []string // parameter names in order; neither the disassembler nor the VM reads them
}

// Position returns the source line of the instruction at pc, or 0 if pc is
// out of range.
func (f *CodeFragment) Position(pc int) token.Pos {
	if pc < 0 || pc >= len(f.Lines) {
		return token.NoPos
	}
	return f.Lines[pc]
}
