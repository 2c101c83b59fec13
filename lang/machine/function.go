package machine

import "github.com/mna/tack/lang/compiler"

// Module is one compiled program loaded into a VM: its materialized
// constant pool (Program.Constants converted to Values) and a back-pointer
// to the Program for disassembly/diagnostics (spec.md section 3, "Lifecycle:
// a module is compiled once and its Scope/constants persist for the life of
// the VM").
type Module struct {
	Name       string
	Program    *compiler.Program
	Constants  []Value     // parallel to Program.Constants
	Toplevel   *funcProto  // wraps Program.Toplevel
	FuncProtos []*funcProto // parallel to Program.Functions
}

// funcProto is the template shared by every Closure created from the same
// function literal: its CodeFragment plus the Module it was compiled in
// (spec.md GLOSSARY, "CodeFragment").
type funcProto struct {
	fragment *compiler.CodeFragment
	module   *Module
}

// CFunction is a host (Go) function exposed to Tack code, the non-bytecode
// counterpart of a Closure: the Go analog of spec.md section 6's
// `Value f(VM*, int nargs, Value* args)` signature. args are already
// evaluated Values; CFunction returns the result or a runtime error, which
// CALL reports the same way as any other RuntimeError (spec.md section 7).
type CFunction func(vm *VM, args []Value) (Value, error)

// newModule builds the runtime Module for a freshly compiled Program: its
// materialized constant pool and a funcProto for the toplevel fragment and
// every nested function literal, so ALLOC_FUNC can hand out a shared proto
// per function literal rather than rebuilding one on every execution (spec.md
// section 3, "Lifecycle": a module's CodeFragments persist for the VM's
// life).
func newModule(heap *Heap, name string, prog *compiler.Program) *Module {
	mod := &Module{Name: name, Program: prog, Constants: materializeConstants(heap, prog)}
	mod.Toplevel = &funcProto{fragment: prog.Toplevel, module: mod}
	mod.FuncProtos = make([]*funcProto, len(prog.Functions))
	for i, frag := range prog.Functions {
		mod.FuncProtos[i] = &funcProto{fragment: frag, module: mod}
	}
	return mod
}

// materializeConstants converts a Program's untyped constant pool (produced
// by the compiler, which never depends on the runtime Value representation)
// into heap-backed Values, interning every string constant (spec.md section
// 4.4, "String interning").
func materializeConstants(h *Heap, prog *compiler.Program) []Value {
	out := make([]Value, len(prog.Constants))
	for i, c := range prog.Constants {
		switch c := c.(type) {
		case float64:
			out[i] = Number(c)
		case string:
			out[i] = h.InternString(c)
		}
	}
	return out
}
