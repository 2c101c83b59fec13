package machine

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/mna/tack/lang/compiler"
)

// StackSize is the number of Value slots shared by every call frame's
// register file (spec.md section 4.3, "stack-threaded interpreter": one flat
// array, frames carve out contiguous ranges rather than each owning its own
// allocation).
const StackSize = 64 * 1024

// MaxCallDepth bounds the number of nested frames regardless of how much
// stack space remains, so a zero-register tail-recursive function can't loop
// forever without ever raising StackOverflow (spec.md section 7,
// StackOverflow: "CALL would push past stack capacity").
const MaxCallDepth = 2048

// defaultGCEvery is the allocation count between automatic collections when
// a VM is created with NewVM (spec.md section 8, scenario S6 exercises this
// with a small explicit value). A different threshold is chosen with
// NewVMWithGCEvery; SetGCState only arms or disarms the collector.
const defaultGCEvery = 10000

// VM is one embeddable Tack virtual machine: heap, globals, loaded modules,
// and the register stack threaded through every call (spec.md section 6,
// "Embedding API" — VM is the Go analog of the C API's opaque `VM*`).
// Methods on VM implement that embedding surface: NewVM stands in for
// create_vm, there is no destroy method (Go's GC reclaims an unreferenced
// VM), and
// GetGlobal/SetGlobal/Call/AllocArray/AllocObject/AllocString/InternString/
// SetGCState implement the rest (see api.go).
type VM struct {
	Heap *Heap

	// Stdout and Stderr are where host-registered builtins (e.g. print) and
	// the CLI's error reporter write; defaulting to os.Stdout/os.Stderr
	// mirrors the teacher's Thread.Stdout/Stderr convention.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	stdinReader *bufio.Reader

	globalScope *compiler.GlobalScope
	globals     []Value

	modules    map[string]*Module
	moduleDirs []string

	stack  [StackSize]Value
	frames []frame
	top    int

	cfuncs []CFunction

	gcState GCState
}

// NewVM creates an empty VM with an armed garbage collector and no loaded
// modules. Call AddModuleDir and LoadModule (or compile and Call a Program
// directly) to start running Tack code.
func NewVM() *VM {
	return NewVMWithGCEvery(defaultGCEvery)
}

// NewVMWithGCEvery is NewVM with an explicit allocation-count threshold
// between automatic collections, for hosts that tune GC pressure instead of
// accepting defaultGCEvery (spec.md section 8 scenario S6 exercises a small
// explicit value directly against a Heap; this is the VM-level equivalent,
// used by the CLI's TACK_GC_EVERY config overlay).
func NewVMWithGCEvery(gcEvery uint64) *VM {
	return &VM{
		Heap:        NewHeap(gcEvery),
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Stdin:       os.Stdin,
		globalScope: compiler.NewGlobalScope(),
		modules:     map[string]*Module{},
		gcState:     GCEnabled,
	}
}

// newCFunction registers fn in the VM's host-function table and returns the
// CFunction Value referencing it (spec.md section 6, "CFunction").
func (vm *VM) newCFunction(fn CFunction) Value {
	i := len(vm.cfuncs)
	vm.cfuncs = append(vm.cfuncs, fn)
	return box(TagCFunction, uint64(i))
}

func (vm *VM) getReg(fr *frame, r byte) Value  { return vm.stack[fr.base+int(r)] }
func (vm *VM) setReg(fr *frame, r byte, v Value) { vm.stack[fr.base+int(r)] = v }

// gcRoots collects every Value currently reachable directly from VM state:
// every declared global, every loaded module's constant pool (its interned
// string constants are read by LOAD_CONST for the life of the VM), and every
// live register of every active frame (spec.md section 4.4, "Mark-and-sweep":
// roots are globals plus registers in live call frames). Over-approximating which registers are "live" within
// a frame (using its static MaxStack rather than tracking exact liveness) is
// safe: it can only delay reclaiming a slot, never collect one still in use.
func (vm *VM) gcRoots() []Value {
	roots := make([]Value, 0, len(vm.globals)+len(vm.frames)*8)
	roots = append(roots, vm.globals...)
	for _, m := range vm.modules {
		roots = append(roots, m.Constants...)
	}
	for i := range vm.frames {
		fr := &vm.frames[i]
		n := fr.proto.fragment.MaxStack
		roots = append(roots, vm.stack[fr.base:fr.base+n]...)
	}
	return roots
}

// SetGCState arms or disarms the automatic collector (spec.md section 6,
// "gc_state").
func (vm *VM) SetGCState(s GCState) { vm.gcState = s }

// GCState reports whether the automatic collector is currently armed.
func (vm *VM) GCState() GCState { return vm.gcState }

// CollectGarbage forces an immediate mark-and-sweep pass regardless of the
// allocation-count threshold, for hosts that want to reclaim memory at a
// known-safe point (spec.md section 6, "gc_state").
func (vm *VM) CollectGarbage() {
	vm.Heap.Collect(vm.gcRoots(), vm.gcState)
}

// Stats reports the heap's live/allocated pool counts.
func (vm *VM) Stats() Stats { return vm.Heap.Stats() }

// ReadLine reads one newline-terminated line from vm.Stdin, stripping the
// trailing newline, for the `readLine` builtin (original_source/src/
// library.cpp stubs a read_file/write_file pair; this port's equivalent
// host-interaction primitive is line-oriented stdin reading instead, since
// Tack has no filesystem sandboxing story of its own). ok is false at EOF.
func (vm *VM) ReadLine() (line string, ok bool) {
	if vm.stdinReader == nil {
		vm.stdinReader = bufio.NewReader(vm.Stdin)
	}
	s, err := vm.stdinReader.ReadString('\n')
	if err != nil && s == "" {
		return "", false
	}
	return strings.TrimRight(s, "\r\n"), true
}
