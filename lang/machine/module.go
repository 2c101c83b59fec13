package machine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mna/tack/lang/compiler"
	"github.com/mna/tack/lang/parser"
)

// AddModuleDir appends dir to the list of directories searched by
// LoadModule, in the order they're added (spec.md section 4.5, "Module
// loader": ".tack file resolution against search dirs").
func (vm *VM) AddModuleDir(dir string) {
	vm.moduleDirs = append(vm.moduleDirs, dir)
}

// LoadModule resolves name against the registered module directories,
// parses and compiles it once, and executes its toplevel statements exactly
// once; a later LoadModule of the same name returns the cached Module
// without re-parsing or re-executing (spec.md section 4.5, "idempotent
// load_module"). name itself is tried first, as a file path; failing that it
// is looked up as "<dir>/<name>.tack" in search-dir order.
func (vm *VM) LoadModule(name string) (*Module, error) {
	if mod, ok := vm.modules[name]; ok {
		return mod, nil
	}

	path, src, err := vm.readModuleSource(name)
	if err != nil {
		return nil, newErrorAt(ModuleErrorKind, 0, "%s", err.Error())
	}
	return vm.loadSource(name, path, src)
}

// LoadSource is LoadModule's in-memory counterpart: it compiles and
// executes src under name without touching the filesystem, for embedders
// that already have source text in hand (and for this port's own tests).
// Like LoadModule, it is idempotent per name.
func (vm *VM) LoadSource(name string, src []byte) (*Module, error) {
	if mod, ok := vm.modules[name]; ok {
		return mod, nil
	}
	return vm.loadSource(name, name, src)
}

func (vm *VM) loadSource(name, path string, src []byte) (*Module, error) {
	astMod, err := parser.Parse(src)
	if err != nil {
		return nil, newErrorAt(ModuleErrorKind, 0, "%s: %s", path, err.Error())
	}

	prog, err := compiler.Compile(astMod, name, vm.globalScope)
	if err != nil {
		return nil, newErrorAt(ModuleErrorKind, 0, "%s: %s", path, err.Error())
	}
	vm.growGlobals()

	mod := newModule(vm.Heap, name, prog)
	vm.modules[name] = mod

	if _, err := vm.call(&Closure{proto: mod.Toplevel}, nil); err != nil {
		delete(vm.modules, name)
		return nil, err
	}
	return mod, nil
}

// growGlobals extends vm.globals (initialized to Null) to cover every global
// declared so far across every module compiled against vm.globalScope.
func (vm *VM) growGlobals() {
	n := vm.globalScope.Len()
	for len(vm.globals) < n {
		vm.globals = append(vm.globals, Null)
	}
}

func (vm *VM) readModuleSource(name string) (path string, src []byte, err error) {
	if b, err := os.ReadFile(name); err == nil {
		return name, b, nil
	}
	for _, dir := range vm.moduleDirs {
		p := filepath.Join(dir, name+".tack")
		if b, err := os.ReadFile(p); err == nil {
			return p, b, nil
		}
	}
	return "", nil, fmt.Errorf("module %q not found in any module directory", name)
}
