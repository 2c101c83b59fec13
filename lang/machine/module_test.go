package machine_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/tack/lang/machine"
)

func writeModule(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".tack"), []byte(src), 0o644))
}

func TestLoadModuleResolvesAgainstSearchDirs(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "greet", `let greeting = "hello";`)

	vm := machine.NewVM()
	vm.AddModuleDir(dir)

	mod, err := vm.LoadModule("greet")
	require.NoError(t, err)
	require.Equal(t, "greet", mod.Name)

	v, ok := vm.GetGlobal("greeting")
	require.True(t, ok)
	require.Equal(t, "hello", vm.Heap.String(v))
}

func TestLoadModuleSearchesDirsInOrder(t *testing.T) {
	dir1, dir2 := t.TempDir(), t.TempDir()
	writeModule(t, dir1, "pick", `let which = "first";`)
	writeModule(t, dir2, "pick", `let which = "second";`)

	vm := machine.NewVM()
	vm.AddModuleDir(dir1)
	vm.AddModuleDir(dir2)

	_, err := vm.LoadModule("pick")
	require.NoError(t, err)
	v, _ := vm.GetGlobal("which")
	require.Equal(t, "first", vm.Heap.String(v))
}

func TestLoadModuleIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "once", `let n = 0; n = n + 1;`)

	vm := machine.NewVM()
	vm.AddModuleDir(dir)

	mod1, err := vm.LoadModule("once")
	require.NoError(t, err)
	mod2, err := vm.LoadModule("once")
	require.NoError(t, err)
	require.Same(t, mod1, mod2)

	v, _ := vm.GetGlobal("n")
	require.Equal(t, float64(1), v.AsNumber())
}

func TestLoadModuleNotFound(t *testing.T) {
	vm := machine.NewVM()
	vm.AddModuleDir(t.TempDir())

	_, err := vm.LoadModule("missing")
	require.Error(t, err)
	rerr, ok := err.(*machine.RuntimeError)
	require.True(t, ok)
	require.Equal(t, machine.ModuleErrorKind, rerr.Kind)
}

func TestLoadModuleFailureEvictsFromCache(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "bad", `let x = 1 +;`)

	vm := machine.NewVM()
	vm.AddModuleDir(dir)

	_, err := vm.LoadModule("bad")
	require.Error(t, err)

	_, err = vm.LoadModule("bad")
	require.Error(t, err, "a failed module must not be cached as successfully loaded")
}

func TestLoadModuleTopLevelReturnIsNoOp(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "ret", `let x = 1; return 99;`)

	vm := machine.NewVM()
	vm.AddModuleDir(dir)

	_, err := vm.LoadModule("ret")
	require.NoError(t, err)
	v, _ := vm.GetGlobal("x")
	require.Equal(t, float64(1), v.AsNumber())
}

func TestLoadModuleByDirectPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "direct.tack")
	require.NoError(t, os.WriteFile(path, []byte(`let y = 42;`), 0o644))

	vm := machine.NewVM()
	_, err := vm.LoadModule(path)
	require.NoError(t, err)
	v, _ := vm.GetGlobal("y")
	require.Equal(t, float64(42), v.AsNumber())
}

func TestLoadSourceIsIdempotentAndIndependentOfFilesystem(t *testing.T) {
	vm := machine.NewVM()
	mod1, err := vm.LoadSource("inline", []byte(`let z = 7;`))
	require.NoError(t, err)
	mod2, err := vm.LoadSource("inline", []byte(`let z = 999;`))
	require.NoError(t, err)
	require.Same(t, mod1, mod2)

	v, _ := vm.GetGlobal("z")
	require.Equal(t, float64(7), v.AsNumber())
}
