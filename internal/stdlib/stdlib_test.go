package stdlib_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/tack/internal/stdlib"
	"github.com/mna/tack/lang/machine"
)

func newVM(t *testing.T) (*machine.VM, *bytes.Buffer) {
	t.Helper()
	vm := machine.NewVM()
	var out bytes.Buffer
	vm.Stdout = &out
	stdlib.Install(vm)
	return vm, &out
}

func run(t *testing.T, vm *machine.VM, src string) {
	t.Helper()
	_, err := vm.LoadSource("test", []byte(src))
	require.NoError(t, err)
}

func global(t *testing.T, vm *machine.VM, name string) machine.Value {
	t.Helper()
	v, ok := vm.GetGlobal(name)
	require.True(t, ok)
	return v
}

func TestPrintFormatsValues(t *testing.T) {
	vm, out := newVM(t)
	run(t, vm, `print(1, "a", true, null, [1, 2], {a = 1});`)
	require.Equal(t, "1 a true null [1, 2] {a: 1}\n", out.String())
}

func TestToStringAndToNumber(t *testing.T) {
	vm, _ := newVM(t)
	run(t, vm, `
		let s = tostring(42);
		let n = tonumber("3.5");
		let bad = tonumber("nope");
	`)
	require.Equal(t, "42", vm.Heap.String(global(t, vm, "s")))
	require.Equal(t, 3.5, global(t, vm, "n").AsNumber())
	require.True(t, global(t, vm, "bad").IsNull())
}

func TestTypeBuiltin(t *testing.T) {
	vm, _ := newVM(t)
	run(t, vm, `
		let a = type(1);
		let b = type("s");
		let c = type(null);
		let d = type([1]);
	`)
	require.Equal(t, "number", vm.Heap.String(global(t, vm, "a")))
	require.Equal(t, "string", vm.Heap.String(global(t, vm, "b")))
	require.Equal(t, "null", vm.Heap.String(global(t, vm, "c")))
	require.Equal(t, "array", vm.Heap.String(global(t, vm, "d")))
}

func TestStringHelpers(t *testing.T) {
	vm, _ := newVM(t)
	run(t, vm, `
		let c = chr(65);
		let o = ord("A");
		let lo = lower("ABC");
		let up = upper("abc");
		let r = replace("foo bar foo", "foo", "baz");
	`)
	require.Equal(t, "A", vm.Heap.String(global(t, vm, "c")))
	require.Equal(t, float64(65), global(t, vm, "o").AsNumber())
	require.Equal(t, "abc", vm.Heap.String(global(t, vm, "lo")))
	require.Equal(t, "ABC", vm.Heap.String(global(t, vm, "up")))
	require.Equal(t, "baz bar baz", vm.Heap.String(global(t, vm, "r")))
}

func TestSplitAndJoin(t *testing.T) {
	vm, _ := newVM(t)
	run(t, vm, `
		let parts = split("a,b,c", ",");
		let back = join(parts, "-");
	`)
	parts := vm.Heap.Array(global(t, vm, "parts"))
	require.Len(t, parts, 3)
	require.Equal(t, "a-b-c", vm.Heap.String(global(t, vm, "back")))
}

func TestFindStringAndArray(t *testing.T) {
	vm, _ := newVM(t)
	run(t, vm, `
		let i = find("hello world", "world");
		let j = find([1, 2, 3], 2);
		let k = find([1, 2, 3], 9);
	`)
	require.Equal(t, float64(6), global(t, vm, "i").AsNumber())
	require.Equal(t, float64(1), global(t, vm, "j").AsNumber())
	require.Equal(t, float64(-1), global(t, vm, "k").AsNumber())
}

func TestSliceStringAndArray(t *testing.T) {
	vm, _ := newVM(t)
	run(t, vm, `
		let s = slice("hello", 1, 3);
		let a = slice([1, 2, 3, 4], 1, 100);
	`)
	require.Equal(t, "el", vm.Heap.String(global(t, vm, "s")))
	elems := vm.Heap.Array(global(t, vm, "a"))
	require.Len(t, elems, 3)
	require.Equal(t, float64(2), elems[0].AsNumber())
}

func TestKeysAndValues(t *testing.T) {
	vm, _ := newVM(t)
	run(t, vm, `
		let o = {a = 1, b = 2};
		let ks = keys(o);
		let vs = values(o);
	`)
	ks := vm.Heap.Array(global(t, vm, "ks"))
	require.Len(t, ks, 2)
	require.Equal(t, "a", vm.Heap.String(ks[0]))
	require.Equal(t, "b", vm.Heap.String(ks[1]))
	vs := vm.Heap.Array(global(t, vm, "vs"))
	require.Equal(t, float64(1), vs[0].AsNumber())
	require.Equal(t, float64(2), vs[1].AsNumber())
}

func TestFilterMapReduceForeach(t *testing.T) {
	vm, out := newVM(t)
	run(t, vm, `
		let xs = [1, 2, 3, 4, 5];
		let evens = filter(xs, fn(x) { return x % 2 == 0; });
		let doubled = map(xs, fn(x) { return x * 2; });
		let total = reduce(xs, fn(acc, x) { return acc + x; }, 0);
		foreach(xs, fn(x) { print(x); });
	`)
	evens := vm.Heap.Array(global(t, vm, "evens"))
	require.Len(t, evens, 2)
	require.Equal(t, float64(2), evens[0].AsNumber())
	require.Equal(t, float64(4), evens[1].AsNumber())

	doubled := vm.Heap.Array(global(t, vm, "doubled"))
	require.Len(t, doubled, 5)
	require.Equal(t, float64(2), doubled[0].AsNumber())

	require.Equal(t, float64(15), global(t, vm, "total").AsNumber())

	require.Equal(t, "1\n2\n3\n4\n5\n", out.String())
}

func TestMathLibrary(t *testing.T) {
	vm, _ := newVM(t)
	run(t, vm, `
		let p = pi;
		let r = sqrt(16);
		let f = floor(1.9);
		let c = ceil(1.1);
		let a = abs(-3);
		let pw = pow(2, 10);
		let at = atan2(1, 1);
	`)
	require.InDelta(t, 3.14159265, global(t, vm, "p").AsNumber(), 1e-6)
	require.Equal(t, float64(4), global(t, vm, "r").AsNumber())
	require.Equal(t, float64(1), global(t, vm, "f").AsNumber())
	require.Equal(t, float64(2), global(t, vm, "c").AsNumber())
	require.Equal(t, float64(3), global(t, vm, "a").AsNumber())
	require.Equal(t, float64(1024), global(t, vm, "pw").AsNumber())
	require.InDelta(t, 0.78539816, global(t, vm, "at").AsNumber(), 1e-6)
}

func TestGCDisableEnableAreCallable(t *testing.T) {
	vm, _ := newVM(t)
	run(t, vm, `gc_disable(); gc_enable();`)
}

func TestReadLineReadsFromConfiguredStdin(t *testing.T) {
	vm := machine.NewVM()
	vm.Stdin = strings.NewReader("hello\nworld\n")
	var out bytes.Buffer
	vm.Stdout = &out
	stdlib.Install(vm)

	run(t, vm, `
		let a = readLine();
		print(a);
	`)
	require.Equal(t, "hello\n", out.String())
}

func TestRandomAndClockReturnNumbers(t *testing.T) {
	vm, _ := newVM(t)
	run(t, vm, `
		let r = random();
		let c = clock();
	`)
	require.True(t, global(t, vm, "r").IsNumber())
	require.True(t, global(t, vm, "c").IsNumber())
}
