package machine_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/tack/lang/machine"
)

func mustRun(t *testing.T, src string) *machine.VM {
	t.Helper()
	vm := machine.NewVM()
	_, err := vm.LoadSource("test", []byte(src))
	require.NoError(t, err)
	return vm
}

func TestArithmeticAndGlobals(t *testing.T) {
	vm := mustRun(t, `let x = 1 + 2 * 3;`)
	v, ok := vm.GetGlobal("x")
	require.True(t, ok)
	require.True(t, v.IsNumber())
	require.Equal(t, float64(7), v.AsNumber())
}

func TestStringConcatenation(t *testing.T) {
	vm := mustRun(t, `let s = "foo" + "bar";`)
	v, _ := vm.GetGlobal("s")
	require.True(t, v.IsString())
	require.Equal(t, "foobar", vm.Heap.String(v))
}

func TestArrayPushPop(t *testing.T) {
	vm := mustRun(t, `
		let xs = [1, 2];
		xs << 3;
		let popped = xs >> 0;
	`)
	xs, _ := vm.GetGlobal("xs")
	require.True(t, xs.IsArray())
	require.Len(t, vm.Heap.Array(xs), 2)
	popped, _ := vm.GetGlobal("popped")
	require.Equal(t, float64(3), popped.AsNumber())
}

func TestArrayOutOfBoundsIsBoundsError(t *testing.T) {
	vm := machine.NewVM()
	_, err := vm.LoadSource("test", []byte(`let xs = [1]; let y = xs[5];`))
	require.Error(t, err)
	rerr, ok := err.(*machine.RuntimeError)
	require.True(t, ok)
	require.Equal(t, machine.BoundsError, rerr.Kind)
}

func TestAddingIncompatibleTypesIsTypeError(t *testing.T) {
	vm := machine.NewVM()
	_, err := vm.LoadSource("test", []byte(`let y = 1 + "a";`))
	require.Error(t, err)
	rerr, ok := err.(*machine.RuntimeError)
	require.True(t, ok)
	require.Equal(t, machine.TypeError, rerr.Kind)
}

func TestClosureCapturesAndMutatesOuterLocal(t *testing.T) {
	vm := mustRun(t, `
		fn makeCounter() {
			let n = 0;
			return fn() {
				n = n + 1;
				return n;
			};
		}
		let counter = makeCounter();
		let a = counter();
		let b = counter();
		let c = counter();
	`)
	a, _ := vm.GetGlobal("a")
	b, _ := vm.GetGlobal("b")
	c, _ := vm.GetGlobal("c")
	require.Equal(t, float64(1), a.AsNumber())
	require.Equal(t, float64(2), b.AsNumber())
	require.Equal(t, float64(3), c.AsNumber())
}

func TestTwoClosuresOverSameLocalShareState(t *testing.T) {
	vm := mustRun(t, `
		fn makePair() {
			let n = 0;
			return [fn() { n = n + 1; return n; }, fn() { return n; }];
		}
		let pair = makePair();
		let inc = pair[0];
		let get = pair[1];
		inc();
		inc();
		let seen = get();
	`)
	seen, _ := vm.GetGlobal("seen")
	require.Equal(t, float64(2), seen.AsNumber())
}

func TestRecursiveFunctionCall(t *testing.T) {
	vm := mustRun(t, `
		fn fact(n) {
			if (n <= 1) {
				return 1;
			}
			return n * fact(n - 1);
		}
		let r = fact(5);
	`)
	r, _ := vm.GetGlobal("r")
	require.Equal(t, float64(120), r.AsNumber())
}

func TestForOverArray(t *testing.T) {
	vm := mustRun(t, `
		let total = 0;
		for x in [1, 2, 3, 4] {
			total = total + x;
		}
	`)
	total, _ := vm.GetGlobal("total")
	require.Equal(t, float64(10), total.AsNumber())
}

func TestForOverObjectKeys(t *testing.T) {
	vm := mustRun(t, `
		let obj = {a = 1, b = 2};
		let names = "";
		for k in obj {
			names = names + k;
		}
	`)
	names, _ := vm.GetGlobal("names")
	require.True(t, names.IsString())
	require.Equal(t, "ab", vm.Heap.String(names))
}

func TestForOverObjectKeyValuePairs(t *testing.T) {
	vm := mustRun(t, `
		let obj = {a = 1, b = 2};
		let total = 0;
		for k, v in obj {
			total = total + v;
		}
	`)
	total, _ := vm.GetGlobal("total")
	require.Equal(t, float64(3), total.AsNumber())
}

func TestObjectFieldMissIsBoundsError(t *testing.T) {
	vm := machine.NewVM()
	_, err := vm.LoadSource("test", []byte(`let o = {a = 1}; let y = o.b;`))
	require.Error(t, err)
	rerr, ok := err.(*machine.RuntimeError)
	require.True(t, ok)
	require.Equal(t, machine.BoundsError, rerr.Kind)
}

func TestArityMismatchFillsMissingWithNullAndIgnoresExtras(t *testing.T) {
	vm := mustRun(t, `
		fn f(a, b) {
			return [a, b];
		}
		let short = f(1);
		let long = f(1, 2, 3, 4);
	`)
	short, _ := vm.GetGlobal("short")
	elems := vm.Heap.Array(short)
	require.True(t, elems[0].IsNumber())
	require.True(t, elems[1].IsNull())

	long, _ := vm.GetGlobal("long")
	elems = vm.Heap.Array(long)
	require.Equal(t, float64(1), elems[0].AsNumber())
	require.Equal(t, float64(2), elems[1].AsNumber())
}

func TestEmbeddingAPIRegisterFunctionAndCall(t *testing.T) {
	vm := machine.NewVM()
	var seen []machine.Value
	vm.RegisterFunction("hostFn", true, func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		seen = append(seen, args...)
		return machine.Number(42), nil
	})
	_, err := vm.LoadSource("test", []byte(`let r = hostFn(1, 2);`))
	require.NoError(t, err)
	r, _ := vm.GetGlobal("r")
	require.Equal(t, float64(42), r.AsNumber())
	require.Len(t, seen, 2)
}

func TestEmbeddingAPICallFromHost(t *testing.T) {
	vm := machine.NewVM()
	_, err := vm.LoadSource("test", []byte(`fn double(x) { return x * 2; }`))
	require.NoError(t, err)
	fn, ok := vm.GetGlobal("double")
	require.True(t, ok)
	r, err := vm.Call(fn, []machine.Value{machine.Number(21)})
	require.NoError(t, err)
	require.Equal(t, float64(42), r.AsNumber())
}

func TestEmbeddingAPIAllocArrayAndUnpin(t *testing.T) {
	vm := machine.NewVM()
	arr := vm.AllocArray([]machine.Value{machine.Number(1), machine.Number(2)})
	require.True(t, arr.IsArray())
	vm.Unpin(arr)
}

func TestHostFunctionErrorSurfacesAsHostError(t *testing.T) {
	vm := machine.NewVM()
	vm.RegisterFunction("fails", true, func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		return machine.Null, errFake{}
	})
	_, err := vm.LoadSource("test", []byte(`let r = fails();`))
	require.Error(t, err)
	rerr, ok := err.(*machine.RuntimeError)
	require.True(t, ok)
	require.Equal(t, machine.HostError, rerr.Kind)
}

type errFake struct{}

func (errFake) Error() string { return "boom" }

func TestGCCollectsUnreachableArrays(t *testing.T) {
	vm := machine.NewVM()
	_, err := vm.LoadSource("test", []byte(`
		fn churn() {
			let i = 0;
			while (i < 2000) {
				let tmp = [1, 2, 3];
				i = i + 1;
			}
		}
		churn();
	`))
	require.NoError(t, err)
	vm.CollectGarbage()
	stats := vm.Stats()
	require.Less(t, stats.Arrays, 100)
}

func TestPinPreventsCollection(t *testing.T) {
	vm := machine.NewVM()
	pinned := vm.AllocArray([]machine.Value{machine.Number(1)})
	for i := 0; i < 100; i++ {
		vm.Heap.NewArray([]machine.Value{machine.Number(float64(i))})
	}
	vm.CollectGarbage()
	require.True(t, pinned.IsArray())
	require.Len(t, vm.Heap.Array(pinned), 1)
}

func TestStdoutIsConfigurable(t *testing.T) {
	vm := machine.NewVM()
	var buf bytes.Buffer
	vm.Stdout = &buf
	vm.RegisterFunction("emit", true, func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		vm.Stdout.Write([]byte("hi"))
		return machine.Null, nil
	})
	_, err := vm.LoadSource("test", []byte(`emit();`))
	require.NoError(t, err)
	require.Equal(t, "hi", buf.String())
}
