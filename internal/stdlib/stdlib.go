// Package stdlib registers the builtin globals every Tack VM gets by
// default: print/tostring/type, the generic and string helpers, the
// array/object higher-order functions, and the math library, all grounded
// on original_source/src/library.cpp's setup_standard_library (spec.md
// section 12, "SUPPLEMENTED FEATURES" — the distilled spec never names a
// standard library, but the original program ships one and a scripting
// language without print or math is not a usable one).
package stdlib

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/mna/tack/lang/machine"
)

// Install registers every builtin onto vm as a const global, so Tack code
// cannot reassign any of them.
func Install(vm *machine.VM) {
	vm.RegisterFunction("print", true, biPrint)
	vm.RegisterFunction("random", true, biRandom)
	vm.RegisterFunction("clock", true, biClock)
	vm.RegisterFunction("gc_disable", true, biGCDisable)
	vm.RegisterFunction("gc_enable", true, biGCEnable)
	vm.RegisterFunction("readLine", true, biReadLine)
	vm.RegisterFunction("tostring", true, biToString)
	vm.RegisterFunction("tonumber", true, biToNumber)
	vm.RegisterFunction("type", true, biType)

	vm.RegisterFunction("chr", true, biChr)
	vm.RegisterFunction("ord", true, biOrd)
	vm.RegisterFunction("lower", true, biLower)
	vm.RegisterFunction("upper", true, biUpper)
	vm.RegisterFunction("split", true, biSplit)
	vm.RegisterFunction("join", true, biJoin)
	vm.RegisterFunction("replace", true, biReplace)
	vm.RegisterFunction("find", true, biFind)
	vm.RegisterFunction("slice", true, biSlice)

	vm.RegisterFunction("keys", true, biKeys)
	vm.RegisterFunction("values", true, biValues)
	vm.RegisterFunction("filter", true, biFilter)
	vm.RegisterFunction("map", true, biMap)
	vm.RegisterFunction("reduce", true, biReduce)
	vm.RegisterFunction("foreach", true, biForeach)

	installMath(vm)
}

func argError(i int, want string, got machine.Value) error {
	return fmt.Errorf("argument %d: expected %s, got %s", i, want, got.TypeName())
}

func arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return machine.Null
}

// Value is a local alias so the builtin signatures below read the same as
// CFunction's (spec.md section 6).
type Value = machine.Value

func biPrint(vm *machine.VM, args []Value) (Value, error) {
	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(formatValue(vm, a))
	}
	fmt.Fprintln(vm.Stdout, b.String())
	return machine.Null, nil
}

func biReadLine(vm *machine.VM, args []Value) (Value, error) {
	line, ok := vm.ReadLine()
	if !ok {
		return machine.Null, nil
	}
	return vm.Heap.NewTransientString(line), nil
}

func biRandom(vm *machine.VM, args []Value) (Value, error) {
	return machine.Number(rand.Float64()), nil
}

func biClock(vm *machine.VM, args []Value) (Value, error) {
	return machine.Number(float64(time.Now().UnixNano()) / 1e9), nil
}

func biGCDisable(vm *machine.VM, args []Value) (Value, error) {
	vm.SetGCState(machine.GCDisabled)
	return machine.Null, nil
}

func biGCEnable(vm *machine.VM, args []Value) (Value, error) {
	vm.SetGCState(machine.GCEnabled)
	return machine.Null, nil
}

func biToString(vm *machine.VM, args []Value) (Value, error) {
	return vm.Heap.NewTransientString(formatValue(vm, arg(args, 0))), nil
}

func biToNumber(vm *machine.VM, args []Value) (Value, error) {
	v := arg(args, 0)
	if v.IsNumber() {
		return v, nil
	}
	if !v.IsString() {
		return machine.Null, argError(0, "string", v)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(vm.Heap.String(v)), 64)
	if err != nil {
		return machine.Null, nil
	}
	return machine.Number(f), nil
}

func biType(vm *machine.VM, args []Value) (Value, error) {
	return vm.Heap.InternString(arg(args, 0).TypeName()), nil
}

// formatValue renders v the way print/tostring does: a recursive, literal
// rendering for the composite types rather than a pointer/address (spec.md
// GLOSSARY, "Value"; original_source/src/library.cpp's tostring streams
// through operator<<, which this mirrors in Go terms).
func formatValue(vm *machine.VM, v Value) string {
	switch {
	case v.IsNull():
		return "null"
	case v.IsBool():
		return strconv.FormatBool(v.AsBool())
	case v.IsNumber():
		return strconv.FormatFloat(v.AsNumber(), 'g', -1, 64)
	case v.IsString():
		return vm.Heap.String(v)
	case v.IsArray():
		elems := vm.Heap.Array(v)
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = formatValue(vm, e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case v.IsObject():
		obj := vm.Heap.Object(v)
		keys := obj.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			fv, _ := obj.Get(k)
			parts[i] = k + ": " + formatValue(vm, fv)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case v.IsFunction(), v.IsCFunction():
		return "<function>"
	default:
		return v.TypeName()
	}
}
