package stdlib

import (
	"strings"
	"unicode/utf8"

	"github.com/mna/tack/lang/machine"
)

func biChr(vm *machine.VM, args []Value) (Value, error) {
	v := arg(args, 0)
	if !v.IsNumber() {
		return machine.Null, argError(0, "number", v)
	}
	return vm.Heap.NewTransientString(string(rune(int(v.AsNumber())))), nil
}

func biOrd(vm *machine.VM, args []Value) (Value, error) {
	v := arg(args, 0)
	if !v.IsString() {
		return machine.Null, argError(0, "string", v)
	}
	r, _ := utf8.DecodeRuneInString(vm.Heap.String(v))
	return machine.Number(float64(r)), nil
}

func biLower(vm *machine.VM, args []Value) (Value, error) {
	v := arg(args, 0)
	if !v.IsString() {
		return machine.Null, argError(0, "string", v)
	}
	return vm.Heap.NewTransientString(strings.ToLower(vm.Heap.String(v))), nil
}

func biUpper(vm *machine.VM, args []Value) (Value, error) {
	v := arg(args, 0)
	if !v.IsString() {
		return machine.Null, argError(0, "string", v)
	}
	return vm.Heap.NewTransientString(strings.ToUpper(vm.Heap.String(v))), nil
}

func biSplit(vm *machine.VM, args []Value) (Value, error) {
	v, sep := arg(args, 0), arg(args, 1)
	if !v.IsString() || !sep.IsString() {
		return machine.Null, argError(0, "string", v)
	}
	parts := strings.Split(vm.Heap.String(v), vm.Heap.String(sep))
	out := make([]Value, len(parts))
	for i, p := range parts {
		out[i] = vm.Heap.NewTransientString(p)
	}
	return vm.Heap.NewArray(out), nil
}

func biJoin(vm *machine.VM, args []Value) (Value, error) {
	v, sep := arg(args, 0), arg(args, 1)
	if !v.IsArray() {
		return machine.Null, argError(0, "array", v)
	}
	sepStr := ""
	if sep.IsString() {
		sepStr = vm.Heap.String(sep)
	}
	elems := vm.Heap.Array(v)
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = formatValue(vm, e)
	}
	return vm.Heap.NewTransientString(strings.Join(parts, sepStr)), nil
}

func biReplace(vm *machine.VM, args []Value) (Value, error) {
	v, old, new_ := arg(args, 0), arg(args, 1), arg(args, 2)
	if !v.IsString() || !old.IsString() || !new_.IsString() {
		return machine.Null, argError(0, "string", v)
	}
	return vm.Heap.NewTransientString(strings.ReplaceAll(vm.Heap.String(v), vm.Heap.String(old), vm.Heap.String(new_))), nil
}

// find locates needle within a haystack, either a string (substring search)
// or an array (element search, by valuesEqual-style content comparison via
// tostring for simplicity), returning the index or -1 (original_source/src/
// library.cpp lists "find" among the generic functions without specifying
// its semantics; this follows the common scripting-language convention).
func biFind(vm *machine.VM, args []Value) (Value, error) {
	haystack, needle := arg(args, 0), arg(args, 1)
	switch {
	case haystack.IsString() && needle.IsString():
		i := strings.Index(vm.Heap.String(haystack), vm.Heap.String(needle))
		return machine.Number(float64(i)), nil
	case haystack.IsArray():
		for i, e := range vm.Heap.Array(haystack) {
			if formatValue(vm, e) == formatValue(vm, needle) && e.TypeName() == needle.TypeName() {
				return machine.Number(float64(i)), nil
			}
		}
		return machine.Number(-1), nil
	default:
		return machine.Null, argError(0, "string or array", haystack)
	}
}

// slice returns a sub-range of a string or array, clamped to bounds, the
// way original_source's "slice" generic function is named (Python/Lua-style
// slicing, start inclusive and end exclusive).
func biSlice(vm *machine.VM, args []Value) (Value, error) {
	v := arg(args, 0)
	start, end := arg(args, 1), arg(args, 2)

	clamp := func(n float64, length int) int {
		i := int(n)
		if i < 0 {
			i = 0
		}
		if i > length {
			i = length
		}
		return i
	}

	switch {
	case v.IsString():
		s := vm.Heap.String(v)
		lo, hi := 0, len(s)
		if start.IsNumber() {
			lo = clamp(start.AsNumber(), len(s))
		}
		if end.IsNumber() {
			hi = clamp(end.AsNumber(), len(s))
		}
		if hi < lo {
			hi = lo
		}
		return vm.Heap.NewTransientString(s[lo:hi]), nil
	case v.IsArray():
		elems := vm.Heap.Array(v)
		lo, hi := 0, len(elems)
		if start.IsNumber() {
			lo = clamp(start.AsNumber(), len(elems))
		}
		if end.IsNumber() {
			hi = clamp(end.AsNumber(), len(elems))
		}
		if hi < lo {
			hi = lo
		}
		out := append([]Value(nil), elems[lo:hi]...)
		return vm.Heap.NewArray(out), nil
	default:
		return machine.Null, argError(0, "string or array", v)
	}
}
