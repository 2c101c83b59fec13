package stdlib

import (
	"math"

	"github.com/mna/tack/lang/machine"
)

const (
	piConst     = math.Pi
	degToRadFac = piConst / 180
	radToDegFac = 180 / piConst
)

// mathFn1 and mathFn2 wrap a math.* function of one or two arguments as a
// CFunction; every entry in original_source/src/library.cpp's tack_math/
// tack_math2 macro block is registered this way (spec.md section 12).
func mathFn1(f func(float64) float64) machine.CFunction {
	return func(vm *machine.VM, args []Value) (Value, error) {
		v := arg(args, 0)
		if !v.IsNumber() {
			return machine.Null, argError(0, "number", v)
		}
		return machine.Number(f(v.AsNumber())), nil
	}
}

func mathFn2(f func(float64, float64) float64) machine.CFunction {
	return func(vm *machine.VM, args []Value) (Value, error) {
		x, y := arg(args, 0), arg(args, 1)
		if !x.IsNumber() || !y.IsNumber() {
			return machine.Null, argError(0, "number", x)
		}
		return machine.Number(f(x.AsNumber(), y.AsNumber())), nil
	}
}

func degrees(rad float64) float64 { return rad * radToDegFac }
func radians(deg float64) float64 { return deg * degToRadFac }

func installMath(vm *machine.VM) {
	vm.SetGlobal("pi", machine.Number(piConst), true)

	for name, fn := range map[string]func(float64) float64{
		"sin": math.Sin, "cos": math.Cos, "tan": math.Tan,
		"asin": math.Asin, "acos": math.Acos, "atan": math.Atan,
		"sinh": math.Sinh, "cosh": math.Cosh, "tanh": math.Tanh,
		"asinh": math.Asinh, "acosh": math.Acosh, "atanh": math.Atanh,
		"exp": math.Exp, "exp2": math.Exp2, "sqrt": math.Sqrt,
		"log": math.Log, "log2": math.Log2, "log10": math.Log10,
		"floor": math.Floor, "ceil": math.Ceil, "abs": math.Abs,
		"round": math.Round, "degrees": degrees, "radians": radians,
	} {
		vm.RegisterFunction(name, true, mathFn1(fn))
	}

	vm.RegisterFunction("atan2", true, mathFn2(math.Atan2))
	vm.RegisterFunction("pow", true, mathFn2(math.Pow))
}
