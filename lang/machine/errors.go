package machine

import (
	"fmt"

	"github.com/mna/tack/lang/token"
)

// ErrorKind classifies a RuntimeError, mirroring spec.md section 7's runtime
// error taxonomy (TypeError, BoundsError, StackOverflow, ModuleError). A
// HostError is this implementation's addition: the embedding API's call/
// CFunction surface lets host Go code return an arbitrary error, which the
// interpreter reports the same way as any other runtime failure rather than
// inventing a silent swallow path.
type ErrorKind int

const (
	TypeError ErrorKind = iota
	BoundsError
	StackOverflowError
	ModuleErrorKind
	HostError
)

func (k ErrorKind) String() string {
	switch k {
	case TypeError:
		return "TypeError"
	case BoundsError:
		return "BoundsError"
	case StackOverflowError:
		return "StackOverflow"
	case ModuleErrorKind:
		return "ModuleError"
	case HostError:
		return "HostError"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// RuntimeError is a failure raised while executing bytecode (spec.md section
// 7): unlike lang/parser.Error and lang/compiler.CompileError, it carries the
// source position of the instruction that was executing, not just the
// original source line of a parse/compile decision.
type RuntimeError struct {
	Kind ErrorKind
	Pos  token.Pos
	Msg  string
}

func (e *RuntimeError) Error() string {
	if e.Pos == token.NoPos {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Pos, e.Kind, e.Msg)
}

func newErrorAt(kind ErrorKind, pos token.Pos, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// newError builds a RuntimeError positioned at the instruction fr is
// currently executing (fr.pc has already been advanced past it by the
// decode step, hence pc-1).
func (vm *VM) newError(fr *frame, kind ErrorKind, format string, args ...any) *RuntimeError {
	pos := fr.proto.fragment.Position(fr.pc - 1)
	return newErrorAt(kind, pos, format, args...)
}

// wrapErr normalizes an error returned by a CFunction (or any other
// non-bytecode source) into a RuntimeError positioned at the calling
// instruction, leaving an already-typed RuntimeError untouched.
func (vm *VM) wrapErr(fr *frame, err error) error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*RuntimeError); ok {
		return re
	}
	return vm.newError(fr, HostError, "%s", err.Error())
}
