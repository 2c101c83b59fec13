package compiler_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/tack/lang/compiler"
	"github.com/mna/tack/lang/parser"
)

func mustCompile(t *testing.T, src string) *compiler.Program {
	t.Helper()
	mod, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	prog, err := compiler.Compile(mod, "test", nil)
	require.NoError(t, err)
	return prog
}

func TestCompileArithmetic(t *testing.T) {
	prog := mustCompile(t, `let x = 1 + 2 * 3;`)
	require.NotEmpty(t, prog.Toplevel.Code)
	require.Contains(t, prog.Globals.Names(), "x")
}

func TestCompileConstReassignmentIsCompileError(t *testing.T) {
	mod, err := parser.Parse([]byte(`const x = 1; x = 2;`))
	require.NoError(t, err)
	_, err = compiler.Compile(mod, "test", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "const")
}

func TestCompileUndeclaredNameIsCompileError(t *testing.T) {
	mod, err := parser.Parse([]byte(`let x = y;`))
	require.NoError(t, err)
	_, err = compiler.Compile(mod, "test", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "undeclared")
}

func TestCompileDuplicateParameterIsCompileError(t *testing.T) {
	mod, err := parser.Parse([]byte(`let f = fn(a, a) { return a; };`))
	require.NoError(t, err)
	_, err = compiler.Compile(mod, "test", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate parameter")
}

func TestCompileClosureCapturesOuterLocal(t *testing.T) {
	prog := mustCompile(t, `
		fn makeCounter() {
			let n = 0;
			return fn() {
				n = n + 1;
				return n;
			};
		}
	`)
	require.Len(t, prog.Functions, 2)
	inner := prog.Functions[1]
	require.Len(t, inner.Captures, 1)
}

func TestCompileIfElseProducesBalancedJumps(t *testing.T) {
	prog := mustCompile(t, `
		let x = 1;
		if (x == 1) {
			x = 2;
		} else {
			x = 3;
		}
	`)
	var jumps int
	for _, instr := range prog.Toplevel.Code {
		switch instr.Op() {
		case compiler.JUMPF, compiler.JUMPB, compiler.CONDSKIP:
			jumps++
		}
	}
	require.Greater(t, jumps, 0)
}

func TestCompileForRangeLoop(t *testing.T) {
	prog := mustCompile(t, `
		let total = 0;
		for i in 0..10 {
			total = total + i;
		}
	`)
	var sawForInt bool
	for _, instr := range prog.Toplevel.Code {
		if instr.Op() == compiler.FOR_INT {
			sawForInt = true
		}
	}
	require.True(t, sawForInt)
}

func TestCompileArrayLiteralAllocation(t *testing.T) {
	prog := mustCompile(t, `let xs = [1, 2, 3];`)
	var sawAlloc bool
	for _, instr := range prog.Toplevel.Code {
		if instr.Op() == compiler.ALLOC_ARRAY {
			sawAlloc = true
			require.EqualValues(t, 3, instr.R2())
		}
	}
	require.True(t, sawAlloc)
}

func TestDisassembleRoundTrip(t *testing.T) {
	prog := mustCompile(t, `let x = 1 + 2;`)
	out := compiler.Disassemble(prog)
	require.Contains(t, out, "module test")
	require.Contains(t, out, "add")

	var n int
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] == ";" || fields[0] == "func" {
			continue
		}
		instr, err := compiler.ParseDisassembly(line)
		require.NoError(t, err)
		require.Equal(t, prog.Toplevel.Code[n], instr)
		n++
	}
	require.Equal(t, len(prog.Toplevel.Code), n)
}
