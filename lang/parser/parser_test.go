package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/tack/lang/ast"
	"github.com/mna/tack/lang/parser"
	"github.com/mna/tack/lang/token"
)

func mustParse(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	return mod
}

func TestParseVarDecl(t *testing.T) {
	mod := mustParse(t, `let x = 1 + 2;`)
	require.Len(t, mod.Stmts, 1)
	decl, ok := mod.Stmts[0].(*ast.VarDecl)
	require.True(t, ok)
	require.Equal(t, "x", decl.Name)
	require.False(t, decl.Const)
	bin, ok := decl.Value.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, token.PLUS, bin.Op)
}

func TestParseConstDecl(t *testing.T) {
	mod := mustParse(t, `const pi = 3;`)
	decl := mod.Stmts[0].(*ast.VarDecl)
	require.True(t, decl.Const)
}

func TestParseOperatorPrecedence(t *testing.T) {
	mod := mustParse(t, `let x = 1 + 2 * 3;`)
	decl := mod.Stmts[0].(*ast.VarDecl)
	top := decl.Value.(*ast.Binary)
	require.Equal(t, token.PLUS, top.Op)
	require.IsType(t, &ast.NumberLit{}, top.X)
	mul := top.Y.(*ast.Binary)
	require.Equal(t, token.STAR, mul.Op)
}

func TestParseTernary(t *testing.T) {
	mod := mustParse(t, `let x = a ? 1 : 2;`)
	decl := mod.Stmts[0].(*ast.VarDecl)
	tern, ok := decl.Value.(*ast.Ternary)
	require.True(t, ok)
	require.IsType(t, &ast.Identifier{}, tern.Cond)
}

func TestParseArrayLiteral(t *testing.T) {
	mod := mustParse(t, `let xs = [1, 2, 3];`)
	decl := mod.Stmts[0].(*ast.VarDecl)
	arr, ok := decl.Value.(*ast.ArrayLit)
	require.True(t, ok)
	require.Len(t, arr.Elems, 3)
}

func TestParseObjectLiteralUsesEquals(t *testing.T) {
	mod := mustParse(t, `let o = { a = 1, b = 2 };`)
	decl := mod.Stmts[0].(*ast.VarDecl)
	obj, ok := decl.Value.(*ast.ObjectLit)
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, obj.Keys)
	require.Len(t, obj.Values, 2)
}

func TestParseObjectLiteralRejectsColon(t *testing.T) {
	_, err := parser.Parse([]byte(`let o = { a: 1 };`))
	require.Error(t, err)
}

func TestParseFuncLiteralAndCall(t *testing.T) {
	mod := mustParse(t, `let f = fn(a, b) { return a + b; }; let r = f(1, 2);`)
	decl := mod.Stmts[0].(*ast.VarDecl)
	fn, ok := decl.Value.(*ast.FuncLiteral)
	require.True(t, ok)
	require.Len(t, fn.Params, 2)
	require.Equal(t, "a", fn.Params[0].Name)

	call := mod.Stmts[1].(*ast.VarDecl).Value.(*ast.Call)
	require.Len(t, call.Args, 2)
}

func TestParseNamedFuncStmtIntroducesConstBinding(t *testing.T) {
	mod := mustParse(t, `fn add(a, b) { return a + b; }`)
	decl, ok := mod.Stmts[0].(*ast.VarDecl)
	require.True(t, ok)
	require.Equal(t, "add", decl.Name)
	require.True(t, decl.Const)
	require.IsType(t, &ast.FuncLiteral{}, decl.Value)
}

func TestParseIfElseChain(t *testing.T) {
	mod := mustParse(t, `
		if (x < 0) {
			y = -1;
		} else if (x == 0) {
			y = 0;
		} else {
			y = 1;
		}
	`)
	ifst, ok := mod.Stmts[0].(*ast.If)
	require.True(t, ok)
	elseIf, ok := ifst.Else.(*ast.If)
	require.True(t, ok)
	require.IsType(t, &ast.Block{}, elseIf.Else)
}

func TestParseWhileLoop(t *testing.T) {
	mod := mustParse(t, `while (x < 10) { x = x + 1; }`)
	w, ok := mod.Stmts[0].(*ast.While)
	require.True(t, ok)
	require.Len(t, w.Body.Stmts, 1)
}

func TestParseForOverArrayHasNoParens(t *testing.T) {
	mod := mustParse(t, `for v in xs { print(v); }`)
	f, ok := mod.Stmts[0].(*ast.ForIn)
	require.True(t, ok)
	require.Equal(t, ast.ForArray, f.Kind)
	require.Equal(t, "v", f.Var1)
}

func TestParseForOverObjectEntries(t *testing.T) {
	mod := mustParse(t, `for k, v in obj { print(k); }`)
	f, ok := mod.Stmts[0].(*ast.ForIn)
	require.True(t, ok)
	require.Equal(t, ast.ForEntries, f.Kind)
	require.Equal(t, "k", f.Var1)
	require.Equal(t, "v", f.Var2)
}

func TestParseForIntRangeUsesIn(t *testing.T) {
	mod := mustParse(t, `for i in 0..10 { print(i); }`)
	f, ok := mod.Stmts[0].(*ast.ForInt)
	require.True(t, ok)
	require.Equal(t, "i", f.Var)
}

func TestParseForIntRangeRejectsTwoVars(t *testing.T) {
	_, err := parser.Parse([]byte(`for i, j in 0..10 { }`))
	require.Error(t, err)
}

func TestParseIndexAndAccessChain(t *testing.T) {
	mod := mustParse(t, `let y = xs[0].field;`)
	decl := mod.Stmts[0].(*ast.VarDecl)
	acc, ok := decl.Value.(*ast.Access)
	require.True(t, ok)
	require.Equal(t, "field", acc.Field)
	require.IsType(t, &ast.Index{}, acc.Recv)
}

func TestParseAssignmentToIndexAndAccess(t *testing.T) {
	mod := mustParse(t, `xs[0] = 1; o.field = 2;`)
	a1 := mod.Stmts[0].(*ast.Assign)
	require.IsType(t, &ast.Index{}, a1.Target)
	a2 := mod.Stmts[1].(*ast.Assign)
	require.IsType(t, &ast.Access{}, a2.Target)
}

func TestParseInvalidAssignmentTargetIsError(t *testing.T) {
	_, err := parser.Parse([]byte(`1 + 2 = 3;`))
	require.Error(t, err)
}

func TestParseUnaryOperators(t *testing.T) {
	mod := mustParse(t, `let x = -1; let y = !true; let z = #xs;`)
	u1 := mod.Stmts[0].(*ast.VarDecl).Value.(*ast.Unary)
	require.Equal(t, token.MINUS, u1.Op)
	u3 := mod.Stmts[2].(*ast.VarDecl).Value.(*ast.Unary)
	require.Equal(t, token.POUND, u3.Op)
}

func TestParseReturnWithAndWithoutValue(t *testing.T) {
	mod := mustParse(t, `fn f() { return; } fn g() { return 1; }`)
	fn := mod.Stmts[0].(*ast.VarDecl).Value.(*ast.FuncLiteral)
	ret := fn.Body.Stmts[0].(*ast.Return)
	require.Nil(t, ret.Value)

	g := mod.Stmts[1].(*ast.VarDecl).Value.(*ast.FuncLiteral)
	require.IsType(t, &ast.NumberLit{}, g.Body.Stmts[0].(*ast.Return).Value)
}

func TestParseUnterminatedBlockIsError(t *testing.T) {
	_, err := parser.Parse([]byte(`fn f() { return 1;`))
	require.Error(t, err)
}
