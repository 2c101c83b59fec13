package parser

import (
	"github.com/mna/tack/lang/ast"
	"github.com/mna/tack/lang/token"
)

// statement parses one statement per the grammar in spec.md section 4.1.
// Statement terminators are optional, so a trailing SEMI is consumed if
// present but never required.
func (p *parser) statement() ast.Stmt {
	switch p.tok.Kind {
	case token.LET, token.CONST:
		return p.varDecl()
	case token.IF:
		return p.ifStmt()
	case token.WHILE:
		return p.whileStmt()
	case token.FOR:
		return p.forStmt()
	case token.RETURN:
		return p.returnStmt()
	case token.LBRACE:
		return p.blockStmt()
	case token.FN:
		return p.namedFuncStmt()
	default:
		return p.assignOrExprStmt()
	}
}

func (p *parser) semi() { p.accept(token.SEMI) }

func (p *parser) varDecl() ast.Stmt {
	isConst := p.tok.Kind == token.CONST
	ln := p.tok.Line
	p.advance() // let/const
	name := p.expect(token.IDENT).Text
	p.expect(token.EQ)
	val := p.expr()
	p.semi()
	return &ast.VarDecl{Name: name, Const: isConst, Value: val, Ln: ln}
}

// namedFuncStmt handles `fn name(...) { ... }` at statement position, which
// introduces a const binding for name in the surrounding scope (spec.md
// section 4.1, "Function literal"). An anonymous `fn(...) { ... }` used as a
// bare statement compiles as an expression statement.
func (p *parser) namedFuncStmt() ast.Stmt {
	ln := p.tok.Line
	fn := p.funcLiteral().(*ast.FuncLiteral)
	if fn.Name == "" {
		return &ast.ExprStmt{X: fn, Ln: ln}
	}
	return &ast.VarDecl{Name: fn.Name, Const: true, Value: fn, Ln: ln}
}

func (p *parser) blockStmt() *ast.Block {
	ln := p.expect(token.LBRACE).Line
	var stmts []ast.Stmt
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		stmts = append(stmts, p.statement())
	}
	p.expect(token.RBRACE)
	return &ast.Block{Stmts: stmts, Ln: ln}
}

func (p *parser) ifStmt() ast.Stmt {
	ln := p.expect(token.IF).Line
	p.expect(token.LPAREN)
	cond := p.expr()
	p.expect(token.RPAREN)
	then := p.blockStmt()
	var els ast.Stmt
	if p.accept(token.ELSE) {
		if p.at(token.IF) {
			els = p.ifStmt()
		} else {
			els = p.blockStmt()
		}
	}
	return &ast.If{Cond: cond, Then: then, Else: els, Ln: ln}
}

func (p *parser) whileStmt() ast.Stmt {
	ln := p.expect(token.WHILE).Line
	p.expect(token.LPAREN)
	cond := p.expr()
	p.expect(token.RPAREN)
	body := p.blockStmt()
	return &ast.While{Cond: cond, Body: body, Ln: ln}
}

// forStmt parses the three collection forms and the integer-range form
// (spec.md section 4.1):
//
//	for v in arr { ... }          (ForArray)
//	for k in obj { ... }          (ForArray too; the iterable's runtime type decides)
//	for k, v in obj { ... }       (ForEntries)
//	for i in lo..hi { ... }       (ForInt)
func (p *parser) forStmt() ast.Stmt {
	ln := p.expect(token.FOR).Line
	var1 := p.expect(token.IDENT).Text
	var2 := ""
	kind := ast.ForArray
	if p.accept(token.COMMA) {
		var2 = p.expect(token.IDENT).Text
		kind = ast.ForEntries
	}
	p.expect(token.IN)

	// An integer range is lexically `expr .. expr`; any other expression
	// denotes a collection to iterate. We parse the additive-level expression
	// (the level just above range) first, then check for RANGE.
	first := p.additive()
	if p.accept(token.RANGE) {
		if var2 != "" {
			p.fail("integer range for-loop takes a single loop variable")
		}
		hi := p.additive()
		body := p.blockStmt()
		return &ast.ForInt{Var: var1, Lo: first, Hi: hi, Body: body, Ln: ln}
	}

	iter := p.continueBinaryFrom(first)
	body := p.blockStmt()
	if kind == ast.ForEntries {
		return &ast.ForIn{Kind: ast.ForEntries, Var1: var1, Var2: var2, Iter: iter, Body: body, Ln: ln}
	}
	return &ast.ForIn{Kind: kind, Var1: var1, Iter: iter, Body: body, Ln: ln}
}

// continueBinaryFrom resumes precedence climbing above the additive level
// using an already-parsed operand, so that `for v in a + b { ... }` parses
// the same as a standalone expression would.
func (p *parser) continueBinaryFrom(left ast.Expr) ast.Expr {
	for p.at(token.LTLT) || p.at(token.GTGT) {
		op, ln := p.tok.Kind, p.tok.Line
		p.advance()
		right := p.additive()
		left = &ast.Binary{Op: op, X: left, Y: right, Ln: ln}
	}
	if isCompareOp(p.tok.Kind) {
		op, ln := p.tok.Kind, p.tok.Line
		p.advance()
		right := p.shift()
		left = &ast.Binary{Op: op, X: left, Y: right, Ln: ln}
	}
	for p.at(token.PIPE) || p.at(token.CIRCUMFLEX) || p.at(token.AMP) {
		op, ln := p.tok.Kind, p.tok.Line
		p.advance()
		right := p.compare()
		left = &ast.Binary{Op: op, X: left, Y: right, Ln: ln}
	}
	for p.at(token.ANDAND) {
		ln := p.tok.Line
		p.advance()
		right := p.bitwise()
		left = &ast.Binary{Op: token.ANDAND, X: left, Y: right, Ln: ln}
	}
	for p.at(token.OROR) {
		ln := p.tok.Line
		p.advance()
		right := p.and()
		left = &ast.Binary{Op: token.OROR, X: left, Y: right, Ln: ln}
	}
	if p.accept(token.QUESTION) {
		then := p.ternary()
		p.expect(token.COLON)
		els := p.ternary()
		left = &ast.Ternary{Cond: left, Then: then, Else: els, Ln: left.Line()}
	}
	return left
}

func (p *parser) returnStmt() ast.Stmt {
	ln := p.expect(token.RETURN).Line
	var val ast.Expr
	if !p.at(token.SEMI) && !p.at(token.RBRACE) && !p.at(token.EOF) {
		val = p.expr()
	}
	p.semi()
	return &ast.Return{Value: val, Ln: ln}
}

// assignOrExprStmt parses a bare expression and, if followed by `=`, turns it
// into an assignment. The LHS must be an Identifier, Index, or Access
// (spec.md section 4.1); anything else is a compile-time... actually a
// parse-time error here, since the shape is known immediately.
func (p *parser) assignOrExprStmt() ast.Stmt {
	ln := p.tok.Line
	x := p.expr()
	if p.accept(token.EQ) {
		switch x.(type) {
		case *ast.Identifier, *ast.Index, *ast.Access:
		default:
			p.fail("invalid assignment target")
		}
		val := p.expr()
		p.semi()
		return &ast.Assign{Target: x, Value: val, Ln: ln}
	}
	p.semi()
	return &ast.ExprStmt{X: x, Ln: ln}
}
