package parser

import (
	"github.com/mna/tack/lang/ast"
	"github.com/mna/tack/lang/token"
)

// expr parses a full expression at the lowest precedence level (ternary),
// per the grammar table in spec.md section 4.1.
func (p *parser) expr() ast.Expr {
	return p.ternary()
}

// ternary is `cond ? then : else`, right-associative.
func (p *parser) ternary() ast.Expr {
	ln := p.tok.Line
	cond := p.or()
	if !p.accept(token.QUESTION) {
		return cond
	}
	then := p.ternary()
	p.expect(token.COLON)
	els := p.ternary()
	return &ast.Ternary{Cond: cond, Then: then, Else: els, Ln: ln}
}

func (p *parser) or() ast.Expr {
	left := p.and()
	for p.at(token.OROR) {
		ln := p.tok.Line
		p.advance()
		right := p.and()
		left = &ast.Binary{Op: token.OROR, X: left, Y: right, Ln: ln}
	}
	return left
}

func (p *parser) and() ast.Expr {
	left := p.bitwise()
	for p.at(token.ANDAND) {
		ln := p.tok.Line
		p.advance()
		right := p.bitwise()
		left = &ast.Binary{Op: token.ANDAND, X: left, Y: right, Ln: ln}
	}
	return left
}

func (p *parser) bitwise() ast.Expr {
	left := p.compare()
	for p.at(token.PIPE) || p.at(token.CIRCUMFLEX) || p.at(token.AMP) {
		op, ln := p.tok.Kind, p.tok.Line
		p.advance()
		right := p.compare()
		left = &ast.Binary{Op: op, X: left, Y: right, Ln: ln}
	}
	return left
}

func isCompareOp(k token.Token) bool {
	switch k {
	case token.EQEQ, token.BANGEQ, token.LE, token.GE, token.LT, token.GT:
		return true
	}
	return false
}

// compare implements the non-associative comparison level: chaining (e.g.
// `a < b < c`) is rejected at parse time, per spec.md section 4.1.
func (p *parser) compare() ast.Expr {
	left := p.shift()
	if !isCompareOp(p.tok.Kind) {
		return left
	}
	op, ln := p.tok.Kind, p.tok.Line
	p.advance()
	right := p.shift()
	result := ast.Expr(&ast.Binary{Op: op, X: left, Y: right, Ln: ln})
	if isCompareOp(p.tok.Kind) {
		p.fail("comparison operators cannot be chained")
	}
	return result
}

func (p *parser) shift() ast.Expr {
	left := p.additive()
	for p.at(token.LTLT) || p.at(token.GTGT) {
		op, ln := p.tok.Kind, p.tok.Line
		p.advance()
		right := p.additive()
		left = &ast.Binary{Op: op, X: left, Y: right, Ln: ln}
	}
	return left
}

func (p *parser) additive() ast.Expr {
	left := p.multiplicative()
	for p.at(token.PLUS) || p.at(token.MINUS) {
		op, ln := p.tok.Kind, p.tok.Line
		p.advance()
		right := p.multiplicative()
		left = &ast.Binary{Op: op, X: left, Y: right, Ln: ln}
	}
	return left
}

func (p *parser) multiplicative() ast.Expr {
	left := p.exponent()
	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.PERCENT) {
		op, ln := p.tok.Kind, p.tok.Line
		p.advance()
		right := p.exponent()
		left = &ast.Binary{Op: op, X: left, Y: right, Ln: ln}
	}
	return left
}

// exponent is `**`, right-associative.
func (p *parser) exponent() ast.Expr {
	left := p.unary()
	if !p.at(token.STARSTAR) {
		return left
	}
	ln := p.tok.Line
	p.advance()
	right := p.exponent()
	return &ast.Binary{Op: token.STARSTAR, X: left, Y: right, Ln: ln}
}

func isUnaryOp(k token.Token) bool {
	switch k {
	case token.MINUS, token.BANG, token.TILDE, token.POUND:
		return true
	}
	return false
}

func (p *parser) unary() ast.Expr {
	if isUnaryOp(p.tok.Kind) {
		op, ln := p.tok.Kind, p.tok.Line
		p.advance()
		x := p.unary()
		return &ast.Unary{Op: op, X: x, Ln: ln}
	}
	return p.postfix()
}

// postfix parses the chain of call/access/index suffixes, per spec.md
// section 4.1 ("Postfix chain").
func (p *parser) postfix() ast.Expr {
	x := p.primary()
	for {
		switch {
		case p.at(token.LPAREN):
			ln := p.tok.Line
			p.advance()
			var args []ast.Expr
			for !p.at(token.RPAREN) {
				args = append(args, p.expr())
				if !p.accept(token.COMMA) {
					break
				}
			}
			p.expect(token.RPAREN)
			x = &ast.Call{Callee: x, Args: args, Ln: ln}
		case p.at(token.DOT):
			ln := p.tok.Line
			p.advance()
			name := p.expect(token.IDENT).Text
			x = &ast.Access{Recv: x, Field: name, Ln: ln}
		case p.at(token.LBRACK):
			ln := p.tok.Line
			p.advance()
			idx := p.expr()
			p.expect(token.RBRACK)
			x = &ast.Index{Recv: x, Idx: idx, Ln: ln}
		default:
			return x
		}
	}
}

func (p *parser) primary() ast.Expr {
	ln := p.tok.Line
	switch p.tok.Kind {
	case token.NUMBER:
		v := p.tok.Num
		p.advance()
		return &ast.NumberLit{Value: v, Ln: ln}
	case token.STRING:
		v := p.tok.Text
		p.advance()
		return &ast.StringLit{Value: v, Ln: ln}
	case token.TRUE:
		p.advance()
		return &ast.BoolLit{Value: true, Ln: ln}
	case token.FALSE:
		p.advance()
		return &ast.BoolLit{Value: false, Ln: ln}
	case token.NULL:
		p.advance()
		return &ast.NullLit{Ln: ln}
	case token.IDENT:
		name := p.tok.Text
		p.advance()
		return &ast.Identifier{Name: name, Ln: ln}
	case token.LPAREN:
		p.advance()
		x := p.expr()
		p.expect(token.RPAREN)
		return x
	case token.LBRACK:
		return p.arrayLit()
	case token.LBRACE:
		return p.objectLit()
	case token.FN:
		return p.funcLiteral()
	}
	p.fail("unexpected token %s in expression", p.tok.Kind)
	panic("unreachable")
}

func (p *parser) arrayLit() ast.Expr {
	ln := p.expect(token.LBRACK).Line
	var elems []ast.Expr
	for !p.at(token.RBRACK) {
		elems = append(elems, p.expr())
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACK)
	return &ast.ArrayLit{Elems: elems, Ln: ln}
}

func (p *parser) objectLit() ast.Expr {
	ln := p.expect(token.LBRACE).Line
	var keys []string
	var vals []ast.Expr
	for !p.at(token.RBRACE) {
		key := p.expect(token.IDENT).Text
		p.expect(token.EQ)
		val := p.expr()
		keys = append(keys, key)
		vals = append(vals, val)
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE)
	return &ast.ObjectLit{Keys: keys, Values: vals, Ln: ln}
}

// funcLiteral parses `fn name? ( params ) block` (spec.md section 4.1).
func (p *parser) funcLiteral() ast.Expr {
	ln := p.expect(token.FN).Line
	name := ""
	if p.at(token.IDENT) {
		name = p.tok.Text
		p.advance()
	}
	p.expect(token.LPAREN)
	var params []*ast.ParamDef
	seen := map[string]bool{}
	for !p.at(token.RPAREN) {
		pln := p.tok.Line
		pname := p.expect(token.IDENT).Text
		if seen[pname] {
			p.fail("duplicate parameter %q", pname)
		}
		seen[pname] = true
		params = append(params, &ast.ParamDef{Name: pname, Ln: pln})
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	body := p.blockStmt()
	return &ast.FuncLiteral{Name: name, Params: params, Body: body, Ln: ln}
}
