// Package parser implements Tack's recursive-descent parser: it turns a
// token stream from lang/scanner into the AST defined in lang/ast.
package parser

import (
	"fmt"

	"github.com/mna/tack/lang/ast"
	"github.com/mna/tack/lang/scanner"
	"github.com/mna/tack/lang/token"
)

// Error is a parse error. It carries the line at which parsing failed and,
// where available, a description of what was expected, matching the error
// shape original_source/src/parsing.cpp produces (spec.md section 7,
// ParseError).
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Msg) }

// Parse parses a complete module from src and returns its AST, or the first
// error encountered. Parse functions never run past the first error: Tack
// does not attempt multi-error recovery (spec.md section 7: "all compile-time
// errors abort compilation with a message").
func Parse(src []byte) (mod *ast.Module, err error) {
	p := &parser{sc: scanner.New(src)}
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*Error); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()
	p.advance()
	mod = &ast.Module{Ln: 1}
	for p.tok.Kind != token.EOF {
		mod.Stmts = append(mod.Stmts, p.statement())
	}
	return mod, nil
}

// parser holds the mutable state of one parse. It never backtracks: an
// assignment is told apart from an expression statement by parsing the
// expression first and then checking for `=`. Syntax errors panic with
// *Error and are recovered at the top of Parse, per spec.md section 4.1.
type parser struct {
	sc  *scanner.Scanner
	tok scanner.Tok
}

func (p *parser) advance() {
	t, err := p.sc.Scan()
	if err != nil {
		p.fail(err.Error())
	}
	p.tok = t
}

func (p *parser) fail(format string, args ...any) {
	panic(&Error{Line: p.tok.Line, Msg: fmt.Sprintf(format, args...)})
}

func (p *parser) expect(k token.Token) scanner.Tok {
	if p.tok.Kind != k {
		p.fail("expected %s, got %s", k, p.tok.Kind)
	}
	t := p.tok
	p.advance()
	return t
}

func (p *parser) at(k token.Token) bool { return p.tok.Kind == k }

func (p *parser) accept(k token.Token) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}
