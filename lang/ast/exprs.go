package ast

import "github.com/mna/tack/lang/token"

type (
	// Identifier is a bare name reference.
	Identifier struct {
		Name string
		Ln   int
	}

	// NumberLit is a numeric literal (spec.md: numbers are IEEE-754 doubles).
	NumberLit struct {
		Value float64
		Ln    int
	}

	// StringLit is a double-quoted string literal.
	StringLit struct {
		Value string
		Ln    int
	}

	// BoolLit is `true` or `false`.
	BoolLit struct {
		Value bool
		Ln    int
	}

	// NullLit is `null`.
	NullLit struct {
		Ln int
	}

	// ArrayLit is `[e0, e1, ...]`.
	ArrayLit struct {
		Elems []Expr
		Ln    int
	}

	// ObjectLit is `{ k0 = v0, k1 = v1, ... }`. Keys evaluate in source order.
	ObjectLit struct {
		Keys   []string
		Values []Expr
		Ln     int
	}

	// FuncLiteral is `fn name?(params) block`. Name is empty for anonymous
	// function expressions.
	FuncLiteral struct {
		Name   string
		Params []*ParamDef
		Body   *Block
		Ln     int
	}

	// Call is `callee(args...)`.
	Call struct {
		Callee Expr
		Args   []Expr
		Ln     int
	}

	// Index is `recv[idx]`.
	Index struct {
		Recv Expr
		Idx  Expr
		Ln   int
	}

	// Access is `recv.field`.
	Access struct {
		Recv  Expr
		Field string
		Ln    int
	}

	// Unary is a prefix operator: - ! ~ #.
	Unary struct {
		Op token.Token
		X  Expr
		Ln int
	}

	// Binary is an infix operator, one node kind shared by every binary
	// operator in the grammar (spec.md section 4.1, precedence levels 2-9).
	Binary struct {
		Op   token.Token
		X, Y Expr
		Ln   int
	}

	// Ternary is `cond ? then : else`.
	Ternary struct {
		Cond, Then, Else Expr
		Ln               int
	}
)

func (n *Identifier) Line() int    { return n.Ln }
func (n *Identifier) Walk(Visitor) {}
func (n *Identifier) exprNode()    {}

func (n *NumberLit) Line() int    { return n.Ln }
func (n *NumberLit) Walk(Visitor) {}
func (n *NumberLit) exprNode()    {}

func (n *StringLit) Line() int    { return n.Ln }
func (n *StringLit) Walk(Visitor) {}
func (n *StringLit) exprNode()    {}

func (n *BoolLit) Line() int    { return n.Ln }
func (n *BoolLit) Walk(Visitor) {}
func (n *BoolLit) exprNode()    {}

func (n *NullLit) Line() int    { return n.Ln }
func (n *NullLit) Walk(Visitor) {}
func (n *NullLit) exprNode()    {}

func (n *ArrayLit) Line() int { return n.Ln }
func (n *ArrayLit) Walk(v Visitor) {
	for _, e := range n.Elems {
		Walk(v, e)
	}
}
func (n *ArrayLit) exprNode() {}

func (n *ObjectLit) Line() int { return n.Ln }
func (n *ObjectLit) Walk(v Visitor) {
	for _, e := range n.Values {
		Walk(v, e)
	}
}
func (n *ObjectLit) exprNode() {}

func (n *FuncLiteral) Line() int { return n.Ln }
func (n *FuncLiteral) Walk(v Visitor) {
	for _, p := range n.Params {
		Walk(v, p)
	}
	Walk(v, n.Body)
}
func (n *FuncLiteral) exprNode() {}

func (n *Call) Line() int { return n.Ln }
func (n *Call) Walk(v Visitor) {
	Walk(v, n.Callee)
	for _, a := range n.Args {
		Walk(v, a)
	}
}
func (n *Call) exprNode() {}

func (n *Index) Line() int { return n.Ln }
func (n *Index) Walk(v Visitor) {
	Walk(v, n.Recv)
	Walk(v, n.Idx)
}
func (n *Index) exprNode() {}

func (n *Access) Line() int { return n.Ln }
func (n *Access) Walk(v Visitor) {
	Walk(v, n.Recv)
}
func (n *Access) exprNode() {}

func (n *Unary) Line() int { return n.Ln }
func (n *Unary) Walk(v Visitor) {
	Walk(v, n.X)
}
func (n *Unary) exprNode() {}

func (n *Binary) Line() int { return n.Ln }
func (n *Binary) Walk(v Visitor) {
	Walk(v, n.X)
	Walk(v, n.Y)
}
func (n *Binary) exprNode() {}

func (n *Ternary) Line() int { return n.Ln }
func (n *Ternary) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Then)
	Walk(v, n.Else)
}
func (n *Ternary) exprNode() {}
