// Package grammar holds a formal EBNF rendering of Tack's expression and
// statement grammar (spec.md section 4.1) and a test that the grammar is
// internally well-formed: every production used is defined, and every
// production is reachable from the module start symbol. This is a
// documentation aid, not something lang/parser parses against — the parser
// is hand-written recursive descent, grounded on the same precedence table.
package grammar

import (
	"os"
	"testing"

	"golang.org/x/exp/ebnf"
)

func TestEBNF(t *testing.T) {
	f, err := os.Open("grammar.ebnf")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	g, err := ebnf.Parse("grammar.ebnf", f)
	if err != nil {
		t.Fatal(err)
	}
	if err := ebnf.Verify(g, "Module"); err != nil {
		t.Fatal(err)
	}
}
