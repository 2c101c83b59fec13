package scanner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/tack/lang/scanner"
	"github.com/mna/tack/lang/token"
)

func scanAll(t *testing.T, src string) []scanner.Tok {
	t.Helper()
	sc := scanner.New([]byte(src))
	var toks []scanner.Tok
	for {
		tk, err := sc.Scan()
		require.NoError(t, err)
		toks = append(toks, tk)
		if tk.Kind == token.EOF {
			return toks
		}
	}
}

func kinds(toks []scanner.Tok) []token.Token {
	ks := make([]token.Token, len(toks))
	for i, tk := range toks {
		ks[i] = tk.Kind
	}
	return ks
}

func TestScanIdentsAndKeywords(t *testing.T) {
	toks := scanAll(t, `let x = fn;`)
	require.Equal(t, []token.Token{
		token.LET, token.IDENT, token.EQ, token.FN, token.SEMI, token.EOF,
	}, kinds(toks))
	require.Equal(t, "x", toks[1].Text)
}

func TestScanNumberLiteral(t *testing.T) {
	toks := scanAll(t, `1.5`)
	require.Equal(t, token.NUMBER, toks[0].Kind)
	require.Equal(t, 1.5, toks[0].Num)
}

func TestScanStringLiteral(t *testing.T) {
	toks := scanAll(t, `"hello"`)
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, "hello", toks[0].Text)
}

func TestScanLongestMatchOperators(t *testing.T) {
	toks := scanAll(t, `<= < << ** * == = != !`)
	require.Equal(t, []token.Token{
		token.LE, token.LT, token.LTLT, token.STARSTAR, token.STAR,
		token.EQEQ, token.EQ, token.BANGEQ, token.BANG, token.EOF,
	}, kinds(toks))
}

func TestScanRangeVsDot(t *testing.T) {
	toks := scanAll(t, `a..b a.b`)
	require.Equal(t, []token.Token{
		token.IDENT, token.RANGE, token.IDENT,
		token.IDENT, token.DOT, token.IDENT, token.EOF,
	}, kinds(toks))
}

func TestScanSkipsLineAndBlockComments(t *testing.T) {
	toks := scanAll(t, "let x = 1; // trailing comment\n/* block */ let y = 2;")
	require.Equal(t, []token.Token{
		token.LET, token.IDENT, token.EQ, token.NUMBER, token.SEMI,
		token.LET, token.IDENT, token.EQ, token.NUMBER, token.SEMI, token.EOF,
	}, kinds(toks))
}

func TestScanTracksLineNumbers(t *testing.T) {
	toks := scanAll(t, "let x = 1;\nlet y = 2;")
	require.Equal(t, 1, toks[0].Line)
	require.Equal(t, 2, toks[5].Line)
}

func TestScanEOFIsSticky(t *testing.T) {
	sc := scanner.New([]byte(``))
	first, err := sc.Scan()
	require.NoError(t, err)
	require.Equal(t, token.EOF, first.Kind)
	second, err := sc.Scan()
	require.NoError(t, err)
	require.Equal(t, token.EOF, second.Kind)
}

func TestScanErrorReportsLineAndContext(t *testing.T) {
	sc := scanner.New([]byte(`let x = @;`))
	for {
		tk, err := sc.Scan()
		if err != nil {
			var serr *scanner.Error
			require.ErrorAs(t, err, &serr)
			require.Equal(t, 1, serr.Line)
			require.Contains(t, err.Error(), "line 1")
			return
		}
		if tk.Kind == token.EOF {
			t.Fatal("expected a scan error before EOF")
		}
	}
}
