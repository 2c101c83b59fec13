package maincmd

import (
	"context"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/tack/lang/ast"
	"github.com/mna/tack/lang/parser"
)

// Parse runs the scanner and parser phases over each file in args and
// prints the resulting AST (spec.md section 4.1).
func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, file := range args {
		if err := parseFile(stdio, file); err != nil {
			return printError(stdio, err)
		}
	}
	return nil
}

func parseFile(stdio mainer.Stdio, file string) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	mod, err := parser.Parse(src)
	if err != nil {
		return err
	}
	return ast.Fprint(stdio.Stdout, mod)
}
