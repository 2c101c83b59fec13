package maincmd

import (
	"context"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/tack/lang/compiler"
	"github.com/mna/tack/lang/parser"
)

// Compile runs the scanner, parser and compiler phases over each file in
// args and reports success or the first compile error; it does not execute
// anything (spec.md section 4.2, the single-pass compiler as a standalone
// phase).
func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, file := range args {
		if _, err := compileFile(file); err != nil {
			return printError(stdio, err)
		}
	}
	return nil
}

func compileFile(file string) (*compiler.Program, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	mod, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(mod, file, nil)
}
