package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/mna/tack/lang/compiler"
)

// Dasm compiles each file in args and prints its disassembly, the
// Forth-style "pc: mnemonic operands" listing produced by
// compiler.Disassemble (spec.md section 4.2).
func (c *Cmd) Dasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, file := range args {
		prog, err := compileFile(file)
		if err != nil {
			return printError(stdio, err)
		}
		fmt.Fprint(stdio.Stdout, compiler.Disassemble(prog))
	}
	return nil
}
