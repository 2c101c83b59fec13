package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/tack/lang/scanner"
	"github.com/mna/tack/lang/token"
)

// Tokenize runs the scanner phase of the pipeline over each file in args and
// prints its token stream, one token per line (spec.md section 4.1's
// scanner as a standalone, inspectable phase).
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, file := range args {
		if err := tokenizeFile(stdio, file); err != nil {
			return printError(stdio, err)
		}
	}
	return nil
}

func tokenizeFile(stdio mainer.Stdio, file string) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdio.Stdout, "; %s\n", file)
	sc := scanner.New(src)
	for {
		tk, err := sc.Scan()
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		if tk.Text != "" {
			fmt.Fprintf(stdio.Stdout, "%4d  %-10s %q\n", tk.Line, tk.Kind, tk.Text)
		} else {
			fmt.Fprintf(stdio.Stdout, "%4d  %-10s\n", tk.Line, tk.Kind)
		}
		if tk.Kind == token.EOF {
			return nil
		}
	}
}
