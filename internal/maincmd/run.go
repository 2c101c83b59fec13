package maincmd

import (
	"context"
	"path/filepath"

	"github.com/mna/mainer"
	"github.com/mna/tack/internal/stdlib"
	"github.com/mna/tack/lang/machine"
)

// Run loads and executes each file in args as a module, the CLI's "just run
// it" entry point (spec.md section 6's embedding API, driven end to end):
// a fresh VM per file, the standard library installed, and the file's own
// directory registered as the first module search directory.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return printError(stdio, err)
	}
	for _, file := range args {
		if err := runFile(stdio, cfg, file); err != nil {
			return printError(stdio, err)
		}
	}
	return nil
}

func runFile(stdio mainer.Stdio, cfg runConfig, file string) error {
	vm := machine.NewVMWithGCEvery(cfg.GCEvery)
	vm.Stdout = stdio.Stdout
	vm.Stderr = stdio.Stderr
	stdlib.Install(vm)
	vm.AddModuleDir(filepath.Dir(file))
	for _, dir := range cfg.moduleDirs() {
		vm.AddModuleDir(dir)
	}

	_, err := vm.LoadModule(file)
	return err
}
