package maincmd

import (
	"strings"

	"github.com/caarlos0/env/v6"
)

// runConfig is the TACK_*-prefixed environment overlay consulted by the run
// command, layered ahead of flag parsing the same way mainer.Parser{EnvPrefix:
// ...} layers flags in Main (spec.md section 10, "Environment-variable
// config overlay"): a host that wants to tune GC pressure or add module
// search directories without touching argv sets these instead.
type runConfig struct {
	GCEvery    uint64 `env:"GC_EVERY" envDefault:"10000"`
	ModulePath string `env:"MODULE_PATH"`
}

// loadRunConfig parses the TACK_*-prefixed environment into a runConfig,
// defaulting every field when its variable is unset.
func loadRunConfig() (runConfig, error) {
	var cfg runConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "TACK_"}); err != nil {
		return runConfig{}, err
	}
	return cfg, nil
}

// moduleDirs splits the colon-separated TACK_MODULE_PATH into individual
// directories, in left-to-right search order.
func (c runConfig) moduleDirs() []string {
	if c.ModulePath == "" {
		return nil
	}
	return strings.Split(c.ModulePath, ":")
}
