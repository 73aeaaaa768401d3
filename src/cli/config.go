package cli

import (
	"os"

	"github.com/please-build/gcfg"
)

// Config is matmake's optional `.matmakeconfig` file, an ini-style document
// parsed with the same library and `[section]`/field layout please's
// `.plzconfig` uses, scaled down to the handful of settings a bare
// Matmakefile invocation benefits from defaulting.
type Config struct {
	Matmake struct {
		NumThreads int    `help:"Default number of concurrent build jobs. Overridden by -j on the command line."`
		Compiler   string `help:"Default compiler profile name (gcc, clang or msvc) for targets that don't set their own 'compiler' property."`
	}
}

// DefaultConfig returns a Config with no overrides set.
func DefaultConfig() *Config {
	return &Config{}
}

// ReadConfig loads filename into a fresh Config. A missing file is not an
// error - matmake works perfectly well from a Matmakefile alone - but a
// malformed one is.
func ReadConfig(filename string) (*Config, error) {
	config := DefaultConfig()
	if err := gcfg.ReadFileInto(config, filename); err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		if gcfg.FatalOnly(err) != nil {
			return config, err
		}
		log.Warning("error in config file %s: %s", filename, err)
	}
	return config, nil
}
