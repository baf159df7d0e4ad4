// Package formulangcfg loads .formulang.yaml: solver tuning and per-glob
// rounding overrides for derived report fields.
package formulangcfg

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned by FindConfig when no config file exists
// anywhere between dir and the filesystem root.
var ErrConfigNotFound = errors.New("formulangcfg: no config file found")

// DefaultConfigNames are the filenames searched for, in order.
var DefaultConfigNames = []string{".formulang.yaml", ".formulang.yml", "formulang.yaml", "formulang.yml"}

// SolverConfig tunes the solve package's infeasible-relaxation retry.
type SolverConfig struct {
	// Penalty is the per-unit-slack objective cost (default: 1,000,000).
	// Zero means "use the package default".
	Penalty float64 `yaml:"penalty,omitempty"`

	// Tolerance below which a slack or binding-constraint gap is treated
	// as zero. Zero means "use the package default".
	Tolerance float64 `yaml:"tolerance,omitempty"`
}

// RoundingConfig is the decimal precision applied to one class of derived
// report field.
type RoundingConfig struct {
	Amount  int `yaml:"amount,omitempty"`
	Percent int `yaml:"percent,omitempty"`
	Cost    int `yaml:"cost,omitempty"`
}

// Config represents the .formulang.yaml configuration file.
type Config struct {
	// Solver tunes the LP/relaxation backend.
	Solver SolverConfig `yaml:"solver,omitempty"`

	// Rounding is the default precision for derived report fields.
	Rounding RoundingConfig `yaml:"rounding,omitempty"`

	// Files maps a glob pattern (matched against a source path) to a
	// per-file rounding override, e.g. "premix/*.fm": {amount: 4}.
	Files map[string]RoundingConfig `yaml:"files,omitempty"`
}

// LoadConfig finds and loads the nearest .formulang.yaml walking up from
// dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up
// to the filesystem root.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for d := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(d, name)

			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(d)
		if parent == d {
			return "", ErrConfigNotFound
		}

		d = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// RoundingFor returns the rounding policy for a source path, checking
// per-glob overrides before falling back to the config's default.
func (c *Config) RoundingFor(path string) RoundingConfig {
	for pattern, r := range c.Files {
		if matched, _ := filepath.Match(pattern, path); matched {
			return r
		}
	}

	return c.Rounding
}
