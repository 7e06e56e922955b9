// Package config loads sizediff settings from a YAML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"sizediff/internal/difftext"
	"sizediff/internal/disassembly"
	"sizediff/internal/objdump"
)

// Config holds the knobs of a disassembly pass.
type Config struct {
	Objdump       string            `yaml:"objdump" json:"objdump,omitempty" jsonschema:"title=Objdump,description=Disassembler used when no per-architecture tool is configured,default=llvm-objdump"`
	ObjdumpByArch map[string]string `yaml:"objdump_by_arch" json:"objdump_by_arch,omitempty" jsonschema:"title=Objdump by architecture,description=Disassembler path keyed by architecture (arm arm64 x86 x64 mips mips64 riscv64)"`
	MaxBytes      int               `yaml:"max_bytes" json:"max_bytes,omitempty" jsonschema:"title=Max bytes,description=Bytes of each symbol to disassemble; 0 disassembles whole symbols,default=2048,minimum=0"`
	Budget        int               `yaml:"budget" json:"budget,omitempty" jsonschema:"title=Budget,description=Number of symbols that get a diff,default=10,minimum=1"`
	MinDelta      int               `yaml:"min_delta" json:"min_delta,omitempty" jsonschema:"title=Minimum delta,description=Smallest size change in bytes worth a diff,default=10,minimum=0"`
	ContextLines  int               `yaml:"context_lines" json:"context_lines,omitempty" jsonschema:"title=Context lines,description=Unchanged lines shown around each change,default=10,minimum=0"`
	Timeout       time.Duration     `yaml:"timeout" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Upper bound on the whole pass in nanoseconds; 0 means none,minimum=0"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Objdump:      objdump.DefaultTool,
		MaxBytes:     objdump.DefaultMaxBytes,
		Budget:       disassembly.DefaultBudget,
		MinDelta:     disassembly.DefaultMinDelta,
		ContextLines: difftext.DefaultContext,
	}
}

// Load reads path (if non-empty) over the defaults, then applies SIZEDIFF_*
// environment overrides.
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SIZEDIFF_OBJDUMP"); v != "" {
		c.Objdump = v
	}
	if v := os.Getenv("SIZEDIFF_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SIZEDIFF_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	for name, dst := range map[string]*int{
		"SIZEDIFF_MAX_BYTES":     &c.MaxBytes,
		"SIZEDIFF_BUDGET":        &c.Budget,
		"SIZEDIFF_MIN_DELTA":     &c.MinDelta,
		"SIZEDIFF_CONTEXT_LINES": &c.ContextLines,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}
	return nil
}

// Validate rejects settings that would make the pass meaningless.
func (c Config) Validate() error {
	var errs *multierror.Error
	if c.MaxBytes < 0 {
		errs = multierror.Append(errs, fmt.Errorf("max_bytes must be >= 0, got %d", c.MaxBytes))
	}
	if c.Budget < 1 {
		errs = multierror.Append(errs, fmt.Errorf("budget must be >= 1, got %d", c.Budget))
	}
	if c.MinDelta < 0 {
		errs = multierror.Append(errs, fmt.Errorf("min_delta must be >= 0, got %d", c.MinDelta))
	}
	if c.ContextLines < 0 {
		errs = multierror.Append(errs, fmt.Errorf("context_lines must be >= 0, got %d", c.ContextLines))
	}
	if c.Timeout < 0 {
		errs = multierror.Append(errs, fmt.Errorf("timeout must be >= 0, got %s", c.Timeout))
	}
	return errs.ErrorOrNil()
}

// Tool returns the disassembler for arch.
func (c Config) Tool(arch string) string {
	if t := c.ObjdumpByArch[arch]; t != "" {
		return t
	}
	if c.Objdump != "" {
		return c.Objdump
	}
	return objdump.DefaultTool
}
