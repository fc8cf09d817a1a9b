// Package config loads the samlearn configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/omereliy/macq-implementSAA/internal/extract"
	"github.com/omereliy/macq-implementSAA/internal/logging"
	"github.com/omereliy/macq-implementSAA/internal/mangle"
	"github.com/omereliy/macq-implementSAA/internal/observation"
)

// DefaultPath is the config file the CLI reads when none is given.
const DefaultPath = "samlearn.yaml"

// Algorithms lists the supported learners.
var Algorithms = []string{"esam", "sam"}

// Config holds all samlearn configuration.
type Config struct {
	Store   StoreConfig    `yaml:"store"`
	Logging logging.Config `yaml:"logging"`
	Extract ExtractConfig  `yaml:"extract"`
	Mangle  mangle.Config  `yaml:"mangle"`
}

// StoreConfig configures the model store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ExtractConfig configures a learning run.
type ExtractConfig struct {
	Algorithm    string `yaml:"algorithm"`    // esam, sam
	Precondition string `yaml:"precondition"` // sure, esam
	Token        string `yaml:"token"`        // observation token
	Untyped      bool   `yaml:"untyped"`
	Debug        bool   `yaml:"debug"`

	MaxEffectVariables int `yaml:"max_effect_variables"`
	MaxModels          int `yaml:"max_models"`
	MaxClauses         int `yaml:"max_clauses"`
	Workers            int `yaml:"workers"`
}

// DefaultConfig returns the defaults every file is layered over.
func DefaultConfig() *Config {
	opts := extract.DefaultOptions()
	return &Config{
		Store:   StoreConfig{Path: filepath.Join(".samlearn", "models.db")},
		Logging: logging.Config{Level: "info"},
		Extract: ExtractConfig{
			Algorithm:          "esam",
			Precondition:       string(opts.Precondition),
			Token:              string(observation.Identity),
			MaxEffectVariables: opts.MaxEffectVariables,
			MaxModels:          opts.MaxModels,
			MaxClauses:         opts.MaxClauses,
			Workers:            opts.Workers,
		},
		Mangle: mangle.DefaultConfig(),
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if path := os.Getenv("SAMLEARN_STORE"); path != "" {
		c.Store.Path = path
	}
	if level := os.Getenv("SAMLEARN_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if algo := os.Getenv("SAMLEARN_ALGORITHM"); algo != "" {
		c.Extract.Algorithm = algo
	}
	if workers := os.Getenv("SAMLEARN_WORKERS"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return fmt.Errorf("invalid SAMLEARN_WORKERS %q: %w", workers, err)
		}
		c.Extract.Workers = n
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	valid := false
	for _, a := range Algorithms {
		if c.Extract.Algorithm == a {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid algorithm: %s (valid: %v)", c.Extract.Algorithm, Algorithms)
	}
	if _, err := extract.ParsePolicy(c.Extract.Precondition); err != nil {
		return err
	}
	if _, err := observation.ParseToken(c.Extract.Token); err != nil {
		return err
	}
	for name, v := range map[string]int{
		"max_effect_variables": c.Extract.MaxEffectVariables,
		"max_models":           c.Extract.MaxModels,
		"max_clauses":          c.Extract.MaxClauses,
		"workers":              c.Extract.Workers,
		"mangle.fact_limit":    c.Mangle.FactLimit,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be >= 0, got %d", name, v)
		}
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store path not configured (set store.path or SAMLEARN_STORE)")
	}
	return nil
}

// Options returns the extraction options the config describes. Hints and
// the logger are left for the caller.
func (c *Config) Options() (extract.Options, error) {
	policy, err := extract.ParsePolicy(c.Extract.Precondition)
	if err != nil {
		return extract.Options{}, err
	}
	return extract.Options{
		Untyped:            c.Extract.Untyped,
		Precondition:       policy,
		MaxEffectVariables: c.Extract.MaxEffectVariables,
		MaxModels:          c.Extract.MaxModels,
		MaxClauses:         c.Extract.MaxClauses,
		Workers:            c.Extract.Workers,
		Debug:              c.Extract.Debug,
	}, nil
}

// Token returns the configured observation token.
func (c *Config) Token() (observation.Token, error) {
	return observation.ParseToken(c.Extract.Token)
}
