// Package logging builds the categorized zap loggers used across samlearn.
// Every stage of the learner logs under its own category so a run can be
// traced one stage at a time; categories can be switched off in config.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // CLI startup, config resolution
	CategoryLift     Category = "lift"     // Literal lifting and interning
	CategoryScan     Category = "scan"     // Transition scan: preconditions, clauses, forget sets
	CategoryMinimize Category = "minimize" // Forget, implicates, model enumeration
	CategoryUnify    Category = "unify"    // Parameter unification
	CategoryAssemble Category = "assemble" // Proxy action and vocabulary assembly
	CategorySorts    Category = "sorts"    // Sort inference
	CategoryAudit    Category = "audit"    // Mangle audit of learned models
	CategoryStore    Category = "store"    // Model persistence
	CategoryWatch    Category = "watch"    // Trace file watching
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryBoot, CategoryLift, CategoryScan, CategoryMinimize, CategoryUnify,
	CategoryAssemble, CategorySorts, CategoryAudit, CategoryStore, CategoryWatch,
}

// Config controls logger construction.
type Config struct {
	Level      string          `yaml:"level" json:"level"`             // debug, info, warn, error
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode"`   // development encoder, caller info
	JSONFormat bool            `yaml:"json_format" json:"json_format"` // JSON lines instead of console text
	Categories map[string]bool `yaml:"categories,omitempty" json:"categories,omitempty"`
	OutputPath string          `yaml:"output_path,omitempty" json:"output_path,omitempty"` // default stderr
}

// New builds the root logger described by cfg.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		l, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = l
	}

	var zc zap.Config
	if cfg.DebugMode {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.Sampling = nil
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = "console"
	if cfg.JSONFormat {
		zc.Encoding = "json"
	}
	out := "stderr"
	if cfg.OutputPath != "" {
		out = cfg.OutputPath
	}
	zc.OutputPaths = []string{out}
	zc.ErrorOutputPaths = []string{"stderr"}

	disabled := make(map[string]bool)
	for name, on := range cfg.Categories {
		if !on {
			disabled[name] = true
		}
	}
	logger, err := zc.Build(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		if len(disabled) == 0 {
			return c
		}
		return categoryCore{Core: c, disabled: disabled}
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// For returns the child logger of a category. A nil parent yields a no-op
// logger, so libraries can be called without any logging setup.
func For(parent *zap.Logger, category Category) *zap.Logger {
	if parent == nil {
		return zap.NewNop()
	}
	return parent.Named(string(category))
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// categoryCore drops entries whose top-level logger name is a disabled
// category.
type categoryCore struct {
	zapcore.Core
	disabled map[string]bool
}

func (c categoryCore) With(fields []zapcore.Field) zapcore.Core {
	return categoryCore{Core: c.Core.With(fields), disabled: c.disabled}
}

func (c categoryCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	name := e.LoggerName
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	if c.disabled[name] {
		return ce
	}
	return c.Core.Check(e, ce)
}
