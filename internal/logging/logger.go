// Package logging provides categorized, zap-backed logging for robospec.
// Every category gets a named child of one process-wide zap logger.
// Until Initialize is called all loggers are no-ops, so library callers and
// tests stay silent unless they opt in.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // CLI startup, config loading
	CategoryRegistry   Category = "registry"   // API surface loading and invalidation
	CategoryValidator  Category = "validator"  // Structural validation
	CategoryNormalizer Category = "normalizer" // Deterministic rewrites
	CategoryCorrector  Category = "corrector"  // Name substitutions
	CategoryRepair     Category = "repair"     // Repair orchestrator rounds
	CategoryGenerator  Category = "generator"  // Prompt assembly and response parsing
	CategoryAPI        Category = "api"        // LLM transport
	CategoryKnowledge  Category = "knowledge"  // Context assembly
	CategoryPackaging  Category = "packaging"  // Output files
)

// Config controls how Initialize builds the base logger.
type Config struct {
	Level string // debug, info, warn, error
	JSON  bool
	// Categories optionally disables categories by name (false = silent).
	Categories map[string]bool
}

// Logger wraps a sugared zap logger with its category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	base      = zap.NewNop()
	disabled  map[string]bool
)

// Initialize builds the process logger. Production encoding is used for JSON
// output, the development console encoder otherwise.
func Initialize(cfg Config) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}

	var zc zap.Config
	if cfg.JSON {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	off := make(map[string]bool)
	for name, enabled := range cfg.Categories {
		if !enabled {
			off[name] = true
		}
	}
	replace(l, off)
	return nil
}

// SetBase installs an existing zap logger (tests use zaptest/observer).
func SetBase(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	replace(l, nil)
}

func replace(l *zap.Logger, off map[string]bool) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	base = l
	disabled = off
	loggers = make(map[Category]*Logger)
}

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

// Get returns the logger for a category, creating it on first use.
func Get(category Category) *Logger {
	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	zl := base
	if disabled[string(category)] {
		zl = zap.NewNop()
	}
	l := &Logger{category: category, sugar: zl.Named(string(category)).Sugar()}
	loggers[category] = l
	return l
}

// Sync flushes the base logger. Errors from syncing stderr are ignored.
func Sync() {
	loggersMu.RLock()
	l := base
	loggersMu.RUnlock()
	_ = l.Sync()
}

// Category reports the logger's category.
func (l *Logger) Category() Category { return l.category }

// With returns a child logger carrying structured key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// Registry logs to the registry category
func Registry(format string, args ...interface{}) {
	Get(CategoryRegistry).Info(format, args...)
}

// RegistryDebug logs debug to the registry category
func RegistryDebug(format string, args ...interface{}) {
	Get(CategoryRegistry).Debug(format, args...)
}

// ValidatorDebug logs debug to the validator category
func ValidatorDebug(format string, args ...interface{}) {
	Get(CategoryValidator).Debug(format, args...)
}

// NormalizerDebug logs debug to the normalizer category
func NormalizerDebug(format string, args ...interface{}) {
	Get(CategoryNormalizer).Debug(format, args...)
}

// CorrectorDebug logs debug to the corrector category
func CorrectorDebug(format string, args ...interface{}) {
	Get(CategoryCorrector).Debug(format, args...)
}

// Repair logs to the repair category
func Repair(format string, args ...interface{}) {
	Get(CategoryRepair).Info(format, args...)
}

// RepairDebug logs debug to the repair category
func RepairDebug(format string, args ...interface{}) {
	Get(CategoryRepair).Debug(format, args...)
}

// Generator logs to the generator category
func Generator(format string, args ...interface{}) {
	Get(CategoryGenerator).Info(format, args...)
}

// GeneratorDebug logs debug to the generator category
func GeneratorDebug(format string, args ...interface{}) {
	Get(CategoryGenerator).Debug(format, args...)
}

// API logs to the api category
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debug(format, args...)
}

// KnowledgeDebug logs debug to the knowledge category
func KnowledgeDebug(format string, args ...interface{}) {
	Get(CategoryKnowledge).Debug(format, args...)
}

// Packaging logs to the packaging category
func Packaging(format string, args ...interface{}) {
	Get(CategoryPackaging).Info(format, args...)
}
