// Package logging provides config-driven categorized logging for certd on top of zap.
// Every logger carries a "category" field so one process log can be filtered per subsystem.
// Categories can be disabled from config; disabled categories log nothing.
package logging

import (
	"fmt"
	"sync"
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	// Core system categories
	CategoryBoot    Category = "boot"    // Boot/initialization
	CategoryAPI     Category = "api"     // HTTP boundary
	CategoryStore   Category = "store"   // Document store operations
	CategorySession Category = "session" // Session store operations

	// Pipeline categories
	CategoryOverlay    Category = "overlay"    // Session overlay merge
	CategoryValidation Category = "validation" // Landing validator and rule checks
	CategorySubmission Category = "submission" // Submission orchestrator
	CategoryTasks      Category = "tasks"      // Background tasks

	// Integration categories
	CategoryRefData    Category = "refdata"     // Reference data service
	CategoryRuleEngine Category = "rule_engine" // External rule validation
	CategoryNotify     Category = "notify"      // Email and downstream reporting
	CategoryArtifact   Category = "artifact"    // Certificate generation
)

// Logger wraps a sugared zap logger bound to one category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	base     = zap.NewNop()
	loggers  = make(map[Category]*Logger)
	mu       sync.RWMutex
	settings config.LoggingConfig
)

// Initialize builds the process logger from config and installs it.
// Should be called once at startup.
func Initialize(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(levelOrDefault(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	SetLogger(l, cfg)
	return l, nil
}

func levelOrDefault(level string) string {
	if level == "" {
		return "info"
	}
	return level
}

// SetLogger installs l as the base logger. Tests use it with zaptest/observer cores.
func SetLogger(l *zap.Logger, cfg config.LoggingConfig) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = l
	settings = cfg
	loggers = make(map[Category]*Logger)
}

// Base returns the process logger without a category.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	z := zap.NewNop()
	if settings.IsCategoryEnabled(string(category)) {
		z = base.With(zap.String("category", string(category)))
	}
	l := &Logger{category: category, sugar: z.Sugar()}
	loggers[category] = l
	return l
}

// With returns a child logger carrying extra key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
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

// Sync flushes the base logger. Call at shutdown.
func Sync() {
	_ = Base().Sync()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// Overlay logs to the overlay category
func Overlay(format string, args ...interface{}) {
	Get(CategoryOverlay).Info(format, args...)
}

// OverlayDebug logs debug to the overlay category
func OverlayDebug(format string, args ...interface{}) {
	Get(CategoryOverlay).Debug(format, args...)
}

// Validation logs to the validation category
func Validation(format string, args ...interface{}) {
	Get(CategoryValidation).Info(format, args...)
}

// ValidationDebug logs debug to the validation category
func ValidationDebug(format string, args ...interface{}) {
	Get(CategoryValidation).Debug(format, args...)
}

// Submission logs to the submission category
func Submission(format string, args ...interface{}) {
	Get(CategorySubmission).Info(format, args...)
}

// SubmissionDebug logs debug to the submission category
func SubmissionDebug(format string, args ...interface{}) {
	Get(CategorySubmission).Debug(format, args...)
}

// SubmissionError logs errors to the submission category
func SubmissionError(format string, args ...interface{}) {
	Get(CategorySubmission).Error(format, args...)
}

// Notify logs to the notify category
func Notify(format string, args ...interface{}) {
	Get(CategoryNotify).Info(format, args...)
}

// NotifyError logs errors to the notify category
func NotifyError(format string, args ...interface{}) {
	Get(CategoryNotify).Error(format, args...)
}

// =============================================================================
// TIMING
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop logs the elapsed time at debug level and returns it
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if the operation exceeded threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
