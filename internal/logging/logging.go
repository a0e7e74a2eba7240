// Package logging provides category-scoped zap loggers for the
// redaction pipeline. Before Initialize is called every category logger
// is a no-op, so library code can log unconditionally.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a subsystem. Each category gets its own named logger
// so a single run's output can be filtered per stage.
type Category string

const (
	Pipeline Category = "pipeline"
	Rules    Category = "rules"
	LLM      Category = "llm"
	Docx     Category = "docx"
	Report   Category = "report"
)

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Initialize builds the process-wide logger. Verbose lowers the level
// to debug; logFile, when set, duplicates output to that path.
func Initialize(verbose bool, logFile string) error {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	if logFile != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	mu.Lock()
	root = logger
	mu.Unlock()
	return nil
}

// Get returns the sugared logger for a category. Safe to call before
// Initialize.
func Get(c Category) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(string(c)).Sugar()
}

// Sync flushes buffered log entries. Call once on shutdown.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return root.Sync()
}
