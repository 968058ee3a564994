// Package logging provides categorized structured logging for swarmdyn.
// Every subsystem logs through a named zap logger so that store chatter,
// estimator progress and controller decisions can be filtered independently.
// Until Initialize is called the package is a silent no-op, which keeps the
// library quiet when embedded in a host orchestrator that owns its own logs.
package logging

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot       Category = "boot"       // Initialization
	CategoryStore      Category = "store"      // Transition store operations
	CategoryDynamics   Category = "dynamics"   // Potential estimation, action analysis, reports
	CategoryController Category = "controller" // Exploration controller decisions
	CategoryGenome     Category = "genome"     // Genome hashing, mutation, archive
	CategoryEvolve     Category = "evolve"     // Pareto selection, generation composition
)

var (
	mu    sync.RWMutex
	base  *zap.Logger
	named = make(map[Category]*zap.SugaredLogger)
)

// Initialize builds the shared zap logger. debug=true enables debug level
// with the development encoder; otherwise the production config is used.
// Safe to call more than once; the last call wins.
func Initialize(debug bool) error {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	base = logger
	named = make(map[Category]*zap.SugaredLogger)
	return nil
}

// SetLogger installs an externally constructed zap logger. Hosts that already
// run zap can route swarmdyn output through their own cores.
func SetLogger(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = logger
	named = make(map[Category]*zap.SugaredLogger)
}

// Get returns the sugared logger for a category. Before Initialize it returns
// a no-op logger so library callers never need a nil check.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := named[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := named[cat]; ok {
		return l
	}
	root := base
	if root == nil {
		root = zap.NewNop()
	}
	l := root.Named(string(cat)).Sugar()
	named[cat] = l
	return l
}

// Sync flushes any buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}

// Timer measures an operation's duration for debug logging.
type Timer struct {
	cat   Category
	op    string
	start time.Time
}

// StartTimer begins timing an operation within a category.
func StartTimer(cat Category, op string) *Timer {
	return &Timer{cat: cat, op: op, start: time.Now()}
}

// Stop logs the elapsed duration at debug level.
func (t *Timer) Stop() {
	Get(t.cat).Debugw("operation complete", "op", t.op, "duration", time.Since(t.start))
}
