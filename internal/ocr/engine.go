// Package ocr recognizes text on rendered PDF pages.
package ocr

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Engine turns one PNG page image into text.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, png []byte) (string, error)
}

// Options configures an engine.
type Options struct {
	// Command is the tesseract executable (name on PATH or absolute path).
	Command  string
	Language string
	DPI      int
}

// Factory builds an engine from options.
type Factory func(Options) (Engine, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{
		"cli": func(o Options) (Engine, error) { return NewTesseractCLI(o), nil },
	}
)

// Register makes an engine available under name. Build-tagged engines call it
// from init.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// New returns the engine registered under name ("cli" when empty).
func New(name string, o Options) (Engine, error) {
	if name == "" {
		name = "cli"
	}
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ocr engine %q (available: %v)", name, Engines())
	}
	return f(o)
}

// Engines lists registered engine names.
func Engines() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
