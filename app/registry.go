package app

import (
	"fmt"
	"strings"
	"sync"
)

// Lifecycle is the three-method contract every app provides: init once,
// loop every tick, stop once on teardown.
type Lifecycle interface {
	Init(ctx *Context) error
	Loop(ctx *Context, dt float64) error
	Stop(ctx *Context) error
}

// Constructor builds a fresh Lifecycle for one run.
type Constructor func() Lifecycle

// Registry maps a manifest's `module:symbol` entrypoint string to a Go
// constructor. The embedding binary populates it at init time; there is
// no dynamic code loading — module_root only selects which registry
// entry is relevant; the symbol itself must already be linked in.
type Registry struct {
	mu  sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register associates entrypoint (`module:symbol` form) with ctor.
// Registering the same entrypoint twice overwrites the prior binding.
func (r *Registry) Register(entrypoint string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[entrypoint] = ctor
}

// Build constructs the Lifecycle registered for entrypoint.
func (r *Registry) Build(entrypoint string) (Lifecycle, error) {
	if _, _, err := parseEntrypoint(entrypoint); err != nil {
		return nil, err
	}
	r.mu.RLock()
	ctor, ok := r.ctors[entrypoint]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("app: entrypoint not registered: %s", entrypoint)
	}
	return ctor(), nil
}

func parseEntrypoint(entrypoint string) (module, symbol string, err error) {
	if !strings.Contains(entrypoint, ":") {
		return "", "", fmt.Errorf("app: entrypoint must use `module:symbol` format: %s", entrypoint)
	}
	parts := strings.SplitN(entrypoint, ":", 2)
	module, symbol = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if module == "" || symbol == "" {
		return "", "", fmt.Errorf("app: entrypoint must include non-empty module and symbol: %s", entrypoint)
	}
	return module, symbol, nil
}
