package llm

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Config keys understood by backend factories.
const (
	ConfigAPIKey  = "api_key"
	ConfigBaseURL = "base_url"
	ConfigModel   = "model"
)

// Factory creates a Provider from string configuration.
type Factory func(config map[string]string) (Provider, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a backend available by name.
// It is typically called from an init() function in the adapter package.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("llm: duplicate registration for %q", name))
	}
	factories[name] = factory
}

// New creates a backend by name using the registered factory.
func New(name string, config map[string]string) (Provider, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("llm: unknown provider %q: %w", name, ErrNotConfigured)
	}
	return factory(config)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}
