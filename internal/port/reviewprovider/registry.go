package reviewprovider

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Strob0t/ReplyForge/internal/domain/review"
)

// Config keys understood by provider factories.
const (
	ConfigClientID     = "client_id"
	ConfigClientSecret = "client_secret"
	ConfigRedirectURL  = "redirect_url"
	ConfigBaseURL      = "base_url"
)

// Factory creates a Provider from string configuration.
type Factory func(config map[string]string) (Provider, error)

var (
	mu        sync.RWMutex
	factories = make(map[review.Platform]Factory)
)

// Register makes a platform adapter available.
// It is typically called from an init() function in the adapter package.
func Register(p review.Platform, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[p]; exists {
		panic(fmt.Sprintf("reviewprovider: duplicate registration for %q", p))
	}
	factories[p] = factory
}

// New creates the adapter for p.
func New(p review.Platform, config map[string]string) (Provider, error) {
	mu.RLock()
	factory, ok := factories[p]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("reviewprovider: %q: %w", p, ErrUnknownProvider)
	}
	return factory(config)
}

// Available returns the registered platforms, sorted.
func Available() []review.Platform {
	mu.RLock()
	defer mu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}
