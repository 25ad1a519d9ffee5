// Package source enumerates the candidate records derived from the host's
// running workloads.
package source

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/dns"
)

// Lister produces the current candidate records.
type Lister interface {
	List(ctx context.Context) ([]dns.Record, error)
}

// Factory is a constructor function that sources register to create themselves.
type Factory func(log logr.Logger, settings map[string]string) (Lister, error)

var (
	mu        sync.Mutex
	factories = make(map[string]Factory)
)

// Register is called by source packages in their init() to self-register.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("source: %q already registered", name))
	}
	factories[name] = f
}

// New looks up the named source in the registry and creates it.
func New(name string, log logr.Logger, settings map[string]string) (Lister, error) {
	mu.Lock()
	f, ok := factories[name]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unsupported source: %q (registered: %v)", name, Registered())
	}
	return f(log, settings)
}

// Registered returns the registered source names, sorted.
func Registered() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
