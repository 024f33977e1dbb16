package script

import (
	"errors"
	"fmt"
	"sync"
)

// ErrConfiguration reports that a configured script identity cannot be
// resolved to a registered Script factory. Fatal for the activation.
var ErrConfiguration = errors.New("script configuration error")

// Registry maps script identities to factories. Resolution preserves the
// caller's order and yields fresh instances so activations never share
// script state.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var globalRegistry = NewRegistry()

// NewRegistry returns an empty registry, for embedders that keep script
// sets isolated from the global one.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory to the global registry. Used by script packages
// from init or by embedders before activation.
func Register(name string, f Factory) {
	globalRegistry.Register(name, f)
}

// Resolve resolves names against the global registry.
func Resolve(names []string) ([]Entry, error) {
	return globalRegistry.Resolve(names)
}

// Names returns the identities in the global registry.
func Names() []string {
	return globalRegistry.Names()
}

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Resolve instantiates the named scripts in input order. Any unknown or
// nil-producing identity fails the whole resolution with ErrConfiguration.
func (r *Registry) Resolve(names []string) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		f, ok := r.factories[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown script %q", ErrConfiguration, name)
		}
		s := f()
		if s == nil {
			return nil, fmt.Errorf("%w: factory for %q produced nil", ErrConfiguration, name)
		}
		entries = append(entries, Entry{Name: name, Script: s})
	}
	return entries, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	return out
}
