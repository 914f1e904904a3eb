package similarity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAlgorithm is returned when no algorithm is registered under a name
var ErrUnknownAlgorithm = errors.New("unknown similarity algorithm")

// Factory constructs an Algorithm
type Factory func() Algorithm

// Registry maps algorithm names to their constructors
type Registry struct {
	factories map[string]Factory
	names     []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding every built-in algorithm in DefaultOrder
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(DamerauLevenshtein, NewDamerauLevenshtein)
	r.Register(Levenshtein, NewLevenshtein)
	r.Register(LIG, NewLIG)
	r.Register(LIG2, NewLIG2)
	r.Register(LIG3, NewLIG3)
	r.Register(Guth, NewGuth)
	r.Register(Soundex, NewSoundex)
	r.Register(Phonex, NewPhonex)
	return r
}

// Register adds or replaces an algorithm. Names are case-insensitive.
func (r *Registry) Register(name string, factory Factory) {
	name = canonicalName(name)
	if _, ok := r.factories[name]; !ok {
		r.names = append(r.names, name)
	}
	r.factories[name] = factory
}

// Has reports whether an algorithm is registered under name
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[canonicalName(name)]
	return ok
}

// Get constructs the algorithm registered under name
func (r *Registry) Get(name string) (Algorithm, error) {
	factory, ok := r.factories[canonicalName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return factory(), nil
}

// Names returns the registered names in registration order
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

func canonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
