package artifact

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

// ComputeFunc derives a value from raw artifacts and already-resolved
// dependencies. It must be a pure function of its inputs.
type ComputeFunc func(ctx context.Context, in Inputs) (any, error)

type definition struct {
	name    string
	compute ComputeFunc
	deps    []string
}

// Registry maps artifact names to compute functions and their declared
// dependencies. Create one per audit run.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]definition)}
}

// Register adds a named derivation. Dependencies may name artifacts that are
// registered later. A registration that would close a cycle among registered
// artifacts is rejected with ErrCyclicDependency and leaves the registry
// unchanged.
func (r *Registry) Register(name string, compute ComputeFunc, deps ...string) error {
	if name == "" {
		return fmt.Errorf("artifact name is required")
	}
	if compute == nil {
		return fmt.Errorf("artifact %q: compute function is required", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateArtifact, name)
	}

	def := definition{name: name, compute: compute, deps: slices.Clone(deps)}
	r.defs[name] = def
	if path := r.cycleThrough(name); path != nil {
		delete(r.defs, name)
		return fmt.Errorf("%w: %s", ErrCyclicDependency, strings.Join(path, " -> "))
	}
	return nil
}

// MustRegister is Register that panics on error, for static catalogs.
func (r *Registry) MustRegister(name string, compute ComputeFunc, deps ...string) {
	if err := r.Register(name, compute, deps...); err != nil {
		panic(err)
	}
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[name]
	return ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dependencies returns the declared dependencies of name.
func (r *Registry) Dependencies(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.defs[name].deps)
}

func (r *Registry) lookup(name string) (definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// cycleThrough returns a path start -> ... -> start over registered
// artifacts, or nil. Caller holds r.mu.
func (r *Registry) cycleThrough(start string) []string {
	visited := make(map[string]bool)
	var path []string

	var walk func(n string) bool
	walk = func(n string) bool {
		def, ok := r.defs[n]
		if !ok {
			return false
		}
		path = append(path, n)
		for _, d := range def.deps {
			if d == start {
				path = append(path, d)
				return true
			}
			if visited[d] {
				continue
			}
			visited[d] = true
			if walk(d) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}

	if walk(start) {
		return path
	}
	return nil
}

// validate checks the full dependency closure of name before anything runs.
func (r *Registry) validate(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[string]int)
	var stack []string

	var visit func(n, requiredBy string) error
	visit = func(n, requiredBy string) error {
		switch state[n] {
		case done:
			return nil
		case inProgress:
			i := slices.Index(stack, n)
			cycle := append(slices.Clone(stack[i:]), n)
			return fmt.Errorf("%w: %s", ErrCyclicDependency, strings.Join(cycle, " -> "))
		}

		def, ok := r.defs[n]
		if !ok {
			if requiredBy == "" {
				return fmt.Errorf("%w: %q is not registered", ErrMissingArtifact, n)
			}
			return fmt.Errorf("%w: %q required by %q is not registered", ErrMissingArtifact, n, requiredBy)
		}

		state[n] = inProgress
		stack = append(stack, n)
		for _, d := range def.deps {
			if err := visit(d, n); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[n] = done
		return nil
	}

	return visit(name, "")
}
