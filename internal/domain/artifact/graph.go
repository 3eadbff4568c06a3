package artifact

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle of one cache entry.
type State int

const (
	StateAbsent State = iota
	StatePending
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "absent"
	}
}

type cacheKey struct {
	name string
	id   uuid.UUID
}

func (k cacheKey) String() string {
	return k.name + "\x00" + k.id.String()
}

type settled struct {
	value any
	err   error
}

// Inputs is what a compute function receives.
type Inputs struct {
	Raw  *RawArtifacts
	deps map[string]any
}

// Dependency returns the resolved value of a declared dependency.
func (in Inputs) Dependency(name string) (any, bool) {
	v, ok := in.deps[name]
	return v, ok
}

// Dep is the typed form of Inputs.Dependency.
func Dep[T any](in Inputs, name string) (T, error) {
	var zero T
	v, ok := in.deps[name]
	if !ok {
		return zero, fmt.Errorf("%w: dependency %q was not declared", ErrMissingArtifact, name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("dependency %q: unexpected type %T", name, v)
	}
	return t, nil
}

// Graph resolves artifacts for one audit run. Each (name, raw identity)
// pair is computed at most once; values and failures are both memoized.
// Concurrent requests for the same pair share one computation.
type Graph struct {
	registry *Registry
	flight   singleflight.Group

	mu      sync.Mutex
	results map[cacheKey]settled
	pending map[cacheKey]struct{}
}

// NewGraph creates an empty graph over registry.
func NewGraph(registry *Registry) *Graph {
	return &Graph{
		registry: registry,
		results:  make(map[cacheKey]settled),
		pending:  make(map[cacheKey]struct{}),
	}
}

// Request returns the value of name computed from raw. The dependency
// closure is validated before any compute runs. ctx bounds only this
// caller's wait: a cancelled caller gets ctx.Err() while the shared
// computation continues for other waiters.
func (g *Graph) Request(ctx context.Context, name string, raw *RawArtifacts) (any, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: no raw artifacts for %q", ErrMissingArtifact, name)
	}
	if err := g.registry.validate(name); err != nil {
		return nil, err
	}
	return g.await(ctx, name, raw)
}

// Get is the typed form of Graph.Request.
func Get[T any](ctx context.Context, g *Graph, name string, raw *RawArtifacts) (T, error) {
	var zero T
	v, err := g.Request(ctx, name, raw)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("artifact %q: unexpected type %T", name, v)
	}
	return t, nil
}

// State reports the cache state of (name, raw).
func (g *Graph) State(name string, raw *RawArtifacts) State {
	if raw == nil {
		return StateAbsent
	}
	k := cacheKey{name: name, id: raw.ID()}

	g.mu.Lock()
	defer g.mu.Unlock()
	if res, ok := g.results[k]; ok {
		if res.err != nil {
			return StateFailed
		}
		return StateResolved
	}
	if _, ok := g.pending[k]; ok {
		return StatePending
	}
	return StateAbsent
}

func (g *Graph) await(ctx context.Context, name string, raw *RawArtifacts) (any, error) {
	k := cacheKey{name: name, id: raw.ID()}
	if res, ok := g.lookup(k); ok {
		return res.value, res.err
	}

	detached := context.WithoutCancel(ctx)
	ch := g.flight.DoChan(k.String(), func() (any, error) {
		return g.resolve(detached, k, raw)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.Val, r.Err
	}
}

// resolve runs inside the single flight for k.
func (g *Graph) resolve(ctx context.Context, k cacheKey, raw *RawArtifacts) (any, error) {
	g.mu.Lock()
	if res, ok := g.results[k]; ok {
		g.mu.Unlock()
		return res.value, res.err
	}
	g.pending[k] = struct{}{}
	g.mu.Unlock()

	value, err := g.execute(ctx, k.name, raw)

	g.mu.Lock()
	delete(g.pending, k)
	g.results[k] = settled{value: value, err: err}
	g.mu.Unlock()

	return value, err
}

func (g *Graph) execute(ctx context.Context, name string, raw *RawArtifacts) (any, error) {
	def, ok := g.registry.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", ErrMissingArtifact, name)
	}

	deps := make(map[string]any, len(def.deps))
	var mu sync.Mutex
	var eg errgroup.Group
	for _, dep := range def.deps {
		eg.Go(func() error {
			v, err := g.await(ctx, dep, raw)
			if err != nil {
				return &DependencyError{Artifact: name, Dependency: dep, Err: err}
			}
			mu.Lock()
			deps[dep] = v
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return run(ctx, def, Inputs{Raw: raw, deps: deps})
}

func run(ctx context.Context, def definition, in Inputs) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("%w: artifact %q: %v", ErrComputePanicked, def.name, r)
		}
	}()
	return def.compute(ctx, in)
}

func (g *Graph) lookup(k cacheKey) (settled, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	res, ok := g.results[k]
	return res, ok
}
