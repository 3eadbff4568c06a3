package template

import (
	"fmt"
	"sort"
	"strings"
)

// Built-in formats.
const (
	FormatText    = "text"
	FormatCompact = "compact"
)

const textSource = `{% autoescape off %}{{ status }} {{ id }} ({{ duration }}){% for line in details %}
    {{ line }}{% endfor %}{% endautoescape %}`

const compactSource = `{% autoescape off %}{{ id }}	{{ status }}	{{ duration }}{% endautoescape %}`

// Registry maps format names to compiled renderers.
type Registry struct {
	renderers map[string]*Renderer
}

// NewRegistry creates a registry with the built-in formats (text, compact).
func NewRegistry() *Registry {
	r := &Registry{renderers: make(map[string]*Renderer)}
	for name, source := range map[string]string{FormatText: textSource, FormatCompact: compactSource} {
		if err := r.Register(name, source); err != nil {
			panic(err)
		}
	}
	return r
}

// Register compiles source and adds it under name, replacing any previous
// format of that name.
func (r *Registry) Register(name, source string) error {
	rd, err := Compile(name, source)
	if err != nil {
		return err
	}
	r.renderers[name] = rd
	return nil
}

// Renderer resolves a format by name.
func (r *Registry) Renderer(name string) (*Renderer, error) {
	rd, ok := r.renderers[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format: %q (supported: %s)", name, strings.Join(r.Names(), ", "))
	}
	return rd, nil
}

// Names returns the registered format names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.renderers))
	for name := range r.renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
