package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	includeTag = "!include"
	splicedTag = "!spliced"
)

const maxIncludeDepth = 10

// IncludeResolver expands !include tags in YAML node trees. YAML files are
// spliced in as nodes; an include that is an item of a sequence and names a
// YAML sequence contributes its items to the enclosing sequence. Any other
// file is inlined as a string scalar.
type IncludeResolver struct {
	rootDir string
}

// NewIncludeResolver creates a resolver confined to rootDir, which is also
// what @root/ references resolve against.
func NewIncludeResolver(rootDir string) *IncludeResolver {
	return &IncludeResolver{rootDir: rootDir}
}

// ResolveIncludes expands every !include in node. Relative references and
// @here/ resolve against currentDir.
func (r *IncludeResolver) ResolveIncludes(node *yaml.Node, currentDir string) error {
	return r.walk(node, currentDir, nil)
}

// walk expands includes below node. chain holds the files currently being
// expanded, so a file that includes itself is reported as a cycle.
func (r *IncludeResolver) walk(node *yaml.Node, currentDir string, chain []string) error {
	if node == nil {
		return nil
	}
	if len(chain) > maxIncludeDepth {
		return fmt.Errorf("%s depth exceeds maximum of %d", includeTag, maxIncludeDepth)
	}

	if node.Tag == includeTag {
		return r.expand(node, currentDir, chain)
	}

	if node.Kind != yaml.SequenceNode {
		for _, child := range node.Content {
			if err := r.walk(child, currentDir, chain); err != nil {
				return err
			}
			if child.Tag == splicedTag {
				child.Tag = ""
			}
		}
		return nil
	}

	items := make([]*yaml.Node, 0, len(node.Content))
	for _, child := range node.Content {
		if err := r.walk(child, currentDir, chain); err != nil {
			return err
		}
		if child.Kind == yaml.SequenceNode && child.Tag == splicedTag {
			items = append(items, child.Content...)
			continue
		}
		items = append(items, child)
	}
	node.Content = items
	return nil
}

func (r *IncludeResolver) expand(node *yaml.Node, currentDir string, chain []string) error {
	ref := node.Value
	if ref == "" {
		return fmt.Errorf("%s tag has empty value", includeTag)
	}

	resolved, err := r.resolvePath(ref, currentDir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s %q: %w", includeTag, ref, err)
	}
	if err := validatePathWithin(r.rootDir, resolved); err != nil {
		return fmt.Errorf("%s path %q is not allowed: %w", includeTag, ref, err)
	}
	for _, seen := range chain {
		if seen == resolved {
			return fmt.Errorf("%s cycle: %s", includeTag, strings.Join(append(chain, resolved), " -> "))
		}
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return fmt.Errorf("failed to read included file %q: %w", resolved, err)
	}

	if !isYAMLFile(resolved) {
		node.Tag = "!!str"
		node.Kind = yaml.ScalarNode
		node.Style = 0
		node.Value = string(data)
		return nil
	}

	var included yaml.Node
	if err := yaml.Unmarshal(data, &included); err != nil {
		return fmt.Errorf("failed to parse included YAML %q: %w", resolved, err)
	}
	if err := r.walk(&included, filepath.Dir(resolved), append(chain, resolved)); err != nil {
		return err
	}
	if included.Kind != yaml.DocumentNode || len(included.Content) == 0 {
		return fmt.Errorf("included YAML %q is empty", resolved)
	}

	*node = *included.Content[0]
	if node.Kind == yaml.SequenceNode {
		// Marks the node for splicing if its parent is a sequence; walk
		// clears the mark otherwise.
		node.Tag = splicedTag
	}
	return nil
}

func (r *IncludeResolver) resolvePath(ref, currentDir string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "@root/"):
		return filepath.Join(r.rootDir, ref[len("@root/"):]), nil
	case strings.HasPrefix(ref, "@here/"):
		return filepath.Join(currentDir, ref[len("@here/"):]), nil
	case filepath.IsAbs(ref):
		return "", fmt.Errorf("absolute paths are not allowed in %s", includeTag)
	default:
		return filepath.Join(currentDir, ref), nil
	}
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
