package capture

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/sophialabs/perfaudit/internal/domain/artifact"
)

var (
	// ErrPassNotFound indicates a capture has no pass with the requested name.
	ErrPassNotFound = errors.New("pass not found")

	// ErrInvalidID indicates an id that cannot be used as a directory name.
	ErrInvalidID = errors.New("invalid capture id")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Capture is the recorded instrumentation of one audited page load.
type Capture struct {
	ID     string
	URL    string
	Passes map[string]*artifact.RawArtifacts

	// Files maps pass names to the files the pass was loaded from.
	Files map[string]PassFiles
}

// PassFiles names the on-disk files of one pass, relative to the capture directory.
type PassFiles struct {
	Trace       string `json:"trace"`
	DevtoolsLog string `json:"devtools_log,omitempty"`
}

// ValidateID rejects ids that are empty, too long, or could escape the
// capture root.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Pass returns the raw artifacts of one pass.
func (c *Capture) Pass(name string) (*artifact.RawArtifacts, error) {
	if name == "" {
		name = artifact.DefaultPass
	}
	raw, ok := c.Passes[name]
	if !ok {
		return nil, fmt.Errorf("%w: capture %q has no pass %q", ErrPassNotFound, c.ID, name)
	}
	return raw, nil
}

// PassNames returns the capture's pass names, sorted.
func (c *Capture) PassNames() []string {
	names := make([]string, 0, len(c.Passes))
	for n := range c.Passes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
