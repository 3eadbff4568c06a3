package artifact

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingArtifact means a requested name or one of its dependencies is
	// not registered, or there is no raw input to compute from.
	ErrMissingArtifact = errors.New("missing artifact")

	// ErrCyclicDependency is returned when dependencies form a cycle.
	ErrCyclicDependency = errors.New("cyclic dependency")

	// ErrDuplicateArtifact is returned when a name is registered twice.
	ErrDuplicateArtifact = errors.New("artifact already registered")

	// ErrComputePanicked wraps a recovered panic from a compute function.
	ErrComputePanicked = errors.New("compute panicked")
)

// DependencyError reports that an artifact could not be computed because one
// of its dependencies failed. It unwraps to the dependency's error, so
// errors.Is works across any number of levels.
type DependencyError struct {
	Artifact   string
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("artifact %q: dependency %q failed: %v", e.Artifact, e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}
