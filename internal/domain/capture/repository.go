package capture

import (
	"context"
	"errors"
)

// ErrNotFound indicates a capture was not found.
var ErrNotFound = errors.New("capture not found")

// Repository is the port for loading and persisting captures.
type Repository interface {
	// LoadAll loads every capture under the configured root directory.
	LoadAll(ctx context.Context) ([]*Capture, error)

	// LoadByID loads a single capture by its id.
	// Returns ErrNotFound if no capture with the given id exists.
	LoadByID(ctx context.Context, id string) (*Capture, error)

	// Save writes the capture's manifest and pass files. An existing
	// capture with the same id is replaced.
	Save(ctx context.Context, c *Capture) error

	// Delete removes a capture and all its files.
	// Returns ErrNotFound if no capture with the given id exists.
	Delete(ctx context.Context, id string) error
}
