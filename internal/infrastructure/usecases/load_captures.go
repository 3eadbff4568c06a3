package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/perfaudit/internal/domain/capture"
	"github.com/sophialabs/perfaudit/internal/infrastructure/ports"
	"github.com/sophialabs/perfaudit/internal/infrastructure/services"
)

// LoadCapturesUseCase loads all captures and builds an index.
type LoadCapturesUseCase struct {
	repo   capture.Repository
	logger ports.Logger
}

// NewLoadCapturesUseCase creates a new use case.
func NewLoadCapturesUseCase(repo capture.Repository, logger ports.Logger) *LoadCapturesUseCase {
	return &LoadCapturesUseCase{
		repo:   repo,
		logger: logger,
	}
}

// Execute loads every capture and returns the built index.
func (uc *LoadCapturesUseCase) Execute(ctx context.Context) (*services.CaptureIndex, error) {
	captures, err := uc.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load captures: %w", err)
	}

	uc.logger.Info("loaded captures from repository", "count", len(captures))

	index := services.NewCaptureIndex()
	for _, c := range captures {
		if _, dup := index.Lookup(c.ID); dup {
			return nil, fmt.Errorf("duplicate capture ID: %q", c.ID)
		}
		index.Add(c)
		uc.logger.Debug("indexed capture", "id", c.ID, "passes", len(c.Passes))
	}
	index.Build()

	uc.logger.Info("capture index built", "captures", index.Len())

	return index, nil
}
