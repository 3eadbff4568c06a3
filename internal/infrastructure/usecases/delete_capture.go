package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/perfaudit/internal/domain/capture"
	"github.com/sophialabs/perfaudit/internal/infrastructure/ports"
)

// DeleteCaptureUseCase removes a capture and its files.
type DeleteCaptureUseCase struct {
	repo   capture.Repository
	logger ports.Logger
}

// NewDeleteCaptureUseCase creates a new use case.
func NewDeleteCaptureUseCase(repo capture.Repository, logger ports.Logger) *DeleteCaptureUseCase {
	return &DeleteCaptureUseCase{
		repo:   repo,
		logger: logger,
	}
}

// Execute removes the capture with the given ID.
func (uc *DeleteCaptureUseCase) Execute(ctx context.Context, id string) error {
	if err := capture.ValidateID(id); err != nil {
		return err
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete capture %q: %w", id, err)
	}

	uc.logger.Info("capture deleted", "id", id)
	return nil
}
