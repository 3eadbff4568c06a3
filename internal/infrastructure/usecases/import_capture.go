package usecases

import (
	"context"
	"fmt"
	"io"

	"github.com/sophialabs/perfaudit/internal/domain/capture"
	"github.com/sophialabs/perfaudit/internal/infrastructure/ports"
	"github.com/sophialabs/perfaudit/internal/infrastructure/services"
)

// ImportCaptureUseCase stores a capture posted as JSON.
type ImportCaptureUseCase struct {
	repo   capture.Repository
	logger ports.Logger
}

// NewImportCaptureUseCase creates a new use case.
func NewImportCaptureUseCase(repo capture.Repository, logger ports.Logger) *ImportCaptureUseCase {
	return &ImportCaptureUseCase{
		repo:   repo,
		logger: logger,
	}
}

// Execute decodes the body and saves the capture, replacing any capture
// with the same id.
func (uc *ImportCaptureUseCase) Execute(ctx context.Context, body io.Reader) (*capture.Capture, error) {
	c, err := services.DecodeCaptureImport(body)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save capture %q: %w", c.ID, err)
	}
	uc.logger.Info("capture imported", "id", c.ID, "passes", len(c.Passes))
	return c, nil
}
