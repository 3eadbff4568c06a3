package wiring

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sophialabs/perfaudit/internal/infrastructure/outbound/clock"
	"github.com/sophialabs/perfaudit/internal/infrastructure/outbound/expect"
	"github.com/sophialabs/perfaudit/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/perfaudit/internal/infrastructure/outbound/template"
	"github.com/sophialabs/perfaudit/internal/infrastructure/ports"
	"github.com/sophialabs/perfaudit/internal/infrastructure/usecases"
)

// SmokeParams configures the smoke harness.
type SmokeParams struct {
	RootDir         string
	CalibrationFile string
	RankKey         string
	Logger          ports.Logger

	// Runner only.
	Launcher     ports.Launcher
	Format       string // template.FormatText when empty
	TemplateFile string // overrides Format
	Out          io.Writer
	Options      usecases.SmokeOptions
}

// NewEvaluateSmoke wires the in-process side of a smoke test: the capture
// repository, the audit runner and the expectation evaluator.
func NewEvaluateSmoke(p SmokeParams) (*usecases.EvaluateSmokeUseCase, error) {
	repo, err := filesystem.NewCaptureRepository(p.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}
	calibration, err := loadCalibration(p.CalibrationFile)
	if err != nil {
		return nil, err
	}
	auditsUC := usecases.NewRunAuditsUseCase(calibration, ranker(p.RankKey), clock.New(), p.Logger, nil)
	return usecases.NewEvaluateSmokeUseCase(repo, auditsUC, expect.NewEvaluator(), p.Logger), nil
}

// NewRunSmoke wires the parent side of the harness, which launches one
// child process per test and renders each outcome.
func NewRunSmoke(p SmokeParams) (*usecases.RunSmokeUseCase, error) {
	if p.Launcher == nil {
		return nil, fmt.Errorf("smoke runner needs a launcher")
	}
	renderer, err := outcomeRenderer(p.Format, p.TemplateFile)
	if err != nil {
		return nil, err
	}
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	opts := p.Options
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Minute
	}
	return usecases.NewRunSmokeUseCase(p.Launcher, renderer, clock.New(), p.Logger, out, opts), nil
}

func outcomeRenderer(format, templateFile string) (ports.OutcomeRenderer, error) {
	registry := template.NewRegistry()
	if templateFile != "" {
		source, err := os.ReadFile(templateFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read template: %w", err)
		}
		if err := registry.Register(templateFile, string(source)); err != nil {
			return nil, err
		}
		format = templateFile
	}
	if format == "" {
		format = template.FormatText
	}
	renderer, err := registry.Renderer(format)
	if err != nil {
		return nil, err
	}
	return renderer, nil
}
