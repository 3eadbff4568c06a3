package usecases

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sophialabs/perfaudit/internal/domain/artifact"
	"github.com/sophialabs/perfaudit/internal/domain/audit"
	"github.com/sophialabs/perfaudit/internal/domain/capture"
	"github.com/sophialabs/perfaudit/internal/domain/metric"
	"github.com/sophialabs/perfaudit/internal/infrastructure/ports"
	"github.com/sophialabs/perfaudit/internal/infrastructure/services"
)

// RunAuditsUseCase audits one pass of a capture. Every run gets its own
// registry and graph, so runs share no computed state.
type RunAuditsUseCase struct {
	calibration metric.Calibration
	ranker      metric.Ranker
	clock       ports.Clock
	logger      ports.Logger
	history     *audit.History
}

// NewRunAuditsUseCase creates a new use case. history may be nil.
func NewRunAuditsUseCase(
	calibration metric.Calibration,
	ranker metric.Ranker,
	clock ports.Clock,
	logger ports.Logger,
	history *audit.History,
) *RunAuditsUseCase {
	return &RunAuditsUseCase{
		calibration: calibration,
		ranker:      ranker,
		clock:       clock,
		logger:      logger,
		history:     history,
	}
}

// Execute runs the audits named by auditIDs, or every default audit when
// none are given, against one pass of c. Audit failures are reported inside
// the report; the returned error covers only an unknown pass or audit id or
// an invalid calibration.
func (uc *RunAuditsUseCase) Execute(ctx context.Context, c *capture.Capture, pass string, auditIDs ...string) (audit.Report, error) {
	raw, err := c.Pass(pass)
	if err != nil {
		return audit.Report{}, err
	}
	defs, err := services.SelectAudits(auditIDs...)
	if err != nil {
		return audit.Report{}, err
	}
	g, err := uc.graph()
	if err != nil {
		return audit.Report{}, err
	}

	log := uc.logger.With("capture", c.ID, "pass", raw.Pass())
	start := uc.clock.Now()

	results := make([]audit.Result, len(defs))
	var eg errgroup.Group
	for i, def := range defs {
		eg.Go(func() error {
			results[i] = services.RunAudit(ctx, g, raw, def)
			return nil
		})
	}
	_ = eg.Wait()

	report := audit.Report{
		CaptureID: c.ID,
		URL:       c.URL,
		Pass:      raw.Pass(),
		Audits:    make(map[string]audit.Result, len(results)),
	}
	for _, res := range results {
		report.Audits[res.ID] = res
		if res.ScoreDisplayMode != audit.ModeNumeric {
			log.Warn("audit did not score", "audit", res.ID, "mode", res.ScoreDisplayMode, "debug", res.DebugString)
		}
	}

	took := uc.clock.Since(start)
	if uc.history != nil {
		uc.history.Add(audit.NewEntry(start, report, took))
	}
	log.Info("audits complete", "audits", len(results), "duration", took)

	return report, nil
}

// Artifact computes a single named artifact for one pass of c.
func (uc *RunAuditsUseCase) Artifact(ctx context.Context, c *capture.Capture, pass, name string) (any, error) {
	raw, err := c.Pass(pass)
	if err != nil {
		return nil, err
	}
	g, err := uc.graph()
	if err != nil {
		return nil, err
	}
	v, err := g.Request(ctx, name, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to compute %q for capture %q: %w", name, c.ID, err)
	}
	return v, nil
}

func (uc *RunAuditsUseCase) graph() (*artifact.Graph, error) {
	reg, err := services.NewCatalog(services.CatalogOptions{
		Calibration: uc.calibration,
		Ranker:      uc.ranker,
	})
	if err != nil {
		return nil, err
	}
	return artifact.NewGraph(reg), nil
}
