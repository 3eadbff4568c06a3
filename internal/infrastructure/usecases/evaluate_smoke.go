package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sophialabs/perfaudit/internal/domain/audit"
	"github.com/sophialabs/perfaudit/internal/domain/capture"
	"github.com/sophialabs/perfaudit/internal/domain/smoke"
	"github.com/sophialabs/perfaudit/internal/infrastructure/ports"
)

// SmokeEvaluation is the in-process result of one smoke test.
type SmokeEvaluation struct {
	Report audit.Report  `json:"report"`
	Checks []smoke.Check `json:"checks"`
	Passed bool          `json:"passed"`
}

// EvaluateSmokeUseCase audits a test's capture and checks its expectations.
type EvaluateSmokeUseCase struct {
	repo      capture.Repository
	audits    *RunAuditsUseCase
	evaluator ports.ExpectationEvaluator
	logger    ports.Logger
}

// NewEvaluateSmokeUseCase creates a new use case.
func NewEvaluateSmokeUseCase(
	repo capture.Repository,
	audits *RunAuditsUseCase,
	evaluator ports.ExpectationEvaluator,
	logger ports.Logger,
) *EvaluateSmokeUseCase {
	return &EvaluateSmokeUseCase{
		repo:      repo,
		audits:    audits,
		evaluator: evaluator,
		logger:    logger,
	}
}

// Execute runs every audit for the test's capture and evaluates each
// expectation against the report's JSON form.
func (uc *EvaluateSmokeUseCase) Execute(ctx context.Context, t smoke.Test) (SmokeEvaluation, error) {
	c, err := uc.repo.LoadByID(ctx, t.Capture)
	if err != nil {
		return SmokeEvaluation{}, fmt.Errorf("failed to load capture %q for test %q: %w", t.Capture, t.ID, err)
	}
	report, err := uc.audits.Execute(ctx, c, t.Pass)
	if err != nil {
		return SmokeEvaluation{}, fmt.Errorf("failed to audit capture %q for test %q: %w", t.Capture, t.ID, err)
	}

	doc, err := toDocument(report)
	if err != nil {
		return SmokeEvaluation{}, err
	}

	eval := SmokeEvaluation{Report: report, Passed: true}
	for _, exp := range t.Expectations {
		check := uc.evaluator.Evaluate(doc, exp)
		if !check.Passed {
			eval.Passed = false
			uc.logger.Warn("expectation failed", "test", t.ID, "path", exp.Path, "assert", exp.Assert, "error", check.Error)
		}
		eval.Checks = append(eval.Checks, check)
	}
	return eval, nil
}

// toDocument converts the report to the generic JSON shape JSONPath
// expressions are written against.
func toDocument(r audit.Report) (any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return doc, nil
}
