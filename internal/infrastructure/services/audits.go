package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sophialabs/perfaudit/internal/domain/artifact"
	"github.com/sophialabs/perfaudit/internal/domain/audit"
	"github.com/sophialabs/perfaudit/internal/domain/metric"
	"github.com/sophialabs/perfaudit/internal/domain/trace"
)

// ErrUnknownAudit indicates an audit id that is not defined.
var ErrUnknownAudit = errors.New("unknown audit")

// AuditDefinition binds an audit id to the metric artifact it reports.
type AuditDefinition struct {
	ID       string
	Title    string
	Artifact string
}

// DefaultAudits lists the audits run for every capture.
var DefaultAudits = []AuditDefinition{
	{ID: "first-meaningful-paint", Title: "First Meaningful Paint", Artifact: ArtifactMetricFMP},
	{ID: "first-contentful-paint", Title: "First Contentful Paint", Artifact: ArtifactMetricFCP},
}

// FindAudit returns the default audit with the given id.
func FindAudit(id string) (AuditDefinition, bool) {
	for _, d := range DefaultAudits {
		if d.ID == id {
			return d, true
		}
	}
	return AuditDefinition{}, false
}

// SelectAudits returns the default audits with the given ids, or all of them
// when ids is empty.
func SelectAudits(ids ...string) ([]AuditDefinition, error) {
	if len(ids) == 0 {
		return DefaultAudits, nil
	}
	defs := make([]AuditDefinition, 0, len(ids))
	for _, id := range ids {
		d, ok := FindAudit(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAudit, id)
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// RunAudit resolves the audit's metric artifact and maps the outcome to a
// result. Metric failures produce a not-applicable result; anything else is
// an error result. It never returns an error itself.
func RunAudit(ctx context.Context, g *artifact.Graph, raw *artifact.RawArtifacts, def AuditDefinition) audit.Result {
	res, err := artifact.Get[metric.Result](ctx, g, def.Artifact, raw)
	switch {
	case err == nil:
		return audit.Numeric(def.ID, def.Title, res)
	case IsMetricFailure(err):
		return audit.NotApplicable(def.ID, def.Title, DebugString(err))
	default:
		return audit.Errored(def.ID, def.Title, DebugString(err))
	}
}

// IsMetricFailure reports whether err means the metric could not be measured
// from the captured data, as opposed to an internal failure.
func IsMetricFailure(err error) bool {
	return errors.Is(err, metric.ErrMetricUnavailable) ||
		errors.Is(err, metric.ErrNavigationStartUnresolvable) ||
		errors.Is(err, trace.ErrMalformedTrace) ||
		errors.Is(err, artifact.ErrMissingArtifact)
}

// DebugString describes the root cause of err without the chain of
// dependency wrappers.
func DebugString(err error) string {
	var unavailable *metric.UnavailableError
	if errors.As(err, &unavailable) {
		return unavailable.DebugString()
	}
	for {
		var dep *artifact.DependencyError
		if !errors.As(err, &dep) {
			break
		}
		err = dep.Err
	}
	return err.Error()
}
