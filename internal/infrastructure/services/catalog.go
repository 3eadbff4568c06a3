package services

import (
	"context"
	"fmt"

	"github.com/sophialabs/perfaudit/internal/domain/artifact"
	"github.com/sophialabs/perfaudit/internal/domain/metric"
	"github.com/sophialabs/perfaudit/internal/domain/network"
	"github.com/sophialabs/perfaudit/internal/domain/trace"
)

// Computed artifact names.
const (
	ArtifactTimeline             = "Timeline"
	ArtifactNetworkRecords       = "NetworkRecords"
	ArtifactPushedRequests       = "PushedRequests"
	ArtifactNavigationStart      = "NavigationStart"
	ArtifactFirstMeaningfulPaint = "FirstMeaningfulPaint"
	ArtifactFirstContentfulPaint = "FirstContentfulPaint"
	ArtifactMetricFMP            = "MetricFirstMeaningfulPaint"
	ArtifactMetricFCP            = "MetricFirstContentfulPaint"
)

var artifactNames = []string{
	ArtifactFirstContentfulPaint,
	ArtifactFirstMeaningfulPaint,
	ArtifactMetricFCP,
	ArtifactMetricFMP,
	ArtifactNavigationStart,
	ArtifactNetworkRecords,
	ArtifactPushedRequests,
	ArtifactTimeline,
}

// ArtifactNames returns the names NewCatalog registers, sorted.
func ArtifactNames() []string {
	return append([]string(nil), artifactNames...)
}

// IsArtifact reports whether NewCatalog registers name.
func IsArtifact(name string) bool {
	for _, n := range artifactNames {
		if n == name {
			return true
		}
	}
	return false
}

// CatalogOptions configures the derivations registered by NewCatalog.
type CatalogOptions struct {
	Calibration metric.Calibration
	Ranker      metric.Ranker
}

// NewCatalog builds a fresh registry holding every computed artifact. Build
// one per audit run.
func NewCatalog(opts CatalogOptions) (*artifact.Registry, error) {
	if err := opts.Calibration.Validate(); err != nil {
		return nil, fmt.Errorf("invalid calibration: %w", err)
	}
	ranker := opts.Ranker
	if ranker == nil {
		ranker = metric.UniformRank()
	}

	reg := artifact.NewRegistry()
	defs := []struct {
		name    string
		compute artifact.ComputeFunc
		deps    []string
	}{
		{ArtifactTimeline, computeTimeline, nil},
		{ArtifactNetworkRecords, computeNetworkRecords, nil},
		{ArtifactPushedRequests, computePushedRequests, []string{ArtifactNetworkRecords}},
		{ArtifactNavigationStart, computeNavigationStart, []string{ArtifactTimeline}},
		{ArtifactFirstMeaningfulPaint, meaningfulPaint(ranker), []string{ArtifactTimeline, ArtifactNavigationStart}},
		{ArtifactFirstContentfulPaint, computeContentfulPaint, []string{ArtifactTimeline, ArtifactNavigationStart}},
		{ArtifactMetricFMP, scored(ArtifactFirstMeaningfulPaint, opts.Calibration.FirstMeaningfulPaint), []string{ArtifactFirstMeaningfulPaint}},
		{ArtifactMetricFCP, scored(ArtifactFirstContentfulPaint, opts.Calibration.FirstContentfulPaint), []string{ArtifactFirstContentfulPaint}},
	}
	for _, d := range defs {
		if err := reg.Register(d.name, d.compute, d.deps...); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func computeTimeline(_ context.Context, in artifact.Inputs) (any, error) {
	events := in.Raw.Trace()
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: pass %q has no trace", artifact.ErrMissingArtifact, in.Raw.Pass())
	}
	return trace.NewTimeline(events)
}

func computeNetworkRecords(_ context.Context, in artifact.Inputs) (any, error) {
	if !in.Raw.HasDevtoolsLog() {
		return nil, fmt.Errorf("%w: pass %q has no devtools log", artifact.ErrMissingArtifact, in.Raw.Pass())
	}
	log := in.Raw.DevtoolsLog()
	if len(log) == 0 {
		return []network.Record{}, nil
	}
	return network.Extract(log)
}

func computePushedRequests(_ context.Context, in artifact.Inputs) (any, error) {
	records, err := artifact.Dep[[]network.Record](in, ArtifactNetworkRecords)
	if err != nil {
		return nil, err
	}
	return network.Pushed(records), nil
}

func computeNavigationStart(_ context.Context, in artifact.Inputs) (any, error) {
	tl, err := artifact.Dep[*trace.Timeline](in, ArtifactTimeline)
	if err != nil {
		return nil, err
	}
	return metric.ResolveNavigationStart(tl)
}

func meaningfulPaint(ranker metric.Ranker) artifact.ComputeFunc {
	return func(_ context.Context, in artifact.Inputs) (any, error) {
		tl, nav, err := timelineAndNav(in)
		if err != nil {
			return nil, err
		}
		return metric.SelectMeaningfulPaint(tl, nav, ranker)
	}
}

func computeContentfulPaint(_ context.Context, in artifact.Inputs) (any, error) {
	tl, nav, err := timelineAndNav(in)
	if err != nil {
		return nil, err
	}
	return metric.SelectContentfulPaint(tl, nav)
}

func scored(timingArtifact string, curve metric.Curve) artifact.ComputeFunc {
	return func(_ context.Context, in artifact.Inputs) (any, error) {
		timing, err := artifact.Dep[metric.Timing](in, timingArtifact)
		if err != nil {
			return nil, err
		}
		return curve.Evaluate(timing), nil
	}
}

func timelineAndNav(in artifact.Inputs) (*trace.Timeline, metric.NavigationStart, error) {
	tl, err := artifact.Dep[*trace.Timeline](in, ArtifactTimeline)
	if err != nil {
		return nil, metric.NavigationStart{}, err
	}
	nav, err := artifact.Dep[metric.NavigationStart](in, ArtifactNavigationStart)
	if err != nil {
		return nil, metric.NavigationStart{}, err
	}
	return tl, nav, nil
}
