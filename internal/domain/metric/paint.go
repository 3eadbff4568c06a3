package metric

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sophialabs/perfaudit/internal/domain/trace"
)

// ErrMetricUnavailable means every stage of a metric's fallback chain failed.
var ErrMetricUnavailable = errors.New("metric unavailable")

// Stage names the fallback step that produced a timing.
type Stage string

const (
	StageExplicit  Stage = "explicit"
	StageCandidate Stage = "candidate"
	StageFallback  Stage = "fallback"
)

// contentfulMilestones are tried in order when no meaningful paint is usable.
var contentfulMilestones = []string{
	trace.FirstContentfulPaint,
	trace.FirstTextPaint,
	trace.FirstImagePaint,
}

// PaintCandidate is a meaningful-paint candidate with its external rank.
type PaintCandidate struct {
	Timestamp float64 `json:"timestamp"`
	Rank      float64 `json:"rank"`
}

// Ranker supplies the significance of a candidate mark. Ranking is computed
// by the browser; this package only orders by it.
type Ranker interface {
	Rank(e trace.Event) float64
}

// RankFunc adapts a function to Ranker.
type RankFunc func(e trace.Event) float64

// Rank implements Ranker.
func (f RankFunc) Rank(e trace.Event) float64 { return f(e) }

// UniformRank ranks every candidate equally, so the latest one wins.
func UniformRank() Ranker {
	return RankFunc(func(trace.Event) float64 { return 0 })
}

// ArgRanker reads a numeric rank from args.data.<key>. Marks without it rank 0.
func ArgRanker(key string) Ranker {
	return RankFunc(func(e trace.Event) float64 {
		switch v := e.Data()[key].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		default:
			return 0
		}
	})
}

// Timing is a raw milestone measured from navigation start.
type Timing struct {
	RawValue    float64 `json:"rawValue"`
	Timestamp   float64 `json:"timestamp"`
	Milestone   string  `json:"milestone"`
	Stage       Stage   `json:"stage"`
	DebugString string  `json:"debugString,omitempty"`
}

// StageFailure records why one fallback stage produced nothing.
type StageFailure struct {
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
}

// UnavailableError is returned when a metric's fallback chain is exhausted.
type UnavailableError struct {
	Metric   string
	Failures []StageFailure
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrMetricUnavailable, e.Metric, e.DebugString())
}

// Is makes errors.Is(err, ErrMetricUnavailable) hold.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrMetricUnavailable
}

// DebugString lists each attempted stage and why it failed.
func (e *UnavailableError) DebugString() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, string(f.Stage)+": "+f.Reason)
	}
	return strings.Join(parts, "; ")
}

// SelectMeaningfulPaint extracts first meaningful paint on the navigation's
// frame. Stages, first success wins:
//
//  1. the first firstMeaningfulPaint mark at or after navigation start;
//  2. the highest-ranked firstMeaningfulPaintCandidate strictly after
//     navigation start and not after the trace end, ties going to the latest;
//  3. the first contentful milestone (firstContentfulPaint, then
//     firstTextPaint, then firstImagePaint) at or after navigation start.
//
// Stage 3 carries a debug string only when meaningful-paint marks existed
// but were all rejected.
func SelectMeaningfulPaint(tl *trace.Timeline, nav NavigationStart, ranker Ranker) (Timing, error) {
	if ranker == nil {
		ranker = UniformRank()
	}
	var failures []StageFailure

	explicit := tl.FrameNamed(nav.Frame, trace.FirstMeaningfulPaint)
	if len(explicit) == 0 {
		failures = append(failures, StageFailure{StageExplicit, "no firstMeaningfulPaint mark"})
	} else {
		for _, e := range explicit {
			if ms, ok := deltaMs(e.Timestamp, nav.Timestamp); ok {
				return Timing{RawValue: ms, Timestamp: e.Timestamp, Milestone: e.Name, Stage: StageExplicit}, nil
			}
		}
		failures = append(failures, StageFailure{StageExplicit,
			fmt.Sprintf("%d firstMeaningfulPaint mark(s) precede navigation start", len(explicit))})
	}

	candidates := tl.FrameNamed(nav.Frame, trace.FirstMeaningfulPaintCandidate)
	if len(candidates) == 0 {
		failures = append(failures, StageFailure{StageCandidate, "no firstMeaningfulPaintCandidate marks"})
	} else {
		if t, ok := bestCandidate(candidates, nav, tl.End(), ranker); ok {
			return t, nil
		}
		failures = append(failures, StageFailure{StageCandidate,
			fmt.Sprintf("all %d candidate mark(s) fall outside navigation start and trace end", len(candidates))})
	}

	t, ok := firstContentful(tl, nav, contentfulMilestones)
	if !ok {
		failures = append(failures, StageFailure{StageFallback, "no contentful paint mark at or after navigation start"})
		return Timing{}, &UnavailableError{Metric: "first meaningful paint", Failures: failures}
	}
	t.Stage = StageFallback
	if len(explicit)+len(candidates) > 0 {
		t.DebugString = fmt.Sprintf("meaningful paint marks were rejected (%s); fell back to %s", joinReasons(failures), t.Milestone)
	}
	return t, nil
}

// SelectContentfulPaint extracts first contentful paint on the navigation's
// frame, falling back to firstTextPaint then firstImagePaint.
func SelectContentfulPaint(tl *trace.Timeline, nav NavigationStart) (Timing, error) {
	t, ok := firstContentful(tl, nav, contentfulMilestones)
	if !ok {
		return Timing{}, &UnavailableError{
			Metric:   "first contentful paint",
			Failures: []StageFailure{{StageExplicit, "no contentful paint mark at or after navigation start"}},
		}
	}
	if t.Milestone == trace.FirstContentfulPaint {
		t.Stage = StageExplicit
	} else {
		t.Stage = StageFallback
		t.DebugString = "no firstContentfulPaint mark; used " + t.Milestone
	}
	return t, nil
}

func bestCandidate(candidates []trace.Event, nav NavigationStart, end float64, ranker Ranker) (Timing, bool) {
	var (
		best     PaintCandidate
		bestMs   float64
		found    bool
		bestName string
	)
	for _, c := range candidates {
		if c.Timestamp <= nav.Timestamp || c.Timestamp > end {
			continue
		}
		ms, ok := deltaMs(c.Timestamp, nav.Timestamp)
		if !ok {
			continue
		}
		rank := ranker.Rank(c)
		if math.IsNaN(rank) {
			continue
		}
		if !found || rank > best.Rank || (rank == best.Rank && c.Timestamp >= best.Timestamp) {
			best = PaintCandidate{Timestamp: c.Timestamp, Rank: rank}
			bestMs, bestName, found = ms, c.Name, true
		}
	}
	if !found {
		return Timing{}, false
	}
	return Timing{RawValue: bestMs, Timestamp: best.Timestamp, Milestone: bestName, Stage: StageCandidate}, true
}

func firstContentful(tl *trace.Timeline, nav NavigationStart, names []string) (Timing, bool) {
	for _, name := range names {
		for _, e := range tl.FrameNamed(nav.Frame, name) {
			if ms, ok := deltaMs(e.Timestamp, nav.Timestamp); ok {
				return Timing{RawValue: ms, Timestamp: e.Timestamp, Milestone: name}, true
			}
		}
	}
	return Timing{}, false
}

// deltaMs converts a microsecond delta to milliseconds, rejecting negative
// and non-finite results.
func deltaMs(ts, navStart float64) (float64, bool) {
	ms := (ts - navStart) / 1000
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 {
		return 0, false
	}
	return ms, true
}

func joinReasons(failures []StageFailure) string {
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, f.Reason)
	}
	return strings.Join(parts, "; ")
}
