package metric_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/sophialabs/perfaudit/internal/domain/metric"
	"github.com/sophialabs/perfaudit/internal/domain/trace"
	"github.com/sophialabs/perfaudit/internal/testutil"
)

const tolerance = 1e-6

func timeline(t *testing.T, events []trace.Event) *trace.Timeline {
	t.Helper()
	tl, err := trace.NewTimeline(events)
	if err != nil {
		t.Fatalf("NewTimeline: %v", err)
	}
	return tl
}

func firstMeaningfulPaint(t *testing.T, events []trace.Event) (metric.NavigationStart, metric.Timing) {
	t.Helper()
	tl := timeline(t, events)
	nav, err := metric.ResolveNavigationStart(tl)
	if err != nil {
		t.Fatalf("ResolveNavigationStart: %v", err)
	}
	timing, err := metric.SelectMeaningfulPaint(tl, nav, metric.UniformRank())
	if err != nil {
		t.Fatalf("SelectMeaningfulPaint: %v", err)
	}
	return nav, timing
}

func TestFirstMeaningfulPaint_ReferenceTraces(t *testing.T) {
	tests := []struct {
		name          string
		events        []trace.Event
		wantRaw       float64
		wantStage     metric.Stage
		wantDisplay   string
		reanchored    bool
		reconstructed bool
	}{
		{"ordinary load", testutil.ProgressiveAppTrace(), 1099.523, metric.StageExplicit, "1,100\u00a0ms", false, false},
		{"tracing marker after navigation start", testutil.LateTracingStartedTrace(), 529.916, metric.StageExplicit, "530\u00a0ms", true, false},
		{"out of order navigation start", testutil.BadNavStartTrace(), 632.424, metric.StageExplicit, "630\u00a0ms", false, true},
		{"meaningful paint before contentful paint", testutil.PreactTrace(), 878.353, metric.StageExplicit, "880\u00a0ms", false, false},
		{"candidates only", testutil.NoFMPTrace(), 4460.928, metric.StageCandidate, "4,460\u00a0ms", false, false},
		{"no meaningful paint marks", testutil.NoMeaningfulPaintTrace(), 482.318, metric.StageFallback, "480\u00a0ms", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav, timing := firstMeaningfulPaint(t, tt.events)

			if math.Abs(timing.RawValue-tt.wantRaw) > tolerance {
				t.Errorf("expected rawValue %v, got %v", tt.wantRaw, timing.RawValue)
			}
			if timing.Stage != tt.wantStage {
				t.Errorf("expected stage %s, got %s", tt.wantStage, timing.Stage)
			}
			if timing.DebugString != "" {
				t.Errorf("expected no debug string, got %q", timing.DebugString)
			}
			if nav.Reanchored != tt.reanchored {
				t.Errorf("expected reanchored=%v, got %v", tt.reanchored, nav.Reanchored)
			}
			if nav.Reconstructed != tt.reconstructed {
				t.Errorf("expected reconstructed=%v, got %v", tt.reconstructed, nav.Reconstructed)
			}

			result := metric.DefaultFMPCurve.Evaluate(timing)
			if result.DisplayValue != tt.wantDisplay {
				t.Errorf("expected display %q, got %q", tt.wantDisplay, result.DisplayValue)
			}
			if result.Score < 0 || result.Score > 1 {
				t.Errorf("score out of range: %v", result.Score)
			}
		})
	}
}

func TestFirstMeaningfulPaint_OrdinaryScore(t *testing.T) {
	_, timing := firstMeaningfulPaint(t, testutil.ProgressiveAppTrace())
	result := metric.DefaultFMPCurve.Evaluate(timing)
	if result.Score != 0.99 {
		t.Errorf("expected score 0.99, got %v", result.Score)
	}
}

func TestResolveNavigationStart_Failures(t *testing.T) {
	tests := []struct {
		name    string
		events  []trace.Event
		wantErr error
	}{
		{
			name: "no navigation start anywhere",
			events: testutil.NewTrace().
				TracingStarted(10, "0x1").
				Mark(trace.FirstContentfulPaint, 500, "0x1").
				Events(),
			wantErr: metric.ErrNavigationStartUnresolvable,
		},
		{
			name: "no paints and no main frame",
			events: testutil.NewTrace().
				Mark(trace.NavigationStart, 100, "0x1").
				Events(),
			wantErr: metric.ErrNavigationStartUnresolvable,
		},
		{
			name: "every navigation start follows the first paint",
			events: testutil.NewTrace().
				Mark(trace.FirstContentfulPaint, 100, "0x1").
				Mark(trace.NavigationStart, 200, "0x1").
				Events(),
			wantErr: trace.ErrMalformedTrace,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav, err := metric.ResolveNavigationStart(timeline(t, tt.events))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if nav.Valid {
				t.Error("failed resolution must not be valid")
			}
		})
	}
}

func TestResolveNavigationStart_ReconstructsWithoutTracingMarker(t *testing.T) {
	events := testutil.NewTrace().
		Mark(trace.NavigationStart, 1_000, "0xa").
		Mark(trace.FirstPaint, 5_000, "0xa").
		Mark(trace.NavigationStart, 2_000, "0xb").
		Mark(trace.FirstPaint, 9_000, "0xb").
		Events()

	nav, err := metric.ResolveNavigationStart(timeline(t, events))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nav.Frame != "0xa" || nav.Timestamp != 1_000 || !nav.Reconstructed || !nav.Valid {
		t.Errorf("unexpected navigation start: %+v", nav)
	}
}

func TestResolveNavigationStart_BrowserMarker(t *testing.T) {
	events := testutil.NewTrace().
		TracingStartedInBrowser(500, "0xmain", "0xad").
		Mark(trace.NavigationStart, 600, "0xad").
		Mark(trace.FirstPaint, 700, "0xad").
		Mark(trace.NavigationStart, 1_000, "0xmain").
		Mark(trace.FirstPaint, 3_000, "0xmain").
		Events()

	nav, err := metric.ResolveNavigationStart(timeline(t, events))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nav.Frame != "0xmain" || nav.Timestamp != 1_000 || nav.Reconstructed {
		t.Errorf("expected main frame anchor at 1000, got %+v", nav)
	}
}

func TestSelectMeaningfulPaint_RankedCandidates(t *testing.T) {
	events := testutil.NewTrace().
		TracingStarted(49_000_000, "0x5").
		Mark(trace.NavigationStart, 50_000_000, "0x5").
		RankedCandidate(51_000_000, "0x5", 3).
		RankedCandidate(52_000_000, "0x5", 5).
		RankedCandidate(53_000_000, "0x5", 5).
		RankedCandidate(54_000_000, "0x5", 1).
		Events()
	tl := timeline(t, events)
	nav, err := metric.ResolveNavigationStart(tl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		ranker metric.Ranker
		want   float64
	}{
		{"highest rank, latest on tie", metric.ArgRanker("rank"), 3000},
		{"uniform rank picks latest", metric.UniformRank(), 4000},
		{"nil ranker is uniform", nil, 4000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timing, err := metric.SelectMeaningfulPaint(tl, nav, tt.ranker)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if timing.RawValue != tt.want {
				t.Errorf("expected %v, got %v", tt.want, timing.RawValue)
			}
		})
	}
}

func TestSelectMeaningfulPaint_RejectedMarksFallBackWithDebug(t *testing.T) {
	events := testutil.NewTrace().
		TracingStarted(900, "0x1").
		Mark(trace.NavigationStart, 1_000, "0x1").
		Mark(trace.FirstMeaningfulPaintCandidate, 1_000, "0x1").
		Mark(trace.FirstContentfulPaint, 251_000, "0x1").
		Events()
	tl := timeline(t, events)
	nav, err := metric.ResolveNavigationStart(tl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	timing, err := metric.SelectMeaningfulPaint(tl, nav, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if timing.RawValue != 250 || timing.Stage != metric.StageFallback {
		t.Errorf("expected fallback at 250ms, got %+v", timing)
	}
	if !strings.Contains(timing.DebugString, "firstContentfulPaint") {
		t.Errorf("expected debug string naming the fallback, got %q", timing.DebugString)
	}
	if strings.Contains(timing.DebugString, "0x1") {
		t.Errorf("debug string must not leak frame ids: %q", timing.DebugString)
	}
}

func TestSelectMeaningfulPaint_ExplicitAtNavigationStart(t *testing.T) {
	events := testutil.NewTrace().
		TracingStarted(900, "0x1").
		Mark(trace.NavigationStart, 1_000, "0x1").
		Mark(trace.FirstMeaningfulPaint, 1_000, "0x1").
		Events()
	_, timing := firstMeaningfulPaint(t, events)
	if timing.RawValue != 0 {
		t.Errorf("expected 0, got %v", timing.RawValue)
	}
}

func TestSelectMeaningfulPaint_Unavailable(t *testing.T) {
	events := testutil.NewTrace().
		TracingStarted(900, "0x1").
		Mark(trace.NavigationStart, 1_000, "0x1").
		Noise("MessageLoop::RunTask", 5_000).
		Events()
	tl := timeline(t, events)
	nav, err := metric.ResolveNavigationStart(tl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = metric.SelectMeaningfulPaint(tl, nav, nil)
	if !errors.Is(err, metric.ErrMetricUnavailable) {
		t.Fatalf("expected ErrMetricUnavailable, got %v", err)
	}
	var unavailable *metric.UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected *UnavailableError, got %T", err)
	}
	if len(unavailable.Failures) != 3 {
		t.Fatalf("expected 3 stage failures, got %d", len(unavailable.Failures))
	}
	want := "explicit: no firstMeaningfulPaint mark; " +
		"candidate: no firstMeaningfulPaintCandidate marks; " +
		"fallback: no contentful paint mark at or after navigation start"
	if got := unavailable.DebugString(); got != want {
		t.Errorf("unexpected debug string:\n got %q\nwant %q", got, want)
	}
}

func TestSelectContentfulPaint(t *testing.T) {
	t.Run("contentful mark", func(t *testing.T) {
		tl := timeline(t, testutil.NoMeaningfulPaintTrace())
		nav, err := metric.ResolveNavigationStart(tl)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		timing, err := metric.SelectContentfulPaint(tl, nav)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(timing.RawValue-482.318) > tolerance || timing.Stage != metric.StageExplicit {
			t.Errorf("unexpected timing: %+v", timing)
		}
	})

	t.Run("text paint fallback", func(t *testing.T) {
		events := testutil.NewTrace().
			TracingStarted(900, "0x1").
			Mark(trace.NavigationStart, 1_000, "0x1").
			Mark(trace.FirstTextPaint, 301_000, "0x1").
			Events()
		tl := timeline(t, events)
		nav, err := metric.ResolveNavigationStart(tl)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		timing, err := metric.SelectContentfulPaint(tl, nav)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if timing.RawValue != 300 || timing.Stage != metric.StageFallback || timing.DebugString == "" {
			t.Errorf("unexpected timing: %+v", timing)
		}
	})
}
