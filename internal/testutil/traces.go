package testutil

import (
	"github.com/sophialabs/perfaudit/internal/domain/trace"
)

// Renderer-side thread that carries frame marks in the synthetic traces.
const (
	rendererPID = 1
	rendererTID = 1
	browserPID  = 2
	browserTID  = 7
)

// TraceBuilder assembles synthetic traces for tests. Events are kept in
// insertion order so tests can feed deliberately unordered input.
type TraceBuilder struct {
	events []trace.Event
}

// NewTrace starts an empty trace with a metadata record and some browser-process noise.
func NewTrace() *TraceBuilder {
	return &TraceBuilder{events: []trace.Event{
		{Name: "process_name", Phase: trace.PhaseMetadata, PID: rendererPID, TID: rendererTID, Args: map[string]any{"name": "Renderer"}},
	}}
}

// TracingStarted adds a TracingStartedInPage marker naming frame as the inspected page.
func (b *TraceBuilder) TracingStarted(ts float64, frame string) *TraceBuilder {
	b.events = append(b.events, trace.Event{
		Name:      trace.TracingStartedInPage,
		Category:  "disabled-by-default-devtools.timeline",
		Phase:     "I",
		Timestamp: ts,
		PID:       rendererPID,
		TID:       rendererTID,
		Args:      map[string]any{"data": map[string]any{"page": frame, "sessionId": "1.1"}},
	})
	return b
}

// TracingStartedInBrowser adds a browser-level marker listing frames; the first
// frame has no parent and becomes the main frame.
func (b *TraceBuilder) TracingStartedInBrowser(ts float64, mainFrame, childFrame string) *TraceBuilder {
	frames := []any{map[string]any{"frame": mainFrame, "url": "https://example.com/", "processId": rendererPID}}
	if childFrame != "" {
		frames = append(frames, map[string]any{"frame": childFrame, "parent": mainFrame, "processId": rendererPID})
	}
	b.events = append(b.events, trace.Event{
		Name:      trace.TracingStartedInBrowser,
		Category:  "disabled-by-default-devtools.timeline",
		Phase:     "I",
		Timestamp: ts,
		PID:       browserPID,
		TID:       browserTID,
		Args:      map[string]any{"data": map[string]any{"frames": frames}},
	})
	return b
}

// Mark adds a frame-scoped user-timing mark such as navigationStart or firstPaint.
func (b *TraceBuilder) Mark(name string, ts float64, frame string) *TraceBuilder {
	b.events = append(b.events, trace.Event{
		Name:      name,
		Category:  "blink.user_timing",
		Phase:     "R",
		Timestamp: ts,
		PID:       rendererPID,
		TID:       rendererTID,
		Args:      map[string]any{"frame": frame},
	})
	return b
}

// RankedCandidate adds a firstMeaningfulPaintCandidate carrying args.data.rank.
func (b *TraceBuilder) RankedCandidate(ts float64, frame string, rank float64) *TraceBuilder {
	b.events = append(b.events, trace.Event{
		Name:      trace.FirstMeaningfulPaintCandidate,
		Category:  "loading",
		Phase:     "R",
		Timestamp: ts,
		PID:       rendererPID,
		TID:       rendererTID,
		Args:      map[string]any{"frame": frame, "data": map[string]any{"rank": rank}},
	})
	return b
}

// Noise adds an unrelated browser-process event.
func (b *TraceBuilder) Noise(name string, ts float64) *TraceBuilder {
	b.events = append(b.events, trace.Event{
		Name:      name,
		Category:  "toplevel",
		Phase:     "X",
		Timestamp: ts,
		PID:       browserPID,
		TID:       browserTID,
	})
	return b
}

// Events returns the assembled events in insertion order.
func (b *TraceBuilder) Events() []trace.Event {
	out := make([]trace.Event, len(b.events))
	copy(out, b.events)
	return out
}

// ProgressiveAppTrace is an ordinary page load: FMP lands 1099.523 ms after
// navigation start.
func ProgressiveAppTrace() []trace.Event {
	return NewTrace().
		Mark(trace.FirstMeaningfulPaint, 11_099_523, "0x1").
		Noise("MessageLoop::RunTask", 5_000_000).
		TracingStarted(9_990_000, "0x1").
		Mark(trace.NavigationStart, 10_000_000, "0x1").
		Mark(trace.FirstPaint, 10_899_000, "0x1").
		Mark(trace.FirstContentfulPaint, 10_899_000, "0x1").
		Mark(trace.FirstMeaningfulPaintCandidate, 10_950_000, "0x1").
		Mark(trace.FirstMeaningfulPaintCandidate, 11_099_523, "0x1").
		Noise("MessageLoop::RunTask", 11_500_000).
		Events()
}

// LateTracingStartedTrace has its tracing-session marker after the main
// frame's navigation start; FMP is 529.916 ms.
func LateTracingStartedTrace() []trace.Event {
	return NewTrace().
		Noise("MessageLoop::RunTask", 19_000_000).
		Mark(trace.NavigationStart, 20_000_000, "0x2").
		TracingStarted(20_050_000, "0x2").
		Mark(trace.FirstPaint, 20_400_000, "0x2").
		Mark(trace.FirstContentfulPaint, 20_400_000, "0x2").
		Mark(trace.FirstMeaningfulPaint, 20_529_916, "0x2").
		Events()
}

// BadNavStartTrace carries a late, out-of-order navigationStart after the
// paints; the reconstructed anchor puts FMP at 632.424 ms.
func BadNavStartTrace() []trace.Event {
	return NewTrace().
		TracingStarted(29_000_000, "0x3").
		Mark(trace.NavigationStart, 30_000_000, "0x3").
		Mark(trace.NavigationStart, 31_000_000, "0x3").
		Mark(trace.FirstPaint, 30_500_000, "0x3").
		Mark(trace.FirstContentfulPaint, 30_500_000, "0x3").
		Mark(trace.FirstMeaningfulPaint, 30_632_424, "0x3").
		Events()
}

// PreactTrace has FMP slightly before FCP; FMP is 878.353 ms.
func PreactTrace() []trace.Event {
	return NewTrace().
		TracingStarted(39_000_000, "0x4").
		Mark(trace.NavigationStart, 40_000_000, "0x4").
		Mark(trace.FirstPaint, 40_870_000, "0x4").
		Mark(trace.FirstContentfulPaint, 40_900_000, "0x4").
		Mark(trace.FirstMeaningfulPaint, 40_878_353, "0x4").
		Events()
}

// NoFMPTrace has candidates but no explicit FMP; the latest candidate is
// 4460.928 ms after navigation start.
func NoFMPTrace() []trace.Event {
	return NewTrace().
		TracingStarted(49_000_000, "0x5").
		Mark(trace.NavigationStart, 50_000_000, "0x5").
		Mark(trace.FirstPaint, 50_800_000, "0x5").
		Mark(trace.FirstContentfulPaint, 50_800_000, "0x5").
		Mark(trace.FirstMeaningfulPaintCandidate, 52_500_000, "0x5").
		Mark(trace.FirstMeaningfulPaintCandidate, 54_460_928, "0x5").
		Mark(trace.FirstMeaningfulPaintCandidate, 51_200_000, "0x5").
		Events()
}

// NoMeaningfulPaintTrace has no meaningful-paint marks at all; the contentful
// paint fallback resolves to 482.318 ms.
func NoMeaningfulPaintTrace() []trace.Event {
	return NewTrace().
		TracingStarted(59_000_000, "0x6").
		Mark(trace.NavigationStart, 60_000_000, "0x6").
		Mark(trace.FirstPaint, 60_482_318, "0x6").
		Mark(trace.FirstContentfulPaint, 60_482_318, "0x6").
		Noise("MessageLoop::RunTask", 61_000_000).
		Events()
}
