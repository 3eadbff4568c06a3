package metric

import (
	"errors"
	"fmt"

	"github.com/sophialabs/perfaudit/internal/domain/trace"
)

// ErrNavigationStartUnresolvable means no navigation start can anchor the page load.
var ErrNavigationStartUnresolvable = errors.New("navigation start unresolvable")

// NavigationStart is the resolved time zero of a page load.
type NavigationStart struct {
	Timestamp float64 `json:"timestamp"`
	Frame     string  `json:"frame"`
	Valid     bool    `json:"valid"`

	// Reanchored is set when the tracing-session marker followed the
	// navigation start; the navigation start is still used as zero.
	Reanchored bool `json:"reanchored,omitempty"`

	// Reconstructed is set when the main frame had no usable navigation
	// start and the anchor came from the earliest painting frame.
	Reconstructed bool `json:"reconstructed,omitempty"`
}

// ResolveNavigationStart picks the navigation start all paint milestones are
// measured from.
//
// The main frame's last navigationStart is used when no paint of that frame
// precedes it. Otherwise the earliest paint in the trace names the anchor
// frame, and that frame's latest navigationStart at or before the paint wins.
// Events recorded before the tracing-session marker are kept; the earliest
// raw timestamp is never used as zero.
func ResolveNavigationStart(tl *trace.Timeline) (NavigationStart, error) {
	if tl == nil {
		return NavigationStart{}, fmt.Errorf("%w: no timeline", trace.ErrMalformedTrace)
	}

	if main := tl.MainFrame(); main != "" {
		if ns, ok := primary(tl, main); ok {
			return ns, nil
		}
	}
	return reconstruct(tl)
}

func primary(tl *trace.Timeline, frame string) (NavigationStart, bool) {
	navs := tl.FrameNamed(frame, trace.NavigationStart)
	if len(navs) == 0 {
		return NavigationStart{}, false
	}
	nav := navs[len(navs)-1]

	if paints := tl.FrameNamed(frame, trace.PaintNames...); len(paints) > 0 && paints[0].Timestamp < nav.Timestamp {
		return NavigationStart{}, false
	}

	ns := NavigationStart{Timestamp: nav.Timestamp, Frame: frame, Valid: true}
	if started, ok := tl.TracingStarted(); ok && started.Timestamp > nav.Timestamp {
		ns.Reanchored = true
	}
	return ns, true
}

func reconstruct(tl *trace.Timeline) (NavigationStart, error) {
	var anchor trace.Event
	found := false
	for _, p := range tl.Named(trace.PaintNames...) {
		if p.Frame() != "" {
			anchor, found = p, true
			break
		}
	}
	if !found {
		if len(tl.Named(trace.NavigationStart)) == 0 {
			return NavigationStart{}, fmt.Errorf("%w: trace has no navigationStart marks", ErrNavigationStartUnresolvable)
		}
		return NavigationStart{}, fmt.Errorf("%w: main frame has no navigationStart and no paint marks anchor another frame", ErrNavigationStartUnresolvable)
	}

	frame := anchor.Frame()
	navs := tl.FrameNamed(frame, trace.NavigationStart)
	if len(navs) == 0 {
		return NavigationStart{}, fmt.Errorf("%w: frame of the earliest paint has no navigationStart marks", ErrNavigationStartUnresolvable)
	}

	var best trace.Event
	ok := false
	for _, n := range navs {
		if n.Timestamp > anchor.Timestamp {
			break
		}
		best, ok = n, true
	}
	if !ok {
		return NavigationStart{}, fmt.Errorf("%w: every navigationStart of the earliest painting frame follows its %s", trace.ErrMalformedTrace, anchor.Name)
	}

	return NavigationStart{
		Timestamp:     best.Timestamp,
		Frame:         frame,
		Valid:         true,
		Reconstructed: true,
	}, nil
}
