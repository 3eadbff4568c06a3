package trace

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// ThreadKey identifies one process/thread pair.
type ThreadKey struct {
	PID int
	TID int
}

// Timeline is an ordered, indexed view over a raw trace. Events are sorted by
// timestamp (stable, so same-timestamp events keep their recorded order) and
// grouped per thread and per frame. A Timeline is read-only after construction;
// slices it returns must not be modified.
type Timeline struct {
	events  []Event
	threads map[ThreadKey][]Event
	frames  map[string][]Event

	tracingStarted    Event
	hasTracingStarted bool
	mainFrame         string

	start float64
	end   float64
}

// NewTimeline normalizes a raw, time-unordered event stream. Cross-process
// ordering is not assumed. Negative or non-finite timestamps cannot be repaired
// and yield ErrMalformedTrace.
func NewTimeline(raw []Event) (*Timeline, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no events", ErrMalformedTrace)
	}

	events := make([]Event, len(raw))
	copy(events, raw)
	for i, e := range events {
		if math.IsNaN(e.Timestamp) || math.IsInf(e.Timestamp, 0) || e.Timestamp < 0 {
			return nil, fmt.Errorf("%w: event %d (%s) has timestamp %v", ErrMalformedTrace, i, e.Name, e.Timestamp)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})

	tl := &Timeline{
		events:  events,
		threads: make(map[ThreadKey][]Event),
		frames:  make(map[string][]Event),
		start:   math.Inf(1),
		end:     math.Inf(-1),
	}

	for _, e := range events {
		key := ThreadKey{PID: e.PID, TID: e.TID}
		tl.threads[key] = append(tl.threads[key], e)

		if e.IsMetadata() {
			continue
		}
		if f := e.Frame(); f != "" {
			tl.frames[f] = append(tl.frames[f], e)
		}
		tl.start = math.Min(tl.start, e.Timestamp)
		tl.end = math.Max(tl.end, e.Timestamp)

		if !tl.hasTracingStarted && (e.Name == TracingStartedInPage || e.Name == TracingStartedInBrowser) {
			tl.tracingStarted = e
			tl.hasTracingStarted = true
			tl.mainFrame = mainFrameOf(e)
		}
	}

	if math.IsInf(tl.start, 0) {
		return nil, fmt.Errorf("%w: only metadata events", ErrMalformedTrace)
	}

	return tl, nil
}

// mainFrameOf extracts the inspected frame from a tracing-started marker.
func mainFrameOf(e Event) string {
	data := e.Data()
	if page, ok := data["page"].(string); ok && page != "" {
		return page
	}
	frames, _ := data["frames"].([]any)
	for _, raw := range frames {
		f, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if parent, _ := f["parent"].(string); parent != "" {
			continue
		}
		if id, ok := f["frame"].(string); ok {
			return id
		}
	}
	return e.Frame()
}

// Events returns all events in timestamp order.
func (tl *Timeline) Events() []Event {
	return tl.events
}

// Len returns the number of events.
func (tl *Timeline) Len() int {
	return len(tl.events)
}

// Thread returns the ordered events of one process/thread.
func (tl *Timeline) Thread(pid, tid int) []Event {
	return tl.threads[ThreadKey{PID: pid, TID: tid}]
}

// Threads returns all thread keys, sorted by pid then tid.
func (tl *Timeline) Threads() []ThreadKey {
	keys := make([]ThreadKey, 0, len(tl.threads))
	for k := range tl.threads {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PID != keys[j].PID {
			return keys[i].PID < keys[j].PID
		}
		return keys[i].TID < keys[j].TID
	})
	return keys
}

// Frame returns the ordered events attributed to a frame.
func (tl *Timeline) Frame(id string) []Event {
	return tl.frames[id]
}

// Frames returns all frame ids that carry events, sorted.
func (tl *Timeline) Frames() []string {
	ids := make([]string, 0, len(tl.frames))
	for id := range tl.frames {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FrameNamed returns the ordered events of a frame whose name is one of names.
func (tl *Timeline) FrameNamed(frame string, names ...string) []Event {
	return filterNamed(tl.frames[frame], names)
}

// Named returns all ordered events whose name is one of names.
func (tl *Timeline) Named(names ...string) []Event {
	return filterNamed(tl.events, names)
}

// TracingStarted returns the earliest tracing-session marker.
func (tl *Timeline) TracingStarted() (Event, bool) {
	return tl.tracingStarted, tl.hasTracingStarted
}

// MainFrame returns the inspected frame named by the tracing-session marker,
// or "" when the trace has none.
func (tl *Timeline) MainFrame() string {
	return tl.mainFrame
}

// Start returns the earliest non-metadata timestamp.
func (tl *Timeline) Start() float64 {
	return tl.start
}

// End returns the latest non-metadata timestamp.
func (tl *Timeline) End() float64 {
	return tl.end
}

// timelineJSON is the wire form of a Timeline. The per-thread and per-frame
// indexes are derived from Events and are not serialized.
type timelineJSON struct {
	Start          float64  `json:"start"`
	End            float64  `json:"end"`
	MainFrame      string   `json:"mainFrame,omitempty"`
	TracingStarted *Event   `json:"tracingStarted,omitempty"`
	Frames         []string `json:"frames"`
	Events         []Event  `json:"events"`
}

// MarshalJSON implements json.Marshaler.
func (tl *Timeline) MarshalJSON() ([]byte, error) {
	out := timelineJSON{
		Start:     tl.start,
		End:       tl.end,
		MainFrame: tl.mainFrame,
		Frames:    tl.Frames(),
		Events:    tl.events,
	}
	if tl.hasTracingStarted {
		started := tl.tracingStarted
		out.TracingStarted = &started
	}
	return json.Marshal(out)
}

func filterNamed(events []Event, names []string) []Event {
	var out []Event
	for _, e := range events {
		if e.IsMetadata() {
			continue
		}
		for _, n := range names {
			if e.Name == n {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
