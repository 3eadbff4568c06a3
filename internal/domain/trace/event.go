package trace

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedTrace indicates a trace whose timestamps cannot be ordered or repaired.
var ErrMalformedTrace = errors.New("malformed trace")

// Well-known event names emitted by the browser during a page load.
const (
	TracingStartedInPage          = "TracingStartedInPage"
	TracingStartedInBrowser       = "TracingStartedInBrowser"
	NavigationStart               = "navigationStart"
	FirstPaint                    = "firstPaint"
	FirstContentfulPaint          = "firstContentfulPaint"
	FirstMeaningfulPaint          = "firstMeaningfulPaint"
	FirstMeaningfulPaintCandidate = "firstMeaningfulPaintCandidate"
	FirstTextPaint                = "firstTextPaint"
	FirstImagePaint               = "firstImagePaint"
)

// PhaseMetadata marks metadata events, which carry no meaningful timestamp.
const PhaseMetadata = "M"

// PaintNames lists every paint milestone mark, in no particular order.
var PaintNames = []string{
	FirstPaint,
	FirstContentfulPaint,
	FirstMeaningfulPaint,
	FirstMeaningfulPaintCandidate,
	FirstTextPaint,
	FirstImagePaint,
}

// Event is a single trace event as recorded by the browser.
// Timestamp is in monotonic microseconds.
type Event struct {
	Name      string         `json:"name"`
	Category  string         `json:"cat,omitempty"`
	Phase     string         `json:"ph"`
	Timestamp float64        `json:"ts"`
	PID       int            `json:"pid"`
	TID       int            `json:"tid"`
	Args      map[string]any `json:"args,omitempty"`
}

// Data returns args.data, or nil when absent.
func (e Event) Data() map[string]any {
	data, _ := e.Args["data"].(map[string]any)
	return data
}

// Frame returns the frame id the event belongs to, from args.frame or args.data.frame.
func (e Event) Frame() string {
	if f, ok := e.Args["frame"].(string); ok {
		return f
	}
	if f, ok := e.Data()["frame"].(string); ok {
		return f
	}
	return ""
}

// IsMetadata reports whether the event is a metadata record.
func (e Event) IsMetadata() bool {
	return e.Phase == PhaseMetadata
}

// File is the on-disk trace format. It accepts both a bare JSON array of
// events and an object with a traceEvents field.
type File struct {
	Events []Event
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *File) UnmarshalJSON(data []byte) error {
	var events []Event
	if err := json.Unmarshal(data, &events); err == nil {
		f.Events = events
		return nil
	}

	var wrapped struct {
		TraceEvents []Event `json:"traceEvents"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return fmt.Errorf("trace is neither an event array nor a traceEvents object: %w", err)
	}
	f.Events = wrapped.TraceEvents
	return nil
}

// MarshalJSON writes the object form.
func (f File) MarshalJSON() ([]byte, error) {
	events := f.Events
	if events == nil {
		events = []Event{}
	}
	return json.Marshal(struct {
		TraceEvents []Event `json:"traceEvents"`
	}{events})
}
