package artifact

import (
	"github.com/google/uuid"

	"github.com/sophialabs/perfaudit/internal/domain/network"
	"github.com/sophialabs/perfaudit/internal/domain/trace"
)

// DefaultPass is the name of the single capture pass most audits read from.
const DefaultPass = "defaultPass"

// RawArtifacts is the immutable instrumentation captured for one pass of a
// page load. Its identity is assigned at construction; two bundles with equal
// contents are still distinct inputs to the graph.
type RawArtifacts struct {
	id          uuid.UUID
	pass        string
	trace       []trace.Event
	devtoolsLog []network.LogEntry
}

// NewRawArtifacts copies the given slices so later caller mutations cannot
// leak into cached results. A nil log means the pass recorded none; an empty
// one means it recorded no protocol traffic.
func NewRawArtifacts(pass string, events []trace.Event, log []network.LogEntry) *RawArtifacts {
	if pass == "" {
		pass = DefaultPass
	}
	ev := make([]trace.Event, len(events))
	copy(ev, events)
	var lg []network.LogEntry
	if log != nil {
		lg = make([]network.LogEntry, len(log))
		copy(lg, log)
	}

	return &RawArtifacts{
		id:          uuid.New(),
		pass:        pass,
		trace:       ev,
		devtoolsLog: lg,
	}
}

// ID returns the bundle's identity.
func (r *RawArtifacts) ID() uuid.UUID { return r.id }

// Pass returns the capture pass name.
func (r *RawArtifacts) Pass() string { return r.pass }

// Trace returns the trace events in recorded order. Callers must not modify the slice.
func (r *RawArtifacts) Trace() []trace.Event { return r.trace }

// DevtoolsLog returns the protocol log in recorded order. Callers must not modify the slice.
func (r *RawArtifacts) DevtoolsLog() []network.LogEntry { return r.devtoolsLog }

// HasDevtoolsLog reports whether the pass recorded a protocol log, even an empty one.
func (r *RawArtifacts) HasDevtoolsLog() bool { return r.devtoolsLog != nil }
