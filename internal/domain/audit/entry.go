package audit

import "time"

// Entry records one audit run for the history endpoint.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	CaptureID  string    `json:"capture_id"`
	Pass       string    `json:"pass"`
	DurationMs float64   `json:"duration_ms"`
	Outcomes   []Outcome `json:"outcomes"`
	Error      string    `json:"error,omitempty"`
}

// Outcome summarizes a single audit result inside a history entry.
type Outcome struct {
	AuditID     string      `json:"audit_id"`
	Mode        DisplayMode `json:"mode"`
	Score       *float64    `json:"score,omitempty"`
	RawValue    float64     `json:"raw_value,omitempty"`
	DebugString string      `json:"debug_string,omitempty"`
}

// NewEntry summarizes a report.
func NewEntry(at time.Time, r Report, took time.Duration) Entry {
	e := Entry{
		Timestamp:  at,
		CaptureID:  r.CaptureID,
		Pass:       r.Pass,
		DurationMs: float64(took.Microseconds()) / 1000,
	}
	for _, id := range r.AuditIDs() {
		res := r.Audits[id]
		e.Outcomes = append(e.Outcomes, Outcome{
			AuditID:     id,
			Mode:        res.ScoreDisplayMode,
			Score:       res.Score,
			RawValue:    res.RawValue,
			DebugString: res.DebugString,
		})
	}
	return e
}
