package audit

import (
	"sort"

	"github.com/sophialabs/perfaudit/internal/domain/metric"
)

// DisplayMode tells a report consumer how to present a score.
type DisplayMode string

const (
	ModeNumeric       DisplayMode = "numeric"
	ModeNotApplicable DisplayMode = "notApplicable"
	ModeError         DisplayMode = "error"
)

// Result is the outcome of one audit. Score is nil unless Mode is numeric.
type Result struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	RawValue         float64     `json:"rawValue"`
	Score            *float64    `json:"score"`
	ScoreDisplayMode DisplayMode `json:"scoreDisplayMode"`
	DisplayValue     string      `json:"displayValue,omitempty"`
	DebugString      string      `json:"debugString,omitempty"`
}

// Numeric builds a scored result from a metric result.
func Numeric(id, title string, m metric.Result) Result {
	score := m.Score
	return Result{
		ID:               id,
		Title:            title,
		RawValue:         m.RawValue,
		Score:            &score,
		ScoreDisplayMode: ModeNumeric,
		DisplayValue:     m.DisplayValue,
		DebugString:      m.DebugString,
	}
}

// NotApplicable builds a result for a metric that could not be measured.
func NotApplicable(id, title, debug string) Result {
	return Result{ID: id, Title: title, ScoreDisplayMode: ModeNotApplicable, DebugString: debug}
}

// Errored builds a result for an audit that failed unexpectedly.
func Errored(id, title, debug string) Result {
	return Result{ID: id, Title: title, ScoreDisplayMode: ModeError, DebugString: debug}
}

// Report holds all audit results for one capture pass.
type Report struct {
	CaptureID string            `json:"captureId"`
	URL       string            `json:"url"`
	Pass      string            `json:"pass"`
	Audits    map[string]Result `json:"audits"`
}

// AuditIDs returns the ids of the report's audits, sorted.
func (r Report) AuditIDs() []string {
	ids := make([]string, 0, len(r.Audits))
	for id := range r.Audits {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Passed reports whether every audit produced a numeric score.
func (r Report) Passed() bool {
	for _, res := range r.Audits {
		if res.ScoreDisplayMode != ModeNumeric {
			return false
		}
	}
	return true
}
