package metric

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DisplayGranularity is the rounding step, in milliseconds, of display values.
const DisplayGranularity = 10

// Curve is a log-normal scoring curve. Median scores 0.5; DiminishingReturns
// is the point past which faster times barely raise the score.
type Curve struct {
	Median             float64 `yaml:"median" json:"median"`
	DiminishingReturns float64 `yaml:"diminishing_returns" json:"diminishingReturns"`
}

// Default curves for the paint metrics.
var (
	DefaultFMPCurve = Curve{Median: 4000, DiminishingReturns: 1600}
	DefaultFCPCurve = Curve{Median: 4000, DiminishingReturns: 1600}
)

// Validate requires 0 < DiminishingReturns < Median.
func (c Curve) Validate() error {
	if !(c.DiminishingReturns > 0) {
		return fmt.Errorf("diminishing_returns must be positive, got %v", c.DiminishingReturns)
	}
	if !(c.DiminishingReturns < c.Median) || math.IsInf(c.Median, 0) {
		return fmt.Errorf("diminishing_returns (%v) must be below a finite median (%v)", c.DiminishingReturns, c.Median)
	}
	return nil
}

// Score maps a millisecond value to [0, 1], rounded to two decimals. It is
// non-increasing in ms; values at or below zero score 1.
func (c Curve) Score(ms float64) float64 {
	if math.IsNaN(ms) {
		return 0
	}
	if ms <= 0 {
		return 1
	}

	location := math.Log(c.Median)
	logRatio := math.Log(c.DiminishingReturns / c.Median)
	shape := math.Sqrt(1-3*logRatio-math.Sqrt((logRatio-3)*(logRatio-3)-8)) / 2

	standardized := (math.Log(ms) - location) / (math.Sqrt2 * shape)
	p := (1 - math.Erf(standardized)) / 2

	p = math.Max(0, math.Min(1, p))
	return math.Round(p*100) / 100
}

// Evaluate turns a timing into a scored result.
func (c Curve) Evaluate(t Timing) Result {
	return Result{
		RawValue:     t.RawValue,
		Score:        c.Score(t.RawValue),
		DisplayValue: FormatMilliseconds(t.RawValue),
		DebugString:  t.DebugString,
	}
}

// FormatMilliseconds renders ms at DisplayGranularity with English digit
// grouping and a non-breaking space before the unit, e.g. "1,100 ms".
func FormatMilliseconds(ms float64) string {
	rounded := int64(math.Round(ms/DisplayGranularity) * DisplayGranularity)
	p := message.NewPrinter(language.English)
	return p.Sprintf("%d", rounded) + "\u00a0ms"
}
