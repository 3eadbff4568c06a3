package metric

import "fmt"

// Result is a scored time metric.
type Result struct {
	RawValue     float64 `json:"rawValue"`
	Score        float64 `json:"score"`
	DisplayValue string  `json:"displayValue"`
	DebugString  string  `json:"debugString,omitempty"`
}

// Calibration holds the curves for every time metric.
type Calibration struct {
	FirstMeaningfulPaint Curve `yaml:"first_meaningful_paint" json:"firstMeaningfulPaint"`
	FirstContentfulPaint Curve `yaml:"first_contentful_paint" json:"firstContentfulPaint"`
}

// DefaultCalibration returns the built-in curves.
func DefaultCalibration() Calibration {
	return Calibration{
		FirstMeaningfulPaint: DefaultFMPCurve,
		FirstContentfulPaint: DefaultFCPCurve,
	}
}

// Validate checks every curve.
func (c Calibration) Validate() error {
	if err := c.FirstMeaningfulPaint.Validate(); err != nil {
		return fmt.Errorf("first_meaningful_paint: %w", err)
	}
	if err := c.FirstContentfulPaint.Validate(); err != nil {
		return fmt.Errorf("first_contentful_paint: %w", err)
	}
	return nil
}
