package filesystem_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sophialabs/perfaudit/internal/domain/metric"
	"github.com/sophialabs/perfaudit/internal/domain/smoke"
	"github.com/sophialabs/perfaudit/internal/infrastructure/outbound/filesystem"
)

func TestLoadSuite(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "fragments", "scored.yaml"), `
- path: '$.audits["first-meaningful-paint"].scoreDisplayMode'
  assert: value == "numeric"
- path: '$.audits["first-contentful-paint"].scoreDisplayMode'
  assert: value == "numeric"
`)
	writeFile(t, filepath.Join(dir, "smoke.yaml"), `
tests:
  - id: pwa
    capture: pwa-rocks
    expectations:
      - path: '$.audits["first-meaningful-paint"].rawValue'
        assert: "value > 1000 && value < 1200"
      - !include fragments/scored.yaml
  - id: slow
    capture: no-fmp
    pass: defaultPass
    serial: true
    expectations: !include fragments/scored.yaml
`)

	suite, err := filesystem.LoadSuite(filepath.Join(dir, "smoke.yaml"))
	if err != nil {
		t.Fatalf("LoadSuite failed: %v", err)
	}

	scored := []smoke.Expectation{
		{Path: `$.audits["first-meaningful-paint"].scoreDisplayMode`, Assert: `value == "numeric"`},
		{Path: `$.audits["first-contentful-paint"].scoreDisplayMode`, Assert: `value == "numeric"`},
	}
	want := smoke.Suite{Tests: []smoke.Test{
		{
			ID:      "pwa",
			Capture: "pwa-rocks",
			Expectations: append([]smoke.Expectation{
				{Path: `$.audits["first-meaningful-paint"].rawValue`, Assert: "value > 1000 && value < 1200"},
			}, scored...),
		},
		{ID: "slow", Capture: "no-fmp", Pass: "defaultPass", Serial: true, Expectations: scored},
	}}
	if diff := cmp.Diff(want, suite); diff != "" {
		t.Errorf("suite mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSuite_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing id", "tests:\n  - capture: a\n", "has no id"},
		{"duplicate id", "tests:\n  - {id: a, capture: a}\n  - {id: a, capture: b}\n", "duplicate test id"},
		{"missing capture", "tests:\n  - id: a\n", "names no capture"},
		{"incomplete expectation", "tests:\n  - id: a\n    capture: a\n    expectations:\n      - path: $.x\n", "needs both path and assert"},
		{"bad yaml", "tests: [", "failed to parse"},
		{"wrong shape", "tests: 3\n", "failed to decode"},
		{"escaping include", "tests: !include ../outside.yaml\n", "failed to resolve includes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "smoke.yaml")
			writeFile(t, path, tt.content)
			_, err := filesystem.LoadSuite(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadSuite_MissingFile(t *testing.T) {
	if _, err := filesystem.LoadSuite(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadCalibration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	writeFile(t, path, "first_meaningful_paint:\n  median: 5000\n  diminishing_returns: 2000\n")

	cal, err := filesystem.LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration failed: %v", err)
	}
	want := metric.Calibration{
		FirstMeaningfulPaint: metric.Curve{Median: 5000, DiminishingReturns: 2000},
		FirstContentfulPaint: metric.DefaultFCPCurve,
	}
	if diff := cmp.Diff(want, cal); diff != "" {
		t.Errorf("calibration mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCalibration_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown key", "first_input_delay:\n  median: 1\n", "failed to parse"},
		{"inverted curve", "first_contentful_paint:\n  median: 1000\n  diminishing_returns: 2000\n", "invalid calibration"},
		{"not a mapping", "- 1\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "calibration.yaml")
			writeFile(t, path, tt.content)
			_, err := filesystem.LoadCalibration(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
