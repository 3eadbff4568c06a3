package wiring_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sophialabs/perfaudit/internal/infrastructure/wiring"
	"github.com/sophialabs/perfaudit/internal/testutil"
)

const testdataRoot = "../../../testdata"

func validParams(t *testing.T) wiring.Params {
	t.Helper()
	return wiring.Params{
		RootDir:        testdataRoot,
		HistorySize:    10,
		CacheSize:      8,
		RateLimiterTTL: 5 * time.Minute,
		Logger:         &testutil.NoopLogger{},
	}
}

func TestNew_Success(t *testing.T) {
	c, err := wiring.New(validParams(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if c.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if c.Server() == nil {
		t.Error("Server() returned nil")
	}
	if c.LoadCapturesUseCase() == nil {
		t.Error("LoadCapturesUseCase() returned nil")
	}
	if c.RunAuditsUseCase() == nil {
		t.Error("RunAuditsUseCase() returned nil")
	}
	if c.RateLimiterStore() == nil {
		t.Error("RateLimiterStore() returned nil")
	}
	if c.History() == nil {
		t.Error("History() returned nil")
	}
}

func TestNew_Errors(t *testing.T) {
	dir := t.TempDir()
	badCalibration := filepath.Join(dir, "calibration.yaml")
	if err := os.WriteFile(badCalibration, []byte("first_meaningful_paint:\n  median: 10\n  diminishing_returns: 20\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		mutate  func(p *wiring.Params)
		wantErr string
	}{
		{"missing root", func(p *wiring.Params) { p.RootDir = "/nonexistent/path/that/does/not/exist" }, "failed to access root directory"},
		{"missing calibration", func(p *wiring.Params) { p.CalibrationFile = filepath.Join(dir, "nope.yaml") }, "failed to load calibration"},
		{"invalid calibration", func(p *wiring.Params) { p.CalibrationFile = badCalibration }, "failed to load calibration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams(t)
			tt.mutate(&p)
			c, err := wiring.New(p)
			if err == nil {
				c.Close()
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
			if c != nil {
				t.Error("expected nil container on error")
			}
		})
	}
}

func TestNew_ComponentsAreWiredCorrectly(t *testing.T) {
	c, err := wiring.New(validParams(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	idx, err := c.LoadCapturesUseCase().Execute(ctx)
	if err != nil {
		t.Fatalf("LoadCapturesUseCase().Execute() failed: %v", err)
	}
	pwa, ok := idx.Lookup("pwa-rocks")
	if !ok {
		t.Fatal("expected pwa-rocks in the index")
	}

	report, err := c.RunAuditsUseCase().Execute(ctx, pwa, "")
	if err != nil {
		t.Fatalf("RunAuditsUseCase().Execute() failed: %v", err)
	}
	if !report.Passed() {
		t.Errorf("expected every audit to score, got %+v", report.Audits)
	}
	if got := c.History().Count(); got != 1 {
		t.Errorf("expected the run in history, got %d entries", got)
	}
}

func TestNew_CalibrationFileIsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	strict := "first_meaningful_paint:\n  median: 500\n  diminishing_returns: 100\n"
	if err := os.WriteFile(path, []byte(strict), 0o644); err != nil {
		t.Fatal(err)
	}

	p := validParams(t)
	p.CalibrationFile = path
	c, err := wiring.New(p)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	idx, err := c.LoadCapturesUseCase().Execute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	pwa, _ := idx.Lookup("pwa-rocks")
	report, err := c.RunAuditsUseCase().Execute(ctx, pwa, "", "first-meaningful-paint")
	if err != nil {
		t.Fatal(err)
	}
	res := report.Audits["first-meaningful-paint"]
	if res.Score == nil || *res.Score >= 0.5 {
		t.Errorf("expected a strict curve to score a 1.1s paint below 0.5, got %+v", res)
	}
}

func TestNew_LoggerIsPassedThrough(t *testing.T) {
	p := validParams(t)
	logger := &testutil.NoopLogger{}
	p.Logger = logger

	c, err := wiring.New(p)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if c.Logger() != logger {
		t.Error("Logger() does not return the same logger instance passed in Params")
	}
}

func TestClose_IsIdempotent(t *testing.T) {
	c, err := wiring.New(validParams(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Double close must not panic.
	c.Close()
	c.Close()
}
