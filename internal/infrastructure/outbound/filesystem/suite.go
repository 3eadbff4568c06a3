package filesystem

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sophialabs/perfaudit/internal/domain/metric"
	"github.com/sophialabs/perfaudit/internal/domain/smoke"
)

// LoadSuite reads a smoke suite. !include references are confined to the
// suite file's directory.
func LoadSuite(path string) (smoke.Suite, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return smoke.Suite{}, fmt.Errorf("failed to resolve suite path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return smoke.Suite{}, fmt.Errorf("failed to read suite: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return smoke.Suite{}, fmt.Errorf("failed to parse suite YAML: %w", err)
	}
	dir := filepath.Dir(absPath)
	if err := NewIncludeResolver(dir).ResolveIncludes(&root, dir); err != nil {
		return smoke.Suite{}, fmt.Errorf("failed to resolve includes: %w", err)
	}

	var ys yamlSuite
	if err := root.Decode(&ys); err != nil {
		return smoke.Suite{}, fmt.Errorf("failed to decode suite: %w", err)
	}
	return toSuite(ys)
}

func toSuite(ys yamlSuite) (smoke.Suite, error) {
	seen := make(map[string]bool, len(ys.Tests))
	suite := smoke.Suite{Tests: make([]smoke.Test, 0, len(ys.Tests))}

	for i, yt := range ys.Tests {
		switch {
		case yt.ID == "":
			return smoke.Suite{}, fmt.Errorf("test %d has no id", i)
		case seen[yt.ID]:
			return smoke.Suite{}, fmt.Errorf("duplicate test id %q", yt.ID)
		case yt.Capture == "":
			return smoke.Suite{}, fmt.Errorf("test %q names no capture", yt.ID)
		}
		seen[yt.ID] = true

		t := smoke.Test{ID: yt.ID, Capture: yt.Capture, Pass: yt.Pass, Serial: yt.Serial}
		for j, ye := range yt.Expectations {
			if ye.Path == "" || ye.Assert == "" {
				return smoke.Suite{}, fmt.Errorf("test %q expectation %d needs both path and assert", yt.ID, j)
			}
			t.Expectations = append(t.Expectations, smoke.Expectation{Path: ye.Path, Assert: ye.Assert})
		}
		suite.Tests = append(suite.Tests, t)
	}
	return suite, nil
}

// LoadCalibration reads scoring curves from a YAML file. Curves the file
// leaves out keep their defaults. Unknown keys are rejected.
func LoadCalibration(path string) (metric.Calibration, error) {
	f, err := os.Open(path)
	if err != nil {
		return metric.Calibration{}, fmt.Errorf("failed to open calibration file: %w", err)
	}
	defer f.Close()

	cal := metric.DefaultCalibration()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cal); err != nil {
		return metric.Calibration{}, fmt.Errorf("failed to parse calibration file: %w", err)
	}
	if err := cal.Validate(); err != nil {
		return metric.Calibration{}, fmt.Errorf("invalid calibration file: %w", err)
	}
	return cal, nil
}
